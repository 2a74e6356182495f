// Package confloader loads layered configuration through koanf.
//
// Priority, highest first:
//
//  1. Values passed to LoadMap (command-line flags)
//  2. QRTOKEN_* environment variables, after an optional .env file
//  3. The YAML configuration file
//  4. Defaults already present in the target struct
//
// Environment names are the upper-cased key with dots replaced by
// underscores. Because keys may contain underscores themselves
// (storage.postgres.max_open_conns), names are resolved against the koanf
// tags of the target struct instead of split blindly.
package confloader
