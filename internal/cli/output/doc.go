// Package output renders qrtoken-cli results as a table, JSON or YAML.
package output
