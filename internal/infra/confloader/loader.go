package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "QRTOKEN_"

// Loader loads configuration from multiple sources.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
	dotEnv    string
	keys      map[string]string // ENV_NAME -> dotted.key
}

// Option configures the Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the YAML file path.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// WithDotEnv loads path into the process environment before the env
// provider runs. Variables already set win. A missing file is ignored.
func WithDotEnv(path string) Option {
	return func(l *Loader) {
		l.dotEnv = path
	}
}

// NewLoader creates a configuration loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load layers file and environment over the defaults in target, then
// unmarshals into target.
func (l *Loader) Load(target any) error {
	l.keys = envNames(KeysOf(target))

	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return err
		}
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("confloader: unmarshal: %w", err)
	}
	return nil
}

// LoadFile merges a YAML file.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("confloader: load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges prefixed environment variables, loading the .env file
// first when one is configured.
func (l *Loader) LoadEnv() error {
	if l.dotEnv != "" {
		err := godotenv.Load(l.dotEnv)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("confloader: load %s: %w", l.dotEnv, err)
		}
	}

	provider := env.Provider(l.envPrefix, ".", l.envKey)
	if err := l.k.Load(provider, nil); err != nil {
		return fmt.Errorf("confloader: load env: %w", err)
	}
	return nil
}

// envKey maps QRTOKEN_STORAGE_REDIS_KEY_PREFIX to storage.redis.key_prefix
// when that key is known, and falls back to replacing every underscore.
func (l *Loader) envKey(name string) string {
	name = strings.TrimPrefix(name, l.envPrefix)
	if key, ok := l.keys[name]; ok {
		return key
	}
	return strings.ToLower(strings.ReplaceAll(name, "_", "."))
}

// LoadMap merges data, typically parsed flags.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("confloader: load map: %w", err)
	}
	return nil
}

// Unmarshal decodes the merged configuration into target.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// GetString returns a string value by dotted key.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt returns an int value by dotted key.
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetBool returns a bool value by dotted key.
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// Exists reports whether any source set key.
func (l *Loader) Exists(key string) bool {
	return l.k.Exists(key)
}

// KeysOf returns the dotted leaf keys declared by koanf tags on v, which
// must be a struct or a pointer to one.
func KeysOf(v any) []string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	var keys []string
	collectKeys(t, "", &keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			collectKeys(ft, key, keys)
			continue
		}
		*keys = append(*keys, key)
	}
}

func envNames(keys []string) map[string]string {
	m := make(map[string]string, len(keys))
	for _, k := range keys {
		m[strings.ToUpper(strings.ReplaceAll(k, ".", "_"))] = k
	}
	return m
}

// ReadFile loads only path and returns the value of key. The log level
// watcher uses it to re-read a single setting.
func ReadFile(path, key string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		return "", err
	}
	return l.GetString(key), nil
}
