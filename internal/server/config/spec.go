package config

import "time"

// ServerConfig is the root configuration for qrtoken-server.
type ServerConfig struct {
	Server    ServerSection    `koanf:"server"`
	Token     TokenSection     `koanf:"token"`
	Security  SecuritySection  `koanf:"security"`
	Storage   StorageSection   `koanf:"storage"`
	Retention RetentionSection `koanf:"retention"`
	Events    EventsSection    `koanf:"events"`
	Log       LogSection       `koanf:"log"`
	Metrics   MetricsSection   `koanf:"metrics"`
}

// ServerSection configures listeners.
type ServerSection struct {
	HTTP HTTPConfig `koanf:"http"`
}

// HTTPConfig configures the HTTP API listener.
type HTTPConfig struct {
	Addr            string        `koanf:"addr"`
	TLSCertFile     string        `koanf:"tls_cert_file"`
	TLSKeyFile      string        `koanf:"tls_key_file"`
	// TLSClientCAFile, when set, requires client certificates signed by it.
	TLSClientCAFile string        `koanf:"tls_client_ca_file"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// TokenSection configures issuance.
type TokenSection struct {
	EntropyBits     int    `koanf:"entropy_bits"`
	Version         int    `koanf:"version"`
	AcceptVersions  []int  `koanf:"accept_versions"`
	ExpirationHours int    `koanf:"expiration_hours"`
	HashAlgorithm   string `koanf:"hash_algorithm"`
}

// SecuritySection holds key material.
type SecuritySection struct {
	// MasterKey seeds the lookup and label keys. "hex:" or "base64:"
	// prefixed, at least 32 bytes decoded.
	MasterKey string `koanf:"master_key"`

	// LabelCipher forces "aes-256-gcm" or "chacha20-poly1305". Empty picks by
	// hardware support.
	LabelCipher string `koanf:"label_cipher"`
}

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// StorageSection selects and configures the token store.
type StorageSection struct {
	Backend  string         `koanf:"backend"`
	Badger   BadgerConfig   `koanf:"badger"`
	Redis    RedisConfig    `koanf:"redis"`
	Postgres PostgresConfig `koanf:"postgres"`
}

// BadgerConfig configures the embedded store.
type BadgerConfig struct {
	Dir        string        `koanf:"dir"`
	GCInterval time.Duration `koanf:"gc_interval"`
	SyncWrites bool          `koanf:"sync_writes"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr      string `koanf:"addr"`
	Password  string `koanf:"password"`
	DB        int    `koanf:"db"`
	KeyPrefix string `koanf:"key_prefix"`
}

// PostgresConfig configures the SQL store.
type PostgresConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	Migrate      bool   `koanf:"migrate"`
}

// RetentionSection configures the background sweeper.
type RetentionSection struct {
	// SweepInterval between prune runs. Zero disables the sweeper.
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// EventsSection configures lifecycle event publishing.
type EventsSection struct {
	Kafka KafkaConfig `koanf:"kafka"`
}

// KafkaConfig enables the Kafka publisher when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsSection toggles the /metrics endpoint.
type MetricsSection struct {
	Enabled bool `koanf:"enabled"`
}
