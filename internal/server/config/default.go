package config

import (
	"time"

	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/pkg/token"
)

// Default configuration values.
const (
	DefaultHTTPAddr        = "127.0.0.1:5080"
	DefaultShutdownTimeout = 15 * time.Second

	DefaultBackend        = BackendMemory
	DefaultBadgerDir      = "/var/lib/qrtoken-server/data"
	DefaultGCInterval     = 10 * time.Minute
	DefaultRedisKeyPrefix = "qrtoken:"
	DefaultMaxOpenConns   = 25

	DefaultKafkaTopic = "qrtoken.events"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration. It has no master key,
// so Verify fails until one is supplied.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:            DefaultHTTPAddr,
				ShutdownTimeout: DefaultShutdownTimeout,
			},
		},
		Token: TokenSection{
			EntropyBits:   token.DefaultEntropyBits,
			Version:       token.CurrentVersion,
			HashAlgorithm: token.AlgorithmSHA256,
		},
		Storage: StorageSection{
			Backend: DefaultBackend,
			Badger: BadgerConfig{
				Dir:        DefaultBadgerDir,
				GCInterval: DefaultGCInterval,
				SyncWrites: true,
			},
			Redis: RedisConfig{
				KeyPrefix: DefaultRedisKeyPrefix,
			},
			Postgres: PostgresConfig{
				MaxOpenConns: DefaultMaxOpenConns,
				Migrate:      true,
			},
		},
		Retention: RetentionSection{
			SweepInterval: service.DefaultSweepInterval,
		},
		Events: EventsSection{
			Kafka: KafkaConfig{Topic: DefaultKafkaTopic},
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Metrics: MetricsSection{Enabled: true},
	}
}

// TokenManager converts the token section for service.NewTokenManager.
func (c *ServerConfig) TokenManager() service.TokenManagerConfig {
	return service.TokenManagerConfig{
		EntropyBits:     c.Token.EntropyBits,
		Version:         c.Token.Version,
		AcceptVersions:  c.Token.AcceptVersions,
		ExpirationHours: c.Token.ExpirationHours,
		HashAlgorithm:   c.Token.HashAlgorithm,
	}
}
