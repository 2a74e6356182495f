package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/yndnr/qrtoken-go/pkg/crypto/adaptive"
	"github.com/yndnr/qrtoken-go/pkg/crypto/keyring"
)

// Verify validates the configuration and returns every problem found.
func Verify(cfg *ServerConfig) error {
	return errors.Join(
		verifyServer(&cfg.Server),
		cfg.TokenManager().Validate(),
		verifySecurity(&cfg.Security),
		verifyStorage(&cfg.Storage),
		verifyEvents(&cfg.Events),
		verifyLog(&cfg.Log),
	)
}

func verifyServer(cfg *ServerSection) error {
	if _, _, err := net.SplitHostPort(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("server.http.addr %q: %w", cfg.HTTP.Addr, err)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		return errors.New("server.http.tls_cert_file and tls_key_file must be set together")
	}
	if cfg.HTTP.TLSClientCAFile != "" && cfg.HTTP.TLSCertFile == "" {
		return errors.New("server.http.tls_client_ca_file requires tls_cert_file")
	}
	for _, f := range []string{cfg.HTTP.TLSCertFile, cfg.HTTP.TLSKeyFile, cfg.HTTP.TLSClientCAFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("tls file: %w", err)
		}
	}
	return nil
}

func verifySecurity(cfg *SecuritySection) error {
	if cfg.MasterKey == "" {
		return errors.New("security.master_key is required")
	}
	master, err := keyring.Parse(cfg.MasterKey)
	if err != nil {
		return fmt.Errorf("security.master_key: %w", err)
	}
	if len(master) < keyring.MinMasterKeyLength {
		return fmt.Errorf("security.master_key: need at least %d bytes, got %d", keyring.MinMasterKeyLength, len(master))
	}
	switch adaptive.CipherType(cfg.LabelCipher) {
	case "", adaptive.CipherAESGCM, adaptive.CipherChaCha20:
	default:
		return fmt.Errorf("security.label_cipher: unknown cipher %q", cfg.LabelCipher)
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case BackendMemory:
	case BackendBadger:
		if cfg.Badger.Dir == "" {
			return errors.New("storage.badger.dir is required")
		}
		if err := os.MkdirAll(cfg.Badger.Dir, 0o750); err != nil {
			return fmt.Errorf("storage.badger.dir: %w", err)
		}
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return errors.New("storage.redis.addr is required")
		}
	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", cfg.Backend)
	}
	return nil
}

func verifyEvents(cfg *EventsSection) error {
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic == "" {
		return errors.New("events.kafka.topic is required when brokers are set")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Level)
	}
	switch cfg.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Format)
	}
	return nil
}
