package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/qrtoken-go/internal/infra/confloader"
)

const testMasterKey = "hex:000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func validConfig() *ServerConfig {
	cfg := Default()
	cfg.Security.MasterKey = testMasterKey
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("HTTP.Addr = %q, want %q", cfg.Server.HTTP.Addr, DefaultHTTPAddr)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("Storage.Backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Token.EntropyBits != 256 || cfg.Token.Version != 1 {
		t.Errorf("Token = %+v, want 256 bits version 1", cfg.Token)
	}
	if cfg.Token.ExpirationHours != 0 {
		t.Errorf("ExpirationHours = %d, want 0 (never expire)", cfg.Token.ExpirationHours)
	}
	if cfg.Retention.SweepInterval != time.Hour {
		t.Errorf("SweepInterval = %v, want 1h", cfg.Retention.SweepInterval)
	}
	if err := Verify(cfg); err == nil {
		t.Error("Verify(Default()) should fail without a master key")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{"valid", func(*ServerConfig) {}, ""},
		{"bad addr", func(c *ServerConfig) { c.Server.HTTP.Addr = "nohost" }, "server.http.addr"},
		{"half tls", func(c *ServerConfig) { c.Server.HTTP.TLSCertFile = "cert.pem" }, "set together"},
		{"missing tls file", func(c *ServerConfig) {
			c.Server.HTTP.TLSCertFile = "/nonexistent/cert.pem"
			c.Server.HTTP.TLSKeyFile = "/nonexistent/key.pem"
		}, "tls file"},
		{"client ca without cert", func(c *ServerConfig) {
			c.Server.HTTP.TLSClientCAFile = "ca.pem"
		}, "requires tls_cert_file"},
		{"low entropy", func(c *ServerConfig) { c.Token.EntropyBits = 128 }, "entropy_bits"},
		{"negative expiry", func(c *ServerConfig) { c.Token.ExpirationHours = -1 }, "expiration_hours"},
		{"unknown hash", func(c *ServerConfig) { c.Token.HashAlgorithm = "md5" }, "hash_algorithm"},
		{"no master key", func(c *ServerConfig) { c.Security.MasterKey = "" }, "master_key is required"},
		{"short master key", func(c *ServerConfig) { c.Security.MasterKey = "hex:0011" }, "at least 32 bytes"},
		{"bad hex key", func(c *ServerConfig) { c.Security.MasterKey = "hex:zz" }, "master_key"},
		{"unknown cipher", func(c *ServerConfig) { c.Security.LabelCipher = "rot13" }, "label_cipher"},
		{"chacha cipher", func(c *ServerConfig) { c.Security.LabelCipher = "chacha20-poly1305" }, ""},
		{"unknown backend", func(c *ServerConfig) { c.Storage.Backend = "mongo" }, "storage.backend"},
		{"redis without addr", func(c *ServerConfig) { c.Storage.Backend = BackendRedis }, "storage.redis.addr"},
		{"postgres without dsn", func(c *ServerConfig) { c.Storage.Backend = BackendPostgres }, "storage.postgres.dsn"},
		{"badger without dir", func(c *ServerConfig) {
			c.Storage.Backend = BackendBadger
			c.Storage.Badger.Dir = ""
		}, "storage.badger.dir"},
		{"kafka without topic", func(c *ServerConfig) {
			c.Events.Kafka.Brokers = []string{"localhost:9092"}
			c.Events.Kafka.Topic = ""
		}, "events.kafka.topic"},
		{"bad level", func(c *ServerConfig) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *ServerConfig) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Verify(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_BadgerCreatesDir(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = BackendBadger
	cfg.Storage.Badger.Dir = filepath.Join(t.TempDir(), "nested", "data")

	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := os.Stat(cfg.Storage.Badger.Dir); err != nil {
		t.Errorf("badger dir not created: %v", err)
	}
}

func TestSanitize(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Redis.Password = "redis-pass"
	cfg.Storage.Postgres.DSN = "postgres://app:pg-secret@db:5432/qr?sslmode=disable"
	cfg.Events.Kafka.Brokers = []string{"k1:9092"}

	s := Sanitize(cfg)

	if cfg.Security.MasterKey != testMasterKey {
		t.Error("Sanitize() modified the original")
	}
	if strings.Contains(s.Security.MasterKey, "0102030405") {
		t.Errorf("MasterKey not masked: %q", s.Security.MasterKey)
	}
	if s.Storage.Redis.Password != "****" {
		t.Errorf("Redis.Password = %q", s.Storage.Redis.Password)
	}
	if strings.Contains(s.Storage.Postgres.DSN, "pg-secret") || !strings.Contains(s.Storage.Postgres.DSN, "app") {
		t.Errorf("Postgres.DSN = %q", s.Storage.Postgres.DSN)
	}

	s.Events.Kafka.Brokers[0] = "changed"
	if cfg.Events.Kafka.Brokers[0] != "k1:9092" {
		t.Error("Sanitize() shares the brokers slice")
	}
}

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"host=db user=app password=secret dbname=qr", "host=db user=app password=**** dbname=qr"},
		{"postgres://app@db/qr", "postgres://app@db/qr"},
	}
	for _, tt := range tests {
		if got := maskDSN(tt.in); got != tt.want {
			t.Errorf("maskDSN(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadWithConfloader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	content := `
token:
  expiration_hours: 24
storage:
  backend: redis
  redis:
    addr: "127.0.0.1:6379"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv("QRTOKEN_SECURITY_MASTER_KEY", testMasterKey)
	t.Setenv("QRTOKEN_STORAGE_REDIS_KEY_PREFIX", "custom:")

	cfg := Default()
	if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := Verify(cfg); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if cfg.Token.ExpirationHours != 24 || cfg.TokenManager().Lifetime() != 24*time.Hour {
		t.Errorf("ExpirationHours = %d", cfg.Token.ExpirationHours)
	}
	if cfg.Storage.Redis.KeyPrefix != "custom:" {
		t.Errorf("KeyPrefix = %q, want custom:", cfg.Storage.Redis.KeyPrefix)
	}
	if cfg.Server.HTTP.Addr != DefaultHTTPAddr {
		t.Errorf("default HTTP addr lost: %q", cfg.Server.HTTP.Addr)
	}
}
