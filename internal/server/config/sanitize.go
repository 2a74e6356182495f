package config

import (
	"net/url"
	"strings"
)

// Sanitize returns a copy of cfg with secrets masked for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Token.AcceptVersions = append([]int(nil), cfg.Token.AcceptVersions...)
	sanitized.Events.Kafka.Brokers = append([]string(nil), cfg.Events.Kafka.Brokers...)

	if sanitized.Security.MasterKey != "" {
		sanitized.Security.MasterKey = maskSecret(sanitized.Security.MasterKey)
	}
	if sanitized.Storage.Redis.Password != "" {
		sanitized.Storage.Redis.Password = "****"
	}
	sanitized.Storage.Postgres.DSN = maskDSN(sanitized.Storage.Postgres.DSN)
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// maskDSN hides the password in URL and key=value DSNs.
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "****")
		}
		return u.String()
	}
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}
