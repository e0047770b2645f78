package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr string

	// PostgresURL switches the consent ledger and audit log to Postgres when
	// set. Empty means in-memory stores (dev and tests).
	PostgresURL string

	// RedisURL enables the Redis-backed audit idempotency store.
	RedisURL string

	// KafkaBrokers enables the audit outbox relay for the reporting plane.
	KafkaBrokers []string
	AuditTopic   string

	// CredentialSigningKey signs issued identity credentials (HS256).
	CredentialSigningKey string
	CredentialIssuer     string

	// IssuerRegion is the two-letter region code embedded in new Agri-IDs.
	IssuerRegion string

	// RateLimitPerMinute caps API requests per caller. Zero disables throttling.
	RateLimitPerMinute int
}

// RedisConfig holds connection tuning for the Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("AGRIPASS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	signingKey := os.Getenv("AGRIPASS_CREDENTIAL_KEY")
	if signingKey == "" {
		// Use a default for development - should be overridden in production
		signingKey = "dev-secret-key-change-in-production"
	}

	issuer := os.Getenv("AGRIPASS_CREDENTIAL_ISSUER")
	if issuer == "" {
		issuer = "agripass"
	}

	region := os.Getenv("AGRIPASS_ISSUER_REGION")
	if region == "" {
		region = "SN"
	}

	topic := os.Getenv("AGRIPASS_AUDIT_TOPIC")
	if topic == "" {
		topic = "agripass.audit"
	}

	rateLimit := 0
	if raw := os.Getenv("AGRIPASS_RATE_LIMIT_PER_MINUTE"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			rateLimit = n
		}
	}

	var brokers []string
	if raw := os.Getenv("AGRIPASS_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:                 addr,
		PostgresURL:          os.Getenv("AGRIPASS_POSTGRES_URL"),
		RedisURL:             os.Getenv("AGRIPASS_REDIS_URL"),
		KafkaBrokers:         brokers,
		AuditTopic:           topic,
		CredentialSigningKey: signingKey,
		CredentialIssuer:     issuer,
		IssuerRegion:         region,
		RateLimitPerMinute:   rateLimit,
	}
}

// Redis returns the Redis client configuration with dial defaults applied.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
