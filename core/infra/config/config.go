package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPolicyPath    = "config/policy.yaml"
	defaultRedisURL      = "redis://localhost:6379"
	defaultNATSURL       = "nats://localhost:4222"
	defaultAuditLogPath  = "logs/audit.jsonl"
	defaultThreshold     = 0.38
	defaultEmbedProvider = "hashing"
	defaultEmbedTimeout  = 2 * time.Second
	defaultUpstream      = "echo"

	envPolicyPath      = "POLICY_PATH"
	envRedisURL        = "REDIS_URL"
	envNATSURL         = "NATS_URL"
	envAuditLogPath    = "AUDIT_LOG_PATH"
	envIntentThreshold = "INTENT_THRESHOLD"
	envEmbedProvider   = "EMBED_PROVIDER"
	envEmbedTimeout    = "EMBED_TIMEOUT"
	envUpstreamModel   = "UPSTREAM_MODEL"
	envAuditRedis      = "AUDIT_REDIS"
	envAuditNATS       = "AUDIT_NATS"
)

// Config holds runtime configuration for the guardrail services.
type Config struct {
	PolicyPath      string
	RedisURL        string
	NatsURL         string
	AuditLogPath    string
	IntentThreshold float64
	EmbedProvider   string // "hashing" or "ollama"
	EmbedTimeout    time.Duration
	UpstreamModel   string // "echo" or "ollama"
	AuditRedis      bool
	AuditNATS       bool
}

// Load returns configuration using environment variables with sane defaults.
func Load() *Config {
	return &Config{
		PolicyPath:      envOrDefault(envPolicyPath, defaultPolicyPath),
		RedisURL:        envOrDefault(envRedisURL, defaultRedisURL),
		NatsURL:         envOrDefault(envNATSURL, defaultNATSURL),
		AuditLogPath:    envOrDefault(envAuditLogPath, defaultAuditLogPath),
		IntentThreshold: floatFromEnv(envIntentThreshold, defaultThreshold),
		EmbedProvider:   strings.ToLower(envOrDefault(envEmbedProvider, defaultEmbedProvider)),
		EmbedTimeout:    durationFromEnv(envEmbedTimeout, defaultEmbedTimeout),
		UpstreamModel:   strings.ToLower(envOrDefault(envUpstreamModel, defaultUpstream)),
		AuditRedis:      boolFromEnv(envAuditRedis),
		AuditNATS:       boolFromEnv(envAuditNATS),
	}
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func floatFromEnv(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || v > 1 {
		return fallback
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func boolFromEnv(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
