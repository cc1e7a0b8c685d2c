package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.PolicyPath != defaultPolicyPath {
		t.Fatalf("unexpected policy path: %s", cfg.PolicyPath)
	}
	if cfg.IntentThreshold != defaultThreshold {
		t.Fatalf("unexpected threshold: %v", cfg.IntentThreshold)
	}
	if cfg.EmbedProvider != "hashing" {
		t.Fatalf("unexpected embed provider: %s", cfg.EmbedProvider)
	}
	if cfg.EmbedTimeout != defaultEmbedTimeout {
		t.Fatalf("unexpected embed timeout: %v", cfg.EmbedTimeout)
	}
	if cfg.AuditRedis || cfg.AuditNATS {
		t.Fatalf("audit stores should be off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(envPolicyPath, "/etc/guardrail/policy.yaml")
	t.Setenv(envIntentThreshold, "0.5")
	t.Setenv(envEmbedProvider, "OLLAMA")
	t.Setenv(envEmbedTimeout, "500ms")
	t.Setenv(envAuditRedis, "true")

	cfg := Load()
	if cfg.PolicyPath != "/etc/guardrail/policy.yaml" {
		t.Fatalf("unexpected policy path: %s", cfg.PolicyPath)
	}
	if cfg.IntentThreshold != 0.5 {
		t.Fatalf("unexpected threshold: %v", cfg.IntentThreshold)
	}
	if cfg.EmbedProvider != "ollama" {
		t.Fatalf("provider should be lowercased: %s", cfg.EmbedProvider)
	}
	if cfg.EmbedTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected embed timeout: %v", cfg.EmbedTimeout)
	}
	if !cfg.AuditRedis {
		t.Fatalf("expected redis audit enabled")
	}
}

func TestInvalidThresholdFallsBack(t *testing.T) {
	cases := []string{"bad", "-0.2", "0", "1.5"}
	for _, raw := range cases {
		t.Setenv(envIntentThreshold, raw)
		if got := Load().IntentThreshold; got != defaultThreshold {
			t.Fatalf("threshold %q: expected fallback, got %v", raw, got)
		}
	}
}
