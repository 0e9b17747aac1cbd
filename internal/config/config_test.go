package config

import (
	"strings"
	"testing"
)

func baseConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := baseConfig()
	cfg.ApplyDefaults()

	if cfg.Rerank.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Rerank.MaxAttempts)
	}
	if cfg.Rerank.BudgetMillis != 900 {
		t.Errorf("expected default budget 900, got %d", cfg.Rerank.BudgetMillis)
	}
	if cfg.Rerank.OversampleMult != 2 {
		t.Errorf("expected default oversample 2, got %d", cfg.Rerank.OversampleMult)
	}
	if cfg.Matching.CandidateLimit != 50 {
		t.Errorf("expected default candidate limit 50, got %d", cfg.Matching.CandidateLimit)
	}
	if cfg.Matching.MaxTopK != 20 {
		t.Errorf("expected default max top_k 20, got %d", cfg.Matching.MaxTopK)
	}
	if cfg.Matching.ResultTTLSec != 300 {
		t.Errorf("expected default ttl 300, got %d", cfg.Matching.ResultTTLSec)
	}
	if cfg.Storage.KeyPrefix != "matchd:" {
		t.Errorf("expected default key prefix, got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := baseConfig()
	cfg.Matching.CandidateLimit = 100
	cfg.ApplyDefaults()

	if cfg.Matching.CandidateLimit != 100 {
		t.Errorf("explicit value overwritten: %d", cfg.Matching.CandidateLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"no addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{
			"rerank enabled without model",
			func(c *Config) { c.Rerank.Enabled = true; c.Rerank.Model = "" },
			"rerank.model",
		},
		{
			"attempt exceeds budget",
			func(c *Config) { c.Rerank.AttemptMillis = 2000 },
			"total_budget",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MATCHD_TEST_VAR", "redis-prod:6379")

	in := []byte("addr: ${MATCHD_TEST_VAR}\nprefix: ${MATCHD_TEST_UNSET:-matchd:}\nempty: ${MATCHD_TEST_UNSET}")
	out := string(expandEnvVars(in))

	if !strings.Contains(out, "addr: redis-prod:6379") {
		t.Errorf("set variable not expanded: %q", out)
	}
	if !strings.Contains(out, "prefix: matchd:") {
		t.Errorf("default not applied: %q", out)
	}
	if !strings.Contains(out, "empty: \n") && !strings.HasSuffix(out, "empty: ") {
		t.Errorf("unset variable without default must expand to empty: %q", out)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if env := GetEnv(); env != "local" {
		t.Errorf("expected local default, got %q", env)
	}
	t.Setenv("ENV", "prod")
	if env := GetEnv(); env != "prod" {
		t.Errorf("expected prod, got %q", env)
	}
}
