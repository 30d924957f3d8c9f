package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Retries int           `env:"DRIVECHAIN_TEST_RETRIES" envDefault:"3"`
	Timeout time.Duration `env:"DRIVECHAIN_TEST_TIMEOUT" envDefault:"4s"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Retries != 3 {
		t.Fatalf("retries = %d, want 3", cfg.Retries)
	}
	if cfg.Timeout != 4*time.Second {
		t.Fatalf("timeout = %v, want 4s", cfg.Timeout)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("DRIVECHAIN_TEST_RETRIES", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvMapIgnoresProcessEnvironment(t *testing.T) {
	t.Setenv("DRIVECHAIN_TEST_RETRIES", "9")
	var cfg envTestConfig

	if err := ParseEnvMap(&cfg, map[string]string{"DRIVECHAIN_TEST_TIMEOUT": "250ms"}); err != nil {
		t.Fatalf("parse env map: %v", err)
	}
	if cfg.Retries != 3 {
		t.Fatalf("retries = %d, want default 3", cfg.Retries)
	}
	if cfg.Timeout != 250*time.Millisecond {
		t.Fatalf("timeout = %v, want 250ms", cfg.Timeout)
	}
}
