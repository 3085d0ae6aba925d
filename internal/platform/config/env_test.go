package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type envTestConfig struct {
	Port int `env:"FLEETDECK_TEST_PORT" envDefault:"123"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("FLEETDECK_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("load missing dotenv: %v", err)
	}
	if err := LoadDotEnv("  "); err != nil {
		t.Fatalf("load blank dotenv path: %v", err)
	}
}

func TestLoadDotEnvKeepsExistingEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "FLEETDECK_DOTENV_NEW=from-file\nFLEETDECK_DOTENV_SET=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("FLEETDECK_DOTENV_SET", "from-env")
	t.Setenv("FLEETDECK_DOTENV_NEW", "")
	os.Unsetenv("FLEETDECK_DOTENV_NEW")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("FLEETDECK_DOTENV_NEW"); got != "from-file" {
		t.Fatalf("FLEETDECK_DOTENV_NEW = %q, want %q", got, "from-file")
	}
	if got := os.Getenv("FLEETDECK_DOTENV_SET"); got != "from-env" {
		t.Fatalf("FLEETDECK_DOTENV_SET = %q, want %q", got, "from-env")
	}
}
