package config

import (
	"os"
	"path/filepath"
	"testing"
)

// writeTempConfig creates a minimal configuration file required for
// LoadConfig and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `quoteflow:
  name: "TestApp"
  version: "1.0"
storage:
  backend: local
  local:
    dir: "testdata"
source:
  amfi:
    enabled: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Quoteflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Quoteflow.Name)
	}
	if cfg.Storage.Local.Dir != "testdata" {
		t.Errorf("unexpected data dir: %s", cfg.Storage.Local.Dir)
	}
	if !cfg.Source.AMFI.Enabled {
		t.Errorf("expected amfi source enabled")
	}
	if cfg.Source.AMFI.LatestURL == "" {
		t.Errorf("expected default amfi latest url")
	}
	if cfg.Source.AMFI.RateLimit.RequestsPerSecond <= 0 {
		t.Errorf("expected default amfi rate limit")
	}
}

func TestLoadConfigMissingName(t *testing.T) {
	path := writeTempConfig(t, `quoteflow:
  version: "1.0"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error for missing name")
	}
}

func TestLoadConfigBadBackend(t *testing.T) {
	path := writeTempConfig(t, `quoteflow:
  name: "TestApp"
  version: "1.0"
storage:
  backend: tape
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error for unknown backend")
	}
}

func TestLoadConfigS3RequiresBucket(t *testing.T) {
	path := writeTempConfig(t, `quoteflow:
  name: "TestApp"
  version: "1.0"
storage:
  backend: s3
  s3:
    region: "eu-west-1"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error for missing bucket")
	}
}

func TestLoadConfigBinanceRequiresSymbols(t *testing.T) {
	path := writeTempConfig(t, `quoteflow:
  name: "TestApp"
  version: "1.0"
source:
  binance:
    enabled: true
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error for enabled binance source without symbols")
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}
