package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Mode != ModeAuto || cfg.Ordering != OrderingWeak {
		t.Errorf("unexpected defaults: mode=%s ordering=%s", cfg.Mode, cfg.Ordering)
	}
	if filepath.Base(cfg.FramePath()) != "photo.png" {
		t.Errorf("FramePath = %s", cfg.FramePath())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ingestcam.toml")
	content := `
studio_url = "http://studio.local"
ingestion_url = "http://ingest.local"
mode = "manual"
http_timeout = "15s"
max_fps = 2.5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("INGESTCAM_INGESTION_URL", "http://ingest.env")
	t.Setenv("INGESTCAM_ORDERING", "strict")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.StudioURL != "http://studio.local" {
		t.Errorf("StudioURL = %s", cfg.StudioURL)
	}
	if cfg.IngestionURL != "http://ingest.env" {
		t.Errorf("env should override file, IngestionURL = %s", cfg.IngestionURL)
	}
	if cfg.Mode != ModeManual || cfg.Ordering != OrderingStrict {
		t.Errorf("mode=%s ordering=%s", cfg.Mode, cfg.Ordering)
	}
	if cfg.MaxFPS != 2.5 {
		t.Errorf("MaxFPS = %v", cfg.MaxFPS)
	}
	d, err := cfg.Timeout()
	if err != nil || d != 15*time.Second {
		t.Errorf("Timeout = %v, %v", d, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate failed: %v", err)
	}
}

func TestLoadEnvMaxSide(t *testing.T) {
	t.Setenv("INGESTCAM_MAX_SIDE", "640")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.MaxSide != 640 {
		t.Errorf("MaxSide = %d", cfg.MaxSide)
	}

	t.Setenv("INGESTCAM_MAX_SIDE", "big")
	if _, err := Load(""); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "burst" }},
		{"bad ordering", func(c *Config) { c.Ordering = "random" }},
		{"bad url", func(c *Config) { c.StudioURL = "not a url" }},
		{"negative fps", func(c *Config) { c.MaxFPS = -1 }},
		{"negative max side", func(c *Config) { c.MaxSide = -1 }},
		{"bad timeout", func(c *Config) { c.HTTPTimeout = "soon" }},
		{"no cache dir", func(c *Config) { c.CacheDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
