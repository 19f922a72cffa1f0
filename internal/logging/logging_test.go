package logging

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewFormats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		logger, err := New(Config{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("New(%q) failed: %v", format, err)
		}
		if !logger.Core().Enabled(-1) {
			t.Errorf("format %q: debug level not enabled", format)
		}
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("INGESTCAM_LOG_LEVEL", "error")
	t.Setenv("INGESTCAM_LOG_FORMAT", "")

	cfg := FromEnv()
	if cfg.Level != "error" {
		t.Errorf("Level = %q, want error", cfg.Level)
	}
	if cfg.Format != "console" {
		t.Errorf("Format = %q, want console", cfg.Format)
	}
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcd", "****"},
		{"ei_0123456789", "ei_0…"},
	}
	for _, tt := range tests {
		if got := Redact(tt.in); got != tt.want {
			t.Errorf("Redact(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
