// Package config loads ingestcam settings: defaults, then an optional TOML
// file, then INGESTCAM_* environment variables. Flags are applied by the
// CLI on top of the returned Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Capture modes.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// Upload orderings.
const (
	OrderingWeak   = "weak"
	OrderingStrict = "strict"
)

type Config struct {
	StudioURL    string `toml:"studio_url" validate:"required,url"`
	IngestionURL string `toml:"ingestion_url" validate:"required,url"`
	CacheDir     string `toml:"cache_dir" validate:"required"`
	// HistoryDB is the sqlite path for the upload history. Empty disables it.
	HistoryDB   string  `toml:"history_db"`
	HTTPTimeout string  `toml:"http_timeout"` // e.g. "30s", empty means none
	Mode        string  `toml:"mode" validate:"oneof=auto manual"`
	Ordering    string  `toml:"ordering" validate:"oneof=weak strict"`
	MaxFPS      float64 `toml:"max_fps" validate:"gte=0"`
	// MaxSide downscales frames whose longer side exceeds it. Zero keeps
	// the source size.
	MaxSide int `toml:"max_side" validate:"gte=0"`
}

func Default() *Config {
	cacheDir := filepath.Join(os.TempDir(), "ingestcam")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "ingestcam")
	}
	return &Config{
		StudioURL:    "https://studio.edgeimpulse.com",
		IngestionURL: "https://ingestion.edgeimpulse.com",
		CacheDir:     cacheDir,
		HistoryDB:    filepath.Join(cacheDir, "history.db"),
		Mode:         ModeAuto,
		Ordering:     OrderingWeak,
	}
}

// Load builds a Config from defaults, the file at path (if non-empty) and
// the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("INGESTCAM_STUDIO_URL"); v != "" {
		cfg.StudioURL = v
	}
	if v := os.Getenv("INGESTCAM_INGESTION_URL"); v != "" {
		cfg.IngestionURL = v
	}
	if v := os.Getenv("INGESTCAM_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v, ok := os.LookupEnv("INGESTCAM_HISTORY_DB"); ok {
		cfg.HistoryDB = v
	}
	if v := os.Getenv("INGESTCAM_HTTP_TIMEOUT"); v != "" {
		cfg.HTTPTimeout = v
	}
	if v := os.Getenv("INGESTCAM_MODE"); v != "" {
		cfg.Mode = v
	}
	if v := os.Getenv("INGESTCAM_ORDERING"); v != "" {
		cfg.Ordering = v
	}
	if v := os.Getenv("INGESTCAM_MAX_FPS"); v != "" {
		fps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse INGESTCAM_MAX_FPS: %w", err)
		}
		cfg.MaxFPS = fps
	}
	if v := os.Getenv("INGESTCAM_MAX_SIDE"); v != "" {
		side, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse INGESTCAM_MAX_SIDE: %w", err)
		}
		cfg.MaxSide = side
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints and that HTTPTimeout parses.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Timeout(); err != nil {
		return fmt.Errorf("invalid config: http_timeout: %w", err)
	}
	return nil
}

// Timeout returns HTTPTimeout as a duration. Empty means no timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.HTTPTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(c.HTTPTimeout)
}

// FramePath is the single reusable file captured frames are written to.
func (c *Config) FramePath() string {
	return filepath.Join(c.CacheDir, "photo.png")
}
