// Package config resolves the service settings from defaults, an optional
// TOML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ConfigPathEnv names the environment variable holding the config file path.
const ConfigPathEnv = "CARD_LOOKUP_CONFIG"

// Config is the resolved service configuration.
type Config struct {
	Port               string
	CORSAllowedOrigins []string

	// DBPath is the lookup log database. Empty disables the lookup log.
	DBPath string

	ScratchDir      string
	ImageRetention  time.Duration
	JanitorInterval time.Duration

	CardAPIBaseURL   string
	CardAPITimeout   time.Duration
	CardAPIRateLimit float64

	IndexRebuildInterval time.Duration
	MatchCacheSize       int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                 "8080",
		CORSAllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		DBPath:               "./card_lookup.db",
		ScratchDir:           "./temp",
		ImageRetention:       24 * time.Hour,
		JanitorInterval:      time.Hour,
		CardAPIBaseURL:       "https://db.ygoprodeck.com/api/v7",
		CardAPITimeout:       60 * time.Second,
		CardAPIRateLimit:     15,
		IndexRebuildInterval: time.Hour,
		MatchCacheSize:       256,
	}
}

// fileConfig mirrors the TOML layout. Pointers tell set keys from absent ones.
type fileConfig struct {
	Server struct {
		Port               *string  `toml:"port"`
		CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	} `toml:"server"`
	Database struct {
		Path *string `toml:"path"`
	} `toml:"database"`
	Images struct {
		ScratchDir      *string `toml:"scratch_dir"`
		Retention       *string `toml:"retention"`
		JanitorInterval *string `toml:"janitor_interval"`
	} `toml:"images"`
	CardAPI struct {
		BaseURL   *string  `toml:"base_url"`
		Timeout   *string  `toml:"timeout"`
		RateLimit *float64 `toml:"rate_limit"`
	} `toml:"card_api"`
	Match struct {
		RebuildInterval *string `toml:"rebuild_interval"`
		CacheSize       *int    `toml:"cache_size"`
	} `toml:"match"`
}

// Load builds the configuration. path overrides CARD_LOOKUP_CONFIG; when both
// are empty no file is read. A named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(ConfigPathEnv)
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var fc fileConfig
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&c.Port, fc.Server.Port)
	if fc.Server.CORSAllowedOrigins != nil {
		c.CORSAllowedOrigins = fc.Server.CORSAllowedOrigins
	}
	setString(&c.DBPath, fc.Database.Path)
	setString(&c.ScratchDir, fc.Images.ScratchDir)
	setString(&c.CardAPIBaseURL, fc.CardAPI.BaseURL)
	if fc.CardAPI.RateLimit != nil {
		c.CardAPIRateLimit = *fc.CardAPI.RateLimit
	}
	if fc.Match.CacheSize != nil {
		c.MatchCacheSize = *fc.Match.CacheSize
	}

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"images.retention", fc.Images.Retention, &c.ImageRetention},
		{"images.janitor_interval", fc.Images.JanitorInterval, &c.JanitorInterval},
		{"card_api.timeout", fc.CardAPI.Timeout, &c.CardAPITimeout},
		{"match.rebuild_interval", fc.Match.RebuildInterval, &c.IndexRebuildInterval},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("parse config: %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}
	// An explicitly empty DB_PATH disables the lookup log.
	if dbPath, ok := os.LookupEnv("DB_PATH"); ok {
		c.DBPath = dbPath
	}
	if dir := os.Getenv("SCRATCH_DIR"); dir != "" {
		c.ScratchDir = dir
	}
	if baseURL := os.Getenv("CARD_API_BASE_URL"); baseURL != "" {
		c.CardAPIBaseURL = baseURL
	}

	if v := os.Getenv("CARD_API_RATE_LIMIT"); v != "" {
		limit, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CARD_API_RATE_LIMIT: %w", err)
		}
		c.CardAPIRateLimit = limit
	}
	if v := os.Getenv("MATCH_CACHE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MATCH_CACHE_SIZE: %w", err)
		}
		c.MatchCacheSize = size
	}

	durations := map[string]*time.Duration{
		"CARD_API_TIMEOUT":       &c.CardAPITimeout,
		"IMAGE_RETENTION":        &c.ImageRetention,
		"INDEX_REBUILD_INTERVAL": &c.IndexRebuildInterval,
		"JANITOR_INTERVAL":       &c.JanitorInterval,
	}
	for key, dst := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}
	return nil
}

// Validate reports settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port must be set"))
	}
	if c.ScratchDir == "" {
		errs = append(errs, errors.New("scratch directory must be set"))
	}
	if c.CardAPIBaseURL == "" {
		errs = append(errs, errors.New("card API base URL must be set"))
	}
	if c.CardAPIRateLimit <= 0 {
		errs = append(errs, fmt.Errorf("card API rate limit must be positive, got %v", c.CardAPIRateLimit))
	}
	if c.MatchCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("match cache size must be positive, got %d", c.MatchCacheSize))
	}
	for name, d := range map[string]time.Duration{
		"card API timeout":       c.CardAPITimeout,
		"image retention":        c.ImageRetention,
		"index rebuild interval": c.IndexRebuildInterval,
		"janitor interval":       c.JanitorInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
