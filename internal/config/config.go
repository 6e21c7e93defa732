// Package config loads and saves the deckstats TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DirName is the per-user directory holding config, data and the database.
const DirName = ".deckstats"

// Config represents the application configuration.
type Config struct {
	// Dataset storage
	Data DataConfig `toml:"data"`

	// Card metadata API
	Scryfall ScryfallConfig `toml:"scryfall"`

	// Public game data exports
	SeventeenLands SeventeenLandsConfig `toml:"seventeenlands"`

	// In-memory dataset cache
	Cache CacheConfig `toml:"cache"`

	// Summary output
	Output OutputConfig `toml:"output"`

	// Memory watchdog
	Watchdog WatchdogConfig `toml:"watchdog"`

	// Application configuration
	App AppConfig `toml:"app"`
}

// DataConfig contains dataset storage settings.
type DataConfig struct {
	Root         string `toml:"root"`           // Directory holding <set>/cards.csv, games.csv, ...
	Database     string `toml:"database"`       // SQLite file for the card archive and run history
	DeckIDColumn string `toml:"deck_id_column"` // Column identifying a deck in game data
	TableFormat  string `toml:"table_format"`   // columnar, columnar-snappy or parquet
}

// ScryfallConfig contains card metadata API settings.
type ScryfallConfig struct {
	BaseURL   string `toml:"base_url"`
	UserAgent string `toml:"user_agent"`
	RateLimit string `toml:"rate_limit"` // Minimum delay between requests (e.g., "100ms")
	Timeout   string `toml:"timeout"`    // Per-request timeout (e.g., "30s")
}

// SeventeenLandsConfig contains game data download settings.
type SeventeenLandsConfig struct {
	Source   string `toml:"source"`   // "http" or "s3"
	BaseURL  string `toml:"base_url"` // HTTP source root
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
	Region   string `toml:"region"`
	Endpoint string `toml:"endpoint"` // Custom S3 endpoint (MinIO, LocalStack)
	Format   string `toml:"format"`   // Event format, e.g. "PremierDraft"
	Timeout  string `toml:"timeout"`  // HTTP download timeout
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	MaxDatasets int `toml:"max_datasets"` // Datasets kept in memory per table kind
}

// OutputConfig contains summary output settings.
type OutputConfig struct {
	Dir            string `toml:"dir"`
	Format         string `toml:"format"` // csv, json, columnar, columnar-snappy, parquet
	FloatPrecision int    `toml:"float_precision"`
	MaxDecks       int    `toml:"max_decks"` // 0 = all decks
	Workers        int    `toml:"workers"`
	Report         bool   `toml:"report"`  // Also write an HTML chart report
	Persist        bool   `toml:"persist"` // Record runs in the database
}

// WatchdogConfig contains memory watchdog settings.
type WatchdogConfig struct {
	Interval         string  `toml:"interval"`
	LimitMB          uint64  `toml:"limit_mb"`           // Used system memory ceiling in MiB (0 = off)
	MaxMemoryPercent float64 `toml:"max_memory_percent"` // Used memory ceiling in percent (0 = off)
	ProcessPattern   string  `toml:"process_pattern"`
	Policy           string  `toml:"policy"` // "largest" or "all"
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"` // Enable debug logging
}

// DefaultConfig returns the default configuration rooted at ~/.deckstats.
// If the home directory cannot be resolved, paths are relative.
func DefaultConfig() *Config {
	base := DirName
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, DirName)
	}

	return &Config{
		Data: DataConfig{
			Root:         filepath.Join(base, "data"),
			Database:     filepath.Join(base, "deckstats.db"),
			DeckIDColumn: "draft_id",
			TableFormat:  "columnar-snappy",
		},
		Scryfall: ScryfallConfig{
			BaseURL:   "https://api.scryfall.com",
			UserAgent: "deckstats/1.0",
			RateLimit: "100ms",
			Timeout:   "30s",
		},
		SeventeenLands: SeventeenLandsConfig{
			Source:  "http",
			BaseURL: "https://17lands-public.s3.amazonaws.com/analysis_data/game_data",
			Bucket:  "17lands-public",
			Prefix:  "analysis_data/game_data",
			Region:  "us-east-1",
			Format:  "PremierDraft",
			Timeout: "5m",
		},
		Cache: CacheConfig{
			MaxDatasets: 4,
		},
		Output: OutputConfig{
			Dir:            filepath.Join(base, "output"),
			Format:         "csv",
			FloatPrecision: 6,
			MaxDecks:       0,
			Workers:        1,
			Report:         false,
			Persist:        true,
		},
		Watchdog: WatchdogConfig{
			Interval:         "1s",
			LimitMB:          12000,
			MaxMemoryPercent: 0,
			ProcessPattern:   "deckstats",
			Policy:           "largest",
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// DefaultPath returns ~/.deckstats/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, "config.toml"), nil
}

// Load loads the configuration from path, or from DefaultPath when path is
// empty. A missing file yields the default config. Values absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	config.expandPaths()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Save writes the configuration to path, or to DefaultPath when path is
// empty.
func (c *Config) Save(path string) error {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// expandPaths resolves a leading "~/" in path settings.
func (c *Config) expandPaths() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	for _, p := range []*string{&c.Data.Root, &c.Data.Database, &c.Output.Dir} {
		if strings.HasPrefix(*p, "~/") {
			*p = filepath.Join(home, (*p)[2:])
		}
	}
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Data.Root == "" {
		return fmt.Errorf("data root cannot be empty")
	}
	if c.Data.DeckIDColumn == "" {
		return fmt.Errorf("deck id column cannot be empty")
	}
	switch c.Data.TableFormat {
	case "columnar", "columnar-snappy", "parquet":
	default:
		return fmt.Errorf("invalid table format %q: must be columnar, columnar-snappy or parquet", c.Data.TableFormat)
	}

	durations := []struct {
		name, value string
	}{
		{"scryfall rate limit", c.Scryfall.RateLimit},
		{"scryfall timeout", c.Scryfall.Timeout},
		{"17lands timeout", c.SeventeenLands.Timeout},
		{"watchdog interval", c.Watchdog.Interval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
		if v < 0 {
			return fmt.Errorf("%s cannot be negative: %s", d.name, d.value)
		}
	}

	switch c.SeventeenLands.Source {
	case "http", "s3":
	default:
		return fmt.Errorf("invalid 17lands source %q: must be http or s3", c.SeventeenLands.Source)
	}

	if c.Cache.MaxDatasets <= 0 {
		return fmt.Errorf("cache max datasets must be positive: %d", c.Cache.MaxDatasets)
	}

	switch c.Output.Format {
	case "csv", "json", "columnar", "columnar-snappy", "parquet":
	default:
		return fmt.Errorf("invalid output format %q", c.Output.Format)
	}
	if c.Output.MaxDecks < 0 {
		return fmt.Errorf("max decks cannot be negative: %d", c.Output.MaxDecks)
	}
	if c.Output.Workers < 1 {
		return fmt.Errorf("workers must be at least 1: %d", c.Output.Workers)
	}

	if c.Watchdog.MaxMemoryPercent < 0 || c.Watchdog.MaxMemoryPercent > 100 {
		return fmt.Errorf("watchdog memory percent must be in [0, 100]: %v", c.Watchdog.MaxMemoryPercent)
	}
	if c.Watchdog.LimitMB == 0 && c.Watchdog.MaxMemoryPercent == 0 {
		return fmt.Errorf("watchdog needs limit_mb or max_memory_percent")
	}
	switch c.Watchdog.Policy {
	case "largest", "all":
	default:
		return fmt.Errorf("invalid watchdog policy %q: must be largest or all", c.Watchdog.Policy)
	}

	return nil
}

// GetScryfallRateLimit returns the delay between Scryfall requests.
func (c *Config) GetScryfallRateLimit() (time.Duration, error) {
	return time.ParseDuration(c.Scryfall.RateLimit)
}

// GetScryfallTimeout returns the Scryfall request timeout.
func (c *Config) GetScryfallTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Scryfall.Timeout)
}

// GetDownloadTimeout returns the 17Lands HTTP download timeout.
func (c *Config) GetDownloadTimeout() (time.Duration, error) {
	return time.ParseDuration(c.SeventeenLands.Timeout)
}

// GetWatchdogInterval returns the watchdog polling interval.
func (c *Config) GetWatchdogInterval() (time.Duration, error) {
	return time.ParseDuration(c.Watchdog.Interval)
}
