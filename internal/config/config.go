// Package config loads soundscope's settings from ~/.soundscope/config.toml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the persistent application configuration.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Search   SearchConfig   `toml:"search"`
	Location LocationConfig `toml:"location"`
	UI       UIConfig       `toml:"ui"`

	// DataDir holds the database, logs and event log. Not persisted.
	DataDir string `toml:"-"`
}

// CatalogConfig addresses the Freesound API.
type CatalogConfig struct {
	Scheme    string   `toml:"scheme"`
	Host      string   `toml:"host"`
	Token     string   `toml:"token"`
	Timeout   Duration `toml:"timeout"`
	RateEvery Duration `toml:"rate_every"` // minimum spacing between requests
}

// SearchConfig controls the three-way search.
type SearchConfig struct {
	PageSize     int      `toml:"page_size"` // index into catalog.PageSizes (0-3)
	Department   string   `toml:"department"`
	NearbyRadius float64  `toml:"nearby_radius"` // km
	Timeout      Duration `toml:"timeout"`
}

// LocationConfig is the user's position for nearby results. Nearby is only
// requested when Enabled is true.
type LocationConfig struct {
	Enabled   bool    `toml:"enabled"`
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	ShowCounts bool `toml:"show_counts"`
	DebugLines int  `toml:"debug_lines"`
}

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Scheme:    "https",
			Host:      "freesound.org",
			Timeout:   Duration{30 * time.Second},
			RateEvery: Duration{250 * time.Millisecond},
		},
		Search: SearchConfig{
			PageSize:     1,
			NearbyRadius: 10,
			Timeout:      Duration{45 * time.Second},
		},
		UI: UIConfig{
			ShowCounts: true,
			DebugLines: 5,
		},
	}
}

// DefaultDataDir returns $SOUNDSCOPE_DATA_DIR or ~/.soundscope.
func DefaultDataDir() (string, error) {
	if dir := os.Getenv("SOUNDSCOPE_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".soundscope"), nil
}

// Path returns the config file path inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// Load reads dataDir/config.toml, falling back to defaults when the file does
// not exist. Environment overrides are applied in both cases.
func Load(dataDir string) (*Config, error) {
	cfg := Default()
	cfg.DataDir = dataDir

	data, err := os.ReadFile(Path(dataDir))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", Path(dataDir), err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from FREESOUND_API_KEY and SOUNDSCOPE_LOCATION
// ("lat,lon").
func (c *Config) ApplyEnv() error {
	if key := strings.TrimSpace(os.Getenv("FREESOUND_API_KEY")); key != "" {
		c.Catalog.Token = key
	}
	if loc := strings.TrimSpace(os.Getenv("SOUNDSCOPE_LOCATION")); loc != "" {
		lat, lon, err := ParseLocation(loc)
		if err != nil {
			return fmt.Errorf("SOUNDSCOPE_LOCATION: %w", err)
		}
		c.Location = LocationConfig{Enabled: true, Latitude: lat, Longitude: lon}
	}
	return nil
}

// ParseLocation parses "lat,lon".
func ParseLocation(s string) (lat, lon float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want \"lat,lon\", got %q", s)
	}
	lat, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range: %v,%v", lat, lon)
	}
	return lat, lon, nil
}

// Validate rejects settings the search pipeline cannot use.
func (c *Config) Validate() error {
	if c.Catalog.Host == "" {
		return errors.New("config: catalog.host is empty")
	}
	if c.Catalog.Scheme != "http" && c.Catalog.Scheme != "https" {
		return fmt.Errorf("config: catalog.scheme must be http or https, got %q", c.Catalog.Scheme)
	}
	if c.Search.PageSize < 0 || c.Search.PageSize > 3 {
		return fmt.Errorf("config: search.page_size must be 0-3, got %d", c.Search.PageSize)
	}
	if c.Search.NearbyRadius <= 0 {
		return fmt.Errorf("config: search.nearby_radius must be positive, got %v", c.Search.NearbyRadius)
	}
	return nil
}

// Save writes the config to its data directory. The file may hold an API
// token, so it is created 0600.
func (c *Config) Save() error {
	path := Path(c.DataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}
