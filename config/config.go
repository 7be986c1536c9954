package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	DefaultConfigFile     = "showtimes_config.json"
	DefaultCacheFile      = "showtimes_cache.json"
	DefaultHL             = "en"
	DefaultGL             = "us"
	DefaultRefreshSec     = 10
	DefaultTimeoutSec     = 15
	DefaultRequestRetries = 3

	// APIKeyEnv supplies or overrides api_key, typically from a .env file.
	APIKeyEnv = "SHOWTIMES_API_KEY"
)

// ConfigError reports a configuration that cannot be used.
type ConfigError struct {
	Path string
	Msg  string
	Err  error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "config error"
	}
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Path == "" {
		return "config: " + msg
	}
	return fmt.Sprintf("config %s: %s", e.Path, msg)
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Theater is one configured theater. The query string may be given under
// any of name, theater or query.
type Theater struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Theater  string `json:"theater,omitempty" yaml:"theater,omitempty"`
	Query    string `json:"query,omitempty" yaml:"query,omitempty"`
	Location string `json:"location" yaml:"location"`
}

// Label returns the theater query, which doubles as the display name.
func (t Theater) Label() string {
	for _, v := range []string{t.Name, t.Theater, t.Query} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Valid reports whether both the query and the location are present.
func (t Theater) Valid() bool {
	return t.Label() != "" && strings.TrimSpace(t.Location) != ""
}

type Config struct {
	APIKey         string    `json:"api_key" yaml:"api_key"`
	Theaters       []Theater `json:"theaters" yaml:"theaters"`
	HL             string    `json:"hl,omitempty" yaml:"hl,omitempty"`
	GL             string    `json:"gl,omitempty" yaml:"gl,omitempty"`
	Refresh        int       `json:"refresh,omitempty" yaml:"refresh,omitempty"`
	CacheFile      string    `json:"cache_file,omitempty" yaml:"cache_file,omitempty"`
	Timezone       string    `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	TimezoneOffset *float64  `json:"timezone_offset,omitempty" yaml:"timezone_offset,omitempty"`
	RequestTimeout float64   `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
	RequestRetries int       `json:"request_retries,omitempty" yaml:"request_retries,omitempty"`
}

// Load reads and validates the configuration at path. YAML is used for
// .yaml/.yml files, JSON otherwise.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Msg: "reading config file", Err: err}
	}

	c := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(buf, c)
	default:
		err = json.Unmarshal(buf, c)
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Msg: "parsing config", Err: err}
	}

	if key := strings.TrimSpace(os.Getenv(APIKeyEnv)); key != "" {
		c.APIKey = key
	}
	if err := c.Validate(); err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}
	c.applyDefaults()
	return c, nil
}

// Validate checks the keys without which nothing can be fetched.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return &ConfigError{Msg: "missing 'api_key'"}
	}
	if c.Theaters == nil {
		return &ConfigError{Msg: "missing 'theaters' list"}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.HL) == "" {
		c.HL = DefaultHL
	}
	if strings.TrimSpace(c.GL) == "" {
		c.GL = DefaultGL
	}
}

// Save writes the configuration as indented JSON, or YAML for .yaml/.yml paths.
func (c *Config) Save(path string) error {
	var (
		payload []byte
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		payload, err = yaml.Marshal(c)
	default:
		payload, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, payload, 0o600)
}

// CycleDelay resolves how long each movie stays on screen: the flag value,
// then the configured refresh, then the default.
func (c *Config) CycleDelay(flagSeconds int) time.Duration {
	switch {
	case flagSeconds > 0:
		return time.Duration(flagSeconds) * time.Second
	case c.Refresh > 0:
		return time.Duration(c.Refresh) * time.Second
	default:
		return DefaultRefreshSec * time.Second
	}
}

// CachePath resolves the cache file: the flag value, then the config, then the default.
func (c *Config) CachePath(flagPath string) string {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(c.CacheFile); p != "" {
		return p
	}
	return DefaultCacheFile
}

// Timeout resolves the HTTP request timeout.
func (c *Config) Timeout(flagSeconds float64) time.Duration {
	switch {
	case flagSeconds > 0:
		return time.Duration(flagSeconds * float64(time.Second))
	case c.RequestTimeout > 0:
		return time.Duration(c.RequestTimeout * float64(time.Second))
	default:
		return DefaultTimeoutSec * time.Second
	}
}

func (c *Config) Retries() int {
	if c.RequestRetries > 0 {
		return c.RequestRetries
	}
	return DefaultRequestRetries
}

// Location resolves the display timezone: the IANA name when it loads, the
// fixed hour offset otherwise, UTC as the last resort.
func (c *Config) Location() *time.Location {
	if name := strings.TrimSpace(c.Timezone); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if c.TimezoneOffset != nil {
		if loc, ok := fixedZone(*c.TimezoneOffset); ok {
			return loc
		}
	}
	return time.UTC
}

func fixedZone(hours float64) (*time.Location, bool) {
	if math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= -24 || hours >= 24 {
		return nil, false
	}
	seconds := int(math.Round(hours * 3600))
	if seconds == 0 {
		return time.UTC, true
	}
	sign := '+'
	abs := seconds
	if abs < 0 {
		sign = '-'
		abs = -abs
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/3600, (abs%3600)/60)
	return time.FixedZone(name, seconds), true
}
