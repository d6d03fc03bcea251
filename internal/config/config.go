// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/jacknotify/internal/notify"
)

const appName = "jacknotify"

// Default configuration values.
const (
	DefaultClientName   = appName
	DefaultPollInterval = 100 * time.Millisecond
	DefaultFormat       = "plain"
	DefaultMaxAge       = 7 * 24 * time.Hour
	DefaultDesktopTTL   = 5 * time.Second
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "100ms", "5s", "1h30m", "7d", "2w" or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '100ms', '5s', '1h30m', '7d' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// ParseDuration parses a Go duration with additional day ("7d") and week
// ("1w") suffixes. "0" and the empty string mean zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config represents the jacknotify configuration.
type Config struct {
	Client  ClientConfig  `toml:"client"`
	Watch   WatchConfig   `toml:"watch"`
	History HistoryConfig `toml:"history"`
	Metrics MetricsConfig `toml:"metrics"`
	Desktop DesktopConfig `toml:"desktop"`
}

// ClientConfig controls how the JACK client is opened.
type ClientConfig struct {
	Name       string `toml:"name"`        // Empty = executable name
	ServerName string `toml:"server_name"` // Empty = default server
}

// WatchConfig controls the consumer loop.
type WatchConfig struct {
	PollInterval Duration `toml:"poll_interval"`
	Format       string   `toml:"format"` // plain, json, yaml
	Kinds        []string `toml:"kinds"`  // Empty = all kinds
}

// HistoryConfig controls the on-disk event log.
type HistoryConfig struct {
	Enabled bool     `toml:"enabled"`
	Path    string   `toml:"path"`    // Empty = $XDG_DATA_HOME/jacknotify/events.jsonl
	MaxAge  Duration `toml:"max_age"` // Default age threshold for prune
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Listen string `toml:"listen"` // e.g. "127.0.0.1:9187"; empty = disabled
}

// DesktopConfig controls forwarding to the desktop notification service.
type DesktopConfig struct {
	Enabled bool     `toml:"enabled"`
	Kinds   []string `toml:"kinds"`
	Timeout Duration `toml:"timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{},
		Watch: WatchConfig{
			PollInterval: Duration(DefaultPollInterval),
			Format:       DefaultFormat,
		},
		History: HistoryConfig{
			Enabled: true,
			MaxAge:  Duration(DefaultMaxAge),
		},
		Desktop: DesktopConfig{
			Enabled: false,
			Kinds:   []string{notify.KindXRun.String(), notify.KindShutdown.String()},
			Timeout: Duration(DefaultDesktopTTL),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, appName, "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, appName)
}

// HistoryPath returns the configured event log path, or the default one.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(DataPath(), "events.jsonl")
}

// ClientName picks the JACK client name: an explicit override, then the
// configured name, then the executable's file name, then DefaultClientName.
func (c *Config) ClientName(override string) string {
	if override != "" {
		return override
	}
	if c.Client.Name != "" {
		return c.Client.Name
	}
	if exe, err := os.Executable(); err == nil {
		if base := filepath.Base(exe); base != "" && base != "." && base != string(filepath.Separator) {
			return base
		}
	}
	return DefaultClientName
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ValidFormats lists the accepted watch formats.
func ValidFormats() []string {
	return []string{"plain", "json", "yaml"}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Watch.PollInterval.Duration() <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.Watch.PollInterval.Duration())
	}

	validFormat := false
	for _, f := range ValidFormats() {
		if c.Watch.Format == f {
			validFormat = true
			break
		}
	}
	if !validFormat {
		return fmt.Errorf("invalid format %q, must be one of: %v", c.Watch.Format, ValidFormats())
	}

	if _, err := ParseKinds(c.Watch.Kinds); err != nil {
		return fmt.Errorf("watch.kinds: %w", err)
	}
	if _, err := ParseKinds(c.Desktop.Kinds); err != nil {
		return fmt.Errorf("desktop.kinds: %w", err)
	}

	if c.History.MaxAge.Duration() < 0 {
		return fmt.Errorf("max_age cannot be negative")
	}

	return nil
}

// ParseKinds converts kind names to notify.Kind values.
func ParseKinds(names []string) ([]notify.Kind, error) {
	kinds := make([]notify.Kind, 0, len(names))
	for _, name := range names {
		k, err := notify.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Save writes the configuration to the specified path atomically.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	return renameio.WriteFile(path, data, 0644)
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
