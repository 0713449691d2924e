// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jmylchreest/clashui/internal/adapter/output"
)

// Default configuration values.
const (
	DefaultControllerURL = "http://127.0.0.1:9090"
	DefaultDelayURL      = "https://www.google.com"
	DefaultDelayTimeout  = Duration(60 * time.Second)
	DefaultPrompt        = "> "
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "5s", "1m", "1h30m", or a string of integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '5s', '1m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Milliseconds returns the duration in milliseconds.
func (d Duration) Milliseconds() int {
	return int(time.Duration(d).Milliseconds())
}

// Config represents the clashui configuration.
type Config struct {
	Controller ControllerConfig `toml:"controller"`
	Delay      DelayConfig      `toml:"delay"`
	Output     OutputConfig     `toml:"output"`
	REPL       REPLConfig       `toml:"repl"`
}

// ControllerConfig locates the Clash external controller.
type ControllerConfig struct {
	URL    string `toml:"url"`
	Secret string `toml:"secret"` // Sent as a bearer token when set
}

// DelayConfig holds delay test settings.
type DelayConfig struct {
	URL     string   `toml:"url"`
	Timeout Duration `toml:"timeout"`
}

// OutputConfig holds rendering settings.
type OutputConfig struct {
	Format string `toml:"format"` // plain, json, yaml
	Color  bool   `toml:"color"`
}

// REPLConfig holds interactive prompt settings.
type REPLConfig struct {
	Prompt      string `toml:"prompt"`
	HistoryFile string `toml:"history_file"` // Empty = HistoryPath()
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Controller: ControllerConfig{
			URL:    DefaultControllerURL,
			Secret: "",
		},
		Delay: DelayConfig{
			URL:     DefaultDelayURL,
			Timeout: DefaultDelayTimeout,
		},
		Output: OutputConfig{
			Format: string(output.FormatPlain),
			Color:  true,
		},
		REPL: REPLConfig{
			Prompt:      DefaultPrompt,
			HistoryFile: "",
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
	return filepath.Join(configHome, "clashui", "config.toml")
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
	return filepath.Join(dataHome, "clashui")
}

// HistoryPath returns the default path of the prompt history file.
func HistoryPath() string {
	return filepath.Join(DataPath(), "history")
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

	// Defaults first, then overlay with file contents
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validURL("controller.url", c.Controller.URL); err != nil {
		return err
	}
	if err := validURL("delay.url", c.Delay.URL); err != nil {
		return err
	}
	if c.Delay.Timeout <= 0 {
		return fmt.Errorf("delay.timeout must be positive, got %s", time.Duration(c.Delay.Timeout))
	}
	if _, err := output.ParseFormatType(c.Output.Format); err != nil {
		return fmt.Errorf("output.format: %w", err)
	}
	return nil
}

func validURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}

// FormatType returns the configured output format.
func (c *Config) FormatType() output.FormatType {
	format, err := output.ParseFormatType(c.Output.Format)
	if err != nil {
		return output.FormatPlain
	}
	return format
}

// HistoryFile returns the prompt history path, falling back to HistoryPath().
func (c *Config) HistoryFile() string {
	if c.REPL.HistoryFile != "" {
		return c.REPL.HistoryFile
	}
	return HistoryPath()
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}
