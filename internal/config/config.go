// Package config loads the process configuration: which execution
// contexts are available, how the browser is launched, where downloads go,
// logging and the local HTTP server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AnyUserName/saveimg/internal/settings"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root of saveimg.yaml.
type Config struct {
	Settings SettingsConfig `yaml:"settings"`
	Platform PlatformConfig `yaml:"platform"`
	Browser  BrowserConfig  `yaml:"browser"`
	Download DownloadConfig `yaml:"download"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// SettingsConfig locates the user settings.
type SettingsConfig struct {
	File   string `yaml:"file"`   // YAML file with user settings, optional
	Preset string `yaml:"preset"` // base the file is applied on
	Watch  bool   `yaml:"watch"`  // reload the file on change
}

// PlatformConfig describes the capabilities of the host.
type PlatformConfig struct {
	Offscreen      bool          `yaml:"offscreen"`       // primary auxiliary context available
	PrimaryTimeout time.Duration `yaml:"primary_timeout"` // bound on the primary strategy
	Warmup         time.Duration `yaml:"warmup"`          // delay before the document listens
}

// BrowserConfig controls the headless browser behind the page context.
type BrowserConfig struct {
	Enabled      bool          `yaml:"enabled"`
	ChromePath   string        `yaml:"chrome_path"`
	AutoDownload bool          `yaml:"auto_download"`
	NoSandbox    bool          `yaml:"no_sandbox"`
	Headless     bool          `yaml:"headless"`
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
}

// DownloadConfig controls where saved images go.
type DownloadConfig struct {
	Dir string `yaml:"dir"`
}

// FetchConfig bounds coordinator and document fetches.
type FetchConfig struct {
	Timeout  time.Duration     `yaml:"timeout"`
	MaxBytes int64             `yaml:"max_bytes"`
	Headers  map[string]string `yaml:"credential_headers"` // sent only with credentials
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// ServerConfig configures `saveimg serve`.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{Preset: "default"},
		Platform: PlatformConfig{
			Offscreen:      true,
			PrimaryTimeout: 3000 * time.Millisecond,
		},
		Browser: BrowserConfig{
			Enabled:  true,
			Headless: true,
			Timeout:  30 * time.Second,
		},
		Download: DownloadConfig{Dir: "."},
		Fetch: FetchConfig{
			Timeout:  30 * time.Second,
			MaxBytes: 50 << 20,
		},
		Log: LogConfig{Level: "info", Format: "console"},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8787",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads .env (if present), the YAML file at path (if any) and the
// SAVEIMG_* environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first invalid value.
func (c *Config) Validate() error {
	if c.Platform.PrimaryTimeout <= 0 {
		return fmt.Errorf("platform.primary_timeout must be positive")
	}
	if c.Platform.Warmup < 0 {
		return fmt.Errorf("platform.warmup must not be negative")
	}
	if !c.Platform.Offscreen && !c.Browser.Enabled {
		return fmt.Errorf("at least one of platform.offscreen and browser.enabled is required")
	}
	if c.Browser.Timeout < 0 {
		return fmt.Errorf("browser.timeout must not be negative")
	}
	if c.Download.Dir == "" {
		return fmt.Errorf("download.dir is required")
	}
	if c.Fetch.MaxBytes < 0 {
		return fmt.Errorf("fetch.max_bytes must not be negative")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Settings.Preset != "" && !knownPreset(c.Settings.Preset) {
		return fmt.Errorf("unknown settings preset: %s (have %s)",
			c.Settings.Preset, strings.Join(settings.PresetNames(), ", "))
	}
	return nil
}

// IsConfigFile reports whether the YAML at path has any of the config's
// top-level sections, telling a config file apart from a settings file.
func IsConfigFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return false
	}
	for _, key := range []string{"settings", "platform", "browser", "download", "fetch", "log", "server"} {
		if _, ok := top[key]; ok {
			return true
		}
	}
	return false
}

func knownPreset(name string) bool {
	for _, p := range settings.PresetNames() {
		if p == name {
			return true
		}
	}
	return false
}

func applyEnvOverrides(cfg *Config) error {
	str := map[string]*string{
		"SAVEIMG_SETTINGS_FILE":   &cfg.Settings.File,
		"SAVEIMG_SETTINGS_PRESET": &cfg.Settings.Preset,
		"SAVEIMG_CHROME_PATH":     &cfg.Browser.ChromePath,
		"SAVEIMG_USER_AGENT":      &cfg.Browser.UserAgent,
		"SAVEIMG_DOWNLOAD_DIR":    &cfg.Download.Dir,
		"SAVEIMG_LOG_LEVEL":       &cfg.Log.Level,
		"SAVEIMG_LOG_FORMAT":      &cfg.Log.Format,
		"SAVEIMG_SERVER_ADDR":     &cfg.Server.Addr,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	flags := map[string]*bool{
		"SAVEIMG_OFFSCREEN":      &cfg.Platform.Offscreen,
		"SAVEIMG_BROWSER":        &cfg.Browser.Enabled,
		"SAVEIMG_NO_SANDBOX":     &cfg.Browser.NoSandbox,
		"SAVEIMG_HEADLESS":       &cfg.Browser.Headless,
		"SAVEIMG_AUTO_DOWNLOAD":  &cfg.Browser.AutoDownload,
		"SAVEIMG_SETTINGS_WATCH": &cfg.Settings.Watch,
	}
	for key, dst := range flags {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}

	if v := os.Getenv("SAVEIMG_PRIMARY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SAVEIMG_PRIMARY_TIMEOUT: %w", err)
		}
		cfg.Platform.PrimaryTimeout = d
	}
	return nil
}
