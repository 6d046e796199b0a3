package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"igharvest/pkg/ratelimit"
)

// Config holds all application settings for igharvest
type Config struct {
	// Instagram client settings
	Instagram InstagramConfig `yaml:"instagram" json:"instagram"`

	// Anti-detection timing
	Timing TimingConfig `yaml:"timing" json:"timing"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Job history database
	History HistoryConfig `yaml:"history" json:"history"`
}

// InstagramConfig holds Instagram client configuration
type InstagramConfig struct {
	UserAgent         string `yaml:"user_agent" json:"user_agent"`
	RequestTimeout    int    `yaml:"request_timeout" json:"request_timeout"` // seconds
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	SessionDir        string `yaml:"session_dir" json:"session_dir"`
}

// TimingConfig holds the anti-detection delays, all in seconds
type TimingConfig struct {
	BaseDelay         float64 `yaml:"base_delay" json:"base_delay"`
	Jitter            float64 `yaml:"jitter" json:"jitter"`
	StoryMultiplier   float64 `yaml:"story_multiplier" json:"story_multiplier"`
	CriticalWait      float64 `yaml:"critical_wait" json:"critical_wait"`
	LongSessionChance float64 `yaml:"long_session_chance" json:"long_session_chance"`
	LongPauseMin      float64 `yaml:"long_pause_min" json:"long_pause_min"`
	LongPauseMax      float64 `yaml:"long_pause_max" json:"long_pause_max"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
	// SavedLayout is "per_owner" or "flat"
	SavedLayout string `yaml:"saved_layout" json:"saved_layout"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	SkipExisting bool `yaml:"skip_existing" json:"skip_existing"`
	SaveSession  bool `yaml:"save_session" json:"save_session"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled     bool `yaml:"enabled" json:"enabled"`
	OnComplete  bool `yaml:"on_complete" json:"on_complete"`
	OnError     bool `yaml:"on_error" json:"on_error"`
	OnRateLimit bool `yaml:"on_rate_limit" json:"on_rate_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// HistoryConfig holds job history configuration
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// DefaultConfig returns a Config instance with the conservative timing defaults
func DefaultConfig() *Config {
	return &Config{
		Instagram: InstagramConfig{
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			RequestTimeout:    300,
			RequestsPerMinute: 30,
			SessionDir:        DefaultSessionDir(),
		},
		Timing: TimingConfig{
			BaseDelay:         8,
			Jitter:            3,
			StoryMultiplier:   2.5,
			CriticalWait:      30 * 60,
			LongSessionChance: 0.25,
			LongPauseMin:      20,
			LongPauseMax:      30,
		},
		Output: OutputConfig{
			BaseDirectory: ".",
			SavedLayout:   "per_owner",
		},
		Download: DownloadConfig{
			SkipExisting: true,
			SaveSession:  true,
		},
		Notifications: NotificationConfig{
			Enabled:     false,
			OnComplete:  true,
			OnError:     true,
			OnRateLimit: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(configHome(), "igharvest", "history.db"),
		},
	}
}

// DefaultSessionDir is where session files are written after login
func DefaultSessionDir() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return filepath.Join(dir, "igharvest", "sessions")
	}
	return filepath.Join(configHome(), "igharvest", "sessions")
}

func configHome() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config")
}

// Policy converts the timing section into a scheduler policy
func (t TimingConfig) Policy() ratelimit.Policy {
	return ratelimit.Policy{
		BaseDelay:         seconds(t.BaseDelay),
		Jitter:            seconds(t.Jitter),
		StoryMultiplier:   t.StoryMultiplier,
		CriticalWait:      seconds(t.CriticalWait),
		LongSessionChance: t.LongSessionChance,
		LongPauseMin:      seconds(t.LongPauseMin),
		LongPauseMax:      seconds(t.LongPauseMax),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// LoadFromEnv loads configuration from IGHARVEST_* environment variables
func (c *Config) LoadFromEnv() error {
	if ua := os.Getenv("IGHARVEST_USER_AGENT"); ua != "" {
		c.Instagram.UserAgent = ua
	}
	if dir := os.Getenv("IGHARVEST_SESSION_DIR"); dir != "" {
		c.Instagram.SessionDir = dir
	}
	if dir := os.Getenv("IGHARVEST_OUTPUT_DIR"); dir != "" {
		c.Output.BaseDirectory = dir
	}
	if layout := os.Getenv("IGHARVEST_SAVED_LAYOUT"); layout != "" {
		c.Output.SavedLayout = layout
	}
	if level := os.Getenv("IGHARVEST_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("IGHARVEST_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
	if path := os.Getenv("IGHARVEST_HISTORY_PATH"); path != "" {
		c.History.Path = path
	}

	var errs []error
	intVar := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	floatVar := func(name string, dst *float64) {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}
	boolVar := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			*dst = strings.ToLower(v) == "true"
		}
	}

	intVar("IGHARVEST_REQUEST_TIMEOUT", &c.Instagram.RequestTimeout)
	intVar("IGHARVEST_REQUESTS_PER_MINUTE", &c.Instagram.RequestsPerMinute)
	floatVar("IGHARVEST_BASE_DELAY", &c.Timing.BaseDelay)
	floatVar("IGHARVEST_JITTER", &c.Timing.Jitter)
	floatVar("IGHARVEST_STORY_MULTIPLIER", &c.Timing.StoryMultiplier)
	floatVar("IGHARVEST_CRITICAL_WAIT", &c.Timing.CriticalWait)
	floatVar("IGHARVEST_LONG_SESSION_CHANCE", &c.Timing.LongSessionChance)
	boolVar("IGHARVEST_SKIP_EXISTING", &c.Download.SkipExisting)
	boolVar("IGHARVEST_SAVE_SESSION", &c.Download.SaveSession)
	boolVar("IGHARVEST_NOTIFICATIONS_ENABLED", &c.Notifications.Enabled)
	boolVar("IGHARVEST_HISTORY_ENABLED", &c.History.Enabled)

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".igharvest.yaml",
		".igharvest.yml",
		filepath.Join(configHome(), "igharvest", "config.yaml"),
		filepath.Join(configHome(), "igharvest", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath is where `config init` writes a fresh file
func DefaultPath() string {
	return filepath.Join(configHome(), "igharvest", "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Instagram.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Instagram.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	t := c.Timing
	if t.BaseDelay < 0 || t.Jitter < 0 || t.CriticalWait < 0 {
		errs = append(errs, errors.New("timing values cannot be negative"))
	}
	if t.StoryMultiplier < 1 {
		errs = append(errs, errors.New("story multiplier must be at least 1"))
	}
	if t.LongSessionChance < 0 || t.LongSessionChance > 1 {
		errs = append(errs, errors.New("long session chance must be between 0 and 1"))
	}
	if t.LongPauseMin < 0 || t.LongPauseMax < t.LongPauseMin {
		errs = append(errs, errors.New("long pause bounds must satisfy 0 <= min <= max"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	switch c.Output.SavedLayout {
	case "per_owner", "flat":
	default:
		errs = append(errs, fmt.Errorf("invalid saved layout %q", c.Output.SavedLayout))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history path is required when history is enabled"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["output"].(string); ok && dir != "" {
		c.Output.BaseDirectory = dir
	}
	if layout, ok := flags["saved-layout"].(string); ok && layout != "" {
		c.Output.SavedLayout = layout
	}
	if dir, ok := flags["session-dir"].(string); ok && dir != "" {
		c.Instagram.SessionDir = dir
	}
	if level, ok := flags["log-level"].(string); ok && level != "" {
		c.Logging.Level = level
	}
	if v, ok := flags["base-delay"].(float64); ok && v > 0 {
		c.Timing.BaseDelay = v
	}
	if v, ok := flags["no-skip-existing"].(bool); ok && v {
		c.Download.SkipExisting = false
	}
	if v, ok := flags["no-save-session"].(bool); ok && v {
		c.Download.SaveSession = false
	}
	if v, ok := flags["notifications"].(bool); ok && v {
		c.Notifications.Enabled = true
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".igharvest.env"))
	}

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
