// Package config loads pane-conductor configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (PANE_CONDUCTOR_*)
//  2. Config file
//  3. Built-in defaults
//
// Config file search order:
//  1. .pane-conductor.yaml in current directory
//  2. ~/.config/pane-conductor/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pane-conductor configuration.
type Config struct {
	// Mux selects the multiplexer backend ("tmux"; auto-detected when
	// empty).
	Mux string `yaml:"mux"`

	// Session settings
	Session    string `yaml:"session"`    // session name for bootstrap
	Scrollback int    `yaml:"scrollback"` // history-limit for bootstrapped sessions

	// Injection settings
	Debounce      string `yaml:"debounce"`       // Go duration string, settle time before submit
	SubmitRetries int    `yaml:"submit_retries"` // Enter press attempts
	LockTimeout   string `yaml:"lock_timeout"`   // Go duration string, per-target lock wait; "0" detects and fails fast

	// Completion settings
	SignalTimeout string `yaml:"signal_timeout"` // Go duration string, signal-wait bound
	PollInterval  string `yaml:"poll_interval"`  // Go duration string, pause between idle-poll samples
	PollWindow    int    `yaml:"poll_window"`    // recent lines per idle-poll sample
	PollMaxWait   string `yaml:"poll_max_wait"`  // Go duration string, idle-poll wall-clock bound

	// Capture settings
	CaptureLines int `yaml:"capture_lines"` // default Recent(n) window for task results

	// Events journal
	EventsTTL    string `yaml:"events_ttl"`    // Go duration string, journal entry retention
	EventsSocket string `yaml:"events_socket"` // unix datagram socket for pushed events

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// Parsed durations (not from YAML, set after loading)
	DebounceDuration      time.Duration `yaml:"-"`
	LockTimeoutDuration   time.Duration `yaml:"-"`
	SignalTimeoutDuration time.Duration `yaml:"-"`
	PollIntervalDuration  time.Duration `yaml:"-"`
	PollMaxWaitDuration   time.Duration `yaml:"-"`
	EventsTTLDuration     time.Duration `yaml:"-"`

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		Scrollback:    50000,
		Debounce:      "500ms",
		SubmitRetries: 3,
		LockTimeout:   "10s",
		SignalTimeout: "5m",
		PollInterval:  "2s",
		PollWindow:    30,
		PollMaxWait:   "5m",
		CaptureLines:  50,
		EventsTTL:     "1h",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables always override file values.
func Load() (*Config, error) {
	cfg := Defaults()

	if path, data, err := findConfigFile(); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	mergeEnv(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDurations(cfg *Config) error {
	var err error
	if cfg.DebounceDuration, err = parseDurationOrDisable(cfg.Debounce, 500*time.Millisecond); err != nil {
		return fmt.Errorf("invalid debounce %q: %w", cfg.Debounce, err)
	}
	if cfg.LockTimeoutDuration, err = parseDurationOrDisable(cfg.LockTimeout, 10*time.Second); err != nil {
		return fmt.Errorf("invalid lock_timeout %q: %w", cfg.LockTimeout, err)
	}
	if cfg.SignalTimeoutDuration, err = parseDurationOrDisable(cfg.SignalTimeout, 5*time.Minute); err != nil {
		return fmt.Errorf("invalid signal_timeout %q: %w", cfg.SignalTimeout, err)
	}
	if cfg.PollIntervalDuration, err = parseDurationOrDisable(cfg.PollInterval, 2*time.Second); err != nil {
		return fmt.Errorf("invalid poll_interval %q: %w", cfg.PollInterval, err)
	}
	if cfg.PollMaxWaitDuration, err = parseDurationOrDisable(cfg.PollMaxWait, 5*time.Minute); err != nil {
		return fmt.Errorf("invalid poll_max_wait %q: %w", cfg.PollMaxWait, err)
	}
	if cfg.EventsTTLDuration, err = parseDurationOrDisable(cfg.EventsTTL, time.Hour); err != nil {
		return fmt.Errorf("invalid events_ttl %q: %w", cfg.EventsTTL, err)
	}
	return nil
}

// findConfigFile searches for a config file and returns its path and contents.
func findConfigFile() (string, []byte, error) {
	// 1. Current directory
	if data, err := os.ReadFile(".pane-conductor.yaml"); err == nil {
		return ".pane-conductor.yaml", data, nil
	}

	// 2. XDG config dir / ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		path := filepath.Join(home, ".config", "pane-conductor", "config.yaml")
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}

	return "", nil, fmt.Errorf("no config file found")
}

// mergeFile applies non-zero file values onto cfg.
func mergeFile(cfg *Config, file *Config) {
	if file.Mux != "" {
		cfg.Mux = file.Mux
	}
	if file.Session != "" {
		cfg.Session = file.Session
	}
	if file.Scrollback > 0 {
		cfg.Scrollback = file.Scrollback
	}
	if file.Debounce != "" {
		cfg.Debounce = file.Debounce
	}
	if file.SubmitRetries > 0 {
		cfg.SubmitRetries = file.SubmitRetries
	}
	if file.LockTimeout != "" {
		cfg.LockTimeout = file.LockTimeout
	}
	if file.SignalTimeout != "" {
		cfg.SignalTimeout = file.SignalTimeout
	}
	if file.PollInterval != "" {
		cfg.PollInterval = file.PollInterval
	}
	if file.PollWindow > 0 {
		cfg.PollWindow = file.PollWindow
	}
	if file.PollMaxWait != "" {
		cfg.PollMaxWait = file.PollMaxWait
	}
	if file.CaptureLines > 0 {
		cfg.CaptureLines = file.CaptureLines
	}
	if file.EventsTTL != "" {
		cfg.EventsTTL = file.EventsTTL
	}
	if file.EventsSocket != "" {
		cfg.EventsSocket = file.EventsSocket
	}
	if file.OTELEndpoint != "" {
		cfg.OTELEndpoint = file.OTELEndpoint
	}
	if file.OTELHeaders != "" {
		cfg.OTELHeaders = file.OTELHeaders
	}
}

// mergeEnv applies environment variables onto cfg. Env always wins.
func mergeEnv(cfg *Config) {
	if v := os.Getenv("PANE_CONDUCTOR_MUX"); v != "" {
		cfg.Mux = v
	}
	if v := os.Getenv("PANE_CONDUCTOR_SESSION"); v != "" {
		cfg.Session = v
	}
	if v, err := strconv.Atoi(os.Getenv("PANE_CONDUCTOR_SCROLLBACK")); err == nil {
		cfg.Scrollback = v
	}
	if v := os.Getenv("PANE_CONDUCTOR_DEBOUNCE"); v != "" {
		cfg.Debounce = v
	}
	if v, err := strconv.Atoi(os.Getenv("PANE_CONDUCTOR_SUBMIT_RETRIES")); err == nil {
		cfg.SubmitRetries = v
	}
	if v := os.Getenv("PANE_CONDUCTOR_LOCK_TIMEOUT"); v != "" {
		cfg.LockTimeout = v
	}
	if v := os.Getenv("PANE_CONDUCTOR_SIGNAL_TIMEOUT"); v != "" {
		cfg.SignalTimeout = v
	}
	if v := os.Getenv("PANE_CONDUCTOR_POLL_INTERVAL"); v != "" {
		cfg.PollInterval = v
	}
	if v, err := strconv.Atoi(os.Getenv("PANE_CONDUCTOR_POLL_WINDOW")); err == nil {
		cfg.PollWindow = v
	}
	if v := os.Getenv("PANE_CONDUCTOR_POLL_MAX_WAIT"); v != "" {
		cfg.PollMaxWait = v
	}
	if v, err := strconv.Atoi(os.Getenv("PANE_CONDUCTOR_CAPTURE_LINES")); err == nil {
		cfg.CaptureLines = v
	}
	if v := os.Getenv("PANE_CONDUCTOR_EVENTS_TTL"); v != "" {
		cfg.EventsTTL = v
	}
	if v := os.Getenv("PANE_CONDUCTOR_EVENTS_SOCKET"); v != "" {
		cfg.EventsSocket = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTELEndpoint = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); v != "" {
		cfg.OTELHeaders = v
	}
}

// parseDurationOrDisable parses a duration string. "0", "off", "disable" return 0.
// Empty string returns the fallback value.
func parseDurationOrDisable(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	if s == "0" || s == "off" || s == "disable" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
