// Package config loads and normalizes the generator configuration.
//
// Configuration is read once at startup and treated as immutable: a YAML file
// with ${ENV} expansion, overlaid by .env/.env.local for local secrets. Only
// primitive type coercion happens here; semantic validation lives with the
// components that consume each block.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	dgerr "git.home.luguber.info/inful/docgen/internal/errors"
)

// Config is the root application configuration.
type Config struct {
	Project     ProjectConfig    `yaml:"project"`
	Context     ContextConfig    `yaml:"context"`
	Gemini      GeminiConfig     `yaml:"gemini"`
	Throttle    ThrottleConfig   `yaml:"throttle"`
	Retry       RetryConfig      `yaml:"retry"`
	Plan        PlanConfig       `yaml:"plan"`
	Diagram     DiagramConfig    `yaml:"diagram"`
	Screenshots ScreenshotConfig `yaml:"screenshots"`
	Output      OutputConfig     `yaml:"output"`
	Journal     JournalConfig    `yaml:"journal"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Watch       WatchConfig      `yaml:"watch"`
	Daemon      DaemonConfig     `yaml:"daemon"`
}

// ProjectConfig identifies the project being documented.
type ProjectConfig struct {
	Name        string `yaml:"name"`
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
	RepoURL     string `yaml:"repo_url,omitempty"` // clone instead of reading Path
}

// ContextConfig controls how the codebase context is gathered.
type ContextConfig struct {
	BundlePath   string   `yaml:"bundle_path,omitempty"` // pre-packed context file
	UseBundle    bool     `yaml:"use_bundle"`
	ExcludedDirs []string `yaml:"excluded_dirs,omitempty"`
	MaxFileKB    int      `yaml:"max_file_kb"`
	MaxFiles     int      `yaml:"max_files"`
}

// GeminiConfig configures the text-completion backend.
type GeminiConfig struct {
	APIKey          string   `yaml:"api_key"` // usually ${GEMINI_API_KEY}
	Model           string   `yaml:"model"`
	Endpoint        string   `yaml:"endpoint,omitempty"`
	Temperature     float64  `yaml:"temperature"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	Timeout         Duration `yaml:"timeout"`
}

// ThrottleConfig bounds outbound call volume.
type ThrottleConfig struct {
	MaxPerMinute   int                 `yaml:"max_per_minute"`
	CategoryDelays map[string]Duration `yaml:"category_delays,omitempty"`
}

// RetryConfig bounds retry behavior for transient call failures.
type RetryConfig struct {
	MaxRetries   int              `yaml:"max_retries"`
	InitialDelay Duration         `yaml:"initial_delay"`
	MaxDelay     Duration         `yaml:"max_delay"`
	Backoff      RetryBackoffMode `yaml:"backoff,omitempty"`
}

// PlanConfig bounds the accepted documentation plan size.
type PlanConfig struct {
	MinSections int `yaml:"min_sections"`
	MaxSections int `yaml:"max_sections"`
}

// DiagramConfig configures the diagram renderer chain.
type DiagramConfig struct {
	Enabled        bool     `yaml:"enabled"`
	MaxChars       int      `yaml:"max_chars"`
	RemoteMaxChars int      `yaml:"remote_max_chars"`
	LocalBin       string   `yaml:"local_bin"`
	RemoteURL      string   `yaml:"remote_url"`
	Timeout        Duration `yaml:"timeout"`
}

// ScreenshotConfig configures the screenshot collaborator.
type ScreenshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Filename string `yaml:"filename"`
	HTML     bool   `yaml:"html"`
}

// JournalConfig configures the run event journal.
type JournalConfig struct {
	Path        string `yaml:"path"`
	NATSURL     string `yaml:"nats_url,omitempty"`
	NATSSubject string `yaml:"nats_subject,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// WatchConfig controls watch-mode debounce.
type WatchConfig struct {
	Debounce Duration `yaml:"debounce"`
}

// DaemonConfig controls scheduled regeneration.
type DaemonConfig struct {
	Interval Duration `yaml:"interval"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// Overlay .env files first so ${VAR} expansion sees them. Existing
	// process environment wins over file values.
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				fmt.Fprintf(os.Stderr, "Note: %s could not be loaded: %v\n", envPath, err)
			}
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, dgerr.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, dgerr.Wrap(err, dgerr.CategoryConfig, dgerr.SeverityFatal, "configuration file unreadable").
			WithContext("path", configPath)
	}

	// Expand environment variables in the YAML content
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, dgerr.Wrap(err, dgerr.CategoryConfig, dgerr.SeverityFatal, "configuration file invalid").
			WithContext("path", configPath)
	}

	cfg.applyDefaults()
	return cfg, nil
}
