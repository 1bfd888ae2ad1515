package config

import "time"

// Defaults mirror the free-tier budget the generator was tuned for:
// 15 requests per minute with 2-4 second pacing between calls.
const (
	DefaultMaxPerMinute    = 15
	DefaultModel           = "gemini-2.5-pro"
	DefaultEndpoint        = "https://generativelanguage.googleapis.com/v1beta"
	DefaultTemperature     = 0.7
	DefaultMaxOutputTokens = 8000
	DefaultCallTimeout     = Duration(2 * time.Minute)

	DefaultMinSections = 3
	DefaultMaxSections = 12

	DefaultDiagramMaxChars       = 1500
	DefaultDiagramRemoteMaxChars = 1000
	DefaultDiagramBin            = "mmdc"
	DefaultDiagramRemoteURL      = "https://kroki.io/mermaid/png"
	DefaultDiagramTimeout        = Duration(30 * time.Second)

	DefaultMaxFileKB = 100
	DefaultMaxFiles  = 20

	DefaultWatchDebounce  = Duration(2 * time.Second)
	DefaultDaemonInterval = Duration(24 * time.Hour)
)

// DefaultCategoryDelays spaces call categories independently; the heavier
// generation calls get the longer gap.
func DefaultCategoryDelays() map[string]Duration {
	return map[string]Duration{
		"plan":       Duration(2 * time.Second),
		"section":    Duration(4 * time.Second),
		"screenshot": Duration(2 * time.Second),
		"diagram":    Duration(2 * time.Second),
	}
}

// applyDefaults fills zero values after decode. Only primitive coercion;
// semantic validation belongs to the consuming components.
func (c *Config) applyDefaults() {
	if c.Project.Name == "" {
		c.Project.Name = "My Project"
	}
	if c.Project.Path == "" {
		c.Project.Path = "."
	}

	if c.Context.MaxFileKB <= 0 {
		c.Context.MaxFileKB = DefaultMaxFileKB
	}
	if c.Context.MaxFiles <= 0 {
		c.Context.MaxFiles = DefaultMaxFiles
	}
	if len(c.Context.ExcludedDirs) == 0 {
		c.Context.ExcludedDirs = []string{"node_modules", ".git", "__pycache__", "venv", ".venv", "dist", "build", "vendor"}
	}

	if c.Gemini.Model == "" {
		c.Gemini.Model = DefaultModel
	}
	if c.Gemini.Endpoint == "" {
		c.Gemini.Endpoint = DefaultEndpoint
	}
	if c.Gemini.Temperature == 0 {
		c.Gemini.Temperature = DefaultTemperature
	}
	if c.Gemini.MaxOutputTokens <= 0 {
		c.Gemini.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if c.Gemini.Timeout <= 0 {
		c.Gemini.Timeout = DefaultCallTimeout
	}

	if c.Throttle.MaxPerMinute <= 0 {
		c.Throttle.MaxPerMinute = DefaultMaxPerMinute
	}
	if c.Throttle.CategoryDelays == nil {
		c.Throttle.CategoryDelays = DefaultCategoryDelays()
	}

	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = Duration(5 * time.Second)
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = Duration(60 * time.Second)
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = RetryBackoffExponential
	}

	if c.Plan.MinSections <= 0 {
		c.Plan.MinSections = DefaultMinSections
	}
	if c.Plan.MaxSections <= 0 {
		c.Plan.MaxSections = DefaultMaxSections
	}
	if c.Plan.MaxSections < c.Plan.MinSections {
		c.Plan.MaxSections = c.Plan.MinSections
	}

	if c.Diagram.MaxChars <= 0 {
		c.Diagram.MaxChars = DefaultDiagramMaxChars
	}
	if c.Diagram.RemoteMaxChars <= 0 || c.Diagram.RemoteMaxChars > c.Diagram.MaxChars {
		c.Diagram.RemoteMaxChars = DefaultDiagramRemoteMaxChars
		if c.Diagram.RemoteMaxChars > c.Diagram.MaxChars {
			c.Diagram.RemoteMaxChars = c.Diagram.MaxChars
		}
	}
	if c.Diagram.LocalBin == "" {
		c.Diagram.LocalBin = DefaultDiagramBin
	}
	if c.Diagram.RemoteURL == "" {
		c.Diagram.RemoteURL = DefaultDiagramRemoteURL
	}
	if c.Diagram.Timeout <= 0 {
		c.Diagram.Timeout = DefaultDiagramTimeout
	}

	if c.Screenshots.Dir == "" {
		c.Screenshots.Dir = "./screenshots"
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.Filename == "" {
		c.Output.Filename = "documentation.md"
	}

	if c.Journal.Path == "" {
		c.Journal.Path = "./docgen-journal.db"
	}
	if c.Journal.NATSSubject == "" {
		c.Journal.NATSSubject = "docgen.runs"
	}

	if c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}

	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultWatchDebounce
	}
	if c.Daemon.Interval <= 0 {
		c.Daemon.Interval = DefaultDaemonInterval
	}
}
