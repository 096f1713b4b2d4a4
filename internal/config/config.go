// Package config loads and validates the buildhook configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Steps   []Step         `yaml:"steps"`
	History HistoryConfig  `yaml:"history,omitempty"`
	Events  *EventsConfig  `yaml:"events,omitempty"`
	Watch   WatchConfig    `yaml:"watch,omitempty"`
	Metrics MetricsConfig  `yaml:"metrics,omitempty"`
}

// Step describes one compile step: an external tool run over an input file
// producing an output artifact, with a fallback to a pre-existing output.
type Step struct {
	Name        string   `yaml:"name"`
	Tool        string   `yaml:"tool"`
	Args        []string `yaml:"args,omitempty"`
	Input       string   `yaml:"input"`
	Output      string   `yaml:"output"`
	OutputFlag  string   `yaml:"output_flag,omitempty"` // defaults to "-o"
	Remediation string   `yaml:"remediation,omitempty"`
	Optional    bool     `yaml:"optional,omitempty"` // failure doesn't abort the run
}

// HistoryConfig configures the SQLite run history store.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"` // empty disables history
}

// EventsConfig configures optional NATS publishing of step results.
type EventsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject,omitempty"`
}

// WatchConfig configures the continuous watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce,omitempty"` // e.g. "2s"
	Interval string `yaml:"interval,omitempty"` // periodic rebuild, empty disables
}

// MetricsConfig configures the Prometheus exposition endpoint (watch mode).
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"` // e.g. ":9090", empty disables
}

// DebounceDuration returns the parsed debounce interval, defaulting to 2s.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// IntervalDuration returns the parsed periodic rebuild interval, or zero
// when periodic rebuilds are disabled.
func (w WatchConfig) IntervalDuration() time.Duration {
	if w.Interval == "" {
		return 0
	}
	d, err := time.ParseDuration(w.Interval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env files if present; existing process env is not overridden.
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				fmt.Fprintf(os.Stderr, "Note: %s couldn't be loaded: %v\n", envPath, err)
			}
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	for i := range config.Steps {
		step := &config.Steps[i]
		if step.Name == "" && step.Output != "" {
			step.Name = filepath.Base(step.Output)
		}
		if step.OutputFlag == "" {
			step.OutputFlag = "-o"
		}
		if step.Remediation == "" && step.Tool != "" {
			step.Remediation = fmt.Sprintf(
				"Compilation failed and no pre-compiled %s found. Please install %s and re-run the build.",
				step.Output, step.Tool)
		}
	}
}

// Validate checks the configuration for missing or inconsistent fields.
func (c *Config) Validate() error {
	if len(c.Steps) == 0 {
		return fmt.Errorf("configuration defines no compile steps")
	}

	seen := make(map[string]bool, len(c.Steps))
	for i, step := range c.Steps {
		if step.Tool == "" {
			return fmt.Errorf("step %d (%s): tool is required", i, step.Name)
		}
		if step.Input == "" {
			return fmt.Errorf("step %d (%s): input is required", i, step.Name)
		}
		if step.Output == "" {
			return fmt.Errorf("step %d (%s): output is required", i, step.Name)
		}
		if filepath.IsAbs(step.Input) {
			return fmt.Errorf("step %d (%s): input must be relative to the build root", i, step.Name)
		}
		if filepath.IsAbs(step.Output) {
			return fmt.Errorf("step %d (%s): output must be relative to the build root", i, step.Name)
		}
		if seen[step.Name] {
			return fmt.Errorf("duplicate step name: %s", step.Name)
		}
		seen[step.Name] = true
	}

	if c.Events != nil && c.Events.URL == "" {
		return fmt.Errorf("events: url is required when events are configured")
	}
	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("watch: invalid debounce: %w", err)
		}
	}
	if c.Watch.Interval != "" {
		if _, err := time.ParseDuration(c.Watch.Interval); err != nil {
			return fmt.Errorf("watch: invalid interval: %w", err)
		}
	}

	return nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := `# buildhook configuration
# Each step runs an external compiler over an input file. When the tool is
# missing or fails, a pre-existing output artifact is used instead; when
# neither is available the build aborts.
steps:
  - name: core
    tool: cython
    input: bt/core.py
    output: bt/core.c
    remediation: "Please install Cython: pip install cython"

# Uncomment to record run history in SQLite:
# history:
#   path: .buildhook/history.db

# Uncomment to publish step results to NATS:
# events:
#   url: nats://localhost:4222
#   subject: buildhook.results

# Watch mode tuning:
# watch:
#   debounce: 2s
#   interval: 10m

# Prometheus exposition (watch mode only):
# metrics:
#   listen: ":9090"
`

	if err := os.WriteFile(configPath, []byte(example), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
