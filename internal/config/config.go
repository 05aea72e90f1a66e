package config

import (
	"errors"
	"fmt"
	"os"

	"Vscan/internal/urlnorm"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingTarget is returned when no target URL was configured.
	ErrMissingTarget = errors.New("target URL is required")
	// ErrInvalidTarget is returned when the target cannot be parsed into an absolute URL.
	ErrInvalidTarget = errors.New("invalid target URL")
)

// OutputConfig holds configuration settings related to output and logging.
type OutputConfig struct {
	OutputFile string `yaml:"output_file"` // Path to save the JSON report in addition to stdout.
	Verbose    bool   `yaml:"verbose"`     // Enable verbose logging.
}

// Config is the main struct to hold all configuration data from the YAML file.
type Config struct {
	Target      string  `yaml:"target"`       // Target URL for scanning.
	MaxDepth    int     `yaml:"max_depth"`    // Maximum crawling depth, capped at 3.
	MaxLinks    int     `yaml:"max_links"`    // Maximum number of URLs to visit, 0 = unbounded.
	ObeyRobots  bool    `yaml:"obey_robots"`  // Honour robots.txt.
	Concurrency int     `yaml:"concurrency"`  // Number of concurrent workers.
	Timeout     int     `yaml:"timeout"`      // Per-request timeout in seconds.
	MaxRetries  int     `yaml:"max_retries"`  // Maximum number of retries for HTTP requests.
	RateLimit   float64 `yaml:"rate_limit"`   // Requests per second, 0 = unlimited.
	ProbeForms  bool    `yaml:"probe_forms"`  // Inject payloads into discovered forms.
	ProbeParams bool    `yaml:"probe_params"` // Inject payloads into query parameters.

	// UserAgent field allows specifying a custom User-Agent header.
	UserAgent string `yaml:"user_agent"`

	// Output configuration settings.
	Output OutputConfig `yaml:"output"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		MaxDepth:    3,
		Concurrency: 5,
		Timeout:     10,
		ProbeForms:  true,
		ProbeParams: true,
		UserAgent:   "Vscan/1.0",
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// Keys missing from the file keep their defaults; a missing file yields the defaults.
func LoadConfig(filePath string) (*Config, error) {
	config := Default()

	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	return config, nil
}

// Validate normalises the target (adding "http://" when no scheme is given)
// and repairs out-of-range numeric settings.
func (c *Config) Validate() error {
	if c.Target == "" {
		return ErrMissingTarget
	}
	target, err := urlnorm.FetchTarget(urlnorm.EnsureScheme(c.Target))
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidTarget, c.Target, err)
	}
	if !urlnorm.IsHTTP(target) {
		return fmt.Errorf("%w %q: scheme must be http or https", ErrInvalidTarget, c.Target)
	}
	c.Target = target

	if c.Concurrency <= 0 {
		c.Concurrency = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 10
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.MaxLinks < 0 {
		c.MaxLinks = 0
	}
	if c.RateLimit < 0 {
		c.RateLimit = 0
	}
	return nil
}
