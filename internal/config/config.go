package config

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config restricts which operations an OpenAPI document exposes as tools.
// The zero value disables nothing.
type Config struct {
	// DisabledOperations disables whole HTTP methods.
	DisabledOperations Operations `yaml:"disabledOperations" json:"disabledOperations"`

	// DisabledEndpoints disables specific operation ids.
	DisabledEndpoints []string `yaml:"disabledEndpoints" json:"disabledEndpoints"`

	// DisabledPaths disables paths matching these regular expressions.
	DisabledPaths []string `yaml:"disabledPaths" json:"disabledPaths"`

	pathPatterns []*regexp.Regexp
}

// Operations marks HTTP methods as disabled.
type Operations struct {
	GET    bool `yaml:"get" json:"get"`
	POST   bool `yaml:"post" json:"post"`
	PUT    bool `yaml:"put" json:"put"`
	PATCH  bool `yaml:"patch" json:"patch"`
	DELETE bool `yaml:"delete" json:"delete"`
}

// Default returns a configuration with every operation enabled.
func Default() *Config {
	return &Config{}
}

// LoadFile loads configuration from a YAML or JSON file. An empty path or a
// missing file yields the default configuration.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("error opening config file: %w", err)
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("error loading config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads configuration from r. YAML is a superset of JSON, so either
// format works.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config data: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	for _, pattern := range cfg.DisabledPaths {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid disabled path pattern %q: %w", pattern, err)
		}
		cfg.pathPatterns = append(cfg.pathPatterns, re)
	}
	return cfg, nil
}

// IsOperationDisabled reports whether the HTTP method is disabled.
func (c *Config) IsOperationDisabled(method string) bool {
	switch strings.ToUpper(method) {
	case "GET":
		return c.DisabledOperations.GET
	case "POST":
		return c.DisabledOperations.POST
	case "PUT":
		return c.DisabledOperations.PUT
	case "PATCH":
		return c.DisabledOperations.PATCH
	case "DELETE":
		return c.DisabledOperations.DELETE
	default:
		return false
	}
}

// IsEndpointDisabled reports whether the operation id is disabled.
func (c *Config) IsEndpointDisabled(operationID string) bool {
	for _, disabled := range c.DisabledEndpoints {
		if disabled == operationID {
			return true
		}
	}
	return false
}

// IsPathDisabled reports whether the path matches a disabled path pattern.
func (c *Config) IsPathDisabled(path string) bool {
	for _, pattern := range c.pathPatterns {
		if pattern.MatchString(path) {
			return true
		}
	}
	return false
}
