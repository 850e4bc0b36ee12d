package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	PolicyDerived = "derived"
	PolicyFixed   = "fixed"

	EmptySkillsReject = "reject"
	EmptySkillsAllow  = "allow"
)

// Config models staffline.yml.
type Config struct {
	Allocation struct {
		Capacity struct {
			Policy      string  `yaml:"policy" json:"policy"`
			FixedHours  float64 `yaml:"fixed_hours" json:"fixed_hours"`
			HoursPerDay float64 `yaml:"hours_per_day" json:"hours_per_day"`
		} `yaml:"capacity" json:"capacity"`
		TemporalFence       bool   `yaml:"temporal_fence" json:"temporal_fence"`
		EmptyRequiredSkills string `yaml:"empty_required_skills" json:"empty_required_skills"`
	} `yaml:"allocation" json:"allocation"`
	Lifecycle struct {
		SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
		Timezone      string        `yaml:"timezone" json:"timezone"`
	} `yaml:"lifecycle" json:"lifecycle"`
	Server struct {
		Addr     string `yaml:"addr" json:"addr"`
		BasePath string `yaml:"base_path" json:"base_path"`
	} `yaml:"server" json:"server"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with staffline config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	switch c.Allocation.Capacity.Policy {
	case PolicyDerived, PolicyFixed:
	default:
		return fmt.Errorf("allocation.capacity.policy must be %q or %q, got %q", PolicyDerived, PolicyFixed, c.Allocation.Capacity.Policy)
	}
	if c.Allocation.Capacity.Policy == PolicyFixed && c.Allocation.Capacity.FixedHours <= 0 {
		return fmt.Errorf("allocation.capacity.fixed_hours must be positive")
	}
	if c.Allocation.Capacity.HoursPerDay <= 0 || c.Allocation.Capacity.HoursPerDay > 24 {
		return fmt.Errorf("allocation.capacity.hours_per_day must be in (0, 24]")
	}
	switch c.Allocation.EmptyRequiredSkills {
	case EmptySkillsReject, EmptySkillsAllow:
	default:
		return fmt.Errorf("allocation.empty_required_skills must be %q or %q", EmptySkillsReject, EmptySkillsAllow)
	}
	if c.Lifecycle.SweepInterval <= 0 {
		return fmt.Errorf("lifecycle.sweep_interval must be positive")
	}
	if _, err := time.LoadLocation(c.Lifecycle.Timezone); err != nil {
		return fmt.Errorf("lifecycle.timezone: %w", err)
	}
	if c.Server.BasePath != "" && c.Server.BasePath[0] != '/' {
		return fmt.Errorf("server.base_path must start with /")
	}
	return nil
}

// Location returns the time zone used for date comparisons.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Lifecycle.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "staffline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing from
// data keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `allocation:
  capacity:
    # derived: (end_date - start_date) days * hours_per_day
    # fixed: fixed_hours for every project
    policy: derived
    fixed_hours: 80
    hours_per_day: 8
  temporal_fence: true
  empty_required_skills: reject

lifecycle:
  sweep_interval: 1h
  timezone: UTC

server:
  addr: 127.0.0.1:8080
  base_path: /v0
`
