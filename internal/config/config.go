package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models mixcue.yml.
type Config struct {
	Studio struct {
		ID             string `yaml:"id"`
		Name           string `yaml:"name"`
		DJCalendarLink string `yaml:"dj_calendar_link"`
	} `yaml:"studio"`
	Parser struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutMinutes int    `yaml:"timeout_minutes"`
	} `yaml:"parser"`
	Auth struct {
		JWTSecret              string `yaml:"jwt_secret"`
		AllowLegacyActorHeader bool   `yaml:"allow_legacy_actor_header"`
	} `yaml:"auth"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

// ParserTimeout returns the parse-call timeout. AI parsing is slow, so the
// default is minutes-scale rather than seconds.
func (c *Config) ParserTimeout() time.Duration {
	minutes := c.Parser.TimeoutMinutes
	if minutes <= 0 {
		minutes = 3
	}
	return time.Duration(minutes) * time.Minute
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with mixcue config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Studio.ID == "" {
		return fmt.Errorf("config.studio.id is required")
	}
	if c.Parser.BaseURL != "" {
		if _, err := url.Parse(c.Parser.BaseURL); err != nil {
			return fmt.Errorf("config.parser.base_url invalid: %w", err)
		}
	}
	if c.Studio.DJCalendarLink != "" {
		u, err := url.Parse(c.Studio.DJCalendarLink)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("config.studio.dj_calendar_link must be an absolute URL")
		}
	}
	if c.Parser.TimeoutMinutes < 0 {
		return fmt.Errorf("config.parser.timeout_minutes must not be negative")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "mixcue.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(studioID string) string {
	return fmt.Sprintf(defaultTemplate, studioID)
}

// Default returns the default Config struct for a studio.
func Default(studioID string) *Config {
	var cfg Config
	cfg.Studio.ID = studioID
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, studioID))).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `studio:
  id: %s
  name: ""
  dj_calendar_link: ""

parser:
  base_url: ""
  api_key: ""
  timeout_minutes: 3

auth:
  jwt_secret: ""
  allow_legacy_actor_header: true

server:
  addr: ":8420"
  base_path: /v0
`
