package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models arxidemo.yml.
type Config struct {
	Tour struct {
		ImportDelay       time.Duration `yaml:"import_delay"`
		ExecutionDelayMin time.Duration `yaml:"execution_delay_min"`
		ExecutionDelayMax time.Duration `yaml:"execution_delay_max"`
		DraftDelay        time.Duration `yaml:"draft_delay"`
	} `yaml:"tour"`
	Notifications struct {
		Limit int           `yaml:"limit"`
		TTL   time.Duration `yaml:"ttl"`
	} `yaml:"notifications"`
	Store struct {
		CascadeDelete bool `yaml:"cascade_delete"`
		Seed          bool `yaml:"seed"`
	} `yaml:"store"`
	Sessions struct {
		Max          int           `yaml:"max"`
		TokenTTL     time.Duration `yaml:"token_ttl"`
		JWTSecretEnv string        `yaml:"jwt_secret_env"`
	} `yaml:"sessions"`
	Contact Contact `yaml:"contact"`
	Server  struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
}

// Contact configures the demo-request relay.
type Contact struct {
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyEnv    string        `yaml:"access_key_env"`
	FromName        string        `yaml:"from_name"`
	Subject         string        `yaml:"subject"`
	FallbackAddress string        `yaml:"fallback_address"`
	Cooldown        time.Duration `yaml:"cooldown"`
	Timeout         time.Duration `yaml:"timeout"`
}

var envName = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	positive := map[string]time.Duration{
		"tour.import_delay":        c.Tour.ImportDelay,
		"tour.execution_delay_min": c.Tour.ExecutionDelayMin,
		"tour.execution_delay_max": c.Tour.ExecutionDelayMax,
		"tour.draft_delay":         c.Tour.DraftDelay,
		"notifications.ttl":        c.Notifications.TTL,
		"sessions.token_ttl":       c.Sessions.TokenTTL,
		"contact.cooldown":         c.Contact.Cooldown,
		"contact.timeout":          c.Contact.Timeout,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("config.%s must be positive", name)
		}
	}
	if c.Tour.ExecutionDelayMax < c.Tour.ExecutionDelayMin {
		return fmt.Errorf("config.tour.execution_delay_max must not be below execution_delay_min")
	}
	if c.Notifications.Limit < 1 {
		return fmt.Errorf("config.notifications.limit must be at least 1")
	}
	if c.Sessions.Max < 1 {
		return fmt.Errorf("config.sessions.max must be at least 1")
	}
	if !envName.MatchString(c.Sessions.JWTSecretEnv) {
		return fmt.Errorf("config.sessions.jwt_secret_env %q is not a valid environment variable name", c.Sessions.JWTSecretEnv)
	}
	if c.Contact.AccessKeyEnv != "" && !envName.MatchString(c.Contact.AccessKeyEnv) {
		return fmt.Errorf("config.contact.access_key_env %q is not a valid environment variable name", c.Contact.AccessKeyEnv)
	}
	if !strings.HasPrefix(c.Contact.Endpoint, "http://") && !strings.HasPrefix(c.Contact.Endpoint, "https://") {
		return fmt.Errorf("config.contact.endpoint must be an http(s) url")
	}
	if c.Contact.FallbackAddress == "" {
		return fmt.Errorf("config.contact.fallback_address is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "arxidemo.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with arxidemo config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional falls back to Default when the config file does not exist.
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

// Default returns the built-in configuration.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys missing
// from data keep their default values.
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

// YAML renders the config back to YAML.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

const defaultTemplate = `tour:
  import_delay: 1.5s
  execution_delay_min: 3s
  execution_delay_max: 5s
  draft_delay: 2s

notifications:
  limit: 5
  ttl: 5s

store:
  # remove owned entities along with their owner instead of orphaning them
  cascade_delete: false
  seed: true

sessions:
  max: 256
  token_ttl: 2h
  jwt_secret_env: ARXIDEMO_JWT_SECRET

contact:
  endpoint: https://api.web3forms.com/submit
  access_key_env: ARXIDEMO_CONTACT_ACCESS_KEY
  from_name: Arxitest Demo Request
  subject: New Demo Request - Arxitest
  fallback_address: demo@arxitest.example
  cooldown: 5m
  timeout: 10s

server:
  addr: 127.0.0.1:8080
  base_path: /v0
`
