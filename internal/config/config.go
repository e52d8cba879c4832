package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelConfig describes one LLM inference endpoint.
type ModelConfig struct {
	Model   string `yaml:"model"`
	APIBase string `yaml:"api_base"`
	APIKey  string `yaml:"api_key"`
}

// Configured reports whether the endpoint is usable.
func (m *ModelConfig) Configured() bool {
	return m != nil && m.Model != "" && m.APIBase != ""
}

// ServiceConfig describes one external HTTP collaborator (news search or
// shared memory).
type ServiceConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	APIKey string `yaml:"api_key"`
}

// Configured reports whether the service is usable.
func (s *ServiceConfig) Configured() bool {
	return s != nil && s.URL != ""
}

type Config struct {
	Pairs       []string `yaml:"pairs"`
	PollSeconds int      `yaml:"poll_seconds"`

	Strategy struct {
		RSIPeriod            int     `yaml:"rsi_period"`
		MinImpactScore       float64 `yaml:"min_impact_score"`
		NewsCheckIntervalSec int     `yaml:"news_check_interval_seconds"`
		NewsTimeframe        string  `yaml:"news_timeframe"`
	} `yaml:"strategy"`

	Services struct {
		News   *ServiceConfig `yaml:"news"`
		Memory *ServiceConfig `yaml:"memory"`
	} `yaml:"services"`

	Models struct {
		Primary  *ModelConfig `yaml:"primary"`
		Fallback *ModelConfig `yaml:"fallback"`
	} `yaml:"models"`

	LLM struct {
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`
}

func (c *Config) Validate() error {
	if len(c.Pairs) == 0 {
		return errors.New("pairs cannot be empty")
	}
	for _, p := range c.Pairs {
		base, _, ok := strings.Cut(p, "/")
		if !ok || base == "" {
			return fmt.Errorf("invalid pair '%s': must be 'BASE/QUOTE'", p)
		}
	}
	if c.Strategy.MinImpactScore < 0 || c.Strategy.MinImpactScore > 1 {
		return fmt.Errorf("strategy.min_impact_score must be between 0 and 1, got %.2f", c.Strategy.MinImpactScore)
	}
	if c.Strategy.NewsCheckIntervalSec <= 0 {
		return fmt.Errorf("strategy.news_check_interval_seconds must be positive, got %d", c.Strategy.NewsCheckIntervalSec)
	}
	if c.Models.Primary != nil && !c.Models.Primary.Configured() {
		return errors.New("models.primary requires both model and api_base")
	}
	if c.Models.Fallback != nil && !c.Models.Fallback.Configured() {
		return errors.New("models.fallback requires both model and api_base")
	}
	if c.Models.Fallback.Configured() && !c.Models.Primary.Configured() {
		return errors.New("models.fallback configured without models.primary")
	}
	return nil
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.PollSeconds == 0 {
		c.PollSeconds = 15
	}
	if c.Strategy.RSIPeriod == 0 {
		c.Strategy.RSIPeriod = 14
	}
	if c.Strategy.MinImpactScore == 0 {
		c.Strategy.MinImpactScore = 0.3
	}
	if c.Strategy.NewsCheckIntervalSec == 0 {
		c.Strategy.NewsCheckIntervalSec = 3600
	}
	if c.Strategy.NewsTimeframe == "" {
		c.Strategy.NewsTimeframe = "24h"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}

	// Credentials may reference environment variables as ${VAR}.
	if c.Services.News != nil {
		c.Services.News.APIKey = expandEnv(c.Services.News.APIKey)
		c.Services.News.Token = expandEnv(c.Services.News.Token)
	}
	if c.Services.Memory != nil {
		c.Services.Memory.APIKey = expandEnv(c.Services.Memory.APIKey)
		c.Services.Memory.Token = expandEnv(c.Services.Memory.Token)
	}
	if c.Models.Primary != nil {
		c.Models.Primary.APIKey = expandEnv(c.Models.Primary.APIKey)
	}
	if c.Models.Fallback != nil {
		c.Models.Fallback.APIKey = expandEnv(c.Models.Fallback.APIKey)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func expandEnv(v string) string {
	if strings.HasPrefix(v, "${") && strings.HasSuffix(v, "}") {
		return os.Getenv(v[2 : len(v)-1])
	}
	return v
}
