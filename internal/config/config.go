// Package config loads the service configuration from YAML, with environment
// overrides for the secrets-bearing connection strings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	Timezone    string `yaml:"timezone"`

	CampusAPI CampusAPIConfig `yaml:"campus_api"`
	Messaging MessagingConfig `yaml:"messaging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// CampusAPIConfig points at the campus electricity endpoint and names the
// campuses it serves. Campus ids and areas come from the campus card system
// and have no meaning outside it.
type CampusAPIConfig struct {
	BaseURL  string         `yaml:"base_url"`
	Campuses []CampusConfig `yaml:"campuses"`
}

type CampusConfig struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
	Area string `yaml:"area"`
}

// MessagingConfig points at the chat gateway that delivers replies.
type MessagingConfig struct {
	BaseURL string `yaml:"base_url"`
}

type RateLimitConfig struct {
	Threshold     int `yaml:"threshold"`
	WindowSeconds int `yaml:"window_seconds"`
}

// Window returns the rate limit window as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads config and applies environment overrides, but does not
// default or validate it. Useful for debugging partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	// Connection strings carry credentials, so they can be kept out of the
	// file and injected by the environment instead.
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Asia/Shanghai"
	}
	if c.RateLimit.Threshold == 0 {
		c.RateLimit.Threshold = 2
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 3600
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.CampusAPI.BaseURL == "" {
		return errors.New("campus_api.base_url is required")
	}
	if len(c.CampusAPI.Campuses) == 0 {
		return errors.New("campus_api.campuses must name at least one campus")
	}
	for i, campus := range c.CampusAPI.Campuses {
		if campus.Name == "" || campus.ID == "" {
			return fmt.Errorf("campus_api.campuses[%d]: name and id are required", i)
		}
	}
	if c.Messaging.BaseURL == "" {
		return errors.New("messaging.base_url is required")
	}
	if c.RateLimit.Threshold < 0 {
		return errors.New("rate_limit.threshold must not be negative")
	}
	if c.RateLimit.WindowSeconds < 0 {
		return errors.New("rate_limit.window_seconds must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone invalid: %w", err)
	}
	return nil
}

// Location resolves the configured timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
