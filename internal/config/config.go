package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database   DatabaseConfig    `yaml:"database"`
	GeoIP      GeoIPConfig       `yaml:"geoip"`
	ProxyURL   string            `yaml:"proxy_url"` // optional upstream for collectors and publishers
	Workers    int               `yaml:"workers"`   // collectors run concurrently
	Serve      ServeConfig       `yaml:"serve"`
	Collectors []CollectorConfig `yaml:"collectors"`
	Publishers []PublisherConfig `yaml:"publishers"`
}

type DatabaseConfig struct {
	Path       string `yaml:"path"`
	MaxProxies int    `yaml:"max_proxies"`
}

type GeoIPConfig struct {
	CountryPath string `yaml:"country_path"`
}

// ServeConfig drives the long-running serve command.
type ServeConfig struct {
	Listen   string `yaml:"listen"`
	Schedule string `yaml:"schedule"`  // cron spec for the collect cycle
	CacheTTL int    `yaml:"cache_ttl"` // seconds a rendered subscription is reused
}

type CollectorConfig struct {
	Name   string                 `yaml:"name"`
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

type PublisherConfig struct {
	Name      string                 `yaml:"name"`
	Type      string                 `yaml:"type"`
	Protocols []string               `yaml:"protocols"` // empty means every protocol
	Params    map[string]interface{} `yaml:"params"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document on top of the defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	// Defaults
	cfg.Database.Path = "proxies.db"
	cfg.Database.MaxProxies = 10000
	cfg.GeoIP.CountryPath = "GeoLite2-Country.mmdb"
	cfg.Workers = 4
	cfg.Serve.Listen = ":8080"
	cfg.Serve.Schedule = "@every 1h"
	cfg.Serve.CacheTTL = 60

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}

	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}

	for i, c := range cfg.Collectors {
		if c.Name == "" || c.Type == "" {
			return nil, fmt.Errorf("collector #%d: name and type are required", i+1)
		}
	}
	for i, p := range cfg.Publishers {
		if p.Name == "" || p.Type == "" {
			return nil, fmt.Errorf("publisher #%d: name and type are required", i+1)
		}
	}

	return &cfg, nil
}

func (c *Config) FilterCollectors(names []string) {
	if len(names) == 0 {
		return
	}
	whitelist := make(map[string]bool)
	for _, n := range names {
		whitelist[n] = true
	}
	var filtered []CollectorConfig
	for _, item := range c.Collectors {
		if whitelist[item.Name] {
			filtered = append(filtered, item)
		}
	}
	c.Collectors = filtered
}

func (c *Config) FilterPublishers(names []string) {
	if len(names) == 0 {
		return
	}
	whitelist := make(map[string]bool)
	for _, n := range names {
		whitelist[n] = true
	}
	var filtered []PublisherConfig
	for _, item := range c.Publishers {
		if whitelist[item.Name] {
			filtered = append(filtered, item)
		}
	}
	c.Publishers = filtered
}

// ApplyOverrides copies --param style overrides into params, turning
// integer-looking values into ints. A nil params map is allocated.
func ApplyOverrides(params map[string]interface{}, overrides map[string]string) map[string]interface{} {
	if params == nil {
		params = make(map[string]interface{})
	}
	for k, v := range overrides {
		if intVal, err := strconv.Atoi(v); err == nil {
			params[k] = intVal
		} else {
			params[k] = v
		}
	}
	return params
}
