/*
Package config loads the server configuration.

PURPOSE:
  One YAML file configures the server and the report engine tunables.
  Every field has a sensible default, so a missing file (or a partial one)
  still yields a runnable configuration. Command-line flags in
  cmd/server/main.go override the file.

EXAMPLE (config.yaml):
  server:
    port: 8080
  store:
    path: ./data/outreach.db
  cache:
    ttl_minutes: 10
  fetch:
    chunk_size: 20
  report:
    title: Outreach Performance Report
    performing_threshold: 10
    high_performer_threshold: 10
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Cache  CacheConfig  `yaml:"cache"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Report ReportConfig `yaml:"report"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

type FetchConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

type ReportConfig struct {
	Title                  string  `yaml:"title"`
	PerformingThreshold    int     `yaml:"performing_threshold"`
	HighPerformerThreshold float64 `yaml:"high_performer_threshold"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080},
		Store:  StoreConfig{Path: "outreach.db"},
		Cache:  CacheConfig{TTLMinutes: 10},
		Fetch:  FetchConfig{ChunkSize: 20},
		Report: ReportConfig{
			Title:                  "Outreach Performance Report",
			PerformingThreshold:    10,
			HighPerformerThreshold: 10,
		},
	}
}

// Load reads path and overlays it on the defaults. A missing file is not an
// error; a malformed file is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// CacheTTL returns the cache TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}
