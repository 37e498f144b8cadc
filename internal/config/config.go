// Package config loads the twin's configuration from a YAML file with
// environment overrides for the common deployment knobs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration consumed by cmd/twin-server.
type Config struct {
	// Channel and Contract are opaque routing identifiers passed through to
	// the asset store.
	Channel  string `yaml:"channel"`
	Contract string `yaml:"contract"`

	// EndorsingOrgs is the organization set required for certain writes.
	// Opaque to the core.
	EndorsingOrgs []string `yaml:"endorsingOrgs"`

	HTTPAddr    string `yaml:"httpAddr"`
	MetricsAddr string `yaml:"metricsAddr"`

	Store      Store      `yaml:"store"`
	Simulation Simulation `yaml:"simulation"`
}

// Store configures the embedded ledger store.
type Store struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"inMemory"`
	SyncWrites bool   `yaml:"syncWrites"`
}

// Simulation configures the orchestrator's initial knobs.
type Simulation struct {
	// Speed is the simulation speed multiplier, > 0.
	Speed float64 `yaml:"speed"`
	// SpawnRate is vehicles per minute, >= 0. Zero disables spawning.
	SpawnRate float64 `yaml:"spawnRate"`
	// BatchSize bounds vehicle moves per mobility tick.
	BatchSize int `yaml:"batchSize"`
	// Autostart launches the simulation on boot.
	Autostart bool `yaml:"autostart"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Channel:     "trafficchannel",
		Contract:    "traffic",
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",
		Store: Store{
			Path:       "data/twin",
			SyncWrites: true,
		},
		Simulation: Simulation{
			Speed:     1,
			SpawnRate: 2,
			BatchSize: 10,
		},
	}
}

// Load reads path on top of the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Simulation.Speed <= 0 {
		return fmt.Errorf("simulation.speed must be > 0, got %v", c.Simulation.Speed)
	}
	if c.Simulation.SpawnRate < 0 {
		return fmt.Errorf("simulation.spawnRate must be >= 0, got %v", c.Simulation.SpawnRate)
	}
	if c.Simulation.BatchSize <= 0 {
		return fmt.Errorf("simulation.batchSize must be > 0, got %v", c.Simulation.BatchSize)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.inMemory is set")
	}
	return nil
}
