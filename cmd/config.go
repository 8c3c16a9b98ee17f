package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/review-impact/impact-sim/service"
	"github.com/review-impact/impact-sim/sim"
	"github.com/review-impact/impact-sim/sim/trace"
	"github.com/review-impact/impact-sim/store"
)

// SimulationConfig is the YAML form of sim.Config.
type SimulationConfig struct {
	ReviewMinutes     int           `yaml:"review_minutes"`
	ReviewersPerQueue int           `yaml:"reviewers_per_queue"`
	PriorityOrder     string        `yaml:"priority_order"`
	MaxEvents         int           `yaml:"max_events"`
	Horizon           time.Duration `yaml:"horizon"`
	TraceLevel        string        `yaml:"trace_level"`
}

// RedisConfig locates the message bus. An empty Addr disables it.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ServiceConfig represents the full service YAML file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type ServiceConfig struct {
	DataSource store.Options          `yaml:"data_source"`
	Simulation SimulationConfig       `yaml:"simulation"`
	Redis      RedisConfig            `yaml:"redis"`
	Bus        service.ListenerConfig `yaml:"bus"`
	HTTPAddr   string                 `yaml:"http_addr"`
}

func defaultSimulationConfig() SimulationConfig {
	d := sim.DefaultConfig()
	return SimulationConfig{
		ReviewMinutes:     int(d.ReviewDuration / time.Minute),
		ReviewersPerQueue: d.ReviewersPerQueue,
		PriorityOrder:     string(d.PriorityOrder),
		MaxEvents:         d.MaxEvents,
		Horizon:           d.Horizon,
		TraceLevel:        string(d.TraceLevel),
	}
}

func defaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Simulation: defaultSimulationConfig(),
		Bus:        service.DefaultListenerConfig(),
		HTTPAddr:   ":8080",
	}
}

// loadServiceConfig parses a service YAML file over the defaults.
// Uses strict field checking: typos must cause errors.
func loadServiceConfig(path string) (ServiceConfig, error) {
	cfg := defaultServiceConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading service config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing service config %s: %w", path, err)
	}
	return cfg, nil
}

// toSim converts to a validated sim.Config.
func (c SimulationConfig) toSim() (sim.Config, error) {
	cfg := sim.Config{
		ReviewDuration:    time.Duration(c.ReviewMinutes) * time.Minute,
		ReviewersPerQueue: c.ReviewersPerQueue,
		PriorityOrder:     sim.PriorityOrder(c.PriorityOrder),
		MaxEvents:         c.MaxEvents,
		Horizon:           c.Horizon,
		TraceLevel:        trace.TraceLevel(c.TraceLevel),
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadChangeRequest reads a change request from a YAML or JSON file.
func loadChangeRequest(path string) (sim.ChangeRequest, error) {
	var req sim.ChangeRequest
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("reading change request: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&req); err != nil {
		return req, fmt.Errorf("parsing change request %s: %w", path, err)
	}
	return req, nil
}
