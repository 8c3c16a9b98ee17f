package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TrafficSpec describes a synthetic review history.
// Loaded from YAML via LoadTrafficSpec(path); unset keys keep DefaultTrafficSpec values.
type TrafficSpec struct {
	Version string    `yaml:"version"`
	Seed    int64     `yaml:"seed"`
	Start   time.Time `yaml:"start"`

	Videos     int `yaml:"videos"`
	Queues     int `yaml:"queues"`
	Rules      int `yaml:"rules"`
	Lifecycles int `yaml:"lifecycles"`

	FeaturePool          int `yaml:"feature_pool"`
	MaxFeaturesPerVideo  int `yaml:"max_features_per_video"`
	MaxFeaturesPerRule   int `yaml:"max_features_per_rule"`
	MaxPossibleRoutes    int `yaml:"max_possible_routes"`
	MaxDesiredSLAMinutes int `yaml:"max_desired_sla_min"`

	// RoutedFraction is the probability a lifecycle is routed once before its verdict.
	RoutedFraction float64 `yaml:"routed_fraction"`
	// VerdictFraction is the probability a lifecycle has reached a verdict.
	VerdictFraction float64 `yaml:"verdict_fraction"`

	Arrival     ArrivalSpec `yaml:"arrival"`
	ReviewDelay DelaySpec   `yaml:"review_delay"`
}

// ArrivalSpec configures the process generating enqueue times.
type ArrivalSpec struct {
	Process     string   `yaml:"process"`
	RatePerHour float64  `yaml:"rate_per_hour"`
	CV          *float64 `yaml:"cv,omitempty"`
}

// DelaySpec parameterizes the time between two steps of a lifecycle, in minutes.
type DelaySpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

// DefaultTrafficSpec returns a moderate history: a few thousand lifecycles spread
// over tens of queues, with step delays between 1 and 59 minutes.
func DefaultTrafficSpec() TrafficSpec {
	return TrafficSpec{
		Version:              "1",
		Seed:                 42,
		Start:                time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Videos:               3000,
		Queues:               30,
		Rules:                60,
		Lifecycles:           3000,
		FeaturePool:          50,
		MaxFeaturesPerVideo:  10,
		MaxFeaturesPerRule:   2,
		MaxPossibleRoutes:    5,
		MaxDesiredSLAMinutes: 100,
		RoutedFraction:       0.3,
		VerdictFraction:      0.9,
		Arrival:              ArrivalSpec{Process: "poisson", RatePerHour: 120},
		ReviewDelay:          DelaySpec{Type: "uniform", Params: map[string]float64{"min": 1, "max": 59}},
	}
}

var (
	validArrivalProcesses = map[string]bool{
		"poisson": true, "gamma": true, "weibull": true, "constant": true,
	}
	validDelayTypes = map[string]bool{
		"uniform": true, "gaussian": true, "exponential": true, "constant": true,
	}
)

// LoadTrafficSpec reads a YAML traffic specification over DefaultTrafficSpec.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadTrafficSpec(path string) (*TrafficSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading traffic spec: %w", err)
	}
	spec := DefaultTrafficSpec()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing traffic spec: %w", err)
	}
	return &spec, nil
}

// Validate checks that all fields in the spec are usable.
func (s *TrafficSpec) Validate() error {
	for name, n := range map[string]int{
		"videos": s.Videos, "queues": s.Queues, "rules": s.Rules,
		"lifecycles": s.Lifecycles, "feature_pool": s.FeaturePool,
	} {
		if n <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, n)
		}
	}
	if s.MaxFeaturesPerVideo < 0 || s.MaxFeaturesPerVideo > s.FeaturePool {
		return fmt.Errorf("max_features_per_video must be in [0, %d], got %d", s.FeaturePool, s.MaxFeaturesPerVideo)
	}
	if s.MaxFeaturesPerRule < 1 || s.MaxFeaturesPerRule > s.FeaturePool {
		return fmt.Errorf("max_features_per_rule must be in [1, %d], got %d", s.FeaturePool, s.MaxFeaturesPerRule)
	}
	if s.MaxPossibleRoutes < 0 || s.MaxPossibleRoutes >= s.Queues {
		return fmt.Errorf("max_possible_routes must be in [0, %d], got %d", s.Queues-1, s.MaxPossibleRoutes)
	}
	if s.MaxDesiredSLAMinutes < 0 {
		return fmt.Errorf("max_desired_sla_min must be non-negative, got %d", s.MaxDesiredSLAMinutes)
	}
	if err := validateFraction("routed_fraction", s.RoutedFraction); err != nil {
		return err
	}
	if err := validateFraction("verdict_fraction", s.VerdictFraction); err != nil {
		return err
	}
	if !validArrivalProcesses[s.Arrival.Process] {
		return fmt.Errorf("arrival: unknown process %q; valid: poisson, gamma, weibull, constant", s.Arrival.Process)
	}
	if err := validateFinitePositive("arrival.rate_per_hour", s.Arrival.RatePerHour); err != nil {
		return err
	}
	if s.Arrival.CV != nil {
		if err := validateFinitePositive("arrival.cv", *s.Arrival.CV); err != nil {
			return err
		}
		if s.Arrival.Process == "weibull" && (*s.Arrival.CV < 0.01 || *s.Arrival.CV > 10.4) {
			return fmt.Errorf("arrival: weibull CV must be in [0.01, 10.4], got %f", *s.Arrival.CV)
		}
	}
	if !validDelayTypes[s.ReviewDelay.Type] {
		return fmt.Errorf("review_delay: unknown type %q; valid: uniform, gaussian, exponential, constant", s.ReviewDelay.Type)
	}
	for name, val := range s.ReviewDelay.Params {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("review_delay.params.%s must be a finite number, got %f", name, val)
		}
	}
	return nil
}

func validateFraction(name string, val float64) error {
	if math.IsNaN(val) || val < 0 || val > 1 {
		return fmt.Errorf("%s must be in [0, 1], got %f", name, val)
	}
	return nil
}

func validateFinitePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}
