package workload

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// DelaySampler generates the time between two steps of a lifecycle.
type DelaySampler interface {
	// Sample returns a delay of at least one minute, in whole minutes.
	Sample(rng *rand.Rand) time.Duration
}

// UniformSampler draws whole minutes uniformly from [min, max].
type UniformSampler struct {
	min, max int
}

func (s *UniformSampler) Sample(rng *rand.Rand) time.Duration {
	return minutes(float64(s.min + rng.Intn(s.max-s.min+1)))
}

// GaussianSampler produces clamped Gaussian delays.
type GaussianSampler struct {
	mean, stdDev float64
	min, max     float64
}

func (s *GaussianSampler) Sample(rng *rand.Rand) time.Duration {
	if s.min == s.max {
		return minutes(s.min)
	}
	val := rng.NormFloat64()*s.stdDev + s.mean
	return minutes(math.Min(s.max, math.Max(s.min, val)))
}

// ExponentialSampler produces exponentially-distributed delays.
type ExponentialSampler struct {
	mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) time.Duration {
	return minutes(rng.ExpFloat64() * s.mean)
}

// ConstantSampler always returns the same delay.
type ConstantSampler struct {
	value float64
}

func (s *ConstantSampler) Sample(_ *rand.Rand) time.Duration {
	return minutes(s.value)
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

// NewDelaySampler creates a DelaySampler from a DelaySpec.
func NewDelaySampler(spec DelaySpec) (DelaySampler, error) {
	switch spec.Type {
	case "uniform":
		if err := requireParam(spec.Params, "min", "max"); err != nil {
			return nil, err
		}
		lo, hi := int(spec.Params["min"]), int(spec.Params["max"])
		if lo < 1 || hi < lo {
			return nil, fmt.Errorf("uniform delay needs 1 <= min <= max, got [%d, %d]", lo, hi)
		}
		return &UniformSampler{min: lo, max: hi}, nil

	case "gaussian":
		if err := requireParam(spec.Params, "mean", "std_dev", "min", "max"); err != nil {
			return nil, err
		}
		return &GaussianSampler{
			mean:   spec.Params["mean"],
			stdDev: spec.Params["std_dev"],
			min:    spec.Params["min"],
			max:    spec.Params["max"],
		}, nil

	case "exponential":
		if err := requireParam(spec.Params, "mean"); err != nil {
			return nil, err
		}
		return &ExponentialSampler{mean: spec.Params["mean"]}, nil

	case "constant":
		if err := requireParam(spec.Params, "value"); err != nil {
			return nil, err
		}
		return &ConstantSampler{value: spec.Params["value"]}, nil

	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}

// maxDelayMinutes caps a single step at one year.
const maxDelayMinutes = 365 * 24 * 60

// minutes rounds a float minute count to a whole-minute duration of at least 1m.
func minutes(v float64) time.Duration {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 1 {
		return time.Minute
	}
	if v > maxDelayMinutes {
		v = maxDelayMinutes
	}
	return time.Duration(math.Round(v)) * time.Minute
}
