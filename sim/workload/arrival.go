package workload

import (
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// ArrivalSampler generates the gaps between consecutive enqueues.
type ArrivalSampler interface {
	// SampleInterval returns the next inter-arrival gap. Always at least one second.
	SampleInterval(rng *rand.Rand) time.Duration
}

// PoissonSampler generates exponentially-distributed gaps (CV=1).
type PoissonSampler struct {
	ratePerSecond float64
}

func (s *PoissonSampler) SampleInterval(rng *rand.Rand) time.Duration {
	return seconds(rng.ExpFloat64() / s.ratePerSecond)
}

// GammaSampler generates Gamma-distributed gaps. CV > 1 produces bursty traffic.
type GammaSampler struct {
	shape float64 // 1/CV²
	scale float64 // CV²/rate, in seconds
}

func (s *GammaSampler) SampleInterval(rng *rand.Rand) time.Duration {
	return seconds(gammaRand(rng, s.shape, s.scale))
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// WeibullSampler generates Weibull-distributed gaps.
type WeibullSampler struct {
	shape float64 // k
	scale float64 // λ, in seconds
}

func (s *WeibullSampler) SampleInterval(rng *rand.Rand) time.Duration {
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64
	}
	return seconds(s.scale * math.Pow(-math.Log(u), 1.0/s.shape))
}

// ConstantArrivalSampler spaces enqueues evenly.
type ConstantArrivalSampler struct {
	interval time.Duration
}

func (s *ConstantArrivalSampler) SampleInterval(_ *rand.Rand) time.Duration {
	return max(s.interval, time.Second)
}

// NewArrivalSampler creates an ArrivalSampler from a validated spec.
func NewArrivalSampler(spec ArrivalSpec) ArrivalSampler {
	rate := spec.RatePerHour / 3600.0
	if rate < 1e-12 {
		rate = 1e-12
	}
	cv := 1.0
	if spec.CV != nil && *spec.CV > 0 {
		cv = *spec.CV
	}
	mean := 1.0 / rate

	switch spec.Process {
	case "gamma":
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to Poisson", shape, cv)
			return &PoissonSampler{ratePerSecond: rate}
		}
		return &GammaSampler{shape: shape, scale: mean * cv * cv}
	case "weibull":
		k := weibullShapeFromCV(cv)
		return &WeibullSampler{shape: k, scale: mean / math.Gamma(1.0+1.0/k)}
	case "constant":
		return &ConstantArrivalSampler{interval: time.Duration(mean * float64(time.Second))}
	default:
		return &PoissonSampler{ratePerSecond: rate}
	}
}

// weibullShapeFromCV finds k such that CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, by bisection
// over [0.1, 100].
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV is monotonically decreasing in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}

// seconds converts a float second count to a whole-second duration of at least 1s.
func seconds(v float64) time.Duration {
	if math.IsNaN(v) || v < 1 {
		return time.Second
	}
	if v > float64(math.MaxInt64/int64(time.Second)) {
		v = float64(math.MaxInt64 / int64(time.Second))
	}
	return time.Duration(v) * time.Second
}
