package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// minAcceptance is the smallest probability mass a bounded Gaussian may keep
// inside its bounds. Anything lower would make rejection sampling spin.
const minAcceptance = 1e-4

// LogNormal draws a log-normal duration whose expected value is mean.
// mean must be > 0 and sigma >= 0; StepTable.Validate guarantees both for
// configured steps.
func LogNormal(r *rand.Rand, mean, sigma float64) float64 {
	if sigma == 0 {
		return mean
	}
	mu := math.Log(mean) - 0.5*sigma*sigma
	return math.Exp(mu + sigma*r.NormFloat64())
}

// Bounds describes a Gaussian truncated to [Low, High] by rejection.
type Bounds struct {
	Mean   float64 `yaml:"mean"`
	StdDev float64 `yaml:"stddev"`
	Low    float64 `yaml:"low"`
	High   float64 `yaml:"high"`
}

// Validate rejects bounds that rejection sampling could never (or almost
// never) satisfy.
func (b Bounds) Validate() error {
	if b.Low > b.High {
		return fmt.Errorf("low %v > high %v", b.Low, b.High)
	}
	if !(b.StdDev >= 0) {
		return fmt.Errorf("stddev must be >= 0, got %v", b.StdDev)
	}
	if b.StdDev == 0 {
		if b.Mean < b.Low || b.Mean > b.High {
			return fmt.Errorf("mean %v outside [%v, %v] with zero stddev", b.Mean, b.Low, b.High)
		}
		return nil
	}
	if p := b.acceptance(); p < minAcceptance {
		return fmt.Errorf("bounds [%v, %v] keep only %.2g of N(%v, %v)", b.Low, b.High, p, b.Mean, b.StdDev)
	}
	return nil
}

func (b Bounds) acceptance() float64 {
	cdf := func(x float64) float64 {
		return 0.5 * math.Erfc(-(x-b.Mean)/(b.StdDev*math.Sqrt2))
	}
	return cdf(b.High) - cdf(b.Low)
}

// BoundedGaussian resamples N(Mean, StdDev) until the draw lands in
// [Low, High]. b must have passed Validate.
func BoundedGaussian(r *rand.Rand, b Bounds) float64 {
	if b.StdDev == 0 {
		return b.Mean
	}
	for {
		v := b.Mean + b.StdDev*r.NormFloat64()
		if v >= b.Low && v <= b.High {
			return v
		}
	}
}

// DurationSource produces every stochastic duration a patient needs.
// Tests swap in fixed stubs; Sampler is the real thing.
type DurationSource interface {
	Step(t StepTiming) float64
	Exam() float64
	Reposition() float64
}

// Sampler draws durations from a seeded stream.
type Sampler struct {
	rng        *rand.Rand
	exam       Bounds
	reposition Bounds
}

func NewSampler(rng *rand.Rand, exam, reposition Bounds) *Sampler {
	return &Sampler{rng: rng, exam: exam, reposition: reposition}
}

func (s *Sampler) Step(t StepTiming) float64 {
	return LogNormal(s.rng, t.Mean, t.Sigma)
}

func (s *Sampler) Exam() float64 {
	return BoundedGaussian(s.rng, s.exam)
}

func (s *Sampler) Reposition() float64 {
	return BoundedGaussian(s.rng, s.reposition)
}
