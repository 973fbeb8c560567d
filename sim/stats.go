package sim

import "math"

// OnlineStats tracks running mean and variance
type OnlineStats struct {
	n    int
	mean float64
	m2   float64 // Sum of squared differences from mean
}

func (s *OnlineStats) Add(x float64) {
	s.n++
	delta := x - s.mean
	s.mean += delta / float64(s.n)
	delta2 := x - s.mean
	s.m2 += delta * delta2
}

func (s *OnlineStats) Count() int {
	return s.n
}

func (s *OnlineStats) Mean() float64 {
	return s.mean
}

func (s *OnlineStats) Variance() float64 {
	if s.n < 2 {
		return 0
	}
	return s.m2 / float64(s.n-1)
}

func (s *OnlineStats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

func (s *OnlineStats) StdErr() float64 {
	if s.n < 2 {
		return math.Inf(1)
	}
	return s.StdDev() / math.Sqrt(float64(s.n))
}
