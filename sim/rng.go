package sim

import "math/rand/v2"

// FastRNG is a splitmix64 generator. One instance backs one run; nothing in
// this package keeps a shared generator.
type FastRNG struct {
	state uint64
}

func NewFastRNG(seed int64) *FastRNG {
	return &FastRNG{state: uint64(seed)}
}

// Uint64 makes FastRNG a rand.Source.
func (r *FastRNG) Uint64() uint64 {
	r.state += 0x9e3779b97f4a7c15
	z := r.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func (r *FastRNG) Float64() float64 {
	return float64(r.Uint64()>>11) / (1 << 53)
}

// NewRand wraps a seeded FastRNG so callers get NormFloat64, ExpFloat64 and
// friends from math/rand/v2.
func NewRand(seed int64) *rand.Rand {
	return rand.New(NewFastRNG(seed))
}
