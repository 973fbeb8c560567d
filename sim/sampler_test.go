package sim

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNormal_MeanConverges(t *testing.T) {
	cases := []struct {
		mean, sigma float64
	}{
		{27.43, 0.30},
		{51.67, 0.35},
		{3.38, 0.30},
		{1.0, 0.50},
		{5.0, 0},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("mean=%v/sigma=%v", tc.mean, tc.sigma), func(t *testing.T) {
			r := NewRand(2024)
			const n = 100000
			sum := 0.0
			for i := 0; i < n; i++ {
				v := LogNormal(r, tc.mean, tc.sigma)
				require.Greater(t, v, 0.0)
				sum += v
			}
			assert.InEpsilon(t, tc.mean, sum/n, 0.03)
		})
	}
}

func TestBoundedGaussian_StaysInBounds(t *testing.T) {
	site := DefaultSite()
	for name, b := range map[string]Bounds{"exam": site.Exam, "reposition": site.Reposition} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, b.Validate())
			r := NewRand(11)
			for i := 0; i < 100000; i++ {
				v := BoundedGaussian(r, b)
				require.GreaterOrEqual(t, v, b.Low)
				require.LessOrEqual(t, v, b.High)
			}
		})
	}
}

func TestBounds_ValidateRejectsDegenerate(t *testing.T) {
	cases := map[string]Bounds{
		"inverted":        {Mean: 12, StdDev: 3, Low: 25, High: 5},
		"negative stddev": {Mean: 12, StdDev: -1, Low: 5, High: 25},
		"zero stddev out": {Mean: 30, StdDev: 0, Low: 5, High: 25},
		"unreachable":     {Mean: 12, StdDev: 1, Low: 100, High: 200},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, b.Validate())
		})
	}
	assert.NoError(t, Bounds{Mean: 10, StdDev: 0, Low: 10, High: 10}.Validate())
}

func TestSampler_UsesInjectedStream(t *testing.T) {
	site := DefaultSite()
	a := NewSampler(NewRand(5), site.Exam, site.Reposition)
	b := NewSampler(NewRand(5), site.Exam, site.Reposition)
	timing := StepTiming{Mean: 6.55, Sigma: 0.4}
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Step(timing), b.Step(timing))
		assert.Equal(t, a.Exam(), b.Exam())
		assert.Equal(t, a.Reposition(), b.Reposition())
	}
}
