package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_OrdersByTimeThenInsertion(t *testing.T) {
	s := NewScheduler()
	var got []string
	record := func(name string) func() {
		return func() { got = append(got, name) }
	}
	s.At(5, record("c"))
	s.At(1, record("a"))
	s.At(5, record("d"))
	s.At(2, record("b"))
	s.RunUntil(100)

	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.Equal(t, 100.0, s.Now())
	assert.Zero(t, s.Len())
}

func TestScheduler_RunUntilIsExclusive(t *testing.T) {
	s := NewScheduler()
	ran := 0
	s.At(10, func() { ran++ })
	s.At(9.5, func() { ran++ })
	s.RunUntil(10)

	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 10.0, s.Now())
}

func TestScheduler_ContinuationsAndPastTimes(t *testing.T) {
	s := NewScheduler()
	var times []float64
	s.At(3, func() {
		times = append(times, s.Now())
		s.After(2, func() { times = append(times, s.Now()) })
		s.At(1, func() { times = append(times, s.Now()) })
	})
	s.RunUntil(50)
	require.Len(t, times, 3)
	assert.Equal(t, []float64{3, 3, 5}, times)
}
