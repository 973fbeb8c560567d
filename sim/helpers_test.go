package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// meanDurations replaces every draw with its configured mean.
type meanDurations struct {
	exam       float64
	reposition float64
}

func (m meanDurations) Step(t StepTiming) float64 { return t.Mean }
func (m meanDurations) Exam() float64 { return m.exam }
func (m meanDurations) Reposition() float64 { return m.reposition }

// zeroTransport makes every step instantaneous and exams a fixed length.
type zeroTransport struct {
	exam float64
}

func (z zeroTransport) Step(StepTiming) float64 { return 0 }
func (z zeroTransport) Exam() float64 { return z.exam }
func (z zeroTransport) Reposition() float64 { return 0 }

func uniformTable(mean float64) StepTable {
	t := make(StepTable, NumSteps)
	for _, s := range AllSteps {
		t[s] = StepTiming{Mean: mean, Sigma: 0.2}
	}
	return t
}

func testSite() Site {
	site := DefaultSite()
	site.ScannerUptime = 1
	site.RobotUptime = 1
	return site
}

func baselineConfig(patients float64) ScenarioConfig {
	table := NewStepTable(BaselineMeans, StepSigmas)
	return ScenarioConfig{
		Name:   "baseline",
		Site:   testSite(),
		Steps:  table,
		Manual: table,
		Demand: FixedDemand{Patients: patients},
	}
}

func newTestSimulator(t testing.TB, cfg ScenarioConfig, seed int64) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg, NewRand(seed), nil)
	require.NoError(t, err)
	return s
}

// requireScannerInvariants checks exclusivity and idle conservation on a day.
func requireScannerInvariants(t testing.TB, cfg ScenarioConfig, day DayResult) {
	t.Helper()
	const eps = 1e-6

	require.LessOrEqual(t, day.Completed, day.Arrived)
	require.Len(t, day.IdlePerScanner, cfg.Scanners)

	last := make([]float64, cfg.Scanners)
	for i := range last {
		last[i] = -1
	}
	for _, e := range day.Events {
		require.GreaterOrEqual(t, e.Scanner, 0)
		require.Less(t, e.Scanner, cfg.Scanners)
		require.GreaterOrEqual(t, e.StartTime+eps, last[e.Scanner], "scanner %d double-booked at %v", e.Scanner, e.StartTime)
		last[e.Scanner] = e.EndTime
	}
	for k := range day.IdlePerScanner {
		require.GreaterOrEqual(t, day.IdlePerScanner[k], -eps)
		require.InDelta(t, cfg.DayLength, day.IdlePerScanner[k]+day.BusyPerScanner[k], eps)
	}
	for _, w := range day.ScannerWaits {
		require.GreaterOrEqual(t, w, 0.0)
	}
	for _, w := range day.RobotWaits {
		require.GreaterOrEqual(t, w, 0.0)
	}
}
