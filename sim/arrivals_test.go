package sim

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateArrivals_DeterministicTotal(t *testing.T) {
	for _, daily := range []float64{0, 1, 7.3, 150, 168.31, 170.4, 240, 331.6} {
		got := GenerateArrivals(nil, daily, StandardPeriods, true)
		assert.Len(t, got, int(math.Round(daily)), "daily=%v", daily)
		assert.True(t, slices.IsSorted(got))
		for _, a := range got {
			assert.GreaterOrEqual(t, a, 0.0)
			assert.Less(t, a, float64(MinutesPerDay))
		}
		assert.Equal(t, got, GenerateArrivals(nil, daily, StandardPeriods, true))
	}
}

func TestGenerateArrivals_DeterministicSpacing(t *testing.T) {
	// 240/day puts 14 arrivals in each daytime hour.
	got := GenerateArrivals(nil, 240, StandardPeriods, true)
	var hour7 []float64
	for _, a := range got {
		if a >= 7*60 && a < 8*60 {
			hour7 = append(hour7, a)
		}
	}
	require.Len(t, hour7, 14)
	assert.InDelta(t, 7*60+4.0, hour7[0], 1e-9)
	assert.InDelta(t, 4.0, hour7[1]-hour7[0], 1e-9)
}

func TestGenerateArrivals_StochasticReproducible(t *testing.T) {
	a := GenerateArrivals(NewRand(42), 240, StandardPeriods, false)
	b := GenerateArrivals(NewRand(42), 240, StandardPeriods, false)
	assert.Equal(t, a, b)
	assert.True(t, slices.IsSorted(a))
	assert.NotEqual(t, a, GenerateArrivals(NewRand(43), 240, StandardPeriods, false))
}

func TestGenerateArrivals_StochasticDaytimeShare(t *testing.T) {
	r := NewRand(7)
	const days = 2000
	daytime := 0
	for d := 0; d < days; d++ {
		for _, a := range GenerateArrivals(r, 240, StandardPeriods, false) {
			if a >= 7*60 && a < 19*60 {
				daytime++
			}
		}
	}
	assert.InDelta(t, 240*0.70, float64(daytime)/days, 2)
}

func TestGenerateArrivals_ZeroDemand(t *testing.T) {
	assert.Empty(t, GenerateArrivals(NewRand(1), 0, StandardPeriods, false))
	assert.Empty(t, GenerateArrivals(NewRand(1), 0, StandardPeriods, true))
}

func TestGenerateArrivals_ZeroSharePeriodIsEmpty(t *testing.T) {
	periods := []DemandPeriod{
		{Name: "day", StartHour: 8, EndHour: 20, Share: 1},
		{Name: "night", StartHour: 20, EndHour: 8, Share: 0},
	}
	require.NoError(t, ValidatePeriods(periods))
	for _, det := range []bool{true, false} {
		for _, a := range GenerateArrivals(NewRand(3), 120, periods, det) {
			assert.GreaterOrEqual(t, a, 8*60.0)
			assert.Less(t, a, 20*60.0)
		}
	}
}

func TestGenerateArrivals_DeterministicTotalWithQuietLastHour(t *testing.T) {
	periods := []DemandPeriod{
		{Name: "open", StartHour: 0, EndHour: 23, Share: 1},
		{Name: "closed", StartHour: 23, EndHour: 0, Share: 0},
	}
	require.NoError(t, ValidatePeriods(periods))
	for _, daily := range []float64{10.5, 47.6, 150, 7.3} {
		got := GenerateArrivals(nil, daily, periods, true)
		assert.Len(t, got, int(math.Round(daily)), "daily=%v", daily)
		for _, a := range got {
			assert.Less(t, a, 23*60.0)
		}
	}
}

func TestHourlyExpected_StandardPeriods(t *testing.T) {
	h := HourlyExpected(240, StandardPeriods)
	assert.InDelta(t, 14.0, h[7], 1e-9)
	assert.InDelta(t, 12.0, h[20], 1e-9)
	assert.InDelta(t, 3.0, h[2], 1e-9)
	assert.InDelta(t, 3.0, h[23], 1e-9)
	total := 0.0
	for _, v := range h {
		total += v
	}
	assert.InDelta(t, 240, total, 1e-9)
}

func TestValidatePeriods(t *testing.T) {
	require.NoError(t, ValidatePeriods(StandardPeriods))

	gap := []DemandPeriod{{Name: "day", StartHour: 7, EndHour: 19, Share: 1}}
	assert.ErrorContains(t, ValidatePeriods(gap), "not covered")

	overlap := []DemandPeriod{
		{Name: "a", StartHour: 0, EndHour: 13, Share: 0.5},
		{Name: "b", StartHour: 12, EndHour: 0, Share: 0.5},
	}
	assert.ErrorContains(t, ValidatePeriods(overlap), "covered by")

	shares := []DemandPeriod{
		{Name: "a", StartHour: 0, EndHour: 12, Share: 0.5},
		{Name: "b", StartHour: 12, EndHour: 0, Share: 0.4},
	}
	assert.ErrorContains(t, ValidatePeriods(shares), "sum")
}

func TestDemandPolicies(t *testing.T) {
	presets := PresetScenarios(DefaultSite(), DefaultEconomics())
	byName := map[string]*ScenarioConfig{}
	for i := range presets {
		byName[presets[i].Name] = &presets[i]
	}

	assert.InDelta(t, 150, byName["baseline"].DailyPatients(), 1e-9)
	assert.InDelta(t, 168.3115, byName["rovis_only"].DailyPatients(), 0.01)
	assert.Greater(t, byName["rovis_workflow"].DailyPatients(), byName["rovis_only"].DailyPatients())

	baseline := NewStepTable(BaselineMeans, StepSigmas)
	scaled := EfficiencyScaled{BaselinePatients: 150, Baseline: baseline, AvgScanDuration: 12.11}
	assert.InDelta(t, 150*119.51/105.99, scaled.DailyPatients(byName["rovis_only"]), 1e-6)

	capped := WorkflowDerived{BaselinePatients: 1000, Baseline: baseline, BookingConversion: 1, AvgScanDuration: 12.11}
	assert.InDelta(t, PhysicalCapacity(byName["rovis_only"], 12.11), capped.DailyPatients(byName["rovis_only"]), 1e-9)

	assert.Error(t, FixedDemand{Patients: -1}.Validate())
	assert.Error(t, WorkflowDerived{BaselinePatients: 150, Baseline: baseline, BookingConversion: 1.5, AvgScanDuration: 12}.Validate())
	assert.Error(t, EfficiencyScaled{BaselinePatients: 150, Baseline: baseline}.Validate())
}
