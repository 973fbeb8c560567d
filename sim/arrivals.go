package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	HoursPerDay   = 24
	MinutesPerDay = HoursPerDay * 60
)

// DemandPeriod gives a block of the day a fixed share of daily volume.
// EndHour may be smaller than StartHour for blocks that wrap past midnight.
type DemandPeriod struct {
	Name      string  `yaml:"name"`
	StartHour int     `yaml:"start_hour"`
	EndHour   int     `yaml:"end_hour"`
	Share     float64 `yaml:"share"`
}

// StandardPeriods: 70% daytime, 20% evening, 10% overnight.
var StandardPeriods = []DemandPeriod{
	{Name: "daytime", StartHour: 7, EndHour: 19, Share: 0.70},
	{Name: "evening", StartHour: 19, EndHour: 23, Share: 0.20},
	{Name: "overnight", StartHour: 23, EndHour: 7, Share: 0.10},
}

func (p DemandPeriod) Hours() int {
	if p.EndHour > p.StartHour {
		return p.EndHour - p.StartHour
	}
	return HoursPerDay - p.StartHour + p.EndHour
}

func (p DemandPeriod) Contains(hour int) bool {
	if p.EndHour > p.StartHour {
		return hour >= p.StartHour && hour < p.EndHour
	}
	return hour >= p.StartHour || hour < p.EndHour
}

// ValidatePeriods checks that every hour belongs to exactly one period and
// that shares add up to one.
func ValidatePeriods(periods []DemandPeriod) error {
	if len(periods) == 0 {
		return fmt.Errorf("no demand periods")
	}
	var owner [HoursPerDay]int
	total := 0.0
	for i, p := range periods {
		if p.StartHour < 0 || p.StartHour >= HoursPerDay || p.EndHour < 0 || p.EndHour >= HoursPerDay || p.StartHour == p.EndHour {
			return fmt.Errorf("period %q has invalid hours %d-%d", p.Name, p.StartHour, p.EndHour)
		}
		if p.Share < 0 {
			return fmt.Errorf("period %q has negative share", p.Name)
		}
		total += p.Share
		for h := 0; h < HoursPerDay; h++ {
			if !p.Contains(h) {
				continue
			}
			if owner[h] != 0 {
				return fmt.Errorf("hour %d covered by %q and %q", h, periods[owner[h]-1].Name, p.Name)
			}
			owner[h] = i + 1
		}
	}
	for h, o := range owner {
		if o == 0 {
			return fmt.Errorf("hour %d not covered by any period", h)
		}
	}
	if math.Abs(total-1) > 1e-9 {
		return fmt.Errorf("period shares sum to %v, want 1", total)
	}
	return nil
}

// HourlyExpected spreads daily volume over the 24 hours of the day.
func HourlyExpected(daily float64, periods []DemandPeriod) [HoursPerDay]float64 {
	var out [HoursPerDay]float64
	for _, p := range periods {
		rate := daily * p.Share / float64(p.Hours())
		for h := 0; h < HoursPerDay; h++ {
			if p.Contains(h) {
				out[h] = rate
			}
		}
	}
	return out
}

// GenerateArrivals returns sorted arrival times (minutes) in [0, 1440).
//
// Stochastic mode runs a Poisson process per hour. Deterministic mode spaces
// floor(expected+carry) arrivals evenly inside each hour and carries the
// fraction forward; the last hour with positive demand rounds so the day
// total is round(daily).
func GenerateArrivals(r *rand.Rand, daily float64, periods []DemandPeriod, deterministic bool) []float64 {
	expected := HourlyExpected(daily, periods)
	arrivals := make([]float64, 0, int(daily)+HoursPerDay)

	lastActive := -1
	for h, e := range expected {
		if e > 0 {
			lastActive = h
		}
	}

	carry := 0.0
	for hour := 0; hour < HoursPerDay; hour++ {
		exp := expected[hour]
		start := float64(hour * 60)
		end := start + 60

		if deterministic {
			if exp <= 0 {
				continue
			}
			want := exp + carry
			var count int
			if hour == lastActive {
				count = int(math.Round(want))
			} else {
				count = int(math.Floor(want + 1e-9))
			}
			carry = want - float64(count)
			if count <= 0 {
				continue
			}
			spacing := 60.0 / float64(count+1)
			for i := 0; i < count; i++ {
				arrivals = append(arrivals, start+spacing*float64(i+1))
			}
			continue
		}

		if exp <= 0 {
			continue
		}
		meanGap := 60.0 / exp
		t := start
		for {
			t += r.ExpFloat64() * meanGap
			if t >= end {
				break
			}
			arrivals = append(arrivals, t)
		}
	}
	return arrivals
}

// DemandPolicy decides how many patients a scenario sees per day. The source
// scripts disagree on the formula, so it is pluggable.
type DemandPolicy interface {
	DailyPatients(cfg *ScenarioConfig) float64
	Validate() error
}

// FixedDemand is a calibration anchor, typically used for the baseline.
type FixedDemand struct {
	Patients float64
}

func (d FixedDemand) DailyPatients(*ScenarioConfig) float64 { return d.Patients }

func (d FixedDemand) Validate() error {
	if !(d.Patients >= 0) {
		return fmt.Errorf("fixed demand must be >= 0, got %v", d.Patients)
	}
	return nil
}

// WorkflowDerived grows baseline demand by the transport speed-up, converts
// only BookingConversion of that gain into bookings, and caps the result at
// what the scanners can physically do.
type WorkflowDerived struct {
	BaselinePatients  float64
	Baseline          StepTable
	BookingConversion float64
	AvgScanDuration   float64
}

func (d WorkflowDerived) DailyPatients(cfg *ScenarioConfig) float64 {
	improvement := 1.0
	if scenario := TransportTotal(cfg.Steps); scenario > 0 {
		improvement = TransportTotal(d.Baseline) / scenario
	}
	theoretical := d.BaselinePatients * improvement
	improved := d.BaselinePatients + (theoretical-d.BaselinePatients)*d.BookingConversion
	return math.Min(improved, PhysicalCapacity(cfg, d.AvgScanDuration))
}

func (d WorkflowDerived) Validate() error {
	if !(d.BaselinePatients >= 0) {
		return fmt.Errorf("baseline patients must be >= 0")
	}
	if d.BookingConversion < 0 || d.BookingConversion > 1 {
		return fmt.Errorf("booking conversion must be in [0, 1], got %v", d.BookingConversion)
	}
	if !(d.AvgScanDuration > 0) {
		return fmt.Errorf("average scan duration must be > 0")
	}
	if err := d.Baseline.Validate(); err != nil {
		return fmt.Errorf("baseline table: %v", err)
	}
	return nil
}

// EfficiencyScaled multiplies baseline demand by the full cycle-time ratio
// with no booking conversion.
type EfficiencyScaled struct {
	BaselinePatients float64
	Baseline         StepTable
	AvgScanDuration  float64
}

func (d EfficiencyScaled) DailyPatients(cfg *ScenarioConfig) float64 {
	multiplier := 1.0
	if cycle := TheoreticalTotal(cfg.Steps); cycle > 0 {
		multiplier = TheoreticalTotal(d.Baseline) / cycle
	}
	return math.Min(d.BaselinePatients*multiplier, PhysicalCapacity(cfg, d.AvgScanDuration))
}

func (d EfficiencyScaled) Validate() error {
	if !(d.BaselinePatients >= 0) {
		return fmt.Errorf("baseline patients must be >= 0")
	}
	if !(d.AvgScanDuration > 0) {
		return fmt.Errorf("average scan duration must be > 0")
	}
	if err := d.Baseline.Validate(); err != nil {
		return fmt.Errorf("baseline table: %v", err)
	}
	return nil
}

// PhysicalCapacity is the most scans the scanners could run back to back in a day.
func PhysicalCapacity(cfg *ScenarioConfig, avgScanDuration float64) float64 {
	return cfg.DayLength * float64(cfg.Scanners) / avgScanDuration
}
