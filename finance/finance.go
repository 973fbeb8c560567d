// Package finance turns simulated capacity gains into contribution margin and
// evaluates the payback of a robot fleet investment.
package finance

import (
	"errors"
	"fmt"
	"math"
)

// Assumptions are the hospital's financial constants.
type Assumptions struct {
	MarginPerScan        float64
	OperatingDaysPerYear float64
	DaysPerMonth         float64
	BookingConversion    float64
	AvgScanDuration      float64
	Scanners             int
}

// DefaultAssumptions: $331 per ED/inpatient scan, 360 operating days,
// 60% booking conversion, 12.11 minute scans, three scanners.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		MarginPerScan:        331,
		OperatingDaysPerYear: 360,
		DaysPerMonth:         30,
		BookingConversion:    0.60,
		AvgScanDuration:      12.11,
		Scanners:             3,
	}
}

func (a Assumptions) Validate() error {
	switch {
	case a.MarginPerScan < 0:
		return errors.New("margin_per_scan must be >= 0")
	case !(a.OperatingDaysPerYear > 0):
		return errors.New("operating_days_per_year must be > 0")
	case !(a.DaysPerMonth > 0):
		return errors.New("days_per_month must be > 0")
	case a.BookingConversion < 0 || a.BookingConversion > 1:
		return fmt.Errorf("booking_conversion must be in [0, 1], got %v", a.BookingConversion)
	case !(a.AvgScanDuration > 0):
		return errors.New("avg_scan_duration must be > 0")
	case a.Scanners <= 0:
		return errors.New("scanners must be > 0")
	}
	return nil
}

// Margin is the extra contribution margin from additional scans.
type Margin struct {
	ScansPerDay float64
	Daily       float64
	Monthly     float64
	Annual      float64
}

// AdditionalMargin prices additionalScansPerDay. A month is DaysPerMonth days
// and a year twelve such months.
func (a Assumptions) AdditionalMargin(additionalScansPerDay float64) Margin {
	daily := additionalScansPerDay * a.MarginPerScan
	monthly := daily * a.DaysPerMonth
	return Margin{
		ScansPerDay: additionalScansPerDay,
		Daily:       daily,
		Monthly:     monthly,
		Annual:      monthly * 12,
	}
}

// FreedMinutes is the idle time per scanner per day a scenario removes
// relative to the baseline, never negative.
func FreedMinutes(baselineIdle, scenarioIdle float64) float64 {
	return math.Max(0, baselineIdle-scenarioIdle)
}

// AnnualRevenueFromFreedMinutes converts freed minutes per scanner per day into
// yearly margin, booking only the converted share.
func (a Assumptions) AnnualRevenueFromFreedMinutes(freedPerScanner float64) float64 {
	scansPerScanner := freedPerScanner / a.AvgScanDuration * a.OperatingDaysPerYear
	return scansPerScanner * a.BookingConversion * float64(a.Scanners) * a.MarginPerScan
}

// NewScansPerDay is how many extra scans the freed minutes allow across all
// scanners.
func (a Assumptions) NewScansPerDay(freedPerScanner float64) float64 {
	return freedPerScanner * a.BookingConversion * float64(a.Scanners) / a.AvgScanDuration
}

// Investment describes a fleet purchase: an upfront cost at month 0, a
// monthly benefit that ramps up linearly, and a periodic refresh charged in
// the first month of each new term.
type Investment struct {
	Upfront        float64 `yaml:"upfront"`
	MonthlyBenefit float64 `yaml:"monthly_benefit"`
	RampMonths     int     `yaml:"ramp_months"`
	RefreshCost    float64 `yaml:"refresh_cost"`
	RefreshEvery   int     `yaml:"refresh_every"`
	HorizonMonths  int     `yaml:"horizon_months"`
}

// DefaultInvestment reproduces the three-year fleet case: $625,815 upfront,
// $73,773 a month after a nine month ramp, and a $369,352 refresh every year.
func DefaultInvestment() Investment {
	return Investment{
		Upfront:        625815,
		MonthlyBenefit: 73773,
		RampMonths:     9,
		RefreshCost:    369352,
		RefreshEvery:   12,
		HorizonMonths:  36,
	}
}

func (inv Investment) Validate() error {
	switch {
	case inv.HorizonMonths <= 0:
		return errors.New("horizon_months must be > 0")
	case inv.RampMonths < 0:
		return errors.New("ramp_months must be >= 0")
	case inv.RefreshEvery < 0:
		return errors.New("refresh_every must be >= 0")
	}
	return nil
}

// CashFlows returns HorizonMonths+1 monthly flows, month 0 first.
func (inv Investment) CashFlows() []float64 {
	flows := make([]float64, inv.HorizonMonths+1)
	flows[0] = -inv.Upfront
	for m := 1; m <= inv.HorizonMonths; m++ {
		benefit := inv.MonthlyBenefit
		if m < inv.RampMonths {
			benefit = inv.MonthlyBenefit * float64(m) / float64(inv.RampMonths)
		}
		if inv.RefreshEvery > 0 && m > inv.RefreshEvery && (m-1)%inv.RefreshEvery == 0 {
			benefit -= inv.RefreshCost
		}
		flows[m] = benefit
	}
	return flows
}

// SimplePayback is the month, interpolated within the month, at which the
// cumulative flow first reaches zero. ok is false if it never does.
func SimplePayback(flows []float64) (months float64, ok bool) {
	return payback(flows, func(int) float64 { return 1 })
}

// DiscountedPayback is SimplePayback on flows discounted at annualRate with
// monthly compounding.
func DiscountedPayback(flows []float64, annualRate float64) (months float64, ok bool) {
	return payback(flows, func(m int) float64 { return discount(annualRate, m) })
}

func payback(flows []float64, factor func(month int) float64) (float64, bool) {
	cumulative := 0.0
	for m, cf := range flows {
		v := cf * factor(m)
		prev := cumulative
		cumulative += v
		if cumulative >= 0 {
			if m == 0 || v <= 0 {
				return float64(m), true
			}
			return float64(m-1) + -prev/v, true
		}
	}
	return 0, false
}

// NPV discounts the first years*12+1 monthly flows at annualRate.
func NPV(flows []float64, annualRate float64, years int) float64 {
	n := min(len(flows), years*12+1)
	total := 0.0
	for m := 0; m < n; m++ {
		total += flows[m] * discount(annualRate, m)
	}
	return total
}

func discount(annualRate float64, month int) float64 {
	return 1 / math.Pow(1+annualRate, float64(month)/12)
}
