package sim

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig wraps every setup-time configuration failure.
var ErrInvalidConfig = errors.New("invalid scenario config")

// MinDrainBuffer is the shortest run-on past the end of the day allowed for
// queues to drain.
const MinDrainBuffer = 240.0

// Site holds the hospital-level parameters shared by every scenario.
type Site struct {
	Scanners        int     `yaml:"scanners"`
	Robots          int     `yaml:"robots"`
	DayLength       float64 `yaml:"day_length"`
	DrainBuffer     float64 `yaml:"drain_buffer"`
	ScannerUptime   float64 `yaml:"scanner_uptime"`
	RobotUptime     float64 `yaml:"robot_uptime"`
	TurnoverMinutes float64 `yaml:"turnover_minutes"`
	Exam            Bounds  `yaml:"exam"`
	Reposition      Bounds  `yaml:"reposition"`
	Deterministic   bool    `yaml:"deterministic"`
}

// DefaultSite is the three-scanner, six-robot configuration of the latest
// model: 90% scanner uptime, 80% robot uptime, 4 minute turnover.
func DefaultSite() Site {
	return Site{
		Scanners:        3,
		Robots:          6,
		DayLength:       MinutesPerDay,
		DrainBuffer:     MinDrainBuffer,
		ScannerUptime:   0.90,
		RobotUptime:     0.80,
		TurnoverMinutes: 4,
		Exam:            Bounds{Mean: 12, StdDev: 3, Low: 5, High: 25},
		Reposition:      Bounds{Mean: 10, StdDev: 2, Low: 5, High: 15},
	}
}

// ScenarioConfig is everything one simulated day needs. It is treated as
// immutable once a Simulator holds it.
type ScenarioConfig struct {
	Name string
	Site

	// Steps are this scenario's timings. Manual holds the human-transport
	// timings a robot falls back to when it is down.
	Steps  StepTable
	Manual StepTable

	RobotAssisted bool
	Demand        DemandPolicy
	Periods       []DemandPeriod
}

// Validate fails fast on anything that would make a run meaningless or never
// finish: missing steps, empty pools, unreachable sampler bounds.
func (c *ScenarioConfig) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: scenario %q: %s", ErrInvalidConfig, c.Name, fmt.Sprintf(format, args...))
	}
	if c.Name == "" {
		return fmt.Errorf("%w: scenario name is required", ErrInvalidConfig)
	}
	if c.Scanners <= 0 {
		return fail("scanners must be > 0, got %d", c.Scanners)
	}
	if c.RobotAssisted && c.Robots <= 0 {
		return fail("robots must be > 0 for a robot-assisted scenario, got %d", c.Robots)
	}
	if !(c.DayLength > 0) {
		return fail("day_length must be > 0")
	}
	if !(c.DrainBuffer >= MinDrainBuffer) {
		return fail("drain_buffer must be >= %v minutes, got %v", MinDrainBuffer, c.DrainBuffer)
	}
	if !(c.ScannerUptime > 0 && c.ScannerUptime <= 1) {
		return fail("scanner_uptime must be in (0, 1], got %v", c.ScannerUptime)
	}
	if !(c.RobotUptime >= 0 && c.RobotUptime <= 1) {
		return fail("robot_uptime must be in [0, 1], got %v", c.RobotUptime)
	}
	if !(c.TurnoverMinutes >= 0) {
		return fail("turnover_minutes must be >= 0")
	}
	if err := c.Exam.Validate(); err != nil {
		return fail("exam: %v", err)
	}
	if c.RobotAssisted {
		if err := c.Reposition.Validate(); err != nil {
			return fail("reposition: %v", err)
		}
		if err := c.Manual.Validate(); err != nil {
			return fail("manual timings: %v", err)
		}
	}
	if err := c.Steps.Validate(); err != nil {
		return fail("%v", err)
	}
	if c.Demand == nil {
		return fail("demand policy is required")
	}
	if err := c.Demand.Validate(); err != nil {
		return fail("demand: %v", err)
	}
	if err := ValidatePeriods(c.periods()); err != nil {
		return fail("%v", err)
	}
	return nil
}

func (c *ScenarioConfig) periods() []DemandPeriod {
	if len(c.Periods) == 0 {
		return StandardPeriods
	}
	return c.Periods
}

// DowntimeMinutes is how long each scanner is blocked for maintenance.
func (c *ScenarioConfig) DowntimeMinutes() float64 {
	return c.DayLength * (1 - c.ScannerUptime)
}

// DailyPatients applies the scenario's demand policy.
func (c *ScenarioConfig) DailyPatients() float64 {
	return c.Demand.DailyPatients(c)
}

// TheoreticalTotal sums this scenario's step means.
func (c *ScenarioConfig) TheoreticalTotal() float64 {
	return TheoreticalTotal(c.Steps)
}
