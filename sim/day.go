package sim

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"go.uber.org/zap"
)

// ArrivalFunc produces one day's sorted arrival times.
type ArrivalFunc func(r *rand.Rand, cfg *ScenarioConfig) []float64

// PolicyArrivals draws arrivals from the scenario's demand policy and periods.
func PolicyArrivals(r *rand.Rand, cfg *ScenarioConfig) []float64 {
	return GenerateArrivals(r, cfg.DailyPatients(), cfg.periods(), cfg.Deterministic)
}

// FixedArrivals replays the same timestamps every day.
func FixedArrivals(times ...float64) ArrivalFunc {
	sorted := slices.Clone(times)
	slices.Sort(sorted)
	return func(*rand.Rand, *ScenarioConfig) []float64 {
		return slices.Clone(sorted)
	}
}

// DayResult is everything measured on one simulated day.
type DayResult struct {
	Scenario  string
	Arrived   int
	Completed int

	Patients []Patient
	Events   []ScannerEvent

	RobotWaits   []float64
	ScannerWaits []float64

	// IdlePerScanner and BusyPerScanner are clipped to the day, so for each
	// scanner idle + busy == DayLength.
	IdlePerScanner    []float64
	BusyPerScanner    []float64
	AvgIdlePerScanner float64

	// Utilizations count only minutes inside the day, so both stay within
	// [0, 100] even when work or maintenance runs into the drain buffer.
	ScannerUtilization float64 // percent of scanner-minutes not lost to downtime
	RobotUtilization   float64 // percent of robot-minutes in the day
	RobotBusyMinutes   float64

	HourlyScans [HoursPerDay]int
}

// Simulator runs days of one scenario on one random stream.
type Simulator struct {
	Config    ScenarioConfig
	Rand      *rand.Rand
	Durations DurationSource
	Arrivals  ArrivalFunc
	Logger    *zap.Logger
}

// NewSimulator validates cfg and wires the default sampler and arrival
// generator to rng. A nil logger discards output.
func NewSimulator(cfg ScenarioConfig, rng *rand.Rand, logger *zap.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: scenario %q: random source is required", ErrInvalidConfig, cfg.Name)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		Config:    cfg,
		Rand:      rng,
		Durations: NewSampler(rng, cfg.Exam, cfg.Reposition),
		Arrivals:  PolicyArrivals,
		Logger:    logger.With(zap.String("scenario", cfg.Name)),
	}, nil
}

type dayRun struct {
	cfg       *ScenarioConfig
	sched     *Scheduler
	scanners  *Pool
	robots    *Pool
	durations DurationSource
	rng       *rand.Rand

	events       []ScannerEvent
	robotWaits   []float64
	scannerWaits []float64
	robotBusy    float64
	scannerDown  float64
}

// RunDay simulates one day from an empty hospital and returns its metrics.
// It panics if Config was made invalid after NewSimulator.
func (s *Simulator) RunDay() DayResult {
	cfg := &s.Config
	sched := NewScheduler()
	d := &dayRun{
		cfg:       cfg,
		sched:     sched,
		scanners:  mustPool("scanners", cfg.Scanners, sched),
		durations: s.Durations,
		rng:       s.Rand,
	}
	if cfg.RobotAssisted {
		d.robots = mustPool("robots", cfg.Robots, sched)
	}

	downtime := cfg.DowntimeMinutes()
	if downtime > 0 {
		latest := math.Max(0, cfg.DayLength-downtime)
		for i := 0; i < cfg.Scanners; i++ {
			d.downtime(s.Rand.Float64()*latest, downtime)
		}
	}

	arrivals := s.Arrivals(s.Rand, cfg)
	patients := make([]Patient, len(arrivals))
	for i, t := range arrivals {
		patients[i] = Patient{ID: i, Scheduled: t, Scanner: -1}
		pp := &patientProcess{p: &patients[i], day: d}
		pp.start()
	}

	sched.RunUntil(cfg.DayLength + cfg.DrainBuffer)

	res := d.summarize(patients)
	s.Logger.Debug("day simulated",
		zap.Int("arrived", res.Arrived),
		zap.Int("completed", res.Completed),
		zap.Float64("idle_per_scanner", res.AvgIdlePerScanner),
		zap.Int("pending_events", sched.Len()),
	)
	return res
}

func mustPool(name string, capacity int, sched *Scheduler) *Pool {
	p, err := NewPool(name, capacity, sched)
	if err != nil {
		panic(err)
	}
	return p
}

func (d *dayRun) summarize(patients []Patient) DayResult {
	cfg := d.cfg
	events := d.events
	idle, busy := AssignScanners(events, cfg.Scanners, cfg.DayLength)

	res := DayResult{
		Scenario:         cfg.Name,
		Arrived:          len(patients),
		Completed:        len(events),
		Patients:         patients,
		Events:           events,
		RobotWaits:       d.robotWaits,
		ScannerWaits:     d.scannerWaits,
		IdlePerScanner:   idle,
		BusyPerScanner:   busy,
		RobotBusyMinutes: d.robotBusy,
	}

	totalIdle := 0.0
	for _, v := range idle {
		totalIdle += v
	}
	res.AvgIdlePerScanner = totalIdle / float64(cfg.Scanners)

	if available := cfg.DayLength*float64(cfg.Scanners) - d.scannerDown; available > 0 {
		total := 0.0
		for _, b := range busy {
			total += b
		}
		res.ScannerUtilization = total / available * 100
	}
	if cfg.RobotAssisted {
		res.RobotUtilization = d.robotBusy / (cfg.DayLength * float64(cfg.Robots)) * 100
	}

	for _, e := range events {
		patients[e.PatientID].Scanner = e.Scanner
		if h := int(e.StartTime / 60); h >= 0 && h < HoursPerDay {
			res.HourlyScans[h]++
		}
	}
	return res
}

// AssignScanners reconstructs per-scanner schedules from pooled events.
// Events are sorted by start time and each goes to the scanner that became
// free earliest. It returns idle and busy minutes per scanner within
// [0, dayLength] and writes the chosen index into each event.
func AssignScanners(events []ScannerEvent, scanners int, dayLength float64) (idle, busy []float64) {
	slices.SortStableFunc(events, func(a, b ScannerEvent) int {
		return cmp.Compare(a.StartTime, b.StartTime)
	})

	free := make([]float64, scanners)
	idle = make([]float64, scanners)
	busy = make([]float64, scanners)
	clip := func(t float64) float64 { return math.Min(math.Max(t, 0), dayLength) }

	for i := range events {
		e := &events[i]
		k := 0
		for j := 1; j < scanners; j++ {
			if free[j] < free[k] {
				k = j
			}
		}
		idle[k] += math.Max(0, clip(e.StartTime)-clip(free[k]))
		busy[k] += clip(e.EndTime) - clip(e.StartTime)
		free[k] = e.EndTime
		e.Scanner = k
	}
	for k, f := range free {
		idle[k] += dayLength - clip(f)
	}
	return idle, busy
}
