package sim

import "math"

// PatientState is where a patient is in the transport-to-scan pipeline.
type PatientState int

const (
	StateScheduled PatientState = iota
	StateTransportDirect
	StateTransportQueued
	StateAwaitingScanner
	StateScanning
	StateDone
)

var stateNames = [...]string{"scheduled", "transport_direct", "transport_queued", "awaiting_scanner", "scanning", "done"}

func (s PatientState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Patient is filled in as its process advances. Times are minutes from the
// start of the day; Scanner stays -1 until the post-pass assigns one.
type Patient struct {
	ID        int
	Scheduled float64
	State     PatientState

	RobotRequested float64
	RobotAcquired  float64
	RobotReleased  float64
	RobotFailed    bool
	UsedRobot      bool

	ScannerRequested float64
	ScanStart        float64
	ScanEnd          float64
	Scanner          int

	RobotWait   float64
	ScannerWait float64
}

// ScannerEvent records one exam's hold on a scanner, turnover included.
type ScannerEvent struct {
	PatientID   int
	RequestTime float64
	StartTime   float64
	EndTime     float64
	Scanner     int
}

func (e ScannerEvent) Duration() float64 { return e.EndTime - e.StartTime }

// patientProcess walks one Patient through its states. Every method is a
// continuation run by the scheduler.
type patientProcess struct {
	p   *Patient
	day *dayRun
}

func (pp *patientProcess) start() {
	pp.day.sched.At(pp.p.Scheduled, pp.beginTransport)
}

func (pp *patientProcess) beginTransport() {
	d := pp.day
	if !d.cfg.RobotAssisted {
		pp.p.State = StateTransportDirect
		total := 0.0
		for _, s := range TransportSteps {
			total += d.durations.Step(d.cfg.Steps[s])
		}
		d.sched.After(total, pp.requestScanner)
		return
	}
	pp.p.State = StateTransportQueued
	d.sched.After(d.durations.Step(d.cfg.Steps[StepQueue]), pp.requestRobot)
}

func (pp *patientProcess) requestRobot() {
	pp.p.RobotRequested = pp.day.sched.Now()
	pp.day.robots.Acquire(pp.robotAcquired)
}

// robotAcquired decides whether the robot works. A robot that is down still
// travels the route at manual pace and must reposition before it is free.
func (pp *patientProcess) robotAcquired() {
	d := pp.day
	now := d.sched.Now()
	pp.p.UsedRobot = true
	pp.p.RobotAcquired = now
	pp.p.RobotWait = now - pp.p.RobotRequested
	d.robotWaits = append(d.robotWaits, pp.p.RobotWait)

	table := d.cfg.Steps
	if d.rng.Float64() >= d.cfg.RobotUptime {
		table = d.cfg.Manual
		pp.p.RobotFailed = true
	}
	occupied := 0.0
	for _, s := range robotSteps {
		occupied += d.durations.Step(table[s])
	}
	occupied += d.durations.Reposition()
	d.robotBusy += d.inDay(now, now+occupied)
	d.sched.After(occupied, pp.releaseRobot)
}

func (pp *patientProcess) releaseRobot() {
	d := pp.day
	pp.p.RobotReleased = d.sched.Now()
	d.robots.Release()
	d.sched.After(d.durations.Step(d.cfg.Steps[StepPrep]), pp.requestScanner)
}

func (pp *patientProcess) requestScanner() {
	pp.p.State = StateAwaitingScanner
	pp.p.ScannerRequested = pp.day.sched.Now()
	pp.day.scanners.Acquire(pp.scanAcquired)
}

func (pp *patientProcess) scanAcquired() {
	d := pp.day
	now := d.sched.Now()
	pp.p.State = StateScanning
	pp.p.ScanStart = now
	pp.p.ScannerWait = now - pp.p.ScannerRequested
	d.scannerWaits = append(d.scannerWaits, pp.p.ScannerWait)

	hold := d.durations.Exam() + d.cfg.TurnoverMinutes
	pp.p.ScanEnd = now + hold
	d.events = append(d.events, ScannerEvent{
		PatientID:   pp.p.ID,
		RequestTime: pp.p.ScannerRequested,
		StartTime:   now,
		EndTime:     now + hold,
		Scanner:     -1,
	})
	d.sched.After(hold, pp.finish)
}

func (pp *patientProcess) finish() {
	pp.day.scanners.Release()
	pp.p.State = StateDone
}

// downtime blocks one scanner unit for a contiguous maintenance window, going
// through the same pool as patients. A window queued behind patients can slip
// past the end of the day; only the part inside the day is counted.
func (d *dayRun) downtime(start, length float64) {
	d.sched.At(start, func() {
		d.scanners.Acquire(func() {
			now := d.sched.Now()
			d.scannerDown += d.inDay(now, now+length)
			d.sched.After(length, d.scanners.Release)
		})
	})
}

// inDay is the length of [from, to] that falls inside the working day.
func (d *dayRun) inDay(from, to float64) float64 {
	return math.Max(0, math.Min(to, d.cfg.DayLength)-math.Max(from, 0))
}
