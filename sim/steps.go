package sim

import (
	"fmt"
	"math"
)

// Step identifies one phase of a patient's journey from order to finished scan.
type Step int

const (
	StepProtocol    Step = iota // P: order placed -> scheduled
	StepQueue                   // A: scheduled -> transport requested
	StepAssign                  // B1: requested -> transporter assigned
	StepAcknowledge             // B2: assigned -> acknowledged
	StepPickup                  // B3: acknowledged -> transport start
	StepMove                    // C1: transport start -> transport end
	StepPrep                    // C2: transport end -> CT start
	StepScan                    // C3: CT start -> CT end
	NumSteps
)

var stepCodes = [NumSteps]string{"P", "A", "B1", "B2", "B3", "C1", "C2", "C3"}

// AllSteps is the reporting order P, A, B1, B2, B3, C1, C2, C3.
var AllSteps = []Step{StepProtocol, StepQueue, StepAssign, StepAcknowledge, StepPickup, StepMove, StepPrep, StepScan}

// TransportSteps are the steps between scheduling and the scanner (A..C2).
var TransportSteps = []Step{StepQueue, StepAssign, StepAcknowledge, StepPickup, StepMove, StepPrep}

// robotSteps are the steps during which a robot is physically occupied.
var robotSteps = []Step{StepAssign, StepAcknowledge, StepPickup, StepMove}

func (s Step) String() string {
	if s < 0 || s >= NumSteps {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepCodes[s]
}

// ParseStep maps a step code such as "B2" back to its Step.
func ParseStep(code string) (Step, error) {
	for i, c := range stepCodes {
		if c == code {
			return Step(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown step code %q", ErrInvalidConfig, code)
}

// StepTiming is the mean duration (minutes) and log-normal sigma of a step.
type StepTiming struct {
	Mean  float64
	Sigma float64
}

func (t StepTiming) validate() error {
	if !(t.Mean > 0) || math.IsInf(t.Mean, 0) {
		return fmt.Errorf("mean must be > 0, got %v", t.Mean)
	}
	if !(t.Sigma >= 0) || math.IsInf(t.Sigma, 0) {
		return fmt.Errorf("sigma must be >= 0, got %v", t.Sigma)
	}
	return nil
}

// StepTable holds the timing of every step for one scenario.
type StepTable map[Step]StepTiming

// Validate fails when any step is missing or carries an unusable timing.
func (t StepTable) Validate() error {
	for _, s := range AllSteps {
		timing, ok := t[s]
		if !ok {
			return fmt.Errorf("step %s missing", s)
		}
		if err := timing.validate(); err != nil {
			return fmt.Errorf("step %s: %v", s, err)
		}
	}
	return nil
}

// Clone returns an independent copy so presets can be tweaked per scenario.
func (t StepTable) Clone() StepTable {
	out := make(StepTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func (t StepTable) sumMeans(steps []Step) float64 {
	total := 0.0
	for _, s := range steps {
		total += t[s].Mean
	}
	return total
}

// TheoreticalTotal sums the configured step means. Reporting code uses it for
// the ideal-case turnaround of a scenario.
func TheoreticalTotal(t StepTable) float64 {
	return t.sumMeans(AllSteps)
}

// TransportTotal sums the A..C2 means, i.e. the theoretical total without
// protocoling and scanning.
func TransportTotal(t StepTable) float64 {
	return t.sumMeans(TransportSteps)
}
