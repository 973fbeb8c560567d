package sim

// Step means measured in the turnaround report, minutes.
var (
	BaselineMeans = map[Step]float64{
		StepProtocol: 27.43, StepQueue: 51.67, StepAssign: 11.77, StepAcknowledge: 3.38,
		StepPickup: 6.55, StepMove: 5.0, StepPrep: 1.6, StepScan: 12.11,
	}
	RovisOnlyMeans = map[Step]float64{
		StepProtocol: 27.43, StepQueue: 51.67, StepAssign: 2.94, StepAcknowledge: 0.85,
		StepPickup: 4.39, StepMove: 5.0, StepPrep: 1.6, StepScan: 12.11,
	}
	RovisWorkflowMeans = map[Step]float64{
		StepProtocol: 27.43, StepQueue: 35.0, StepAssign: 2.94, StepAcknowledge: 0.85,
		StepPickup: 4.39, StepMove: 5.0, StepPrep: 1.6, StepScan: 12.11,
	}
)

// StepSigmas are the log-normal variability factors per step. Queueing and
// admin steps vary most, movement and prep least.
var StepSigmas = map[Step]float64{
	StepProtocol: 0.30, StepQueue: 0.35, StepAssign: 0.40, StepAcknowledge: 0.30,
	StepPickup: 0.40, StepMove: 0.20, StepPrep: 0.15, StepScan: 0.25,
}

// NewStepTable pairs means with sigmas. Steps missing from either map are
// left out so Validate reports them.
func NewStepTable(means, sigmas map[Step]float64) StepTable {
	t := make(StepTable, len(means))
	for s, m := range means {
		sigma, ok := sigmas[s]
		if !ok {
			continue
		}
		t[s] = StepTiming{Mean: m, Sigma: sigma}
	}
	return t
}

// Economics carries the demand-side assumptions shared by the presets.
type Economics struct {
	BaselinePatients  float64 `yaml:"baseline_patients"`
	BookingConversion float64 `yaml:"booking_conversion"`
	AvgScanDuration   float64 `yaml:"avg_scan_duration"`
}

func DefaultEconomics() Economics {
	return Economics{BaselinePatients: 150, BookingConversion: 0.60, AvgScanDuration: 12.11}
}

// PresetScenarios builds baseline, rovis_only, rovis_workflow and wf_only for
// a site. They differ only in data.
func PresetScenarios(site Site, econ Economics) []ScenarioConfig {
	baseline := NewStepTable(BaselineMeans, StepSigmas)
	// wf_only patients travel on wfOnly, not baseline, so the shorter queue
	// step also shortens their direct transport.
	wfOnly := baseline.Clone()
	wfOnly[StepQueue] = StepTiming{Mean: 35.0, Sigma: StepSigmas[StepQueue]}

	derived := WorkflowDerived{
		BaselinePatients:  econ.BaselinePatients,
		Baseline:          baseline,
		BookingConversion: econ.BookingConversion,
		AvgScanDuration:   econ.AvgScanDuration,
	}

	return []ScenarioConfig{
		{Name: "baseline", Site: site, Steps: baseline, Manual: baseline, Demand: FixedDemand{Patients: econ.BaselinePatients}},
		{Name: "rovis_only", Site: site, Steps: NewStepTable(RovisOnlyMeans, StepSigmas), Manual: baseline, RobotAssisted: true, Demand: derived},
		{Name: "rovis_workflow", Site: site, Steps: NewStepTable(RovisWorkflowMeans, StepSigmas), Manual: baseline, RobotAssisted: true, Demand: derived},
		{Name: "wf_only", Site: site, Steps: wfOnly, Manual: baseline, Demand: derived},
	}
}
