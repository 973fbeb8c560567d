// Package config loads scenario files and turns them into simulator inputs.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"ct-capacity-simulation/finance"
	"ct-capacity-simulation/sim"
)

// DefaultYAML is the built-in configuration. -write-sample prints it.
//
//go:embed default.yaml
var DefaultYAML []byte

// Demand policy names accepted in scenario files.
const (
	PolicyFixed            = "fixed"
	PolicyWorkflowDerived  = "workflow_derived"
	PolicyEfficiencyScaled = "efficiency_scaled"
)

// File mirrors the YAML layout.
type File struct {
	Seed      int64              `yaml:"seed"`
	Days      int                `yaml:"days"`
	Site      sim.Site           `yaml:"site"`
	Economics sim.Economics      `yaml:"economics"`
	Finance   Finance            `yaml:"finance"`
	Periods   []sim.DemandPeriod `yaml:"periods"`
	Sigmas    map[string]float64 `yaml:"sigmas"`
	Reference string             `yaml:"reference"`
	Scenarios []Scenario         `yaml:"scenarios"`
	Log       Log                `yaml:"log"`
	Store     Store              `yaml:"store"`
}

type Finance struct {
	MarginPerScan        float64            `yaml:"margin_per_scan"`
	OperatingDaysPerYear float64            `yaml:"operating_days_per_year"`
	DaysPerMonth         float64            `yaml:"days_per_month"`
	DiscountRate         float64            `yaml:"discount_rate"`
	Investment           finance.Investment `yaml:"investment"`
}

type Scenario struct {
	Name          string             `yaml:"name"`
	Label         string             `yaml:"label"`
	RobotAssisted bool               `yaml:"robot_assisted"`
	Demand        Demand             `yaml:"demand"`
	Means         map[string]float64 `yaml:"means"`
}

// Demand selects a demand policy. Patients only applies to the fixed policy
// and defaults to the baseline patient count.
type Demand struct {
	Policy   string  `yaml:"policy"`
	Patients float64 `yaml:"patients"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Store struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Load reads path over the built-in defaults, applies environment overrides
// and validates the result. An empty path loads the defaults alone.
func Load(path string) (*File, error) {
	f := &File{}
	if err := decode(DefaultYAML, f); err != nil {
		return nil, fmt.Errorf("failed to parse built-in config: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Lists such as scenarios and periods replace the defaults; maps merge.
		if err := decode(data, f); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := f.applyEnv(); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func decode(data []byte, f *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (f *File) applyEnv() error {
	if v := getEnv("CTSIM_SEED", ""); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid CTSIM_SEED %q: %w", v, err)
		}
		f.Seed = seed
	}
	if v := getEnv("CTSIM_DAYS", ""); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CTSIM_DAYS %q: %w", v, err)
		}
		f.Days = days
	}
	f.Log.Level = getEnv("LOG_LEVEL", f.Log.Level)
	f.Log.Format = getEnv("LOG_FORMAT", f.Log.Format)
	f.Store.Driver = getEnv("CTSIM_DB_DRIVER", f.Store.Driver)
	f.Store.DSN = getEnv("CTSIM_DB_DSN", f.Store.DSN)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Validate checks the file-level settings and builds every scenario once so
// that bad step tables are reported at load time.
func (f *File) Validate() error {
	if f.Days <= 0 {
		return fmt.Errorf("days must be > 0, got %d", f.Days)
	}
	if len(f.Scenarios) == 0 {
		return errors.New("at least one scenario is required")
	}
	seen := make(map[string]bool, len(f.Scenarios))
	for _, s := range f.Scenarios {
		if seen[s.Name] {
			return fmt.Errorf("duplicate scenario %q", s.Name)
		}
		seen[s.Name] = true
	}
	if !seen[f.Reference] {
		return fmt.Errorf("reference scenario %q not defined", f.Reference)
	}
	switch f.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log format must be json or console, got %q", f.Log.Format)
	}
	switch f.Store.Driver {
	case "", "sqlite3", "postgres":
	default:
		return fmt.Errorf("store driver must be sqlite3 or postgres, got %q", f.Store.Driver)
	}
	if err := f.Assumptions().Validate(); err != nil {
		return fmt.Errorf("finance: %w", err)
	}
	if err := f.Finance.Investment.Validate(); err != nil {
		return fmt.Errorf("investment: %w", err)
	}
	_, err := f.BuildScenarios()
	return err
}

// Assumptions combines the finance section with the site and economics it
// depends on.
func (f *File) Assumptions() finance.Assumptions {
	return finance.Assumptions{
		MarginPerScan:        f.Finance.MarginPerScan,
		OperatingDaysPerYear: f.Finance.OperatingDaysPerYear,
		DaysPerMonth:         f.Finance.DaysPerMonth,
		BookingConversion:    f.Economics.BookingConversion,
		AvgScanDuration:      f.Economics.AvgScanDuration,
		Scanners:             f.Site.Scanners,
	}
}

// Label returns the display label of a scenario, falling back to its name.
func (f *File) Label(name string) string {
	for _, s := range f.Scenarios {
		if s.Name == name && s.Label != "" {
			return s.Label
		}
	}
	return name
}

// BuildScenarios converts the file into validated simulator configs, in file
// order.
func (f *File) BuildScenarios() ([]sim.ScenarioConfig, error) {
	sigmas, err := stepMap(f.Sigmas)
	if err != nil {
		return nil, fmt.Errorf("sigmas: %w", err)
	}

	var reference sim.StepTable
	for _, s := range f.Scenarios {
		if s.Name == f.Reference {
			means, err := stepMap(s.Means)
			if err != nil {
				return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
			}
			reference = sim.NewStepTable(means, sigmas)
		}
	}

	out := make([]sim.ScenarioConfig, 0, len(f.Scenarios))
	for _, s := range f.Scenarios {
		means, err := stepMap(s.Means)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		demand, err := f.demandPolicy(s.Demand, reference)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
		}
		cfg := sim.ScenarioConfig{
			Name:          s.Name,
			Site:          f.Site,
			Steps:         sim.NewStepTable(means, sigmas),
			Manual:        reference,
			RobotAssisted: s.RobotAssisted,
			Demand:        demand,
			Periods:       f.Periods,
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (f *File) demandPolicy(d Demand, reference sim.StepTable) (sim.DemandPolicy, error) {
	switch d.Policy {
	case PolicyFixed, "":
		patients := d.Patients
		if patients == 0 {
			patients = f.Economics.BaselinePatients
		}
		return sim.FixedDemand{Patients: patients}, nil
	case PolicyWorkflowDerived:
		return sim.WorkflowDerived{
			BaselinePatients:  f.Economics.BaselinePatients,
			Baseline:          reference,
			BookingConversion: f.Economics.BookingConversion,
			AvgScanDuration:   f.Economics.AvgScanDuration,
		}, nil
	case PolicyEfficiencyScaled:
		return sim.EfficiencyScaled{
			BaselinePatients: f.Economics.BaselinePatients,
			Baseline:         reference,
			AvgScanDuration:  f.Economics.AvgScanDuration,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown demand policy %q", sim.ErrInvalidConfig, d.Policy)
}

func stepMap(byCode map[string]float64) (map[sim.Step]float64, error) {
	out := make(map[sim.Step]float64, len(byCode))
	for code, v := range byCode {
		step, err := sim.ParseStep(code)
		if err != nil {
			return nil, err
		}
		out[step] = v
	}
	return out, nil
}
