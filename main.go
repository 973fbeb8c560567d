// Command ct-capacity-simulation compares CT patient-flow scenarios: manual
// transport against robot-assisted transport and workflow changes. It
// simulates every scenario for the configured number of days, prints the
// operational metrics in file order, then prices the difference against the
// reference scenario.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"ct-capacity-simulation/config"
	"ct-capacity-simulation/finance"
	"ct-capacity-simulation/logger"
	"ct-capacity-simulation/sim"
	"ct-capacity-simulation/store"
)

// ScenarioRun is one scenario's aggregate, tagged with its position in the
// config so output stays in file order.
type ScenarioRun struct {
	SeqID  int
	Config sim.ScenarioConfig
	Result sim.AggregateResult
	Err    error
}

// runScenario gives every scenario the same seed so they see common random
// numbers and differences come from the scenario, not the stream.
func runScenario(seq int, cfg sim.ScenarioConfig, seed int64, days int, log *zap.Logger) ScenarioRun {
	run := ScenarioRun{SeqID: seq, Config: cfg}
	s, err := sim.NewSimulator(cfg, sim.NewRand(seed), log)
	if err != nil {
		run.Err = err
		return run
	}
	run.Result, run.Err = s.RunDays(days)
	return run
}

func printHeader(w io.Writer, days int) {
	fmt.Fprintf(w, "Simulated %d days per scenario\n\n", days)
	fmt.Fprintf(w, "%-28s | %-8s | %-8s | %-15s | %-10s | %-10s | %-12s | %-8s | %s\n",
		"Scenario", "Theory", "Arrived", "Completed", "Robot Wt", "Scan Wt", "Idle/Scanner", "Scan %", "Robot %")
	fmt.Fprintln(w, "-----------------------------------------------------------------------------------------------------------------------------")
}

func printRow(w io.Writer, label string, res sim.AggregateResult) {
	fmt.Fprintf(w, "%-28s | %-8.1f | %-8.1f | %6.1f ± %-6.1f | %-10.2f | %-10.2f | %-12.1f | %-8.1f | %.1f\n",
		label, res.TheoreticalTotal, res.AvgArrived, res.AvgCompleted, res.CompletedStdDev,
		res.AvgRobotWait, res.AvgScannerWait, res.AvgIdlePerScanner,
		res.AvgScannerUtilization, res.AvgRobotUtilization)
}

func printHourly(w io.Writer, label string, res sim.AggregateResult) {
	fmt.Fprintf(w, "%-28s |", label)
	for _, v := range res.HourlyScans {
		fmt.Fprintf(w, " %4.1f", v)
	}
	fmt.Fprintln(w)
}

// printComparison prices every scenario against the reference run.
func printComparison(w io.Writer, f *config.File, runs []ScenarioRun) {
	var ref *sim.AggregateResult
	for i := range runs {
		if runs[i].Config.Name == f.Reference && runs[i].Err == nil {
			ref = &runs[i].Result
		}
	}
	if ref == nil {
		fmt.Fprintf(w, "\nReference scenario %q has no result; skipping financial comparison.\n", f.Reference)
		return
	}

	a := f.Assumptions()
	fmt.Fprintf(w, "\nImpact vs %s ($%.0f margin per scan)\n\n", f.Label(f.Reference), a.MarginPerScan)
	fmt.Fprintf(w, "%-28s | %-10s | %-11s | %-12s | %-13s | %-12s | %-12s | %s\n",
		"Scenario", "Saved/Pt", "Add'l/Day", "Monthly CM", "Annual CM", "Freed Idle", "Freed Scans", "Freed CM/yr")
	fmt.Fprintln(w, "-----------------------------------------------------------------------------------------------------------------------------")
	for _, run := range runs {
		if run.Err != nil || run.Config.Name == f.Reference {
			continue
		}
		res := run.Result
		margin := a.AdditionalMargin(res.AvgCompleted - ref.AvgCompleted)
		freed := finance.FreedMinutes(ref.AvgIdlePerScanner, res.AvgIdlePerScanner)
		fmt.Fprintf(w, "%-28s | %-10.1f | %-11.1f | $%-11.0f | $%-12.0f | %-12.1f | %-12.1f | $%.0f\n",
			f.Label(run.Config.Name),
			ref.TheoreticalTotal-res.TheoreticalTotal,
			margin.ScansPerDay, margin.Monthly, margin.Annual,
			freed, a.NewScansPerDay(freed), a.AnnualRevenueFromFreedMinutes(freed))
	}
}

func printInvestment(w io.Writer, f *config.File) {
	inv := f.Finance.Investment
	flows := inv.CashFlows()
	rate := f.Finance.DiscountRate

	fmt.Fprintf(w, "\nFleet investment: $%.0f upfront, $%.0f/month after a %d month ramp\n",
		inv.Upfront, inv.MonthlyBenefit, inv.RampMonths)
	if months, ok := finance.SimplePayback(flows); ok {
		fmt.Fprintf(w, "  Simple payback:     %.2f months\n", months)
	} else {
		fmt.Fprintf(w, "  Simple payback:     not within %d months\n", inv.HorizonMonths)
	}
	if months, ok := finance.DiscountedPayback(flows, rate); ok {
		fmt.Fprintf(w, "  Discounted payback: %.2f months at %.0f%%\n", months, rate*100)
	} else {
		fmt.Fprintf(w, "  Discounted payback: not within %d months\n", inv.HorizonMonths)
	}
	for year := 1; year*12 <= inv.HorizonMonths; year++ {
		fmt.Fprintf(w, "  %d-year NPV:         $%.2f\n", year, finance.NPV(flows, rate, year))
	}
}

func saveRuns(ctx context.Context, f *config.File, runs []ScenarioRun, log *zap.Logger) error {
	db, err := store.Open(ctx, f.Store.Driver, f.Store.DSN, log)
	if err != nil {
		return err
	}
	defer db.Close()
	for i := range runs {
		if runs[i].Err != nil {
			continue
		}
		rec := store.NewRecord(&runs[i].Config, runs[i].Result, f.Seed)
		if _, err := db.Save(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "Scenario YAML file (built-in defaults when empty)")
	writeSample := flag.String("write-sample", "", "Write the built-in config to path and exit")
	seed := flag.Int64("seed", 0, "Random seed (default from config)")
	days := flag.Int("days", 0, "Days to simulate per scenario (default from config)")
	deterministic := flag.Bool("deterministic", false, "Evenly spaced arrivals instead of Poisson")
	dbPath := flag.String("db", "", "Save aggregates to this SQLite database")
	hourly := flag.Bool("hourly", false, "Print mean scan starts per hour")
	flag.Parse()

	if *writeSample != "" {
		if err := os.WriteFile(*writeSample, config.DefaultYAML, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing sample: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote sample config to %s\n", *writeSample)
		return
	}

	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	f, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if set["seed"] {
		f.Seed = *seed
	}
	if set["days"] {
		f.Days = *days
	}
	if set["deterministic"] {
		f.Site.Deterministic = *deterministic
	}
	if *dbPath != "" {
		f.Store.Driver, f.Store.DSN = store.DriverSQLite, *dbPath
	}
	if err := f.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(f.Log.Level, f.Log.Format, "ct-capacity-simulation")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	scenarios, err := f.BuildScenarios()
	if err != nil {
		log.Fatal("invalid scenarios", zap.Error(err))
	}

	start := time.Now()
	resultsCh := make(chan ScenarioRun, len(scenarios))
	var wg sync.WaitGroup
	runs := make([]ScenarioRun, len(scenarios))

	// 1. Start the ordered printer goroutine
	printDone := make(chan struct{})
	go func() {
		defer close(printDone)
		buffer := make(map[int]ScenarioRun)
		nextExpectedID := 0
		printHeader(os.Stdout, f.Days)

		for run := range resultsCh {
			buffer[run.SeqID] = run
			for {
				next, ok := buffer[nextExpectedID]
				if !ok {
					break
				}
				if next.Err != nil {
					log.Error("scenario failed", zap.String("scenario", next.Config.Name), zap.Error(next.Err))
				} else {
					printRow(os.Stdout, f.Label(next.Config.Name), next.Result)
				}
				runs[nextExpectedID] = next
				delete(buffer, nextExpectedID)
				nextExpectedID++
			}
		}
	}()

	// 2. Spawn one simulation per scenario
	for i, cfg := range scenarios {
		wg.Add(1)
		go func(seq int, c sim.ScenarioConfig) {
			defer wg.Done()
			resultsCh <- runScenario(seq, c, f.Seed, f.Days, log)
		}(i, cfg)
	}

	// 3. Wait for simulations to finish, then close channels
	go func() {
		wg.Wait()
		close(resultsCh)
	}()
	<-printDone

	if *hourly {
		fmt.Println("\nMean scan starts per hour (00-23)")
		for _, run := range runs {
			if run.Err == nil {
				printHourly(os.Stdout, f.Label(run.Config.Name), run.Result)
			}
		}
	}
	printComparison(os.Stdout, f, runs)
	printInvestment(os.Stdout, f)

	if f.Store.Driver != "" {
		if err := saveRuns(context.Background(), f, runs, log); err != nil {
			log.Error("failed to save results", zap.Error(err))
			os.Exit(1)
		}
		log.Info("results saved", zap.String("driver", f.Store.Driver), zap.String("dsn", f.Store.DSN))
	}

	fmt.Printf("\nAll simulations complete in %v.\n", time.Since(start))
}
