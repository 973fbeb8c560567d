// Command sweep varies one site or demand parameter over a grid, simulates
// every scenario at each point and stores the aggregates.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ct-capacity-simulation/config"
	"ct-capacity-simulation/logger"
	"ct-capacity-simulation/store"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Scenario YAML file (built-in defaults when empty)")
	dbPath := flag.String("db", "sweep_results.db", "SQLite database path, used when the config names no store")
	ablateParam := flag.String("ablate", "", "Parameter to ablate ("+strings.Join(AblationParams, ", ")+")")
	days := flag.Int("days", 0, "Days per grid point (default from config)")
	workers := flag.Int("workers", 4, "Number of parallel workers")
	seed := flag.Int64("seed", 0, "Base seed (default from config)")
	only := flag.String("scenario", "", "Only simulate this scenario")
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	f, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if set["days"] {
		f.Days = *days
	}
	if set["seed"] {
		f.Seed = *seed
	}
	if f.Store.Driver == "" {
		f.Store.Driver, f.Store.DSN = store.DriverSQLite, *dbPath
	}

	log, err := logger.NewLogger(f.Log.Level, f.Log.Format, "ct-sweep")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if *ablateParam == "" {
		fmt.Println("Please specify a parameter to ablate with -ablate")
		fmt.Println("Options:", strings.Join(AblationParams, ", "))
		return
	}
	grid := GetAblationConfig(*ablateParam)
	if len(grid.Values) == 0 {
		log.Fatal("unknown ablation parameter", zap.String("param", *ablateParam))
	}
	if *workers < 1 {
		*workers = 1
	}

	ctx := context.Background()
	db, err := store.Open(ctx, f.Store.Driver, f.Store.DSN, log)
	if err != nil {
		log.Fatal("failed to open store", zap.String("driver", f.Store.Driver), zap.Error(err))
	}
	defer db.Close()

	log.Info("starting ablation",
		zap.String("param", grid.ParamName),
		zap.Int("points", len(grid.Values)),
		zap.Int("workers", *workers),
		zap.Int("days", f.Days),
		zap.Int64("seed", f.Seed),
	)
	start := time.Now()

	count, failed := Sweep(ctx, *f, grid, *only, *workers, db, log)

	log.Info("ablation complete",
		zap.Int("saved", count),
		zap.Int("failed_points", failed),
		zap.String("dsn", f.Store.DSN),
		zap.Duration("elapsed", time.Since(start)),
	)
	if failed > 0 {
		os.Exit(1)
	}
}

// Sweep runs every grid point on at most workers goroutines and saves the
// records as they arrive. It returns the number of saved records and failed
// points.
func Sweep(ctx context.Context, f config.File, grid AblationConfig, only string, workers int, db *store.Store, log *zap.Logger) (saved, failed int) {
	var wg sync.WaitGroup
	results := make(chan PointResult, len(grid.Values))
	semaphore := make(chan struct{}, workers)

	for _, value := range grid.Values {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			log.Debug("running point", zap.String("param", grid.ParamName), zap.Float64("value", v))
			results <- RunPoint(f, grid.ParamName, v, only, log)
		}(value)
	}

	// Close results channel when all workers done
	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		if res.Err != nil {
			log.Error("grid point failed", zap.Float64("value", res.Value), zap.Error(res.Err))
			failed++
			continue
		}
		for _, rec := range res.Records {
			if _, err := db.Save(ctx, rec); err != nil {
				log.Error("failed to save result", zap.Error(err))
				continue
			}
			saved++
		}
		log.Info("point done", zap.String("param", grid.ParamName), zap.Float64("value", res.Value), zap.Int("scenarios", len(res.Records)))
	}
	return saved, failed
}
