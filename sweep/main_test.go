package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ct-capacity-simulation/config"
	"ct-capacity-simulation/store"
)

func loadDefaults(t *testing.T) config.File {
	t.Helper()
	f, err := config.Load("")
	require.NoError(t, err)
	f.Days = 2
	return *f
}

func TestGetAblationConfig(t *testing.T) {
	for _, p := range AblationParams {
		grid := GetAblationConfig(p)
		assert.Equal(t, p, grid.ParamName)
		assert.GreaterOrEqual(t, len(grid.Values), 6, p)
	}
	assert.Empty(t, GetAblationConfig("C").Values)

	scanners := GetAblationConfig("scanners").Values
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, scanners)
	uptime := GetAblationConfig("scanner_uptime").Values
	assert.InDelta(t, 0.80, uptime[0], 1e-12)
	assert.InDelta(t, 1.00, uptime[len(uptime)-1], 1e-12)
}

func TestApplyAblation(t *testing.T) {
	f := loadDefaults(t)

	assert.Equal(t, 5, ApplyAblation(f, "scanners", 4.6).Site.Scanners)
	assert.Equal(t, 1, ApplyAblation(f, "robots", 0.2).Site.Robots)
	assert.Equal(t, 0.7, ApplyAblation(f, "robot_uptime", 0.7).Site.RobotUptime)
	assert.Equal(t, 220.0, ApplyAblation(f, "baseline_demand", 220).Economics.BaselinePatients)
	// The input config is untouched.
	assert.Equal(t, 3, f.Site.Scanners)
}

func TestRunPoint(t *testing.T) {
	f := loadDefaults(t)

	res := RunPoint(f, "baseline_demand", 200, "", zap.NewNop())
	require.NoError(t, res.Err)
	require.Len(t, res.Records, 4)
	for _, rec := range res.Records {
		assert.Equal(t, "baseline_demand", rec.Ablated)
		assert.Equal(t, 200.0, rec.AblationValue)
		assert.Equal(t, 2, rec.Days)
	}
	assert.Equal(t, 200.0, res.Records[0].DailyPatients)

	res = RunPoint(f, "robots", 2, "rovis_only", zap.NewNop())
	require.NoError(t, res.Err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 2, res.Records[0].Robots)

	res = RunPoint(f, "robots", 2, "nope", zap.NewNop())
	assert.Error(t, res.Err)
}

func TestRunPoint_Reproducible(t *testing.T) {
	f := loadDefaults(t)
	a := RunPoint(f, "turnover", 6, "rovis_workflow", zap.NewNop())
	b := RunPoint(f, "turnover", 6, "rovis_workflow", zap.NewNop())
	require.NoError(t, a.Err)
	assert.Equal(t, a.Records, b.Records)
}

func TestSweep_SavesEveryPoint(t *testing.T) {
	ctx := context.Background()
	f := loadDefaults(t)
	db, err := store.Open(ctx, store.DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	grid := AblationConfig{ParamName: "scanners", Values: []float64{2, 3, 4}}
	saved, failed := Sweep(ctx, f, grid, "baseline", 2, db, zap.NewNop())
	assert.Equal(t, 3, saved)
	assert.Zero(t, failed)

	records, err := db.List(ctx, "scanners")
	require.NoError(t, err)
	require.Len(t, records, 3)
	seen := map[int]bool{}
	for _, r := range records {
		seen[r.Scanners] = true
	}
	assert.Equal(t, map[int]bool{2: true, 3: true, 4: true}, seen)
}
