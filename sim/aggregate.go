package sim

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AggregateResult summarises several independent days of one scenario.
type AggregateResult struct {
	Scenario string
	Days     int

	// Waits are pooled over every patient of every day, not averaged per day.
	AvgRobotWait   float64
	AvgScannerWait float64

	AvgIdlePerScanner    float64
	IdlePerScannerStdDev float64
	AvgArrived           float64
	AvgCompleted         float64
	CompletedStdDev      float64

	AvgScannerUtilization float64
	AvgRobotUtilization   float64
	AvgRobotBusyMinutes   float64

	// HourlyScans is the mean number of scan starts in each hour.
	HourlyScans [HoursPerDay]float64

	TheoreticalTotal float64
}

// RunDays simulates n fresh days on the simulator's stream. Days share no
// state except the random sequence, so a seed reproduces the whole run.
func (s *Simulator) RunDays(n int) (AggregateResult, error) {
	if n <= 0 {
		return AggregateResult{}, fmt.Errorf("%w: scenario %q: days must be > 0, got %d", ErrInvalidConfig, s.Config.Name, n)
	}
	began := time.Now()

	var (
		idleStats      OnlineStats
		arrivedStats   OnlineStats
		completedStats OnlineStats
		scannerUtil    OnlineStats
		robotUtil      OnlineStats
		robotBusy      OnlineStats

		robotWaitSum, scannerWaitSum float64
		robotWaitN, scannerWaitN     int
		hourly                       [HoursPerDay]int
	)

	for i := 0; i < n; i++ {
		day := s.RunDay()
		idleStats.Add(day.AvgIdlePerScanner)
		arrivedStats.Add(float64(day.Arrived))
		completedStats.Add(float64(day.Completed))
		scannerUtil.Add(day.ScannerUtilization)
		robotUtil.Add(day.RobotUtilization)
		robotBusy.Add(day.RobotBusyMinutes)

		for _, w := range day.RobotWaits {
			robotWaitSum += w
		}
		robotWaitN += len(day.RobotWaits)
		for _, w := range day.ScannerWaits {
			scannerWaitSum += w
		}
		scannerWaitN += len(day.ScannerWaits)
		for h, c := range day.HourlyScans {
			hourly[h] += c
		}
	}

	agg := AggregateResult{
		Scenario:              s.Config.Name,
		Days:                  n,
		AvgIdlePerScanner:     idleStats.Mean(),
		IdlePerScannerStdDev:  idleStats.StdDev(),
		AvgArrived:            arrivedStats.Mean(),
		AvgCompleted:          completedStats.Mean(),
		CompletedStdDev:       completedStats.StdDev(),
		AvgScannerUtilization: scannerUtil.Mean(),
		AvgRobotUtilization:   robotUtil.Mean(),
		AvgRobotBusyMinutes:   robotBusy.Mean(),
		TheoreticalTotal:      s.Config.TheoreticalTotal(),
	}
	if robotWaitN > 0 {
		agg.AvgRobotWait = robotWaitSum / float64(robotWaitN)
	}
	if scannerWaitN > 0 {
		agg.AvgScannerWait = scannerWaitSum / float64(scannerWaitN)
	}
	for h, c := range hourly {
		agg.HourlyScans[h] = float64(c) / float64(n)
	}

	s.Logger.Info("scenario simulated",
		zap.Int("days", n),
		zap.Float64("avg_completed", agg.AvgCompleted),
		zap.Float64("avg_idle_per_scanner", agg.AvgIdlePerScanner),
		zap.Float64("avg_robot_wait", agg.AvgRobotWait),
		zap.Float64("avg_scanner_wait", agg.AvgScannerWait),
		zap.Duration("elapsed", time.Since(began)),
	)
	return agg, nil
}
