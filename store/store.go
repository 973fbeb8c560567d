// Package store persists aggregated scenario results in sqlite or postgres.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"ct-capacity-simulation/sim"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Record is one aggregated scenario run and the parameters that produced it.
type Record struct {
	ID        string
	CreatedAt time.Time

	Scenario      string
	Ablated       string // parameter varied by a sweep, empty for plain runs
	AblationValue float64
	Seed          int64
	Days          int

	Scanners          int
	Robots            int
	ScannerUptime     float64
	RobotUptime       float64
	TurnoverMinutes   float64
	BookingConversion float64
	DailyPatients     float64

	AvgArrived         float64
	AvgCompleted       float64
	CompletedStdDev    float64
	AvgIdlePerScanner  float64
	IdleStdDev         float64
	AvgRobotWait       float64
	AvgScannerWait     float64
	ScannerUtilization float64
	RobotUtilization   float64
}

// NewRecord flattens a scenario and its aggregate into a Record.
func NewRecord(cfg *sim.ScenarioConfig, agg sim.AggregateResult, seed int64) Record {
	r := Record{
		Scenario:           cfg.Name,
		Seed:               seed,
		Days:               agg.Days,
		Scanners:           cfg.Scanners,
		Robots:             cfg.Robots,
		ScannerUptime:      cfg.ScannerUptime,
		RobotUptime:        cfg.RobotUptime,
		TurnoverMinutes:    cfg.TurnoverMinutes,
		DailyPatients:      cfg.DailyPatients(),
		AvgArrived:         agg.AvgArrived,
		AvgCompleted:       agg.AvgCompleted,
		CompletedStdDev:    agg.CompletedStdDev,
		AvgIdlePerScanner:  agg.AvgIdlePerScanner,
		IdleStdDev:         agg.IdlePerScannerStdDev,
		AvgRobotWait:       agg.AvgRobotWait,
		AvgScannerWait:     agg.AvgScannerWait,
		ScannerUtilization: agg.AvgScannerUtilization,
		RobotUtilization:   agg.AvgRobotUtilization,
	}
	if !cfg.RobotAssisted {
		r.Robots = 0
	}
	if d, ok := cfg.Demand.(sim.WorkflowDerived); ok {
		r.BookingConversion = d.BookingConversion
	}
	return r
}

// Store writes Records through database/sql.
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open connects to driver/dsn, checks the connection and creates the schema.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == DriverSQLite {
		// sqlite allows a single writer; in-memory databases exist per connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := New(db, driver, logger)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. A nil logger discards output.
func New(db *sql.DB, driver string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, driver: driver, logger: logger}
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS scenario_results (
	id TEXT PRIMARY KEY,
	created_at TIMESTAMP NOT NULL,

	scenario TEXT NOT NULL,
	ablated_param TEXT NOT NULL,
	ablation_value DOUBLE PRECISION,
	seed BIGINT,
	days INTEGER,

	scanners INTEGER,
	robots INTEGER,
	scanner_uptime DOUBLE PRECISION,
	robot_uptime DOUBLE PRECISION,
	turnover_minutes DOUBLE PRECISION,
	booking_conversion DOUBLE PRECISION,
	daily_patients DOUBLE PRECISION,

	avg_arrived DOUBLE PRECISION,
	avg_completed DOUBLE PRECISION,
	completed_stddev DOUBLE PRECISION,
	avg_idle_per_scanner DOUBLE PRECISION,
	idle_stddev DOUBLE PRECISION,
	avg_robot_wait DOUBLE PRECISION,
	avg_scanner_wait DOUBLE PRECISION,
	scanner_utilization DOUBLE PRECISION,
	robot_utilization DOUBLE PRECISION
)`

func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const columns = `id, created_at, scenario, ablated_param, ablation_value, seed, days,
	scanners, robots, scanner_uptime, robot_uptime, turnover_minutes, booking_conversion, daily_patients,
	avg_arrived, avg_completed, completed_stddev, avg_idle_per_scanner, idle_stddev,
	avg_robot_wait, avg_scanner_wait, scanner_utilization, robot_utilization`

// Save inserts r under a fresh id and returns it.
func (s *Store) Save(ctx context.Context, r Record) (string, error) {
	r.ID = uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	query := s.rebind(`INSERT INTO scenario_results (` + columns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.CreatedAt, r.Scenario, r.Ablated, r.AblationValue, r.Seed, r.Days,
		r.Scanners, r.Robots, r.ScannerUptime, r.RobotUptime, r.TurnoverMinutes, r.BookingConversion, r.DailyPatients,
		r.AvgArrived, r.AvgCompleted, r.CompletedStdDev, r.AvgIdlePerScanner, r.IdleStdDev,
		r.AvgRobotWait, r.AvgScannerWait, r.ScannerUtilization, r.RobotUtilization,
	)
	if err != nil {
		return "", fmt.Errorf("failed to save result for %s: %w", r.Scenario, err)
	}
	s.logger.Debug("result saved", zap.String("id", r.ID), zap.String("scenario", r.Scenario), zap.String("ablated", r.Ablated))
	return r.ID, nil
}

// List returns saved records oldest first. A non-empty ablated restricts the
// result to one sweep parameter.
func (s *Store) List(ctx context.Context, ablated string) ([]Record, error) {
	query := `SELECT ` + columns + ` FROM scenario_results`
	var args []any
	if ablated != "" {
		query += ` WHERE ablated_param = ?`
		args = append(args, ablated)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.Scenario, &r.Ablated, &r.AblationValue, &r.Seed, &r.Days,
			&r.Scanners, &r.Robots, &r.ScannerUptime, &r.RobotUptime, &r.TurnoverMinutes, &r.BookingConversion, &r.DailyPatients,
			&r.AvgArrived, &r.AvgCompleted, &r.CompletedStdDev, &r.AvgIdlePerScanner, &r.IdleStdDev,
			&r.AvgRobotWait, &r.AvgScannerWait, &r.ScannerUtilization, &r.RobotUtilization,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return out, nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
