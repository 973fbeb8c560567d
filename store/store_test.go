package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ct-capacity-simulation/sim"
)

func setupMockStore(t *testing.T, driverName string) (sqlmock.Sqlmock, *Store) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, New(db, driverName, zap.NewNop())
}

func sampleRecord(scenario, ablated string, value float64) Record {
	return Record{
		Scenario:          scenario,
		Ablated:           ablated,
		AblationValue:     value,
		Seed:              42,
		Days:              10,
		Scanners:          3,
		Robots:            6,
		ScannerUptime:     0.9,
		RobotUptime:       0.8,
		TurnoverMinutes:   4,
		BookingConversion: 0.6,
		DailyPatients:     168.3,
		AvgArrived:        167.5,
		AvgCompleted:      166.1,
		AvgIdlePerScanner: 520.4,
		AvgRobotWait:      0.7,
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, DriverSQLite, ":memory:", nil)
	require.NoError(t, err)
	defer s.Close()

	first := sampleRecord("baseline", "", 0)
	first.CreatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	id1, err := s.Save(ctx, first)
	require.NoError(t, err)

	second := sampleRecord("rovis_only", "robots", 4)
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	id2, err := s.Save(ctx, second)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, id1, all[0].ID)
	assert.True(t, first.CreatedAt.Equal(all[0].CreatedAt))
	assert.Equal(t, "baseline", all[0].Scenario)
	assert.Equal(t, 168.3, all[0].DailyPatients)
	assert.Equal(t, int64(42), all[0].Seed)

	robots, err := s.List(ctx, "robots")
	require.NoError(t, err)
	require.Len(t, robots, 1)
	assert.Equal(t, id2, robots[0].ID)
	assert.Equal(t, 4.0, robots[0].AblationValue)

	// Schema creation is idempotent.
	require.NoError(t, s.EnsureSchema(ctx))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn", nil)
	assert.ErrorContains(t, err, "unsupported")
}

func TestSave_PostgresPlaceholders(t *testing.T) {
	mock, s := setupMockStore(t, DriverPostgres)

	args := make([]driver.Value, 23)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	mock.ExpectExec(`INSERT INTO scenario_results .* VALUES \(\$1, \$2, \$3, .*\$23\)`).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.Save(context.Background(), sampleRecord("baseline", "", 0))
	require.NoError(t, err)
	assert.Len(t, id, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_Error(t *testing.T) {
	mock, s := setupMockStore(t, DriverSQLite)
	mock.ExpectExec(`INSERT INTO scenario_results`).WillReturnError(errors.New("disk full"))

	_, err := s.Save(context.Background(), sampleRecord("baseline", "", 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save result for baseline")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_Error(t *testing.T) {
	mock, s := setupMockStore(t, DriverPostgres)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS scenario_results`).WillReturnError(errors.New("permission denied"))

	err := s.EnsureSchema(context.Background())
	assert.ErrorContains(t, err, "failed to create schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_QueryError(t *testing.T) {
	mock, s := setupMockStore(t, DriverPostgres)
	mock.ExpectQuery(`SELECT .* FROM scenario_results WHERE ablated_param = \$1`).
		WithArgs("robots").
		WillReturnError(errors.New("connection reset"))

	_, err := s.List(context.Background(), "robots")
	assert.ErrorContains(t, err, "failed to query results")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_ScanError(t *testing.T) {
	mock, s := setupMockStore(t, DriverSQLite)
	rows := sqlmock.NewRows([]string{"id"}).AddRow("only-one-column")
	mock.ExpectQuery(`SELECT .* FROM scenario_results ORDER BY`).WillReturnRows(rows)

	_, err := s.List(context.Background(), "")
	assert.ErrorContains(t, err, "failed to scan result")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRebind(t *testing.T) {
	pg := New(nil, DriverPostgres, nil)
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := New(nil, DriverSQLite, nil)
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestNewRecord(t *testing.T) {
	presets := sim.PresetScenarios(sim.DefaultSite(), sim.DefaultEconomics())
	agg := sim.AggregateResult{Days: 3, AvgCompleted: 150, IdlePerScannerStdDev: 2}

	base := NewRecord(&presets[0], agg, 7)
	assert.Equal(t, "baseline", base.Scenario)
	assert.Zero(t, base.Robots)
	assert.Zero(t, base.BookingConversion)
	assert.Equal(t, 150.0, base.DailyPatients)
	assert.Equal(t, 2.0, base.IdleStdDev)

	robot := NewRecord(&presets[1], agg, 7)
	assert.Equal(t, 6, robot.Robots)
	assert.Equal(t, 0.6, robot.BookingConversion)
	assert.Equal(t, 3, robot.Days)
}
