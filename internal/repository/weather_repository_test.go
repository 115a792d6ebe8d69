package repository

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-pipeline/internal/models"
	"weather-pipeline/pkg/database"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

// Integration tests against a real PostgreSQL. Set WEATHER_TEST_DSN to a
// lib/pq connection string pointing at a throwaway database, e.g.
//
//	WEATHER_TEST_DSN="host=localhost user=weather password=weather dbname=weather_test sslmode=disable"
//
// The schema is applied on startup and both tables are truncated between
// tests.
func setupRepo(t *testing.T) (WeatherRepository, *database.Postgres) {
	t.Helper()

	dsn := os.Getenv("WEATHER_TEST_DSN")
	if dsn == "" {
		t.Skip("WEATHER_TEST_DSN not set, skipping repository integration tests")
	}

	logger := logging.New("repo-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWith("repo_test", prometheus.NewRegistry())

	db, err := database.NewFromDSN(dsn, logger, collector)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_create_schema.up.sql"))
	require.NoError(t, err)
	_, err = db.DB().Exec(string(schema))
	require.NoError(t, err)

	// Whole-store reset, test-only.
	_, err = db.DB().Exec(`TRUNCATE weather_records, weather_stats RESTART IDENTITY`)
	require.NoError(t, err)

	return NewWeatherRepository(db, logger, collector), db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

func record(station string, date time.Time, maxT, minT, precip *float64) *models.WeatherRecord {
	return &models.WeatherRecord{
		StationID:     station,
		Date:          date,
		MaxTemp:       maxT,
		MinTemp:       minT,
		Precipitation: precip,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestInsertRecords(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	t.Run("inserts and reads back", func(t *testing.T) {
		err := repo.InsertRecords(ctx, []*models.WeatherRecord{
			record("TEST001", day(2020, 1, 1), ptr(20.0), ptr(10.0), ptr(5.0)),
			record("TEST001", day(2020, 1, 2), ptr(22.0), ptr(12.0), ptr(0.0)),
		})
		require.NoError(t, err)

		count, err := repo.CountRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		exists, err := repo.HasRecord(ctx, "TEST001", day(2020, 1, 1))
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.HasRecord(ctx, "TEST001", day(2020, 1, 3))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("unique constraint surfaces as DuplicateError", func(t *testing.T) {
		err := repo.InsertRecords(ctx, []*models.WeatherRecord{
			record("TEST001", day(2020, 1, 1), ptr(21.0), ptr(11.0), nil),
		})
		require.Error(t, err)
		assert.True(t, IsDuplicate(err))
	})

	t.Run("batch is all-or-nothing", func(t *testing.T) {
		before, err := repo.CountRecords(ctx)
		require.NoError(t, err)

		// Second row collides, so the first must roll back too.
		err = repo.InsertRecords(ctx, []*models.WeatherRecord{
			record("TEST001", day(2020, 2, 1), ptr(18.0), ptr(8.0), nil),
			record("TEST001", day(2020, 1, 1), ptr(21.0), ptr(11.0), nil),
		})
		require.Error(t, err)

		after, err := repo.CountRecords(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestGetRecords(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertRecords(ctx, []*models.WeatherRecord{
		record("TEST001", day(2020, 1, 3), ptr(24.0), ptr(14.0), nil),
		record("TEST001", day(2020, 1, 1), ptr(20.0), ptr(10.0), ptr(5.0)),
		record("TEST002", day(2020, 1, 2), ptr(22.0), ptr(12.0), ptr(2.5)),
	}))

	t.Run("orders by date ascending", func(t *testing.T) {
		records, total, err := repo.GetRecords(ctx, RecordFilter{Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, records, 3)
		assert.Equal(t, day(2020, 1, 1), records[0].Date.UTC())
		assert.Equal(t, day(2020, 1, 2), records[1].Date.UTC())
		assert.Equal(t, day(2020, 1, 3), records[2].Date.UTC())
	})

	t.Run("filters by station", func(t *testing.T) {
		station := "TEST002"
		records, total, err := repo.GetRecords(ctx, RecordFilter{StationID: &station, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, records, 1)
		assert.Equal(t, "TEST002", records[0].StationID)
	})

	t.Run("date range filter is inclusive", func(t *testing.T) {
		start, end := day(2020, 1, 1), day(2020, 1, 2)
		_, total, err := repo.GetRecords(ctx, RecordFilter{StartDate: &start, EndDate: &end, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
	})

	t.Run("paginates with stable total", func(t *testing.T) {
		records, total, err := repo.GetRecords(ctx, RecordFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, records, 1)
	})
}

func TestRebuildYearlyStats(t *testing.T) {
	repo, _ := setupRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.InsertRecords(ctx, []*models.WeatherRecord{
		record("TEST001", day(2020, 1, 1), ptr(20.0), ptr(10.0), ptr(5.0)),
		record("TEST001", day(2020, 1, 2), ptr(22.0), ptr(12.0), ptr(0.0)),
		record("TEST001", day(2020, 1, 3), nil, ptr(15.0), ptr(2.5)),
	}))

	t.Run("computes yearly aggregates", func(t *testing.T) {
		rows, err := repo.RebuildYearlyStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, rows)

		stats, total, err := repo.GetYearlyStats(ctx, StatsFilter{Limit: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)

		st := stats[0]
		assert.Equal(t, "TEST001", st.StationID)
		assert.Equal(t, 2020, st.Year)

		// Absent values are excluded from the divisor: (20+22)/2, not /3.
		require.NotNil(t, st.AvgMaxTemp)
		assert.InDelta(t, 21.0, *st.AvgMaxTemp, 1e-9)
		require.NotNil(t, st.AvgMinTemp)
		assert.InDelta(t, 12.333333333, *st.AvgMinTemp, 1e-6)
		require.NotNil(t, st.TotalPrecipitation)
		assert.InDelta(t, 7.5, *st.TotalPrecipitation, 1e-9)
	})

	t.Run("rebuild is a pure function of the record store", func(t *testing.T) {
		first, _, err := repo.GetYearlyStats(ctx, StatsFilter{Limit: 10})
		require.NoError(t, err)

		_, err = repo.RebuildYearlyStats(ctx)
		require.NoError(t, err)

		second, total, err := repo.GetYearlyStats(ctx, StatsFilter{Limit: 10})
		require.NoError(t, err)
		require.Equal(t, len(first), total)

		for i := range first {
			assert.Equal(t, first[i].StationID, second[i].StationID)
			assert.Equal(t, first[i].Year, second[i].Year)
			assert.Equal(t, first[i].AvgMaxTemp, second[i].AvgMaxTemp)
			assert.Equal(t, first[i].AvgMinTemp, second[i].AvgMinTemp)
			assert.Equal(t, first[i].TotalPrecipitation, second[i].TotalPrecipitation)
		}
	})

	t.Run("all-missing precipitation yields absent total, not zero", func(t *testing.T) {
		require.NoError(t, repo.InsertRecords(ctx, []*models.WeatherRecord{
			record("TEST003", day(2021, 7, 1), ptr(30.0), ptr(20.0), nil),
			record("TEST003", day(2021, 7, 2), ptr(31.0), ptr(21.0), nil),
		}))

		_, err := repo.RebuildYearlyStats(ctx)
		require.NoError(t, err)

		station := "TEST003"
		stats, _, err := repo.GetYearlyStats(ctx, StatsFilter{StationID: &station, Limit: 10})
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Nil(t, stats[0].TotalPrecipitation)
		require.NotNil(t, stats[0].AvgMaxTemp)
		assert.InDelta(t, 30.5, *stats[0].AvgMaxTemp, 1e-9)
	})

	t.Run("filters by year", func(t *testing.T) {
		year := 2021
		stats, total, err := repo.GetYearlyStats(ctx, StatsFilter{Year: &year, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, stats, 1)
		assert.Equal(t, "TEST003", stats[0].StationID)
	})
}
