// Package repository is the persistence port over the two weather tables.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"weather-pipeline/internal/models"
	"weather-pipeline/pkg/database"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

// WeatherRepository provides data access for daily records and yearly stats.
type WeatherRepository interface {
	// Record operations. weather_records is the source of truth; records are
	// inserted once and never updated.
	InsertRecords(ctx context.Context, records []*models.WeatherRecord) error
	HasRecord(ctx context.Context, stationID string, date time.Time) (bool, error)
	GetRecords(ctx context.Context, filter RecordFilter) ([]*models.WeatherRecord, int, error)
	CountRecords(ctx context.Context) (int, error)

	// Stats operations. weather_stats is derived: RebuildYearlyStats replaces
	// its full contents from weather_records in one transaction.
	RebuildYearlyStats(ctx context.Context) (int, error)
	GetYearlyStats(ctx context.Context, filter StatsFilter) ([]*models.WeatherStats, int, error)

	HealthCheck(ctx context.Context) error
}

// RecordFilter selects daily records: optional station equality, optional
// inclusive date range, offset pagination. Results are ordered by date
// ascending.
type RecordFilter struct {
	StationID *string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// StatsFilter selects yearly stats: optional station and year equality,
// offset pagination. Results are ordered by year ascending.
type StatsFilter struct {
	StationID *string
	Year      *int
	Limit     int
	Offset    int
}

// DuplicateError reports an insert that hit the (station_id, date) unique
// constraint. Under single-writer ingestion the existence pre-check prevents
// this; it surfaces only when a concurrent writer raced us, so callers may
// retry.
type DuplicateError struct {
	StationID string
	Date      time.Time
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("record already exists for station %s on %s",
		e.StationID, e.Date.Format("2006-01-02"))
}

// IsTransient returns true: a re-run resolves the conflict via the
// duplicate-skip check.
func (e *DuplicateError) IsTransient() bool {
	return true
}

type weatherRepository struct {
	db      *database.Postgres
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewWeatherRepository creates a Postgres-backed weather repository.
func NewWeatherRepository(db *database.Postgres, logger *logging.Logger, collector *metrics.Collector) WeatherRepository {
	return &weatherRepository{
		db:      db,
		logger:  logger,
		metrics: collector,
	}
}

// InsertRecords persists a batch of records in one transaction. The batch is
// all-or-nothing: any failure rolls back every row. A unique constraint hit
// is returned as *DuplicateError.
func (r *weatherRepository) InsertRecords(ctx context.Context, records []*models.WeatherRecord) error {
	if len(records) == 0 {
		return nil
	}

	start := time.Now()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO weather_records (station_id, date, max_temp, min_temp, precipitation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.StationID,
			rec.Date,
			rec.MaxTemp,
			rec.MinTemp,
			rec.Precipitation,
			rec.CreatedAt,
		)
		if err != nil {
			if database.IsUniqueViolation(err) {
				r.metrics.RecordDBError("duplicate_key")
				return &DuplicateError{StationID: rec.StationID, Date: rec.Date}
			}
			return fmt.Errorf("failed to insert record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	r.metrics.IngestionBatchSize.Observe(float64(len(records)))
	r.metrics.IngestionRecordsTotal.Add(float64(len(records)))

	r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch committed", logging.Fields{
		"count":       len(records),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

// HasRecord reports whether a record exists for the (station, date) pair.
func (r *weatherRepository) HasRecord(ctx context.Context, stationID string, date time.Time) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, "record_exists", &exists,
		`SELECT EXISTS (SELECT 1 FROM weather_records WHERE station_id = $1 AND date = $2)`,
		stationID, date,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check for existing record: %w", err)
	}
	return exists, nil
}

// GetRecords retrieves daily records matching the filter plus the total
// count of matches before pagination.
func (r *weatherRepository) GetRecords(ctx context.Context, filter RecordFilter) ([]*models.WeatherRecord, int, error) {
	query := `
		SELECT id, station_id, date, max_temp, min_temp, precipitation, created_at
		FROM weather_records
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.StationID != nil {
		query += fmt.Sprintf(" AND station_id = $%d", argNum)
		args = append(args, *filter.StationID)
		argNum++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argNum)
		args = append(args, *filter.StartDate)
		argNum++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argNum)
		args = append(args, *filter.EndDate)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var total int
	if err := r.db.GetContext(ctx, "count_records", &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	query += fmt.Sprintf(" ORDER BY date, station_id LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var records []*models.WeatherRecord
	if err := r.db.SelectContext(ctx, "get_records", &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get records: %w", err)
	}

	return records, total, nil
}

// CountRecords returns the total number of daily records in the store.
func (r *weatherRepository) CountRecords(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, "count_all_records", &count, `SELECT COUNT(*) FROM weather_records`)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// RebuildYearlyStats replaces the full contents of weather_stats with a
// fresh aggregation of weather_records. Delete and repopulate run in a
// single transaction, so readers see either the old stats or the new, never
// an intermediate state. SQL aggregate semantics give the required NULL
// handling: AVG and SUM skip NULL inputs and yield NULL for all-NULL groups.
// Returns the number of stats rows written.
func (r *weatherRepository) RebuildYearlyStats(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		r.metrics.StatsRebuildDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM weather_stats`); err != nil {
		return 0, fmt.Errorf("failed to clear stats: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO weather_stats (station_id, year, avg_max_temp, avg_min_temp, total_precipitation, computed_at)
		SELECT
			station_id,
			EXTRACT(YEAR FROM date)::int AS year,
			AVG(max_temp),
			AVG(min_temp),
			SUM(precipitation),
			NOW()
		FROM weather_records
		GROUP BY station_id, EXTRACT(YEAR FROM date)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute stats: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit stats rebuild: %w", err)
	}

	rows, _ := result.RowsAffected()

	r.logger.Info(ctx, "[REPO_STATS_REBUILD] Yearly statistics rebuilt", logging.Fields{
		"stats_rows":  rows,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return int(rows), nil
}

// GetYearlyStats retrieves yearly statistics matching the filter plus the
// total count of matches before pagination.
func (r *weatherRepository) GetYearlyStats(ctx context.Context, filter StatsFilter) ([]*models.WeatherStats, int, error) {
	query := `
		SELECT id, station_id, year, avg_max_temp, avg_min_temp, total_precipitation, computed_at
		FROM weather_stats
		WHERE 1=1
	`
	args := []interface{}{}
	argNum := 1

	if filter.StationID != nil {
		query += fmt.Sprintf(" AND station_id = $%d", argNum)
		args = append(args, *filter.StationID)
		argNum++
	}

	if filter.Year != nil {
		query += fmt.Sprintf(" AND year = $%d", argNum)
		args = append(args, *filter.Year)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var total int
	if err := r.db.GetContext(ctx, "count_stats", &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count stats: %w", err)
	}

	query += fmt.Sprintf(" ORDER BY year, station_id LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var stats []*models.WeatherStats
	if err := r.db.SelectContext(ctx, "get_stats", &stats, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, total, nil
}

// HealthCheck verifies database connectivity.
func (r *weatherRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// IsDuplicate reports whether err (or anything it wraps) is a
// *DuplicateError.
func IsDuplicate(err error) bool {
	var dup *DuplicateError
	return errors.As(err, &dup)
}
