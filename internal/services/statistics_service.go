package services

import (
	"context"
	"fmt"
	"time"

	"weather-pipeline/internal/models"
	"weather-pipeline/internal/repository"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

// StatisticsService owns the yearly statistics table. Every rebuild replaces
// its full contents from the record store; there is no incremental path, so
// stats are only as fresh as the last rebuild.
type StatisticsService struct {
	repo    repository.WeatherRepository
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewStatisticsService creates a statistics service.
func NewStatisticsService(repo repository.WeatherRepository, logger *logging.Logger, collector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		repo:    repo,
		logger:  logger,
		metrics: collector,
	}
}

// RebuildStatistics recomputes all (station, year) aggregates from the
// current record store contents. The repository runs delete and repopulate
// in one transaction, so a failure leaves the previous stats intact.
func (s *StatisticsService) RebuildStatistics(ctx context.Context) error {
	start := time.Now()

	s.logger.Info(ctx, "[STATS_REBUILD_START] Rebuilding yearly statistics", logging.Fields{})

	rows, err := s.repo.RebuildYearlyStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild yearly statistics: %w", err)
	}

	s.logger.Info(ctx, "[STATS_REBUILD_COMPLETE] Yearly statistics rebuilt", logging.Fields{
		"stats_rows":       rows,
		"duration_seconds": time.Since(start).Seconds(),
	})

	return nil
}

// GetStatistics retrieves yearly statistics for the query layer.
func (s *StatisticsService) GetStatistics(ctx context.Context, filter repository.StatsFilter) ([]*models.WeatherStats, int, error) {
	return s.repo.GetYearlyStats(ctx, filter)
}
