package services

import (
	"context"

	"weather-pipeline/internal/models"
	"weather-pipeline/internal/repository"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

// WeatherService is the read path over daily records used by the API layer.
type WeatherService struct {
	repo    repository.WeatherRepository
	logger  *logging.Logger
	metrics *metrics.Collector
}

// NewWeatherService creates a weather query service.
func NewWeatherService(repo repository.WeatherRepository, logger *logging.Logger, collector *metrics.Collector) *WeatherService {
	return &WeatherService{
		repo:    repo,
		logger:  logger,
		metrics: collector,
	}
}

// GetRecords retrieves daily records matching the filter.
func (s *WeatherService) GetRecords(ctx context.Context, filter repository.RecordFilter) ([]*models.WeatherRecord, int, error) {
	return s.repo.GetRecords(ctx, filter)
}

// HealthCheck verifies storage connectivity.
func (s *WeatherService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
