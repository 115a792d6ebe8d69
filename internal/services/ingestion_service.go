package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"weather-pipeline/internal/models"
	"weather-pipeline/internal/parser"
	"weather-pipeline/internal/repository"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

// IngestionService feeds station data files through the parser and persists
// new records. Each file commits as one batch; the first unrecoverable file
// error aborts the run, leaving previously committed files in place.
type IngestionService struct {
	repo    repository.WeatherRepository
	logger  *logging.Logger
	metrics *metrics.Collector
}

// IngestionResult summarizes a full ingestion run.
type IngestionResult struct {
	TotalFiles        int
	RecordsWritten    int
	DuplicatesSkipped int
	RowsDropped       int
	Files             []FileResult
	Duration          time.Duration
}

// FileResult summarizes one ingested file.
type FileResult struct {
	Path              string
	StationID         string
	RecordsWritten    int
	DuplicatesSkipped int
	RowsDropped       int
}

// NewIngestionService creates an ingestion service.
func NewIngestionService(repo repository.WeatherRepository, logger *logging.Logger, collector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: collector,
	}
}

// IngestDirectory ingests every *.txt station file under dataDir. On error
// the returned result covers the files committed before the failure; the
// failing file's batch has been rolled back.
func (s *IngestionService) IngestDirectory(ctx context.Context, dataDir string) (*IngestionResult, error) {
	start := time.Now()

	files, err := filepath.Glob(filepath.Join(dataDir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dataDir, err)
	}

	result := &IngestionResult{TotalFiles: len(files)}

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"data_dir":   dataDir,
		"file_count": len(files),
	})

	if len(files) == 0 {
		s.logger.Warn(ctx, "[INGEST_EMPTY] No data files found", logging.Fields{
			"data_dir": dataDir,
		})
		return result, nil
	}

	for _, path := range files {
		fileResult, err := s.ingestFile(ctx, path)
		if err != nil {
			result.Duration = time.Since(start)
			s.metrics.RecordIngestionError("file_error")
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] Aborting run", logging.Fields{
				"file_path":       path,
				"records_written": result.RecordsWritten,
			}, err)
			return result, fmt.Errorf("failed to ingest %s: %w", path, err)
		}

		result.Files = append(result.Files, *fileResult)
		result.RecordsWritten += fileResult.RecordsWritten
		result.DuplicatesSkipped += fileResult.DuplicatesSkipped
		result.RowsDropped += fileResult.RowsDropped

		s.logger.Info(ctx, "[INGEST_FILE] File committed", logging.Fields{
			"file_path":          path,
			"station_id":         fileResult.StationID,
			"records_written":    fileResult.RecordsWritten,
			"duplicates_skipped": fileResult.DuplicatesSkipped,
			"rows_dropped":       fileResult.RowsDropped,
			"cumulative_written": result.RecordsWritten,
		})
	}

	result.Duration = time.Since(start)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"records_written":    result.RecordsWritten,
		"duplicates_skipped": result.DuplicatesSkipped,
		"rows_dropped":       result.RowsDropped,
		"duration_seconds":   result.Duration.Seconds(),
	})

	return result, nil
}

// ingestFile parses a single station file and persists its new records as
// one all-or-nothing batch. Records whose (station, date) pair already
// exists are skipped. A malformed row fails the whole file; rows with
// unparseable dates are dropped individually by the parser.
func (s *IngestionService) ingestFile(ctx context.Context, path string) (*FileResult, error) {
	reader, err := parser.Open(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := &FileResult{
		Path:      path,
		StationID: reader.Station(),
	}

	var batch []*models.WeatherRecord
	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.metrics.RecordIngestionError("parse_error")
			return nil, err
		}

		exists, err := s.repo.HasRecord(ctx, rec.StationID, rec.Date)
		if err != nil {
			return nil, err
		}
		if exists {
			result.DuplicatesSkipped++
			s.metrics.IngestionDuplicatesTotal.Inc()
			s.logger.Info(ctx, "[INGEST_DUPLICATE] Skipping existing record", logging.Fields{
				"station_id": rec.StationID,
				"date":       rec.Date.Format("2006-01-02"),
			})
			continue
		}

		batch = append(batch, rec)
	}

	result.RowsDropped = reader.Dropped()
	if result.RowsDropped > 0 {
		s.metrics.IngestionRowsDropped.Add(float64(result.RowsDropped))
		s.logger.Warn(ctx, "[INGEST_DROPPED_ROWS] Rows with invalid dates excluded", logging.Fields{
			"file_path":    path,
			"rows_dropped": result.RowsDropped,
		})
	}

	if err := s.repo.InsertRecords(ctx, batch); err != nil {
		return nil, err
	}

	result.RecordsWritten = len(batch)
	return result, nil
}
