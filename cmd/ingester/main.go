package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"weather-pipeline/internal/config"
	"weather-pipeline/internal/repository"
	"weather-pipeline/internal/services"
	"weather-pipeline/pkg/database"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

const version = "1.0.0"

func main() {
	dataDir := flag.String("data-dir", "", "Directory containing station data files (overrides DATA_DIR)")
	rebuildStats := flag.Bool("rebuild-stats", true, "Rebuild yearly statistics after ingestion")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	dir := cfg.Ingestion.DataDir
	if *dataDir != "" {
		dir = *dataDir
	}

	logger := logging.New("weather-ingester", version, logging.ParseLevel(cfg.Logging.Level))
	collector := metrics.NewCollector("weather_ingester")

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting weather data ingestion", logging.Fields{
		"version":       version,
		"data_dir":      dir,
		"rebuild_stats": *rebuildStats,
	})

	db, err := database.New(&database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, logger, collector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	repo := repository.NewWeatherRepository(db, logger, collector)
	ingestionService := services.NewIngestionService(repo, logger, collector)
	statsService := services.NewStatisticsService(repo, logger, collector)

	result, err := ingestionService.IngestDirectory(ctx, dir)
	if result != nil {
		printSummary(result)
	}
	if err != nil {
		// Files committed before the failure stay committed; report the
		// failing file and exit non-zero.
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}

	if *rebuildStats {
		if err := statsService.RebuildStatistics(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Statistics rebuild failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Yearly statistics rebuilt")
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion run finished", logging.Fields{
		"records_written":    result.RecordsWritten,
		"duplicates_skipped": result.DuplicatesSkipped,
		"rows_dropped":       result.RowsDropped,
		"duration_seconds":   result.Duration.Seconds(),
	})
}

func printSummary(result *services.IngestionResult) {
	fmt.Println("================================================================")
	fmt.Println("INGESTION SUMMARY")
	fmt.Println("================================================================")
	fmt.Printf("Files:              %d\n", result.TotalFiles)
	fmt.Printf("Records Written:    %d\n", result.RecordsWritten)
	fmt.Printf("Duplicates Skipped: %d\n", result.DuplicatesSkipped)
	fmt.Printf("Rows Dropped:       %d\n", result.RowsDropped)
	fmt.Printf("Duration:           %v\n", result.Duration)

	for _, f := range result.Files {
		fmt.Printf("  %-40s station=%s written=%d duplicates=%d dropped=%d\n",
			f.Path, f.StationID, f.RecordsWritten, f.DuplicatesSkipped, f.RowsDropped)
	}
}
