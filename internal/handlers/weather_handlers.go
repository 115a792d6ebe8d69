// Package handlers exposes the HTTP query layer over records and stats.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"weather-pipeline/internal/repository"
	"weather-pipeline/internal/services"
	"weather-pipeline/pkg/logging"
	"weather-pipeline/pkg/metrics"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// WeatherHandler handles the weather API endpoints.
type WeatherHandler struct {
	weatherService *services.WeatherService
	statsService   *services.StatisticsService
	logger         *logging.Logger
	metrics        *metrics.Collector
}

// NewWeatherHandler creates a weather API handler.
func NewWeatherHandler(
	weatherService *services.WeatherService,
	statsService *services.StatisticsService,
	logger *logging.Logger,
	collector *metrics.Collector,
) *WeatherHandler {
	return &WeatherHandler{
		weatherService: weatherService,
		statsService:   statsService,
		logger:         logger,
		metrics:        collector,
	}
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse wraps a page of results with pagination metadata.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// GetRecords handles GET /api/weather: daily records filtered by station
// and inclusive date range, ordered by date ascending.
func (h *WeatherHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/weather").Observe(time.Since(start).Seconds())
	}()

	page, limit := pagination(r)

	filter := repository.RecordFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if stationID := r.URL.Query().Get("station_id"); stationID != "" {
		filter.StationID = &stationID
	}

	if v := r.URL.Query().Get("start_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.sendError(w, r, "invalid start_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.StartDate = &d
	}

	if v := r.URL.Query().Get("end_date"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.sendError(w, r, "invalid end_date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		filter.EndDate = &d
	}

	records, total, err := h.weatherService.GetRecords(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_RECORDS_ERROR] Failed to get records", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/weather")
		h.sendError(w, r, "failed to retrieve weather records", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/weather", r.Method, "200")
	h.sendJSON(w, paginated(records, total, page, limit), http.StatusOK)
}

// GetStats handles GET /api/weather/stats: yearly statistics filtered by
// station and year, ordered by year ascending.
func (h *WeatherHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	defer func() {
		h.metrics.APIRequestDuration.WithLabelValues("/api/weather/stats").Observe(time.Since(start).Seconds())
	}()

	page, limit := pagination(r)

	filter := repository.StatsFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}

	if stationID := r.URL.Query().Get("station_id"); stationID != "" {
		filter.StationID = &stationID
	}

	if v := r.URL.Query().Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			h.sendError(w, r, "invalid year, expected an integer", http.StatusBadRequest)
			return
		}
		filter.Year = &year
	}

	stats, total, err := h.statsService.GetStatistics(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_STATS_ERROR] Failed to get statistics", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", "/api/weather/stats")
		h.sendError(w, r, "failed to retrieve statistics", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/weather/stats", r.Method, "200")
	h.sendJSON(w, paginated(stats, total, page, limit), http.StatusOK)
}

// HealthCheck handles GET /health.
func (h *WeatherHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.weatherService.HealthCheck(r.Context()); err != nil {
		h.sendJSON(w, map[string]string{"status": "unhealthy"}, http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// RegisterRoutes registers the weather API routes.
func (h *WeatherHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/weather", h.GetRecords).Methods("GET")
	router.HandleFunc("/api/weather/stats", h.GetStats).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", OpenAPISpec).Methods("GET")
	router.HandleFunc("/docs", SwaggerUI).Methods("GET")
}

func pagination(r *http.Request) (page, limit int) {
	page, limit = 1, defaultLimit

	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 && l <= maxLimit {
			limit = l
		}
	}

	return page, limit
}

func paginated(data interface{}, total, page, limit int) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}

func (h *WeatherHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *WeatherHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	h.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}
