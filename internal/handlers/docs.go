package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 description of the weather API.
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	paginationParams := []map[string]interface{}{
		{
			"name":        "page",
			"in":          "query",
			"description": "Page number, starting at 1",
			"required":    false,
			"schema":      map[string]interface{}{"type": "integer", "default": 1},
		},
		{
			"name":        "limit",
			"in":          "query",
			"description": "Page size, max 1000",
			"required":    false,
			"schema":      map[string]interface{}{"type": "integer", "default": 100},
		},
	}

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Weather Pipeline API",
			"description": "Read access to ingested daily weather records and derived yearly statistics",
			"version":     "1.0.0",
		},
		"paths": map[string]interface{}{
			"/api/weather": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List daily weather records",
					"parameters": append([]map[string]interface{}{
						{
							"name":        "station_id",
							"in":          "query",
							"description": "Filter by station identifier",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "start_date",
							"in":          "query",
							"description": "Inclusive start date (YYYY-MM-DD)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
						{
							"name":        "end_date",
							"in":          "query",
							"description": "Inclusive end date (YYYY-MM-DD)",
							"required":    false,
							"schema":      map[string]string{"type": "string", "format": "date"},
						},
					}, paginationParams...),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Paginated records ordered by date ascending",
						},
						"400": map[string]interface{}{
							"description": "Invalid filter parameter",
						},
					},
				},
			},
			"/api/weather/stats": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List yearly weather statistics",
					"parameters": append([]map[string]interface{}{
						{
							"name":        "station_id",
							"in":          "query",
							"description": "Filter by station identifier",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
						{
							"name":        "year",
							"in":          "query",
							"description": "Filter by calendar year",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
					}, paginationParams...),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Paginated statistics ordered by year ascending",
						},
						"400": map[string]interface{}{
							"description": "Invalid filter parameter",
						},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Service health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Service and storage healthy"},
						"503": map[string]interface{}{"description": "Storage unreachable"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
