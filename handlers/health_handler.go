package handlers

import (
	"context"
	"net/http"
	"time"

	"vendorcompliance/utils"
	"vendorcompliance/workflow"
)

// HealthCheckResponse represents health check status
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database,omitempty"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime,omitempty"`
}

var startTime = time.Now()

// HealthCheck handles health check requests
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthCheckResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
	code := http.StatusOK

	if pingDatabase != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := pingDatabase(ctx); err != nil {
			response.Status = "unhealthy"
			response.Database = "disconnected"
			code = http.StatusServiceUnavailable
		} else {
			response.Database = "connected"
		}
	}

	utils.RespondWithJSON(w, code, response)
}

// GetDocumentTypes handles GET /api/document-types?month
func GetDocumentTypes(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = workflow.Months[time.Now().Month()-1]
	}
	req := workflow.ResolveMandatory(month)
	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"month":     req.Month,
		"mandatory": req.Mandatory,
		"optional":  req.Optional,
		"all":       workflow.AllDocumentTypes(),
	})
}
