package handlers

import (
	"net/http"
	"time"

	"github.com/amaumene/clipgrab/internal/models"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// ToolStatusReader returns the last tool check results
type ToolStatusReader interface {
	GetToolStatuses() ([]*models.ToolStatus, error)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	store     ToolStatusReader
	essential string
	logger    *logrus.Logger
}

// NewHealthHandler creates a new health handler. The service reports unhealthy
// while the essential tool is unavailable.
func NewHealthHandler(store ToolStatusReader, essential string, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		store:     store,
		essential: essential,
		logger:    logger,
	}
}

// ToolResponse is the last check of one external tool
type ToolResponse struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Available bool      `json:"available"`
	Version   string    `json:"version,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// HealthResponse represents the health response
type HealthResponse struct {
	Status string         `json:"status"`
	Tools  []ToolResponse `json:"tools"`
}

// ServeHTTP handles the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	statuses, err := h.store.GetToolStatuses()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get tool statuses")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := HealthResponse{
		Status: "healthy",
		Tools: lo.Map(statuses, func(s *models.ToolStatus, _ int) ToolResponse {
			return ToolResponse{
				Name:      s.Name,
				Path:      s.Path,
				Available: s.Available,
				Version:   s.Version,
				Error:     s.Error,
				CheckedAt: s.CheckedAt,
			}
		}),
	}

	status := http.StatusOK
	essential, found := lo.Find(statuses, func(s *models.ToolStatus) bool { return s.Name == h.essential })
	switch {
	case !found:
		response.Status = "starting"
		status = http.StatusServiceUnavailable
	case !essential.Available:
		response.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case lo.SomeBy(statuses, func(s *models.ToolStatus) bool { return !s.Available }):
		response.Status = "degraded"
	}

	writeJSON(w, status, response)
}
