package handlers

import (
	"net/http"
	"time"

	"github.com/amaumene/clipgrab/internal/models"
	"github.com/sirupsen/logrus"
)

// StatsReader returns the aggregate usage counters
type StatsReader interface {
	GetAllPlatformStats() ([]*models.PlatformStats, error)
}

// StatusHandler handles status requests
type StatusHandler struct {
	store  StatsReader
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(store StatsReader, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		store:  store,
		logger: logger,
	}
}

// PlatformCounters are the counters of one platform
type PlatformCounters struct {
	Platform        models.Platform `json:"platform"`
	ProbesSucceeded int             `json:"probes_succeeded"`
	ProbesFailed    int             `json:"probes_failed"`
	VideoStreams    int             `json:"video_streams"`
	AudioStreams    int             `json:"audio_streams"`
	StreamsFailed   int             `json:"streams_failed"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalProbes  int                `json:"total_probes"`
	TotalStreams int                `json:"total_streams"`
	Platforms    []PlatformCounters `json:"platforms"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.store.GetAllPlatformStats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get platform stats")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		Platforms: make([]PlatformCounters, 0, len(stats)),
	}

	for _, s := range stats {
		response.TotalProbes += s.ProbesSucceeded + s.ProbesFailed
		response.TotalStreams += s.VideoStreams + s.AudioStreams + s.StreamsFailed

		response.Platforms = append(response.Platforms, PlatformCounters{
			Platform:        s.Platform,
			ProbesSucceeded: s.ProbesSucceeded,
			ProbesFailed:    s.ProbesFailed,
			VideoStreams:    s.VideoStreams,
			AudioStreams:    s.AudioStreams,
			StreamsFailed:   s.StreamsFailed,
			UpdatedAt:       s.UpdatedAt,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
