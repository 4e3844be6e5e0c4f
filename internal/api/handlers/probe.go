package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/pipeline"
	"github.com/amaumene/clipgrab/internal/utils"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const maxProbeBody = 64 << 10

// Previewer probes a query and returns the user-facing preview
type Previewer interface {
	Preview(ctx context.Context, q models.MediaQuery) (*models.Preview, error)
}

// ProbeHandler handles metadata lookups
type ProbeHandler struct {
	previewer Previewer
	logger    *logrus.Logger
}

// NewProbeHandler creates a new probe handler
func NewProbeHandler(previewer Previewer, logger *logrus.Logger) *ProbeHandler {
	return &ProbeHandler{
		previewer: previewer,
		logger:    logger,
	}
}

// ProbeRequest is the body of POST /probe
type ProbeRequest struct {
	URL string `json:"url"`
}

// FormatResponse describes one selectable encoding
type FormatResponse struct {
	FormatID   string `json:"format_id"`
	Ext        string `json:"ext"`
	Resolution string `json:"resolution"`
	VCodec     string `json:"vcodec"`
	ACodec     string `json:"acodec"`
	Filesize   *int64 `json:"filesize"`
	Protocol   string `json:"protocol"`
	Note       string `json:"note,omitempty"`
}

// PreviewResponse is the body of a successful probe
type PreviewResponse struct {
	URL           string           `json:"url"`
	Platform      models.Platform  `json:"platform"`
	Title         string           `json:"title"`
	Thumbnail     *string          `json:"thumbnail"`
	Duration      *float64         `json:"duration"`
	Extractor     string           `json:"extractor"`
	Formats       []FormatResponse `json:"formats"`
	DefaultFormat *FormatResponse  `json:"default_format"`
}

// ServeHTTP handles the probe endpoint
func (h *ProbeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ProbeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxProbeBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	q := utils.ParseQuery(req.URL)
	preview, err := h.previewer.Preview(r.Context(), q)
	if err != nil {
		if r.Context().Err() != nil {
			h.logger.WithField("platform", q.Platform).Debug("Client went away during probe")
			return
		}

		status := http.StatusBadGateway
		if errors.Is(err, pipeline.ErrSpawn) {
			status = http.StatusInternalServerError
		}
		h.logger.WithError(err).WithField("platform", q.Platform).Error("Probe failed")
		writeError(w, status, err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, NewPreviewResponse(preview)); err != nil {
		h.logger.WithError(err).Warn("Failed to write probe response")
	}
}

// NewPreviewResponse converts a preview to its JSON form
func NewPreviewResponse(p *models.Preview) PreviewResponse {
	resp := PreviewResponse{
		URL:       p.Query.URL,
		Platform:  p.Query.Platform,
		Title:     p.Metadata.Title,
		Thumbnail: p.Metadata.Thumbnail.ToPointer(),
		Duration:  p.Metadata.Duration.ToPointer(),
		Extractor: p.Metadata.Extractor,
		Formats:   lo.Map(p.Formats, func(f models.EncodingDescriptor, _ int) FormatResponse { return newFormatResponse(f) }),
	}
	if def, ok := p.Default.Get(); ok {
		f := newFormatResponse(def)
		resp.DefaultFormat = &f
	}
	return resp
}

func newFormatResponse(f models.EncodingDescriptor) FormatResponse {
	return FormatResponse{
		FormatID:   f.FormatID,
		Ext:        f.Ext,
		Resolution: f.Resolution,
		VCodec:     f.VCodec,
		ACodec:     f.ACodec,
		Filesize:   f.Filesize.ToPointer(),
		Protocol:   f.Protocol,
		Note:       f.Note,
	}
}
