package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/amaumene/clipgrab/internal/controllers"
	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/pipeline"
	"github.com/amaumene/clipgrab/internal/utils"
	"github.com/sirupsen/logrus"
)

// Streamer writes media to a client
type Streamer interface {
	StreamVideo(ctx context.Context, q models.MediaQuery, formatID string, w io.Writer) error
	StreamAudio(ctx context.Context, q models.MediaQuery, w io.Writer) error
}

// DownloadHandler streams video (GET /download) or audio (GET /audio)
type DownloadHandler struct {
	streamer Streamer
	kind     models.StreamKind
	logger   *logrus.Logger
}

// NewVideoHandler creates the MP4 download handler
func NewVideoHandler(streamer Streamer, logger *logrus.Logger) *DownloadHandler {
	return &DownloadHandler{streamer: streamer, kind: models.StreamVideo, logger: logger}
}

// NewAudioHandler creates the MP3 download handler
func NewAudioHandler(streamer Streamer, logger *logrus.Logger) *DownloadHandler {
	return &DownloadHandler{streamer: streamer, kind: models.StreamAudio, logger: logger}
}

// ServeHTTP handles the download endpoints
func (h *DownloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	raw := params.Get("url")
	if strings.TrimSpace(raw) == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	formatID := params.Get("format")
	if h.kind == models.StreamVideo {
		if err := controllers.ValidateFormatID(formatID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	q := utils.ParseQuery(raw)
	sw := newStreamWriter(w, h.kind, q.Platform)

	var err error
	if h.kind == models.StreamAudio {
		err = h.streamer.StreamAudio(r.Context(), q, sw)
	} else {
		err = h.streamer.StreamVideo(r.Context(), q, formatID, sw)
	}

	if err == nil {
		sw.start()
		return
	}

	log := h.logger.WithError(err).WithFields(logrus.Fields{
		"platform": q.Platform,
		"kind":     h.kind,
		"bytes":    sw.written,
	})

	if r.Context().Err() != nil {
		log.Debug("Client went away during stream")
		return
	}

	if !sw.started {
		status := http.StatusBadGateway
		if errors.Is(err, pipeline.ErrSpawn) {
			status = http.StatusInternalServerError
		}
		log.Error("Stream failed before any data was sent")
		http.Error(w, err.Error(), status)
		return
	}

	// Headers are gone: the only way to signal failure is to break the transfer
	log.Error("Stream failed mid-transfer, aborting response")
	panic(http.ErrAbortHandler)
}

// streamWriter sends the download headers on the first byte and flushes every write
type streamWriter struct {
	w        http.ResponseWriter
	rc       *http.ResponseController
	kind     models.StreamKind
	platform models.Platform
	started  bool
	written  int64
}

func newStreamWriter(w http.ResponseWriter, kind models.StreamKind, platform models.Platform) *streamWriter {
	return &streamWriter{
		w:        w,
		rc:       http.NewResponseController(w),
		kind:     kind,
		platform: platform,
	}
}

func (s *streamWriter) start() {
	if s.started {
		return
	}
	s.started = true

	contentType, ext := "video/mp4", "mp4"
	if s.kind == models.StreamAudio {
		contentType, ext = "audio/mpeg", "mp3"
	}

	header := s.w.Header()
	header.Set("Content-Type", contentType)
	header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": string(s.platform) + "." + ext,
	}))
	header.Set("Cache-Control", "no-store")
	header.Set("X-Accel-Buffering", "no")
	header.Set("X-Content-Type-Options", "nosniff")
	s.w.WriteHeader(http.StatusOK)
}

func (s *streamWriter) Write(p []byte) (int, error) {
	s.start()
	n, err := s.w.Write(p)
	s.written += int64(n)
	if err != nil {
		return n, err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}
