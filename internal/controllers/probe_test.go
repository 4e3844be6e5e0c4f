package controllers

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/amaumene/clipgrab/internal/models"
	"github.com/amaumene/clipgrab/internal/pipeline"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attemptOutcome struct {
	result *models.ProbeResult
	err    error
}

// scriptedExecutor replays one outcome per attempt and records what it was asked to run
type scriptedExecutor struct {
	mu       sync.Mutex
	outcomes []attemptOutcome
	seen     []models.Attempt
	onRun    func(n int)
}

func (s *scriptedExecutor) RunAttempt(ctx context.Context, attempt models.Attempt) (*models.ProbeResult, error) {
	s.mu.Lock()
	n := len(s.seen)
	s.seen = append(s.seen, attempt)
	s.mu.Unlock()

	if s.onRun != nil {
		s.onRun(n)
	}
	if n >= len(s.outcomes) {
		return nil, errors.New("unexpected attempt")
	}
	return s.outcomes[n].result, s.outcomes[n].err
}

type memoryStats struct {
	probes  map[bool]int
	streams map[models.StreamKind]map[bool]int
}

func newMemoryStats() *memoryStats {
	return &memoryStats{probes: map[bool]int{}, streams: map[models.StreamKind]map[bool]int{}}
}

func (m *memoryStats) RecordProbe(platform models.Platform, ok bool) error {
	m.probes[ok]++
	return nil
}

func (m *memoryStats) RecordStream(platform models.Platform, kind models.StreamKind, ok bool) error {
	if m.streams[kind] == nil {
		m.streams[kind] = map[bool]int{}
	}
	m.streams[kind][ok]++
	return nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func mp4(id, resolution string) models.EncodingDescriptor {
	return models.EncodingDescriptor{
		FormatID:   id,
		Ext:        "mp4",
		VCodec:     "h264",
		ACodec:     "aac",
		Resolution: resolution,
		Protocol:   "https",
	}
}

func withFormats(formats ...models.EncodingDescriptor) *models.ProbeResult {
	return &models.ProbeResult{
		Metadata: models.MediaMetadata{Title: "clip", Extractor: "test"},
		Formats:  formats,
	}
}

func TestProbeTikTokSecondProfileSucceeds(t *testing.T) {
	executor := &scriptedExecutor{outcomes: []attemptOutcome{
		{result: withFormats()},
		{result: withFormats(mp4("a", "540p"), mp4("b", "720p"), mp4("c", "1080p"))},
	}}
	stats := newMemoryStats()
	controller := NewProbeController(executor, stats, 0, quietLogger())

	q := models.MediaQuery{URL: "https://www.tiktok.com/@u/video/1", Platform: models.PlatformTikTok}
	result, err := controller.Probe(context.Background(), q)

	require.NoError(t, err)
	assert.Len(t, result.Formats, 3)
	require.Len(t, executor.seen, 2)
	assert.Equal(t, "default", executor.seen[0].Profile.Name)
	assert.Equal(t, "trill", executor.seen[1].Profile.Name)
	assert.Equal(t, 1, stats.probes[true])
}

func TestProbeExhaustion(t *testing.T) {
	exitErr := &pipeline.StageError{Stage: "yt-dlp", ExitCode: 1, Err: errors.New("exit status 1")}
	executor := &scriptedExecutor{outcomes: []attemptOutcome{
		{err: errors.New("first")},
		{result: withFormats()},
		{err: exitErr},
	}}
	stats := newMemoryStats()
	controller := NewProbeController(executor, stats, 0, quietLogger())

	q := models.MediaQuery{URL: "https://www.tiktok.com/@u/video/1", Platform: models.PlatformTikTok}
	_, err := controller.Probe(context.Background(), q)

	require.Error(t, err)
	var failure *ProbeFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 3, failure.Attempts)
	assert.True(t, errors.Is(err, pipeline.ErrExit))
	assert.Len(t, executor.seen, 3)
	assert.Equal(t, 1, stats.probes[false])
}

func TestProbeExhaustionOnEmpty(t *testing.T) {
	executor := &scriptedExecutor{outcomes: []attemptOutcome{
		{result: withFormats()},
		{result: withFormats()},
		{result: withFormats(models.EncodingDescriptor{FormatID: "audio", Ext: "m4a", VCodec: "none", ACodec: "aac"})},
	}}
	controller := NewProbeController(executor, nil, 0, quietLogger())

	q := models.MediaQuery{URL: "https://www.facebook.com/reel/1", Platform: models.PlatformFacebook}
	_, err := controller.Probe(context.Background(), q)

	assert.True(t, errors.Is(err, ErrNoUsableEncodings))
	require.Len(t, executor.seen, 3)
	assert.Equal(t, "https://www.facebook.com/reel/1", executor.seen[0].URL)
	assert.Equal(t, "https://m.facebook.com/reel/1", executor.seen[1].URL)
	assert.Equal(t, "https://web.facebook.com/reel/1", executor.seen[2].URL)
}

func TestProbeYouTubeEmptyIsSuccess(t *testing.T) {
	executor := &scriptedExecutor{outcomes: []attemptOutcome{{result: withFormats()}}}
	controller := NewProbeController(executor, nil, 0, quietLogger())

	q := models.MediaQuery{URL: "https://www.youtube.com/watch?v=abc", Platform: models.PlatformYouTube}
	preview, err := controller.Preview(context.Background(), q)

	require.NoError(t, err)
	assert.Empty(t, preview.Formats)
	assert.True(t, preview.Default.IsAbsent())
	assert.Len(t, executor.seen, 1)
}

func TestProbeYouTubeErrorIsNotRetried(t *testing.T) {
	executor := &scriptedExecutor{outcomes: []attemptOutcome{{err: pipeline.ErrSpawn}}}
	controller := NewProbeController(executor, nil, 0, quietLogger())

	q := models.MediaQuery{URL: "https://www.youtube.com/watch?v=abc", Platform: models.PlatformYouTube}
	_, err := controller.Probe(context.Background(), q)

	var failure *ProbeFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 1, failure.Attempts)
	assert.True(t, errors.Is(err, pipeline.ErrSpawn))
}

func TestProbeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	executor := &scriptedExecutor{
		outcomes: []attemptOutcome{{err: errors.New("killed")}, {result: withFormats(mp4("a", "720p"))}},
		onRun: func(n int) {
			if n == 0 {
				cancel()
			}
		},
	}
	controller := NewProbeController(executor, nil, 0, quietLogger())

	q := models.MediaQuery{URL: "https://www.tiktok.com/@u/video/1", Platform: models.PlatformTikTok}
	_, err := controller.Probe(ctx, q)

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, executor.seen, 1)
}

func TestPreviewShortlist(t *testing.T) {
	webm := mp4("303", "1080p")
	webm.Ext = "webm"
	executor := &scriptedExecutor{outcomes: []attemptOutcome{
		{result: withFormats(mp4("18", "360p"), mp4("22", "720p"), webm)},
	}}
	controller := NewProbeController(executor, nil, 0, quietLogger())

	q := models.MediaQuery{URL: "https://www.youtube.com/watch?v=abc", Platform: models.PlatformYouTube}
	preview, err := controller.Preview(context.Background(), q)

	require.NoError(t, err)
	assert.Equal(t, q, preview.Query)
	assert.Equal(t, "clip", preview.Metadata.Title)
	require.Len(t, preview.Formats, 1)
	assert.Equal(t, "22", preview.Formats[0].FormatID)
	assert.Equal(t, "22", preview.Default.MustGet().FormatID)
}
