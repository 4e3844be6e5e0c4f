package ffmpeg

import (
	"github.com/amaumene/clipgrab/internal/config"
	"github.com/amaumene/clipgrab/internal/pipeline"
)

// StageName labels ffmpeg processes in errors, logs and metrics
const StageName = "ffmpeg"

// MP3Bitrate is the constant bitrate of transcoded audio
const MP3Bitrate = "320k"

// Client builds ffmpeg invocations
type Client struct {
	path string
}

// NewClient creates a new ffmpeg client
func NewClient(cfg *config.Config) *Client {
	return &Client{path: cfg.FFmpegPath}
}

// MP3Stage reads any audio container on stdin and writes MP3 to stdout
func (c *Client) MP3Stage() pipeline.Stage {
	return pipeline.Stage{
		Name: StageName,
		Path: c.path,
		Args: []string{
			"-hide_banner",
			"-loglevel", "error",
			"-i", "pipe:0",
			"-vn",
			"-codec:a", "libmp3lame",
			"-b:a", MP3Bitrate,
			"-f", "mp3",
			"pipe:1",
		},
	}
}

// VersionStage prints the build banner
func (c *Client) VersionStage() pipeline.Stage {
	return pipeline.Stage{Name: StageName, Path: c.path, Args: []string{"-hide_banner", "-version"}}
}

// Path returns the configured binary
func (c *Client) Path() string {
	return c.path
}
