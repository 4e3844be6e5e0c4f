package models

import "time"

// PlatformStats holds aggregate counters for one platform.
// Only counts are kept; URLs and titles are never stored.
type PlatformStats struct {
	Platform        Platform
	ProbesSucceeded int
	ProbesFailed    int
	VideoStreams    int
	AudioStreams    int
	StreamsFailed   int
	UpdatedAt       time.Time
}

// ToolStatus is the result of the last health check of an external binary
type ToolStatus struct {
	Name      string
	Path      string
	Version   string
	Available bool
	Error     string
	CheckedAt time.Time
}
