package models

import (
	"path/filepath"
	"testing"

	"github.com/timshannon/bolthold"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "clipgrab.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestRecordProbe(t *testing.T) {
	db := openTestDatabase(t)

	for _, ok := range []bool{true, true, false} {
		if err := db.RecordProbe(PlatformTikTok, ok); err != nil {
			t.Fatalf("RecordProbe failed: %v", err)
		}
	}

	stats, err := db.GetPlatformStats(PlatformTikTok)
	if err != nil {
		t.Fatalf("GetPlatformStats failed: %v", err)
	}
	if stats.ProbesSucceeded != 2 {
		t.Errorf("Expected 2 successful probes, got %d", stats.ProbesSucceeded)
	}
	if stats.ProbesFailed != 1 {
		t.Errorf("Expected 1 failed probe, got %d", stats.ProbesFailed)
	}
	if stats.Platform != PlatformTikTok {
		t.Errorf("Expected platform tiktok, got %s", stats.Platform)
	}
	if stats.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestRecordStream(t *testing.T) {
	db := openTestDatabase(t)

	db.RecordStream(PlatformYouTube, StreamVideo, true)
	db.RecordStream(PlatformYouTube, StreamAudio, true)
	db.RecordStream(PlatformYouTube, StreamAudio, true)
	db.RecordStream(PlatformYouTube, StreamVideo, false)
	db.RecordProbe(PlatformFacebook, true)

	all, err := db.GetAllPlatformStats()
	if err != nil {
		t.Fatalf("GetAllPlatformStats failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 platforms, got %d", len(all))
	}

	// sorted by platform name
	if all[0].Platform != PlatformFacebook || all[1].Platform != PlatformYouTube {
		t.Errorf("Unexpected order: %s, %s", all[0].Platform, all[1].Platform)
	}

	yt := all[1]
	if yt.VideoStreams != 1 || yt.AudioStreams != 2 || yt.StreamsFailed != 1 {
		t.Errorf("Unexpected youtube counters: %+v", yt)
	}
}

func TestGetPlatformStatsNotFound(t *testing.T) {
	db := openTestDatabase(t)

	_, err := db.GetPlatformStats(PlatformInstagram)
	if err != bolthold.ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestToolStatus(t *testing.T) {
	db := openTestDatabase(t)

	if err := db.SaveToolStatus(&ToolStatus{Name: "yt-dlp", Path: "/bin/yt-dlp", Version: "2024.01.01", Available: true}); err != nil {
		t.Fatalf("SaveToolStatus failed: %v", err)
	}
	if err := db.SaveToolStatus(&ToolStatus{Name: "ffmpeg", Path: "/bin/ffmpeg", Error: "not found"}); err != nil {
		t.Fatalf("SaveToolStatus failed: %v", err)
	}

	// overwrite keeps a single record per tool
	if err := db.SaveToolStatus(&ToolStatus{Name: "yt-dlp", Path: "/bin/yt-dlp", Version: "2024.02.02", Available: true}); err != nil {
		t.Fatalf("SaveToolStatus failed: %v", err)
	}

	statuses, err := db.GetToolStatuses()
	if err != nil {
		t.Fatalf("GetToolStatuses failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 tool statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "ffmpeg" || statuses[0].Available {
		t.Errorf("Unexpected ffmpeg status: %+v", statuses[0])
	}

	ytdlp, err := db.GetToolStatus("yt-dlp")
	if err != nil {
		t.Fatalf("GetToolStatus failed: %v", err)
	}
	if ytdlp.Version != "2024.02.02" {
		t.Errorf("Expected updated version, got %s", ytdlp.Version)
	}
	if ytdlp.CheckedAt.IsZero() {
		t.Error("CheckedAt should be set")
	}
}
