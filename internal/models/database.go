package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Platform stats operations

// RecordProbe counts a finished probe for a platform
func (db *Database) RecordProbe(platform Platform, ok bool) error {
	return db.updateStats(platform, func(s *PlatformStats) {
		if ok {
			s.ProbesSucceeded++
		} else {
			s.ProbesFailed++
		}
	})
}

// RecordStream counts a finished download stream for a platform
func (db *Database) RecordStream(platform Platform, kind StreamKind, ok bool) error {
	return db.updateStats(platform, func(s *PlatformStats) {
		if !ok {
			s.StreamsFailed++
			return
		}
		switch kind {
		case StreamVideo:
			s.VideoStreams++
		case StreamAudio:
			s.AudioStreams++
		}
	})
}

// updateStats applies fn to the stored counters inside a single bolt transaction
func (db *Database) updateStats(platform Platform, fn func(*PlatformStats)) error {
	key := string(platform)

	return db.store.Bolt().Update(func(tx *bbolt.Tx) error {
		var stats PlatformStats
		err := db.store.TxGet(tx, key, &stats)
		if err != nil && err != bolthold.ErrNotFound {
			return err
		}

		stats.Platform = platform
		fn(&stats)
		stats.UpdatedAt = time.Now()

		return db.store.TxUpsert(tx, key, &stats)
	})
}

// GetPlatformStats retrieves the counters for one platform
func (db *Database) GetPlatformStats(platform Platform) (*PlatformStats, error) {
	var stats PlatformStats
	err := db.store.Get(string(platform), &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetAllPlatformStats retrieves the counters of every platform seen so far
func (db *Database) GetAllPlatformStats() ([]*PlatformStats, error) {
	var stats []*PlatformStats
	if err := db.store.Find(&stats, nil); err != nil {
		return nil, err
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Platform < stats[j].Platform
	})

	return stats, nil
}

// Tool status operations

// SaveToolStatus stores the latest check result for a tool
func (db *Database) SaveToolStatus(status *ToolStatus) error {
	if status.CheckedAt.IsZero() {
		status.CheckedAt = time.Now()
	}
	return db.store.Upsert(status.Name, status)
}

// GetToolStatus retrieves the latest check result for a tool
func (db *Database) GetToolStatus(name string) (*ToolStatus, error) {
	var status ToolStatus
	err := db.store.Get(name, &status)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// GetToolStatuses retrieves the latest check result of every tool
func (db *Database) GetToolStatuses() ([]*ToolStatus, error) {
	var statuses []*ToolStatus
	if err := db.store.Find(&statuses, nil); err != nil {
		return nil, err
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Name < statuses[j].Name
	})

	return statuses, nil
}
