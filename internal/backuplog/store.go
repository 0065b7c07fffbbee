// Package backuplog keeps the most recent backup events reported by the
// backup tooling.
//
// Primary backend: a Redis list trimmed to the newest entries (REDIS_URL).
// Fallback: an in-process ring of the same capacity.
package backuplog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vvka-141/imdbload/pkg/imdbload"
)

// Entry is one backup event.
type Entry struct {
	ID            string    `json:"id"`
	When          time.Time `json:"when"`
	Node          string    `json:"node"`
	Stanza        string    `json:"stanza"`
	DBName        string    `json:"dbname"`
	Type          string    `json:"type"`
	Label         *string   `json:"label"`
	RepoSizeBytes *int64    `json:"repo_size_bytes"`
	DBBackupBytes *int64    `json:"db_backup_bytes"`
	DurationSec   *float64  `json:"duration_sec"`
	WALStart      *string   `json:"wal_start"`
	WALStop       *string   `json:"wal_stop"`
	Notes         *string   `json:"notes"`
}

// AssignID sets ID to "<unix seconds>:<label or type>".
func (e *Entry) AssignID() {
	suffix := e.Type
	if e.Label != nil && *e.Label != "" {
		suffix = *e.Label
	}
	e.ID = strconv.FormatInt(e.When.Unix(), 10) + ":" + suffix
}

// ErrInvalidEntry reports a missing required field.
var ErrInvalidEntry = errors.New("invalid backup log entry")

// Validate checks the required fields.
func (e *Entry) Validate() error {
	required := []struct{ name, value string }{
		{"node", e.Node},
		{"stanza", e.Stanza},
		{"dbname", e.DBName},
		{"type", e.Type},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s is required: %w", f.name, ErrInvalidEntry)
		}
	}
	return nil
}

// Store appends events and lists the newest ones.
type Store interface {
	// Push stores e, evicting the oldest entry beyond capacity.
	Push(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first. A limit below one
	// is treated as one.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// NewStore creates the best available store: Redis when redisURL is set,
// otherwise the in-memory ring.
func NewStore(redisURL string, capacity int) (Store, error) {
	if capacity <= 0 {
		capacity = imdbload.BackupLogCapacity
	}
	if redisURL != "" {
		return newRedisStore(redisURL, capacity)
	}
	return newMemoryStore(capacity), nil
}

func clampLimit(limit, capacity int) int {
	if limit < 1 {
		return 1
	}
	if limit > capacity {
		return capacity
	}
	return limit
}
