package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/xpradar/internal/model"
)

// DocError is a per-note failure that did not abort the pass.
type DocError struct {
	Path string
	Err  error
}

func (e DocError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e DocError) Unwrap() error {
	return e.Err
}

// Report describes what a pass did.
type Report struct {
	RunID     string
	PassID    int64
	StartedAt time.Time
	EndedAt   time.Time
	DryRun    bool
	Forced    bool

	Documents int
	// Mentions counts completed tasks credited by this pass.
	Mentions int
	// SkippedMentions counts completed tasks credited by earlier passes.
	SkippedMentions int
	NewXP           int

	Written       []string
	ReadFailures  []DocError
	WriteFailures []DocError
	Duplicates    []string
	Orphans       []string
}

// Record converts the report into a history row.
func (r Report) Record() model.PassRecord {
	return model.PassRecord{
		RunID:         r.RunID,
		StartedAt:     r.StartedAt,
		EndedAt:       r.EndedAt,
		Forced:        r.Forced,
		Documents:     r.Documents,
		Mentions:      r.Mentions,
		NewXP:         r.NewXP,
		Written:       len(r.Written),
		ReadFailures:  len(r.ReadFailures),
		WriteFailures: len(r.WriteFailures),
	}
}

// Failed reports whether any note could not be read or written.
func (r Report) Failed() bool {
	return len(r.ReadFailures) > 0 || len(r.WriteFailures) > 0
}

// Summary is the one-line outcome shown to the user.
func (r Report) Summary() string {
	var parts []string
	switch {
	case r.DryRun:
		parts = append(parts, fmt.Sprintf("%d notes scanned, +%d XP pending", r.Documents, r.NewXP))
	case r.NewXP == 0 && len(r.Written) == 0:
		parts = append(parts, fmt.Sprintf("%d notes scanned, no new XP", r.Documents))
	default:
		parts = append(parts, fmt.Sprintf("+%d XP from %d tasks, %d notes updated", r.NewXP, r.Mentions, len(r.Written)))
	}
	if n := len(r.ReadFailures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unreadable", n))
	}
	if n := len(r.WriteFailures); n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed to update", n))
	}
	return "⚡ XP: " + strings.Join(parts, ", ")
}
