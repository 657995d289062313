// Package model defines shared data structures.
package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// MiscCategory is the category of sub-stats with no resolvable category.
const MiscCategory = "Misc"

// Settings is the configuration snapshot used for one aggregation pass.
type Settings struct {
	SubStatTag     string
	MainStatTag    string
	TemplateName   string
	XPMultiplier   float64
	LevelExponent  float64
	MainToSubRatio float64
	ForceUpdate    bool
	Debug          bool
}

// LevelInfo is the position of a cumulative XP total on the leveling curve.
type LevelInfo struct {
	Level     int
	XPCurrent int
	XPNeeded  int
	Progress  int
}

// Mention is one completed task awarding XP to a sub-stat.
type Mention struct {
	SubStatID   string
	XP          int
	DocPath     string
	Line        int
	Fingerprint string
}

// Ref identifies a document in the vault.
type Ref struct {
	// Path is slash separated and relative to the vault root.
	Path string
	// ID is the file base name without extension.
	ID string
}

// Task is a list item with a checkbox.
type Task struct {
	Completed bool
	// Line is the zero-based index of the task's line in Content.
	Line int
}

// Metadata is the typed view of a document's front matter and inline fields.
type Metadata struct {
	Categories   []string
	Category     string
	MainCategory string
	// TotalXP and LegacyXP hold the raw "total-xp" and "xp" values; nil when absent.
	TotalXP  *string
	LegacyXP *string
}

// StoredTotalXP returns the persisted XP total. "total-xp" wins over "xp";
// values that do not parse count as zero.
func (m Metadata) StoredTotalXP() int {
	switch {
	case m.TotalXP != nil:
		return parseXP(*m.TotalXP)
	case m.LegacyXP != nil:
		return parseXP(*m.LegacyXP)
	default:
		return 0
	}
}

func parseXP(raw string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxInt {
		return math.MaxInt
	}
	return int(math.Floor(v))
}

// AddXP returns a+b, saturating at the bounds of int.
func AddXP(a, b int) int {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return math.MaxInt
	case b < 0 && a < math.MinInt-b:
		return math.MinInt
	}
	return a + b
}

// Document is a note read from the vault.
type Document struct {
	Ref     Ref
	Content string
	Meta    Metadata
	Tasks   []Task
	// Tags holds front matter tags and inline #tags without the leading '#'.
	Tags []string
}

// HasTag reports whether the document carries tag.
func (d Document) HasTag(tag string) bool {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return false
	}
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Field is a persisted "key:: value" pair.
type Field struct {
	Key   string
	Value string
}

// SubStat is a leaf entity that earns XP directly from tasks.
type SubStat struct {
	ID            string
	Path          string
	StoredTotalXP int
	NewXPEarned   int
	TotalXP       int
	MainCategory  string
	LevelInfo
}

// MainStat groups sub-stats sharing a category.
type MainStat struct {
	ID               string
	Path             string
	Name             string
	StoredTotalXP    int
	NewMainXP        int
	TotalXP          int
	AssignedSubStats []string
	TotalSubLevels   int
	AvgSubLevel      float64
	LevelInfo
}

// Snapshot is the full stat tree produced by one pass.
type Snapshot struct {
	SubStats map[string]SubStat
	// SubStatOrder lists sub-stat IDs in corpus order.
	SubStatOrder []string
	// MainStats are in corpus order.
	MainStats []MainStat
}

// OrderedSubStats returns the sub-stats in corpus order.
func (s Snapshot) OrderedSubStats() []SubStat {
	out := make([]SubStat, 0, len(s.SubStatOrder))
	for _, id := range s.SubStatOrder {
		if sub, ok := s.SubStats[id]; ok {
			out = append(out, sub)
		}
	}
	return out
}

// PassRecord summarizes a recorded aggregation pass.
type PassRecord struct {
	ID            int64
	RunID         string
	StartedAt     time.Time
	EndedAt       time.Time
	Forced        bool
	Documents     int
	Mentions      int
	NewXP         int
	Written       int
	ReadFailures  int
	WriteFailures int
}

// StatPoint is one entity's state as recorded by a pass.
type StatPoint struct {
	PassID  int64
	EndedAt time.Time
	Kind    string
	StatID  string
	TotalXP int
	Level   int
}

// Stat kinds recorded in pass history.
const (
	KindSub  = "sub"
	KindMain = "main"
)
