package stats

import (
	"context"

	"github.com/verte-zerg/xpradar/internal/model"
)

// HistorySource loads recorded passes and per-entity states.
type HistorySource interface {
	ListPasses(ctx context.Context, last int) ([]model.PassRecord, error)
	StatHistory(ctx context.Context, kind string, statIDs []string) (map[string][]model.StatPoint, error)
}

// History holds the recorded passes and the main-stat states they left.
type History struct {
	Passes    []model.PassRecord
	MainOrder []string
	Main      map[string][]model.StatPoint
}

// BuildHistory loads the last passes and the history of the snapshot's
// main-stats.
func BuildHistory(ctx context.Context, src HistorySource, snap model.Snapshot, last int) (History, error) {
	passes, err := src.ListPasses(ctx, last)
	if err != nil {
		return History{}, err
	}
	ids := make([]string, len(snap.MainStats))
	for i, m := range snap.MainStats {
		ids[i] = m.ID
	}
	points, err := src.StatHistory(ctx, model.KindMain, ids)
	if err != nil {
		return History{}, err
	}
	return History{Passes: passes, MainOrder: ids, Main: points}, nil
}

// MainSeries returns one XP series per main-stat aligned to Passes. A pass
// without a recorded state repeats the previous value.
func (h History) MainSeries() []Series {
	if len(h.Passes) == 0 {
		return nil
	}
	series := make([]Series, 0, len(h.MainOrder))
	for _, id := range h.MainOrder {
		byPass := map[int64]int{}
		for _, p := range h.Main[id] {
			byPass[p.PassID] = p.TotalXP
		}
		if len(byPass) == 0 {
			continue
		}
		values := make([]float64, len(h.Passes))
		prev := 0.0
		for i, pass := range h.Passes {
			if xp, ok := byPass[pass.ID]; ok {
				prev = float64(xp)
			}
			values[i] = prev
		}
		series = append(series, Series{Name: id, Values: values})
	}
	return series
}

// Trend returns a sparkline of a main-stat's XP across Passes.
func (h History) Trend(id string) string {
	for _, s := range h.MainSeries() {
		if s.Name == id {
			return Sparkline(s.Values)
		}
	}
	return ""
}
