package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/xpradar/internal/model"
	"github.com/verte-zerg/xpradar/internal/store"
)

func TestBuildHistory(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "xpradar.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	passXP := [][2]int{{5, 0}, {7, 2}, {7, 4}}
	for i, xp := range passXP {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		rec := model.PassRecord{RunID: "run", StartedAt: start, EndedAt: start.Add(time.Second)}
		points := []model.StatPoint{{Kind: model.KindMain, StatID: "Physical", TotalXP: xp[0], Level: 1}}
		if i > 0 {
			points = append(points, model.StatPoint{Kind: model.KindMain, StatID: "Social", TotalXP: xp[1], Level: 1})
		}
		if _, err := st.RecordPass(ctx, rec, points, nil); err != nil {
			t.Fatalf("record pass: %v", err)
		}
	}

	snap := model.Snapshot{MainStats: []model.MainStat{{ID: "Physical", Name: "Physical"}, {ID: "Social", Name: "Social"}, {ID: "Unused", Name: "Unused"}}}
	hist, err := BuildHistory(ctx, st, snap, 0)
	if err != nil {
		t.Fatalf("build history: %v", err)
	}
	if len(hist.Passes) != 3 {
		t.Fatalf("expected 3 passes, got %d", len(hist.Passes))
	}
	want := []Series{
		{Name: "Physical", Values: []float64{5, 7, 7}},
		{Name: "Social", Values: []float64{0, 2, 4}},
	}
	if diff := cmp.Diff(want, hist.MainSeries()); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}
	if got := hist.Trend("Social"); got != " +@" {
		t.Fatalf("unexpected trend %q", got)
	}

	windowed, err := BuildHistory(ctx, st, snap, 2)
	if err != nil {
		t.Fatalf("build history: %v", err)
	}
	if len(windowed.Passes) != 2 || windowed.MainSeries()[0].Values[0] != 7 {
		t.Fatalf("expected last two passes, got %+v", windowed.MainSeries())
	}
}

func TestMainSeriesWithoutPasses(t *testing.T) {
	if got := (History{MainOrder: []string{"A"}}).MainSeries(); got != nil {
		t.Fatalf("expected no series, got %v", got)
	}
}
