package stats

import (
	"testing"

	"github.com/verte-zerg/xpradar/internal/model"
)

func TestTopSubStats(t *testing.T) {
	snap := model.Snapshot{
		SubStats: map[string]model.SubStat{
			"Running": {ID: "Running", TotalXP: 30},
			"Reading": {ID: "Reading", TotalXP: 50},
			"Chess":   {ID: "Chess", TotalXP: 30},
		},
		SubStatOrder: []string{"Running", "Reading", "Chess"},
	}
	top := TopSubStats(snap, 2)
	if len(top) != 2 || top[0].ID != "Reading" || top[1].ID != "Chess" {
		t.Fatalf("unexpected top sub-stats %+v", top)
	}
	if got := TopSubStats(snap, 10); len(got) != 3 {
		t.Fatalf("expected all sub-stats, got %d", len(got))
	}
	if got := TopSubStats(snap, 0); got != nil {
		t.Fatalf("expected nil for n=0")
	}
}

func TestWeakestMainStats(t *testing.T) {
	snap := model.Snapshot{MainStats: []model.MainStat{
		{Name: "Physical", LevelInfo: model.LevelInfo{Level: 3, Progress: 10}},
		{Name: "Social", LevelInfo: model.LevelInfo{Level: 1, Progress: 80}},
		{Name: "Mind", LevelInfo: model.LevelInfo{Level: 1, Progress: 20}},
	}}
	weak := WeakestMainStats(snap, 2)
	if len(weak) != 2 || weak[0].Name != "Mind" || weak[1].Name != "Social" {
		t.Fatalf("unexpected weakest main-stats %+v", weak)
	}
	if snap.MainStats[0].Name != "Physical" {
		t.Fatalf("snapshot order must be left untouched")
	}
}
