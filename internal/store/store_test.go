package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/xpradar/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "xpradar.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestRecordPassAndAwarded(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	start := time.Unix(0, 0).UTC()
	rec := model.PassRecord{
		RunID:     "run-1",
		StartedAt: start,
		EndedAt:   start.Add(time.Second),
		Documents: 3,
		Mentions:  2,
		NewXP:     6,
		Written:   2,
	}
	points := []model.StatPoint{
		{Kind: model.KindSub, StatID: "Running", TotalXP: 5, Level: 1},
		{Kind: model.KindMain, StatID: "Physical", TotalXP: 1, Level: 1},
	}
	awarded := []model.Mention{
		{SubStatID: "Running", XP: 5, DocPath: "Daily.md", Fingerprint: "fp-a"},
		{SubStatID: "Running", XP: 1, DocPath: "Daily.md", Fingerprint: "fp-b"},
	}
	id, err := st.RecordPass(ctx, rec, points, awarded)
	if err != nil {
		t.Fatalf("record pass: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive pass id, got %d", id)
	}

	got, err := st.Awarded(ctx, []string{"fp-a", "fp-c", "fp-b"})
	if err != nil {
		t.Fatalf("awarded: %v", err)
	}
	if !got["fp-a"] || !got["fp-b"] || got["fp-c"] {
		t.Fatalf("unexpected awarded set %v", got)
	}

	if _, err := st.RecordPass(ctx, rec, nil, awarded[:1]); err != nil {
		t.Fatalf("re-recording an award must be ignored, got %v", err)
	}
	n, err := st.AwardedCount(ctx)
	if err != nil {
		t.Fatalf("awarded count: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 awarded tasks, got %d", n)
	}
}

func TestAwardedChunksLargeInput(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	var awarded []model.Mention
	var fps []string
	for i := 0; i < maxQueryArgs+20; i++ {
		fp := fmt.Sprintf("fp-%d", i)
		fps = append(fps, fp)
		if i%2 == 0 {
			awarded = append(awarded, model.Mention{SubStatID: "S", XP: 1, DocPath: "d.md", Fingerprint: fp})
		}
	}
	if _, err := st.RecordPass(ctx, model.PassRecord{RunID: "r"}, nil, awarded); err != nil {
		t.Fatalf("record pass: %v", err)
	}
	got, err := st.Awarded(ctx, fps)
	if err != nil {
		t.Fatalf("awarded: %v", err)
	}
	if len(got) != len(awarded) {
		t.Fatalf("expected %d awarded, got %d", len(awarded), len(got))
	}
}

func TestListPassesAndHistory(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(0, 0).UTC()
	for i := 0; i < 3; i++ {
		rec := model.PassRecord{
			RunID:     fmt.Sprintf("run-%d", i),
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			EndedAt:   base.Add(time.Duration(i)*time.Minute + time.Second),
			NewXP:     i,
			Forced:    i == 2,
		}
		points := []model.StatPoint{
			{Kind: model.KindMain, StatID: "Physical", TotalXP: 10 * i, Level: 1 + i},
			{Kind: model.KindSub, StatID: "Running", TotalXP: 100 * i, Level: 1},
		}
		if _, err := st.RecordPass(ctx, rec, points, nil); err != nil {
			t.Fatalf("record pass: %v", err)
		}
	}

	passes, err := st.ListPasses(ctx, 2)
	if err != nil {
		t.Fatalf("list passes: %v", err)
	}
	if len(passes) != 2 {
		t.Fatalf("expected 2 passes, got %d", len(passes))
	}
	if passes[0].RunID != "run-1" || passes[1].RunID != "run-2" {
		t.Fatalf("expected last two passes oldest first, got %+v", passes)
	}
	if !passes[1].Forced || passes[0].Forced {
		t.Fatalf("unexpected forced flags %+v", passes)
	}
	if !passes[1].EndedAt.Equal(base.Add(2*time.Minute + time.Second)) {
		t.Fatalf("unexpected ended_at %v", passes[1].EndedAt)
	}

	history, err := st.StatHistory(ctx, model.KindMain, []string{"Physical", "Missing"})
	if err != nil {
		t.Fatalf("stat history: %v", err)
	}
	points := history["Physical"]
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[2].TotalXP != 20 || points[2].Level != 3 {
		t.Fatalf("unexpected last point %+v", points[2])
	}
	if _, ok := history["Running"]; ok {
		t.Fatalf("sub-stat history must not leak into main kind")
	}
}
