package vault

import (
	"testing"

	"github.com/verte-zerg/xpradar/internal/model"
)

func TestApplyFieldsReplacesInPlace(t *testing.T) {
	content := "# Running\ntotal-xp:: 10\nlevel:: 1\nnotes\n"
	got, changed := ApplyFields(content, []model.Field{
		{Key: "total-xp", Value: "15"},
		{Key: "level", Value: "1"},
	})
	if !changed {
		t.Fatalf("expected change")
	}
	want := "# Running\ntotal-xp:: 15\nlevel:: 1\nnotes\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestApplyFieldsInsertsAfterFrontMatter(t *testing.T) {
	content := "---\ntags: substat\n---\nbody\n"
	got, changed := ApplyFields(content, []model.Field{
		{Key: "total-xp", Value: "5"},
		{Key: "level", Value: "1"},
	})
	if !changed {
		t.Fatalf("expected change")
	}
	want := "---\ntags: substat\n---\ntotal-xp:: 5\nlevel:: 1\nbody\n"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestApplyFieldsPrependsWithoutFrontMatter(t *testing.T) {
	got, changed := ApplyFields("#substat\nbody", []model.Field{{Key: "total-xp", Value: "5"}})
	if !changed {
		t.Fatalf("expected change")
	}
	if want := "total-xp:: 5\n\n#substat\nbody"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestApplyFieldsNoChange(t *testing.T) {
	content := "total-xp::   5  \nlevel:: 1\n"
	got, changed := ApplyFields(content, []model.Field{
		{Key: "total-xp", Value: "5"},
		{Key: "level", Value: "1"},
	})
	if changed {
		t.Fatalf("expected no change, got %q", got)
	}
	if got != content {
		t.Fatalf("content must be returned unchanged")
	}
}

func TestApplyFieldsIgnoresFrontMatterKeys(t *testing.T) {
	content := "---\nlevel:: 3\n---\nbody"
	got, _ := ApplyFields(content, []model.Field{{Key: "level", Value: "4"}})
	if want := "---\nlevel:: 3\n---\nlevel:: 4\nbody"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSubAndMainStatFields(t *testing.T) {
	sub := model.SubStat{
		TotalXP:      150,
		MainCategory: "Physical",
		LevelInfo:    model.LevelInfo{Level: 2, XPCurrent: 50, XPNeeded: 282, Progress: 18},
	}
	fields := SubStatFields(sub)
	want := []string{"total-xp:: 150", "level:: 2", "xp-current:: 50", "xp-needed:: 282", "progress:: 18", "main-category:: Physical"}
	if len(fields) != len(want) {
		t.Fatalf("expected %d fields, got %d", len(want), len(fields))
	}
	for i, f := range fields {
		if got := f.Key + ":: " + f.Value; got != want[i] {
			t.Fatalf("field %d: expected %q, got %q", i, want[i], got)
		}
	}

	main := MainStatFields(model.MainStat{TotalSubLevels: 5, AvgSubLevel: 2.5})
	if last := main[len(main)-1]; last.Key != FieldAvgSubLevel || last.Value != "2.5" {
		t.Fatalf("unexpected avg field %+v", last)
	}
	if f := main[len(main)-2]; f.Key != FieldTotalSubLevels || f.Value != "5" {
		t.Fatalf("unexpected total-sub-levels field %+v", f)
	}
	if got := MainStatFields(model.MainStat{AvgSubLevel: 2})[6].Value; got != "2.0" {
		t.Fatalf("expected one decimal, got %q", got)
	}
}

func TestApplyFieldsTargetsTheLineParseReads(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "duplicate lines",
			content: "total-xp:: 10\nnotes\ntotal-xp:: 40\n",
			want:    "total-xp:: 10\nnotes\ntotal-xp:: 45\n",
		},
		{
			name:    "fenced line",
			content: "#substat\n```\ntotal-xp:: 99\n```\n",
			want:    "total-xp:: 45\n\n#substat\n```\ntotal-xp:: 99\n```\n",
		},
	}
	for _, tc := range cases {
		got, changed := ApplyFields(tc.content, []model.Field{{Key: "total-xp", Value: "45"}})
		if !changed || got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
		doc := Parse(model.Ref{Path: "Running.md", ID: "Running"}, got)
		if stored := doc.Meta.StoredTotalXP(); stored != 45 {
			t.Fatalf("%s: expected re-read total 45, got %d", tc.name, stored)
		}
	}
}
