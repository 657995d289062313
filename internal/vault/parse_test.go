package vault

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/verte-zerg/xpradar/internal/model"
)

func TestParseFrontMatterAndInlineFields(t *testing.T) {
	content := `---
tags: [substat, fitness]
categories:
  - [[Physical]]
  - Social
total-xp: 40
xp: 7
---
# Running
total-xp:: 55
- [x] Morning run #xp/Running +5
- [ ] Evening run #xp/Running +5
* [X] Stretch #xp/Running
`
	doc := Parse(model.Ref{Path: "Skills/Running.md", ID: "Running"}, content)

	if diff := cmp.Diff([]string{"[[Physical]]", "Social"}, doc.Meta.Categories); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
	if got := doc.Meta.StoredTotalXP(); got != 55 {
		t.Fatalf("expected inline total-xp to win, got %d", got)
	}
	if doc.Meta.LegacyXP == nil || *doc.Meta.LegacyXP != "7" {
		t.Fatalf("expected legacy xp 7, got %v", doc.Meta.LegacyXP)
	}
	wantTasks := []model.Task{
		{Completed: true, Line: 10},
		{Completed: false, Line: 11},
		{Completed: true, Line: 12},
	}
	if diff := cmp.Diff(wantTasks, doc.Tasks); diff != "" {
		t.Fatalf("tasks mismatch (-want +got):\n%s", diff)
	}
	if !doc.HasTag("substat") || !doc.HasTag("#fitness") {
		t.Fatalf("expected front matter tags, got %v", doc.Tags)
	}
	if !doc.HasTag("xp/Running") {
		t.Fatalf("expected inline tag, got %v", doc.Tags)
	}
	if doc.HasTag("Running") {
		t.Fatalf("heading must not be a tag: %v", doc.Tags)
	}
}

func TestParseScalarShapes(t *testing.T) {
	content := "---\ntags: stat\ncategory: [[Stats/Mind.md|Mind]]\nmain-category: \"Other\"\ntotal-xp:\n---\nbody"
	doc := Parse(model.Ref{Path: "Mind.md", ID: "Mind"}, content)
	if doc.Meta.Category != "[[Stats/Mind.md|Mind]]" {
		t.Fatalf("unexpected category %q", doc.Meta.Category)
	}
	if doc.Meta.MainCategory != "Other" {
		t.Fatalf("unexpected main-category %q", doc.Meta.MainCategory)
	}
	if doc.Meta.TotalXP != nil {
		t.Fatalf("expected empty total-xp to be absent, got %q", *doc.Meta.TotalXP)
	}
	if !doc.HasTag("stat") {
		t.Fatalf("expected scalar tag, got %v", doc.Tags)
	}
}

func TestParseSkipsCodeFencesAndBadYAML(t *testing.T) {
	content := "---\ntags: [unclosed\n---\n```\n- [x] Fake #xp/Code +100\n#notatag\n```\n- [x] Real #xp/Code +1\n#substat\n"
	doc := Parse(model.Ref{Path: "Code.md", ID: "Code"}, content)
	if len(doc.Tasks) != 1 || doc.Tasks[0].Line != 7 {
		t.Fatalf("expected only the task outside the fence, got %+v", doc.Tasks)
	}
	if doc.HasTag("notatag") {
		t.Fatalf("tag inside fence must be ignored")
	}
	if !doc.HasTag("substat") {
		t.Fatalf("expected inline tag after bad front matter, got %v", doc.Tags)
	}
}

func TestParseInlineFieldLastOutsideFenceWins(t *testing.T) {
	content := "total-xp:: 10\n```\ntotal-xp:: 99\n```\ntotal-xp:: 40\n~~~\ntotal-xp:: 7\n~~~\n"
	doc := Parse(model.Ref{Path: "Running.md", ID: "Running"}, content)
	if got := doc.Meta.StoredTotalXP(); got != 40 {
		t.Fatalf("expected last unfenced total 40, got %d", got)
	}
}

func TestStoredTotalXP(t *testing.T) {
	str := func(s string) *string { return &s }
	cases := []struct {
		meta model.Metadata
		want int
	}{
		{meta: model.Metadata{}, want: 0},
		{meta: model.Metadata{LegacyXP: str("12")}, want: 12},
		{meta: model.Metadata{TotalXP: str("30"), LegacyXP: str("12")}, want: 30},
		{meta: model.Metadata{TotalXP: str("abc"), LegacyXP: str("12")}, want: 0},
		{meta: model.Metadata{TotalXP: str("-5")}, want: 0},
		{meta: model.Metadata{TotalXP: str("12.9")}, want: 12},
		{meta: model.Metadata{TotalXP: str("1e30")}, want: math.MaxInt},
	}
	for _, tc := range cases {
		if got := tc.meta.StoredTotalXP(); got != tc.want {
			t.Fatalf("%+v: expected %d, got %d", tc.meta, tc.want, got)
		}
	}
}
