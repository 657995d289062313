package engine

import (
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/xpradar/internal/category"
	"github.com/verte-zerg/xpradar/internal/leveling"
	"github.com/verte-zerg/xpradar/internal/model"
)

// Aggregation is the pure outcome of merging stored totals with new XP.
type Aggregation struct {
	Snapshot model.Snapshot
	// Duplicates lists sub-stat IDs claimed by more than one note; the first
	// note in corpus order wins.
	Duplicates []string
	// Orphans lists sub-stat IDs that earned XP but have no note.
	Orphans []string
}

// Aggregate builds the stat tree from the corpus and this pass's deltas.
// Docs must be in corpus order.
func Aggregate(docs []model.Document, deltas map[string]int, s model.Settings, curve leveling.Curve) Aggregation {
	var agg Aggregation
	subs := map[string]model.SubStat{}
	var order []string
	byCategory := map[string][]string{}
	var categoryOrder []string

	for _, doc := range docs {
		if !doc.HasTag(s.SubStatTag) {
			continue
		}
		id := doc.Ref.ID
		if id == "" || id == s.TemplateName {
			continue
		}
		if _, ok := subs[id]; ok {
			agg.Duplicates = append(agg.Duplicates, id)
			continue
		}
		stored := doc.Meta.StoredTotalXP()
		delta := deltas[id]
		total := model.AddXP(stored, delta)
		cat := category.Resolve(doc.Meta)
		subs[id] = model.SubStat{
			ID:            id,
			Path:          doc.Ref.Path,
			StoredTotalXP: stored,
			NewXPEarned:   delta,
			TotalXP:       total,
			MainCategory:  cat,
			LevelInfo:     curve.FromTotalXP(total),
		}
		order = append(order, id)
		if _, ok := byCategory[cat]; !ok {
			categoryOrder = append(categoryOrder, cat)
		}
		byCategory[cat] = append(byCategory[cat], id)
	}

	for id, xp := range deltas {
		if _, ok := subs[id]; !ok && xp != 0 {
			agg.Orphans = append(agg.Orphans, id)
		}
	}
	sort.Strings(agg.Orphans)

	var mains []model.MainStat
	for _, doc := range docs {
		if !doc.HasTag(s.MainStatTag) {
			continue
		}
		name := doc.Ref.ID
		assigned := assignedSubStats(name, byCategory, categoryOrder)
		newXP := 0
		levels := 0
		for _, id := range assigned {
			sub := subs[id]
			newXP = model.AddXP(newXP, ShareOf(sub.NewXPEarned, s.MainToSubRatio))
			levels += sub.Level
		}
		stored := doc.Meta.StoredTotalXP()
		total := model.AddXP(stored, newXP)
		mains = append(mains, model.MainStat{
			ID:               name,
			Path:             doc.Ref.Path,
			Name:             name,
			StoredTotalXP:    stored,
			NewMainXP:        newXP,
			TotalXP:          total,
			AssignedSubStats: append([]string(nil), assigned...),
			TotalSubLevels:   levels,
			AvgSubLevel:      averageLevel(levels, len(assigned)),
			LevelInfo:        curve.FromTotalXP(total),
		})
	}

	agg.Snapshot = model.Snapshot{SubStats: subs, SubStatOrder: order, MainStats: mains}
	return agg
}

// assignedSubStats matches a main-stat name to a category exactly, falling
// back to the first category equal under case folding.
func assignedSubStats(name string, byCategory map[string][]string, categoryOrder []string) []string {
	if ids, ok := byCategory[name]; ok {
		return ids
	}
	for _, cat := range categoryOrder {
		if strings.EqualFold(cat, name) {
			return byCategory[cat]
		}
	}
	return nil
}

// ShareOf returns floor(xp * ratio), the part of a sub-stat's new XP that
// flows to its main-stat. Non-positive XP contributes nothing.
func ShareOf(xp int, ratio float64) int {
	if xp <= 0 || ratio <= 0 {
		return 0
	}
	return int(math.Floor(float64(xp) * ratio))
}

func averageLevel(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(count)*10) / 10
}
