package stats

import (
	"sort"

	"github.com/verte-zerg/xpradar/internal/model"
)

// TopSubStats returns the n sub-stats with the most total XP.
func TopSubStats(snap model.Snapshot, n int) []model.SubStat {
	if n <= 0 || len(snap.SubStats) == 0 {
		return nil
	}
	subs := snap.OrderedSubStats()
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].TotalXP == subs[j].TotalXP {
			return subs[i].ID < subs[j].ID
		}
		return subs[i].TotalXP > subs[j].TotalXP
	})
	return subs[:min(n, len(subs))]
}
