package stats

import (
	"sort"

	"github.com/verte-zerg/xpradar/internal/model"
)

// WeakestMainStats returns up to n main-stats ordered by lowest level, then
// lowest progress into that level.
func WeakestMainStats(snap model.Snapshot, n int) []model.MainStat {
	if n <= 0 || len(snap.MainStats) == 0 {
		return nil
	}
	mains := make([]model.MainStat, len(snap.MainStats))
	copy(mains, snap.MainStats)
	sort.SliceStable(mains, func(i, j int) bool {
		if mains[i].Level != mains[j].Level {
			return mains[i].Level < mains[j].Level
		}
		if mains[i].Progress != mains[j].Progress {
			return mains[i].Progress < mains[j].Progress
		}
		return mains[i].Name < mains[j].Name
	})
	return mains[:min(n, len(mains))]
}
