package vault

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/verte-zerg/xpradar/internal/model"
)

// Persisted field names.
const (
	FieldTotalXP        = "total-xp"
	FieldLegacyXP       = "xp"
	FieldLevel          = "level"
	FieldXPCurrent      = "xp-current"
	FieldXPNeeded       = "xp-needed"
	FieldProgress       = "progress"
	FieldMainCategory   = "main-category"
	FieldTotalSubLevels = "total-sub-levels"
	FieldAvgSubLevel    = "avg-sub-level"
)

// ApplyFields rewrites content so each field appears as a "key:: value"
// line. The existing line Parse would read is replaced in place when the
// value differs. Missing fields are inserted as one block after the front
// matter, or prepended followed by a blank line when there is none. It
// reports whether the content changed.
func ApplyFields(content string, fields []model.Field) (string, bool) {
	lines := strings.Split(content, "\n")
	fmEnd := frontMatterEnd(splitLines(content))

	changed := false
	var missing []string
	for _, f := range fields {
		line := f.Key + ":: " + f.Value
		idx, current := findField(lines, f.Key, fmEnd+1)
		if idx < 0 {
			missing = append(missing, line)
			continue
		}
		if current != f.Value {
			lines[idx] = line
			changed = true
		}
	}
	if len(missing) > 0 {
		changed = true
		if fmEnd >= 0 {
			out := make([]string, 0, len(lines)+len(missing))
			out = append(out, lines[:fmEnd+1]...)
			out = append(out, missing...)
			out = append(out, lines[fmEnd+1:]...)
			lines = out
		} else {
			out := make([]string, 0, len(lines)+len(missing)+1)
			out = append(out, missing...)
			out = append(out, "")
			out = append(out, lines...)
			lines = out
		}
	}
	if !changed {
		return content, false
	}
	return strings.Join(lines, "\n"), true
}

// findField returns the "key:: value" line at or after start that Parse
// reads, which is the last one outside code fences, and its trimmed value.
func findField(lines []string, key string, start int) (int, string) {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(key) + `::[ \t]*(.*)$`)
	idx, value := -1, ""
	inFence := false
	for i := start; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		if isFence(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := re.FindStringSubmatch(line); m != nil {
			idx, value = i, strings.TrimSpace(m[1])
		}
	}
	return idx, value
}

// SubStatFields returns the fields persisted for a sub-stat.
func SubStatFields(s model.SubStat) []model.Field {
	return append(levelFields(s.TotalXP, s.LevelInfo),
		model.Field{Key: FieldMainCategory, Value: s.MainCategory},
	)
}

// MainStatFields returns the fields persisted for a main-stat.
func MainStatFields(s model.MainStat) []model.Field {
	return append(levelFields(s.TotalXP, s.LevelInfo),
		model.Field{Key: FieldTotalSubLevels, Value: itoa(s.TotalSubLevels)},
		model.Field{Key: FieldAvgSubLevel, Value: formatAvg(s.AvgSubLevel)},
	)
}

func levelFields(total int, info model.LevelInfo) []model.Field {
	return []model.Field{
		{Key: FieldTotalXP, Value: itoa(total)},
		{Key: FieldLevel, Value: itoa(info.Level)},
		{Key: FieldXPCurrent, Value: itoa(info.XPCurrent)},
		{Key: FieldXPNeeded, Value: itoa(info.XPNeeded)},
		{Key: FieldProgress, Value: itoa(info.Progress)},
	}
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

// formatAvg renders an average with one decimal.
func formatAvg(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
