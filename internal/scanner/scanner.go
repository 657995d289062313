// Package scanner collects XP mentions from completed tasks.
package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/verte-zerg/xpradar/internal/model"
	"github.com/verte-zerg/xpradar/internal/xptag"
)

// Result holds the mentions of one scan and their per-sub-stat sums.
type Result struct {
	Mentions []model.Mention
	Deltas   map[string]int
}

// Scan walks the completed tasks of docs in order and parses their XP tags.
// corpus scopes the fingerprints to one vault. It never writes.
func Scan(docs []model.Document, corpus, template string) Result {
	res := Result{Deltas: map[string]int{}}
	for _, doc := range docs {
		for _, m := range ScanDocument(doc, corpus, template) {
			res.Mentions = append(res.Mentions, m)
			res.Deltas[m.SubStatID] = model.AddXP(res.Deltas[m.SubStatID], m.XP)
		}
	}
	return res
}

// ScanDocument returns the mentions found in one document.
func ScanDocument(doc model.Document, corpus, template string) []model.Mention {
	if len(doc.Tasks) == 0 {
		return nil
	}
	lines := strings.Split(doc.Content, "\n")
	occurrences := map[string]int{}
	var out []model.Mention
	for _, task := range doc.Tasks {
		if !task.Completed || task.Line < 0 || task.Line >= len(lines) {
			continue
		}
		line := strings.TrimSuffix(lines[task.Line], "\r")
		if !xptag.HasTag(line) {
			continue
		}
		m, ok := xptag.Parse(line, template)
		if !ok {
			continue
		}
		key := normalizeLine(line)
		m.DocPath = doc.Ref.Path
		m.Line = task.Line
		m.Fingerprint = Fingerprint(corpus, doc.Ref.Path, key, occurrences[key])
		occurrences[key]++
		out = append(out, m)
	}
	return out
}

// Fingerprint identifies a task by its vault, its note, its text and how
// many identical lines precede it, so moving a task within a note keeps its
// identity.
func Fingerprint(corpus, path, line string, occurrence int) string {
	h := sha256.New()
	h.Write([]byte(corpus))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write([]byte(line))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(occurrence)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeLine(line string) string {
	return strings.Join(strings.Fields(line), " ")
}
