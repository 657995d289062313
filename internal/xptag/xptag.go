// Package xptag parses "#xp/<target> +N" annotations on task lines.
package xptag

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/verte-zerg/xpradar/internal/model"
	"github.com/verte-zerg/xpradar/internal/wikilink"
)

// Marker is the substring every tagged line contains.
const Marker = "#xp/"

// DefaultXP is awarded when a line carries no +N quantity.
const DefaultXP = 1

var (
	tagRe      = regexp.MustCompile(`(?i)#xp/\s*(?:\[\[([^\]]+)\]\]|([^\s+]+))`)
	quantityRe = regexp.MustCompile(`\+(\d+)`)
)

// HasTag reports whether line may carry an XP tag.
func HasTag(line string) bool {
	return strings.Contains(strings.ToLower(line), Marker)
}

// Parse extracts the sub-stat identifier and XP quantity from line. Lines
// without a tag, with an empty identifier, or naming the template sentinel
// yield ok == false. Only the first tag on a line is used.
func Parse(line, template string) (model.Mention, bool) {
	m := tagRe.FindStringSubmatch(line)
	if m == nil {
		return model.Mention{}, false
	}
	var id string
	if m[1] != "" {
		id = wikilink.FromInner(m[1])
	} else {
		id = strings.TrimSpace(m[2])
	}
	if id == "" || (template != "" && id == template) {
		return model.Mention{}, false
	}
	xp := DefaultXP
	if q := quantityRe.FindStringSubmatch(line); q != nil {
		n, err := strconv.Atoi(q[1])
		if err != nil {
			return model.Mention{}, false
		}
		xp = n
	}
	return model.Mention{SubStatID: id, XP: xp}, true
}
