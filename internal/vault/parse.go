package vault

import (
	"regexp"
	"strings"

	"github.com/verte-zerg/xpradar/internal/model"
)

var (
	taskRe        = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+\[(.)\]`)
	inlineFieldRe = regexp.MustCompile(`^([A-Za-z][\w-]*)::[ \t]*(.*)$`)
	inlineTagRe   = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_][\p{L}\p{N}_/-]*)`)
)

// Parse builds a document from raw note content. Malformed front matter is
// ignored rather than reported: metadata degrades to empty.
func Parse(ref model.Ref, content string) model.Document {
	lines := splitLines(content)
	fmEnd := frontMatterEnd(lines)

	doc := model.Document{Ref: ref, Content: content}
	tags := newTagSet()

	if fmEnd > 0 {
		fm, err := decodeFrontMatter(strings.Join(lines[1:fmEnd], "\n"))
		if err == nil {
			applyFrontMatter(&doc.Meta, fm)
			for _, raw := range fm.Tags {
				for _, t := range strings.FieldsFunc(raw, isTagSeparator) {
					tags.add(t)
				}
			}
		}
	}

	inFence := false
	for i := fmEnd + 1; i < len(lines); i++ {
		line := lines[i]
		if isFence(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if m := taskRe.FindStringSubmatch(line); m != nil {
			doc.Tasks = append(doc.Tasks, model.Task{
				Completed: m[1] == "x" || m[1] == "X",
				Line:      i,
			})
		}
		if m := inlineFieldRe.FindStringSubmatch(line); m != nil {
			applyInlineField(&doc.Meta, m[1], strings.TrimSpace(m[2]))
		}
		for _, m := range inlineTagRe.FindAllStringSubmatch(line, -1) {
			tags.add(m[1])
		}
	}
	doc.Tags = tags.list
	return doc
}

func applyFrontMatter(meta *model.Metadata, fm frontMatter) {
	meta.Categories = append([]string(nil), fm.Categories...)
	if len(fm.Category) > 0 {
		meta.Category = fm.Category[0]
	}
	if len(fm.MainCategory) > 0 {
		meta.MainCategory = fm.MainCategory[0]
	}
	if fm.TotalXP.set {
		v := fm.TotalXP.value
		meta.TotalXP = &v
	}
	if fm.XP.set {
		v := fm.XP.value
		meta.LegacyXP = &v
	}
}

// applyInlineField lets "key:: value" lines override front matter, so values
// written back by a pass are the ones read by the next.
func applyInlineField(meta *model.Metadata, key, value string) {
	switch key {
	case FieldTotalXP:
		meta.TotalXP = &value
	case FieldLegacyXP:
		meta.LegacyXP = &value
	case "categories":
		meta.Categories = []string{value}
	case "category":
		meta.Category = value
	case FieldMainCategory:
		meta.MainCategory = value
	}
}

// splitLines splits on '\n' and drops a trailing '\r' from each line.
func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// frontMatterEnd returns the index of the closing "---" line, or -1.
func frontMatterEnd(lines []string) int {
	if len(lines) < 2 || lines[0] != "---" {
		return -1
	}
	for i := 1; i < len(lines); i++ {
		if lines[i] == "---" {
			return i
		}
	}
	return -1
}

func isFence(line string) bool {
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~")
}

func isTagSeparator(r rune) bool {
	return r == ',' || r == ' ' || r == '\t'
}

type tagSet struct {
	seen map[string]struct{}
	list []string
}

func newTagSet() *tagSet {
	return &tagSet{seen: map[string]struct{}{}}
}

func (s *tagSet) add(tag string) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "#")
	if tag == "" {
		return
	}
	if _, ok := s.seen[tag]; ok {
		return
	}
	s.seen[tag] = struct{}{}
	s.list = append(s.list, tag)
}
