// Package wikilink reduces [[Target|Alias]] references to plain note names.
package wikilink

import "strings"

// Name normalizes a metadata value. Links yield their alias or target,
// reduced to the last path segment without a .md suffix; other values are
// unquoted and trimmed.
func Name(value string) string {
	s := unquote(value)
	if inner, ok := unwrap(s); ok {
		return FromInner(inner)
	}
	return s
}

// FromInner normalizes the text between "[[" and "]]".
func FromInner(inner string) string {
	target, alias, hasAlias := strings.Cut(inner, "|")
	name := target
	if hasAlias && strings.TrimSpace(alias) != "" {
		name = alias
	} else if i := strings.IndexAny(target, "#^"); i >= 0 {
		name = target[:i]
	}
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if len(name) >= 3 && strings.EqualFold(name[len(name)-3:], ".md") {
		name = name[:len(name)-3]
	}
	return strings.TrimSpace(name)
}

func unwrap(s string) (string, bool) {
	if !strings.HasPrefix(s, "[[") || !strings.HasSuffix(s, "]]") || len(s) < 4 {
		return "", false
	}
	inner := s[2 : len(s)-2]
	if strings.Contains(inner, "]]") || strings.Contains(inner, "[[") {
		return "", false
	}
	return inner, true
}

func unquote(value string) string {
	s := strings.TrimSpace(value)
	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}
