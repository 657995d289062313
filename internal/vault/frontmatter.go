package vault

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter holds the keys read from a note's YAML header. Obsidian users
// write these fields in several shapes, so each one accepts scalars and lists.
type frontMatter struct {
	Tags         stringList `yaml:"tags"`
	Categories   stringList `yaml:"categories"`
	Category     stringList `yaml:"category"`
	MainCategory stringList `yaml:"main-category"`
	TotalXP      scalar     `yaml:"total-xp"`
	XP           scalar     `yaml:"xp"`
}

// scalar records a single YAML value as text.
type scalar struct {
	value string
	set   bool
}

func (s *scalar) UnmarshalYAML(node *yaml.Node) error {
	var list stringList
	if err := list.UnmarshalYAML(node); err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	s.value = list[0]
	s.set = true
	return nil
}

// stringList decodes a scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	if link, ok := flowLink(node); ok {
		*l = stringList{link}
		return nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		if node.ShortTag() == "!!null" {
			return nil
		}
		*l = stringList{node.Value}
	case yaml.SequenceNode:
		out := make(stringList, 0, len(node.Content))
		for _, item := range node.Content {
			if link, ok := flowLink(item); ok {
				out = append(out, link)
				continue
			}
			if item.Kind == yaml.ScalarNode && item.ShortTag() != "!!null" {
				out = append(out, item.Value)
			}
		}
		*l = out
	}
	return nil
}

// flowLink rebuilds an unquoted [[Link]], which YAML reads as a sequence
// holding a one-element sequence.
func flowLink(node *yaml.Node) (string, bool) {
	if node.Kind != yaml.SequenceNode || len(node.Content) != 1 {
		return "", false
	}
	inner := node.Content[0]
	if inner.Kind != yaml.SequenceNode || len(inner.Content) != 1 {
		return "", false
	}
	leaf := inner.Content[0]
	if leaf.Kind != yaml.ScalarNode || strings.TrimSpace(leaf.Value) == "" {
		return "", false
	}
	return "[[" + leaf.Value + "]]", true
}

func decodeFrontMatter(src string) (frontMatter, error) {
	var fm frontMatter
	if strings.TrimSpace(src) == "" {
		return fm, nil
	}
	if err := yaml.Unmarshal([]byte(src), &fm); err != nil {
		return frontMatter{}, err
	}
	return fm, nil
}
