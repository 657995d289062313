// Package category resolves the main-stat category of a sub-stat document.
package category

import (
	"github.com/verte-zerg/xpradar/internal/model"
	"github.com/verte-zerg/xpradar/internal/wikilink"
)

// Resolve returns the first non-empty of categories[0], category and
// main-category, normalized. It falls back to model.MiscCategory.
func Resolve(meta model.Metadata) string {
	candidates := make([]string, 0, 3)
	if len(meta.Categories) > 0 {
		candidates = append(candidates, meta.Categories[0])
	}
	candidates = append(candidates, meta.Category, meta.MainCategory)
	for _, c := range candidates {
		if name := wikilink.Name(c); name != "" {
			return name
		}
	}
	return model.MiscCategory
}
