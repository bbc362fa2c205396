package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category is the kind of change an entry describes.
type Category string

const (
	CategoryAdded      Category = "Added"
	CategoryChanged    Category = "Changed"
	CategoryDeprecated Category = "Deprecated"
	CategoryRemoved    Category = "Removed"
	CategoryFixed      Category = "Fixed"
	CategorySecurity   Category = "Security"
)

// Categories lists the recognized categories in the order they are rendered
// when a new section has to be created.
var Categories = []Category{
	CategoryAdded,
	CategoryChanged,
	CategoryDeprecated,
	CategoryRemoved,
	CategoryFixed,
	CategorySecurity,
}

var titleCaser = cases.Title(language.English)

// ParseCategory normalizes a heading name. The returned category is always
// set; ok reports whether it is one of the recognized categories.
func ParseCategory(name string) (Category, bool) {
	trimmed := strings.TrimSpace(name)
	normalized := Category(titleCaser.String(strings.ToLower(trimmed)))
	if normalized.Known() {
		return normalized, true
	}
	return Category(trimmed), false
}

// Known reports whether c is a recognized category.
func (c Category) Known() bool {
	return c.Rank() >= 0
}

// Rank returns the canonical position of c, or -1 for unknown categories.
func (c Category) Rank() int {
	for i, known := range Categories {
		if known == c {
			return i
		}
	}
	return -1
}
