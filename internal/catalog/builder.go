// Package catalog builds and queries the category-indexed catalog produced
// by one ingestion run.
package catalog

import (
	"github.com/voyagen/m3ucatalog/internal/models"
)

// Builder accumulates parsed entries into a Catalog. Entries are only ever
// appended; Builder is not safe for concurrent use.
type Builder struct {
	entries    []models.MediaEntry
	categories map[string][]int
	order      []string
}

// NewBuilder returns an empty Builder. sizeHint preallocates the entry slice.
func NewBuilder(sizeHint int) *Builder {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Builder{
		entries:    make([]models.MediaEntry, 0, sizeHint),
		categories: make(map[string][]int),
	}
}

// Add appends e and files it under its category key. Entries must arrive in
// id order starting at 0, which is what the parser emits.
func (b *Builder) Add(e models.MediaEntry) {
	b.entries = append(b.entries, e)
	key := e.CategoryKey()
	if _, ok := b.categories[key]; !ok {
		b.order = append(b.order, key)
	}
	b.categories[key] = append(b.categories[key], e.ID)
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int { return len(b.entries) }

// CategoryOrder returns category keys in first-seen order.
func (b *Builder) CategoryOrder() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Catalog returns the accumulated catalog. The Builder must not be used
// after calling Catalog.
func (b *Builder) Catalog() *models.Catalog {
	return &models.Catalog{Entries: b.entries, Categories: b.categories}
}
