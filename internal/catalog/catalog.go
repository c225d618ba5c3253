package catalog

import (
	"context"
	"fmt"

	"kids-activity-service/internal/domain"
)

// Source loads the catalog of a category.
type Source interface {
	Catalog(ctx context.Context, category string) (*Catalog, error)
}

// Catalog is the ordered, read-only activity list of one category, indexed by
// id and by position.
type Catalog struct {
	category string
	entries  []domain.CatalogEntry
	byID     map[string]int
	byIndex  map[int]int
}

// New builds the indexes once. Empty ids, repeated ids, repeated indexes and
// indexes that do not increase in definition order are rejected.
func New(category string, entries []domain.CatalogEntry) (*Catalog, error) {
	c := &Catalog{
		category: category,
		entries:  append([]domain.CatalogEntry(nil), entries...),
		byID:     make(map[string]int, len(entries)),
		byIndex:  make(map[int]int, len(entries)),
	}
	for pos, e := range c.entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: %s entry at position %d has no id", domain.ErrDuplicateEntry, category, pos)
		}
		if prev, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: %s id %q at positions %d and %d", domain.ErrDuplicateEntry, category, e.ID, prev, pos)
		}
		if _, dup := c.byIndex[e.Index]; dup {
			return nil, fmt.Errorf("%w: %s index %d repeated by %q", domain.ErrDuplicateEntry, category, e.Index, e.ID)
		}
		if pos > 0 && e.Index <= c.entries[pos-1].Index {
			return nil, fmt.Errorf("%w: %s index %d of %q is out of order", domain.ErrDuplicateEntry, category, e.Index, e.ID)
		}
		c.byID[e.ID] = pos
		c.byIndex[e.Index] = pos
	}
	return c, nil
}

// MustNew is New for static tables known to be valid.
func MustNew(category string, entries []domain.CatalogEntry) *Catalog {
	c, err := New(category, entries)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Category() string {
	return c.category
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Entries returns a copy in catalog order.
func (c *Catalog) Entries() []domain.CatalogEntry {
	return append([]domain.CatalogEntry(nil), c.entries...)
}

// Entry looks up an activity by id.
func (c *Catalog) Entry(id string) (domain.CatalogEntry, bool) {
	pos, ok := c.byID[id]
	if !ok {
		return domain.CatalogEntry{}, false
	}
	return c.entries[pos], true
}

// Next returns the entry right after id when it is a special entry with a path.
func (c *Catalog) Next(id string) (domain.CatalogEntry, bool) {
	pos, ok := c.byID[id]
	if !ok {
		return domain.CatalogEntry{}, false
	}
	nextPos, ok := c.byIndex[c.entries[pos].Index+1]
	if !ok {
		return domain.CatalogEntry{}, false
	}
	next := c.entries[nextPos]
	if !next.Special || next.Path == "" {
		return domain.CatalogEntry{}, false
	}
	return next, true
}
