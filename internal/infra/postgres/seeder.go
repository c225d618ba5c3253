package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"kids-activity-service/internal/content"
)

// Seeder upserts a content bundle into the activities and catalog_entries tables.
type Seeder struct {
	db  *bun.DB
	now func() time.Time
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db, now: time.Now}
}

// SeedStats reports how many rows a Seed call wrote.
type SeedStats struct {
	Activities     int
	CatalogEntries int
}

// Seed writes every activity and replaces every catalog of the bundle in one transaction.
func (s *Seeder) Seed(ctx context.Context, b content.Bundle) (SeedStats, error) {
	var stats SeedStats
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := s.now().UTC()
		for _, id := range b.ActivityIDs() {
			a := b.Activities[id]
			row := &activityRow{ID: a.ID, Category: a.Category, Data: a, UpdatedAt: now}
			if _, err := tx.NewInsert().
				Model(row).
				On("CONFLICT (id) DO UPDATE").
				Set("category = EXCLUDED.category").
				Set("data = EXCLUDED.data").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert activity %s: %w", a.ID, err)
			}
			stats.Activities++
		}

		categories := make([]string, 0, len(b.Catalogs))
		for c := range b.Catalogs {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, category := range categories {
			// replace wholesale so reordered indexes never collide
			if _, err := tx.NewDelete().
				Model((*catalogEntryRow)(nil)).
				Where("category = ?", category).
				Exec(ctx); err != nil {
				return fmt.Errorf("clear catalog %s: %w", category, err)
			}
			entries := b.Catalogs[category]
			if len(entries) == 0 {
				continue
			}
			rows := make([]catalogEntryRow, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, catalogEntryRow{
					Category: category,
					ID:       e.ID,
					Index:    e.Index,
					Path:     e.Path,
					Special:  e.Special,
					Title:    e.Title,
					Coins:    e.Coins,
					XP:       e.XP,
				})
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert catalog %s: %w", category, err)
			}
			stats.CatalogEntries += len(rows)
		}
		return nil
	})
	if err != nil {
		return SeedStats{}, err
	}
	return stats, nil
}
