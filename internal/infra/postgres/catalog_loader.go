package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"kids-activity-service/internal/domain"
)

// CatalogLoader reads a category's ordered entries from catalog_entries.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context, category string) ([]domain.CatalogEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, idx, path, is_special, title, coins, xp FROM catalog_entries WHERE category=$1 ORDER BY idx`,
		category)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var e domain.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Index, &e.Path, &e.Special, &e.Title, &e.Coins, &e.XP); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, domain.ErrCatalogNotFound
	}
	return entries, nil
}
