package memory

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"kids-activity-service/internal/catalog"
	"kids-activity-service/internal/domain"
)

// CatalogLoader fetches the raw rows of a category catalog.
type CatalogLoader interface {
	LoadCatalog(ctx context.Context, category string) ([]domain.CatalogEntry, error)
}

// CatalogRepository builds each category catalog once and keeps it.
// Catalog data is read-only, so entries never expire.
type CatalogRepository struct {
	loader CatalogLoader
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]*catalog.Catalog
}

func NewCatalogRepository(loader CatalogLoader) *CatalogRepository {
	return &CatalogRepository{
		loader: loader,
		cache:  make(map[string]*catalog.Catalog),
	}
}

func (r *CatalogRepository) Catalog(ctx context.Context, category string) (*catalog.Catalog, error) {
	r.mu.RLock()
	c, ok := r.cache[category]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	result, err, _ := r.sf.Do(category, func() (interface{}, error) {
		r.mu.RLock()
		c, ok := r.cache[category]
		r.mu.RUnlock()
		if ok {
			return c, nil
		}

		entries, err := r.loader.LoadCatalog(ctx, category)
		if err != nil {
			return nil, err
		}
		c, err = catalog.New(category, entries)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[category] = c
		r.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*catalog.Catalog), nil
}

// StaticCatalogLoader serves catalogs from an in-memory map.
type StaticCatalogLoader struct {
	catalogs map[string][]domain.CatalogEntry
}

func NewStaticCatalogLoader(catalogs map[string][]domain.CatalogEntry) *StaticCatalogLoader {
	return &StaticCatalogLoader{catalogs: catalogs}
}

func (l *StaticCatalogLoader) LoadCatalog(_ context.Context, category string) ([]domain.CatalogEntry, error) {
	if entries, ok := l.catalogs[category]; ok {
		return entries, nil
	}
	return nil, domain.ErrCatalogNotFound
}
