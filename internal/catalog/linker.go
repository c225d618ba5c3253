package catalog

import (
	"context"
	"errors"

	"kids-activity-service/internal/domain"
	"kids-activity-service/internal/platform/logger"
)

// Linker resolves where the "next" affordance of a finished activity points.
type Linker struct {
	source Source
	log    *logger.Logger
}

func NewLinker(source Source, log *logger.Logger) *Linker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Linker{source: source, log: log}
}

// Resolve returns the next target for currentID. A caller-supplied
// NextGamePath wins without any lookup. Lookup failures are logged and yield
// the zero target; Resolve never fails.
func (l *Linker) Resolve(ctx context.Context, category, currentID string, override domain.NavState) domain.NextTarget {
	if override.NextGamePath != "" {
		return domain.NextTarget{Path: override.NextGamePath, ID: override.NextGameID}
	}
	if l.source == nil {
		return domain.NextTarget{}
	}

	cat, err := l.source.Catalog(ctx, category)
	if err != nil {
		if errors.Is(err, domain.ErrCatalogNotFound) {
			l.log.Debug("no catalog for category", "category", category)
		} else {
			l.log.Warn("catalog lookup failed", "category", category, "activity_id", currentID, "error", err)
		}
		return domain.NextTarget{}
	}
	next, ok := cat.Next(currentID)
	if !ok {
		return domain.NextTarget{}
	}
	return domain.NextTarget{Path: next.Path, ID: next.ID}
}

// Entry fetches the catalog row of an activity, if any.
func (l *Linker) Entry(ctx context.Context, category, id string) (domain.CatalogEntry, bool) {
	if l.source == nil {
		return domain.CatalogEntry{}, false
	}
	cat, err := l.source.Catalog(ctx, category)
	if err != nil {
		return domain.CatalogEntry{}, false
	}
	return cat.Entry(id)
}
