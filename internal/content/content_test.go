package content

import (
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"kids-activity-service/internal/domain"
)

func TestEmbeddedBundleIsValid(t *testing.T) {
	b, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	reflex, ok := b.Activities["sustainability-kids-3"]
	if !ok {
		t.Fatalf("expected reflex recycle activity")
	}
	if reflex.RoundTimeout.Std() != 5*time.Second || reflex.AdvanceDelay.Std() != 500*time.Millisecond {
		t.Fatalf("durations not decoded: %+v", reflex)
	}
	if !reflex.Items[0].IsBinary() || !reflex.Items[0].Target {
		t.Fatalf("expected binary target item, got %+v", reflex.Items[0])
	}
	if len(b.Catalogs["dcos-kids"]) == 0 {
		t.Fatalf("expected dcos-kids catalog")
	}
	if ids := b.ActivityIDs(); len(ids) != len(b.Activities) || ids[0] != "dcos-kids-1" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func TestLoadRejectsInvalidActivity(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("activities:\n  - id: broken\n    items: []\n")},
		"c.yaml": {Data: []byte("catalogs: {}\n")},
	}
	if _, err := LoadFS(fsys, "a.yaml", "c.yaml"); !errors.Is(err, domain.ErrInvalidActivity) {
		t.Fatalf("expected ErrInvalidActivity, got %v", err)
	}
}

func TestLoadRejectsDuplicateCatalogIDs(t *testing.T) {
	fsys := fstest.MapFS{
		"a.yaml": {Data: []byte("activities: []\n")},
		"c.yaml": {Data: []byte("catalogs:\n  k:\n    - {id: x, index: 1}\n    - {id: x, index: 2}\n")},
	}
	if _, err := LoadFS(fsys, "a.yaml", "c.yaml"); !errors.Is(err, domain.ErrDuplicateEntry) {
		t.Fatalf("expected ErrDuplicateEntry, got %v", err)
	}
}
