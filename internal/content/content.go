// Package content ships the built-in activity definitions and category catalogs.
package content

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"gopkg.in/yaml.v3"

	"kids-activity-service/internal/catalog"
	"kids-activity-service/internal/domain"
)

//go:embed data/*.yaml
var files embed.FS

// Bundle is a validated set of activities and catalogs.
type Bundle struct {
	Activities map[string]domain.Activity
	Catalogs   map[string][]domain.CatalogEntry
}

type activitiesFile struct {
	Activities []domain.Activity `yaml:"activities"`
}

type catalogsFile struct {
	Catalogs map[string][]domain.CatalogEntry `yaml:"catalogs"`
}

// Load parses the embedded bundle.
func Load() (Bundle, error) {
	return LoadFS(files, "data/activities.yaml", "data/catalogs.yaml")
}

// LoadFS parses a bundle from any filesystem, validating every activity and catalog.
func LoadFS(fsys fs.FS, activitiesPath, catalogsPath string) (Bundle, error) {
	var af activitiesFile
	if err := decode(fsys, activitiesPath, &af); err != nil {
		return Bundle{}, err
	}
	var cf catalogsFile
	if err := decode(fsys, catalogsPath, &cf); err != nil {
		return Bundle{}, err
	}

	b := Bundle{
		Activities: make(map[string]domain.Activity, len(af.Activities)),
		Catalogs:   make(map[string][]domain.CatalogEntry, len(cf.Catalogs)),
	}
	for _, a := range af.Activities {
		if err := a.Validate(); err != nil {
			return Bundle{}, err
		}
		if _, dup := b.Activities[a.ID]; dup {
			return Bundle{}, fmt.Errorf("%w: activity %s defined twice", domain.ErrInvalidActivity, a.ID)
		}
		b.Activities[a.ID] = a
	}
	for category, entries := range cf.Catalogs {
		if _, err := catalog.New(category, entries); err != nil {
			return Bundle{}, err
		}
		b.Catalogs[category] = entries
	}
	return b, nil
}

// ActivityIDs lists the bundle's activities in a stable order.
func (b Bundle) ActivityIDs() []string {
	ids := make([]string, 0, len(b.Activities))
	for id := range b.Activities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func decode(fsys fs.FS, path string, out interface{}) error {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
