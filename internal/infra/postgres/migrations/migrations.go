package migrations

import (
	"context"
	"embed"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var sqlFiles embed.FS

var Migrations = migrate.NewMigrations()

type step struct {
	name string
	file string
	down string
}

var steps = []step{
	{name: "2024112201", file: "0001_create_activities.sql", down: `DROP TABLE IF EXISTS activities`},
	{name: "2024112202", file: "0002_create_catalog_entries.sql", down: `DROP TABLE IF EXISTS catalog_entries`},
	{name: "2024112203", file: "0003_create_activity_results.sql", down: `DROP TABLE IF EXISTS activity_results`},
}

func init() {
	for _, s := range steps {
		up, err := sqlFiles.ReadFile(s.file)
		if err != nil {
			panic(fmt.Sprintf("migration %s: %v", s.file, err))
		}
		Migrations.Add(migrate.Migration{
			Name:    s.name,
			Comment: s.file,
			Up:      execSQL(string(up)),
			Down:    execSQL(s.down),
		})
	}
}

func execSQL(query string) migrate.MigrationFunc {
	return func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, query)
		return err
	}
}
