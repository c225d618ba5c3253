package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"kids-activity-service/internal/domain"
)

type activityRow struct {
	bun.BaseModel `bun:"table:activities"`

	ID        string          `bun:"id,pk"`
	Category  string          `bun:"category,notnull"`
	Data      domain.Activity `bun:"data,type:jsonb,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull"`
}

type catalogEntryRow struct {
	bun.BaseModel `bun:"table:catalog_entries"`

	Category string `bun:"category,pk"`
	ID       string `bun:"id,pk"`
	Index    int    `bun:"idx,notnull"`
	Path     string `bun:"path,notnull"`
	Special  bool   `bun:"is_special,notnull"`
	Title    string `bun:"title,notnull"`
	Coins    int    `bun:"coins,notnull"`
	XP       int    `bun:"xp,notnull"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:activity_results"`

	ID            int64     `bun:"id,pk,autoincrement"`
	PlaythroughID string    `bun:"playthrough_id,notnull"`
	ActivityID    string    `bun:"activity_id,notnull"`
	Score         int       `bun:"score,notnull"`
	Total         int       `bun:"total,notnull"`
	Unlocked      bool      `bun:"unlocked,notnull"`
	CompletedAt   time.Time `bun:"completed_at,notnull"`
}

func (r resultRow) toDomain() domain.ActivityResult {
	return domain.ActivityResult{
		PlaythroughID: r.PlaythroughID,
		ActivityID:    r.ActivityID,
		Score:         r.Score,
		Total:         r.Total,
		Unlocked:      r.Unlocked,
		CompletedAt:   r.CompletedAt,
	}
}
