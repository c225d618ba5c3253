package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"kids-activity-service/internal/domain"
)

// ResultStore persists completed playthroughs into activity_results.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Record(ctx context.Context, result domain.ActivityResult) error {
	row := &resultRow{
		PlaythroughID: result.PlaythroughID,
		ActivityID:    result.ActivityID,
		Score:         result.Score,
		Total:         result.Total,
		Unlocked:      result.Unlocked,
		CompletedAt:   result.CompletedAt.UTC(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

// ResultsFor lists the recorded results of an activity, newest first.
func (s *ResultStore) ResultsFor(ctx context.Context, activityID string) ([]domain.ActivityResult, error) {
	var rows []resultRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("activity_id = ?", activityID).
		OrderExpr("completed_at DESC, id DESC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	out := make([]domain.ActivityResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
