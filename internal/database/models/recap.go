package models

import (
	"context"
	"fmt"

	"github.com/lunalog/lunalog/internal/database/dbretry"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RecapModel tracks which weekly recaps have been produced.
type RecapModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRecap creates a RecapModel.
func NewRecap(db *bun.DB, logger *zap.Logger) *RecapModel {
	return &RecapModel{
		db:     db,
		logger: logger.Named("db_recap"),
	}
}

// HasRun reports whether the recap for the week starting at weekStart was produced.
func (r *RecapModel) HasRun(ctx context.Context, weekStart string) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		exists, err := r.db.NewSelect().
			Model((*types.RecapRun)(nil)).
			Where("week_start = ?", weekStart).
			Exists(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to check recap run: %w", err)
		}
		return exists, nil
	})
}

// MarkRun records a produced recap. Marking the same week again updates the
// posting details.
func (r *RecapModel) MarkRun(ctx context.Context, run *types.RecapRun) error {
	run.PostedAt = run.PostedAt.UTC()

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(run).
			On("CONFLICT (week_start) DO UPDATE").
			Set("posted_at = EXCLUDED.posted_at").
			Set("channel_id = EXCLUDED.channel_id").
			Set("message_id = EXCLUDED.message_id").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark recap run: %w", err)
		}
		return nil
	})
}
