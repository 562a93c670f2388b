package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lunalog/lunalog/internal/database/dbretry"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// scoreExpr computes the derived interaction score of a row.
const scoreExpr = "(mentions * 2 + replies * 3 + vc_minutes_together)"

// InteractionModel handles the directional interaction counters.
type InteractionModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewInteraction creates an InteractionModel.
func NewInteraction(db *bun.DB, logger *zap.Logger) *InteractionModel {
	return &InteractionModel{
		db:     db,
		logger: logger.Named("db_interaction"),
	}
}

// AddDelta adds to the counters of one directional pair. The last
// interaction time is replaced by the delta's.
func (r *InteractionModel) AddDelta(ctx context.Context, delta types.InteractionDelta) error {
	if delta.UserID == 0 || delta.OtherUserID == 0 || delta.UserID == delta.OtherUserID {
		return nil
	}

	row := &types.Interaction{
		UserID:            delta.UserID,
		OtherUserID:       delta.OtherUserID,
		Mentions:          delta.Mentions,
		Replies:           delta.Replies,
		VCMinutesTogether: delta.VCMinutes,
		LastInteractionAt: delta.At.UTC(),
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(row).
			On("CONFLICT (user_id, other_user_id) DO UPDATE").
			Set("mentions = interactions.mentions + EXCLUDED.mentions").
			Set("replies = interactions.replies + EXCLUDED.replies").
			Set("vc_minutes_together = interactions.vc_minutes_together + EXCLUDED.vc_minutes_together").
			Set("last_interaction_at = EXCLUDED.last_interaction_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add interaction delta: %w", err)
		}
		return nil
	})
}

// GetPair returns the directional row from userID to otherUserID, or nil when absent.
func (r *InteractionModel) GetPair(ctx context.Context, userID, otherUserID uint64) (*types.Interaction, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Interaction, error) {
		var row types.Interaction
		err := r.db.NewSelect().
			Model(&row).
			Where("user_id = ?", userID).
			Where("other_user_id = ?", otherUserID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil //nolint:nilnil // absent pair
			}
			return nil, fmt.Errorf("failed to get interaction pair: %w", err)
		}
		return &row, nil
	})
}

// TopCounterparts returns the user's partners ordered by score, then by most
// recent interaction.
func (r *InteractionModel) TopCounterparts(
	ctx context.Context, userID uint64, limit int,
) ([]types.Counterpart, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.Counterpart, error) {
		var rows []types.Counterpart
		err := r.db.NewSelect().
			Model((*types.Interaction)(nil)).
			Column("other_user_id", "mentions", "replies", "vc_minutes_together", "last_interaction_at").
			ColumnExpr(scoreExpr+" AS score").
			Where("user_id = ?", userID).
			Where(scoreExpr + " > 0").
			OrderExpr("score DESC, last_interaction_at DESC").
			Limit(limit).
			Scan(ctx, &rows)
		if err != nil {
			return nil, fmt.Errorf("failed to get top counterparts: %w", err)
		}
		return rows, nil
	})
}

// TopUsersByScore ranks users by their score summed over all partners.
func (r *InteractionModel) TopUsersByScore(ctx context.Context, limit int) ([]types.UserScore, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.UserScore, error) {
		var rows []types.UserScore
		err := r.db.NewSelect().
			Model((*types.Interaction)(nil)).
			Column("user_id").
			ColumnExpr("SUM("+scoreExpr+") AS score").
			Group("user_id").
			Having("SUM(" + scoreExpr + ") > 0").
			OrderExpr("score DESC, user_id ASC").
			Limit(limit).
			Scan(ctx, &rows)
		if err != nil {
			return nil, fmt.Errorf("failed to get top users by score: %w", err)
		}
		return rows, nil
	})
}

// Summary counts the user's scored partners and sums their scores.
func (r *InteractionModel) Summary(ctx context.Context, userID uint64) (types.InteractionSummary, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (types.InteractionSummary, error) {
		var summary types.InteractionSummary
		err := r.db.NewSelect().
			Model((*types.Interaction)(nil)).
			ColumnExpr("COUNT(*) AS links").
			ColumnExpr("COALESCE(SUM("+scoreExpr+"), 0) AS total_score").
			Where("user_id = ?", userID).
			Where(scoreExpr + " > 0").
			Scan(ctx, &summary)
		if err != nil {
			return types.InteractionSummary{}, fmt.Errorf("failed to get interaction summary: %w", err)
		}
		return summary, nil
	})
}

// All returns every interaction row in key order.
func (r *InteractionModel) All(ctx context.Context) ([]*types.Interaction, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Interaction, error) {
		var rows []*types.Interaction
		err := r.db.NewSelect().
			Model(&rows).
			Order("user_id ASC", "other_user_id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list interactions: %w", err)
		}
		return rows, nil
	})
}

