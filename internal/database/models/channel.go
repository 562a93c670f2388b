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

// ChannelModel handles channel creator records.
type ChannelModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewChannel creates a ChannelModel.
func NewChannel(db *bun.DB, logger *zap.Logger) *ChannelModel {
	return &ChannelModel{
		db:     db,
		logger: logger.Named("db_channel"),
	}
}

// Upsert stores or replaces the creator record of a channel.
func (r *ChannelModel) Upsert(ctx context.Context, ownership *types.ChannelOwnership) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(ownership).
			On("CONFLICT (channel_id) DO UPDATE").
			Set("guild_id = EXCLUDED.guild_id").
			Set("creator_user_id = EXCLUDED.creator_user_id").
			Set("channel_type = EXCLUDED.channel_type").
			Set("created_at = EXCLUDED.created_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert channel ownership: %w", err)
		}
		return nil
	})
}

// GetCreator returns the recorded creator of a channel.
func (r *ChannelModel) GetCreator(ctx context.Context, channelID uint64) (uint64, bool, error) {
	type result struct {
		creator uint64
		found   bool
	}

	res, err := dbretry.Operation(ctx, func(ctx context.Context) (result, error) {
		var creatorID uint64
		err := r.db.NewSelect().
			Model((*types.ChannelOwnership)(nil)).
			Column("creator_user_id").
			Where("channel_id = ?", channelID).
			Scan(ctx, &creatorID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return result{}, nil
			}
			return result{}, fmt.Errorf("failed to get channel creator: %w", err)
		}
		return result{creator: creatorID, found: true}, nil
	})
	return res.creator, res.found, err
}
