package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lunalog/lunalog/internal/database/dbretry"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// UserModel handles database operations for tracked users.
type UserModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewUser creates a UserModel.
func NewUser(db *bun.DB, logger *zap.Logger) *UserModel {
	return &UserModel{
		db:     db,
		logger: logger.Named("db_user"),
	}
}

// Upsert creates the user if absent, otherwise only bumps the update time.
// An existing join date is never replaced; a missing one is filled from joinedAt.
func (r *UserModel) Upsert(ctx context.Context, userID uint64, joinedAt *time.Time) error {
	now := time.Now().UTC()
	user := &types.User{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if joinedAt != nil {
		user.JoinDate = joinedAt.UTC()
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := r.db.NewInsert().
			Model(user).
			On("CONFLICT (user_id) DO UPDATE").
			Set("updated_at = EXCLUDED.updated_at").
			Set("join_date = COALESCE(users.join_date, EXCLUDED.join_date)").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		return nil
	})
}

// Get retrieves a user by ID.
func (r *UserModel) Get(ctx context.Context, userID uint64) (*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.User, error) {
		var user types.User
		err := r.db.NewSelect().
			Model(&user).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		return &user, nil
	})
}

// ListWithVibes returns every user that has chosen or inferred vibe data.
func (r *UserModel) ListWithVibes(ctx context.Context) ([]*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.User, error) {
		var users []*types.User
		err := r.db.NewSelect().
			Model(&users).
			Column("user_id", "chosen_vibe", "inferred_vibe").
			Where("chosen_vibe IS NOT NULL OR inferred_vibe IS NOT NULL").
			Order("user_id ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list users with vibes: %w", err)
		}
		return users, nil
	})
}

// List returns every user, ordered by ID.
func (r *UserModel) List(ctx context.Context) ([]*types.User, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.User, error) {
		var users []*types.User
		if err := r.db.NewSelect().Model(&users).Order("user_id ASC").Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		return users, nil
	})
}

// SetChosenVibe replaces the user's declared vibes. An empty list clears them.
func (r *UserModel) SetChosenVibe(ctx context.Context, userID uint64, chosen []string) error {
	if len(chosen) == 0 {
		return r.update(ctx, userID, "chosen vibe", map[string]any{"chosen_vibe": nil})
	}

	raw, err := types.EncodeChosenVibes(chosen)
	if err != nil {
		return fmt.Errorf("failed to encode chosen vibes: %w", err)
	}
	return r.update(ctx, userID, "chosen vibe", map[string]any{"chosen_vibe": raw})
}

// SetInferredVibe replaces the user's inferred vibe vector.
func (r *UserModel) SetInferredVibe(ctx context.Context, userID uint64, scores types.VibeScores) error {
	raw, err := scores.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode inferred vibes: %w", err)
	}
	return r.update(ctx, userID, "inferred vibe", map[string]any{"inferred_vibe": raw})
}

// SetLastMessage overwrites the last message snapshot.
func (r *UserModel) SetLastMessage(ctx context.Context, userID uint64, at time.Time, channelID uint64) error {
	return r.update(ctx, userID, "last message", map[string]any{
		"last_message_at":         at.UTC(),
		"last_message_channel_id": channelID,
	})
}

// SetLastVoice overwrites the last voice snapshot.
func (r *UserModel) SetLastVoice(ctx context.Context, userID uint64, at time.Time, channelID uint64, minutes int) error {
	return r.update(ctx, userID, "last voice", map[string]any{
		"last_voice_at":         at.UTC(),
		"last_voice_channel_id": channelID,
		"last_voice_minutes":    minutes,
	})
}

// SetLastConnection overwrites the last connection snapshot.
func (r *UserModel) SetLastConnection(
	ctx context.Context, userID uint64, at time.Time, otherUserID uint64, via enum.ConnectionVia,
) error {
	return r.update(ctx, userID, "last connection", map[string]any{
		"last_connection_at":      at.UTC(),
		"last_connection_user_id": otherUserID,
		"last_connection_via":     string(via),
	})
}

// SetLastSeen overwrites the last seen snapshot.
func (r *UserModel) SetLastSeen(
	ctx context.Context, userID uint64, at time.Time, seenType enum.SeenType, channelID uint64,
) error {
	fields := map[string]any{
		"last_seen_at":         at.UTC(),
		"last_seen_type":       string(seenType),
		"last_seen_channel_id": nil,
	}
	if channelID != 0 {
		fields["last_seen_channel_id"] = channelID
	}
	return r.update(ctx, userID, "last seen", fields)
}

// update sets the given columns and bumps updated_at for one user.
func (r *UserModel) update(ctx context.Context, userID uint64, what string, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := r.db.NewUpdate().
			Model((*types.User)(nil)).
			Where("user_id = ?", userID)
		for column, value := range fields {
			query = query.Set("? = ?", bun.Ident(column), value)
		}

		if _, err := query.Exec(ctx); err != nil {
			return fmt.Errorf("failed to set %s: %w", what, err)
		}
		return nil
	})
}
