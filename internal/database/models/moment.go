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

// MomentModel handles the append-only moment log.
type MomentModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMoment creates a MomentModel.
func NewMoment(db *bun.DB, logger *zap.Logger) *MomentModel {
	return &MomentModel{
		db:     db,
		logger: logger.Named("db_moment"),
	}
}

// Insert appends a moment, encoding its Details into Meta.
func (r *MomentModel) Insert(ctx context.Context, moment *types.Moment) error {
	if moment.Details != nil {
		raw, err := types.EncodeMomentMeta(moment.Type, moment.Details)
		if err != nil {
			return err
		}
		moment.Meta = raw
	}
	if moment.CreatedAt.IsZero() {
		moment.CreatedAt = time.Now()
	}
	moment.CreatedAt = moment.CreatedAt.UTC()

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		if _, err := r.db.NewInsert().Model(moment).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert moment: %w", err)
		}
		return nil
	})
}

// FirstByType returns the oldest moment of a type for the user.
func (r *MomentModel) FirstByType(
	ctx context.Context, userID uint64, momentType enum.MomentType,
) (*types.Moment, error) {
	return r.first(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).Where("type = ?", momentType)
	})
}

// Earliest returns the user's oldest moment of any type.
func (r *MomentModel) Earliest(ctx context.Context, userID uint64) (*types.Moment, error) {
	return r.first(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID)
	})
}

func (r *MomentModel) first(
	ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery,
) (*types.Moment, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Moment, error) {
		var moment types.Moment
		err := filter(r.db.NewSelect().Model(&moment)).
			Order("created_at ASC", "id ASC").
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrMomentNotFound
			}
			return nil, fmt.Errorf("failed to get moment: %w", err)
		}
		moment.Decode()
		return &moment, nil
	})
}

// RecentNotes returns the user's notes, newest first.
func (r *MomentModel) RecentNotes(ctx context.Context, userID uint64, limit int) ([]*types.Moment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).
			Where("type = ?", enum.MomentTypeNote).
			Order("created_at DESC", "id DESC").
			Limit(limit)
	})
}

// NotesBetween returns notes created in [from, to), newest first.
func (r *MomentModel) NotesBetween(ctx context.Context, from, to time.Time, limit int) ([]*types.Moment, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("type = ?", enum.MomentTypeNote).
			Where("created_at >= ?", from.UTC()).
			Where("created_at < ?", to.UTC()).
			Order("created_at DESC", "id DESC").
			Limit(limit)
	})
}

func (r *MomentModel) list(
	ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery,
) ([]*types.Moment, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Moment, error) {
		var moments []*types.Moment
		if err := filter(r.db.NewSelect().Model(&moments)).Scan(ctx); err != nil {
			return nil, fmt.Errorf("failed to list moments: %w", err)
		}
		for _, moment := range moments {
			moment.Decode()
		}
		return moments, nil
	})
}

// DeleteNote removes a note only if it belongs to the user. It reports
// whether a row was deleted.
func (r *MomentModel) DeleteNote(ctx context.Context, id int64, userID uint64) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := r.db.NewDelete().
			Model((*types.Moment)(nil)).
			Where("id = ?", id).
			Where("user_id = ?", userID).
			Where("type = ?", enum.MomentTypeNote).
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to delete note: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to get affected rows: %w", err)
		}
		return affected > 0, nil
	})
}

// CountNotes counts the user's notes.
func (r *MomentModel) CountNotes(ctx context.Context, userID uint64) (int, error) {
	return r.count(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID).Where("type = ?", enum.MomentTypeNote)
	})
}

// CountNotesBetween counts all notes created in [from, to).
func (r *MomentModel) CountNotesBetween(ctx context.Context, from, to time.Time) (int, error) {
	return r.count(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("type = ?", enum.MomentTypeNote).
			Where("created_at >= ?", from.UTC()).
			Where("created_at < ?", to.UTC())
	})
}

func (r *MomentModel) count(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) (int, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int, error) {
		count, err := filter(r.db.NewSelect().Model((*types.Moment)(nil))).Count(ctx)
		if err != nil {
			return 0, fmt.Errorf("failed to count moments: %w", err)
		}
		return count, nil
	})
}
