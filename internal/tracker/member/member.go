// Package member records guild joins.
package member

import (
	"context"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"go.uber.org/zap"
)

// Tracker handles member joins.
type Tracker struct {
	db     database.Client
	logger *zap.Logger
}

// New creates a Tracker.
func New(db database.Client, logger *zap.Logger) *Tracker {
	return &Tracker{
		db:     db,
		logger: logger.Named("member_tracker"),
	}
}

// OnMemberJoin stores the join date and the JOINED moment.
func (t *Tracker) OnMemberJoin(ctx context.Context, ev platform.MemberJoin) {
	if ev.Bot || ev.UserID == 0 {
		return
	}

	joinedAt := &ev.JoinedAt
	if ev.JoinedAt.IsZero() {
		joinedAt = nil
	}

	if err := t.db.Model().User().Upsert(ctx, ev.UserID, joinedAt); err != nil {
		t.logger.Error("Failed to upsert user",
			zap.Error(err),
			zap.Uint64("userID", ev.UserID))
	}

	_, err := t.db.Service().Moment().EnsureFirst(ctx, ev.UserID, enum.MomentTypeJoined,
		types.JoinedMeta{GuildID: ev.GuildID}, ev.JoinedAt)
	if err != nil {
		t.logger.Error("Failed to record join moment",
			zap.Error(err),
			zap.Uint64("userID", ev.UserID))
	}
}
