// Package message runs the bookkeeping for each guild message.
package message

import (
	"context"
	"time"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/lunalog/lunalog/internal/tracker/bucket"
	"github.com/lunalog/lunalog/internal/tracker/interaction"
	"github.com/lunalog/lunalog/internal/tracker/ownership"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"github.com/lunalog/lunalog/internal/tracker/vibe"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Tracker handles guild messages.
type Tracker struct {
	db           database.Client
	interactions *interaction.Tracker
	vibes        *vibe.Inferrer
	policy       ownership.Policy
	channels     platform.ChannelDirectory
	members      platform.MemberLookup
	cfg          *config.BotConfig
	scoped       map[uint64]struct{}
	tracer       trace.Tracer
	logger       *zap.Logger
}

// New creates a Tracker. The channel directory and member lookup may be nil.
func New(
	db database.Client,
	interactions *interaction.Tracker,
	vibes *vibe.Inferrer,
	policy ownership.Policy,
	channels platform.ChannelDirectory,
	members platform.MemberLookup,
	cfg *config.BotConfig,
	logger *zap.Logger,
) *Tracker {
	scoped := make(map[uint64]struct{}, len(cfg.Scoped.MessageCategoryIDs))
	for _, id := range cfg.Scoped.MessageCategoryIDs {
		scoped[id] = struct{}{}
	}

	return &Tracker{
		db:           db,
		interactions: interactions,
		vibes:        vibes,
		policy:       policy,
		channels:     channels,
		members:      members,
		cfg:          cfg,
		scoped:       scoped,
		tracer:       otel.Tracer("github.com/lunalog/lunalog/internal/tracker/message"),
		logger:       logger.Named("message_tracker"),
	}
}

// OnMessage records a guild message. Every step runs even when an earlier
// one failed; failures are logged.
func (t *Tracker) OnMessage(ctx context.Context, msg platform.Message) {
	if msg.AuthorBot || msg.GuildID == 0 || msg.AuthorID == 0 {
		return
	}

	ctx, span := t.tracer.Start(ctx, "message.track")
	defer span.End()

	logger := t.logger.With(
		zap.Uint64("userID", msg.AuthorID),
		zap.Uint64("channelID", msg.ChannelID))
	users := t.db.Model().User()
	moments := t.db.Service().Moment()

	if err := users.Upsert(ctx, msg.AuthorID, t.joinedAt(ctx, msg)); err != nil {
		logger.Error("Failed to upsert user", zap.Error(err))
	}

	if err := users.SetLastMessage(ctx, msg.AuthorID, msg.CreatedAt, msg.ChannelID); err != nil {
		logger.Error("Failed to set last message", zap.Error(err))
	}
	if err := users.SetLastSeen(ctx, msg.AuthorID, msg.CreatedAt, enum.SeenTypeMessage, msg.ChannelID); err != nil {
		logger.Error("Failed to set last seen", zap.Error(err))
	}

	var info platform.ChannelInfo
	if t.channels != nil {
		info, _ = t.channels.Channel(msg.GuildID, msg.ChannelID)
	}

	_, err := moments.EnsureFirst(ctx, msg.AuthorID, enum.MomentTypeFirstMessage, types.MessageMeta{
		ChannelID:   msg.ChannelID,
		ChannelName: channelName(info),
	}, msg.CreatedAt)
	if err != nil {
		logger.Error("Failed to record first message moment", zap.Error(err))
	}

	if t.cfg.Tracking.TrackMessages && t.policy.ShouldCount(ctx, msg.GuildID, msg.ChannelID, msg.AuthorID) {
		t.addActivity(ctx, logger, msg, info.ParentID)
	}

	if t.cfg.Tracking.TrackInteractions {
		if candidate, ok := t.interactions.Track(ctx, msg); ok {
			t.recordConnection(ctx, logger, msg, candidate)
		}
	}

	if err := t.vibes.OnMessage(ctx, msg); err != nil {
		logger.Error("Failed to infer vibes", zap.Error(err))
	}
}

func (t *Tracker) addActivity(ctx context.Context, logger *zap.Logger, msg platform.Message, categoryID uint64) {
	activity := t.db.Model().Activity()
	dateKey := bucket.DateKey(msg.CreatedAt)
	b := bucket.Of(msg.CreatedAt)
	weekend := bucket.IsWeekend(msg.CreatedAt)

	if err := activity.AddMessage(ctx, msg.AuthorID, dateKey, b, weekend); err != nil {
		logger.Error("Failed to add message activity", zap.Error(err))
	}

	if _, ok := t.scoped[categoryID]; ok && categoryID != 0 {
		if err := activity.AddScopedMessage(ctx, msg.AuthorID, dateKey, categoryID, b, weekend); err != nil {
			logger.Error("Failed to add scoped message activity", zap.Error(err))
		}
	}
}

func (t *Tracker) recordConnection(
	ctx context.Context, logger *zap.Logger, msg platform.Message, candidate interaction.Candidate,
) {
	_, err := t.db.Service().Moment().EnsureFirst(ctx, msg.AuthorID, enum.MomentTypeFirstConnection, types.ConnectionMeta{
		OtherUserID: candidate.OtherUserID,
		Via:         candidate.Via,
		ChannelID:   msg.ChannelID,
	}, msg.CreatedAt)
	if err != nil {
		logger.Error("Failed to record first connection moment", zap.Error(err))
	}

	users := t.db.Model().User()
	if err := users.SetLastConnection(ctx, msg.AuthorID, msg.CreatedAt, candidate.OtherUserID, candidate.Via); err != nil {
		logger.Error("Failed to set last connection", zap.Error(err))
	}
	if err := users.SetLastSeen(ctx, msg.AuthorID, msg.CreatedAt, enum.SeenTypeConnection, msg.ChannelID); err != nil {
		logger.Error("Failed to set last seen", zap.Error(err))
	}
}

// joinedAt returns the author's join time from the event, or from the
// member lookup when the event did not carry it.
func (t *Tracker) joinedAt(ctx context.Context, msg platform.Message) *time.Time {
	if msg.MemberJoinedAt != nil {
		return msg.MemberJoinedAt
	}
	if t.members == nil {
		return nil
	}
	if joined, ok := t.members.JoinedAt(ctx, msg.GuildID, msg.AuthorID); ok {
		return joined
	}
	return nil
}

func channelName(info platform.ChannelInfo) string {
	if info.Name == "" {
		return "unknown"
	}
	return info.Name
}
