// Package voice tracks voice channel sessions and turns closed sessions into
// activity, moments and co-presence.
package voice

import (
	"context"
	"time"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/lunalog/lunalog/internal/tracker/bucket"
	"github.com/lunalog/lunalog/internal/tracker/ownership"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Tracker handles voice state changes.
type Tracker struct {
	db       database.Client
	sessions *Sessions
	policy   ownership.Policy
	channels platform.ChannelDirectory
	cfg      *config.BotConfig
	scoped   map[uint64]struct{}
	tracer   trace.Tracer
	logger   *zap.Logger
}

// New creates a Tracker. The channel directory may be nil.
func New(
	db database.Client,
	sessions *Sessions,
	policy ownership.Policy,
	channels platform.ChannelDirectory,
	cfg *config.BotConfig,
	logger *zap.Logger,
) *Tracker {
	scoped := make(map[uint64]struct{}, len(cfg.Scoped.VoiceCategoryIDs))
	for _, id := range cfg.Scoped.VoiceCategoryIDs {
		scoped[id] = struct{}{}
	}

	return &Tracker{
		db:       db,
		sessions: sessions,
		policy:   policy,
		channels: channels,
		cfg:      cfg,
		scoped:   scoped,
		tracer:   otel.Tracer("github.com/lunalog/lunalog/internal/tracker/voice"),
		logger:   logger.Named("voice_tracker"),
	}
}

// Sessions returns the tracker's session map.
func (t *Tracker) Sessions() *Sessions {
	return t.sessions
}

// OnVoiceStateUpdate applies a voice state change. Only channel presence
// matters; mute, deafen and stream changes are ignored.
func (t *Tracker) OnVoiceStateUpdate(ctx context.Context, ev platform.VoiceStateChange) {
	if ev.Bot || ev.UserID == 0 {
		return
	}

	switch {
	case ev.OldChannelID == 0 && ev.NewChannelID != 0:
		t.start(ctx, ev)
	case ev.OldChannelID != 0 && ev.NewChannelID == 0:
		t.close(ctx, ev)
	case ev.OldChannelID != 0 && ev.NewChannelID != 0 && ev.OldChannelID != ev.NewChannelID:
		t.close(ctx, ev)
		t.start(ctx, ev)
	}
}

func (t *Tracker) start(ctx context.Context, ev platform.VoiceStateChange) {
	t.sessions.Start(Session{
		UserID:    ev.UserID,
		GuildID:   ev.GuildID,
		ChannelID: ev.NewChannelID,
		Start:     ev.At,
	})

	if err := t.db.Model().User().Upsert(ctx, ev.UserID, ev.MemberJoinedAt); err != nil {
		t.logger.Error("Failed to upsert user",
			zap.Error(err),
			zap.Uint64("userID", ev.UserID))
	}
}

func (t *Tracker) close(ctx context.Context, ev platform.VoiceStateChange) {
	session, others, ok := t.sessions.End(ev.UserID, ev.OldChannelID)
	if !ok {
		t.logger.Debug("Ignoring close without a matching session",
			zap.Uint64("userID", ev.UserID),
			zap.Uint64("channelID", ev.OldChannelID))
		return
	}

	ctx, span := t.tracer.Start(ctx, "voice.close", trace.WithAttributes(
		attribute.Int64("channel_id", int64(session.ChannelID)), //nolint:gosec // snowflakes fit in int64
	))
	defer span.End()

	end := ev.At
	total := int(end.Truncate(time.Minute).Sub(session.Start.Truncate(time.Minute)) / time.Minute)
	if total <= 0 {
		return
	}
	span.SetAttributes(attribute.Int("minutes", total))

	logger := t.logger.With(
		zap.Uint64("userID", ev.UserID),
		zap.Uint64("channelID", session.ChannelID))

	// Snapshots are written even when the minutes are excluded from totals
	users := t.db.Model().User()
	if err := users.SetLastVoice(ctx, ev.UserID, end, session.ChannelID, total); err != nil {
		logger.Error("Failed to set last voice", zap.Error(err))
	}
	if err := users.SetLastSeen(ctx, ev.UserID, end, enum.SeenTypeVoice, session.ChannelID); err != nil {
		logger.Error("Failed to set last seen", zap.Error(err))
	}

	segments := bucket.SplitInterval(session.Start, end)

	var info platform.ChannelInfo
	if t.channels != nil {
		info, _ = t.channels.Channel(session.GuildID, session.ChannelID)
	}

	if t.cfg.Tracking.TrackVoice && t.policy.ShouldCount(ctx, session.GuildID, session.ChannelID, ev.UserID) {
		t.addActivity(ctx, logger, ev.UserID, info.ParentID, segments)
	}

	if total >= t.cfg.Moments.MinFirstVCMinutes {
		_, err := t.db.Service().Moment().EnsureFirst(ctx, ev.UserID, enum.MomentTypeFirstVC, types.VoiceMeta{
			ChannelID:   session.ChannelID,
			ChannelName: channelName(info),
			Minutes:     total,
		}, end)
		if err != nil {
			logger.Error("Failed to record first voice moment", zap.Error(err))
		}
	}

	if t.cfg.Tracking.TrackInteractions {
		t.addOverlaps(ctx, logger, session, others, end)
	}
}

func (t *Tracker) addActivity(
	ctx context.Context, logger *zap.Logger, userID, categoryID uint64, segments []bucket.Segment,
) {
	activity := t.db.Model().Activity()
	_, scoped := t.scoped[categoryID]
	scoped = scoped && categoryID != 0

	for _, seg := range segments {
		if err := activity.AddVoice(ctx, userID, seg); err != nil {
			logger.Error("Failed to add voice activity", zap.Error(err), zap.String("dateKey", seg.DateKey))
		}
		if scoped {
			if err := activity.AddScopedVoice(ctx, userID, categoryID, seg); err != nil {
				logger.Error("Failed to add scoped voice activity", zap.Error(err), zap.String("dateKey", seg.DateKey))
			}
		}
	}
}

// addOverlaps credits the closing user and every user still in the channel
// with the minutes they spent together, in both directions.
func (t *Tracker) addOverlaps(
	ctx context.Context, logger *zap.Logger, session Session, others []Session, end time.Time,
) {
	interactions := t.db.Model().Interaction()

	for _, other := range others {
		from := session.Start
		if other.Start.After(from) {
			from = other.Start
		}

		overlap := int(end.Sub(from) / time.Minute)
		if overlap <= 0 {
			continue
		}

		for _, delta := range []types.InteractionDelta{
			{UserID: session.UserID, OtherUserID: other.UserID, VCMinutes: overlap, At: end},
			{UserID: other.UserID, OtherUserID: session.UserID, VCMinutes: overlap, At: end},
		} {
			if err := interactions.AddDelta(ctx, delta); err != nil {
				logger.Error("Failed to add voice overlap",
					zap.Error(err),
					zap.Uint64("otherUserID", delta.OtherUserID))
			}
		}
	}
}

func channelName(info platform.ChannelInfo) string {
	if info.Name == "" {
		return "unknown"
	}
	return info.Name
}
