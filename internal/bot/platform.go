package bot

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/tracker/ownership"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// channelDirectory reads channels from the gateway cache.
type channelDirectory struct {
	client bot.Client
}

func (d channelDirectory) Channel(_, channelID uint64) (platform.ChannelInfo, bool) {
	channel, ok := d.client.Caches().Channel(snowflake.ID(channelID))
	if !ok {
		return platform.ChannelInfo{}, false
	}
	return convertChannel(channel), true
}

// memberLookup reads join dates from the cache, falling back to REST.
type memberLookup struct {
	client bot.Client
}

func (l memberLookup) JoinedAt(ctx context.Context, guildID, userID uint64) (*time.Time, bool) {
	if member, ok := l.client.Caches().Member(snowflake.ID(guildID), snowflake.ID(userID)); ok && !member.JoinedAt.IsZero() {
		joinedAt := member.JoinedAt.UTC()
		return &joinedAt, true
	}

	member, err := l.client.Rest().GetMember(snowflake.ID(guildID), snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil || member.JoinedAt.IsZero() {
		return nil, false
	}
	joinedAt := member.JoinedAt.UTC()
	return &joinedAt, true
}

// messageFetcher loads referenced messages over REST.
type messageFetcher struct {
	client bot.Client
}

func (f messageFetcher) FetchMessage(ctx context.Context, channelID, messageID uint64) (*platform.MessageRef, error) {
	message, err := f.client.Rest().GetMessage(snowflake.ID(channelID), snowflake.ID(messageID), rest.WithCtx(ctx))
	if err != nil {
		return nil, err
	}
	return convertRef(*message), nil
}

// AuditIndex remembers channel creators seen in audit log events and
// persists them to the creator store.
type AuditIndex struct {
	store    ownership.CreatorStore
	creators *xsync.MapOf[uint64, uint64]
	logger   *zap.Logger
}

// NewAuditIndex creates an empty AuditIndex.
func NewAuditIndex(store ownership.CreatorStore, logger *zap.Logger) *AuditIndex {
	return &AuditIndex{
		store:    store,
		creators: xsync.NewMapOf[uint64, uint64](),
		logger:   logger.Named("audit_index"),
	}
}

// RecordChannelCreate stores the creator of a newly created channel.
func (a *AuditIndex) RecordChannelCreate(
	ctx context.Context, guildID, channelID, creatorID uint64, channelType int, at time.Time,
) {
	if channelID == 0 || creatorID == 0 {
		return
	}
	a.creators.Store(channelID, creatorID)

	err := a.store.Upsert(ctx, &types.ChannelOwnership{
		ChannelID:     channelID,
		GuildID:       guildID,
		CreatorUserID: creatorID,
		ChannelType:   channelType,
		CreatedAt:     at.UTC(),
	})
	if err != nil {
		a.logger.Error("Failed to persist channel creator",
			zap.Uint64("channelID", channelID),
			zap.Uint64("creatorID", creatorID),
			zap.Error(err))
	}
}

// ChannelCreator implements platform.AuditLog.
func (a *AuditIndex) ChannelCreator(_ context.Context, _, channelID uint64) (uint64, bool, error) {
	creatorID, ok := a.creators.Load(channelID)
	return creatorID, ok, nil
}
