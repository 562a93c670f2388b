package message_test

import (
	"context"
	"testing"
	"time"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/dbtest"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/lunalog/lunalog/internal/tracker/interaction"
	"github.com/lunalog/lunalog/internal/tracker/message"
	"github.com/lunalog/lunalog/internal/tracker/ownership"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"github.com/lunalog/lunalog/internal/tracker/vibe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	guildID      = 1
	general      = 10
	owned        = 20
	scopedParent = 900
	scopedChat   = 30
)

type directory map[uint64]platform.ChannelInfo

func (d directory) Channel(_, channelID uint64) (platform.ChannelInfo, bool) {
	info, ok := d[channelID]
	return info, ok
}

type members map[uint64]time.Time

func (m members) JoinedAt(_ context.Context, _, userID uint64) (*time.Time, bool) {
	joined, ok := m[userID]
	if !ok {
		return nil, false
	}
	return &joined, true
}

var (
	sentAt   = time.Date(2025, 3, 1, 22, 15, 0, 0, time.UTC) //nolint:gochecknoglobals // Saturday evening
	joinedAt = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)   //nolint:gochecknoglobals // test fixture
)

// ownerPolicy excludes user 1 in the owned channel.
func ownerPolicy() ownership.Policy {
	return ownership.PolicyFunc(func(_ context.Context, _, channelID, userID uint64) bool {
		return channelID != owned || userID != 1
	})
}

func newTracker(t *testing.T, mutate func(*config.Config)) (*message.Tracker, database.Client) {
	t.Helper()

	cfg := config.Default()
	cfg.Bot.Scoped.MessageCategoryIDs = []uint64{scopedParent}
	cfg.Vibes.Categories = []config.VibeCategory{{Name: "chat", ChannelIDs: []uint64{general}}, {Name: "game"}}
	if mutate != nil {
		mutate(cfg)
	}

	db := dbtest.New(t)
	dir := directory{
		general:    {ID: general, Name: "general"},
		owned:      {ID: owned, Name: "my-room"},
		scopedChat: {ID: scopedChat, Name: "chat", ParentID: scopedParent},
	}

	tracker := message.New(
		db,
		interaction.New(db, nil, zap.NewNop()),
		vibe.New(db, cfg.Vibes, zap.NewNop()),
		ownerPolicy(),
		dir,
		members{1: joinedAt},
		&cfg.Bot,
		zap.NewNop(),
	)
	return tracker, db
}

func TestOnMessageSteps(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, db := newTracker(t, nil)

	tracker.OnMessage(ctx, platform.Message{
		ID:         1,
		GuildID:    guildID,
		ChannelID:  general,
		AuthorID:   1,
		Content:    "hey",
		CreatedAt:  sentAt,
		Referenced: &platform.MessageRef{AuthorID: 2},
	})

	user, err := db.Model().User().Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, user.JoinDate.Equal(joinedAt))
	assert.True(t, user.LastMessageAt.Equal(sentAt))
	assert.Equal(t, uint64(general), user.LastMessageChannelID)
	assert.Equal(t, uint64(2), user.LastConnectionUserID)
	assert.Equal(t, enum.ConnectionViaReply, user.LastConnectionVia)
	assert.Equal(t, enum.SeenTypeConnection, user.LastSeenType)
	assert.Equal(t, 1, user.InferredScores()["chat"])

	first, err := db.Service().Moment().Get(ctx, 1, enum.MomentTypeFirstMessage)
	require.NoError(t, err)
	assert.Equal(t, types.MessageMeta{ChannelID: general, ChannelName: "general"}, first.Details)

	connection, err := db.Service().Moment().Get(ctx, 1, enum.MomentTypeFirstConnection)
	require.NoError(t, err)
	assert.Equal(t, types.ConnectionMeta{OtherUserID: 2, Via: enum.ConnectionViaReply, ChannelID: general}, connection.Details)

	totals, err := db.Model().Activity().Totals(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.ActivityTotals{Messages: 1, Evening: 1, Weekend: 1}, totals)
}

func TestOnMessageOwnershipExclusion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, db := newTracker(t, nil)

	tracker.OnMessage(ctx, platform.Message{GuildID: guildID, ChannelID: owned, AuthorID: 1, CreatedAt: sentAt})
	tracker.OnMessage(ctx, platform.Message{GuildID: guildID, ChannelID: owned, AuthorID: 2, CreatedAt: sentAt})

	own, err := db.Model().Activity().Totals(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, own.Messages)

	other, err := db.Model().Activity().Totals(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, other.Messages)

	// Snapshots and moments are not subject to the exclusion
	user, err := db.Model().User().Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(owned), user.LastMessageChannelID)

	first, err := db.Service().Moment().Get(ctx, 1, enum.MomentTypeFirstMessage)
	require.NoError(t, err)
	assert.Equal(t, types.MessageMeta{ChannelID: owned, ChannelName: "my-room"}, first.Details)
}

func TestOnMessageScopedCounting(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, db := newTracker(t, nil)

	tracker.OnMessage(ctx, platform.Message{GuildID: guildID, ChannelID: scopedChat, AuthorID: 3, CreatedAt: sentAt})
	tracker.OnMessage(ctx, platform.Message{GuildID: guildID, ChannelID: general, AuthorID: 3, CreatedAt: sentAt})

	scoped, err := db.Model().Activity().Top(ctx, types.TopQuery{
		Metric:      enum.MetricMessages,
		Limit:       10,
		CategoryIDs: []uint64{scopedParent},
	})
	require.NoError(t, err)
	assert.Equal(t, []types.TopEntry{{UserID: 3, Value: 1}}, scoped)

	global, err := db.Model().Activity().Top(ctx, types.TopQuery{Metric: enum.MetricMessages, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []types.TopEntry{{UserID: 3, Value: 2}}, global)
}

func TestOnMessageIgnoresBotsAndDirectMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, db := newTracker(t, nil)

	tracker.OnMessage(ctx, platform.Message{GuildID: guildID, ChannelID: general, AuthorID: 4, AuthorBot: true, CreatedAt: sentAt})
	tracker.OnMessage(ctx, platform.Message{ChannelID: general, AuthorID: 5, CreatedAt: sentAt})

	for _, userID := range []uint64{4, 5} {
		_, err := db.Model().User().Get(ctx, userID)
		require.ErrorIs(t, err, types.ErrUserNotFound)
	}
}

func TestOnMessageTrackingToggles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, db := newTracker(t, func(c *config.Config) {
		c.Bot.Tracking.TrackMessages = false
		c.Bot.Tracking.TrackInteractions = false
	})

	tracker.OnMessage(ctx, platform.Message{
		GuildID:   guildID,
		ChannelID: general,
		AuthorID:  1,
		CreatedAt: sentAt,
		Mentions:  []platform.Mention{{UserID: 2}},
	})

	totals, err := db.Model().Activity().Totals(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, totals.Messages)

	pair, err := db.Model().Interaction().GetPair(ctx, 1, 2)
	require.NoError(t, err)
	assert.Nil(t, pair)

	_, err = db.Service().Moment().Get(ctx, 1, enum.MomentTypeFirstMessage)
	require.NoError(t, err)
}

func TestOnMessageContinuesAfterUserWriteFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, db := newTracker(t, nil)

	_, err := db.DB().ExecContext(ctx, "DROP TABLE users")
	require.NoError(t, err)

	tracker.OnMessage(ctx, platform.Message{
		GuildID:   guildID,
		ChannelID: general,
		AuthorID:  1,
		CreatedAt: sentAt,
		Mentions:  []platform.Mention{{UserID: 2}},
	})

	first, err := db.Service().Moment().Get(ctx, 1, enum.MomentTypeFirstMessage)
	require.NoError(t, err)
	assert.Equal(t, types.MessageMeta{ChannelID: general, ChannelName: "general"}, first.Details)

	totals, err := db.Model().Activity().Totals(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.ActivityTotals{Messages: 1, Evening: 1, Weekend: 1}, totals)

	pair, err := db.Model().Interaction().GetPair(ctx, 1, 2)
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, 1, pair.Mentions)
}
