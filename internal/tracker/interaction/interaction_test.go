package interaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunalog/lunalog/internal/database/dbtest"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/tracker/interaction"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fetcher map[uint64]*platform.MessageRef

func (f fetcher) FetchMessage(_ context.Context, _, messageID uint64) (*platform.MessageRef, error) {
	ref, ok := f[messageID]
	if !ok {
		return nil, errors.New("unknown message")
	}
	return ref, nil
}

var sentAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture

func TestTrackReplyAndMentions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := dbtest.New(t)
	tracker := interaction.New(db, fetcher{500: {ID: 500, AuthorID: 4}}, zap.NewNop())

	candidate, ok := tracker.Track(ctx, platform.Message{
		ID:        1,
		GuildID:   9,
		ChannelID: 10,
		AuthorID:  1,
		CreatedAt: sentAt,
		Reference: &platform.Reference{MessageID: 500},
		Mentions: []platform.Mention{
			{UserID: 2},
			{UserID: 3},
			{UserID: 2},
			{UserID: 1},
			{UserID: 99, Bot: true},
		},
	})
	require.True(t, ok)
	assert.Equal(t, interaction.Candidate{OtherUserID: 4, Via: enum.ConnectionViaReply}, candidate)

	interactions := db.Model().Interaction()

	reply, err := interactions.GetPair(ctx, 1, 4)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.Equal(t, 1, reply.Replies)
	assert.Equal(t, 0, reply.Mentions)

	for _, other := range []uint64{2, 3} {
		pair, err := interactions.GetPair(ctx, 1, other)
		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.Equal(t, 1, pair.Mentions)
		assert.Equal(t, 0, pair.Replies)
	}

	for _, other := range []uint64{1, 99} {
		pair, err := interactions.GetPair(ctx, 1, other)
		require.NoError(t, err)
		assert.Nil(t, pair)
	}
}

func TestTrackFirstMentionIsCandidate(t *testing.T) {
	t.Parallel()

	tracker := interaction.New(dbtest.New(t), nil, zap.NewNop())

	candidate, ok := tracker.Track(context.Background(), platform.Message{
		AuthorID:  1,
		CreatedAt: sentAt,
		Mentions:  []platform.Mention{{UserID: 5, Bot: true}, {UserID: 3}, {UserID: 2}},
	})
	require.True(t, ok)
	assert.Equal(t, interaction.Candidate{OtherUserID: 3, Via: enum.ConnectionViaMention}, candidate)
}

func TestTrackIgnoresSelfAndBotReplies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker := interaction.New(dbtest.New(t), fetcher{}, zap.NewNop())

	tests := []struct {
		name string
		msg  platform.Message
	}{
		{
			name: "self reply",
			msg:  platform.Message{AuthorID: 1, Referenced: &platform.MessageRef{AuthorID: 1}},
		},
		{
			name: "bot reply",
			msg:  platform.Message{AuthorID: 1, Referenced: &platform.MessageRef{AuthorID: 2, AuthorBot: true}},
		},
		{
			name: "fetch failure",
			msg:  platform.Message{AuthorID: 1, Reference: &platform.Reference{MessageID: 404}},
		},
		{
			name: "nothing",
			msg:  platform.Message{AuthorID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.msg.CreatedAt = sentAt
			_, ok := tracker.Track(ctx, tt.msg)
			assert.False(t, ok)
		})
	}
}
