package types_test

import (
	"testing"

	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMomentMetaRejectsMismatchedVariant(t *testing.T) {
	t.Parallel()

	_, err := types.EncodeMomentMeta(enum.MomentTypeFirstVC, types.MessageMeta{ChannelID: 1})
	require.ErrorIs(t, err, types.ErrMetaTypeMismatch)

	raw, err := types.EncodeMomentMeta(enum.MomentTypeJoined, nil)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestDecodeMomentMeta(t *testing.T) {
	t.Parallel()

	raw, err := types.EncodeMomentMeta(enum.MomentTypeFirstConnection, types.ConnectionMeta{
		OtherUserID: 1234567890123456789,
		Via:         enum.ConnectionViaReply,
		ChannelID:   42,
	})
	require.NoError(t, err)
	assert.Contains(t, raw, `"otherUserId":"1234567890123456789"`)

	meta := types.DecodeMomentMeta(enum.MomentTypeFirstConnection, raw)
	require.IsType(t, types.ConnectionMeta{}, meta)
	assert.Equal(t, uint64(1234567890123456789), meta.(types.ConnectionMeta).OtherUserID)

	assert.Nil(t, types.DecodeMomentMeta(enum.MomentTypeFirstVC, "{not json"))
	assert.Nil(t, types.DecodeMomentMeta(enum.MomentTypeFirstVC, ""))
	assert.Nil(t, types.DecodeMomentMeta(enum.MomentType("UNKNOWN"), `{"text":"x"}`))
}

func TestParseVibeScores(t *testing.T) {
	t.Parallel()

	scores := types.ParseVibeScores(`{"chat":2.9,"game":-3,"music":4}`)
	assert.Equal(t, types.VibeScores{"chat": 2, "music": 4}, scores)

	assert.Empty(t, types.ParseVibeScores("[1,2"))
	assert.Empty(t, types.ParseVibeScores(""))

	next := scores.Add(map[string]int{"chat": 1, "movie": 1})
	assert.Equal(t, types.VibeScores{"chat": 3, "music": 4, "movie": 1}, next)
	assert.Equal(t, 2, scores["chat"], "Add must not mutate the receiver")
}

func TestParseChosenVibes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"game", "music"}, types.ParseChosenVibes(`["game","","music","game"]`))
	assert.Nil(t, types.ParseChosenVibes(`{"chat":1}`))
	assert.Nil(t, types.ParseChosenVibes(""))
	assert.Empty(t, types.ParseChosenVibes(`[]`))
}
