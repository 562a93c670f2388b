package bot_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lunalog/lunalog/internal/bot"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type creatorStore struct {
	mu      sync.Mutex
	rows    map[uint64]*types.ChannelOwnership
	failing bool
}

func newCreatorStore() *creatorStore {
	return &creatorStore{rows: make(map[uint64]*types.ChannelOwnership)}
}

func (s *creatorStore) GetCreator(_ context.Context, channelID uint64) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[channelID]
	if !ok {
		return 0, false, nil
	}
	return row.CreatorUserID, true, nil
}

func (s *creatorStore) Upsert(_ context.Context, ownership *types.ChannelOwnership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return errors.New("store unavailable")
	}
	s.rows[ownership.ChannelID] = ownership
	return nil
}

func TestAuditIndex(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	at := time.Date(2025, 3, 4, 21, 0, 0, 0, time.FixedZone("X", 3600))

	store := newCreatorStore()
	index := bot.NewAuditIndex(store, zap.NewNop())

	_, ok, err := index.ChannelCreator(ctx, 100, 30)
	require.NoError(t, err)
	assert.False(t, ok)

	index.RecordChannelCreate(ctx, 100, 30, 1, 2, at)

	creatorID, ok, err := index.ChannelCreator(ctx, 100, 30)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), creatorID)

	row := store.rows[30]
	require.NotNil(t, row)
	assert.Equal(t, uint64(100), row.GuildID)
	assert.Equal(t, 2, row.ChannelType)
	assert.Equal(t, time.UTC, row.CreatedAt.Location())
	assert.True(t, at.Equal(row.CreatedAt))
}

func TestAuditIndexIgnoresIncompleteEntries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newCreatorStore()
	index := bot.NewAuditIndex(store, zap.NewNop())

	index.RecordChannelCreate(ctx, 100, 0, 1, 0, time.Now())
	index.RecordChannelCreate(ctx, 100, 31, 0, 0, time.Now())

	assert.Empty(t, store.rows)
	_, ok, _ := index.ChannelCreator(ctx, 100, 31)
	assert.False(t, ok)
}

func TestAuditIndexKeepsCreatorWhenStoreFails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newCreatorStore()
	store.failing = true
	index := bot.NewAuditIndex(store, zap.NewNop())

	index.RecordChannelCreate(ctx, 100, 30, 1, 2, time.Now())

	creatorID, ok, err := index.ChannelCreator(ctx, 100, 30)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), creatorID)
	assert.Empty(t, store.rows)
}
