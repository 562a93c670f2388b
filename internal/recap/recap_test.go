package recap_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lunalog/lunalog/internal/database/dbtest"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/recap"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/lunalog/lunalog/internal/tracker/bucket"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var sunday = time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC)

func TestWindowFor(t *testing.T) {
	t.Parallel()

	w := recap.WindowFor(sunday)
	assert.Equal(t, recap.Window{Start: "2025-03-03", End: "2025-03-09", EndExclusive: "2025-03-10"}, w)

	// Month and year boundaries.
	w = recap.WindowFor(time.Date(2025, 1, 2, 1, 0, 0, 0, time.UTC))
	assert.Equal(t, recap.Window{Start: "2024-12-27", End: "2025-01-02", EndExclusive: "2025-01-03"}, w)

	from, to, err := w.Bounds()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 12, 27, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), to)
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", recap.Truncate("short", 80))
	assert.Equal(t, strings.Repeat("a", 80), recap.Truncate(strings.Repeat("a", 80), 80))

	long := strings.Repeat("é", 100)
	got := recap.Truncate(long, 80)
	assert.Equal(t, strings.Repeat("é", 77)+"...", got)

	assert.Equal(t, "ab", recap.Truncate("abcdef", 2))
	assert.Equal(t, "abc", recap.Truncate("abcdef", 3))
	assert.Equal(t, "a...", recap.Truncate("abcdef", 4))
	assert.Empty(t, recap.Truncate("abcdef", 0))
	assert.Empty(t, recap.Truncate("abcdef", -1))
}

func TestHighlightText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		details types.MomentMeta
		want    string
	}{
		{"title wins", types.NoteMeta{Title: " Movie night ", Text: "we watched"}, "Movie night"},
		{"text fallback", types.NoteMeta{Text: " we watched "}, "we watched"},
		{"empty", types.NoteMeta{}, recap.DefaultHighlightText},
		{"missing", nil, recap.DefaultHighlightText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			note := &types.Moment{Type: enum.MomentTypeNote, Details: tt.details}
			assert.Equal(t, tt.want, recap.HighlightText(note))
		})
	}
}

func seed(t *testing.T, cfg *config.Config) *recap.Builder {
	t.Helper()
	return seedWithLock(t, cfg, nil)
}

func seedWithLock(t *testing.T, cfg *config.Config, lock rueidis.Client) *recap.Builder {
	t.Helper()

	db := dbtest.Open(t, cfg)
	ctx := t.Context()
	activity := db.Model().Activity()
	moments := db.Model().Moment()

	// Inside the window.
	for range 3 {
		require.NoError(t, activity.AddMessage(ctx, 1, "2025-03-03", enum.BucketEvening, false))
	}
	require.NoError(t, activity.AddMessage(ctx, 2, "2025-03-09", enum.BucketNight, true))
	require.NoError(t, activity.AddVoice(ctx, 2, bucket.SplitInterval(
		time.Date(2025, 3, 5, 20, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 5, 20, 45, 0, 0, time.UTC),
	)[0]))

	// Outside the window.
	for range 10 {
		require.NoError(t, activity.AddMessage(ctx, 3, "2025-03-02", enum.BucketEvening, false))
		require.NoError(t, activity.AddMessage(ctx, 3, "2025-03-10", enum.BucketEvening, false))
	}

	notes := []*types.Moment{
		{UserID: 1, Details: types.NoteMeta{Title: "old"}, CreatedAt: time.Date(2025, 3, 2, 23, 0, 0, 0, time.UTC)},
		{UserID: 1, Details: types.NoteMeta{Title: "first"}, CreatedAt: time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)},
		{UserID: 2, Details: types.NoteMeta{Text: strings.Repeat("x", 90)}, CreatedAt: time.Date(2025, 3, 6, 12, 0, 0, 0, time.UTC)},
		{UserID: 2, Details: types.NoteMeta{Title: "latest"}, CreatedAt: time.Date(2025, 3, 9, 22, 0, 0, 0, time.UTC)},
	}
	for _, note := range notes {
		note.Type = enum.MomentTypeNote
		require.NoError(t, moments.Insert(ctx, note))
	}

	return recap.New(db, lock, &cfg.Bot, zap.NewNop())
}

func TestBuild(t *testing.T) {
	t.Parallel()

	cfg := dbtest.Config(t)
	builder := seed(t, cfg)

	data, err := builder.Build(t.Context(), sunday)
	require.NoError(t, err)

	assert.Equal(t, []types.TopEntry{{UserID: 1, Value: 3}, {UserID: 2, Value: 1}}, data.TopChat)
	assert.Equal(t, []types.TopEntry{{UserID: 2, Value: 45}}, data.TopVoice)
	assert.Equal(t, types.PeriodTotals{Messages: 4, VoiceMinutes: 45}, data.Totals)

	assert.True(t, data.IncludeMoments)
	assert.Equal(t, 3, data.NotesCount)
	require.Len(t, data.Highlights, 2)
	assert.Equal(t, recap.Highlight{UserID: 2, Text: "latest"}, data.Highlights[0])
	assert.Equal(t, strings.Repeat("x", 77)+"...", data.Highlights[1].Text)
}

func TestBuildWithoutMoments(t *testing.T) {
	t.Parallel()

	cfg := dbtest.Config(t)
	cfg.Bot.Recap.IncludeMoments = false
	builder := seed(t, cfg)

	data, err := builder.Build(t.Context(), sunday)
	require.NoError(t, err)
	assert.False(t, data.IncludeMoments)
	assert.Zero(t, data.NotesCount)
	assert.Empty(t, data.Highlights)
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	cfg := dbtest.Config(t)
	cfg.Bot.Recap.Enabled = true
	builder := seed(t, cfg)
	ctx := t.Context()

	calls := 0
	publish := func(_ context.Context, data *recap.Data) (recap.Published, error) {
		calls++
		assert.Equal(t, "2025-03-03", data.Window.Start)
		return recap.Published{ChannelID: 10, MessageID: 20}, nil
	}

	posted, err := builder.Run(ctx, sunday, publish)
	require.NoError(t, err)
	assert.True(t, posted)

	posted, err = builder.Run(ctx, sunday.Add(-time.Hour), publish)
	require.NoError(t, err)
	assert.False(t, posted)
	assert.Equal(t, 1, calls)

	// The next week runs again.
	posted, err = builder.Run(ctx, sunday.AddDate(0, 0, 7), publish)
	require.NoError(t, err)
	assert.True(t, posted)
	assert.Equal(t, 2, calls)
}

func TestRunPublishFailureIsRetried(t *testing.T) {
	t.Parallel()

	cfg := dbtest.Config(t)
	cfg.Bot.Recap.Enabled = true
	builder := seed(t, cfg)
	ctx := t.Context()

	failed := func(context.Context, *recap.Data) (recap.Published, error) {
		return recap.Published{}, errors.New("channel missing")
	}
	posted, err := builder.Run(ctx, sunday, failed)
	require.Error(t, err)
	assert.False(t, posted)

	posted, err = builder.Run(ctx, sunday, func(context.Context, *recap.Data) (recap.Published, error) {
		return recap.Published{ChannelID: 10}, nil
	})
	require.NoError(t, err)
	assert.True(t, posted)
}

func TestRunDisabled(t *testing.T) {
	t.Parallel()

	cfg := dbtest.Config(t)
	builder := seed(t, cfg)

	_, err := builder.Run(t.Context(), sunday, nil)
	require.ErrorIs(t, err, recap.ErrRecapDisabled)
}

func TestRunLock(t *testing.T) {
	t.Parallel()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	cfg := dbtest.Config(t)
	cfg.Bot.Recap.Enabled = true
	builder := seedWithLock(t, cfg, client)

	require.NoError(t, mr.Set(recap.LockKeyPrefix+"2025-03-03", "other"))

	published := false
	posted, err := builder.Run(t.Context(), sunday, func(context.Context, *recap.Data) (recap.Published, error) {
		published = true
		return recap.Published{}, nil
	})
	require.NoError(t, err)
	assert.False(t, posted)
	assert.False(t, published)
}
