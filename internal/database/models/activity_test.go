package models_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lunalog/lunalog/internal/database/dbtest"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/tracker/bucket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityConcurrentIncrements(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	activity := dbtest.New(t).Model().Activity()

	const workers, perWorker = 10, 5

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				assert.NoError(t, activity.AddMessage(ctx, 1, "2025-03-01", enum.BucketNight, true))
			}
		}()
	}
	wg.Wait()

	totals, err := activity.Totals(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, workers*perWorker, totals.Messages)
	assert.Equal(t, workers*perWorker, totals.Night)
	assert.Equal(t, workers*perWorker, totals.Weekend)
	assert.Equal(t, totals.Messages+totals.VoiceMinutes, totals.BucketTotal())
}

func TestActivityVoiceSegments(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	activity := dbtest.New(t).Model().Activity()

	// Saturday 23:30 to Sunday 00:30
	start := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	segments := bucket.SplitInterval(start, start.Add(time.Hour))
	require.Len(t, segments, 2)

	for _, seg := range segments {
		require.NoError(t, activity.AddVoice(ctx, 5, seg))
	}
	require.NoError(t, activity.AddMessage(ctx, 5, "2025-03-03", enum.BucketMorning, false))

	totals, err := activity.Totals(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, types.ActivityTotals{
		Messages:     1,
		VoiceMinutes: 60,
		Night:        30,
		Morning:      1,
		Evening:      30,
		Weekend:      60,
	}, totals)
}

func TestActivityTotalsEmpty(t *testing.T) {
	t.Parallel()

	totals, err := dbtest.New(t).Model().Activity().Totals(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, types.ActivityTotals{}, totals)
}

func TestActivityTopIsMonotonic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	activity := dbtest.New(t).Model().Activity()

	const k = 6
	for i := range k {
		require.NoError(t, activity.AddMessage(ctx, 10, "2025-03-01", enum.BucketMorning, false))

		top, err := activity.Top(ctx, types.TopQuery{Metric: enum.MetricMessages, Limit: 5})
		require.NoError(t, err)
		require.Len(t, top, 1)
		assert.Equal(t, i+1, top[0].Value)
	}

	for range k - 1 {
		require.NoError(t, activity.AddMessage(ctx, 20, "2025-03-02", enum.BucketEvening, false))
	}

	top, err := activity.Top(ctx, types.TopQuery{Metric: enum.MetricMessages, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []types.TopEntry{{UserID: 10, Value: k}, {UserID: 20, Value: k - 1}}, top)

	night, err := activity.Top(ctx, types.TopQuery{Metric: enum.MetricNight, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, night)
}

func TestActivityScopedTop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	activity := dbtest.New(t).Model().Activity()

	add := func(userID uint64, day string, category uint64, n int) {
		for range n {
			require.NoError(t, activity.AddScopedMessage(ctx, userID, day, category, enum.BucketAfternoon, false))
		}
	}

	add(1, "2025-03-01", 100, 5) // before range
	add(1, "2025-03-02", 100, 2)
	add(2, "2025-03-03", 200, 3)
	add(3, "2025-03-03", 300, 9) // category not allowed
	add(2, "2025-03-04", 100, 4) // end is exclusive

	top, err := activity.Top(ctx, types.TopQuery{
		Metric:      enum.MetricMessages,
		Limit:       10,
		CategoryIDs: []uint64{100, 200},
		From:        "2025-03-02",
		To:          "2025-03-04",
	})
	require.NoError(t, err)
	assert.Equal(t, []types.TopEntry{{UserID: 2, Value: 3}, {UserID: 1, Value: 2}}, top)

	global, err := activity.Top(ctx, types.TopQuery{Metric: enum.MetricMessages, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, global)

	period, err := activity.TotalsBetween(ctx, "2025-03-02", "2025-03-04", []uint64{100, 200})
	require.NoError(t, err)
	assert.Equal(t, types.PeriodTotals{Messages: 5}, period)
}

func TestActivityTopRejectsUnknownMetric(t *testing.T) {
	t.Parallel()

	_, err := dbtest.New(t).Model().Activity().Top(context.Background(), types.TopQuery{Metric: "likes"})
	require.Error(t, err)
}

func TestActivityTotalsByUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	activity := dbtest.New(t).Model().Activity()

	require.NoError(t, activity.AddMessage(ctx, 2, "2025-03-01", enum.BucketNight, false))
	require.NoError(t, activity.AddMessage(ctx, 1, "2025-03-01", enum.BucketMorning, false))
	require.NoError(t, activity.AddMessage(ctx, 1, "2025-03-02", enum.BucketMorning, false))

	totals, err := activity.TotalsByUser(ctx)
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, uint64(1), totals[0].UserID)
	assert.Equal(t, 2, totals[0].Morning)
	assert.Equal(t, uint64(2), totals[1].UserID)
	assert.Equal(t, 1, totals[1].Night)
}
