package bucket_test

import (
	"testing"
	"time"

	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/tracker/bucket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDateKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2024-03-09", bucket.DateKey(at("2024-03-09T23:59:59Z")))
	// 01:30 at +02:00 is still the previous day in UTC
	assert.Equal(t, "2024-03-08", bucket.DateKey(at("2024-03-09T01:30:00+02:00")))

	parsed, err := bucket.ParseDateKey("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, at("2024-03-09T00:00:00Z"), parsed)
}

func TestIsWeekend(t *testing.T) {
	t.Parallel()

	assert.True(t, bucket.IsWeekend(at("2024-03-09T12:00:00Z")))  // Saturday
	assert.True(t, bucket.IsWeekend(at("2024-03-10T23:59:00Z")))  // Sunday
	assert.False(t, bucket.IsWeekend(at("2024-03-11T00:00:00Z"))) // Monday
	assert.False(t, bucket.IsWeekend(at("2024-03-08T23:00:00Z"))) // Friday
}

func TestOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want enum.Bucket
	}{
		{"2024-03-11T00:00:00Z", enum.BucketNight},
		{"2024-03-11T04:59:59Z", enum.BucketNight},
		{"2024-03-11T05:00:00Z", enum.BucketMorning},
		{"2024-03-11T11:59:00Z", enum.BucketMorning},
		{"2024-03-11T12:00:00Z", enum.BucketAfternoon},
		{"2024-03-11T17:59:00Z", enum.BucketAfternoon},
		{"2024-03-11T18:00:00Z", enum.BucketEvening},
		{"2024-03-11T23:59:59Z", enum.BucketEvening},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, bucket.Of(at(tt.in)))
		})
	}
}

func TestSplitInterval(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start string
		end   string
		want  []bucket.Segment
	}{
		{
			name:  "inside one bucket",
			start: "2024-03-11T10:00:00Z",
			end:   "2024-03-11T10:07:30Z",
			want: []bucket.Segment{
				{DateKey: "2024-03-11", Bucket: enum.BucketMorning, Total: 7, Buckets: [4]int{0, 7, 0, 0}},
			},
		},
		{
			name:  "crosses midnight",
			start: "2024-03-11T23:30:00Z",
			end:   "2024-03-12T00:30:00Z",
			want: []bucket.Segment{
				{DateKey: "2024-03-11", Bucket: enum.BucketEvening, Total: 30, Buckets: [4]int{0, 0, 0, 30}},
				{DateKey: "2024-03-12", Bucket: enum.BucketNight, Total: 30, Buckets: [4]int{30, 0, 0, 0}},
			},
		},
		{
			name:  "crosses a bucket boundary",
			start: "2024-03-11T04:50:00Z",
			end:   "2024-03-11T05:10:00Z",
			want: []bucket.Segment{
				{DateKey: "2024-03-11", Bucket: enum.BucketNight, Total: 10, Buckets: [4]int{10, 0, 0, 0}},
				{DateKey: "2024-03-11", Bucket: enum.BucketMorning, Total: 10, Buckets: [4]int{0, 10, 0, 0}},
			},
		},
		{
			name:  "friday into saturday counts weekend minutes",
			start: "2024-03-08T23:00:00Z",
			end:   "2024-03-09T01:00:00Z",
			want: []bucket.Segment{
				{DateKey: "2024-03-08", Bucket: enum.BucketEvening, Total: 60, Buckets: [4]int{0, 0, 0, 60}},
				{DateKey: "2024-03-09", Bucket: enum.BucketNight, Total: 60, Weekend: 60, Buckets: [4]int{60, 0, 0, 0}},
			},
		},
		{
			name:  "seconds are truncated on both ends",
			start: "2024-03-11T12:00:59Z",
			end:   "2024-03-11T12:02:01Z",
			want: []bucket.Segment{
				{DateKey: "2024-03-11", Bucket: enum.BucketAfternoon, Total: 2, Buckets: [4]int{0, 0, 2, 0}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, bucket.SplitInterval(at(tt.start), at(tt.end)))
		})
	}
}

func TestSplitIntervalEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, bucket.SplitInterval(at("2024-03-11T10:00:00Z"), at("2024-03-11T10:00:59Z")))
	assert.Empty(t, bucket.SplitInterval(at("2024-03-11T10:00:00Z"), at("2024-03-11T10:00:00Z")))
	assert.Empty(t, bucket.SplitInterval(at("2024-03-11T11:00:00Z"), at("2024-03-11T10:00:00Z")))
}

func TestSplitIntervalTotalsMatchElapsed(t *testing.T) {
	t.Parallel()

	start := at("2024-03-08T03:17:00Z")
	for _, hours := range []int{1, 5, 13, 26, 49, 100} {
		end := start.Add(time.Duration(hours)*time.Hour + 7*time.Minute)
		segments := bucket.SplitInterval(start, end)

		total := 0
		for _, seg := range segments {
			require.Positive(t, seg.Total)
			assert.Equal(t, seg.Total, seg.Buckets[seg.Bucket])
			total += seg.Total
		}
		assert.Equal(t, hours*60+7, total)
	}
}
