package types

import (
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/uptrace/bun"
)

// ActivityCounters are the increment-only counters shared by the global and
// category-scoped daily activity rows. The bucket columns always sum to
// Messages + VoiceMinutes.
type ActivityCounters struct {
	Messages        int `bun:",notnull,default:0"`
	VoiceMinutes    int `bun:",notnull,default:0"`
	BucketNight     int `bun:",notnull,default:0"`
	BucketMorning   int `bun:",notnull,default:0"`
	BucketAfternoon int `bun:",notnull,default:0"`
	BucketEvening   int `bun:",notnull,default:0"`
	WeekendCount    int `bun:",notnull,default:0"`
}

// SetBucket sets the counter of a single day-part.
func (c *ActivityCounters) SetBucket(b enum.Bucket, n int) {
	switch b {
	case enum.BucketNight:
		c.BucketNight = n
	case enum.BucketMorning:
		c.BucketMorning = n
	case enum.BucketAfternoon:
		c.BucketAfternoon = n
	case enum.BucketEvening:
		c.BucketEvening = n
	}
}

// DailyActivity is a user's activity on one UTC day.
type DailyActivity struct {
	bun.BaseModel `bun:"table:activity_daily,alias:activity_daily"`

	UserID  uint64 `bun:",pk"`
	DateKey string `bun:",pk"`
	ActivityCounters
}

// ScopedDailyActivity is a user's activity on one UTC day within one channel category.
type ScopedDailyActivity struct {
	bun.BaseModel `bun:"table:activity_scoped_daily,alias:activity_scoped_daily"`

	UserID     uint64 `bun:",pk"`
	DateKey    string `bun:",pk"`
	CategoryID uint64 `bun:",pk"`
	ActivityCounters
}

// ActivityTotals are a user's counters summed over every day.
type ActivityTotals struct {
	Messages     int `bun:"messages"`
	VoiceMinutes int `bun:"voice_minutes"`
	Night        int `bun:"night"`
	Morning      int `bun:"morning"`
	Afternoon    int `bun:"afternoon"`
	Evening      int `bun:"evening"`
	Weekend      int `bun:"weekend"`
}

// BucketTotal returns the sum of all day-part counters.
func (t ActivityTotals) BucketTotal() int {
	return t.Night + t.Morning + t.Afternoon + t.Evening
}

// Bucket returns the counter of a single day-part.
func (t ActivityTotals) Bucket(b enum.Bucket) int {
	switch b {
	case enum.BucketNight:
		return t.Night
	case enum.BucketMorning:
		return t.Morning
	case enum.BucketAfternoon:
		return t.Afternoon
	case enum.BucketEvening:
		return t.Evening
	}
	return 0
}

// UserTotals pairs a user with their all-time totals.
type UserTotals struct {
	UserID uint64 `bun:"user_id"`
	ActivityTotals
}

// PeriodTotals are server-wide totals over a date range.
type PeriodTotals struct {
	Messages     int `bun:"messages"`
	VoiceMinutes int `bun:"voice_minutes"`
}

// TopQuery selects a leaderboard.
type TopQuery struct {
	Metric enum.Metric
	Limit  int
	// CategoryIDs restricts the query to the scoped table and these
	// categories. Empty means the global table.
	CategoryIDs []uint64
	// From and To bound the day keys as [From, To). Either may be empty.
	From string
	To   string
}

// TopEntry is one leaderboard row.
type TopEntry struct {
	UserID uint64 `bun:"user_id"`
	Value  int    `bun:"value"`
}
