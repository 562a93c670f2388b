// Package bucket maps instants to UTC calendar days and day-parts, and splits
// time intervals along those boundaries.
package bucket

import (
	"time"

	"github.com/lunalog/lunalog/internal/database/types/enum"
)

// DateKeyLayout is the layout of calendar day keys.
const DateKeyLayout = "2006-01-02"

// boundaryHours are the UTC hours at which a new day-part begins, ending with midnight.
var boundaryHours = [...]int{5, 12, 18, 24} //nolint:gochecknoglobals // -

// Segment is the part of an interval that falls inside a single UTC day and day-part.
type Segment struct {
	DateKey string
	Bucket  enum.Bucket
	// Total is the number of whole minutes in the segment.
	Total int
	// Weekend equals Total on Saturdays and Sundays, zero otherwise.
	Weekend int
	// Buckets holds the minutes per day-part, indexed by enum.Bucket.
	Buckets [enum.BucketCount]int
}

// DateKey returns the UTC calendar date of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key as midnight UTC.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(DateKeyLayout, key, time.UTC)
}

// IsWeekend reports whether t falls on a Saturday or Sunday in UTC.
func IsWeekend(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return true
	case time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday:
		return false
	}
	return false
}

// Of returns the day-part of t in UTC.
func Of(t time.Time) enum.Bucket {
	h := t.UTC().Hour()
	switch {
	case h < 5:
		return enum.BucketNight
	case h < 12:
		return enum.BucketMorning
	case h < 18:
		return enum.BucketAfternoon
	default:
		return enum.BucketEvening
	}
}

// SplitInterval truncates [start, end) to whole minutes and cuts it at UTC
// midnight and at every day-part boundary. Segments are returned in
// chronological order, and only segments with a positive duration are kept.
// An empty interval yields no segments.
func SplitInterval(start, end time.Time) []Segment {
	start = start.UTC().Truncate(time.Minute)
	end = end.UTC().Truncate(time.Minute)

	if !end.After(start) {
		return nil
	}

	var segments []Segment

	for cur := start; cur.Before(end); {
		next := nextBoundary(cur)
		if next.After(end) {
			next = end
		}

		minutes := int(next.Sub(cur) / time.Minute)
		if minutes > 0 {
			b := Of(cur)
			seg := Segment{
				DateKey: DateKey(cur),
				Bucket:  b,
				Total:   minutes,
			}
			seg.Buckets[b] = minutes

			if IsWeekend(cur) {
				seg.Weekend = minutes
			}

			segments = append(segments, seg)
		}

		cur = next
	}

	return segments
}

// nextBoundary returns the first day-part boundary strictly after t.
func nextBoundary(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	for _, h := range boundaryHours {
		if b := day.Add(time.Duration(h) * time.Hour); b.After(t) {
			return b
		}
	}
	return day.AddDate(0, 0, 1)
}
