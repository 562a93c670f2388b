package models

import (
	"context"
	"fmt"

	"github.com/lunalog/lunalog/internal/database/dbretry"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/tracker/bucket"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// counterColumns are incremented in place on conflict.
var counterColumns = []string{ //nolint:gochecknoglobals // -
	"messages",
	"voice_minutes",
	"bucket_night",
	"bucket_morning",
	"bucket_afternoon",
	"bucket_evening",
	"weekend_count",
}

// ActivityModel handles the global and category-scoped daily counters.
type ActivityModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewActivity creates an ActivityModel.
func NewActivity(db *bun.DB, logger *zap.Logger) *ActivityModel {
	return &ActivityModel{
		db:     db,
		logger: logger.Named("db_activity"),
	}
}

// AddMessage counts one message for the user's day.
func (r *ActivityModel) AddMessage(
	ctx context.Context, userID uint64, dateKey string, b enum.Bucket, weekend bool,
) error {
	row := &types.DailyActivity{
		UserID:           userID,
		DateKey:          dateKey,
		ActivityCounters: messageCounters(b, weekend),
	}
	return r.increment(ctx, row, "user_id, date_key")
}

// AddScopedMessage counts one message for the user's day within a category.
func (r *ActivityModel) AddScopedMessage(
	ctx context.Context, userID uint64, dateKey string, categoryID uint64, b enum.Bucket, weekend bool,
) error {
	row := &types.ScopedDailyActivity{
		UserID:           userID,
		DateKey:          dateKey,
		CategoryID:       categoryID,
		ActivityCounters: messageCounters(b, weekend),
	}
	return r.increment(ctx, row, "user_id, date_key, category_id")
}

// AddVoice adds the minutes of one voice segment to the user's day.
func (r *ActivityModel) AddVoice(ctx context.Context, userID uint64, seg bucket.Segment) error {
	if seg.Total <= 0 {
		return nil
	}
	row := &types.DailyActivity{
		UserID:           userID,
		DateKey:          seg.DateKey,
		ActivityCounters: voiceCounters(seg),
	}
	return r.increment(ctx, row, "user_id, date_key")
}

// AddScopedVoice adds the minutes of one voice segment to the user's day within a category.
func (r *ActivityModel) AddScopedVoice(
	ctx context.Context, userID uint64, categoryID uint64, seg bucket.Segment,
) error {
	if seg.Total <= 0 {
		return nil
	}
	row := &types.ScopedDailyActivity{
		UserID:           userID,
		DateKey:          seg.DateKey,
		CategoryID:       categoryID,
		ActivityCounters: voiceCounters(seg),
	}
	return r.increment(ctx, row, "user_id, date_key, category_id")
}

// increment inserts the row or adds its counters to the existing one in a
// single statement.
func (r *ActivityModel) increment(ctx context.Context, model any, conflict string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := r.db.NewInsert().
			Model(model).
			On("CONFLICT (" + conflict + ") DO UPDATE")
		for _, column := range counterColumns {
			query = query.Set("? = ?TableAlias.? + EXCLUDED.?",
				bun.Ident(column), bun.Ident(column), bun.Ident(column))
		}

		if _, err := query.Exec(ctx); err != nil {
			return fmt.Errorf("failed to increment activity: %w", err)
		}
		return nil
	})
}

// Totals sums the user's global counters over every day.
func (r *ActivityModel) Totals(ctx context.Context, userID uint64) (types.ActivityTotals, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (types.ActivityTotals, error) {
		var totals types.ActivityTotals
		err := r.db.NewSelect().
			Model((*types.DailyActivity)(nil)).
			ColumnExpr("COALESCE(SUM(messages), 0) AS messages").
			ColumnExpr("COALESCE(SUM(voice_minutes), 0) AS voice_minutes").
			ColumnExpr("COALESCE(SUM(bucket_night), 0) AS night").
			ColumnExpr("COALESCE(SUM(bucket_morning), 0) AS morning").
			ColumnExpr("COALESCE(SUM(bucket_afternoon), 0) AS afternoon").
			ColumnExpr("COALESCE(SUM(bucket_evening), 0) AS evening").
			ColumnExpr("COALESCE(SUM(weekend_count), 0) AS weekend").
			Where("user_id = ?", userID).
			Scan(ctx, &totals)
		if err != nil {
			return types.ActivityTotals{}, fmt.Errorf("failed to get activity totals: %w", err)
		}
		return totals, nil
	})
}

// TotalsByUser returns the all-time global totals of every user with activity.
func (r *ActivityModel) TotalsByUser(ctx context.Context) ([]types.UserTotals, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.UserTotals, error) {
		var totals []types.UserTotals
		err := r.db.NewSelect().
			Model((*types.DailyActivity)(nil)).
			Column("user_id").
			ColumnExpr("SUM(messages) AS messages").
			ColumnExpr("SUM(voice_minutes) AS voice_minutes").
			ColumnExpr("SUM(bucket_night) AS night").
			ColumnExpr("SUM(bucket_morning) AS morning").
			ColumnExpr("SUM(bucket_afternoon) AS afternoon").
			ColumnExpr("SUM(bucket_evening) AS evening").
			ColumnExpr("SUM(weekend_count) AS weekend").
			Group("user_id").
			Order("user_id ASC").
			Scan(ctx, &totals)
		if err != nil {
			return nil, fmt.Errorf("failed to get totals by user: %w", err)
		}
		return totals, nil
	})
}

// Top ranks users by the query's metric. Users whose value is zero are omitted.
func (r *ActivityModel) Top(ctx context.Context, q types.TopQuery) ([]types.TopEntry, error) {
	column, err := metricColumn(q.Metric)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	return dbretry.Operation(ctx, func(ctx context.Context) ([]types.TopEntry, error) {
		query := r.rangeQuery(q.CategoryIDs, q.From, q.To).
			Column("user_id").
			ColumnExpr("SUM(?) AS value", bun.Ident(column)).
			Group("user_id").
			Having("SUM(?) > 0", bun.Ident(column)).
			OrderExpr("value DESC, user_id ASC").
			Limit(limit)

		var entries []types.TopEntry
		if err := query.Scan(ctx, &entries); err != nil {
			return nil, fmt.Errorf("failed to get top %s: %w", q.Metric, err)
		}
		return entries, nil
	})
}

// TotalsBetween sums message and voice counters over [from, to).
func (r *ActivityModel) TotalsBetween(
	ctx context.Context, from, to string, categoryIDs []uint64,
) (types.PeriodTotals, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (types.PeriodTotals, error) {
		var totals types.PeriodTotals
		err := r.rangeQuery(categoryIDs, from, to).
			ColumnExpr("COALESCE(SUM(messages), 0) AS messages").
			ColumnExpr("COALESCE(SUM(voice_minutes), 0) AS voice_minutes").
			Scan(ctx, &totals)
		if err != nil {
			return types.PeriodTotals{}, fmt.Errorf("failed to get period totals: %w", err)
		}
		return totals, nil
	})
}

// rangeQuery selects from the global table, or from the scoped table limited
// to categoryIDs when any are given, bounded to day keys in [from, to).
func (r *ActivityModel) rangeQuery(categoryIDs []uint64, from, to string) *bun.SelectQuery {
	var query *bun.SelectQuery
	if len(categoryIDs) > 0 {
		query = r.db.NewSelect().
			Model((*types.ScopedDailyActivity)(nil)).
			Where("category_id IN (?)", bun.In(categoryIDs))
	} else {
		query = r.db.NewSelect().Model((*types.DailyActivity)(nil))
	}

	if from != "" {
		query = query.Where("date_key >= ?", from)
	}
	if to != "" {
		query = query.Where("date_key < ?", to)
	}
	return query
}

func messageCounters(b enum.Bucket, weekend bool) types.ActivityCounters {
	counters := types.ActivityCounters{Messages: 1}
	counters.SetBucket(b, 1)
	if weekend {
		counters.WeekendCount = 1
	}
	return counters
}

func voiceCounters(seg bucket.Segment) types.ActivityCounters {
	counters := types.ActivityCounters{
		VoiceMinutes: seg.Total,
		WeekendCount: seg.Weekend,
	}
	for _, b := range enum.BucketValues() {
		counters.SetBucket(b, seg.Buckets[b])
	}
	return counters
}

func metricColumn(metric enum.Metric) (string, error) {
	switch metric {
	case enum.MetricMessages:
		return "messages", nil
	case enum.MetricVoice:
		return "voice_minutes", nil
	case enum.MetricNight:
		return "bucket_night", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
}
