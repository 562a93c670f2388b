// Package recap assembles the weekly activity recap and records which weeks
// have already been published.
package recap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/lunalog/lunalog/internal/tracker/bucket"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// MaxHighlightRunes bounds the length of a highlight's text.
	MaxHighlightRunes = 80
	// DefaultHighlightText is used for notes without a title or text.
	DefaultHighlightText = "Saved a moment"
	// LockKeyPrefix identifies recap publishing locks in Redis.
	LockKeyPrefix = "recap:lock:"
	// LockTTL bounds how long a crashed publisher can block a week.
	LockTTL = 10 * time.Minute
)

var ErrRecapDisabled = errors.New("weekly recap is disabled")

// Window is the seven UTC days ending today. Day keys compare as [Start, EndExclusive).
type Window struct {
	Start        string
	End          string
	EndExclusive string
}

// WindowFor returns the recap window that ends on now's UTC day.
func WindowFor(now time.Time) Window {
	end := now.UTC().Truncate(24 * time.Hour)
	return Window{
		Start:        bucket.DateKey(end.AddDate(0, 0, -6)),
		End:          bucket.DateKey(end),
		EndExclusive: bucket.DateKey(end.AddDate(0, 0, 1)),
	}
}

// Bounds returns the window as instants, for querying timestamped rows.
func (w Window) Bounds() (time.Time, time.Time, error) {
	from, err := bucket.ParseDateKey(w.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := bucket.ParseDateKey(w.EndExclusive)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// Highlight is a note shown in the recap.
type Highlight struct {
	UserID uint64
	Text   string
}

// Data is everything a weekly recap shows.
type Data struct {
	Window     Window
	TopChat    []types.TopEntry
	TopVoice   []types.TopEntry
	Totals     types.PeriodTotals
	NotesCount int
	Highlights []Highlight
	// IncludeMoments reports whether NotesCount and Highlights were collected.
	IncludeMoments bool
}

// Published identifies where a recap was posted.
type Published struct {
	ChannelID uint64
	MessageID uint64
}

// PublishFunc delivers a recap. Rendering is up to the caller.
type PublishFunc func(ctx context.Context, data *Data) (Published, error)

// Builder queries recap data and guards publication.
type Builder struct {
	db     database.Client
	lock   rueidis.Client
	cfg    config.Recap
	scoped config.Scoped
	logger *zap.Logger
}

// New creates a recap builder. The lock client may be nil when only one
// instance runs.
func New(db database.Client, lock rueidis.Client, cfg *config.BotConfig, logger *zap.Logger) *Builder {
	return &Builder{
		db:     db,
		lock:   lock,
		cfg:    cfg.Recap,
		scoped: cfg.Scoped,
		logger: logger.Named("recap"),
	}
}

// Build collects the recap for the window ending on now's UTC day.
func (b *Builder) Build(ctx context.Context, now time.Time) (*Data, error) {
	window := WindowFor(now)
	data := &Data{Window: window, IncludeMoments: b.cfg.IncludeMoments}

	activity := b.db.Model().Activity()

	var err error
	data.TopChat, err = activity.Top(ctx, types.TopQuery{
		Metric:      enum.MetricMessages,
		Limit:       b.cfg.TopN,
		CategoryIDs: b.scoped.MessageCategoryIDs,
		From:        window.Start,
		To:          window.EndExclusive,
	})
	if err != nil {
		return nil, err
	}

	data.TopVoice, err = activity.Top(ctx, types.TopQuery{
		Metric:      enum.MetricVoice,
		Limit:       b.cfg.TopN,
		CategoryIDs: b.scoped.VoiceCategoryIDs,
		From:        window.Start,
		To:          window.EndExclusive,
	})
	if err != nil {
		return nil, err
	}

	data.Totals, err = activity.TotalsBetween(ctx, window.Start, window.EndExclusive, nil)
	if err != nil {
		return nil, err
	}

	if !b.cfg.IncludeMoments {
		return data, nil
	}

	from, to, err := window.Bounds()
	if err != nil {
		return nil, err
	}

	moments := b.db.Model().Moment()
	if data.NotesCount, err = moments.CountNotesBetween(ctx, from, to); err != nil {
		return nil, err
	}

	if b.cfg.Highlights > 0 {
		notes, err := moments.NotesBetween(ctx, from, to, b.cfg.Highlights)
		if err != nil {
			return nil, err
		}
		for _, note := range notes {
			data.Highlights = append(data.Highlights, Highlight{
				UserID: note.UserID,
				Text:   HighlightText(note),
			})
		}
	}

	return data, nil
}

// Run publishes this week's recap unless it was already published. It
// reports whether a recap was published.
func (b *Builder) Run(ctx context.Context, now time.Time, publish PublishFunc) (bool, error) {
	if !b.cfg.Enabled {
		return false, ErrRecapDisabled
	}

	window := WindowFor(now)

	done, err := b.db.Model().Recap().HasRun(ctx, window.Start)
	if err != nil {
		return false, err
	}
	if done {
		b.logger.Info("Weekly recap skipped (already posted)", zap.String("weekStart", window.Start))
		return false, nil
	}

	acquired, err := b.acquire(ctx, window.Start)
	if err != nil {
		return false, err
	}
	if !acquired {
		b.logger.Info("Weekly recap skipped (another instance is posting)", zap.String("weekStart", window.Start))
		return false, nil
	}

	data, err := b.Build(ctx, now)
	if err != nil {
		return false, fmt.Errorf("failed to build weekly recap: %w", err)
	}

	published, err := publish(ctx, data)
	if err != nil {
		return false, fmt.Errorf("failed to publish weekly recap: %w", err)
	}

	if err := b.db.Model().Recap().MarkRun(ctx, &types.RecapRun{
		WeekStart: window.Start,
		PostedAt:  time.Now(),
		ChannelID: published.ChannelID,
		MessageID: published.MessageID,
	}); err != nil {
		return true, err
	}

	b.logger.Info("Weekly recap posted",
		zap.String("weekStart", window.Start),
		zap.Uint64("channelID", published.ChannelID),
		zap.Uint64("messageID", published.MessageID))

	return true, nil
}

func (b *Builder) acquire(ctx context.Context, weekStart string) (bool, error) {
	if b.lock == nil {
		return true, nil
	}

	err := b.lock.Do(ctx, b.lock.B().Set().
		Key(LockKeyPrefix+weekStart).
		Value(time.Now().UTC().Format(time.RFC3339)).
		Nx().
		Ex(LockTTL).
		Build()).Error()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire recap lock: %w", err)
	}
	return true, nil
}

// HighlightText picks a note's title, then its text, and truncates the result.
func HighlightText(note *types.Moment) string {
	text := DefaultHighlightText
	if meta, ok := note.Details.(types.NoteMeta); ok {
		if title := strings.TrimSpace(meta.Title); title != "" {
			text = title
		} else if body := strings.TrimSpace(meta.Text); body != "" {
			text = body
		}
	}
	return Truncate(text, MaxHighlightRunes)
}

// Truncate shortens s to at most n runes, ending it with "..." when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:max(n, 0)])
	}
	return string(runes[:n-3]) + "..."
}
