// Package leaderboard ranks users on the chat, voice, night and connection
// boards and caches the results in Redis.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

// KeyPrefix identifies cached boards in Redis.
const KeyPrefix = "leaderboard:"

var ErrUnknownBoard = errors.New("unknown leaderboard")

// Entry is one ranked row. Rank starts at 1.
type Entry struct {
	Rank   int    `json:"rank"`
	UserID uint64 `json:"userId"`
	Value  int    `json:"value"`
}

// Board is a ranked leaderboard.
type Board struct {
	Name    enum.Leaderboard `json:"name"`
	Limit   int              `json:"limit"`
	Entries []Entry          `json:"entries"`
	Cached  bool             `json:"-"`
}

// Service computes leaderboards. The cache client may be nil.
type Service struct {
	db     database.Client
	cache  rueidis.Client
	cfg    config.Leaderboard
	scoped config.Scoped
	logger *zap.Logger
}

// New creates a leaderboard service.
func New(db database.Client, cache rueidis.Client, cfg *config.BotConfig, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		cache:  cache,
		cfg:    cfg.Leaderboard,
		scoped: cfg.Scoped,
		logger: logger.Named("leaderboard"),
	}
}

// ClampLimit returns the default size for a non-positive limit and otherwise
// clamps it to the configured bounds.
func (s *Service) ClampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultSize
	}
	return min(max(limit, s.cfg.MinSize), s.cfg.MaxSize)
}

// Get returns the named board, from the cache when a fresh copy exists.
func (s *Service) Get(ctx context.Context, name enum.Leaderboard, limit int) (*Board, error) {
	if !slices.Contains(enum.Leaderboards, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBoard, name)
	}
	limit = s.ClampLimit(limit)
	key := KeyPrefix + string(name) + ":" + strconv.Itoa(limit)

	if board, ok := s.fromCache(ctx, key); ok {
		return board, nil
	}

	entries, err := s.compute(ctx, name, limit)
	if err != nil {
		return nil, err
	}

	board := &Board{Name: name, Limit: limit, Entries: entries}
	s.store(ctx, key, board)
	return board, nil
}

// Invalidate drops every cached board.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}

	keys := make([]string, 0, len(enum.Leaderboards)*(s.cfg.MaxSize-s.cfg.MinSize+1))
	for _, name := range enum.Leaderboards {
		for limit := s.cfg.MinSize; limit <= s.cfg.MaxSize; limit++ {
			keys = append(keys, KeyPrefix+string(name)+":"+strconv.Itoa(limit))
		}
	}

	if err := s.cache.Do(ctx, s.cache.B().Del().Key(keys...).Build()).Error(); err != nil {
		return fmt.Errorf("failed to invalidate leaderboards: %w", err)
	}
	return nil
}

func (s *Service) compute(ctx context.Context, name enum.Leaderboard, limit int) ([]Entry, error) {
	if name == enum.LeaderboardConnections {
		scores, err := s.db.Model().Interaction().TopUsersByScore(ctx, limit)
		if err != nil {
			return nil, err
		}

		entries := make([]Entry, len(scores))
		for i, score := range scores {
			entries[i] = Entry{Rank: i + 1, UserID: score.UserID, Value: score.Score}
		}
		return entries, nil
	}

	query := types.TopQuery{Limit: limit}
	switch name {
	case enum.LeaderboardChat:
		query.Metric = enum.MetricMessages
		query.CategoryIDs = s.scoped.MessageCategoryIDs
	case enum.LeaderboardVoice:
		query.Metric = enum.MetricVoice
		query.CategoryIDs = s.scoped.VoiceCategoryIDs
	case enum.LeaderboardNight:
		query.Metric = enum.MetricNight
		query.CategoryIDs = s.scoped.MessageCategoryIDs
	}

	rows, err := s.db.Model().Activity().Top(ctx, query)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{Rank: i + 1, UserID: row.UserID, Value: row.Value}
	}
	return entries, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (*Board, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Do(ctx, s.cache.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			s.logger.Warn("Failed to read cached leaderboard", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var board Board
	if err := sonic.Unmarshal(data, &board); err != nil {
		s.logger.Warn("Invalid cached leaderboard", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	board.Cached = true
	return &board, true
}

func (s *Service) store(ctx context.Context, key string, board *Board) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}

	data, err := sonic.Marshal(board)
	if err != nil {
		s.logger.Warn("Failed to encode leaderboard", zap.String("key", key), zap.Error(err))
		return
	}

	ttl := time.Duration(s.cfg.CacheTTL) * time.Second
	if err := s.cache.Do(ctx, s.cache.B().Set().Key(key).Value(string(data)).Ex(ttl).Build()).Error(); err != nil {
		s.logger.Warn("Failed to cache leaderboard", zap.String("key", key), zap.Error(err))
	}
}
