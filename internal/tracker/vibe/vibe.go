// Package vibe infers topical interests from the channels users talk in and
// the words they use.
package vibe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

type category struct {
	name     string
	channels map[uint64]struct{}
	keywords []string
}

// Inferrer accumulates per-user vibe scores.
type Inferrer struct {
	db         database.Client
	categories []category
	logger     *zap.Logger
}

// New creates an Inferrer for the configured categories.
func New(db database.Client, cfg config.VibesConfig, logger *zap.Logger) *Inferrer {
	caser := cases.Fold()

	categories := make([]category, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		cat := category{
			name:     c.Name,
			channels: make(map[uint64]struct{}, len(c.ChannelIDs)),
		}
		for _, id := range c.ChannelIDs {
			cat.channels[id] = struct{}{}
		}
		for _, keyword := range c.Keywords {
			if keyword = strings.TrimSpace(keyword); keyword != "" {
				cat.keywords = append(cat.keywords, caser.String(keyword))
			}
		}
		categories = append(categories, cat)
	}

	return &Inferrer{
		db:         db,
		categories: categories,
		logger:     logger.Named("vibe_inference"),
	}
}

// Deltas scores a message. A category gains one point when the channel is one
// of its channels and another when the content contains any of its keywords.
func (i *Inferrer) Deltas(channelID uint64, content string) map[string]int {
	deltas := make(map[string]int)

	folded := ""
	if content != "" {
		folded = cases.Fold().String(content)
	}

	for _, cat := range i.categories {
		if _, ok := cat.channels[channelID]; ok {
			deltas[cat.name]++
		}
		if folded == "" {
			continue
		}
		for _, keyword := range cat.keywords {
			if strings.Contains(folded, keyword) {
				deltas[cat.name]++
				break
			}
		}
	}

	return deltas
}

// OnMessage adds the message's deltas to the author's stored scores. Nothing
// is written when the message matches no category.
func (i *Inferrer) OnMessage(ctx context.Context, msg platform.Message) error {
	if msg.GuildID == 0 || msg.AuthorBot {
		return nil
	}

	deltas := i.Deltas(msg.ChannelID, msg.Content)
	if len(deltas) == 0 {
		return nil
	}

	current := types.VibeScores{}
	user, err := i.db.Model().User().Get(ctx, msg.AuthorID)
	switch {
	case err == nil:
		current = user.InferredScores()
	case errors.Is(err, types.ErrUserNotFound):
	default:
		return fmt.Errorf("failed to read vibe scores: %w", err)
	}

	if err := i.db.Model().User().SetInferredVibe(ctx, msg.AuthorID, current.Add(deltas)); err != nil {
		return err
	}

	i.logger.Debug("Updated vibe scores",
		zap.Uint64("userID", msg.AuthorID),
		zap.Any("deltas", deltas))

	return nil
}
