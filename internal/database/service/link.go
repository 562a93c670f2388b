package service

import (
	"context"

	"github.com/lunalog/lunalog/internal/database/models"
	"github.com/lunalog/lunalog/internal/database/types"
	"go.uber.org/zap"
)

// LinkService combines directional interaction rows into undirected views.
type LinkService struct {
	model           *models.InteractionModel
	maxMostSeenWith int
	logger          *zap.Logger
}

// NewLink creates a new link service.
func NewLink(model *models.InteractionModel, maxMostSeenWith int, logger *zap.Logger) *LinkService {
	return &LinkService{
		model:           model,
		maxMostSeenWith: maxMostSeenWith,
		logger:          logger.Named("link_service"),
	}
}

// Link returns the undirected relationship between two users, summing both
// directions. It returns nil when neither direction exists.
func (s *LinkService) Link(ctx context.Context, a, b uint64) (*types.Link, error) {
	forward, err := s.model.GetPair(ctx, a, b)
	if err != nil {
		return nil, err
	}

	backward, err := s.model.GetPair(ctx, b, a)
	if err != nil {
		return nil, err
	}

	if forward == nil && backward == nil {
		return nil, nil //nolint:nilnil // no relationship
	}

	link := &types.Link{UserID: a, OtherUserID: b}
	for _, row := range []*types.Interaction{forward, backward} {
		if row == nil {
			continue
		}
		link.Mentions += row.Mentions
		link.Replies += row.Replies
		link.VCMinutes += row.VCMinutesTogether
		if row.LastInteractionAt.After(link.LastInteractionAt) {
			link.LastInteractionAt = row.LastInteractionAt
		}
	}
	link.Score = types.ComputeScore(link.Mentions, link.Replies, link.VCMinutes)

	return link, nil
}

// MostSeenWith returns the user's strongest partners. A non-positive limit
// uses the configured default.
func (s *LinkService) MostSeenWith(ctx context.Context, userID uint64, limit int) ([]types.Counterpart, error) {
	if limit <= 0 {
		limit = s.maxMostSeenWith
	}
	return s.model.TopCounterparts(ctx, userID, limit)
}

// Summary counts the user's partners and their total score.
func (s *LinkService) Summary(ctx context.Context, userID uint64) (types.InteractionSummary, error) {
	return s.model.Summary(ctx, userID)
}
