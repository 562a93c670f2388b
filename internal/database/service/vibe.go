package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lunalog/lunalog/internal/database/models"
	"github.com/lunalog/lunalog/internal/database/types"
	"go.uber.org/zap"
)

// maxExtraVibes is how many inferred vibes are shown next to the chosen ones.
const maxExtraVibes = 2

var ErrUnknownVibe = errors.New("unknown vibe category")

// VibeCount is the number of users resolved to one vibe category.
type VibeCount struct {
	Name  string
	Count int
}

// VibeService handles vibe precedence and display.
type VibeService struct {
	users      *models.UserModel
	categories []string
	logger     *zap.Logger
}

// NewVibe creates a new vibe service. Categories are in configured order.
func NewVibe(users *models.UserModel, categories []string, logger *zap.Logger) *VibeService {
	return &VibeService{
		users:      users,
		categories: categories,
		logger:     logger.Named("vibe_service"),
	}
}

// Categories returns the configured category names.
func (s *VibeService) Categories() []string {
	return s.categories
}

// Resolve returns the vibes a user counts toward in the server aggregate.
// Chosen vibes win when present. Otherwise the single highest inferred
// category is used, with ties broken by configured order.
func (s *VibeService) Resolve(user *types.User) []string {
	if chosen := user.ChosenVibes(); len(chosen) > 0 {
		return chosen
	}

	scores := user.InferredScores()
	best, bestScore := "", 0
	for _, name := range s.categories {
		if score := scores[name]; score > bestScore {
			best, bestScore = name, score
		}
	}
	if best == "" {
		return nil
	}
	return []string{best}
}

// ServerCounts counts users per configured category.
func (s *VibeService) ServerCounts(ctx context.Context) ([]VibeCount, error) {
	users, err := s.users.ListWithVibes(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(s.categories))
	counts := make([]VibeCount, len(s.categories))
	for i, name := range s.categories {
		index[name] = i
		counts[i].Name = name
	}

	for _, user := range users {
		for _, name := range s.Resolve(user) {
			if i, ok := index[name]; ok {
				counts[i].Count++
			}
		}
	}

	return counts, nil
}

// Display returns the user's chosen vibes followed by up to two inferred
// vibes with a positive score that were not chosen.
func (s *VibeService) Display(ctx context.Context, userID uint64) ([]string, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	chosen := user.ChosenVibes()
	shown := make(map[string]struct{}, len(chosen))
	result := make([]string, 0, len(chosen)+maxExtraVibes)
	for _, name := range chosen {
		shown[name] = struct{}{}
		result = append(result, name)
	}

	scores := user.InferredScores()
	for extra := 0; extra < maxExtraVibes; extra++ {
		best, bestScore := "", 0
		for _, name := range s.categories {
			if _, ok := shown[name]; ok {
				continue
			}
			if score := scores[name]; score > bestScore {
				best, bestScore = name, score
			}
		}
		if best == "" {
			break
		}
		shown[best] = struct{}{}
		result = append(result, best)
	}

	return result, nil
}

// SetChosen replaces the user's declared vibes after checking them against
// the configured categories. Names are matched case-insensitively.
func (s *VibeService) SetChosen(ctx context.Context, userID uint64, chosen []string) ([]string, error) {
	valid := make([]string, 0, len(chosen))
	for _, raw := range chosen {
		name, ok := s.lookup(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVibe, raw)
		}
		valid = append(valid, name)
	}

	if err := s.users.Upsert(ctx, userID, nil); err != nil {
		return nil, err
	}

	normalized := types.NormalizeChosenVibes(valid)
	if err := s.users.SetChosenVibe(ctx, userID, normalized); err != nil {
		return nil, err
	}

	return normalized, nil
}

func (s *VibeService) lookup(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	for _, name := range s.categories {
		if strings.EqualFold(name, raw) {
			return name, true
		}
	}
	return "", false
}
