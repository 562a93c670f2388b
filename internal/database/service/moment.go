package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lunalog/lunalog/internal/database/models"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"go.uber.org/zap"
)

var (
	ErrNotOnceType      = errors.New("moment type is not once-only")
	ErrEmptyNote        = errors.New("note text is empty")
	ErrNoteLimitReached = errors.New("note limit reached")
)

// MomentService handles once-only milestones and user notes.
type MomentService struct {
	model      *models.MomentModel
	maxPerUser int
	logger     *zap.Logger
}

// NewMoment creates a new moment service.
func NewMoment(model *models.MomentModel, maxPerUser int, logger *zap.Logger) *MomentService {
	return &MomentService{
		model:      model,
		maxPerUser: maxPerUser,
		logger:     logger.Named("moment_service"),
	}
}

// EnsureFirst records a once-only moment unless the user already has one of
// that type. It reports whether a moment was inserted. An existing moment is
// never modified.
func (s *MomentService) EnsureFirst(
	ctx context.Context, userID uint64, momentType enum.MomentType, meta types.MomentMeta, at time.Time,
) (bool, error) {
	if !momentType.IsOnce() {
		return false, fmt.Errorf("%w: %s", ErrNotOnceType, momentType)
	}

	_, err := s.model.FirstByType(ctx, userID, momentType)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, types.ErrMomentNotFound) {
		return false, err
	}

	moment := &types.Moment{
		UserID:    userID,
		Type:      momentType,
		Details:   meta,
		CreatedAt: at,
	}
	if err := s.model.Insert(ctx, moment); err != nil {
		return false, err
	}

	s.logger.Debug("Recorded moment",
		zap.Uint64("userID", userID),
		zap.String("type", string(momentType)))

	return true, nil
}

// Get returns the user's first moment of a type with its decoded metadata.
func (s *MomentService) Get(ctx context.Context, userID uint64, momentType enum.MomentType) (*types.Moment, error) {
	return s.model.FirstByType(ctx, userID, momentType)
}

// Earliest returns the user's oldest moment.
func (s *MomentService) Earliest(ctx context.Context, userID uint64) (*types.Moment, error) {
	return s.model.Earliest(ctx, userID)
}

// AddNote stores a note for the user, enforcing the per-user cap.
func (s *MomentService) AddNote(
	ctx context.Context, userID uint64, title, text string, at time.Time,
) (*types.Moment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyNote
	}

	count, err := s.model.CountNotes(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= s.maxPerUser {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoteLimitReached, count, s.maxPerUser)
	}

	moment := &types.Moment{
		UserID:    userID,
		Type:      enum.MomentTypeNote,
		Details:   types.NoteMeta{Title: strings.TrimSpace(title), Text: text},
		CreatedAt: at,
	}
	if err := s.model.Insert(ctx, moment); err != nil {
		return nil, err
	}

	return moment, nil
}

// ListNotes returns the user's most recent notes.
func (s *MomentService) ListNotes(ctx context.Context, userID uint64, limit int) ([]*types.Moment, error) {
	if limit <= 0 || limit > s.maxPerUser {
		limit = s.maxPerUser
	}
	return s.model.RecentNotes(ctx, userID, limit)
}

// DeleteNote removes one of the user's own notes.
func (s *MomentService) DeleteNote(ctx context.Context, id int64, userID uint64) (bool, error) {
	return s.model.DeleteNote(ctx, id, userID)
}
