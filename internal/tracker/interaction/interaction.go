// Package interaction records replies and mentions between users.
package interaction

import (
	"context"

	"github.com/lunalog/lunalog/internal/database"
	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"go.uber.org/zap"
)

// Candidate is the user a message connects its author to.
type Candidate struct {
	OtherUserID uint64
	Via         enum.ConnectionVia
}

// Tracker turns messages into directional interaction deltas.
type Tracker struct {
	db      database.Client
	fetcher platform.MessageFetcher
	logger  *zap.Logger
}

// New creates a Tracker. The fetcher may be nil, in which case only inline
// referenced messages are considered.
func New(db database.Client, fetcher platform.MessageFetcher, logger *zap.Logger) *Tracker {
	return &Tracker{
		db:      db,
		fetcher: fetcher,
		logger:  logger.Named("interaction_tracker"),
	}
}

// Track records a reply delta for the replied-to author and a mention delta
// for each distinct mentioned user. It returns the reply target, or else the
// first counted mention, as the connection candidate.
func (t *Tracker) Track(ctx context.Context, msg platform.Message) (Candidate, bool) {
	var (
		candidate Candidate
		found     bool
	)

	if target, ok := t.replyTarget(ctx, msg); ok {
		t.add(ctx, types.InteractionDelta{
			UserID:      msg.AuthorID,
			OtherUserID: target,
			Replies:     1,
			At:          msg.CreatedAt,
		})
		candidate = Candidate{OtherUserID: target, Via: enum.ConnectionViaReply}
		found = true
	}

	seen := make(map[uint64]struct{}, len(msg.Mentions))
	for _, mention := range msg.Mentions {
		if mention.Bot || mention.UserID == 0 || mention.UserID == msg.AuthorID {
			continue
		}
		if _, ok := seen[mention.UserID]; ok {
			continue
		}
		seen[mention.UserID] = struct{}{}

		t.add(ctx, types.InteractionDelta{
			UserID:      msg.AuthorID,
			OtherUserID: mention.UserID,
			Mentions:    1,
			At:          msg.CreatedAt,
		})

		if !found {
			candidate = Candidate{OtherUserID: mention.UserID, Via: enum.ConnectionViaMention}
			found = true
		}
	}

	return candidate, found
}

// replyTarget returns the author of the replied-to message when it is a
// different, non-bot user.
func (t *Tracker) replyTarget(ctx context.Context, msg platform.Message) (uint64, bool) {
	ref := msg.Referenced
	if ref == nil {
		if msg.Reference == nil || msg.Reference.MessageID == 0 || t.fetcher == nil {
			return 0, false
		}

		channelID := msg.Reference.ChannelID
		if channelID == 0 {
			channelID = msg.ChannelID
		}

		var err error
		ref, err = t.fetcher.FetchMessage(ctx, channelID, msg.Reference.MessageID)
		if err != nil {
			t.logger.Debug("Failed to fetch referenced message",
				zap.Error(err),
				zap.Uint64("channelID", channelID),
				zap.Uint64("messageID", msg.Reference.MessageID))
			return 0, false
		}
		if ref == nil {
			return 0, false
		}
	}

	if ref.AuthorBot || ref.AuthorID == 0 || ref.AuthorID == msg.AuthorID {
		return 0, false
	}
	return ref.AuthorID, true
}

func (t *Tracker) add(ctx context.Context, delta types.InteractionDelta) {
	if err := t.db.Model().Interaction().AddDelta(ctx, delta); err != nil {
		t.logger.Error("Failed to record interaction",
			zap.Error(err),
			zap.Uint64("userID", delta.UserID),
			zap.Uint64("otherUserID", delta.OtherUserID))
	}
}
