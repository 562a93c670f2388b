// Package ownership decides whether activity in a channel should count toward
// a user's totals. Activity in a channel the user created or explicitly
// manages is excluded so personal channels cannot be farmed.
package ownership

import (
	"context"
	"strconv"
	"time"

	"github.com/lunalog/lunalog/internal/database/types"
	"github.com/lunalog/lunalog/internal/setup/config"
	"github.com/lunalog/lunalog/internal/tracker/platform"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const defaultLookupTimeout = 3 * time.Second

// Policy reports whether a user's activity in a channel is counted.
type Policy interface {
	ShouldCount(ctx context.Context, guildID, channelID, userID uint64) bool
}

// PolicyFunc adapts a function to a Policy.
type PolicyFunc func(ctx context.Context, guildID, channelID, userID uint64) bool

// ShouldCount calls f.
func (f PolicyFunc) ShouldCount(ctx context.Context, guildID, channelID, userID uint64) bool {
	return f(ctx, guildID, channelID, userID)
}

// CountAll is a Policy that never excludes activity.
var CountAll Policy = PolicyFunc(func(context.Context, uint64, uint64, uint64) bool { //nolint:gochecknoglobals // -
	return true
})

// CreatorStore is the durable cache of channel creators.
type CreatorStore interface {
	GetCreator(ctx context.Context, channelID uint64) (uint64, bool, error)
	Upsert(ctx context.Context, ownership *types.ChannelOwnership) error
}

// Resolver is the default Policy. It excludes a user's activity in channels
// where the user holds a member-specific Manage Channels overwrite, or which
// the audit log shows the user created. Unresolvable cases are counted.
type Resolver struct {
	store     CreatorStore
	audit     platform.AuditLog
	directory platform.ChannelDirectory
	cfg       config.PersonalChannels
	timeout   time.Duration
	// resolved holds audit log outcomes per channel; zero means no creator found.
	resolved *xsync.MapOf[uint64, uint64]
	group    singleflight.Group
	logger   *zap.Logger
}

// NewResolver creates a Resolver. The audit log and directory may be nil, in
// which case the corresponding check is skipped.
func NewResolver(
	store CreatorStore,
	audit platform.AuditLog,
	directory platform.ChannelDirectory,
	cfg config.PersonalChannels,
	logger *zap.Logger,
) *Resolver {
	timeout := time.Duration(cfg.LookupTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}

	return &Resolver{
		store:     store,
		audit:     audit,
		directory: directory,
		cfg:       cfg,
		timeout:   timeout,
		resolved:  xsync.NewMapOf[uint64, uint64](),
		logger:    logger.Named("ownership"),
	}
}

// ShouldCount implements Policy.
func (r *Resolver) ShouldCount(ctx context.Context, guildID, channelID, userID uint64) bool {
	if !r.cfg.ExcludeCreatorActivity || channelID == 0 {
		return true
	}

	if r.cfg.UseManageOverwriteHeuristic && r.directory != nil {
		if info, ok := r.directory.Channel(guildID, channelID); ok && info.HasManageOverwrite(userID) {
			return false
		}
	}

	if r.cfg.UseAuditLogs {
		if creatorID, ok := r.Creator(ctx, guildID, channelID); ok && creatorID == userID {
			return false
		}
	}

	return true
}

// Creator returns the creator of a channel. The durable store is consulted
// first; the audit log is asked at most once per channel for the lifetime of
// the Resolver, with concurrent callers sharing one lookup.
func (r *Resolver) Creator(ctx context.Context, guildID, channelID uint64) (uint64, bool) {
	creatorID, found, err := r.store.GetCreator(ctx, channelID)
	if err != nil {
		r.logger.Warn("Failed to read channel creator",
			zap.Error(err),
			zap.Uint64("channelID", channelID))
	} else if found {
		return creatorID, true
	}

	if creatorID, ok := r.resolved.Load(channelID); ok {
		return creatorID, creatorID != 0
	}

	if r.audit == nil {
		return 0, false
	}

	result, _, _ := r.group.Do(strconv.FormatUint(channelID, 10), func() (any, error) {
		if creatorID, ok := r.resolved.Load(channelID); ok {
			return creatorID, nil
		}

		creatorID := r.lookup(ctx, guildID, channelID)
		r.resolved.Store(channelID, creatorID)
		return creatorID, nil
	})

	creatorID = result.(uint64)
	return creatorID, creatorID != 0
}

// lookup asks the audit log for the creator and persists a hit. Failures
// resolve to zero.
func (r *Resolver) lookup(ctx context.Context, guildID, channelID uint64) uint64 {
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	creatorID, found, err := r.audit.ChannelCreator(lookupCtx, guildID, channelID)
	if err != nil {
		r.logger.Debug("Failed to resolve channel creator from audit log",
			zap.Error(err),
			zap.Uint64("guildID", guildID),
			zap.Uint64("channelID", channelID))
		return 0
	}
	if !found {
		return 0
	}

	err = r.store.Upsert(lookupCtx, &types.ChannelOwnership{
		ChannelID:     channelID,
		GuildID:       guildID,
		CreatorUserID: creatorID,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		r.logger.Warn("Failed to persist channel creator",
			zap.Error(err),
			zap.Uint64("channelID", channelID))
	}

	return creatorID
}
