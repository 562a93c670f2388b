package types

import (
	"time"

	"github.com/uptrace/bun"
)

// ChannelOwnership records who created a channel, as resolved from the audit log.
type ChannelOwnership struct {
	bun.BaseModel `bun:"table:created_channels,alias:created_channels"`

	ChannelID     uint64    `bun:",pk"`
	GuildID       uint64    `bun:",notnull"`
	CreatorUserID uint64    `bun:",notnull"`
	ChannelType   int       `bun:",notnull,default:0"`
	CreatedAt     time.Time `bun:",notnull"`
}

// RecapRun marks that the recap for a week has been produced.
type RecapRun struct {
	bun.BaseModel `bun:"table:recap_runs,alias:recap_runs"`

	WeekStart string    `bun:",pk"`
	PostedAt  time.Time `bun:",notnull"`
	ChannelID uint64    `bun:",nullzero"`
	MessageID uint64    `bun:",nullzero"`
}
