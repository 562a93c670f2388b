package types

import (
	"errors"
	"time"

	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/uptrace/bun"
)

var ErrUserNotFound = errors.New("user not found")

// User holds a tracked member with their vibe data and "last" snapshots.
// JoinDate is set once and never overwritten.
type User struct {
	bun.BaseModel `bun:"table:users,alias:users"`

	UserID       uint64    `bun:",pk"`
	JoinDate     time.Time `bun:",nullzero"`
	ChosenVibe   string    `bun:",nullzero"` // JSON array of category names
	InferredVibe string    `bun:",nullzero"` // JSON object of category scores

	LastMessageAt        time.Time `bun:",nullzero"`
	LastMessageChannelID uint64    `bun:",nullzero"`

	LastVoiceAt        time.Time `bun:",nullzero"`
	LastVoiceChannelID uint64    `bun:",nullzero"`
	LastVoiceMinutes   int       `bun:",nullzero"`

	LastConnectionAt     time.Time          `bun:",nullzero"`
	LastConnectionUserID uint64             `bun:",nullzero"`
	LastConnectionVia    enum.ConnectionVia `bun:",nullzero"`

	LastSeenAt        time.Time     `bun:",nullzero"`
	LastSeenType      enum.SeenType `bun:",nullzero"`
	LastSeenChannelID uint64        `bun:",nullzero"`

	CreatedAt time.Time `bun:",notnull"`
	UpdatedAt time.Time `bun:",notnull"`
}

// ChosenVibes decodes the user's declared vibes.
func (u *User) ChosenVibes() []string {
	return ParseChosenVibes(u.ChosenVibe)
}

// InferredScores decodes the user's inferred vibe vector.
func (u *User) InferredScores() VibeScores {
	return ParseVibeScores(u.InferredVibe)
}
