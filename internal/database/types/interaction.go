package types

import (
	"time"

	"github.com/uptrace/bun"
)

// Score weights for the derived interaction score.
const (
	MentionWeight = 2
	ReplyWeight   = 3
	VoiceWeight   = 1
)

// Interaction is the directional relationship from UserID to OtherUserID.
// A→B and B→A are separate rows.
type Interaction struct {
	bun.BaseModel `bun:"table:interactions,alias:interactions"`

	UserID            uint64    `bun:",pk"`
	OtherUserID       uint64    `bun:",pk"`
	Mentions          int       `bun:",notnull,default:0"`
	Replies           int       `bun:",notnull,default:0"`
	VCMinutesTogether int       `bun:"vc_minutes_together,notnull,default:0"`
	LastInteractionAt time.Time `bun:",nullzero"`
}

// Score returns the weighted interaction score of the row.
func (i *Interaction) Score() int {
	return ComputeScore(i.Mentions, i.Replies, i.VCMinutesTogether)
}

// ComputeScore returns the weighted interaction score.
func ComputeScore(mentions, replies, vcMinutes int) int {
	return mentions*MentionWeight + replies*ReplyWeight + vcMinutes*VoiceWeight
}

// InteractionDelta is an additive update to one directional pair.
type InteractionDelta struct {
	UserID      uint64
	OtherUserID uint64
	Mentions    int
	Replies     int
	VCMinutes   int
	At          time.Time
}

// Counterpart is a scored interaction partner of a user.
type Counterpart struct {
	OtherUserID       uint64    `bun:"other_user_id"`
	Mentions          int       `bun:"mentions"`
	Replies           int       `bun:"replies"`
	VCMinutes         int       `bun:"vc_minutes_together"`
	Score             int       `bun:"score"`
	LastInteractionAt time.Time `bun:"last_interaction_at"`
}

// UserScore is a user's interaction score summed over all partners.
type UserScore struct {
	UserID uint64 `bun:"user_id"`
	Score  int    `bun:"score"`
}

// InteractionSummary counts a user's partners and their total score.
type InteractionSummary struct {
	Links      int `bun:"links"`
	TotalScore int `bun:"total_score"`
}

// Link is the undirected view of two users, combining both directions.
type Link struct {
	UserID            uint64
	OtherUserID       uint64
	Mentions          int
	Replies           int
	VCMinutes         int
	Score             int
	LastInteractionAt time.Time
}
