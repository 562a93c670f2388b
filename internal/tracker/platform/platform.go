// Package platform defines the chat platform events consumed by the trackers
// and the lookups the trackers need from the platform.
package platform

import (
	"context"
	"slices"
	"time"
)

// MessageFetcher resolves a referenced message that was not delivered inline.
type MessageFetcher interface {
	FetchMessage(ctx context.Context, channelID, messageID uint64) (*MessageRef, error)
}

// MemberLookup resolves when a member joined the guild.
type MemberLookup interface {
	JoinedAt(ctx context.Context, guildID, userID uint64) (*time.Time, bool)
}

// ChannelDirectory resolves channel details from the platform cache.
type ChannelDirectory interface {
	Channel(guildID, channelID uint64) (ChannelInfo, bool)
}

// AuditLog resolves who created a channel.
type AuditLog interface {
	ChannelCreator(ctx context.Context, guildID, channelID uint64) (uint64, bool, error)
}

// ChannelInfo is the subset of channel state the trackers use.
type ChannelInfo struct {
	ID       uint64
	Name     string
	ParentID uint64
	// ManageOverwriteUserIDs are members granted Manage Channels through a
	// member-specific permission overwrite.
	ManageOverwriteUserIDs []uint64
}

// HasManageOverwrite reports whether userID holds an explicit Manage Channels grant.
func (c ChannelInfo) HasManageOverwrite(userID uint64) bool {
	return slices.Contains(c.ManageOverwriteUserIDs, userID)
}

// MessageRef is a referenced message's author.
type MessageRef struct {
	ID        uint64
	ChannelID uint64
	AuthorID  uint64
	AuthorBot bool
}

// Reference points at the message being replied to.
type Reference struct {
	ChannelID uint64
	MessageID uint64
}

// Mention is a user mentioned in a message.
type Mention struct {
	UserID uint64
	Bot    bool
}

// Message is a guild message. Direct messages have a zero GuildID.
type Message struct {
	ID        uint64
	GuildID   uint64
	ChannelID uint64
	AuthorID  uint64
	AuthorBot bool
	Content   string
	CreatedAt time.Time
	// MemberJoinedAt is the author's guild join time when the event carried it.
	MemberJoinedAt *time.Time
	Reference      *Reference
	// Referenced is the replied-to message when delivered inline.
	Referenced *MessageRef
	Mentions   []Mention
}

// VoiceStateChange is a member's voice state transition. Zero channel IDs
// mean the member was not in a voice channel.
type VoiceStateChange struct {
	GuildID        uint64
	UserID         uint64
	Bot            bool
	OldChannelID   uint64
	NewChannelID   uint64
	MemberJoinedAt *time.Time
	At             time.Time
}

// MemberJoin is a member joining the guild.
type MemberJoin struct {
	GuildID  uint64
	UserID   uint64
	Bot      bool
	JoinedAt time.Time
}
