package bot

import (
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lunalog/lunalog/internal/tracker/platform"
)

// convertMessage maps a gateway message to the tracker's view of it.
func convertMessage(guildID snowflake.ID, m discord.Message) platform.Message {
	msg := platform.Message{
		ID:        uint64(m.ID),
		GuildID:   uint64(guildID),
		ChannelID: uint64(m.ChannelID),
		AuthorID:  uint64(m.Author.ID),
		AuthorBot: m.Author.Bot || m.WebhookID != nil,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.ID.Time()
	}

	if m.Member != nil && !m.Member.JoinedAt.IsZero() {
		joinedAt := m.Member.JoinedAt.UTC()
		msg.MemberJoinedAt = &joinedAt
	}

	if ref := m.MessageReference; ref != nil && ref.MessageID != nil {
		channelID := m.ChannelID
		if ref.ChannelID != nil {
			channelID = *ref.ChannelID
		}
		msg.Reference = &platform.Reference{
			ChannelID: uint64(channelID),
			MessageID: uint64(*ref.MessageID),
		}
	}

	if m.ReferencedMessage != nil {
		msg.Referenced = convertRef(*m.ReferencedMessage)
	}

	for _, user := range m.Mentions {
		msg.Mentions = append(msg.Mentions, platform.Mention{UserID: uint64(user.ID), Bot: user.Bot})
	}

	return msg
}

// convertRef keeps only the author of a referenced message.
func convertRef(m discord.Message) *platform.MessageRef {
	return &platform.MessageRef{
		ID:        uint64(m.ID),
		ChannelID: uint64(m.ChannelID),
		AuthorID:  uint64(m.Author.ID),
		AuthorBot: m.Author.Bot || m.WebhookID != nil,
	}
}

// convertVoiceState maps a voice state transition.
func convertVoiceState(old, current discord.VoiceState, member discord.Member, at time.Time) platform.VoiceStateChange {
	ev := platform.VoiceStateChange{
		GuildID:      uint64(current.GuildID),
		UserID:       uint64(current.UserID),
		Bot:          member.User.Bot,
		OldChannelID: channelID(old.ChannelID),
		NewChannelID: channelID(current.ChannelID),
		At:           at,
	}
	if !member.JoinedAt.IsZero() {
		joinedAt := member.JoinedAt.UTC()
		ev.MemberJoinedAt = &joinedAt
	}
	return ev
}

// convertMemberJoin maps a guild member join.
func convertMemberJoin(guildID snowflake.ID, member discord.Member, at time.Time) platform.MemberJoin {
	joinedAt := member.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = at
	}
	return platform.MemberJoin{
		GuildID:  uint64(guildID),
		UserID:   uint64(member.User.ID),
		Bot:      member.User.Bot,
		JoinedAt: joinedAt.UTC(),
	}
}

// convertChannel maps a cached guild channel, collecting members granted
// Manage Channels through a member overwrite.
func convertChannel(channel discord.GuildChannel) platform.ChannelInfo {
	info := platform.ChannelInfo{
		ID:   uint64(channel.ID()),
		Name: channel.Name(),
	}
	if parentID := channel.ParentID(); parentID != nil {
		info.ParentID = uint64(*parentID)
	}

	for _, overwrite := range channel.PermissionOverwrites() {
		member, ok := overwrite.(discord.MemberPermissionOverwrite)
		if !ok {
			continue
		}
		if member.Allow.Has(discord.PermissionManageChannels) {
			info.ManageOverwriteUserIDs = append(info.ManageOverwriteUserIDs, uint64(member.UserID))
		}
	}

	return info
}

func channelID(id *snowflake.ID) uint64 {
	if id == nil {
		return 0
	}
	return uint64(*id)
}
