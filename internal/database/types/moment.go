package types

import (
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lunalog/lunalog/internal/database/types/enum"
	"github.com/uptrace/bun"
)

var (
	ErrMomentNotFound   = errors.New("moment not found")
	ErrMetaTypeMismatch = errors.New("moment metadata does not match moment type")
)

// Moment is an append-only, timestamped event in a user's history.
type Moment struct {
	bun.BaseModel `bun:"table:moments,alias:moments"`

	ID        int64           `bun:",pk,autoincrement"`
	UserID    uint64          `bun:",notnull"`
	Type      enum.MomentType `bun:",notnull"`
	Meta      string          `bun:",nullzero"`
	CreatedAt time.Time       `bun:",notnull"`

	// Details is the decoded Meta, or nil when it is absent or malformed.
	Details MomentMeta `bun:"-"`
}

// Decode populates Details from the stored metadata.
func (m *Moment) Decode() {
	m.Details = DecodeMomentMeta(m.Type, m.Meta)
}

// MomentMeta is the typed payload of a moment. Each moment type has exactly
// one payload variant.
type MomentMeta interface {
	MomentType() enum.MomentType
}

// JoinedMeta is the payload of a JOINED moment.
type JoinedMeta struct {
	GuildID uint64 `json:"guildId,string"`
}

// MessageMeta is the payload of a FIRST_MESSAGE moment.
type MessageMeta struct {
	ChannelID   uint64 `json:"channelId,string"`
	ChannelName string `json:"channelName"`
}

// VoiceMeta is the payload of a FIRST_VC moment.
type VoiceMeta struct {
	ChannelID   uint64 `json:"channelId,string"`
	ChannelName string `json:"channelName"`
	Minutes     int    `json:"minutes"`
}

// ConnectionMeta is the payload of a FIRST_CONNECTION moment.
type ConnectionMeta struct {
	OtherUserID uint64             `json:"otherUserId,string"`
	Via         enum.ConnectionVia `json:"via"`
	ChannelID   uint64             `json:"channelId,string"`
}

// NoteMeta is the payload of a MOMENT_NOTE.
type NoteMeta struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
}

func (JoinedMeta) MomentType() enum.MomentType     { return enum.MomentTypeJoined }
func (MessageMeta) MomentType() enum.MomentType    { return enum.MomentTypeFirstMessage }
func (VoiceMeta) MomentType() enum.MomentType      { return enum.MomentTypeFirstVC }
func (ConnectionMeta) MomentType() enum.MomentType { return enum.MomentTypeFirstConnection }
func (NoteMeta) MomentType() enum.MomentType       { return enum.MomentTypeNote }

// EncodeMomentMeta serializes a payload for the given moment type.
// A nil payload encodes to an empty string.
func EncodeMomentMeta(t enum.MomentType, meta MomentMeta) (string, error) {
	if meta == nil {
		return "", nil
	}
	if meta.MomentType() != t {
		return "", ErrMetaTypeMismatch
	}
	return sonic.MarshalString(meta)
}

// DecodeMomentMeta parses stored metadata into the variant for t. Absent,
// malformed or unknown payloads decode to nil.
func DecodeMomentMeta(t enum.MomentType, raw string) MomentMeta {
	if raw == "" {
		return nil
	}

	switch t {
	case enum.MomentTypeJoined:
		return decodeMeta[JoinedMeta](raw)
	case enum.MomentTypeFirstMessage:
		return decodeMeta[MessageMeta](raw)
	case enum.MomentTypeFirstVC:
		return decodeMeta[VoiceMeta](raw)
	case enum.MomentTypeFirstConnection:
		return decodeMeta[ConnectionMeta](raw)
	case enum.MomentTypeNote:
		return decodeMeta[NoteMeta](raw)
	}

	return nil
}

func decodeMeta[T MomentMeta](raw string) MomentMeta {
	var meta T
	if err := sonic.UnmarshalString(raw, &meta); err != nil {
		return nil
	}
	return meta
}
