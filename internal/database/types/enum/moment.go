package enum

// MomentType tags a moment row. The value is stored as-is.
type MomentType string

const (
	MomentTypeJoined          MomentType = "JOINED"
	MomentTypeFirstMessage    MomentType = "FIRST_MESSAGE"
	MomentTypeFirstVC         MomentType = "FIRST_VC"
	MomentTypeFirstConnection MomentType = "FIRST_CONNECTION"
	MomentTypeNote            MomentType = "MOMENT_NOTE"
)

// IsOnce reports whether at most one moment of this type may exist per user.
func (t MomentType) IsOnce() bool {
	switch t {
	case MomentTypeJoined, MomentTypeFirstMessage, MomentTypeFirstVC, MomentTypeFirstConnection:
		return true
	case MomentTypeNote:
		return false
	}
	return false
}
