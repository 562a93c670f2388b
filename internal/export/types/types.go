package types

// Record is one user's row in a stats export.
type Record struct {
	// ID is the user ID, or its salted hash when the export is anonymized.
	ID           string
	JoinDate     string
	Messages     int
	VoiceMinutes int
	Night        int
	Morning      int
	Afternoon    int
	Evening      int
	Weekend      int
	Crew         string
	Vibes        []string
	Links        int
	Score        int
}

// Header lists the exported columns in order.
var Header = []string{
	"id", "join_date", "messages", "voice_minutes",
	"night", "morning", "afternoon", "evening", "weekend",
	"crew", "vibes", "links", "score",
}
