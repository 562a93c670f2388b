package enum

// SeenType describes what kind of event last refreshed a user's last-seen snapshot.
type SeenType string

const (
	SeenTypeMessage    SeenType = "message"
	SeenTypeVoice      SeenType = "voice"
	SeenTypeConnection SeenType = "connection"
	SeenTypeCommand    SeenType = "command"
)

// ConnectionVia is how a connection between two users was observed.
type ConnectionVia string

const (
	ConnectionViaReply   ConnectionVia = "reply"
	ConnectionViaMention ConnectionVia = "mention"
	ConnectionViaVoice   ConnectionVia = "vc"
)

// Metric selects the counter a leaderboard query ranks by.
type Metric string

const (
	MetricMessages Metric = "messages"
	MetricVoice    Metric = "voice"
	MetricNight    Metric = "night"
)

// Leaderboard names a ranked board.
type Leaderboard string

const (
	LeaderboardChat        Leaderboard = "chat"
	LeaderboardVoice       Leaderboard = "voice"
	LeaderboardNight       Leaderboard = "night"
	LeaderboardConnections Leaderboard = "connections"
)

// Leaderboards lists every board in display order.
var Leaderboards = []Leaderboard{
	LeaderboardChat, LeaderboardVoice, LeaderboardNight, LeaderboardConnections,
}
