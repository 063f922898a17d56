package store

const (
	KeyPlayer             = "player:%s"
	KeyPlayers            = "players"
	KeyTelegramIndex      = "telegram:%s:players"
	KeyLeaderboardBalance = "leaderboard:balance"
	KeyLeaderboardEarned  = "leaderboard:earned"
	KeyTransfer           = "transfer:%s"
	KeyTransferLog        = "transfers:log"
	KeyRateLimit          = "ratelimit:%s:%s"

	// Transfer history is capped the same way the game history is: only
	// the most recent entries are retained.
	transferLogMax = 500
)
