package services

// Broadcaster pushes state changes to connected live clients. The zero
// implementation is a no-op so services can run without the websocket hub.
type Broadcaster interface {
	BroadcastBalance(userID string, balance float64)
	BroadcastLeaderboardChanged()
}

// NoopBroadcaster satisfies Broadcaster for tests and headless setups.
type NoopBroadcaster struct{}

func (NoopBroadcaster) BroadcastBalance(_ string, _ float64) {}
func (NoopBroadcaster) BroadcastLeaderboardChanged()         {}
