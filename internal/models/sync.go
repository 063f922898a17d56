package models

import (
	"encoding/json"
	"fmt"
)

// Error codes surfaced to the game client. Multisession denial is a designed
// control-flow outcome, not a fault; it gets its own code so the client can
// show "another device is active" instead of a generic error.
const (
	ErrCodeValidation   = "validation_error"
	ErrCodeMultisession = "multisession_blocked"
	ErrCodeStorage      = "storage_error"
)

// SyncRequest is the client snapshot sent to /api/sync/unified. Upgrades is
// kept raw so a malformed payload can be recovered from instead of failing
// the whole request at bind time.
type SyncRequest struct {
	UserID      string          `json:"userId"`
	TelegramID  string          `json:"telegramId"`
	Username    string          `json:"username"`
	Balance     float64         `json:"balance"`
	TotalEarned float64         `json:"totalEarned"`
	TotalClicks int64           `json:"totalClicks"`
	Upgrades    json.RawMessage `json:"upgrades"`
	DeviceID    string          `json:"deviceId"`
}

// Bounds are the sanity limits applied to an incoming snapshot.
type Bounds struct {
	MaxBalance float64
	MaxEarned  float64
	MaxClicks  int64
	MaxUpgrade int
}

// Validate checks the snapshot against the configured bounds. It does not
// inspect the upgrades payload beyond shape and range; a payload that fails
// to decode at all is handled separately (see ParseUpgrades).
func (r *SyncRequest) Validate(b Bounds) error {
	if r.Username == "" {
		return fmt.Errorf("missing username")
	}
	if r.UserID == "" && r.TelegramID == "" {
		return fmt.Errorf("no user ID or telegram ID")
	}
	if r.Balance < 0 || r.TotalEarned < 0 || r.TotalClicks < 0 {
		return fmt.Errorf("negative values: balance=%g earned=%g clicks=%d",
			r.Balance, r.TotalEarned, r.TotalClicks)
	}
	if r.Balance > b.MaxBalance {
		return fmt.Errorf("suspicious balance: %g > %g", r.Balance, b.MaxBalance)
	}
	if r.TotalEarned > b.MaxEarned {
		return fmt.Errorf("suspicious total earned: %g > %g", r.TotalEarned, b.MaxEarned)
	}
	if r.TotalClicks > b.MaxClicks {
		return fmt.Errorf("suspicious click count: %d > %d", r.TotalClicks, b.MaxClicks)
	}
	if len(r.DeviceID) > 100 {
		return fmt.Errorf("invalid device id")
	}

	if upgrades, err := r.ParseUpgrades(); err == nil {
		for key, level := range upgrades {
			if key == "" {
				return fmt.Errorf("empty upgrade key")
			}
			if level < 0 || int(level) > b.MaxUpgrade {
				return fmt.Errorf("invalid upgrade level %s: %d", key, level)
			}
		}
	}

	return nil
}

// ParseUpgrades decodes the raw upgrades payload into the normalized map.
// An absent payload yields an empty map and no error; a payload that is not
// a map of upgrade values yields an error the caller is expected to log and
// recover from by treating the map as empty.
func (r *SyncRequest) ParseUpgrades() (Upgrades, error) {
	if len(r.Upgrades) == 0 || string(r.Upgrades) == "null" {
		return Upgrades{}, nil
	}

	var upgrades Upgrades
	if err := json.Unmarshal(r.Upgrades, &upgrades); err != nil {
		return Upgrades{}, fmt.Errorf("malformed upgrades payload: %w", err)
	}
	if upgrades == nil {
		upgrades = Upgrades{}
	}
	return upgrades, nil
}

// SyncResponse is the success payload for /api/sync/unified.
type SyncResponse struct {
	Success              bool    `json:"success"`
	Message              string  `json:"message,omitempty"`
	UserID               string  `json:"userId"`
	BestBalance          float64 `json:"bestBalance"`
	MultisessionDetected bool    `json:"multisessionDetected"`
	UpgradesCount        int     `json:"upgradesCount"`
}

// SessionCheckRequest is the payload for /api/session/check.
type SessionCheckRequest struct {
	TelegramID string `json:"telegramId"`
	DeviceID   string `json:"deviceId"`
	Username   string `json:"username"`
}

// SessionCheckResponse tells the client whether this device may proceed.
type SessionCheckResponse struct {
	Success bool   `json:"success"`
	Allowed bool   `json:"allowed"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// TransferRequest is the payload for /api/transfer.
type TransferRequest struct {
	FromUserID   string  `json:"fromUserId"`
	ToUserID     string  `json:"toUserId"`
	Amount       float64 `json:"amount"`
	FromUsername string  `json:"fromUsername"`
	ToUsername   string  `json:"toUsername"`
}

// LeaderboardEntry is one row of /api/leaderboard.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	Username    string  `json:"username"`
	Balance     float64 `json:"balance"`
	TotalEarned float64 `json:"totalEarned"`
	TotalClicks int64   `json:"totalClicks"`
}
