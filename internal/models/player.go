package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// UpgradeLevel is a single upgrade's level. Clients historically sent it
// either as a bare number or as an object carrying a "level" field; both
// shapes are accepted on decode and normalized to a bare integer on encode.
type UpgradeLevel int

func (u *UpgradeLevel) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*u = UpgradeLevel(n)
		return nil
	}

	var obj struct {
		Level float64 `json:"level"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid upgrade value: %s", data)
	}
	*u = UpgradeLevel(obj.Level)
	return nil
}

// Upgrades maps an upgrade key to its level.
type Upgrades map[string]UpgradeLevel

// Level returns the level for key, or 0 when absent.
func (u Upgrades) Level(key string) UpgradeLevel {
	if u == nil {
		return 0
	}
	return u[key]
}

// Clone returns a shallow copy safe to mutate during a merge.
func (u Upgrades) Clone() Upgrades {
	out := make(Upgrades, len(u))
	for k, v := range u {
		out[k] = v
	}
	return out
}

// PlayerRecord is one durable row per (eventually) unique player. Duplicate
// rows for the same human may transiently coexist until a sync carrying both
// identifiers converges them.
type PlayerRecord struct {
	PrimaryID  string `json:"user_id" redis:"user_id"`
	TelegramID string `json:"telegram_id,omitempty" redis:"telegram_id"`
	Username   string `json:"username" redis:"username"`

	Balance     float64  `json:"balance" redis:"balance"`
	TotalEarned float64  `json:"total_earned" redis:"total_earned"`
	TotalClicks int64    `json:"total_clicks" redis:"total_clicks"`
	Upgrades    Upgrades `json:"upgrades" redis:"upgrades"`

	// Accumulators owned by the betting/transfer collaborators; carried
	// through merges unchanged.
	TotalBet          float64 `json:"total_bet" redis:"total_bet"`
	TotalWinnings     float64 `json:"total_winnings" redis:"total_winnings"`
	TotalLosses       float64 `json:"total_losses" redis:"total_losses"`
	TransfersSent     float64 `json:"transfers_sent" redis:"transfers_sent"`
	TransfersReceived float64 `json:"transfers_received" redis:"transfers_received"`

	ReferralCode     string  `json:"referral_code" redis:"referral_code"`
	ReferralCount    int64   `json:"referral_count" redis:"referral_count"`
	ReferralEarnings float64 `json:"referral_earnings" redis:"referral_earnings"`

	LastDeviceID string `json:"last_device_id,omitempty" redis:"last_device_id"`

	CreatedAt  int64 `json:"created_at" redis:"created_at"`
	LastUpdate int64 `json:"last_update" redis:"last_update"`
}

// Touch stamps the record as written now.
func (p *PlayerRecord) Touch(now time.Time) {
	if p.CreatedAt == 0 {
		p.CreatedAt = now.Unix()
	}
	p.LastUpdate = now.UnixNano()
}
