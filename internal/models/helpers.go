package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TelegramPrimaryID derives the canonical primary id form for a Telegram
// identity.
func TelegramPrimaryID(telegramID string) string {
	return "telegram:" + telegramID
}

// FallbackPrimaryID generates a primary id for a client that supplied
// neither a user id nor a Telegram id link.
func FallbackPrimaryID(now time.Time) string {
	return fmt.Sprintf("user:%d", now.Unix())
}

// NewReferralCode generates a fresh referral code, e.g. "REF-1A2B3C4D".
func NewReferralCode() string {
	return "REF-" + strings.ToUpper(uuid.New().String()[:8])
}

// NewTransferID generates a transfer log identifier.
func NewTransferID() string {
	return fmt.Sprintf("tr_%s_%d", time.Now().Format("20060102"), uuid.New().ID())
}
