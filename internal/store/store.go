package store

import (
	"context"
	"errors"
	"time"

	"sparkcoin-backend/internal/models"
)

// Leaderboard orderings accepted by Top.
const (
	ByBalance = "balance"
	ByEarned  = "earned"
)

var (
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("player not found")
	// ErrInsufficientFunds is returned when a debit would drive a balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Store is the durable player state backend consumed by the sync core and
// the betting/transfer collaborators.
type Store interface {
	// Get returns the record stored under primaryID, or ErrNotFound.
	Get(ctx context.Context, primaryID string) (*models.PlayerRecord, error)

	// GetByTelegramID returns every record whose telegram id matches.
	// Duplicate pre-link rows for the same player are all returned.
	GetByTelegramID(ctx context.Context, telegramID string) ([]*models.PlayerRecord, error)

	// UpsertAll writes every record in one atomic step: either all rows
	// and their leaderboard index entries land, or none do.
	UpsertAll(ctx context.Context, records []*models.PlayerRecord) error

	// Top returns the leaderboard ordered by ByBalance or ByEarned.
	Top(ctx context.Context, by string, limit int64) ([]*models.PlayerRecord, error)

	// Count returns the number of stored player records.
	Count(ctx context.Context) (int64, error)

	// Transfer atomically moves amount from one player to another,
	// updating the transfer accumulators on both rows.
	Transfer(ctx context.Context, fromID, toID string, amount float64) error

	// LogTransfer appends an entry to the transfer history.
	LogTransfer(ctx context.Context, entry *models.TransferLog) error

	// CheckRateLimit counts a hit for (id, action) and reports whether the
	// caller is still within limit for the window.
	CheckRateLimit(ctx context.Context, id, action string, limit int, window time.Duration) (bool, error)

	Close() error
}
