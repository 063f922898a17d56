package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"sparkcoin-backend/internal/models"
	"sparkcoin-backend/internal/store"
)

// ErrInvalidIdentity is returned when a lookup carries neither a user id
// nor a telegram id.
var ErrInvalidIdentity = errors.New("no user ID or telegram ID")

// Resolver finds every stored record that could plausibly belong to the
// player identified by the given ids. Races before a telegram link is
// established can leave several rows for one human; the resolver returns
// them all and leaves convergence to the merge.
type Resolver struct {
	store store.Store
}

func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// FindCandidates returns all matching records, most-recently-updated first.
// The order is the merge's tie-break when candidate balances are equal.
func (r *Resolver) FindCandidates(ctx context.Context, primaryID, telegramID string) ([]*models.PlayerRecord, error) {
	if primaryID == "" && telegramID == "" {
		return nil, ErrInvalidIdentity
	}

	seen := make(map[string]bool)
	var candidates []*models.PlayerRecord

	add := func(record *models.PlayerRecord) {
		if record != nil && !seen[record.PrimaryID] {
			seen[record.PrimaryID] = true
			candidates = append(candidates, record)
		}
	}

	lookup := func(id string) error {
		record, err := r.store.Get(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("candidate lookup for %q: %w", id, err)
		}
		add(record)
		return nil
	}

	if primaryID != "" {
		if err := lookup(primaryID); err != nil {
			return nil, err
		}
	}

	if telegramID != "" {
		if err := lookup(models.TelegramPrimaryID(telegramID)); err != nil {
			return nil, err
		}

		linked, err := r.store.GetByTelegramID(ctx, telegramID)
		if err != nil {
			return nil, fmt.Errorf("candidate lookup by telegram id: %w", err)
		}
		for _, record := range linked {
			add(record)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].LastUpdate > candidates[j].LastUpdate
	})

	return candidates, nil
}
