package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkcoin-backend/internal/models"
	"sparkcoin-backend/internal/store"
)

func TestMemoryStoreRoundtrip(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	record := &models.PlayerRecord{
		PrimaryID:  "u1",
		TelegramID: "42",
		Username:   "alice",
		Balance:    5,
		Upgrades:   models.Upgrades{"click_power": 2},
	}
	require.NoError(t, s.UpsertAll(ctx, []*models.PlayerRecord{record}))

	got, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Balance)

	// Returned records are copies; mutating them must not leak back.
	got.Balance = 999
	got.Upgrades["click_power"] = 99

	again, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, again.Balance)
	assert.Equal(t, models.UpgradeLevel(2), again.Upgrades["click_power"])
}

func TestMemoryStoreGetByTelegramID(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertAll(ctx, []*models.PlayerRecord{
		{PrimaryID: "u1", TelegramID: "42"},
		{PrimaryID: "telegram:42", TelegramID: "42"},
		{PrimaryID: "u2", TelegramID: "7"},
	}))

	records, err := s.GetByTelegramID(ctx, "42")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMemoryStoreTop(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertAll(ctx, []*models.PlayerRecord{
		{PrimaryID: "u1", Balance: 5, TotalEarned: 100},
		{PrimaryID: "u2", Balance: 50, TotalEarned: 60},
		{PrimaryID: "u3", Balance: 20, TotalEarned: 80},
	}))

	byBalance, err := s.Top(ctx, store.ByBalance, 2)
	require.NoError(t, err)
	require.Len(t, byBalance, 2)
	assert.Equal(t, "u2", byBalance[0].PrimaryID)
	assert.Equal(t, "u3", byBalance[1].PrimaryID)

	byEarned, err := s.Top(ctx, store.ByEarned, 10)
	require.NoError(t, err)
	require.Len(t, byEarned, 3)
	assert.Equal(t, "u1", byEarned[0].PrimaryID)
}

func TestMemoryStoreTransfer(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.UpsertAll(ctx, []*models.PlayerRecord{
		{PrimaryID: "u1", Balance: 10},
		{PrimaryID: "u2", Balance: 1},
	}))

	assert.ErrorIs(t, s.Transfer(ctx, "u1", "missing", 5), store.ErrNotFound)
	assert.ErrorIs(t, s.Transfer(ctx, "u1", "u2", 100), store.ErrInsufficientFunds)

	require.NoError(t, s.Transfer(ctx, "u1", "u2", 4))

	sender, _ := s.Get(ctx, "u1")
	receiver, _ := s.Get(ctx, "u2")
	assert.Equal(t, 6.0, sender.Balance)
	assert.Equal(t, 4.0, sender.TransfersSent)
	assert.Equal(t, 5.0, receiver.Balance)
	assert.Equal(t, 4.0, receiver.TransfersReceived)
}

func TestMemoryStoreRateLimit(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := s.CheckRateLimit(ctx, "1.2.3.4", "sync", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := s.CheckRateLimit(ctx, "1.2.3.4", "sync", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different action has its own window.
	allowed, err = s.CheckRateLimit(ctx, "1.2.3.4", "transfer", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
