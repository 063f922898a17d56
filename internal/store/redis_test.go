package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sparkcoin-backend/internal/config"
	"sparkcoin-backend/internal/models"
	"sparkcoin-backend/internal/store"
)

func setupRedisStore(t *testing.T) *store.RedisStore {
	t.Helper()

	s, err := store.NewRedisStore(config.Redis{Addr: "localhost:6379"}, zap.NewNop())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return s
}

func testID(t *testing.T, suffix string) string {
	return fmt.Sprintf("test:%s:%d:%s", t.Name(), time.Now().UnixNano(), suffix)
}

func TestRedisStoreRoundtrip(t *testing.T) {
	s := setupRedisStore(t)
	defer s.Close()
	ctx := context.Background()

	id := testID(t, "u1")
	telegramID := testID(t, "tg")

	record := &models.PlayerRecord{
		PrimaryID:  id,
		TelegramID: telegramID,
		Username:   "alice",
		Balance:    5,
		Upgrades:   models.Upgrades{"click_power": 2},
	}
	require.NoError(t, s.UpsertAll(ctx, []*models.PlayerRecord{record}))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Balance)
	assert.Equal(t, models.UpgradeLevel(2), got.Upgrades["click_power"])

	linked, err := s.GetByTelegramID(ctx, telegramID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, id, linked[0].PrimaryID)

	_, err = s.Get(ctx, testID(t, "missing"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRedisStoreUpsertAllConverges(t *testing.T) {
	s := setupRedisStore(t)
	defer s.Close()
	ctx := context.Background()

	a := testID(t, "a")
	b := testID(t, "b")

	rows := []*models.PlayerRecord{
		{PrimaryID: a, Username: "alice", Balance: 8},
		{PrimaryID: b, Username: "alice", Balance: 8},
	}
	require.NoError(t, s.UpsertAll(ctx, rows))

	gotA, err := s.Get(ctx, a)
	require.NoError(t, err)
	gotB, err := s.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, gotA.Balance, gotB.Balance)
}

func TestRedisStoreTransfer(t *testing.T) {
	s := setupRedisStore(t)
	defer s.Close()
	ctx := context.Background()

	from := testID(t, "from")
	to := testID(t, "to")

	require.NoError(t, s.UpsertAll(ctx, []*models.PlayerRecord{
		{PrimaryID: from, Username: "alice", Balance: 10},
		{PrimaryID: to, Username: "bob", Balance: 1},
	}))

	assert.ErrorIs(t, s.Transfer(ctx, from, to, 100), store.ErrInsufficientFunds)
	assert.ErrorIs(t, s.Transfer(ctx, from, testID(t, "missing"), 1), store.ErrNotFound)

	require.NoError(t, s.Transfer(ctx, from, to, 4))

	sender, err := s.Get(ctx, from)
	require.NoError(t, err)
	receiver, err := s.Get(ctx, to)
	require.NoError(t, err)

	assert.Equal(t, 6.0, sender.Balance)
	assert.Equal(t, 4.0, sender.TransfersSent)
	assert.Equal(t, 5.0, receiver.Balance)
	assert.Equal(t, 4.0, receiver.TransfersReceived)
}

func TestRedisStoreRateLimit(t *testing.T) {
	s := setupRedisStore(t)
	defer s.Close()
	ctx := context.Background()

	ip := testID(t, "ip")

	allowed, err := s.CheckRateLimit(ctx, ip, "sync", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = s.CheckRateLimit(ctx, ip, "sync", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = s.CheckRateLimit(ctx, ip, "sync", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}
