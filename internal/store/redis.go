package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sparkcoin-backend/internal/config"
	"sparkcoin-backend/internal/models"
)

// RedisStore keeps player records as JSON values with sorted-set indexes
// for the leaderboards and a set index per telegram id so pre-link
// duplicate rows stay findable.
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisStore(cfg config.Redis, log *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client, log: log}, nil
}

func (s *RedisStore) Get(ctx context.Context, primaryID string) (*models.PlayerRecord, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyPlayer, primaryID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	var record models.PlayerRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}
	return &record, nil
}

func (s *RedisStore) GetByTelegramID(ctx context.Context, telegramID string) ([]*models.PlayerRecord, error) {
	ids, err := s.client.SMembers(ctx, fmt.Sprintf(KeyTelegramIndex, telegramID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read telegram index: %w", err)
	}
	return s.bulkGet(ctx, ids)
}

func (s *RedisStore) bulkGet(ctx context.Context, ids []string) ([]*models.PlayerRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyPlayer, id))
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	var records []*models.PlayerRecord
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			// Index entries may outlive their record; skip them.
			continue
		}

		var record models.PlayerRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			s.log.Warn("skipping corrupt player record", zap.Error(err))
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

// UpsertAll writes all records plus their index entries inside one
// MULTI/EXEC transaction, so converging duplicate rows is all-or-nothing.
func (s *RedisStore) UpsertAll(ctx context.Context, records []*models.PlayerRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx := s.client.TxPipeline()
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal player: %w", err)
		}

		tx.Set(ctx, fmt.Sprintf(KeyPlayer, record.PrimaryID), data, 0)
		tx.SAdd(ctx, KeyPlayers, record.PrimaryID)
		if record.TelegramID != "" {
			tx.SAdd(ctx, fmt.Sprintf(KeyTelegramIndex, record.TelegramID), record.PrimaryID)
		}
		tx.ZAdd(ctx, KeyLeaderboardBalance, redis.Z{Score: record.Balance, Member: record.PrimaryID})
		tx.ZAdd(ctx, KeyLeaderboardEarned, redis.Z{Score: record.TotalEarned, Member: record.PrimaryID})
	}

	if _, err := tx.Exec(ctx); err != nil {
		return fmt.Errorf("failed to upsert players: %w", err)
	}
	return nil
}

func (s *RedisStore) Top(ctx context.Context, by string, limit int64) ([]*models.PlayerRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	key := KeyLeaderboardBalance
	if by == ByEarned {
		key = KeyLeaderboardEarned
	}

	ids, err := s.client.ZRevRange(ctx, key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return s.bulkGet(ctx, ids)
}

func (s *RedisStore) Count(ctx context.Context) (int64, error) {
	return s.client.SCard(ctx, KeyPlayers).Result()
}

var transferScript = redis.NewScript(`
	local amount = tonumber(ARGV[1])

	local from = redis.call("GET", KEYS[1])
	if not from then
		return redis.error_reply("sender not found")
	end
	local to = redis.call("GET", KEYS[2])
	if not to then
		return redis.error_reply("recipient not found")
	end

	local sender = cjson.decode(from)
	local receiver = cjson.decode(to)

	if sender.balance < amount then
		return redis.error_reply("insufficient funds")
	end

	sender.balance = sender.balance - amount
	sender.transfers_sent = (sender.transfers_sent or 0) + amount
	receiver.balance = receiver.balance + amount
	receiver.transfers_received = (receiver.transfers_received or 0) + amount

	redis.call("SET", KEYS[1], cjson.encode(sender))
	redis.call("SET", KEYS[2], cjson.encode(receiver))
	redis.call("ZADD", KEYS[3], sender.balance, sender.user_id)
	redis.call("ZADD", KEYS[3], receiver.balance, receiver.user_id)

	return "OK"
`)

func (s *RedisStore) Transfer(ctx context.Context, fromID, toID string, amount float64) error {
	err := transferScript.Run(ctx, s.client, []string{
		fmt.Sprintf(KeyPlayer, fromID),
		fmt.Sprintf(KeyPlayer, toID),
		KeyLeaderboardBalance,
	}, amount).Err()

	switch {
	case err == nil:
		return nil
	case strings.Contains(err.Error(), "insufficient funds"):
		return ErrInsufficientFunds
	case strings.Contains(err.Error(), "not found"):
		return ErrNotFound
	default:
		return fmt.Errorf("transfer failed: %w", err)
	}
}

func (s *RedisStore) LogTransfer(ctx context.Context, entry *models.TransferLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal transfer: %w", err)
	}

	if err := s.client.Set(ctx, fmt.Sprintf(KeyTransfer, entry.ID), data, 30*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to save transfer: %w", err)
	}

	if err := s.client.ZAdd(ctx, KeyTransferLog, redis.Z{
		Score:  float64(entry.CreatedAt),
		Member: entry.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to index transfer: %w", err)
	}

	s.client.ZRemRangeByRank(ctx, KeyTransferLog, 0, -(transferLogMax + 1))
	return nil
}

func (s *RedisStore) CheckRateLimit(ctx context.Context, id, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, id, action)

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
