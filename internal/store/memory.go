package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"sparkcoin-backend/internal/models"
)

// MemoryStore is an in-process Store used by tests and as a fallback when
// Redis is not configured. Behavior mirrors RedisStore, including the
// atomicity of UpsertAll and Transfer.
type MemoryStore struct {
	mu        sync.RWMutex
	players   map[string]models.PlayerRecord
	transfers []models.TransferLog
	hits      map[string]*rateWindow
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[string]models.PlayerRecord),
		hits:    make(map[string]*rateWindow),
	}
}

func (s *MemoryStore) Get(_ context.Context, primaryID string) (*models.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.players[primaryID]
	if !ok {
		return nil, ErrNotFound
	}
	out := record
	out.Upgrades = record.Upgrades.Clone()
	return &out, nil
}

func (s *MemoryStore) GetByTelegramID(_ context.Context, telegramID string) ([]*models.PlayerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*models.PlayerRecord
	for _, record := range s.players {
		if record.TelegramID == telegramID {
			out := record
			out.Upgrades = record.Upgrades.Clone()
			records = append(records, &out)
		}
	}
	return records, nil
}

func (s *MemoryStore) UpsertAll(_ context.Context, records []*models.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range records {
		stored := *record
		stored.Upgrades = record.Upgrades.Clone()
		s.players[record.PrimaryID] = stored
	}
	return nil
}

func (s *MemoryStore) Top(_ context.Context, by string, limit int64) ([]*models.PlayerRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	s.mu.RLock()
	records := make([]*models.PlayerRecord, 0, len(s.players))
	for _, record := range s.players {
		out := record
		records = append(records, &out)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if by == ByEarned {
			return records[i].TotalEarned > records[j].TotalEarned
		}
		return records[i].Balance > records[j].Balance
	})

	if int64(len(records)) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.players)), nil
}

func (s *MemoryStore) Transfer(_ context.Context, fromID, toID string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sender, ok := s.players[fromID]
	if !ok {
		return ErrNotFound
	}
	receiver, ok := s.players[toID]
	if !ok {
		return ErrNotFound
	}
	if sender.Balance < amount {
		return ErrInsufficientFunds
	}

	sender.Balance -= amount
	sender.TransfersSent += amount
	receiver.Balance += amount
	receiver.TransfersReceived += amount

	s.players[fromID] = sender
	s.players[toID] = receiver
	return nil
}

func (s *MemoryStore) LogTransfer(_ context.Context, entry *models.TransferLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transfers = append(s.transfers, *entry)
	if len(s.transfers) > transferLogMax {
		s.transfers = s.transfers[len(s.transfers)-transferLogMax:]
	}
	return nil
}

func (s *MemoryStore) CheckRateLimit(_ context.Context, id, action string, limit int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := id + ":" + action
	now := time.Now()

	w, ok := s.hits[key]
	if !ok || now.After(w.resetAt) {
		s.hits[key] = &rateWindow{count: 1, resetAt: now.Add(window)}
		return true, nil
	}

	w.count++
	return w.count <= limit, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
