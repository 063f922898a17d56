package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sparkcoin-backend/internal/config"
	"sparkcoin-backend/internal/models"
	"sparkcoin-backend/internal/session"
	"sparkcoin-backend/internal/store"
)

var (
	// ErrValidation marks a malformed or out-of-range snapshot. No state
	// is mutated.
	ErrValidation = errors.New("validation error")

	// ErrMultisessionBlocked marks a sync denied because another device is
	// active for the same identity. It is a designed outcome, not a
	// fault, and guarantees the store was not touched.
	ErrMultisessionBlocked = errors.New("multisession blocked")

	// ErrStoreBusy marks a sync that could not acquire its identity lock
	// in time. Callers should retry.
	ErrStoreBusy = errors.New("store busy, retry")
)

// SyncService ties the session registry, identity resolver, merge engine
// and state store into the single externally-callable sync operation.
type SyncService struct {
	store    store.Store
	registry *session.Registry
	resolver *Resolver
	merger   *Merger
	locks    *identityLocks

	bounds      models.Bounds
	lockTimeout time.Duration

	log     *zap.Logger
	metrics MetricsInterface
	events  Broadcaster

	now func() time.Time
}

func NewSyncService(s store.Store, registry *session.Registry, cfg config.Game, log *zap.Logger, metrics MetricsInterface, events Broadcaster) *SyncService {
	return &SyncService{
		store:    s,
		registry: registry,
		resolver: NewResolver(s),
		merger:   NewMerger(log),
		locks:    newIdentityLocks(),
		bounds: models.Bounds{
			MaxBalance: cfg.MaxBalance,
			MaxEarned:  cfg.MaxEarned,
			MaxClicks:  cfg.MaxClicks,
			MaxUpgrade: cfg.MaxUpgrade,
		},
		lockTimeout: cfg.LockTimeout,
		log:         log,
		metrics:     metrics,
		events:      events,
		now:         time.Now,
	}
}

// Sync validates the snapshot, admits the device, resolves candidate rows,
// merges and persists. A denied device is turned away before any store
// access, so it can never overwrite the active device's state.
func (s *SyncService) Sync(ctx context.Context, req *models.SyncRequest) (*models.SyncResponse, error) {
	if err := req.Validate(s.bounds); err != nil {
		s.metrics.IncSyncs(models.ErrCodeValidation)
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if req.TelegramID != "" {
		decision := s.registry.Admit(req.TelegramID, req.DeviceID, req.Username)
		if !decision.Allowed {
			s.metrics.IncSyncs(models.ErrCodeMultisession)
			// The attempted balance is logged for audit but deliberately
			// not persisted.
			s.log.Warn("multisession sync attempt",
				zap.String("telegram_id", req.TelegramID),
				zap.String("username", req.Username),
				zap.String("device_id", req.DeviceID),
				zap.String("active_device", decision.ActiveDeviceID),
				zap.Float64("attempted_balance", req.Balance))
			return nil, ErrMultisessionBlocked
		}
	}

	lockKey := req.TelegramID
	if lockKey == "" {
		lockKey = req.UserID
	}
	if !s.locks.acquire(lockKey, s.lockTimeout) {
		s.metrics.IncSyncs(models.ErrCodeStorage)
		return nil, fmt.Errorf("%w: identity %s", ErrStoreBusy, lockKey)
	}
	defer s.locks.release(lockKey)

	candidates, err := s.resolver.FindCandidates(ctx, req.UserID, req.TelegramID)
	if err != nil {
		s.metrics.IncSyncs(models.ErrCodeStorage)
		return nil, err
	}
	s.metrics.ObserveCandidates(len(candidates))

	result := s.merger.Merge(req, candidates, s.now())

	if err := s.store.UpsertAll(ctx, result.Rows()); err != nil {
		s.metrics.IncSyncs(models.ErrCodeStorage)
		return nil, err
	}

	s.metrics.IncSyncs("ok")
	s.log.Info("sync completed",
		zap.String("user_id", result.Record.PrimaryID),
		zap.String("username", req.Username),
		zap.Float64("balance", result.Record.Balance),
		zap.Int("candidates", len(candidates)),
		zap.Bool("created", result.Insert))

	s.events.BroadcastBalance(result.Record.PrimaryID, result.Record.Balance)
	s.events.BroadcastLeaderboardChanged()

	return &models.SyncResponse{
		Success:       true,
		Message:       "Sync successful",
		UserID:        result.Record.PrimaryID,
		BestBalance:   result.Record.Balance,
		UpgradesCount: len(result.Record.Upgrades),
	}, nil
}

// CheckSession is the admission pre-check used by clients before loading
// the game; it records the device as active on success.
func (s *SyncService) CheckSession(req *models.SessionCheckRequest) *models.SessionCheckResponse {
	decision := s.registry.Admit(req.TelegramID, req.DeviceID, req.Username)
	if !decision.Allowed {
		return &models.SessionCheckResponse{
			Error:   models.ErrCodeMultisession,
			Message: "Active session detected on another device",
		}
	}
	return &models.SessionCheckResponse{
		Success: true,
		Allowed: true,
		Message: "Session access granted",
	}
}

// GetPlayer returns the freshest record reachable from either identifier.
func (s *SyncService) GetPlayer(ctx context.Context, primaryID, telegramID string) (*models.PlayerRecord, error) {
	candidates, err := s.resolver.FindCandidates(ctx, primaryID, telegramID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, store.ErrNotFound
	}

	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.Balance > best.Balance {
			best = candidate
		}
	}
	return best, nil
}
