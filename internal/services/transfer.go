package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sparkcoin-backend/internal/models"
	"sparkcoin-backend/internal/store"
)

// TransferService moves currency between players. It is one of the
// external mutators of balance; all writes go through the same store and
// respect the non-negative balance invariant.
type TransferService struct {
	store   store.Store
	log     *zap.Logger
	metrics MetricsInterface
	events  Broadcaster
}

func NewTransferService(s store.Store, log *zap.Logger, metrics MetricsInterface, events Broadcaster) *TransferService {
	return &TransferService{store: s, log: log, metrics: metrics, events: events}
}

// Transfer debits the sender and credits the recipient atomically, then
// appends a history entry.
func (t *TransferService) Transfer(ctx context.Context, req *models.TransferRequest) error {
	if req.FromUserID == "" || req.ToUserID == "" || req.FromUsername == "" {
		return fmt.Errorf("%w: missing required fields", ErrValidation)
	}
	if req.Amount <= 0 {
		return fmt.Errorf("%w: invalid amount", ErrValidation)
	}

	recipient, err := t.store.Get(ctx, req.ToUserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: recipient not found", ErrValidation)
		}
		return err
	}

	if err := t.store.Transfer(ctx, req.FromUserID, req.ToUserID, req.Amount); err != nil {
		if errors.Is(err, store.ErrInsufficientFunds) {
			return fmt.Errorf("%w: insufficient funds", ErrValidation)
		}
		return err
	}

	entry := &models.TransferLog{
		ID:           models.NewTransferID(),
		FromUserID:   req.FromUserID,
		FromUsername: req.FromUsername,
		ToUserID:     req.ToUserID,
		ToUsername:   recipient.Username,
		Amount:       req.Amount,
		CreatedAt:    time.Now().Unix(),
	}
	if err := t.store.LogTransfer(ctx, entry); err != nil {
		// The transfer itself committed; a missing history row is not
		// worth failing the call over.
		t.log.Warn("failed to log transfer", zap.Error(err))
	}

	t.metrics.IncTransfers()
	t.log.Info("transfer completed",
		zap.String("from", req.FromUsername),
		zap.String("to", recipient.Username),
		zap.Float64("amount", req.Amount))

	t.events.BroadcastLeaderboardChanged()
	return nil
}
