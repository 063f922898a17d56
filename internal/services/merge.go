package services

import (
	"time"

	"go.uber.org/zap"

	"sparkcoin-backend/internal/models"
)

// MergeResult is the authoritative record produced from the client snapshot
// plus all candidate rows, and the write it requires. When Insert is false,
// every id in UpdateIDs is overwritten with the merged values so duplicate
// rows converge toward identical content; rows are never deleted, because a
// concurrent request may still be reading one of them.
type MergeResult struct {
	Record    *models.PlayerRecord
	Insert    bool
	UpdateIDs []string
}

// Merger implements the best-of merge: a strict per-field maximum over the
// incoming snapshot and the anchor candidate, so no sync can ever lose
// currency a player already had somewhere.
type Merger struct {
	log *zap.Logger
}

func NewMerger(log *zap.Logger) *Merger {
	return &Merger{log: log}
}

// Merge combines the incoming snapshot with the candidates found by the
// resolver. Candidates must arrive most-recently-updated first; that order
// breaks ties when two candidates hold exactly equal balances.
func (m *Merger) Merge(req *models.SyncRequest, candidates []*models.PlayerRecord, now time.Time) *MergeResult {
	incoming, err := req.ParseUpgrades()
	if err != nil {
		// A corrupt upgrades payload must never deny a balance update;
		// the stored upgrades win instead.
		m.log.Warn("malformed upgrades payload, treating as empty",
			zap.String("username", req.Username), zap.Error(err))
		incoming = models.Upgrades{}
	}

	if len(candidates) == 0 {
		return &MergeResult{Record: m.newRecord(req, incoming, now), Insert: true}
	}

	anchor := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.Balance > anchor.Balance {
			anchor = candidate
		}
	}

	merged := *anchor
	merged.Username = req.Username
	merged.Balance = max(req.Balance, anchor.Balance)
	merged.TotalEarned = max(req.TotalEarned, anchor.TotalEarned)
	if req.TotalClicks > merged.TotalClicks {
		merged.TotalClicks = req.TotalClicks
	}
	merged.Upgrades = mergeUpgrades(incoming, anchor.Upgrades)
	if req.TelegramID != "" {
		merged.TelegramID = req.TelegramID
	}
	if req.DeviceID != "" {
		merged.LastDeviceID = req.DeviceID
	}
	merged.Touch(now)

	updateIDs := make([]string, len(candidates))
	for i, candidate := range candidates {
		updateIDs[i] = candidate.PrimaryID
	}

	return &MergeResult{Record: &merged, UpdateIDs: updateIDs}
}

// Rows converges the merge onto every candidate row: identical content,
// each under its own primary id.
func (r *MergeResult) Rows() []*models.PlayerRecord {
	if r.Insert {
		return []*models.PlayerRecord{r.Record}
	}

	rows := make([]*models.PlayerRecord, len(r.UpdateIDs))
	for i, id := range r.UpdateIDs {
		row := *r.Record
		row.PrimaryID = id
		row.Upgrades = r.Record.Upgrades.Clone()
		rows[i] = &row
	}
	return rows
}

func (m *Merger) newRecord(req *models.SyncRequest, upgrades models.Upgrades, now time.Time) *models.PlayerRecord {
	primaryID := req.UserID
	if primaryID == "" {
		if req.TelegramID != "" {
			primaryID = models.TelegramPrimaryID(req.TelegramID)
		} else {
			primaryID = models.FallbackPrimaryID(now)
		}
	}

	record := &models.PlayerRecord{
		PrimaryID:    primaryID,
		TelegramID:   req.TelegramID,
		Username:     req.Username,
		Balance:      req.Balance,
		TotalEarned:  req.TotalEarned,
		TotalClicks:  req.TotalClicks,
		Upgrades:     upgrades.Clone(),
		ReferralCode: models.NewReferralCode(),
		LastDeviceID: req.DeviceID,
	}
	record.Touch(now)
	return record
}

// mergeUpgrades starts from the incoming map and raises each key present in
// the stored map to the higher of the two levels. Keys only the client
// knows about are kept as-is.
func mergeUpgrades(incoming, stored models.Upgrades) models.Upgrades {
	merged := incoming.Clone()
	for key, level := range stored {
		if level > merged.Level(key) {
			merged[key] = level
		}
	}
	return merged
}
