package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Entry tracks the device that most recently proved activity for a player
// identity. Entries live only for the process lifetime.
type Entry struct {
	DeviceID     string
	Username     string
	LastActivity time.Time
}

// Decision is the outcome of an admission check. Denial is a normal,
// expected outcome, not an error.
type Decision struct {
	Allowed        bool
	ActiveDeviceID string
	ActiveUsername string
}

// Stats is a read-only snapshot of the registry used by health/admin
// endpoints.
type Stats struct {
	Total   int           `json:"total_sessions"`
	Active  int           `json:"active_sessions"`
	Timeout time.Duration `json:"session_timeout"`
}

// Registry enforces single-device exclusivity per player identity within a
// sliding activity window. The window is deliberately asymmetric: it blocks
// a second concurrent device but always admits a later device once the
// first one goes quiet, so a mobile network drop never locks a player out.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Entry

	timeout    time.Duration
	sweepEvery time.Duration
	log        *zap.Logger

	now  func() time.Time
	done chan struct{}
	wg   sync.WaitGroup
}

// NewRegistry creates a registry with the given activity window. Entries
// idle for 3x the window are garbage-collected by the background sweep.
func NewRegistry(timeout, sweepEvery time.Duration, log *zap.Logger) *Registry {
	return &Registry{
		sessions:   make(map[string]*Entry),
		timeout:    timeout,
		sweepEvery: sweepEvery,
		log:        log,
		now:        time.Now,
		done:       make(chan struct{}),
	}
}

// Admit decides whether the given device may act as the given identity
// right now. On success the registry records the device as the active one;
// on denial nothing changes. The check-then-record sequence is atomic.
func (r *Registry) Admit(identity, deviceID, username string) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	if entry, ok := r.sessions[identity]; ok {
		if now.Sub(entry.LastActivity) < r.timeout && entry.DeviceID != deviceID {
			r.log.Warn("multisession detected",
				zap.String("identity", identity),
				zap.String("active_device", entry.DeviceID),
				zap.String("requesting_device", deviceID))
			return Decision{ActiveDeviceID: entry.DeviceID, ActiveUsername: entry.Username}
		}
	}

	// A player whose local id and Telegram id are not linked yet shows up
	// under two identities; the display name is the only common handle.
	for id, entry := range r.sessions {
		if id == identity || entry.Username != username || username == "" {
			continue
		}
		if now.Sub(entry.LastActivity) < r.timeout && entry.DeviceID != deviceID {
			r.log.Warn("multisession detected via display name",
				zap.String("identity", identity),
				zap.String("colliding_identity", id),
				zap.String("active_device", entry.DeviceID))
			return Decision{ActiveDeviceID: entry.DeviceID, ActiveUsername: entry.Username}
		}
	}

	r.record(identity, deviceID, username, now)
	return Decision{Allowed: true}
}

// record performs a hard takeover: every entry held by this identity or
// this display name is dropped before the fresh entry is inserted. The
// newest device to be admitted always wins; there is no queuing.
// Caller must hold r.mu.
func (r *Registry) record(identity, deviceID, username string, now time.Time) {
	for id, entry := range r.sessions {
		if id == identity || (username != "" && entry.Username == username) {
			delete(r.sessions, id)
		}
	}

	r.sessions[identity] = &Entry{
		DeviceID:     deviceID,
		Username:     username,
		LastActivity: now,
	}
}

// Sweep removes entries idle for longer than 3x the activity window and
// returns how many were dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, entry := range r.sessions {
		if now.Sub(entry.LastActivity) > 3*r.timeout {
			delete(r.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		r.log.Info("swept stale sessions", zap.Int("removed", removed))
	}
	return removed
}

// Stats reports the current session counts.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	active := 0
	for _, entry := range r.sessions {
		if now.Sub(entry.LastActivity) < r.timeout {
			active++
		}
	}

	return Stats{
		Total:   len(r.sessions),
		Active:  active,
		Timeout: r.timeout,
	}
}

// Start launches the periodic sweep. It must be paired with Stop.
func (r *Registry) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.sweepEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-r.done:
				return
			}
		}
	}()
}

// Stop terminates the background sweep and waits for it to exit.
func (r *Registry) Stop() {
	close(r.done)
	r.wg.Wait()
}
