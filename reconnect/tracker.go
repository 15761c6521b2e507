// Package reconnect implements the ReconnectTracker: per-player absence
// records owned by a LobbyRegistry, each carrying an expiry timer and an
// optional delayed-notify timer (§3, §4.6).
package reconnect

import (
	"sync"
	"time"
)

// entry is one player's absence record.
type entry struct {
	lobbyID        string
	disconnectedAt int64
	expiryTimer    *time.Timer
	notifyTimer    *time.Timer
}

// Tracker owns every live ReconnectRecord, keyed by player id.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]*entry)}
}

// Register starts an absence record for playerID in lobbyID. onExpire fires
// once, expiryDelay after Register, unless Clear is called first. If
// notifyDelay > 0, onNotify fires once after notifyDelay, used to delay
// telling the opponent about a transient drop; pass notifyDelay <= 0 for a
// silent entry (the reveal-phase disconnect path, §4.6). A pre-existing
// entry for playerID is replaced.
func (t *Tracker) Register(playerID, lobbyID string, nowUnixMs int64, expiryDelay, notifyDelay time.Duration, onExpire func(), onNotify func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.clearLocked(playerID)

	e := &entry{lobbyID: lobbyID, disconnectedAt: nowUnixMs}
	e.expiryTimer = time.AfterFunc(expiryDelay, func() {
		t.mu.Lock()
		cur, ok := t.entries[playerID]
		isCurrent := ok && cur == e
		if isCurrent {
			delete(t.entries, playerID)
		}
		t.mu.Unlock()
		if isCurrent && onExpire != nil {
			onExpire()
		}
	})
	if notifyDelay > 0 && onNotify != nil {
		e.notifyTimer = time.AfterFunc(notifyDelay, onNotify)
	}
	t.entries[playerID] = e
}

// Has reports whether there is a live entry for (playerID, lobbyID). Used to
// validate the explicit reconnect event path (§8 property 10).
func (t *Tracker) Has(playerID, lobbyID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[playerID]
	return ok && e.lobbyID == lobbyID
}

// Clear cancels any timers and removes the entry for playerID. Idempotent.
func (t *Tracker) Clear(playerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked(playerID)
}

func (t *Tracker) clearLocked(playerID string) {
	e, ok := t.entries[playerID]
	if !ok {
		return
	}
	if e.expiryTimer != nil {
		e.expiryTimer.Stop()
	}
	if e.notifyTimer != nil {
		e.notifyTimer.Stop()
	}
	delete(t.entries, playerID)
}

// DisconnectedAt returns the stored disconnect timestamp for playerID, and
// whether an entry exists.
func (t *Tracker) DisconnectedAt(playerID string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[playerID]
	if !ok {
		return 0, false
	}
	return e.disconnectedAt, true
}
