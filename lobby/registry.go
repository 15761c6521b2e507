package lobby

import (
	"log/slog"
	"sync"
	"time"

	"rps-duel-server/config"
	"rps-duel-server/deck"
	"rps-duel-server/duelerrors"
	"rps-duel-server/player"
	"rps-duel-server/reconnect"
	"rps-duel-server/session"
	"rps-duel-server/validate"
)

// LobbyRegistry owns every live Lobby, the shared ReconnectTracker, and the
// connection-id -> lobby-id index used to resolve inbound events (§4.5).
// Mirrors the teacher's Matchmaker: one process-wide registry, guarded by a
// single mutex, created once in main.go.
type LobbyRegistry struct {
	mu        sync.Mutex
	lobbies   map[string]*Lobby
	connLobby map[string]string // connID -> lobbyID

	tracker   *reconnect.Tracker
	cfg       *config.Config
	transport Transport
	log       *slog.Logger
}

// NewRegistry constructs an empty LobbyRegistry. transport is typically
// ws.Hub; log may be nil.
func NewRegistry(cfg *config.Config, transport Transport, log *slog.Logger) *LobbyRegistry {
	return &LobbyRegistry{
		lobbies:   make(map[string]*Lobby),
		connLobby: make(map[string]string),
		tracker:   reconnect.New(),
		cfg:       cfg,
		transport: transport,
		log:       log,
	}
}

// JoinResult reports how a Join/Create call should be acknowledged.
type JoinResult struct {
	Lobby *Lobby
	P     *player.Player
	// IsRejoin means the identity already occupied a roster slot.
	IsRejoin bool
	// SoleOccupant means the caller should be acknowledged as if they had
	// created the lobby, because the prior sole occupant's dead connection
	// was evicted to make room.
	SoleOccupant bool
}

// Create mints a lobby id and seats the caller as its sole occupant (§4.5).
func (r *LobbyRegistry) Create(connID, playerName, playerID string) (*JoinResult, error) {
	name := validate.PlayerName(playerName, r.cfg.MaxNameLength)
	id := playerID
	if id == "" {
		id = freshPlayerID()
	} else if !validate.PlayerID(id) {
		return nil, duelerrors.ErrInvalidPlayerID
	}

	lobbyID, err := r.mintID()
	if err != nil {
		return nil, err
	}

	l := newLobby(lobbyID, r)
	p := player.New(id, name, connID)
	l.roster = append(l.roster, p)
	l.allowedPlayerIds[id] = struct{}{}

	r.mu.Lock()
	r.lobbies[lobbyID] = l
	r.connLobby[connID] = lobbyID
	r.mu.Unlock()

	if r.log != nil {
		r.log.Info("lobby created", "tag", "lobby", "lobbyId", lobbyID, "playerId", id)
	}
	return &JoinResult{Lobby: l, P: p}, nil
}

func (r *LobbyRegistry) mintID() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for attempt := 0; attempt < maxMintAttempts; attempt++ {
		id, err := randomLobbyID()
		if err != nil {
			return "", err
		}
		if _, exists := r.lobbies[id]; !exists {
			return id, nil
		}
	}
	return "", duelerrors.ErrLobbyIDSpaceExhausted
}

// Join seats the caller in an existing lobby, or rejoins it if the supplied
// identity already occupies a slot (§4.5, §4.6 path 1).
func (r *LobbyRegistry) Join(connID, lobbyIDRaw, playerName, playerID string) (*JoinResult, error) {
	lobbyID, ok := validate.LobbyID(lobbyIDRaw)
	if !ok {
		return nil, duelerrors.ErrInvalidLobbyID
	}

	r.mu.Lock()
	l, exists := r.lobbies[lobbyID]
	r.mu.Unlock()
	if !exists {
		return nil, duelerrors.ErrLobbyNotFound
	}

	name := validate.PlayerName(playerName, r.cfg.MaxNameLength)
	if playerID != "" && !validate.PlayerID(playerID) {
		return nil, duelerrors.ErrInvalidPlayerID
	}

	res, err := l.join(connID, name, playerID, r)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.connLobby[connID] = lobbyID
	r.mu.Unlock()

	if r.log != nil {
		r.log.Info("lobby joined", "tag", "lobby", "lobbyId", lobbyID, "playerId", res.P.ID, "rejoin", res.IsRejoin)
	}
	return res, nil
}

// join implements the per-Lobby half of admission: rejoin-by-identity,
// dead-slot eviction, capacity, and allowlist checks (§4.5).
func (l *Lobby) join(connID, name, playerID string, reg *LobbyRegistry) (*JoinResult, error) {
	l.mu.Lock()

	if l.sess != nil && l.sess.Completed {
		l.mu.Unlock()
		return nil, duelerrors.ErrSessionCompleted
	}

	if playerID != "" {
		for i, p := range l.roster {
			if p.ID == playerID {
				p.ConnID = connID
				sess := l.sess
				l.mu.Unlock()
				reg.tracker.Clear(playerID)
				if sess != nil {
					sess.Post(session.Action{Type: session.ActionReconnect, PlayerIdx: i, ConnID: connID})
				}
				return &JoinResult{Lobby: l, P: p, IsRejoin: true}, nil
			}
		}
	}

	switch len(l.roster) {
	case 0:
		id := playerID
		if id == "" {
			id = freshPlayerID()
		}
		p := player.New(id, name, connID)
		l.roster = append(l.roster, p)
		l.allowedPlayerIds[id] = struct{}{}
		l.mu.Unlock()
		return &JoinResult{Lobby: l, P: p, SoleOccupant: true}, nil

	case 1:
		sole := l.roster[0]
		soleWasDead := sole.Disconnected
		if soleWasDead {
			reg.tracker.Clear(sole.ID)
			l.roster = nil
		}
		id := playerID
		if id == "" {
			id = freshPlayerID()
		}
		p := player.New(id, name, connID)
		l.roster = append(l.roster, p)
		l.allowedPlayerIds[id] = struct{}{}
		startNeeded := !soleWasDead && l.allLiveLocked() && l.sess == nil
		l.mu.Unlock()

		if soleWasDead {
			return &JoinResult{Lobby: l, P: p, SoleOccupant: true}, nil
		}
		if startNeeded {
			l.startSession()
		}
		return &JoinResult{Lobby: l, P: p}, nil

	default: // 2
		if l.sess != nil {
			if playerID == "" {
				l.mu.Unlock()
				return nil, duelerrors.ErrNotAllowed
			}
			if _, allowed := l.allowedPlayerIds[playerID]; !allowed {
				l.mu.Unlock()
				return nil, duelerrors.ErrNotAllowed
			}
		}
		l.mu.Unlock()
		return nil, duelerrors.ErrLobbyFull
	}
}

// Reconnect is the explicit reconnect path (§4.6 path 2): it requires a
// live ReconnectTracker entry for (playerID, lobbyID).
func (r *LobbyRegistry) Reconnect(connID, lobbyIDRaw, playerID string) (*JoinResult, error) {
	lobbyID, ok := validate.LobbyID(lobbyIDRaw)
	if !ok {
		return nil, duelerrors.ErrInvalidLobbyID
	}
	if !validate.PlayerID(playerID) {
		return nil, duelerrors.ErrInvalidPlayerID
	}
	if !r.tracker.Has(playerID, lobbyID) {
		return nil, duelerrors.ErrInvalidReconnect
	}

	r.mu.Lock()
	l, exists := r.lobbies[lobbyID]
	r.mu.Unlock()
	if !exists {
		r.tracker.Clear(playerID)
		return nil, duelerrors.ErrLobbyNotFound
	}

	l.mu.Lock()
	idx := -1
	var p *player.Player
	for i, cand := range l.roster {
		if cand.ID == playerID {
			idx, p = i, cand
			break
		}
	}
	if p == nil {
		l.mu.Unlock()
		return nil, duelerrors.ErrInvalidReconnect
	}
	p.ConnID = connID
	sess := l.sess
	l.mu.Unlock()

	r.tracker.Clear(playerID)

	r.mu.Lock()
	r.connLobby[connID] = lobbyID
	r.mu.Unlock()

	if sess != nil {
		sess.Post(session.Action{Type: session.ActionReconnect, PlayerIdx: idx, ConnID: connID})
	}
	return &JoinResult{Lobby: l, P: p, IsRejoin: true}, nil
}

// Dispatch forwards a validated in-game Action from connID to its lobby's
// Session (§4.5 event dispatch). The ws layer is responsible for shape
// validation (§6.3) before calling this.
func (r *LobbyRegistry) Dispatch(connID string, a session.Action) error {
	r.mu.Lock()
	lobbyID, ok := r.connLobby[connID]
	var l *Lobby
	if ok {
		l, ok = r.lobbies[lobbyID]
	}
	r.mu.Unlock()
	if !ok {
		return duelerrors.ErrLobbyNotFound
	}
	return l.dispatch(connID, a)
}

// PlayerHand resolves the hand dealt to the roster slot occupied by connID,
// so ws can translate a client-submitted id ordering into actual deck.Card
// values (with the correct Kind) before posting ActionSetSequence.
func (r *LobbyRegistry) PlayerHand(connID string) ([]deck.Card, bool) {
	r.mu.Lock()
	lobbyID, ok := r.connLobby[connID]
	var l *Lobby
	if ok {
		l, ok = r.lobbies[lobbyID]
	}
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.rosterIdxLocked(connID)
	if idx == -1 {
		return nil, false
	}
	return l.roster[idx].Hand, true
}

// HandleDisconnect is called by the transport when a connection drops. If a
// Session is active it posts ActionDisconnect; otherwise (still in the
// single-occupant admission window) it just marks the roster slot dead so a
// later Join evicts it.
func (r *LobbyRegistry) HandleDisconnect(connID string) {
	r.mu.Lock()
	lobbyID, ok := r.connLobby[connID]
	if ok {
		delete(r.connLobby, connID)
	}
	var l *Lobby
	if ok {
		l, ok = r.lobbies[lobbyID]
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	l.mu.Lock()
	idx := l.rosterIdxLocked(connID)
	var sess *session.Session
	if idx >= 0 {
		sess = l.sess
		if sess == nil {
			l.roster[idx].MarkDisconnected(time.Now().UnixMilli())
		}
	}
	l.mu.Unlock()

	if idx == -1 {
		return
	}
	if sess != nil && !sess.Completed {
		sess.Post(session.Action{Type: session.ActionDisconnect, PlayerIdx: idx, NowUnixMs: time.Now().UnixMilli()})
	}
}

// Leave handles an explicit leaveLobby/playAgain request (§4.5): if a
// Session is active, it ends immediately with the remaining player
// declared winner; otherwise the lobby is simply cleaned up.
func (r *LobbyRegistry) Leave(connID string) error {
	r.mu.Lock()
	lobbyID, ok := r.connLobby[connID]
	var l *Lobby
	if ok {
		l, ok = r.lobbies[lobbyID]
	}
	r.mu.Unlock()
	if !ok {
		return duelerrors.ErrLobbyNotFound
	}

	l.mu.Lock()
	idx := l.rosterIdxLocked(connID)
	var playerID string
	var sess *session.Session
	if idx >= 0 {
		playerID = l.roster[idx].ID
		sess = l.sess
	}
	l.mu.Unlock()

	if idx == -1 {
		return duelerrors.ErrNotAllowed
	}
	r.tracker.Clear(playerID)

	if sess != nil && !sess.Completed {
		sess.Post(session.Action{Type: session.ActionLeave, PlayerIdx: idx})
		return nil
	}
	r.cleanup(lobbyID)
	return nil
}

// onSessionComplete runs on the Session's own actor goroutine, right after
// Run's loop exits (session.Session's onComplete callback).
func (r *LobbyRegistry) onSessionComplete(lobbyID string) {
	r.cleanup(lobbyID)
}

// onReconnectExpired runs on a ReconnectTracker timer goroutine once a
// player's reconnect window lapses without them returning.
func (r *LobbyRegistry) onReconnectExpired(lobbyID string, idx int) {
	r.mu.Lock()
	l, ok := r.lobbies[lobbyID]
	r.mu.Unlock()
	if !ok {
		return
	}
	l.mu.Lock()
	sess := l.sess
	l.mu.Unlock()
	if sess == nil {
		return
	}
	sess.Post(session.Action{Type: session.ActionEndByDisconnect, PlayerIdx: idx})
}

// remainingReconnectSec reports how many seconds are left in playerID's
// reconnect window, or 0 if none is tracked.
func (r *LobbyRegistry) remainingReconnectSec(playerID string) int {
	disconnectedAt, ok := r.tracker.DisconnectedAt(playerID)
	if !ok {
		return 0
	}
	elapsedSec := int((time.Now().UnixMilli() - disconnectedAt) / 1000)
	remaining := r.cfg.ReconnectWindowSec - elapsedSec
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// cleanup removes a lobby and releases everything it held: ReconnectTracker
// entries for its members, the connID index, and the registry entry itself.
// Idempotent (§4.5).
func (r *LobbyRegistry) cleanup(lobbyID string) {
	r.mu.Lock()
	l, ok := r.lobbies[lobbyID]
	if ok {
		delete(r.lobbies, lobbyID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	l.mu.Lock()
	members := append([]*player.Player(nil), l.roster...)
	l.mu.Unlock()

	r.mu.Lock()
	for _, p := range members {
		delete(r.connLobby, p.ConnID)
	}
	r.mu.Unlock()

	for _, p := range members {
		r.tracker.Clear(p.ID)
	}

	if r.log != nil {
		r.log.Info("lobby cleaned up", "tag", "lobby", "lobbyId", lobbyID)
	}
}
