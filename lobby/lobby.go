// Package lobby implements the LobbyRegistry component (§4.5): admission,
// rejoin, event dispatch, and cleanup for two-player lobbies, plus the Lobby
// type each registry entry owns. Grounded on the teacher's
// matchmaking.Matchmaker (activeGames map, userIDToGame map, Rejoin) and
// generalized from anonymous queue pairing to explicit lobby codes.
package lobby

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"rps-duel-server/config"
	"rps-duel-server/duelerrors"
	"rps-duel-server/player"
	"rps-duel-server/protocol"
	"rps-duel-server/session"
)

// Transport delivers raw wire bytes to a connection, keyed by the
// transport-level connection id (the ws package's Client.ID). Implemented
// by ws.Hub; lobby never touches a websocket directly.
type Transport interface {
	Send(connID string, data []byte)
}

// Lobby holds up to two Players, the allowlist of identities that may ever
// rejoin once a Session has started, and the Session itself once seated.
// Implements session.Sink and session.Hooks so the Session it owns can
// report outbound messages and disconnect/reconnect decisions without
// knowing anything about transport or the registry.
type Lobby struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time

	roster           []*player.Player
	allowedPlayerIds map[string]struct{}

	sess *session.Session

	cfg       *config.Config
	transport Transport
	registry  *LobbyRegistry
	log       *slog.Logger
}

func newLobby(id string, reg *LobbyRegistry) *Lobby {
	return &Lobby{
		ID:               id,
		CreatedAt:        time.Now(),
		allowedPlayerIds: make(map[string]struct{}),
		cfg:              reg.cfg,
		transport:        reg.transport,
		registry:         reg,
		log:              reg.log,
	}
}

// rosterIdxLocked returns the roster slot occupied by connID, or -1.
func (l *Lobby) rosterIdxLocked(connID string) int {
	for i, p := range l.roster {
		if p.ConnID == connID {
			return i
		}
	}
	return -1
}

func (l *Lobby) allLiveLocked() bool {
	if len(l.roster) != 2 {
		return false
	}
	for _, p := range l.roster {
		if p.Disconnected || p.ConnID == "" {
			return false
		}
	}
	return true
}

// startSession constructs and starts a Session for this lobby. Must be
// called without l.mu held: Session.Start emits messages synchronously
// through Sink.Send, which re-locks l.mu.
func (l *Lobby) startSession() {
	l.mu.Lock()
	if l.sess != nil {
		l.mu.Unlock()
		return
	}
	players := [2]*player.Player{l.roster[0], l.roster[1]}
	lobbyID := l.ID
	sess := session.New(lobbyID, players, l.cfg, l, l, func(s *session.Session) {
		l.registry.onSessionComplete(lobbyID)
	})
	l.sess = sess
	l.mu.Unlock()

	sess.Start()
	go sess.Run()
	if l.log != nil {
		l.log.Info("session started", "tag", "lobby", "lobbyId", lobbyID)
	}
}

// --- session.Sink ---

// Send implements session.Sink by resolving a roster slot to its current
// connection id and forwarding through Transport.
func (l *Lobby) Send(playerIdx int, data []byte) {
	l.mu.Lock()
	var connID string
	if playerIdx >= 0 && playerIdx < len(l.roster) {
		connID = l.roster[playerIdx].ConnID
	}
	l.mu.Unlock()
	if connID == "" || l.transport == nil {
		return
	}
	l.transport.Send(connID, data)
}

func (l *Lobby) sendTo(idx int, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	l.Send(idx, data)
}

// --- session.Hooks ---

// OnPaused registers a reconnect window with opponent notification after a
// grace delay (§4.6, standard disconnect).
func (l *Lobby) OnPaused(idx int) {
	l.registerAbsence(idx, true)
}

// OnSilentAbsence registers a reconnect window with no opponent
// notification (§4.6, reveal-phase disconnect).
func (l *Lobby) OnSilentAbsence(idx int) {
	l.registerAbsence(idx, false)
}

func (l *Lobby) registerAbsence(idx int, notify bool) {
	l.mu.Lock()
	if idx < 0 || idx >= len(l.roster) {
		l.mu.Unlock()
		return
	}
	p := l.roster[idx]
	playerID := p.ID
	lobbyID := l.ID
	now := p.DisconnectedAt
	l.mu.Unlock()

	notifyDelay := time.Duration(0)
	if notify {
		notifyDelay = time.Duration(l.cfg.DisconnectNotifyGraceSec) * time.Second
	}
	expiryDelay := time.Duration(l.cfg.ReconnectWindowSec) * time.Second

	var onNotify func()
	if notify {
		onNotify = func() { l.notifyOpponentDisconnected(idx) }
	}
	l.registry.tracker.Register(playerID, lobbyID, now, expiryDelay, notifyDelay,
		func() { l.registry.onReconnectExpired(lobbyID, idx) },
		onNotify,
	)
}

func (l *Lobby) notifyOpponentDisconnected(idx int) {
	l.mu.Lock()
	if idx < 0 || idx >= len(l.roster) {
		l.mu.Unlock()
		return
	}
	playerID := l.roster[idx].ID
	l.mu.Unlock()

	remaining := l.registry.remainingReconnectSec(playerID)
	l.sendTo(1-idx, protocol.OpponentDisconnectedMsg{
		Type:                "opponentDisconnected",
		ReconnectTimeoutSec: remaining,
	})
}

// OnBothDisconnected tears the lobby down immediately with no winner
// declared (§4.6).
func (l *Lobby) OnBothDisconnected() {
	l.registry.cleanup(l.ID)
}

// OnOpponentStillAbsent tells the reconnecting player their opponent's
// remaining reconnect budget instead of resuming (the session does not
// resume until both sides are live).
func (l *Lobby) OnOpponentStillAbsent(idx int) {
	l.mu.Lock()
	opp := l.roster[1-idx].ID
	l.mu.Unlock()
	remaining := l.registry.remainingReconnectSec(opp)
	l.sendTo(idx, protocol.OpponentDisconnectedMsg{
		Type:                "opponentDisconnected",
		ReconnectTimeoutSec: remaining,
	})
}

// OnReconnected sends the returning player a reconnection snapshot and
// tells the opponent they are back.
func (l *Lobby) OnReconnected(idx int) {
	l.mu.Lock()
	sess := l.sess
	l.mu.Unlock()
	if sess == nil {
		return
	}
	l.sendTo(idx, protocol.ReconnectedMsg{
		Type:     "reconnected",
		Snapshot: sess.BuildSnapshot(idx),
	})
	l.sendTo(1-idx, protocol.OpponentReconnectedMsg{Type: "opponentReconnected"})
}

// dispatch forwards a validated Action to this lobby's Session, resolving
// connID to a roster slot first. Returns duelerrors.ErrNotAllowed if connID
// does not occupy a slot, or duelerrors.ErrLobbyNotFound/ErrSessionCompleted
// per §4.5's event-dispatch contract.
func (l *Lobby) dispatch(connID string, a session.Action) error {
	l.mu.Lock()
	if l.sess == nil {
		l.mu.Unlock()
		return duelerrors.ErrLobbyNotFound
	}
	if l.sess.Completed {
		l.mu.Unlock()
		l.registry.cleanup(l.ID)
		return duelerrors.ErrSessionCompleted
	}
	idx := l.rosterIdxLocked(connID)
	sess := l.sess
	l.mu.Unlock()

	if idx == -1 {
		return duelerrors.ErrNotAllowed
	}
	a.PlayerIdx = idx
	sess.Post(a)
	return nil
}

// OpponentNameOf returns the name of the roster occupant other than id, or
// "" if id is the sole occupant.
func (l *Lobby) OpponentNameOf(id string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.roster {
		if p.ID != id {
			return p.Name
		}
	}
	return ""
}

// AnnounceJoin notifies the lobby's other occupant that joinerID just took
// the second seat, and reports that occupant's name back to the caller for
// the joiner's own acknowledgement.
func (l *Lobby) AnnounceJoin(joinerID string) string {
	l.mu.Lock()
	var joiner, opponent *player.Player
	for _, p := range l.roster {
		if p.ID == joinerID {
			joiner = p
		} else {
			opponent = p
		}
	}
	l.mu.Unlock()
	if joiner == nil || opponent == nil {
		return ""
	}
	data, err := json.Marshal(protocol.PlayerJoinedMsg{
		Type:       "playerJoined",
		PlayerID:   joiner.ID,
		PlayerName: joiner.Name,
	})
	if err == nil && l.transport != nil {
		l.transport.Send(opponent.ConnID, data)
	}
	return opponent.Name
}

func freshPlayerID() string {
	return uuid.NewString()
}
