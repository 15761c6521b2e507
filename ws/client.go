package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"rps-duel-server/auth"
	"rps-duel-server/deck"
	"rps-duel-server/protocol"
	"rps-duel-server/session"
	"rps-duel-server/validate"
	"rps-duel-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between one websocket connection and the
// LobbyRegistry. Grounded on the teacher's Client (same Send channel shape
// and pump pattern); PlayerID/Game/Authenticated are replaced by ConnID, the
// stable identity lobby addresses instead of holding a live pointer into a
// Session.
type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	ConnID string

	// UserID/DisplayName are set by a successful "auth" message. When
	// UserID is non-empty it overrides any client-claimed playerId/
	// playerName on subsequent createLobby/joinLobby/reconnect messages.
	UserID      string
	DisplayName string

	limiter *rate.Limiter
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		ConnID:  uuid.NewString(),
		limiter: rate.NewLimiter(rate.Limit(h.Config.InboundRateLimitPerSec), h.Config.InboundRateLimitBurst),
	}
}

// ReadPump pumps messages from the websocket connection to the lobby
// registry. It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				if c.Hub.log != nil {
					c.Hub.log.Warn("websocket read error", "tag", "ws", "connId", c.ConnID, "err", err)
				}
			}
			break
		}

		// Drop messages over the inbound rate limit rather than closing the
		// connection; a chatty client just stops making progress.
		if !c.limiter.Allow() {
			continue
		}
		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket
// connection. It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch envelope.Type {
	case "auth":
		c.handleAuth(envelope.Raw)
	case "createLobby":
		c.handleCreateLobby(envelope.Raw)
	case "joinLobby":
		c.handleJoinLobby(envelope.Raw)
	case "reconnect":
		c.handleReconnect(envelope.Raw)
	case "previewReady":
		c.dispatch(session.Action{Type: session.ActionPreviewReady})
	case "setSequence":
		c.handleSetSequence(envelope.Raw)
	case "swapCards":
		c.handleSwapCards(envelope.Raw)
	case "skipSwap":
		c.dispatch(session.Action{Type: session.ActionSkipSwap})
	case "continueRound":
		c.dispatch(session.Action{Type: session.ActionContinueRound})
	case "leaveLobby", "playAgain":
		c.handleLeaveLobby()
	default:
		c.sendError("unknown message type: " + envelope.Type)
	}
}

// handleAuth validates an optional bearer token against the configured auth
// base URL and records the asserted identity on the connection. When auth is
// unconfigured, or the message or token is invalid, the connection's identity
// is left unchanged and an error message is sent back.
func (c *Client) handleAuth(raw json.RawMessage) {
	baseURL := c.Hub.Config.AuthBaseURL
	if baseURL == "" {
		c.sendError("server auth not configured")
		return
	}
	var msg protocol.AuthMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Token == "" {
		c.sendError("invalid auth message")
		return
	}
	claims, err := auth.ValidateToken(baseURL, msg.Token)
	if err != nil {
		c.sendError("invalid or expired token")
		return
	}
	c.UserID = auth.PlayerIDFromClaims(claims)
	c.DisplayName = auth.DisplayNameFromClaims(claims)
}

// identity returns the (playerID, playerName) pair to actually use for an
// admission request: the client-claimed values, unless a prior "auth"
// message asserted a stronger identity.
func (c *Client) identity(claimedID, claimedName string) (string, string) {
	if c.UserID != "" {
		return c.UserID, c.DisplayName
	}
	return claimedID, claimedName
}

func (c *Client) handleCreateLobby(raw json.RawMessage) {
	var msg protocol.CreateLobbyMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid createLobby message")
		return
	}
	playerID, playerName := c.identity(msg.PlayerID, msg.PlayerName)
	res, err := c.Hub.Registry.Create(c.ConnID, playerName, playerID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendMsg(protocol.LobbyCreatedMsg{
		Type:       "lobbyCreated",
		LobbyID:    res.Lobby.ID,
		PlayerID:   res.P.ID,
		PlayerName: res.P.Name,
	})
}

func (c *Client) handleJoinLobby(raw json.RawMessage) {
	var msg protocol.JoinLobbyMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid joinLobby message")
		return
	}
	playerID, playerName := c.identity(msg.PlayerID, msg.PlayerName)
	res, err := c.Hub.Registry.Join(c.ConnID, msg.LobbyID, playerName, playerID)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	// A dead sole occupant was just evicted to make room: acknowledge the
	// caller as if they had created the lobby (§4.5).
	if res.SoleOccupant {
		c.sendMsg(protocol.LobbyCreatedMsg{
			Type:       "lobbyCreated",
			LobbyID:    res.Lobby.ID,
			PlayerID:   res.P.ID,
			PlayerName: res.P.Name,
		})
		return
	}

	var opponentName string
	if res.IsRejoin {
		opponentName = res.Lobby.OpponentNameOf(res.P.ID)
	} else {
		opponentName = res.Lobby.AnnounceJoin(res.P.ID)
	}
	c.sendMsg(protocol.LobbyJoinedMsg{
		Type:         "lobbyJoined",
		LobbyID:      res.Lobby.ID,
		PlayerID:     res.P.ID,
		PlayerName:   res.P.Name,
		OpponentName: opponentName,
	})
}

func (c *Client) handleReconnect(raw json.RawMessage) {
	var msg protocol.ReconnectMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("invalid reconnect message")
		return
	}
	playerID := msg.PlayerID
	if c.UserID != "" {
		playerID = c.UserID
	}
	if _, err := c.Hub.Registry.Reconnect(c.ConnID, msg.LobbyID, playerID); err != nil {
		c.sendError(err.Error())
		return
	}
	// The snapshot and opponentReconnected acks are sent from
	// Lobby.OnReconnected once the session's actor loop processes the
	// resulting ActionReconnect.
}

func (c *Client) handleSetSequence(raw json.RawMessage) {
	var msg protocol.SetSequenceMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	hand, ok := c.Hub.Registry.PlayerHand(c.ConnID)
	if !ok {
		return
	}
	seq, ok := resolveSequence(msg.Sequence, hand)
	if !ok {
		return
	}
	c.dispatch(session.Action{Type: session.ActionSetSequence, Sequence: seq})
}

// resolveSequence maps client-submitted card ids back onto the actual dealt
// cards, so Kind survives the round trip rather than just identity, and
// confirms the result is a permutation of hand before it ever reaches the
// Session.
func resolveSequence(ids []int, hand []deck.Card) ([]deck.Card, bool) {
	byID := make(map[int]deck.Card, len(hand))
	for _, card := range hand {
		byID[card.ID] = card
	}
	seq := make([]deck.Card, 0, len(ids))
	for _, id := range ids {
		card, ok := byID[id]
		if !ok {
			return nil, false
		}
		seq = append(seq, card)
	}
	if !validate.Sequence(seq, hand) {
		return nil, false
	}
	return seq, true
}

func (c *Client) handleSwapCards(raw json.RawMessage) {
	var msg protocol.SwapCardsMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	c.dispatch(session.Action{Type: session.ActionSwapCards, Pos1: msg.Pos1, Pos2: msg.Pos2})
}

func (c *Client) handleLeaveLobby() {
	if err := c.Hub.Registry.Leave(c.ConnID); err != nil {
		c.sendError(err.Error())
	}
}

// dispatch forwards an in-game Action to the registry and reports any
// rejection through the error vocabulary §7 specifies for user-initiated
// actions. Actions that arrive outside their valid phase are dropped
// silently inside the Session itself, not here.
func (c *Client) dispatch(a session.Action) {
	if err := c.Hub.Registry.Dispatch(c.ConnID, a); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) sendMsg(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wsutil.SafeSend(c.Send, data)
}

func (c *Client) sendError(message string) {
	c.sendMsg(protocol.ErrorMsg{Type: "error", Message: message})
}
