// Package protocol defines the wire schema exchanged with clients: inbound
// event payloads (§6.1) and outbound event payloads (§6.2). It has no
// knowledge of lobby or session behavior; it is the shared vocabulary that
// lets session, lobby, and ws talk about the same events without importing
// one another.
package protocol

import "rps-duel-server/deck"

// --- Inbound payloads (client -> server), matched by envelope Type. ---

// CreateLobbyMsg seats the caller in a freshly minted lobby.
type CreateLobbyMsg struct {
	Type       string `json:"type"`
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId,omitempty"`
}

// JoinLobbyMsg seats the caller in an existing lobby, or rejoins it.
type JoinLobbyMsg struct {
	Type       string `json:"type"`
	LobbyID    string `json:"lobbyId"`
	PlayerName string `json:"playerName"`
	PlayerID   string `json:"playerId,omitempty"`
}

// SetSequenceMsg commits the caller's permutation of their hand.
type SetSequenceMsg struct {
	Type     string `json:"type"`
	Sequence []int  `json:"sequence"` // card ids, in the caller's chosen order
}

// SwapCardsMsg requests a swap of two adjacent positions in the
// remaining-cards frame (position 0 = next card to play).
type SwapCardsMsg struct {
	Type string `json:"type"`
	Pos1 int    `json:"pos1"`
	Pos2 int    `json:"pos2"`
}

// ReconnectMsg explicitly reattaches a connection to a prior identity.
type ReconnectMsg struct {
	Type     string `json:"type"`
	LobbyID  string `json:"lobbyId"`
	PlayerID string `json:"playerId"`
}

// AuthMsg carries an optional bearer token asserting the caller's identity.
// Never required. Only acted on when the server has an auth base URL
// configured; otherwise it is answered with an error and changes nothing.
type AuthMsg struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// --- Shared wire shapes. ---

// CardWire is the wire representation of a deck.Card.
type CardWire struct {
	ID    int    `json:"id"`
	Kind  string `json:"kind"`
	Color string `json:"color"`
}

// CardsWire converts a slice of domain cards to their wire representation.
func CardsWire(cards []deck.Card) []CardWire {
	out := make([]CardWire, len(cards))
	for i, c := range cards {
		out[i] = CardWire{ID: c.ID, Kind: c.Kind.String(), Color: c.Kind.Color()}
	}
	return out
}

// RoundResultWire is the wire representation of one session.RoundResult, as
// seen from one specific player's point of view.
type RoundResultWire struct {
	Round         int      `json:"round"`
	YourCard      CardWire `json:"yourCard"`
	OpponentCard  CardWire `json:"opponentCard"`
	WinnerID      string   `json:"winnerId,omitempty"`
	Explanation   string   `json:"explanation"`
	YourScore     int      `json:"yourScore"`
	OpponentScore int      `json:"opponentScore"`
}

// --- Outbound payloads (server -> client). Each carries its own Type. ---

type LobbyCreatedMsg struct {
	Type       string `json:"type"`
	LobbyID    string `json:"lobbyId"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type LobbyJoinedMsg struct {
	Type         string `json:"type"`
	LobbyID      string `json:"lobbyId"`
	PlayerID     string `json:"playerId"`
	PlayerName   string `json:"playerName"`
	OpponentName string `json:"opponentName,omitempty"`
}

type PlayerJoinedMsg struct {
	Type       string `json:"type"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type CardsPreviewMsg struct {
	Type            string     `json:"type"`
	Hand            []CardWire `json:"hand"`
	OpponentHand    []CardWire `json:"opponentHand"`
	PreviewLimitSec int        `json:"previewLimitSec"`
	TotalRounds     int        `json:"totalRounds"`
}

type PreviewTimerUpdateMsg struct {
	Type         string `json:"type"`
	SecondsLeft  int    `json:"secondsLeft"`
}

type OpponentPreviewReadyMsg struct {
	Type string `json:"type"`
}

type GameStartMsg struct {
	Type        string `json:"type"`
	TotalRounds int    `json:"totalRounds"`
}

type SequenceConfirmedMsg struct {
	Type string `json:"type"`
}

type RoundStartMsg struct {
	Type           string     `json:"type"`
	Round          int        `json:"round"`
	SwapLimitSec   int        `json:"swapLimitSec"`
	Remaining      []CardWire `json:"remaining"`
	SwapsUsed      int        `json:"swapsUsed"`
	SwapsRemaining int        `json:"swapsRemaining"`
}

type TimerUpdateMsg struct {
	Type        string `json:"type"`
	Phase       string `json:"phase"`
	SecondsLeft int    `json:"secondsLeft"`
}

type SwapConfirmedMsg struct {
	Type      string     `json:"type"`
	Remaining []CardWire `json:"remaining"`
	SwapsUsed int        `json:"swapsUsed"`
}

type SwapErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type SkipConfirmedMsg struct {
	Type string `json:"type"`
}

type OpponentSwappedMsg struct {
	Type string `json:"type"`
}

type RoundResultMsg struct {
	Type   string          `json:"type"`
	Result RoundResultWire `json:"result"`
}

type ContinueCountdownMsg struct {
	Type        string `json:"type"`
	SecondsLeft int    `json:"secondsLeft"`
}

type OpponentContinuedMsg struct {
	Type string `json:"type"`
}

type GameEndMsg struct {
	Type          string `json:"type"`
	WinnerID      string `json:"winnerId,omitempty"`
	YouWon        bool   `json:"youWon"`
	ByDisconnect  bool   `json:"byDisconnect"`
	YourScore     int    `json:"yourScore"`
	OpponentScore int    `json:"opponentScore"`
}

type OpponentDisconnectedMsg struct {
	Type                string `json:"type"`
	ReconnectTimeoutSec int    `json:"reconnectTimeoutSec"`
}

type OpponentReconnectedMsg struct {
	Type string `json:"type"`
}

type OpponentLeftMsg struct {
	Type string `json:"type"`
}

type GameResumedMsg struct {
	Type string `json:"type"`
}

// SnapshotMsg is the reconnection state snapshot (§4.4): everything a
// returning client needs to resync without replaying history.
type SnapshotMsg struct {
	Type              string            `json:"type"`
	Phase             string            `json:"phase"`
	CurrentRound      int               `json:"currentRound"`
	YourID            string            `json:"yourId"`
	YourName          string            `json:"yourName"`
	OpponentID        string            `json:"opponentId"`
	OpponentName      string            `json:"opponentName"`
	YourScore         int               `json:"yourScore"`
	YourSwapsUsed     int               `json:"yourSwapsUsed"`
	OpponentScore     int               `json:"opponentScore"`
	OpponentSwapsUsed int               `json:"opponentSwapsUsed"`
	RoundHistory      []RoundResultWire `json:"roundHistory"`
	RemainingTimeSec  int               `json:"remainingTimeSec"`
	Hand              []CardWire        `json:"hand"`
	UpcomingCards     []CardWire        `json:"upcomingCards"`
	YourReady         bool              `json:"yourReady"`
	OpponentReady     bool              `json:"opponentReady"`
	OpponentHand      []CardWire        `json:"opponentHand,omitempty"`
}

type ReconnectedMsg struct {
	Type     string      `json:"type"`
	Snapshot SnapshotMsg `json:"snapshot"`
}

type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
