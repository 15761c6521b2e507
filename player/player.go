// Package player holds per-participant mutable state for a duel session:
// hand, committed sequence, score, swap budget, readiness, and liveness.
package player

import "rps-duel-server/deck"

// MaxSwaps is the maximum number of swaps a player may use across a game.
const MaxSwaps = 3

// MaxScore is the number of rounds in a game; score cannot exceed it.
const MaxScore = 6

// Player is a single participant's state within one Session. It does not
// outlive its Session.
type Player struct {
	ID   string
	Name string

	Hand        []deck.Card
	Sequence    []deck.Card
	SequenceSet bool

	Score      int
	SwapsUsed  int
	SwappedThisRound bool

	Ready bool

	Disconnected   bool
	DisconnectedAt int64 // unix millis; meaningful only while Disconnected
	ConnID         string
}

// New creates a Player bound to the given identity, name, and connection.
func New(id, name, connID string) *Player {
	return &Player{ID: id, Name: name, ConnID: connID}
}

// SetHand assigns the dealt hand exactly once per session. Later calls are
// no-ops: the hand is set exactly once by construction (Session.start calls
// it once per player).
func (p *Player) SetHand(hand []deck.Card) {
	if p.Hand != nil {
		return
	}
	p.Hand = hand
}

// SetSequence accepts the committed permutation once it is verified to be a
// permutation of Hand by card identity. Returns false (no mutation) if seq is
// not a valid permutation, or if a sequence has already been set.
func (p *Player) SetSequence(seq []deck.Card) bool {
	if p.SequenceSet {
		return false
	}
	if !deck.IsPermutationOf(seq, p.Hand) {
		return false
	}
	p.Sequence = seq
	p.SequenceSet = true
	return true
}

// CanSwap reports whether the player may still perform a swap this round.
func (p *Player) CanSwap() bool {
	return p.SwapsUsed < MaxSwaps && !p.SwappedThisRound
}

// SwapCards exchanges the cards at absolute sequence positions i and j
// (|i-j| == 1, both within [0, len(Sequence))), iff CanSwap is true. Returns
// false (no mutation) otherwise.
func (p *Player) SwapCards(i, j int) bool {
	if !p.CanSwap() {
		return false
	}
	if i < 0 || j < 0 || i >= len(p.Sequence) || j >= len(p.Sequence) {
		return false
	}
	diff := i - j
	if diff != 1 && diff != -1 {
		return false
	}
	p.Sequence[i], p.Sequence[j] = p.Sequence[j], p.Sequence[i]
	p.SwapsUsed++
	p.SwappedThisRound = true
	return true
}

// ResetRound clears per-round flags at a round boundary.
func (p *Player) ResetRound() {
	p.SwappedThisRound = false
	p.Ready = false
}

// MarkDisconnected toggles liveness off, recording the disconnect time.
func (p *Player) MarkDisconnected(nowUnixMs int64) {
	p.Disconnected = true
	p.DisconnectedAt = nowUnixMs
	p.ConnID = ""
}

// MarkConnected toggles liveness on and rebinds the connection identity.
func (p *Player) MarkConnected(connID string) {
	p.Disconnected = false
	p.DisconnectedAt = 0
	p.ConnID = connID
}

// AddScore increments the player's score for a round win, clamped to
// MaxScore.
func (p *Player) AddScore(n int) {
	p.Score += n
	if p.Score > MaxScore {
		p.Score = MaxScore
	}
}
