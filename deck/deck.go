// Package deck models the canonical nine-card deck, its three kinds, and a
// uniform six-card deal.
package deck

import "math/rand"

// Kind is one of the three card kinds.
type Kind int

const (
	Rock Kind = iota
	Paper
	Scissors
)

// String returns the wire representation of a Kind.
func (k Kind) String() string {
	switch k {
	case Rock:
		return "rock"
	case Paper:
		return "paper"
	case Scissors:
		return "scissors"
	default:
		return "unknown"
	}
}

// Color is a display tag derived from Kind; purely cosmetic, never used for
// rule decisions.
func (k Kind) Color() string {
	switch k {
	case Rock:
		return "gray"
	case Paper:
		return "blue"
	case Scissors:
		return "red"
	default:
		return ""
	}
}

// CardsPerKind is the number of copies of each kind in the canonical deck.
const CardsPerKind = 3

// FullDeckSize is the size of the canonical deck (three kinds x CardsPerKind).
const FullDeckSize = 3 * CardsPerKind

// CardsPerPlayer is the number of cards dealt to each player.
const CardsPerPlayer = 6

// Card is immutable once created: a stable identity (unique within a single
// deal) and a kind.
type Card struct {
	ID   int
	Kind Kind
}

// Deck is the canonical nine-card multiset: three of each kind, each with a
// distinct identity.
type Deck struct {
	cards []Card
}

// New builds the canonical nine-card deck. Identities are assigned 0..8 in
// kind order; Deal shuffles before handing any out, so identity order alone
// carries no information to callers.
func New() *Deck {
	cards := make([]Card, 0, FullDeckSize)
	id := 0
	for _, k := range []Kind{Rock, Paper, Scissors} {
		for i := 0; i < CardsPerKind; i++ {
			cards = append(cards, Card{ID: id, Kind: k})
			id++
		}
	}
	return &Deck{cards: cards}
}

// Shuffle returns a uniformly random permutation of cards using Fisher-Yates.
// It is a total function on sequences: it never mutates its input.
func Shuffle(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Deal returns a uniformly shuffled six-card subset of the canonical deck.
func (d *Deck) Deal() []Card {
	shuffled := Shuffle(d.cards)
	hand := make([]Card, CardsPerPlayer)
	copy(hand, shuffled[:CardsPerPlayer])
	return hand
}

// IdentitySet returns the set of card identities in cards, for permutation
// and hand-membership checks.
func IdentitySet(cards []Card) map[int]struct{} {
	set := make(map[int]struct{}, len(cards))
	for _, c := range cards {
		set[c.ID] = struct{}{}
	}
	return set
}

// IsPermutationOf reports whether candidate is a permutation of base by card
// identity: same size, same identity set.
func IsPermutationOf(candidate, base []Card) bool {
	if len(candidate) != len(base) {
		return false
	}
	baseSet := IdentitySet(base)
	seen := make(map[int]struct{}, len(candidate))
	for _, c := range candidate {
		if _, ok := baseSet[c.ID]; !ok {
			return false
		}
		if _, dup := seen[c.ID]; dup {
			return false
		}
		seen[c.ID] = struct{}{}
	}
	return len(seen) == len(baseSet)
}
