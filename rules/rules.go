// Package rules holds the trivial win relation over card kinds. Deliberately
// kept to a single function: the game's difficulty lives in session
// lifecycle, not rule complexity.
package rules

import "rps-duel-server/deck"

// Outcome is the result of comparing two cards.
type Outcome int

const (
	Draw Outcome = iota
	LeftWins
	RightWins
)

// Compare applies rock beats scissors, scissors beats paper, paper beats
// rock; equal kinds draw.
func Compare(left, right deck.Kind) Outcome {
	if left == right {
		return Draw
	}
	switch left {
	case deck.Rock:
		if right == deck.Scissors {
			return LeftWins
		}
	case deck.Scissors:
		if right == deck.Paper {
			return LeftWins
		}
	case deck.Paper:
		if right == deck.Rock {
			return LeftWins
		}
	}
	return RightWins
}
