// Package validate is the pure input-shape layer (§6.3): it sanitizes and
// checks client-supplied values before they reach a Lobby or Session. It
// never mutates game state and has no knowledge of phases or rules beyond
// shape.
package validate

import (
	"regexp"
	"strings"

	"rps-duel-server/deck"
)

// LobbyAlphabet is the ambiguity-free alphabet lobby ids are drawn from:
// it excludes 0/O/1/I/L.
const LobbyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// LobbyIDLength is the fixed length of a lobby id.
const LobbyIDLength = 6

const defaultPlayerName = "Player"

var uuidShaped = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)
var generatedPlayerID = regexp.MustCompile(`^player_[a-z0-9]+_[a-z0-9]+$`)
var genericPlayerID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)
var strippedChars = regexp.MustCompile(`[<>"'&]`)

// PlayerName trims, truncates to maxLen characters, strips `< > " ' &`, and
// falls back to a default if the result is empty.
func PlayerName(raw string, maxLen int) string {
	name := strings.TrimSpace(raw)
	name = strippedChars.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if runes := []rune(name); len(runes) > maxLen {
		name = string(runes[:maxLen])
	}
	if name == "" {
		return defaultPlayerName
	}
	return name
}

// LobbyID uppercases raw and reports whether the result is exactly
// LobbyIDLength characters, every one drawn from LobbyAlphabet. Returns the
// normalized id and whether it is valid.
func LobbyID(raw string) (string, bool) {
	id := strings.ToUpper(strings.TrimSpace(raw))
	if len(id) != LobbyIDLength {
		return id, false
	}
	for _, r := range id {
		if !strings.ContainsRune(LobbyAlphabet, r) {
			return id, false
		}
	}
	return id, true
}

// PlayerID reports whether raw is an acceptable player identity: either a
// 36-character UUID-shaped string, a generated "player_x_y" id, or any
// alphanumeric/underscore/hyphen string of at most 100 characters.
func PlayerID(raw string) bool {
	if raw == "" {
		return false
	}
	if uuidShaped.MatchString(raw) {
		return true
	}
	if generatedPlayerID.MatchString(raw) {
		return true
	}
	return genericPlayerID.MatchString(raw)
}

// Sequence reports whether seq is an ordered permutation of hand, matching
// length and card identity set.
func Sequence(seq, hand []deck.Card) bool {
	if len(seq) != len(hand) {
		return false
	}
	return deck.IsPermutationOf(seq, hand)
}

// SwapPositions reports whether pos1 and pos2 are a legal swap request in
// the remaining-cards frame: both non-negative, both strictly less than
// cardsPerPlayer-currentRound, and exactly 1 apart.
func SwapPositions(pos1, pos2, cardsPerPlayer, currentRound int) bool {
	remaining := cardsPerPlayer - currentRound
	if pos1 < 0 || pos2 < 0 {
		return false
	}
	if pos1 >= remaining || pos2 >= remaining {
		return false
	}
	diff := pos1 - pos2
	if diff < 0 {
		diff = -diff
	}
	return diff == 1
}
