package validate

import (
	"testing"

	"rps-duel-server/deck"
)

func TestPlayerNameTrimsStripsAndTruncates(t *testing.T) {
	if got := PlayerName("  <script>Bob</script>  ", 20); got != "scriptBob/script" {
		t.Errorf("unexpected stripped name: %q", got)
	}
	if got := PlayerName("", 20); got != defaultPlayerName {
		t.Errorf("expected default name for empty input, got %q", got)
	}
	long := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	if got := PlayerName(long, 10); got != long[:10] {
		t.Errorf("expected truncation to 10 chars, got %q", got)
	}
}

func TestLobbyIDNormalizesAndValidates(t *testing.T) {
	id, ok := LobbyID("abcdef")
	if !ok || id != "ABCDEF" {
		t.Errorf("expected ABCDEF valid, got %q ok=%v", id, ok)
	}
	if _, ok := LobbyID("ABCDE"); ok {
		t.Error("expected too-short id to be invalid")
	}
	if _, ok := LobbyID("ABCDE0"); ok {
		t.Error("expected id containing excluded char '0' to be invalid")
	}
	if _, ok := LobbyID("ABCDEI"); ok {
		t.Error("expected id containing excluded char 'I' to be invalid")
	}
}

func TestPlayerIDAcceptedForms(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"123e4567-e89b-12d3-a456-426614174000", true},
		{"player_ab12_cd34", true},
		{"some-generic_id123", true},
		{"", false},
		{"has a space", false},
		{string(make([]byte, 200)), false},
	}
	for _, c := range cases {
		if got := PlayerID(c.id); got != c.want {
			t.Errorf("PlayerID(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestSequenceValidatesPermutation(t *testing.T) {
	hand := []deck.Card{
		{ID: 0, Kind: deck.Rock}, {ID: 1, Kind: deck.Paper},
	}
	perm := []deck.Card{hand[1], hand[0]}
	if !Sequence(perm, hand) {
		t.Error("expected reordering of hand to be a valid sequence")
	}
	if Sequence(hand[:1], hand) {
		t.Error("expected wrong-length sequence to be rejected")
	}
}

func TestSwapPositionsAdjacencyAndBounds(t *testing.T) {
	if !SwapPositions(0, 1, 6, 0) {
		t.Error("expected adjacent in-bounds positions to be valid")
	}
	if SwapPositions(0, 2, 6, 0) {
		t.Error("expected non-adjacent positions to be rejected")
	}
	if SwapPositions(-1, 0, 6, 0) {
		t.Error("expected negative position to be rejected")
	}
	// cardsPerPlayer=6, currentRound=5 -> remaining=1, only position 0 valid, so
	// no pair of positions within [0,1) can be adjacent.
	if SwapPositions(0, 1, 6, 5) {
		t.Error("expected out-of-range position against shrinking remaining frame to be rejected")
	}
}
