package lobby

import (
	crand "crypto/rand"

	"rps-duel-server/validate"
)

// maxMintAttempts bounds rejection sampling against a live registry; with a
// 32-symbol, 6-character alphabet the collision odds make this generous
// bound effectively unreachable, but an honest error beats an infinite loop.
const maxMintAttempts = 64

// randomLobbyID draws LobbyIDLength characters from validate.LobbyAlphabet
// using crypto/rand rejection sampling, avoiding modulo bias: any byte that
// would wrap unevenly across the 32-symbol alphabet is discarded and
// redrawn, matching the teacher's own use of crypto/rand for unbiased random
// tokens (generateRejoinToken in matchmaker.go, there via hex encoding
// instead of a custom alphabet).
func randomLobbyID() (string, error) {
	alphabet := validate.LobbyAlphabet
	n := len(alphabet)
	limit := (256 / n) * n

	out := make([]byte, 0, validate.LobbyIDLength)
	buf := make([]byte, validate.LobbyIDLength)
	for len(out) < validate.LobbyIDLength {
		if _, err := crand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if len(out) == validate.LobbyIDLength {
				break
			}
			if int(b) >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%n])
		}
	}
	return string(out), nil
}
