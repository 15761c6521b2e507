// Package duelerrors holds sentinel errors shared across lobby, session, and
// ws so each can use errors.Is without importing one another (avoids
// circular deps), matching the teacher's matcherrors package.
package duelerrors

import "errors"

var (
	// ErrLobbyNotFound means the lobby id does not resolve to a live lobby.
	ErrLobbyNotFound = errors.New("lobby not found")
	// ErrLobbyFull means both roster slots are occupied by identities other
	// than the caller.
	ErrLobbyFull = errors.New("lobby is full")
	// ErrSessionCompleted means the lobby's session has already ended.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrNotAllowed means a session has started and the caller's identity
	// never occupied a roster slot (not in allowedPlayerIds).
	ErrNotAllowed = errors.New("not allowed to join this lobby")
	// ErrInvalidLobbyID means the lobby id failed §6.3 validation.
	ErrInvalidLobbyID = errors.New("invalid lobby id")
	// ErrInvalidPlayerID means the player id failed §6.3 validation.
	ErrInvalidPlayerID = errors.New("invalid player id")
	// ErrInvalidReconnect means there is no ReconnectTracker entry for the
	// given (identity, lobby id) pair.
	ErrInvalidReconnect = errors.New("invalid reconnection attempt")
	// ErrNotYourTurn/ErrWrongPhase are illegal-transition conditions that
	// callers at the transport boundary drop silently per §7.
	ErrNotYourTurn = errors.New("not your turn in this phase")
	ErrWrongPhase  = errors.New("action not valid in the current phase")
	// ErrSwapBudgetExhausted / ErrNonAdjacentSwap / ErrCardAlreadyPlayed are
	// rule violations reported to the caller via swapError (§7).
	ErrSwapBudgetExhausted = errors.New("no swaps remaining")
	ErrNonAdjacentSwap     = errors.New("swap positions must be adjacent")
	ErrCardAlreadyPlayed   = errors.New("cannot swap a card that has already been played")
	ErrInvalidSwapPosition = errors.New("swap position out of range")
	// ErrLobbyIDSpaceExhausted means lobby id minting could not find an
	// unused id within a bounded number of attempts.
	ErrLobbyIDSpaceExhausted = errors.New("could not mint a unique lobby id")
)
