// Package statemachine implements the Session's phase sequencing: legal
// transitions, pause/resume, and a single deferred-action slot.
package statemachine

import "fmt"

// Phase is one state of a Session.
type Phase int

const (
	Waiting Phase = iota
	Preview
	Sequence
	RoundStart
	Swap
	Reveal
	Paused
	GameOver
)

// String returns the wire representation of a Phase.
func (p Phase) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case Preview:
		return "preview"
	case Sequence:
		return "sequence"
	case RoundStart:
		return "round_start"
	case Swap:
		return "swap"
	case Reveal:
		return "reveal"
	case Paused:
		return "paused"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// PendingAction is the single token the machine may hold while paused,
// honored on resume. StartRound is the only currently defined token.
type PendingAction string

// StartRound is requested when a round transition is deferred because a
// player is disconnected at the moment it would otherwise fire.
const StartRound PendingAction = "startRound"

// legal holds every allowed from->to transition except pause/resume/endGame,
// which have their own dedicated methods below.
var legal = map[Phase]map[Phase]bool{
	Waiting:    {Preview: true},
	Preview:    {Sequence: true},
	Sequence:   {RoundStart: true},
	RoundStart: {Swap: true},
	Swap:       {Reveal: true},
	Reveal:     {RoundStart: true, GameOver: true},
}

// ProgrammerError is raised when a caller requests a transition while the
// machine is paused, or otherwise misuses the API. Per spec §4.2 this is a
// programmer error, not a recoverable game condition. Transition returns it
// as an error value and never panics; Session discards the errors its
// Transition calls return, so none reaches the transport layer.
type ProgrammerError struct {
	Msg string
}

func (e *ProgrammerError) Error() string { return e.Msg }

// Machine is a SessionStateMachine: current phase, saved phase for pause,
// paused flag, and a single-slot pending action.
type Machine struct {
	current Phase
	saved   Phase
	paused  bool
	pending *PendingAction
}

// New creates a Machine in the initial Waiting phase.
func New() *Machine {
	return &Machine{current: Waiting}
}

// Current returns the actual phase, ignoring Paused: while paused, this
// returns the phase that was saved when Pause was called, matching spec
// §4.4's reconnection-snapshot requirement ("the actual phase, ignoring
// paused").
func (m *Machine) Current() Phase {
	if m.paused {
		return m.saved
	}
	return m.current
}

// IsPaused reports whether the machine is currently paused.
func (m *Machine) IsPaused() bool {
	return m.paused
}

// Transition moves the machine from its current phase to to, iff that edge
// is legal. Rejected while paused (ProgrammerError) or if the edge is not in
// the legal table. Returns nil on success.
func (m *Machine) Transition(to Phase) error {
	if m.paused {
		return &ProgrammerError{Msg: fmt.Sprintf("transition to %s requested while paused", to)}
	}
	if m.current == GameOver {
		return &ProgrammerError{Msg: "transition requested from terminal game_over phase"}
	}
	if !legal[m.current][to] {
		return &ProgrammerError{Msg: fmt.Sprintf("illegal transition %s -> %s", m.current, to)}
	}
	m.current = to
	return nil
}

// Pause saves the current phase and enters Paused. No-op if already paused
// or terminal.
func (m *Machine) Pause() {
	if m.paused || m.current == GameOver {
		return
	}
	m.saved = m.current
	m.paused = true
}

// Resume restores the saved phase exactly once. No-op if not paused.
func (m *Machine) Resume() {
	if !m.paused {
		return
	}
	m.current = m.saved
	m.paused = false
}

// SetPendingAction sets the single pending-action slot. Intended to be
// called only while paused, when a transition was requested mid-pause.
func (m *Machine) SetPendingAction(a PendingAction) {
	m.pending = &a
}

// TakePendingAction returns and clears the pending action, or ("", false) if
// none is set. Consumed on resume.
func (m *Machine) TakePendingAction() (PendingAction, bool) {
	if m.pending == nil {
		return "", false
	}
	a := *m.pending
	m.pending = nil
	return a, true
}

// EndGame forces the terminal phase regardless of paused state. No
// transition is legal out of GameOver afterward.
func (m *Machine) EndGame() {
	m.paused = false
	m.current = GameOver
	m.pending = nil
}
