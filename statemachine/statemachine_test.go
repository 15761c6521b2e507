package statemachine

import "testing"

func TestHappyPathTransitions(t *testing.T) {
	m := New()
	steps := []Phase{Preview, Sequence, RoundStart, Swap, Reveal, RoundStart, Swap, Reveal, GameOver}
	for _, to := range steps {
		if err := m.Transition(to); err != nil {
			t.Fatalf("unexpected error transitioning to %s: %v", to, err)
		}
	}
	if m.Current() != GameOver {
		t.Fatalf("expected GameOver, got %s", m.Current())
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	m := New()
	if err := m.Transition(RoundStart); err == nil {
		t.Fatal("expected illegal transition from Waiting to RoundStart to be rejected")
	}
	if m.Current() != Waiting {
		t.Fatal("rejected transition must not mutate the phase")
	}
}

func TestTransitionWhilePausedIsProgrammerError(t *testing.T) {
	m := New()
	_ = m.Transition(Preview)
	m.Pause()
	err := m.Transition(Sequence)
	if err == nil {
		t.Fatal("expected transition while paused to be rejected")
	}
	if _, ok := err.(*ProgrammerError); !ok {
		t.Fatalf("expected *ProgrammerError, got %T", err)
	}
}

func TestPauseIsIdempotent(t *testing.T) {
	m := New()
	_ = m.Transition(Preview)
	m.Pause()
	m.Pause() // no-op
	if m.Current() != Preview {
		t.Fatal("expected Current() to report the saved phase while paused")
	}
	m.Resume()
	if m.IsPaused() {
		t.Fatal("expected not paused after Resume")
	}
	if m.Current() != Preview {
		t.Fatal("expected resumed phase to equal the phase saved at Pause")
	}
}

func TestResumeNoOpWhenNotPaused(t *testing.T) {
	m := New()
	_ = m.Transition(Preview)
	m.Resume() // no-op, not paused
	if m.Current() != Preview {
		t.Fatal("Resume on a non-paused machine must not change the phase")
	}
}

func TestPendingActionSingleSlot(t *testing.T) {
	m := New()
	if _, ok := m.TakePendingAction(); ok {
		t.Fatal("expected no pending action initially")
	}
	m.SetPendingAction(StartRound)
	action, ok := m.TakePendingAction()
	if !ok || action != StartRound {
		t.Fatal("expected to take the StartRound pending action")
	}
	if _, ok := m.TakePendingAction(); ok {
		t.Fatal("expected pending action to be consumed after TakePendingAction")
	}
}

func TestEndGameForcesTerminalRegardlessOfPauseState(t *testing.T) {
	m := New()
	_ = m.Transition(Preview)
	m.Pause()
	m.EndGame()
	if m.Current() != GameOver {
		t.Fatal("expected EndGame to force GameOver even while paused")
	}
	if m.IsPaused() {
		t.Fatal("expected EndGame to clear paused")
	}
	if err := m.Transition(Preview); err == nil {
		t.Fatal("expected no transition to be legal out of GameOver")
	}
}
