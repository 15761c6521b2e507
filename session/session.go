// Package session implements the Session component (§4.4): the two-player
// actor that owns a SessionStateMachine, a Timer, and round history, and
// drives one duel from deal to terminal outcome. Mutating events are
// serialized through a single inbox, mirroring the teacher's per-Game actor
// with an Actions channel and a Run loop.
package session

import (
	"encoding/json"
	"time"

	"rps-duel-server/config"
	"rps-duel-server/deck"
	"rps-duel-server/duelerrors"
	"rps-duel-server/player"
	"rps-duel-server/protocol"
	"rps-duel-server/rules"
	"rps-duel-server/statemachine"
	"rps-duel-server/timer"
	"rps-duel-server/validate"
)

// ActionType tags the closed set of events a Session's actor loop accepts.
type ActionType int

const (
	ActionPreviewReady ActionType = iota
	ActionSetSequence
	ActionSwapCards
	ActionSkipSwap
	ActionContinueRound
	ActionDisconnect
	ActionReconnect
	ActionLeave
	ActionEndByDisconnect
	ActionPreviewTimeout
	ActionSequenceTimeout
	ActionSwapTimeout
	ActionContinueTimeout
	ActionResumeYield
	// ActionNoop carries no player or state change; it exists purely as a
	// synchronization marker for callers that need to know the actor loop
	// has drained everything posted before it.
	ActionNoop
)

// Action is one inbox message. Only the fields relevant to Type are read.
type Action struct {
	Type      ActionType
	PlayerIdx int
	Sequence  []deck.Card
	Pos1      int
	Pos2      int
	ConnID    string
	NowUnixMs int64
}

// Sink delivers a Session's outbound wire messages to a specific roster slot
// (0 or 1). Resolving slot -> connection is the caller's (Lobby's) job; the
// Session knows nothing about transport identities.
type Sink interface {
	Send(playerIdx int, data []byte)
}

// Hooks lets the owning Lobby react to phase-dependent disconnect/reconnect
// decisions the Session makes internally, without the Session reaching into
// LobbyRegistry-owned state (the ReconnectTracker). Mirrors the teacher's
// OnGameEnd-style callback field.
type Hooks interface {
	// OnPaused fires when a disconnect outside reveal pauses the Session;
	// the Lobby should start a ReconnectTracker entry with opponent notify.
	OnPaused(playerIdx int)
	// OnSilentAbsence fires for a reveal-phase disconnect: no pause, but the
	// Lobby should still track the absence so it can end the Session on
	// expiry.
	OnSilentAbsence(playerIdx int)
	// OnBothDisconnected fires when both roster slots are now disconnected;
	// the Session is already completed with no winner declared.
	OnBothDisconnected()
	// OnOpponentStillAbsent fires when playerIdx reconnected but the
	// opponent is still disconnected; the Lobby should reply with the
	// opponent's remaining reconnect budget instead of resuming.
	OnOpponentStillAbsent(playerIdx int)
	// OnReconnected fires when playerIdx successfully reattaches (opponent
	// live); the Lobby should send a reconnection snapshot.
	OnReconnected(playerIdx int)
}

// RoundResult is one entry of a Session's append-only history.
type RoundResult struct {
	Round       int // 1-based
	Cards       [2]deck.Card
	WinnerIdx   int // -1 for a draw
	Explanation string
	Scores      [2]int
}

// Session owns two Players, the current Timer, the SessionStateMachine, and
// round history for one duel (§3, §4.4).
type Session struct {
	LobbyID string
	Players [2]*player.Player
	Machine *statemachine.Machine

	cfg *config.Config

	timer        *timer.Timer
	History      []RoundResult
	CurrentRound int

	previewReady  [2]bool
	continueReady [2]bool

	Completed    bool
	byDisconnect bool
	winnerIdx    int // -1 = none/draw

	actions chan Action
	done    chan struct{}

	sink       Sink
	hooks      Hooks
	onComplete func(*Session)
}

// New constructs a Session in the Waiting phase. Call Start once to deal
// hands and begin the preview phase, then run the actor loop via Run (in its
// own goroutine).
func New(lobbyID string, players [2]*player.Player, cfg *config.Config, sink Sink, hooks Hooks, onComplete func(*Session)) *Session {
	return &Session{
		LobbyID:    lobbyID,
		Players:    players,
		Machine:    statemachine.New(),
		cfg:        cfg,
		History:    make([]RoundResult, 0, cfg.TotalRounds),
		actions:    make(chan Action, 32),
		done:       make(chan struct{}),
		sink:       sink,
		hooks:      hooks,
		onComplete: onComplete,
		winnerIdx:  -1,
	}
}

// Done returns a channel closed once the Session's actor loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Result reports the terminal outcome once Completed is true: the winning
// roster slot (-1 for a draw or a both-disconnect ending with no winner) and
// whether the ending was disconnect-driven.
func (s *Session) Result() (winnerIdx int, byDisconnect bool) {
	return s.winnerIdx, s.byDisconnect
}

// Post enqueues an Action, or drops it silently if the Session has already
// finished running — mirroring the teacher's `case g.Actions <- a: case
// <-g.Done:` guard at every external send site.
func (s *Session) Post(a Action) {
	select {
	case s.actions <- a:
	case <-s.done:
	}
}

// Run consumes Actions until the Session completes, then releases its Timer
// and reports completion once via onComplete. Intended to run in its own
// goroutine, started once by the owning Lobby right after Start.
func (s *Session) Run() {
	for a := range s.actions {
		s.handle(a)
		if s.Completed {
			break
		}
	}
	if s.timer != nil {
		s.timer.Clear()
	}
	close(s.done)
	if s.onComplete != nil {
		s.onComplete(s)
	}
}

func (s *Session) handle(a Action) {
	switch a.Type {
	case ActionPreviewReady:
		s.handlePreviewReady(a.PlayerIdx)
	case ActionSetSequence:
		s.handleSetSequence(a.PlayerIdx, a.Sequence)
	case ActionSwapCards:
		s.handleSwapCards(a.PlayerIdx, a.Pos1, a.Pos2)
	case ActionSkipSwap:
		s.handleSkipSwap(a.PlayerIdx)
	case ActionContinueRound:
		s.handleContinueRound(a.PlayerIdx)
	case ActionDisconnect:
		s.handleDisconnect(a.PlayerIdx, a.NowUnixMs)
	case ActionReconnect:
		s.handleReconnect(a.PlayerIdx, a.ConnID)
	case ActionLeave:
		s.handleLeave(a.PlayerIdx)
	case ActionEndByDisconnect:
		s.handleEndByDisconnect(a.PlayerIdx)
	case ActionPreviewTimeout:
		s.handlePreviewTimeout()
	case ActionSequenceTimeout:
		s.handleSequenceTimeout()
	case ActionSwapTimeout:
		s.handleSwapTimeout()
	case ActionContinueTimeout:
		s.handleContinueTimeout()
	case ActionResumeYield:
		s.handleResumeYield()
	case ActionNoop:
		// intentionally nothing: see ActionNoop's doc comment.
	}
}

// Start deals hands, enters the preview phase, and starts the preview Timer.
// Must be called once, before Run.
func (s *Session) Start() {
	d := deck.New()
	s.Players[0].SetHand(d.Deal())
	s.Players[1].SetHand(d.Deal())
	_ = s.Machine.Transition(statemachine.Preview)
	s.emitGameStart()
	s.emitCardsPreview()
	s.startTimer(s.cfg.PreviewTimerSec, "preview", ActionPreviewTimeout)
}

// --- Preview ---

func (s *Session) handlePreviewReady(idx int) {
	if s.Machine.IsPaused() || s.Machine.Current() != statemachine.Preview {
		return
	}
	if s.previewReady[idx] {
		return
	}
	s.previewReady[idx] = true
	s.emit(1-idx, protocol.OpponentPreviewReadyMsg{Type: "opponentPreviewReady"})
	if s.previewReady[0] && s.previewReady[1] {
		s.advanceToSequence()
	}
}

func (s *Session) handlePreviewTimeout() {
	if s.Machine.Current() != statemachine.Preview {
		return
	}
	s.advanceToSequence()
}

func (s *Session) advanceToSequence() {
	if s.timer != nil {
		s.timer.Clear()
	}
	_ = s.Machine.Transition(statemachine.Sequence)
	s.previewReady = [2]bool{}
	s.startTimer(s.cfg.SequenceTimerSec, "sequence", ActionSequenceTimeout)
}

// --- Sequence ---

func (s *Session) handleSetSequence(idx int, seq []deck.Card) {
	if s.Machine.IsPaused() || s.Machine.Current() != statemachine.Sequence {
		return
	}
	p := s.Players[idx]
	if p.SequenceSet {
		return
	}
	if !p.SetSequence(seq) {
		return
	}
	s.emit(idx, protocol.SequenceConfirmedMsg{Type: "sequenceConfirmed"})
	if s.Players[0].SequenceSet && s.Players[1].SequenceSet {
		s.advanceToRoundStart()
	}
}

func (s *Session) handleSequenceTimeout() {
	if s.Machine.Current() != statemachine.Sequence {
		return
	}
	for _, p := range s.Players {
		if !p.SequenceSet {
			p.SetSequence(deck.Shuffle(p.Hand))
		}
	}
	s.advanceToRoundStart()
}

func (s *Session) advanceToRoundStart() {
	if s.timer != nil {
		s.timer.Clear()
	}
	_ = s.Machine.Transition(statemachine.RoundStart)
	s.startRound()
}

// --- Round start / swap ---

// startRound implements the pause interlock (§4.4): if a Player is
// disconnected, the transition is deferred via the pendingAction slot rather
// than proceeding into the swap phase.
func (s *Session) startRound() {
	if s.Players[0].Disconnected || s.Players[1].Disconnected {
		s.Machine.Pause()
		s.Machine.SetPendingAction(statemachine.StartRound)
		return
	}
	s.beginSwapPhase()
}

func (s *Session) beginSwapPhase() {
	_ = s.Machine.Transition(statemachine.Swap)
	s.Players[0].ResetRound()
	s.Players[1].ResetRound()
	s.startTimer(s.cfg.SwapTimerSec, "swap", ActionSwapTimeout)
	s.emitRoundStart(0)
	s.emitRoundStart(1)
}

func (s *Session) emitRoundStart(idx int) {
	p := s.Players[idx]
	s.emit(idx, protocol.RoundStartMsg{
		Type:           "roundStart",
		Round:          s.CurrentRound + 1,
		SwapLimitSec:   s.cfg.SwapTimerSec,
		Remaining:      protocol.CardsWire(p.Sequence[s.CurrentRound:]),
		SwapsUsed:      p.SwapsUsed,
		SwapsRemaining: player.MaxSwaps - p.SwapsUsed,
	})
}

func (s *Session) handleSwapCards(idx, pos1, pos2 int) {
	if s.Machine.IsPaused() || s.Machine.Current() != statemachine.Swap {
		return
	}
	p := s.Players[idx]
	if !validate.SwapPositions(pos1, pos2, len(p.Hand), s.CurrentRound) {
		s.emit(idx, protocol.SwapErrorMsg{Type: "swapError", Message: duelerrors.ErrInvalidSwapPosition.Error()})
		return
	}
	if !p.CanSwap() {
		msg := duelerrors.ErrSwapBudgetExhausted.Error()
		if p.SwappedThisRound {
			msg = "only one swap allowed per round"
		}
		s.emit(idx, protocol.SwapErrorMsg{Type: "swapError", Message: msg})
		return
	}
	abs1, abs2 := pos1+s.CurrentRound, pos2+s.CurrentRound
	if !p.SwapCards(abs1, abs2) {
		s.emit(idx, protocol.SwapErrorMsg{Type: "swapError", Message: duelerrors.ErrNonAdjacentSwap.Error()})
		return
	}
	p.Ready = true
	s.emit(idx, protocol.SwapConfirmedMsg{
		Type:      "swapConfirmed",
		Remaining: protocol.CardsWire(p.Sequence[s.CurrentRound:]),
		SwapsUsed: p.SwapsUsed,
	})
	s.emit(1-idx, protocol.OpponentSwappedMsg{Type: "opponentSwapped"})
	s.checkBothReadyForReveal()
}

func (s *Session) handleSkipSwap(idx int) {
	if s.Machine.IsPaused() || s.Machine.Current() != statemachine.Swap {
		return
	}
	p := s.Players[idx]
	if p.Ready {
		return
	}
	p.Ready = true
	s.emit(idx, protocol.SkipConfirmedMsg{Type: "skipConfirmed"})
	s.checkBothReadyForReveal()
}

func (s *Session) checkBothReadyForReveal() {
	if s.Players[0].Ready && s.Players[1].Ready {
		s.reveal()
	}
}

func (s *Session) handleSwapTimeout() {
	if s.Machine.Current() != statemachine.Swap {
		return
	}
	s.reveal()
}

// --- Reveal ---

func (s *Session) reveal() {
	if s.timer != nil {
		s.timer.Clear()
	}
	_ = s.Machine.Transition(statemachine.Reveal)

	left := s.Players[0].Sequence[s.CurrentRound]
	right := s.Players[1].Sequence[s.CurrentRound]
	outcome := rules.Compare(left.Kind, right.Kind)

	winnerIdx := -1
	switch outcome {
	case rules.LeftWins:
		winnerIdx = 0
		s.Players[0].AddScore(1)
	case rules.RightWins:
		winnerIdx = 1
		s.Players[1].AddScore(1)
	}

	result := RoundResult{
		Round:       s.CurrentRound + 1,
		Cards:       [2]deck.Card{left, right},
		WinnerIdx:   winnerIdx,
		Explanation: explain(left.Kind, right.Kind, outcome),
		Scores:      [2]int{s.Players[0].Score, s.Players[1].Score},
	}
	s.History = append(s.History, result)
	s.CurrentRound++
	s.emitRoundResult(result)

	s.continueReady = [2]bool{}
	s.startTimer(s.cfg.ContinueTimerSec, "continue", ActionContinueTimeout)
}

func explain(left, right deck.Kind, outcome rules.Outcome) string {
	switch outcome {
	case rules.Draw:
		return left.String() + " ties with " + right.String()
	case rules.LeftWins:
		return left.String() + " beats " + right.String()
	default:
		return right.String() + " beats " + left.String()
	}
}

func (s *Session) emitRoundResult(r RoundResult) {
	for idx := 0; idx < 2; idx++ {
		opp := 1 - idx
		winnerID := s.winnerIDFor(r.WinnerIdx, idx, opp)
		s.emit(idx, protocol.RoundResultMsg{
			Type: "roundResult",
			Result: protocol.RoundResultWire{
				Round:         r.Round,
				YourCard:      protocol.CardsWire([]deck.Card{r.Cards[idx]})[0],
				OpponentCard:  protocol.CardsWire([]deck.Card{r.Cards[opp]})[0],
				WinnerID:      winnerID,
				Explanation:   r.Explanation,
				YourScore:     r.Scores[idx],
				OpponentScore: r.Scores[opp],
			},
		})
	}
}

func (s *Session) winnerIDFor(winnerIdx, idx, opp int) string {
	switch winnerIdx {
	case idx:
		return s.Players[idx].ID
	case opp:
		return s.Players[opp].ID
	default:
		return ""
	}
}

func (s *Session) handleContinueRound(idx int) {
	if s.Machine.IsPaused() || s.Machine.Current() != statemachine.Reveal {
		return
	}
	if s.continueReady[idx] {
		return
	}
	s.continueReady[idx] = true
	s.emit(1-idx, protocol.OpponentContinuedMsg{Type: "opponentContinued"})
	if s.allContinueReady() {
		s.afterReveal()
	}
}

// allContinueReady treats a silently-absent (reveal-phase-disconnected)
// player as ready, since they have no way to signal continue: a reveal-phase
// disconnect does not pause the session (§4.6), so progress must not stall
// on a signal that will never arrive.
func (s *Session) allContinueReady() bool {
	for i := 0; i < 2; i++ {
		if !s.continueReady[i] && !s.Players[i].Disconnected {
			return false
		}
	}
	return true
}

func (s *Session) handleContinueTimeout() {
	if s.Machine.Current() != statemachine.Reveal {
		return
	}
	s.afterReveal()
}

func (s *Session) afterReveal() {
	if s.timer != nil {
		s.timer.Clear()
	}
	if s.CurrentRound >= s.cfg.TotalRounds {
		winnerIdx := -1
		if s.Players[0].Score > s.Players[1].Score {
			winnerIdx = 0
		} else if s.Players[1].Score > s.Players[0].Score {
			winnerIdx = 1
		}
		s.endByWinner(winnerIdx, false)
		return
	}
	_ = s.Machine.Transition(statemachine.RoundStart)
	s.startRound()
}

// --- Disconnect / reconnect ---

func (s *Session) handleDisconnect(idx int, now int64) {
	p := s.Players[idx]
	if p.Disconnected {
		return
	}
	p.MarkDisconnected(now)
	opp := s.Players[1-idx]

	if opp.Disconnected {
		s.Machine.EndGame()
		s.Completed = true
		if s.hooks != nil {
			s.hooks.OnBothDisconnected()
		}
		return
	}

	if s.Machine.Current() == statemachine.Reveal {
		if s.hooks != nil {
			s.hooks.OnSilentAbsence(idx)
		}
		return
	}

	s.Machine.Pause()
	if s.timer != nil {
		s.timer.Pause()
	}
	if s.hooks != nil {
		s.hooks.OnPaused(idx)
	}
}

func (s *Session) handleReconnect(idx int, connID string) {
	s.Players[idx].MarkConnected(connID)
	opp := s.Players[1-idx]
	if opp.Disconnected {
		if s.hooks != nil {
			s.hooks.OnOpponentStillAbsent(idx)
		}
		return
	}
	s.resumeIfPossible()
	if s.hooks != nil {
		s.hooks.OnReconnected(idx)
	}
}

func (s *Session) resumeIfPossible() {
	if !s.Machine.IsPaused() {
		return
	}
	if s.Players[0].Disconnected || s.Players[1].Disconnected {
		return
	}
	s.Machine.Resume()
	s.broadcast(protocol.GameResumedMsg{Type: "gameResumed"})

	if action, ok := s.Machine.TakePendingAction(); ok && action == statemachine.StartRound {
		yield := time.Duration(s.cfg.PostResumeRoundStartYieldMS) * time.Millisecond
		go func() {
			time.Sleep(yield)
			s.Post(Action{Type: ActionResumeYield})
		}()
		return
	}
	if s.timer != nil {
		s.timer.Resume()
	}
}

func (s *Session) handleResumeYield() {
	if s.Machine.IsPaused() {
		return
	}
	s.beginSwapPhase()
}

// --- Termination ---

func (s *Session) handleLeave(idx int) {
	if s.Completed {
		return
	}
	s.endByWinner(1-idx, false)
}

func (s *Session) handleEndByDisconnect(idx int) {
	if s.Completed {
		return
	}
	s.endByWinner(1-idx, true)
}

func (s *Session) endByWinner(winnerIdx int, byDisconnect bool) {
	if s.Completed {
		return
	}
	s.Machine.EndGame()
	if s.timer != nil {
		s.timer.Clear()
	}
	s.Completed = true
	s.byDisconnect = byDisconnect
	s.winnerIdx = winnerIdx
	s.emitGameEnd(winnerIdx, byDisconnect)
}

func (s *Session) emitGameEnd(winnerIdx int, byDisconnect bool) {
	for idx := 0; idx < 2; idx++ {
		opp := 1 - idx
		s.emit(idx, protocol.GameEndMsg{
			Type:          "gameEnd",
			WinnerID:      s.winnerIDFor(winnerIdx, idx, opp),
			YouWon:        winnerIdx == idx,
			ByDisconnect:  byDisconnect,
			YourScore:     s.Players[idx].Score,
			OpponentScore: s.Players[opp].Score,
		})
	}
}

// --- Snapshot ---

// BuildSnapshot returns the reconnection state snapshot for idx (§4.4).
func (s *Session) BuildSnapshot(idx int) protocol.SnapshotMsg {
	opp := 1 - idx
	you, other := s.Players[idx], s.Players[opp]
	yourReady, opponentReady := s.readinessPair(idx)

	remaining := 0
	if s.timer != nil {
		remaining = s.timer.GetRemaining()
	}

	history := make([]protocol.RoundResultWire, len(s.History))
	for i, r := range s.History {
		history[i] = protocol.RoundResultWire{
			Round:         r.Round,
			YourCard:      protocol.CardsWire([]deck.Card{r.Cards[idx]})[0],
			OpponentCard:  protocol.CardsWire([]deck.Card{r.Cards[opp]})[0],
			WinnerID:      s.winnerIDFor(r.WinnerIdx, idx, opp),
			Explanation:   r.Explanation,
			YourScore:     r.Scores[idx],
			OpponentScore: r.Scores[opp],
		}
	}

	var upcoming []deck.Card
	if you.SequenceSet && s.CurrentRound <= len(you.Sequence) {
		upcoming = you.Sequence[s.CurrentRound:]
	}

	snap := protocol.SnapshotMsg{
		Type:              "snapshot",
		Phase:             s.Machine.Current().String(),
		CurrentRound:      s.CurrentRound,
		YourID:            you.ID,
		YourName:          you.Name,
		OpponentID:        other.ID,
		OpponentName:      other.Name,
		YourScore:         you.Score,
		YourSwapsUsed:     you.SwapsUsed,
		OpponentScore:     other.Score,
		OpponentSwapsUsed: other.SwapsUsed,
		RoundHistory:      history,
		RemainingTimeSec:  remaining,
		Hand:              protocol.CardsWire(you.Hand),
		UpcomingCards:     protocol.CardsWire(upcoming),
		YourReady:         yourReady,
		OpponentReady:     opponentReady,
	}
	if s.Machine.Current() == statemachine.Preview {
		snap.OpponentHand = protocol.CardsWire(other.Hand)
	}
	return snap
}

func (s *Session) readinessPair(idx int) (bool, bool) {
	opp := 1 - idx
	switch s.Machine.Current() {
	case statemachine.Preview:
		return s.previewReady[idx], s.previewReady[opp]
	case statemachine.Sequence:
		return s.Players[idx].SequenceSet, s.Players[opp].SequenceSet
	case statemachine.Swap:
		return s.Players[idx].Ready, s.Players[opp].Ready
	case statemachine.Reveal:
		return s.continueReady[idx], s.continueReady[opp]
	default:
		return false, false
	}
}

// --- Timer wiring ---

func (s *Session) startTimer(seconds int, tickKind string, onExpire ActionType) {
	if s.timer != nil {
		s.timer.Clear()
	}
	s.timer = timer.New(
		time.Duration(seconds)*time.Second,
		func(remaining int) { s.emitTick(tickKind, remaining) },
		func() { s.Post(Action{Type: onExpire}) },
	)
	s.timer.Start()
}

func (s *Session) emitTick(kind string, remaining int) {
	switch kind {
	case "preview":
		s.broadcast(protocol.PreviewTimerUpdateMsg{Type: "previewTimerUpdate", SecondsLeft: remaining})
	case "continue":
		s.broadcast(protocol.ContinueCountdownMsg{Type: "continueCountdown", SecondsLeft: remaining})
	default:
		s.broadcast(protocol.TimerUpdateMsg{Type: "timerUpdate", Phase: kind, SecondsLeft: remaining})
	}
}

// --- Emission ---

func (s *Session) emitGameStart() {
	s.broadcast(protocol.GameStartMsg{Type: "gameStart", TotalRounds: s.cfg.TotalRounds})
}

func (s *Session) emitCardsPreview() {
	for idx := 0; idx < 2; idx++ {
		opp := 1 - idx
		s.emit(idx, protocol.CardsPreviewMsg{
			Type:            "cardsPreview",
			Hand:            protocol.CardsWire(s.Players[idx].Hand),
			OpponentHand:    protocol.CardsWire(s.Players[opp].Hand),
			PreviewLimitSec: s.cfg.PreviewTimerSec,
			TotalRounds:     s.cfg.TotalRounds,
		})
	}
}

func (s *Session) emit(idx int, msg any) {
	if s.sink == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.sink.Send(idx, data)
}

func (s *Session) broadcast(msg any) {
	if s.sink == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.sink.Send(0, data)
	s.sink.Send(1, data)
}
