package app

import (
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"fastest-finger-service/internal/domain"
)

// Push is delivered to subscribers: either a full-state update or a directed
// force-logout signal, after which the transport must close the connection.
type Push struct {
	State       domain.AppState
	ForceLogout bool
}

// Session is the authoritative in-memory state of the single quiz show. All
// events (admin commands, submissions, timer ticks, disconnects) run to
// completion under one mutex, so no two mutations ever interleave and every
// observer sees whole transitions only.
type Session struct {
	mu    sync.Mutex
	clock clockwork.Clock

	phase       domain.Phase
	quiz        domain.Quiz
	submissions []domain.Submission
	submitted   map[int]struct{}
	timer       int
	timerStop   chan struct{}

	participants map[int]domain.Player
	winners      []int
	winnerSet    map[int]struct{}
	history      []domain.HistoryItem

	// Connection-scoped identity: connID -> player bound by the join
	// handshake. Admin-only connections never appear here.
	bindings    map[string]domain.Player
	subscribers map[string]chan Push
}

func NewSession() *Session {
	return NewSessionWithClock(clockwork.NewRealClock())
}

// NewSessionWithClock allows deterministic timestamps and ticks in tests.
func NewSessionWithClock(clock clockwork.Clock) *Session {
	return &Session{
		clock:        clock,
		phase:        domain.PhaseIdle,
		quiz:         domain.EmptyQuiz(),
		submitted:    make(map[int]struct{}),
		participants: make(map[int]domain.Player),
		winnerSet:    make(map[int]struct{}),
		bindings:     make(map[string]domain.Player),
		subscribers:  make(map[string]chan Push),
	}
}

// Subscribe registers a connection for pushes. The initial full state is
// queued before any later event can be observed. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Session) Subscribe(connID string) (<-chan Push, func()) {
	ch := make(chan Push, 8)

	// Queued under the lock so no concurrent broadcast can land ahead of the
	// initial snapshot; the fresh buffer guarantees room.
	s.mu.Lock()
	s.subscribers[connID] = ch
	ch <- Push{State: s.snapshotLocked()}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if existing, ok := s.subscribers[connID]; ok && existing == ch {
			delete(s.subscribers, connID)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// Join adds the player to the registry if absent and binds the connection to
// that identity. Re-join with a known id only refreshes the binding, which is
// what lets a reconnect keep its old id.
func (s *Session) Join(connID string, player domain.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindings[connID] = player
	if _, ok := s.participants[player.ID]; !ok {
		s.participants[player.ID] = player
	}
	s.broadcastLocked()
}

// Leave handles a disconnect. Connections that never joined mutate nothing.
func (s *Session) Leave(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.bindings[connID]
	if !ok {
		return
	}
	delete(s.bindings, connID)
	s.removePlayerLocked(player.ID)
	s.broadcastLocked()
}

// SubmitAnswer admits or rejects a submission for the connection's bound
// player. Rejections leave state untouched and trigger no broadcast; the
// returned error exists for introspection and is never surfaced to clients.
func (s *Session) SubmitAnswer(connID string, answerIndex *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.bindings[connID]
	if !ok {
		return domain.ErrNoIdentity
	}
	if _, won := s.winnerSet[player.ID]; won {
		return domain.ErrAlreadyWinner
	}
	if s.phase != domain.PhaseFastestFinger {
		return domain.ErrAnswerWindowClosed
	}
	if _, dup := s.submitted[player.ID]; dup {
		return domain.ErrDuplicateSubmission
	}

	s.submissions = append(s.submissions, domain.Submission{
		PlayerID:    player.ID,
		PlayerName:  player.Name,
		Timestamp:   s.clock.Now().UnixMilli(),
		AnswerIndex: answerIndex,
	})
	s.submitted[player.ID] = struct{}{}
	s.broadcastLocked()
	return nil
}

// StartQuiz replaces the active quiz and opens the answer window. Accepted
// from any phase: the administrator always pre-empts, and an in-flight quiz
// that was never force-ended is abandoned without logging.
func (s *Session) StartQuiz(quiz domain.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCountdownLocked()
	s.quiz = normalizeQuiz(quiz)
	s.submissions = nil
	s.submitted = make(map[int]struct{})
	s.phase = domain.PhaseFastestFinger
	s.startCountdownLocked(s.quiz.TimeLimit)
	s.broadcastLocked()
}

// ForceEndQuiz closes the answer window ahead of the timer.
func (s *Session) ForceEndQuiz() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseFastestFinger {
		return domain.ErrWrongPhase
	}
	s.closeQuizLocked()
	return nil
}

// ShowResults resolves winners for the closed quiz and moves to the results
// phase. Valid only after the answer window was closed.
func (s *Session) ShowResults() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseRevealAnswer {
		return domain.ErrWrongPhase
	}
	for _, id := range resolveWinners(s.quiz, s.submissions) {
		if _, ok := s.winnerSet[id]; !ok {
			s.winnerSet[id] = struct{}{}
			s.winners = append(s.winners, id)
		}
	}
	s.phase = domain.PhaseShowResults
	s.broadcastLocked()
	return nil
}

// ResetQuiz returns the session to idle, preserving participants, winners
// and history. Nothing is logged.
func (s *Session) ResetQuiz() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCountdownLocked()
	s.quiz = domain.EmptyQuiz()
	s.submissions = nil
	s.submitted = make(map[int]struct{})
	s.timer = 0
	s.phase = domain.PhaseIdle
	s.broadcastLocked()
}

// ResetWinner lifts one player's permanent winner bar.
func (s *Session) ResetWinner(playerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeWinnerLocked(playerID)
	s.broadcastLocked()
}

// ResetAllWinners clears the permanent winners set.
func (s *Session) ResetAllWinners() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.winners = nil
	s.winnerSet = make(map[int]struct{})
	s.broadcastLocked()
}

// ClearHistory drops the entire quiz log. Destructive and unconditional.
func (s *Session) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = nil
	s.broadcastLocked()
}

// ForceLogoutParticipant evicts a player: registry and winner removal plus a
// directed logout push to every connection bound to that id. Removing an id
// that was never a winner is a no-op subtraction, not an error.
func (s *Session) ForceLogoutParticipant(playerID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removePlayerLocked(playerID)
	for connID, player := range s.bindings {
		if player.ID != playerID {
			continue
		}
		delete(s.bindings, connID)
		if ch, ok := s.subscribers[connID]; ok {
			// Detach before delivering: later broadcasts can no longer queue
			// behind (or displace) the control push, and draining the stale
			// state pushes guarantees room for it. Unlike a state update, a
			// logout signal is never superseded and must not be dropped.
			delete(s.subscribers, connID)
			drainPushes(ch)
			ch <- Push{ForceLogout: true}
		}
	}
	s.broadcastLocked()
}

// Snapshot returns the current full state, as a broadcast would carry it.
func (s *Session) Snapshot() domain.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// closeQuizLocked is the single fastest_finger -> reveal_answer transition,
// shared by ForceEndQuiz and timer expiry. Stopping the countdown first is
// what guarantees the transition cannot double-fire.
func (s *Session) closeQuizLocked() {
	s.stopCountdownLocked()
	s.timer = 0
	s.history = append(s.history, domain.HistoryItem{
		Quiz:        s.quiz.Clone(),
		Submissions: domain.CloneSubmissions(s.submissions),
	})
	s.phase = domain.PhaseRevealAnswer
	s.broadcastLocked()
}

func (s *Session) removePlayerLocked(playerID int) {
	delete(s.participants, playerID)
	s.removeWinnerLocked(playerID)
}

func (s *Session) removeWinnerLocked(playerID int) {
	if _, ok := s.winnerSet[playerID]; !ok {
		return
	}
	delete(s.winnerSet, playerID)
	for i, id := range s.winners {
		if id == playerID {
			s.winners = append(s.winners[:i], s.winners[i+1:]...)
			break
		}
	}
}

func (s *Session) broadcastLocked() {
	state := s.snapshotLocked()
	for _, ch := range s.subscribers {
		sendPush(ch, Push{State: state})
	}
}

// sendPush drops the oldest queued push when a subscriber is slow; a stale
// state update is worthless once a newer one exists. Only state pushes ever
// travel this path — control pushes bypass it via ForceLogoutParticipant.
func sendPush(ch chan Push, push Push) {
	select {
	case ch <- push:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- push
	}
}

// drainPushes empties whatever the subscriber has not consumed yet.
func drainPushes(ch chan Push) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (s *Session) snapshotLocked() domain.AppState {
	players := make([]domain.Player, 0, len(s.participants))
	for _, player := range s.participants {
		players = append(players, player)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	history := make([]domain.HistoryItem, len(s.history))
	copy(history, s.history)

	return domain.AppState{
		Phase:        s.phase,
		CurrentQuiz:  s.quiz.Clone(),
		Submissions:  domain.CloneSubmissions(s.submissions),
		Timer:        s.timer,
		Participants: players,
		Winners:      append([]int(nil), s.winners...),
		History:      history,
	}
}

// normalizeQuiz pins the option count to exactly five and falls back to the
// default time limit when none is given.
func normalizeQuiz(quiz domain.Quiz) domain.Quiz {
	out := quiz.Clone()
	for len(out.Options) < domain.OptionCount {
		out.Options = append(out.Options, "")
	}
	out.Options = out.Options[:domain.OptionCount]
	if out.TimeLimit <= 0 {
		out.TimeLimit = domain.DefaultTimeLimit
	}
	return out
}
