package domain

// Phase is the session's current stage in the quiz lifecycle.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseFastestFinger Phase = "fastest_finger"
	PhaseRevealAnswer  Phase = "reveal_answer"
	PhaseShowResults   Phase = "show_results"
)

// OptionCount is the fixed number of answer options per quiz.
const OptionCount = 5

// DefaultTimeLimit is the answer-window length in seconds for quizzes that
// carry none.
const DefaultTimeLimit = 20

// Player represents a connected participant. Identity is the ID; it is
// reused across reconnects within a session.
type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Quiz is a single multiple-choice question. CorrectAnswerIndex is nil while
// authoring or in-flight and must be set before winners can be resolved.
type Quiz struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
	TimeLimit          int      `json:"timeLimit"`
}

// EmptyQuiz returns the blank template the session holds while idle.
func EmptyQuiz() Quiz {
	return Quiz{
		Options:   make([]string, OptionCount),
		TimeLimit: DefaultTimeLimit,
	}
}

// Clone deep-copies the quiz so logged snapshots cannot alias live state.
func (q Quiz) Clone() Quiz {
	out := q
	out.Options = append([]string(nil), q.Options...)
	if q.CorrectAnswerIndex != nil {
		idx := *q.CorrectAnswerIndex
		out.CorrectAnswerIndex = &idx
	}
	return out
}

// Submission is one player's single attempt at the active quiz. Timestamp is
// wall-clock milliseconds; sequence order in AppState.Submissions is arrival
// order, not timestamp order.
type Submission struct {
	PlayerID    int    `json:"playerId"`
	PlayerName  string `json:"playerName"`
	Timestamp   int64  `json:"timestamp"`
	AnswerIndex *int   `json:"answerIndex,omitempty"`
}

// CloneSubmissions copies a submission slice entry by entry.
func CloneSubmissions(subs []Submission) []Submission {
	out := make([]Submission, len(subs))
	for i, sub := range subs {
		out[i] = sub
		if sub.AnswerIndex != nil {
			idx := *sub.AnswerIndex
			out[i].AnswerIndex = &idx
		}
	}
	return out
}

// HistoryItem is an immutable record of one closed answer window.
type HistoryItem struct {
	Quiz        Quiz         `json:"quiz"`
	Submissions []Submission `json:"submissions"`
}

// AppState is the full session snapshot broadcast to clients after every
// mutating event. Submissions pertain to CurrentQuiz only; Winners persists
// across quizzes for the session lifetime.
type AppState struct {
	Phase        Phase         `json:"phase"`
	CurrentQuiz  Quiz          `json:"currentQuiz"`
	Submissions  []Submission  `json:"submissions"`
	Timer        int           `json:"timer"`
	Participants []Player      `json:"participants"`
	Winners      []int         `json:"winners"`
	History      []HistoryItem `json:"history"`
}
