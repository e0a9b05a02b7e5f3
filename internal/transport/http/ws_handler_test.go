package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fastest-finger-service/internal/app"
	"fastest-finger-service/internal/domain"
	"fastest-finger-service/internal/infra/memory"
)

func TestWebSocketQuizRound(t *testing.T) {
	service := newTestService()
	server := newTestServer(service)
	defer server.Close()

	admin := dial(t, server, "admin")
	defer admin.Close()
	player := dial(t, server, "")
	defer player.Close()

	// Both connections receive the full state before anything else.
	state := readState(t, admin)
	if state.Phase != domain.PhaseIdle {
		t.Fatalf("expected idle initial state, got %s", state.Phase)
	}
	readState(t, player)

	writeMsg(t, player, "join", map[string]any{"id": 1, "name": "Alice"})
	state = readStateUntil(t, player, func(s domain.AppState) bool {
		return len(s.Participants) == 1
	})
	if state.Participants[0].Name != "Alice" {
		t.Fatalf("expected Alice registered, got %+v", state.Participants)
	}

	writeMsg(t, admin, "startQuiz", map[string]any{
		"question":           "What is 2 + 2?",
		"options":            []string{"3", "4", "5", "6", "7"},
		"correctAnswerIndex": 1,
		"timeLimit":          30,
	})
	readStateUntil(t, player, func(s domain.AppState) bool {
		return s.Phase == domain.PhaseFastestFinger
	})

	writeMsg(t, player, "submitAnswer", map[string]any{"answerIndex": 1})
	state = readStateUntil(t, player, func(s domain.AppState) bool {
		return len(s.Submissions) == 1
	})
	if state.Submissions[0].PlayerID != 1 {
		t.Fatalf("expected submission from player 1, got %+v", state.Submissions[0])
	}

	writeMsg(t, admin, "forceEndQuiz", nil)
	state = readStateUntil(t, admin, func(s domain.AppState) bool {
		return s.Phase == domain.PhaseRevealAnswer
	})
	if len(state.History) != 1 {
		t.Fatalf("expected history entry on close, got %d", len(state.History))
	}

	writeMsg(t, admin, "showResults", nil)
	state = readStateUntil(t, admin, func(s domain.AppState) bool {
		return s.Phase == domain.PhaseShowResults
	})
	if len(state.Winners) != 1 || state.Winners[0] != 1 {
		t.Fatalf("expected winners [1], got %v", state.Winners)
	}
}

func TestWebSocketStartQuizFromBank(t *testing.T) {
	service := newTestService()
	server := newTestServer(service)
	defer server.Close()

	admin := dial(t, server, "admin")
	defer admin.Close()
	readState(t, admin)

	writeMsg(t, admin, "startQuizFromBank", map[string]any{"quizId": "round-1"})
	state := readStateUntil(t, admin, func(s domain.AppState) bool {
		return s.Phase == domain.PhaseFastestFinger
	})
	if state.CurrentQuiz.Question != "What is 2 + 2?" {
		t.Fatalf("expected bank quiz loaded, got %q", state.CurrentQuiz.Question)
	}
}

func TestWebSocketIgnoresAdminCommandsFromPlayers(t *testing.T) {
	service := newTestService()
	server := newTestServer(service)
	defer server.Close()

	player := dial(t, server, "")
	defer player.Close()
	readState(t, player)

	correct := 1
	service.Session().StartQuiz(domain.Quiz{
		Question:           "Q",
		Options:            []string{"a", "b", "c", "d", "e"},
		CorrectAnswerIndex: &correct,
		TimeLimit:          30,
	})

	writeMsg(t, player, "forceEndQuiz", nil)
	writeMsg(t, player, "clearHistory", nil)

	// Give the server a moment to (not) act on the dropped commands.
	readStateUntil(t, player, func(s domain.AppState) bool {
		return s.Phase == domain.PhaseFastestFinger
	})
	time.Sleep(100 * time.Millisecond)
	if got := service.Session().Snapshot().Phase; got != domain.PhaseFastestFinger {
		t.Fatalf("player command must be ignored, phase=%s", got)
	}
}

func TestWebSocketForceLogoutClosesConnection(t *testing.T) {
	service := newTestService()
	server := newTestServer(service)
	defer server.Close()

	admin := dial(t, server, "admin")
	defer admin.Close()
	player := dial(t, server, "")
	defer player.Close()
	readState(t, admin)
	readState(t, player)

	writeMsg(t, player, "join", map[string]any{"id": 7, "name": "Mallory"})
	readStateUntil(t, admin, func(s domain.AppState) bool {
		return len(s.Participants) == 1
	})

	writeMsg(t, admin, "forceLogoutParticipant", map[string]any{"playerId": 7})

	sawLogout := false
	for i := 0; i < 10; i++ {
		msgType, _, err := readNext(t, player)
		if err != nil {
			break // server closed the connection
		}
		if msgType == "forceLogout" {
			sawLogout = true
			break
		}
	}
	if !sawLogout {
		t.Fatalf("expected directed forceLogout before close")
	}

	readStateUntil(t, admin, func(s domain.AppState) bool {
		return len(s.Participants) == 0
	})
}

func newTestService() *app.Service {
	session := app.NewSession()
	bank := memory.NewQuizBank(memory.NewStaticQuizLoader(sampleBank()), time.Minute)
	return app.NewService(session, bank)
}

func newTestServer(service *app.Service) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service).ServeWS)
	return httptest.NewServer(mux)
}

func dial(t *testing.T, server *httptest.Server, role string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	if role != "" {
		u += "?role=" + role
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func writeMsg(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, domain.AppState, error) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload domain.AppState `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		return "", domain.AppState{}, err
	}
	return msg.Type, msg.Payload, nil
}

func readState(t *testing.T, conn *websocket.Conn) domain.AppState {
	t.Helper()
	msgType, state, err := readNext(t, conn)
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if msgType != "stateUpdate" {
		t.Fatalf("expected stateUpdate, got %s", msgType)
	}
	return state
}

// readStateUntil skips interleaved broadcasts (e.g. timer ticks) until the
// predicate holds.
func readStateUntil(t *testing.T, conn *websocket.Conn, ok func(domain.AppState) bool) domain.AppState {
	t.Helper()
	for i := 0; i < 50; i++ {
		state := readState(t, conn)
		if ok(state) {
			return state
		}
	}
	t.Fatalf("predicate never satisfied")
	return domain.AppState{}
}

func sampleBank() map[string]domain.Quiz {
	correct := 1
	return map[string]domain.Quiz{
		"round-1": {
			Question:           "What is 2 + 2?",
			Options:            []string{"3", "4", "5", "6", "7"},
			CorrectAnswerIndex: &correct,
			TimeLimit:          30,
		},
	}
}
