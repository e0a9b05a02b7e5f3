package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fastest-finger-service/internal/app"
	"fastest-finger-service/internal/domain"
)

// roleAdmin is asserted via query parameter and trusted as-is; the service
// runs a single low-stakes live session without authentication.
const roleAdmin = "admin"

type WSHandler struct {
	service  *app.Service
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.Service) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`

	// terminate closes the connection once the message has been written.
	terminate bool
}

type joinPayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type answerPayload struct {
	AnswerIndex *int `json:"answerIndex,omitempty"`
}

type bankPayload struct {
	QuizID string `json:"quizId"`
}

type playerPayload struct {
	PlayerID int `json:"playerId"`
}

// ServeWS upgrades the request and wires the connection into the session:
// the full current state is pushed first, then inbound events are processed
// one at a time. Invalid or out-of-phase commands are dropped without any
// error event, per the session's silent-ignore policy.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := h.service.Session()
	connID := uuid.NewString()

	pushes, cancel := session.Subscribe(connID)
	defer cancel()
	defer session.Leave(connID)

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	pumpDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
			if msg.terminate {
				conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(pumpDone)
		for {
			select {
			case push, ok := <-pushes:
				if !ok {
					return
				}
				msg := outboundMessage{Type: "stateUpdate", Payload: push.State}
				if push.ForceLogout {
					msg = outboundMessage{Type: "forceLogout", terminate: true}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
				if push.ForceLogout {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			session.Join(connID, domain.Player{ID: payload.ID, Name: payload.Name})
		case "submitAnswer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				continue
			}
			// Gate rejections are intentionally invisible to clients.
			_ = session.SubmitAnswer(connID, payload.AnswerIndex)
		default:
			if role == roleAdmin {
				h.dispatchAdmin(r, inbound)
			}
			// Admin commands from participants and unknown types are
			// dropped, not reported.
		}
	}

	close(closeSignals)
	<-pumpDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatchAdmin(r *http.Request, inbound inboundMessage) {
	session := h.service.Session()

	switch inbound.Type {
	case "startQuiz":
		var quiz domain.Quiz
		if err := json.Unmarshal(inbound.Payload, &quiz); err != nil {
			return
		}
		session.StartQuiz(quiz)
	case "startQuizFromBank":
		var payload bankPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return
		}
		if err := h.service.StartQuizFromBank(r.Context(), payload.QuizID); err != nil {
			log.Printf("start quiz %q from bank: %v", payload.QuizID, err)
		}
	case "forceEndQuiz":
		_ = session.ForceEndQuiz()
	case "showResults":
		_ = session.ShowResults()
	case "resetQuiz":
		session.ResetQuiz()
	case "resetWinner":
		var payload playerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return
		}
		session.ResetWinner(payload.PlayerID)
	case "resetAllWinners":
		session.ResetAllWinners()
	case "forceLogoutParticipant":
		var payload playerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return
		}
		session.ForceLogoutParticipant(payload.PlayerID)
	case "clearHistory":
		session.ClearHistory()
	}
}
