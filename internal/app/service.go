package app

import (
	"context"

	"fastest-finger-service/internal/domain"
)

// QuizBank loads prepared quiz content (from cache/backing store).
type QuizBank interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Service ties the live session to the prepared quiz bank.
type Service struct {
	session *Session
	bank    QuizBank
}

func NewService(session *Session, bank QuizBank) *Service {
	return &Service{session: session, bank: bank}
}

// Session exposes the live session for transports and tests.
func (s *Service) Session() *Session {
	return s.session
}

// StartQuizFromBank loads a prepared question by id and starts it exactly as
// an inline startQuiz would.
func (s *Service) StartQuizFromBank(ctx context.Context, quizID string) error {
	quiz, err := s.bank.GetQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	s.session.StartQuiz(quiz)
	return nil
}
