package memory

import (
	"context"
	"testing"
	"time"

	"fastest-finger-service/internal/domain"
)

func TestQuizBankCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"round-1": sampleQuiz(),
		}),
	}
	bank := NewQuizBank(loader, time.Minute)

	if _, err := bank.GetQuiz(context.Background(), "round-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := bank.GetQuiz(context.Background(), "round-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizBankUnknownID(t *testing.T) {
	bank := NewQuizBank(NewStaticQuizLoader(nil), time.Minute)
	if _, err := bank.GetQuiz(context.Background(), "missing"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestQuizBankReturnsCopies(t *testing.T) {
	bank := NewQuizBank(NewStaticQuizLoader(map[string]domain.Quiz{
		"round-1": sampleQuiz(),
	}), time.Minute)

	first, err := bank.GetQuiz(context.Background(), "round-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	first.Options[0] = "mutated"

	second, _ := bank.GetQuiz(context.Background(), "round-1")
	if second.Options[0] == "mutated" {
		t.Fatalf("cache entry aliased by caller mutation")
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	correct := 1
	return domain.Quiz{
		Question:           "What is 2 + 2?",
		Options:            []string{"3", "4", "5", "6", "7"},
		CorrectAnswerIndex: &correct,
		TimeLimit:          15,
	}
}
