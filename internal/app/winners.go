package app

import (
	"sort"

	"fastest-finger-service/internal/domain"
)

// winnersPerQuiz caps how many players can gain permanent winner status from
// a single quiz closure.
const winnersPerQuiz = 2

// resolveWinners returns the ids of the fastest correct respondents, earliest
// timestamp first. The sort is stable so equal timestamps keep arrival order,
// which makes the ranking replayable from the same frozen submission set.
// With no correct answer configured the result is empty.
func resolveWinners(quiz domain.Quiz, submissions []domain.Submission) []int {
	if quiz.CorrectAnswerIndex == nil {
		return nil
	}
	correct := *quiz.CorrectAnswerIndex

	ranked := make([]domain.Submission, 0, len(submissions))
	for _, sub := range submissions {
		if sub.AnswerIndex != nil && *sub.AnswerIndex == correct {
			ranked = append(ranked, sub)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Timestamp < ranked[j].Timestamp
	})

	if len(ranked) > winnersPerQuiz {
		ranked = ranked[:winnersPerQuiz]
	}
	ids := make([]int, 0, len(ranked))
	for _, sub := range ranked {
		ids = append(ids, sub.PlayerID)
	}
	return ids
}
