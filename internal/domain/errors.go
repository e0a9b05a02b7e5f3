package domain

import "errors"

var (
	// ErrNoIdentity is returned when a connection submits before completing
	// the join handshake.
	ErrNoIdentity = errors.New("no player identity bound to connection")
	// ErrAlreadyWinner is returned when a permanent winner tries to submit again.
	ErrAlreadyWinner = errors.New("player already holds winner status")
	// ErrAnswerWindowClosed is returned when a submission arrives outside the
	// fastest-finger phase.
	ErrAnswerWindowClosed = errors.New("answer window is closed")
	// ErrDuplicateSubmission is returned on a second attempt at the same quiz.
	ErrDuplicateSubmission = errors.New("player already submitted for this quiz")
	// ErrWrongPhase is returned when an administrator command does not apply
	// to the current phase.
	ErrWrongPhase = errors.New("command not valid in current phase")
	// ErrQuizNotFound indicates the quiz bank has no entry for the given id.
	ErrQuizNotFound = errors.New("quiz not found")
)
