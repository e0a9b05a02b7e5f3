package app

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// The countdown is single-flight: starting a new one always stops the
// previous one first, so a stale timer can never fire against a newer quiz.
// Each tick takes the session mutex and runs to completion like any other
// event, which is what makes a tick racing an admin forceEndQuiz safe:
// whichever is processed first stops the countdown before the other could
// close the quiz a second time.

func (s *Session) startCountdownLocked(limit int) {
	s.stopCountdownLocked()
	s.timer = limit
	stop := make(chan struct{})
	s.timerStop = stop
	// Created here, not in the goroutine, so the countdown is armed by the
	// time the start event's broadcast goes out.
	ticker := s.clock.NewTicker(time.Second)
	go s.runCountdown(ticker, stop)
}

// stopCountdownLocked is idempotent; safe when nothing is running.
func (s *Session) stopCountdownLocked() {
	if s.timerStop != nil {
		close(s.timerStop)
		s.timerStop = nil
	}
}

func (s *Session) runCountdown(ticker clockwork.Ticker, stop chan struct{}) {
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if s.handleTick(stop) {
				return
			}
		}
	}
}

// handleTick decrements and broadcasts while time remains, and closes the
// quiz once the counter has reached zero. Returns true when the countdown is
// finished or superseded.
func (s *Session) handleTick(stop chan struct{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timerStop != stop {
		// A newer countdown or a reset replaced this one between ticks.
		return true
	}
	if s.timer > 0 {
		s.timer--
		s.broadcastLocked()
		return false
	}
	s.closeQuizLocked()
	return true
}
