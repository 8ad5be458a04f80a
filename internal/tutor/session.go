package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/pavelanni/tutor/internal/lesson"
	"github.com/pavelanni/tutor/internal/model"
)

// Session is one student's tutoring session.
//
// Mutating operations are serialized by an exclusive turn lock (Acquire and
// Release). Field reads for views go through mu so they never block on a
// model call in flight.
type Session struct {
	ID                string
	StudentID         string
	EssayText         string
	StudentReflection string
	StudentGrade      int
	CreatedAt         time.Time

	turn *semaphore.Weighted

	mu        sync.RWMutex
	status    model.SessionStatus
	history   []model.FeedbackInteraction
	pending   *model.FeedbackInteraction
	manager   *lesson.Manager
	updatedAt time.Time
}

func newSession(id, studentID, essayText string, grade int, now time.Time) *Session {
	return &Session{
		ID:           id,
		StudentID:    studentID,
		EssayText:    essayText,
		StudentGrade: grade,
		CreatedAt:    now,
		turn:         semaphore.NewWeighted(1),
		status:       model.StatusAwaitingCurriculum,
		history:      []model.FeedbackInteraction{},
		updatedAt:    now,
	}
}

// Acquire takes the session's turn lock, waiting until it is free or ctx is done.
func (s *Session) Acquire(ctx context.Context) error {
	if err := s.turn.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("session %s busy: %w", s.ID, err)
	}
	return nil
}

// Release gives up the turn lock.
func (s *Session) Release() {
	s.turn.Release(1)
}

// Status returns the session's lifecycle status.
func (s *Session) Status() model.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Manager returns the session's lesson manager, or nil before a curriculum
// has been attached.
func (s *Session) Manager() *lesson.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manager
}

// Interactions returns the frozen history followed by the pending
// interaction, if any.
func (s *Session) Interactions() []model.FeedbackInteraction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.interactionsLocked()
}

func (s *Session) interactionsLocked() []model.FeedbackInteraction {
	out := make([]model.FeedbackInteraction, len(s.history), len(s.history)+1)
	copy(out, s.history)
	if s.pending != nil {
		out = append(out, *s.pending)
	}
	return out
}

// View returns the client-facing JSON shape of the session.
func (s *Session) View() model.SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.SessionView{
		ID:                s.ID,
		StudentID:         s.StudentID,
		EssayText:         s.EssayText,
		StudentGrade:      s.StudentGrade,
		StudentReflection: s.StudentReflection,
		Status:            s.status,
		FeedbackHistory:   s.interactionsLocked(),
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.updatedAt,
	}
}

// Progress returns the curriculum progress, or false before a curriculum
// has been attached.
func (s *Session) Progress() (model.Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manager == nil {
		return model.Progress{}, false
	}
	return s.manager.Progress(), true
}

// Snapshot builds an audit record of the session.
func (s *Session) Snapshot() (model.SessionSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := model.SessionSnapshot{
		ID:           s.ID,
		StudentID:    s.StudentID,
		StudentGrade: s.StudentGrade,
		Status:       s.status,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.updatedAt,
	}

	history, err := json.Marshal(s.interactionsLocked())
	if err != nil {
		return snap, fmt.Errorf("encode history: %w", err)
	}
	snap.History = history

	if s.manager != nil {
		progress, err := s.manager.SerializeProgress()
		if err != nil {
			return snap, err
		}
		curriculum, err := json.Marshal(s.manager.Plans())
		if err != nil {
			return snap, fmt.Errorf("encode curriculum: %w", err)
		}
		snap.Progress = progress
		snap.Curriculum = curriculum
	}
	return snap, nil
}
