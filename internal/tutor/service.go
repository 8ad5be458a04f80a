// Package tutor runs tutoring sessions: it walks a student through a
// curriculum, feeding the conversation back into every model call.
package tutor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/tutor/internal/lesson"
	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/llm/prompts"
	"github.com/pavelanni/tutor/internal/model"
)

// Message IDs for the fixed strings the service returns to students.
const (
	MsgCompletion      = "CompletionMessage"
	MsgWelcomeFallback = "WelcomeFallback"
)

const (
	defaultMaxTokens   = 4096
	tutorTemperature   = 0.5
	welcomeMaxTokens   = 1024
	welcomeTemperature = 0.7
)

var defaultMessages = map[string]string{
	MsgCompletion:      "Congratulations! You've completed all activities!",
	MsgWelcomeFallback: "Welcome! Let's work together to improve your writing skills. You can do this!",
}

// Translator returns the localized text for a message ID.
type Translator func(ctx context.Context, msgID string) string

// SnapshotRecorder stores audit snapshots of sessions.
type SnapshotRecorder interface {
	UpsertSnapshot(ctx context.Context, snap model.SessionSnapshot) error
}

// Service orchestrates model calls and lesson progress for sessions.
// One Service is shared by all sessions.
type Service struct {
	provider  llm.Provider
	maxTokens int
	translate Translator
	snapshots SnapshotRecorder
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTranslator sets the translator for fixed student-facing messages.
func WithTranslator(t Translator) Option {
	return func(s *Service) { s.translate = t }
}

// WithMaxTokens sets the output limit for tutor turns.
func WithMaxTokens(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithSnapshots records a snapshot after every session mutation.
func WithSnapshots(r SnapshotRecorder) Option {
	return func(s *Service) { s.snapshots = r }
}

// NewService creates a Service that calls p for every tutor turn.
func NewService(p llm.Provider, opts ...Option) *Service {
	s := &Service{
		provider:  p,
		maxTokens: defaultMaxTokens,
		translate: func(_ context.Context, id string) string { return defaultMessages[id] },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartFeedbackSession creates a session awaiting its curriculum.
// The caller registers it.
func (s *Service) StartFeedbackSession(studentID, essayText string, studentGrade int) *Session {
	return newSession(uuid.NewString(), studentID, essayText, studentGrade, s.now())
}

// InitializeLessonManager attaches a curriculum to the session and makes it active.
func (s *Service) InitializeLessonManager(sess *Session, plans []model.LessonPlan) error {
	if len(plans) == 0 {
		return ErrEmptyCurriculum
	}
	for _, p := range plans {
		if len(p.LessonPlan.Activities) == 0 {
			return ErrEmptyCurriculum
		}
	}

	sess.mu.Lock()
	if sess.manager != nil {
		sess.mu.Unlock()
		return ErrCurriculumExists
	}
	sess.manager = lesson.NewManager(plans)
	sess.status = model.StatusActive
	sess.updatedAt = s.now()
	sess.mu.Unlock()

	s.SaveSnapshot(context.Background(), sess)
	return nil
}

// GetNextFeedback asks the model to introduce the current activity. When the
// curriculum is complete it marks the session completed and returns the
// congratulation message without calling the model. The caller holds the
// session's turn lock.
func (s *Service) GetNextFeedback(ctx context.Context, sess *Session, state lesson.State) (string, error) {
	if sess.Status() == model.StatusAwaitingCurriculum {
		return "", ErrSessionNotReady
	}
	if sess.Manager() == nil {
		return "", ErrNoLessonManager
	}

	if state.IsComplete {
		sess.mu.Lock()
		sess.status = model.StatusCompleted
		sess.updatedAt = s.now()
		sess.mu.Unlock()
		s.SaveSnapshot(ctx, sess)
		return s.translate(ctx, MsgCompletion), nil
	}

	system, err := prompts.BuildTutorSystemPrompt(state.LessonPlan, state.Activity, sess.StudentGrade)
	if err != nil {
		return "", err
	}

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, "feedback"), llm.Request{
		System:      system,
		Messages:    buildMessages(sess.Interactions(), prompts.NextActivityRequest),
		MaxTokens:   s.maxTokens,
		Temperature: tutorTemperature,
	})
	if err != nil {
		slog.Error("feedback generation failed", "session", sess.ID, "error", err)
		return "", &UpstreamError{Op: "feedback", Err: err}
	}

	now := s.now()
	sess.mu.Lock()
	if sess.pending != nil {
		sess.history = append(sess.history, *sess.pending)
	}
	sess.pending = &model.FeedbackInteraction{
		ActivityName: state.Activity.Name,
		Feedback:     resp.Text,
		Timestamp:    now,
	}
	sess.updatedAt = now
	sess.mu.Unlock()

	s.SaveSnapshot(ctx, sess)
	return resp.Text, nil
}

// RespondToFeedback sends the student's response to the model, records it
// against the current activity, and advances when the reply carries the
// completion marker. The caller holds the session's turn lock.
func (s *Service) RespondToFeedback(ctx context.Context, sess *Session, studentResponse string, state lesson.State) (string, error) {
	if sess.Manager() == nil {
		return "", ErrNoLessonManager
	}

	sess.mu.RLock()
	hasPending := sess.pending != nil
	sess.mu.RUnlock()
	if !hasPending {
		return "", ErrNoPriorInteraction
	}

	system, err := prompts.BuildTutorSystemPrompt(state.LessonPlan, state.Activity, sess.StudentGrade)
	if err != nil {
		return "", err
	}

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, "response"), llm.Request{
		System:      system,
		Messages:    buildMessages(sess.Interactions(), studentResponse),
		MaxTokens:   s.maxTokens,
		Temperature: tutorTemperature,
	})
	if err != nil {
		slog.Error("response generation failed", "session", sess.ID, "error", err)
		return "", &UpstreamError{Op: "response", Err: err}
	}
	reply := resp.Text

	sess.mu.Lock()
	sess.pending.StudentResponse = studentResponse
	sess.pending.BotReplyToResponse = reply
	sess.manager.RecordActivity(studentResponse, reply)
	if isActivityComplete(reply) {
		sess.manager.AdvanceToNextActivity()
	}
	sess.updatedAt = s.now()
	sess.mu.Unlock()

	s.SaveSnapshot(ctx, sess)
	return reply, nil
}

// GenerateWelcomeMessage summarizes the curriculum for the student. Failures
// are logged and replaced with a fixed welcome.
func (s *Service) GenerateWelcomeMessage(ctx context.Context, plans []model.LessonPlan) string {
	fallback := s.translate(ctx, MsgWelcomeFallback)

	prompt, err := prompts.BuildWelcomePrompt(plans)
	if err != nil {
		slog.Warn("welcome prompt failed", "error", err)
		return fallback
	}

	resp, err := s.provider.Generate(llm.WithPurpose(ctx, "welcome"), llm.Request{
		Messages:    []model.Message{{Role: model.RoleStudent, Content: prompt}},
		MaxTokens:   welcomeMaxTokens,
		Temperature: welcomeTemperature,
	})
	if err != nil {
		slog.Warn("welcome message generation failed, using fallback", "error", err)
		return fallback
	}
	if strings.TrimSpace(resp.Text) == "" {
		return fallback
	}
	return resp.Text
}

// NextFeedback takes the session's turn lock and runs GetNextFeedback against
// the current lesson state. It returns the feedback and the state after the call.
func (s *Service) NextFeedback(ctx context.Context, sess *Session) (string, lesson.State, error) {
	if err := sess.Acquire(ctx); err != nil {
		return "", lesson.State{}, err
	}
	defer sess.Release()

	state, err := currentState(sess)
	if err != nil {
		return "", lesson.State{}, err
	}
	feedback, err := s.GetNextFeedback(ctx, sess, state)
	if err != nil {
		return "", lesson.State{}, err
	}
	state, err = currentState(sess)
	return feedback, state, err
}

// Respond takes the session's turn lock and runs RespondToFeedback against
// the current lesson state. It returns the reply and the state after the call.
func (s *Service) Respond(ctx context.Context, sess *Session, studentResponse string) (string, lesson.State, error) {
	if err := sess.Acquire(ctx); err != nil {
		return "", lesson.State{}, err
	}
	defer sess.Release()

	state, err := currentState(sess)
	if err != nil {
		return "", lesson.State{}, err
	}
	reply, err := s.RespondToFeedback(ctx, sess, studentResponse, state)
	if err != nil {
		return "", lesson.State{}, err
	}
	state, err = currentState(sess)
	return reply, state, err
}

// currentState returns the manager's state, or a zero state when the session
// has no manager so the caller's own checks report the right error.
func currentState(sess *Session) (lesson.State, error) {
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	if sess.manager == nil {
		return lesson.State{}, nil
	}
	return sess.manager.CurrentState()
}

// SaveSnapshot records the session's current state when a snapshot recorder
// is configured. Failures are logged.
func (s *Service) SaveSnapshot(ctx context.Context, sess *Session) {
	if s.snapshots == nil {
		return
	}
	snap, err := sess.Snapshot()
	if err != nil {
		slog.Warn("failed to build session snapshot", "session", sess.ID, "error", err)
		return
	}
	if err := s.snapshots.UpsertSnapshot(context.WithoutCancel(ctx), snap); err != nil {
		slog.Warn("failed to store session snapshot", "session", sess.ID, "error", err)
	}
}

// SaveSnapshots records every given session. Each session's turn lock is
// taken so no snapshot catches a turn half applied.
func (s *Service) SaveSnapshots(ctx context.Context, sessions []*Session) {
	for _, sess := range sessions {
		if err := sess.Acquire(ctx); err != nil {
			slog.Warn("skipping snapshot of busy session", "session", sess.ID, "error", err)
			continue
		}
		s.SaveSnapshot(ctx, sess)
		sess.Release()
	}
}
