// Package lesson tracks a student's position within a generated curriculum.
package lesson

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pavelanni/tutor/internal/model"
)

var (
	// ErrNotInitialized is returned when the manager holds no lesson plans.
	ErrNotInitialized = errors.New("no lesson plans available")
	// ErrInvalidCursor is returned when the cursor points outside the curriculum.
	ErrInvalidCursor = errors.New("invalid lesson cursor")
)

// Cursor identifies the current lesson and activity by position.
type Cursor struct {
	LessonIndex   int `json:"lessonIndex"`
	ActivityIndex int `json:"activityIndex"`
}

// progress is the serializable part of a Manager.
type progress struct {
	LessonIndex   int                       `json:"currentLessonIndex"`
	ActivityIndex int                       `json:"currentActivityIndex"`
	Completed     []model.CompletedActivity `json:"completedActivities"`
}

// State is a read-only view of the manager at the current cursor.
type State struct {
	LessonPlan model.LessonPlan          `json:"currentLessonPlan"`
	Activity   model.Activity            `json:"currentActivity"`
	History    []model.CompletedActivity `json:"progressHistory"`
	IsComplete bool                      `json:"isComplete"`
}

// Manager is the progress state machine for one student's curriculum.
// It is not safe for concurrent use; callers serialize access.
type Manager struct {
	plans    []model.LessonPlan
	progress progress
}

// NewManager creates a manager positioned at the first activity of the first lesson.
func NewManager(plans []model.LessonPlan) *Manager {
	return &Manager{
		plans:    plans,
		progress: progress{Completed: []model.CompletedActivity{}},
	}
}

// RestoreManager rebuilds a manager from serialized progress. The curriculum
// is not part of the blob and must be the one the progress was recorded against.
func RestoreManager(plans []model.LessonPlan, serialized string) (*Manager, error) {
	var p progress
	if err := json.Unmarshal([]byte(serialized), &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if p.Completed == nil {
		p.Completed = []model.CompletedActivity{}
	}
	m := &Manager{plans: plans, progress: p}
	if len(plans) > 0 && !m.validCursor() {
		return nil, fmt.Errorf("%w: lesson %d, activity %d", ErrInvalidCursor, p.LessonIndex, p.ActivityIndex)
	}
	return m, nil
}

// SerializeProgress exports the cursor and completion log as a JSON string.
func (m *Manager) SerializeProgress() (string, error) {
	data, err := json.Marshal(m.progress)
	if err != nil {
		return "", fmt.Errorf("encode progress: %w", err)
	}
	return string(data), nil
}

// Plans returns the curriculum the manager was seeded with.
func (m *Manager) Plans() []model.LessonPlan {
	return m.plans
}

// Cursor returns the current position.
func (m *Manager) Cursor() Cursor {
	return Cursor{LessonIndex: m.progress.LessonIndex, ActivityIndex: m.progress.ActivityIndex}
}

// CurrentState returns the current lesson plan, activity, completion log and
// completion flag.
func (m *Manager) CurrentState() (State, error) {
	if len(m.plans) == 0 {
		return State{}, ErrNotInitialized
	}
	li, ai := m.progress.LessonIndex, m.progress.ActivityIndex
	if li < 0 || li >= len(m.plans) {
		return State{}, fmt.Errorf("%w: lesson index %d", ErrInvalidCursor, li)
	}
	lesson := m.plans[li]
	if ai < 0 || ai >= len(lesson.LessonPlan.Activities) {
		return State{}, fmt.Errorf("%w: activity index %d", ErrInvalidCursor, ai)
	}

	history := make([]model.CompletedActivity, len(m.progress.Completed))
	copy(history, m.progress.Completed)

	return State{
		LessonPlan: lesson,
		Activity:   lesson.LessonPlan.Activities[ai],
		History:    history,
		IsComplete: m.IsComplete(),
	}, nil
}

// RecordActivity appends a completion record at the current cursor.
// It never moves the cursor.
func (m *Manager) RecordActivity(studentResponse, botReply string) {
	m.progress.Completed = append(m.progress.Completed, model.CompletedActivity{
		LessonIndex:   m.progress.LessonIndex,
		ActivityIndex: m.progress.ActivityIndex,
		Response:      studentResponse,
		BotReply:      botReply,
	})
}

// AdvanceToNextActivity moves to the next activity, or to the first activity
// of the next lesson. At the last activity of the last lesson it does nothing.
func (m *Manager) AdvanceToNextActivity() {
	if !m.validCursor() {
		return
	}
	lesson := m.plans[m.progress.LessonIndex]
	switch {
	case m.progress.ActivityIndex < len(lesson.LessonPlan.Activities)-1:
		m.progress.ActivityIndex++
	case m.progress.LessonIndex < len(m.plans)-1:
		m.progress.LessonIndex++
		m.progress.ActivityIndex = 0
	}
}

// IsComplete reports whether the cursor is at the final activity of the final
// lesson and a response has been recorded there.
func (m *Manager) IsComplete() bool {
	if !m.validCursor() || !m.atEnd() {
		return false
	}
	for _, c := range m.progress.Completed {
		if c.LessonIndex == m.progress.LessonIndex && c.ActivityIndex == m.progress.ActivityIndex {
			return true
		}
	}
	return false
}

// TotalActivities returns the number of activities across all lessons.
func (m *Manager) TotalActivities() int {
	n := 0
	for _, p := range m.plans {
		n += len(p.LessonPlan.Activities)
	}
	return n
}

// Progress summarizes the cursor for display.
func (m *Manager) Progress() model.Progress {
	done := make(map[Cursor]struct{})
	for _, c := range m.progress.Completed {
		done[Cursor{LessonIndex: c.LessonIndex, ActivityIndex: c.ActivityIndex}] = struct{}{}
	}
	return model.Progress{
		LessonIndex:     m.progress.LessonIndex,
		ActivityIndex:   m.progress.ActivityIndex,
		TotalLessons:    len(m.plans),
		TotalActivities: m.TotalActivities(),
		Completed:       len(done),
		IsComplete:      m.IsComplete(),
	}
}

// Completed returns a copy of the completion log.
func (m *Manager) Completed() []model.CompletedActivity {
	out := make([]model.CompletedActivity, len(m.progress.Completed))
	copy(out, m.progress.Completed)
	return out
}

func (m *Manager) validCursor() bool {
	li, ai := m.progress.LessonIndex, m.progress.ActivityIndex
	if li < 0 || li >= len(m.plans) {
		return false
	}
	return ai >= 0 && ai < len(m.plans[li].LessonPlan.Activities)
}

func (m *Manager) atEnd() bool {
	last := len(m.plans) - 1
	return m.progress.LessonIndex == last &&
		m.progress.ActivityIndex == len(m.plans[last].LessonPlan.Activities)-1
}
