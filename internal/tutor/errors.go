package tutor

import (
	"errors"
	"fmt"
)

// StateError reports an operation that is invalid for the session's current
// state. It is the client's fault and can be retried after the state changes.
type StateError struct {
	msg string
}

func (e *StateError) Error() string { return e.msg }

var (
	// ErrSessionNotReady is returned when feedback is requested before a
	// curriculum has been attached.
	ErrSessionNotReady = &StateError{"session waiting for curriculum initialization"}
	// ErrNoLessonManager is returned when a session has no lesson manager.
	ErrNoLessonManager = &StateError{"lesson manager not initialized"}
	// ErrNoPriorInteraction is returned when a student responds before any
	// feedback has been given.
	ErrNoPriorInteraction = &StateError{"no previous interaction found"}
	// ErrEmptyCurriculum is returned when a curriculum has no lessons or a
	// lesson has no activities.
	ErrEmptyCurriculum = &StateError{"curriculum must contain at least one lesson with at least one activity"}
	// ErrCurriculumExists is returned when a curriculum is attached twice.
	ErrCurriculumExists = &StateError{"session already has a curriculum"}
)

// ErrSessionNotFound is returned by the registry for unknown or evicted ids.
var ErrSessionNotFound = errors.New("session not found")

// UpstreamError wraps a failed model call. Its message is generic; the cause
// is available through Unwrap for logging only.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	switch e.Op {
	case "feedback":
		return "failed to generate feedback"
	case "response":
		return "failed to generate response"
	default:
		return fmt.Sprintf("failed to generate %s", e.Op)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }
