package model

import (
	"encoding/json"
	"time"
)

// Pedagogy is the instructional approach a lesson plan follows.
type Pedagogy string

const (
	// PedagogySAFE is Stimulus-Activity-Feedback-Evaluation, used for foundational skills.
	PedagogySAFE Pedagogy = "SAFE"
	// PedagogyMPR is Model-Practice-Reflect, used for advanced composition skills.
	PedagogyMPR Pedagogy = "MPR"
)

// Activity is the smallest unit of work a student performs within a lesson.
// Its identity is its position in the lesson's activity list; Order is for display.
type Activity struct {
	Order              int      `json:"order"`
	Name               string   `json:"name"`
	Text               string   `json:"text"`
	Theme              string   `json:"theme"`
	Strategy           string   `json:"strategy,omitempty"`
	AssessmentCriteria []string `json:"assessmentCriteria,omitempty"`
}

// LessonBody holds the content of a lesson plan.
type LessonBody struct {
	Objective           string     `json:"objective"`
	CommonCoreStandards []string   `json:"commonCoreStandards"`
	Themes              []string   `json:"themes"`
	Activities          []Activity `json:"activities"`
}

// LessonPlan is one generated lesson. A curriculum is an ordered slice of these.
type LessonPlan struct {
	Pedagogy   Pedagogy   `json:"pedagogy"`
	LessonPlan LessonBody `json:"lessonPlan"`
}

// CompletedActivity records one student response at a cursor position.
type CompletedActivity struct {
	LessonIndex   int    `json:"lessonIndex"`
	ActivityIndex int    `json:"activityIndex"`
	Response      string `json:"response"`
	BotReply      string `json:"botReply,omitempty"`
}

// SessionStatus represents where a feedback session is in its lifecycle.
type SessionStatus string

const (
	StatusAwaitingCurriculum SessionStatus = "awaiting_curriculum"
	StatusActive             SessionStatus = "active"
	StatusCompleted          SessionStatus = "completed"
)

// FeedbackInteraction is one tutor turn for an activity, plus the student's
// answer and the tutor's reply to it once they exist.
type FeedbackInteraction struct {
	ActivityName       string    `json:"activityName"`
	Feedback           string    `json:"feedback"`
	StudentResponse    string    `json:"studentResponse,omitempty"`
	BotReplyToResponse string    `json:"botReplyToResponse,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// Role represents a chat message role.
type Role string

const (
	RoleStudent Role = "user"
	RoleTutor   Role = "assistant"
)

// Message is one role-tagged turn sent to the language model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SessionView is the JSON shape of a feedback session returned to clients.
type SessionView struct {
	ID                string                `json:"id"`
	StudentID         string                `json:"studentId"`
	EssayText         string                `json:"essayText"`
	StudentGrade      int                   `json:"studentGrade"`
	StudentReflection string                `json:"studentReflection,omitempty"`
	Status            SessionStatus         `json:"status"`
	FeedbackHistory   []FeedbackInteraction `json:"feedbackHistory"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// Progress summarizes how far a student is through the curriculum.
type Progress struct {
	LessonIndex     int  `json:"lessonIndex"`
	ActivityIndex   int  `json:"activityIndex"`
	TotalLessons    int  `json:"totalLessons"`
	TotalActivities int  `json:"totalActivities"`
	Completed       int  `json:"completed"`
	IsComplete      bool `json:"isComplete"`
}

// SessionSnapshot is an audit copy of a session written after each mutation.
// It is never read back to resume a session.
type SessionSnapshot struct {
	ID           string          `json:"id"`
	StudentID    string          `json:"student_id"`
	StudentGrade int             `json:"student_grade"`
	Status       SessionStatus   `json:"status"`
	Progress     string          `json:"progress,omitempty"`
	Curriculum   json.RawMessage `json:"curriculum,omitempty"`
	History      json.RawMessage `json:"history"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LLMEvent records a single call to the language model.
type LLMEvent struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Purpose      string    `json:"purpose"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	LatencyMs    int64     `json:"latency_ms"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Success      bool      `json:"success"`
	Error        string    `json:"error,omitempty"`
}

// TutorConfig holds runtime parameters set via CLI flags.
type TutorConfig struct {
	Lang        string
	MaxTokens   int           // per model call
	SessionTTL  time.Duration // idle sessions are evicted after this
	MaxSessions int           // registry capacity
}
