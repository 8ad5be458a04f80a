package model

import "time"

// TranscriptExport is the top-level JSON structure for transcript export.
type TranscriptExport struct {
	ExportedAt  time.Time           `json:"exported_at"`
	Server      ServerInfo          `json:"server"`
	NumSessions int                 `json:"num_sessions"`
	Sessions    []SessionTranscript `json:"sessions"`
}

// ServerInfo records how the server that produced the data was configured.
type ServerInfo struct {
	Provider  string    `json:"llm_provider"`
	Model     string    `json:"llm_model"`
	Lang      string    `json:"lang"`
	StartedAt time.Time `json:"started_at"`
}

// SessionTranscript holds one session's curriculum and conversation for export.
type SessionTranscript struct {
	SessionID    string              `json:"session_id"`
	StudentID    string              `json:"student_id"`
	StudentGrade int                 `json:"student_grade"`
	Status       SessionStatus       `json:"status"`
	Curriculum   []LessonPlan        `json:"curriculum,omitempty"`
	Conversation []ConversationMsg   `json:"conversation"`
	Completed    []CompletedActivity `json:"completed_activities,omitempty"`
	Progress     *Progress           `json:"progress,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ConversationMsg is a single message in an exported conversation.
type ConversationMsg struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}
