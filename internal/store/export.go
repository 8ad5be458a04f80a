package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pavelanni/tutor/internal/lesson"
	"github.com/pavelanni/tutor/internal/model"
)

// ExportTranscripts builds export-ready transcripts from all session snapshots.
func (s *Store) ExportTranscripts(ctx context.Context) ([]model.SessionTranscript, error) {
	snaps, err := s.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var results []model.SessionTranscript
	for _, snap := range snaps {
		tr, err := transcriptFromSnapshot(snap)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", snap.ID, err)
		}
		results = append(results, tr)
	}
	return results, nil
}

func transcriptFromSnapshot(snap model.SessionSnapshot) (model.SessionTranscript, error) {
	tr := model.SessionTranscript{
		SessionID:    snap.ID,
		StudentID:    snap.StudentID,
		StudentGrade: snap.StudentGrade,
		Status:       snap.Status,
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
	}

	if len(snap.Curriculum) > 0 {
		if err := json.Unmarshal(snap.Curriculum, &tr.Curriculum); err != nil {
			return tr, fmt.Errorf("decode curriculum: %w", err)
		}
	}

	var history []model.FeedbackInteraction
	if err := json.Unmarshal(snap.History, &history); err != nil {
		return tr, fmt.Errorf("decode history: %w", err)
	}
	for _, in := range history {
		tr.Conversation = append(tr.Conversation, model.ConversationMsg{
			Role: string(model.RoleTutor), Content: in.Feedback, At: in.Timestamp,
		})
		if in.StudentResponse != "" {
			tr.Conversation = append(tr.Conversation, model.ConversationMsg{
				Role: string(model.RoleStudent), Content: in.StudentResponse, At: in.Timestamp,
			})
		}
		if in.BotReplyToResponse != "" {
			tr.Conversation = append(tr.Conversation, model.ConversationMsg{
				Role: string(model.RoleTutor), Content: in.BotReplyToResponse, At: in.Timestamp,
			})
		}
	}

	// The progress blob is the lesson manager's own serialization; restoring
	// it also checks that it matches the stored curriculum.
	if snap.Progress != "" {
		m, err := lesson.RestoreManager(tr.Curriculum, snap.Progress)
		if err != nil {
			return tr, fmt.Errorf("restore progress: %w", err)
		}
		tr.Completed = m.Completed()
		p := m.Progress()
		tr.Progress = &p
	}
	return tr, nil
}
