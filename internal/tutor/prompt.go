package tutor

import (
	"strings"

	"github.com/pavelanni/tutor/internal/llm/prompts"
	"github.com/pavelanni/tutor/internal/model"
)

// replayMessages rebuilds the conversation from past interactions, oldest
// first: the tutor's feedback, then the student's response and the tutor's
// reply when present.
func replayMessages(interactions []model.FeedbackInteraction) []model.Message {
	msgs := make([]model.Message, 0, len(interactions)*3+1)
	for _, in := range interactions {
		msgs = append(msgs, model.Message{Role: model.RoleTutor, Content: in.Feedback})
		if in.StudentResponse != "" {
			msgs = append(msgs, model.Message{Role: model.RoleStudent, Content: in.StudentResponse})
		}
		if in.BotReplyToResponse != "" {
			msgs = append(msgs, model.Message{Role: model.RoleTutor, Content: in.BotReplyToResponse})
		}
	}
	return msgs
}

// buildMessages appends the final student turn to the replayed history.
func buildMessages(interactions []model.FeedbackInteraction, studentTurn string) []model.Message {
	return append(replayMessages(interactions), model.Message{Role: model.RoleStudent, Content: studentTurn})
}

// isActivityComplete reports whether a tutor reply carries the completion marker.
// The match is exact and case-sensitive.
func isActivityComplete(reply string) bool {
	return strings.Contains(reply, prompts.CompletionMarker)
}
