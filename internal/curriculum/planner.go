// Package curriculum turns a student's writing sample into a lesson plan
// curriculum with a single model call.
package curriculum

import (
	"context"
	"errors"
	"fmt"

	"github.com/pavelanni/tutor/internal/llm"
	"github.com/pavelanni/tutor/internal/llm/prompts"
	"github.com/pavelanni/tutor/internal/model"
)

// ErrGeneration matches failures of the model call itself.
var ErrGeneration = errors.New("curriculum generation failed")

const (
	defaultMaxTokens = 4096
	temperature      = 0.5
)

// Input is what the curriculum designer needs about the student.
type Input struct {
	StudentText       string
	StudentReflection string
	StudentGrade      int
}

// Validate checks the input before spending a model call on it.
func (in Input) Validate() error {
	if in.StudentText == "" {
		return errors.New("student text is required")
	}
	if in.StudentGrade < 1 || in.StudentGrade > 12 {
		return fmt.Errorf("student grade must be between 1 and 12, got %d", in.StudentGrade)
	}
	return nil
}

// Planner generates curricula with a language model.
type Planner struct {
	provider  llm.Provider
	maxTokens int
}

// NewPlanner creates a planner. maxTokens <= 0 selects the default.
func NewPlanner(p llm.Provider, maxTokens int) *Planner {
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Planner{provider: p, maxTokens: maxTokens}
}

// GenerateRaw returns the model's unparsed curriculum text.
func (p *Planner) GenerateRaw(ctx context.Context, in Input) (string, error) {
	system, err := prompts.CurriculumSystemPrompt()
	if err != nil {
		return "", err
	}
	user, err := prompts.BuildCurriculumUserPrompt(in.StudentText, in.StudentReflection, in.StudentGrade)
	if err != nil {
		return "", err
	}

	resp, err := p.provider.Generate(llm.WithPurpose(ctx, "curriculum"), llm.Request{
		System:      system,
		Messages:    []model.Message{{Role: model.RoleStudent, Content: user}},
		MaxTokens:   p.maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return resp.Text, nil
}

// Generate calls the model and parses its reply. Parse failures match
// ErrCurriculumParse; model failures match ErrGeneration.
func (p *Planner) Generate(ctx context.Context, in Input) (*Result, error) {
	raw, err := p.GenerateRaw(ctx, in)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}
