package curriculum

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pavelanni/tutor/internal/model"
)

// ErrCurriculumParse matches every curriculum parse failure.
var ErrCurriculumParse = errors.New("curriculum parse failed")

// ParseError carries the raw model text that could not be parsed.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %v", ErrCurriculumParse, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCurriculumParse) true for any *ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrCurriculumParse }

// Analysis is the designer's assessment of the writing sample.
type Analysis struct {
	GradeLevel          any      `json:"gradeLevel,omitempty"`
	CommonCoreStandards []string `json:"commonCoreStandards,omitempty"`
	StrengthAreas       []string `json:"strengthAreas,omitempty"`
	ImprovementAreas    []string `json:"improvementAreas,omitempty"`
}

// Result is a parsed curriculum.
type Result struct {
	Analysis    *Analysis          `json:"analysis,omitempty"`
	LessonPlans []model.LessonPlan `json:"lessonPlans"`
}

// Sanitize trims whitespace and drops anything after the last closing brace
// or bracket. Text with neither is returned trimmed.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	end := max(strings.LastIndexByte(s, '}'), strings.LastIndexByte(s, ']'))
	if end < 0 {
		return s
	}
	return s[:end+1]
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Parse decodes raw model text into a curriculum. It accepts either the
// {analysis, lessonPlans} object or a bare array of lesson plans, and fails
// with a *ParseError unless the result has at least one plan and every plan
// has at least one activity.
func Parse(raw string) (*Result, error) {
	text := Sanitize(stripFences(raw))
	if text == "" {
		return nil, &ParseError{Raw: raw, Err: errors.New("empty response")}
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if arr, ok := doc.([]any); ok {
		doc = map[string]any{"lessonPlans": arr}
		wrapped, err := json.Marshal(doc)
		if err != nil {
			return nil, &ParseError{Raw: raw, Err: err}
		}
		text = string(wrapped)
	}

	sch, err := schema()
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if err := sch.Validate(doc); err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	var res Result
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("decode curriculum: %w", err)}
	}
	return &res, nil
}
