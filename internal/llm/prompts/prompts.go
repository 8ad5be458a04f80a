// Package prompts renders the prompt text sent to the language model.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/pavelanni/tutor/internal/model"
)

const (
	// CompletionMarker is the phrase the tutor model emits when the student
	// has finished the current activity.
	CompletionMarker = "Activity completed!"

	// NextActivityRequest is the synthetic student turn that asks the tutor
	// to introduce the current activity.
	NextActivityRequest = "Please provide the next activity instruction."

	maxStudentTextRunes = 20000
)

// Templates holds the default prompt templates.
//
//go:embed templates/*.tmpl
var Templates embed.FS

var (
	studentWritingRegex    = regexp.MustCompile(`(?i)</?\s*student-(writing|reflection)\b[^>]*>`)
	systemInstructionRegex = regexp.MustCompile(`(?i)</?\s*system(-instructions)?\b[^>]*>`)
)

var templateNames = []string{
	"tutor_system",
	"curriculum_system",
	"curriculum_user",
	"welcome",
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*template.Template
)

// TutorData holds template data for the tutor system prompt.
type TutorData struct {
	Objective           string
	Pedagogy            model.Pedagogy
	ActivityName        string
	ActivityText        string
	AssessmentCriteria  string
	StudentGrade        int
	CompletionMarker    string
	NextActivityRequest string
}

// CurriculumData holds template data for the curriculum designer user prompt.
type CurriculumData struct {
	StudentText       string
	StudentReflection string
	StudentGrade      int
}

// WelcomeData holds template data for the welcome prompt.
type WelcomeData struct {
	LessonPlans string
}

// Load parses prompt templates from fsys. Only the first call has an effect.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		parsed := make(map[string]*template.Template, len(templateNames))
		for _, name := range templateNames {
			file := "templates/" + name + ".tmpl"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = errors.New("failed to read prompt file " + file + ": " + err.Error())
				return
			}
			tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
			if err != nil {
				loadErr = errors.New("failed to parse prompt template " + file + ": " + err.Error())
				return
			}
			parsed[name] = tmpl
		}
		templates = parsed
	})
	return loadErr
}

func render(name string, data any) (string, error) {
	if err := Load(Templates); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := templates[name]
	if !ok {
		return "", errors.New("unknown prompt template: " + name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

// BuildTutorSystemPrompt renders the tutor system prompt for the given lesson
// and activity. Missing assessment criteria render as an empty JSON array.
func BuildTutorSystemPrompt(plan model.LessonPlan, activity model.Activity, studentGrade int) (string, error) {
	criteria := activity.AssessmentCriteria
	if criteria == nil {
		criteria = []string{}
	}
	criteriaJSON, err := json.Marshal(criteria)
	if err != nil {
		return "", fmt.Errorf("encode assessment criteria: %w", err)
	}

	return render("tutor_system", TutorData{
		Objective:           plan.LessonPlan.Objective,
		Pedagogy:            plan.Pedagogy,
		ActivityName:        activity.Name,
		ActivityText:        activity.Text,
		AssessmentCriteria:  string(criteriaJSON),
		StudentGrade:        studentGrade,
		CompletionMarker:    CompletionMarker,
		NextActivityRequest: NextActivityRequest,
	})
}

// CurriculumSystemPrompt returns the curriculum designer system prompt.
func CurriculumSystemPrompt() (string, error) {
	return render("curriculum_system", nil)
}

// BuildCurriculumUserPrompt renders the student's writing, reflection and
// grade into the curriculum designer user prompt.
func BuildCurriculumUserPrompt(studentText, studentReflection string, studentGrade int) (string, error) {
	return render("curriculum_user", CurriculumData{
		StudentText:       sanitizeStudentText(studentText),
		StudentReflection: sanitizeStudentText(studentReflection),
		StudentGrade:      studentGrade,
	})
}

// BuildWelcomePrompt renders the welcome prompt for a curriculum.
func BuildWelcomePrompt(plans []model.LessonPlan) (string, error) {
	data, err := json.Marshal(plans)
	if err != nil {
		return "", fmt.Errorf("encode lesson plans: %w", err)
	}
	return render("welcome", WelcomeData{LessonPlans: string(data)})
}

// sanitizeStudentText strips tags that would let student input escape its
// delimiters and caps the length. Both changes are logged so an altered
// essay is visible to operators.
func sanitizeStudentText(text string) string {
	stripped := studentWritingRegex.ReplaceAllString(text, "")
	stripped = systemInstructionRegex.ReplaceAllString(stripped, "")
	if len(stripped) != len(text) {
		slog.Warn("removed delimiter tags from student text", "removed_bytes", len(text)-len(stripped))
	}
	text = strings.TrimSpace(stripped)

	if text == "" {
		return "[No text provided]"
	}

	if n := utf8.RuneCountInString(text); n > maxStudentTextRunes {
		slog.Warn("student text truncated", "runes", n, "limit", maxStudentTextRunes)
		runes := []rune(text)
		text = string(runes[:maxStudentTextRunes]) + "\n\n[Text truncated due to length]"
	}

	return text
}
