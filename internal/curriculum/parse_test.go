package curriculum

import (
	"errors"
	"testing"

	"github.com/pavelanni/tutor/internal/model"
)

const validCurriculum = `{
  "analysis": {
    "gradeLevel": "7",
    "strengthAreas": ["voice"],
    "improvementAreas": ["spelling"]
  },
  "lessonPlans": [
    {
      "pedagogy": "SAFE",
      "lessonPlan": {
        "objective": "Spell homophones correctly",
        "commonCoreStandards": ["L.7.2"],
        "themes": ["spelling"],
        "activities": [
          {"order": 1, "name": "Warm up", "text": "List three homophones.", "theme": "spelling"},
          {"order": 2, "name": "Fix it", "text": "Correct the sentence.", "theme": "spelling",
           "assessmentCriteria": ["uses great not grate"]}
        ]
      }
    }
  ]
}`

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing junk after object", `{"a":1} trailing junk`, `{"a":1}`},
		{"trailing junk after array", `[1,2] and more`, `[1,2]`},
		{"bracket after brace", `{"a":[1]} see [note]`, `{"a":[1]} see [note]`},
		{"whitespace trimmed", "  \n{\"a\":1}\n  ", `{"a":1}`},
		{"no delimiter", "  no json here  ", "no json here"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n[1]\n```", `[1]`},
		{`{"a":1}`, `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Errorf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseObject(t *testing.T) {
	res, err := Parse(validCurriculum + "\n\nLet me know if you need changes!")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.LessonPlans) != 1 {
		t.Fatalf("expected 1 lesson plan, got %d", len(res.LessonPlans))
	}
	lp := res.LessonPlans[0]
	if lp.Pedagogy != model.PedagogySAFE {
		t.Errorf("pedagogy = %q, want SAFE", lp.Pedagogy)
	}
	if len(lp.LessonPlan.Activities) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(lp.LessonPlan.Activities))
	}
	if got := lp.LessonPlan.Activities[1].AssessmentCriteria; len(got) != 1 || got[0] != "uses great not grate" {
		t.Errorf("unexpected assessment criteria %v", got)
	}
	if res.Analysis == nil || len(res.Analysis.ImprovementAreas) != 1 {
		t.Errorf("analysis not decoded: %+v", res.Analysis)
	}
}

func TestParseFencedBareArray(t *testing.T) {
	raw := "```json\n" + `[
  {"pedagogy": "MPR", "lessonPlan": {"objective": "o", "activities": [{"name": "n", "text": "t"}]}}
]` + "\n```"
	res, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.LessonPlans) != 1 || res.LessonPlans[0].Pedagogy != model.PedagogyMPR {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Analysis != nil {
		t.Errorf("bare array should have no analysis")
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", "   "},
		{"not json", "I could not create a plan."},
		{"truncated", `{"lessonPlans": [{"pedagogy": "SAFE"`},
		{"no lesson plans", `{"lessonPlans": []}`},
		{"missing lesson plans", `{"analysis": {}}`},
		{"bad pedagogy", `{"lessonPlans": [{"pedagogy": "LECTURE", "lessonPlan": {"objective": "o", "activities": [{"name": "n", "text": "t"}]}}]}`},
		{"empty activities", `{"lessonPlans": [{"pedagogy": "SAFE", "lessonPlan": {"objective": "o", "activities": []}}]}`},
		{"activity without text", `[{"pedagogy": "SAFE", "lessonPlan": {"objective": "o", "activities": [{"name": "n"}]}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrCurriculumParse) {
				t.Errorf("expected ErrCurriculumParse, got %v", err)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Raw != tt.raw {
				t.Errorf("ParseError.Raw = %q, want %q", pe.Raw, tt.raw)
			}
		})
	}
}
