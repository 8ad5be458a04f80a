package llm

import "github.com/pavelanni/tutor/internal/llm/prompts"

// demoCurriculum is a two-activity curriculum in the shape the curriculum
// designer is asked to produce.
const demoCurriculum = `{
  "analysis": {
    "gradeLevel": "demo",
    "strengthAreas": ["clear topic"],
    "improvementAreas": ["sentence variety", "supporting details"]
  },
  "lessonPlans": [{
    "pedagogy": "SAFE",
    "lessonPlan": {
      "objective": "Vary sentence openings and support the main idea with details",
      "commonCoreStandards": ["W.2", "L.3"],
      "themes": ["sentence variety", "details"],
      "activities": [
        {
          "order": 1,
          "name": "Mix the openings",
          "text": "Rewrite three sentences from your essay so each one starts differently.",
          "theme": "sentence variety",
          "assessmentCriteria": ["three sentences rewritten", "no two openings alike"]
        },
        {
          "order": 2,
          "name": "Add a detail",
          "text": "Pick your main idea and add one sentence with a concrete example.",
          "theme": "details",
          "assessmentCriteria": ["example supports the main idea"]
        }
      ]
    }
  }]
}`

// newDemoProvider returns a mock that answers every purpose the service uses,
// so the server can run a whole session without a model. Tutor turns always
// complete the activity.
func newDemoProvider() *MockProvider {
	m := NewMockProvider()
	m.ByPurpose = map[string]string{
		"curriculum": demoCurriculum,
		"welcome":    "Welcome! We will practice varying your sentences and adding details. You can do this!",
		"feedback":   "Let's start. Rewrite three sentences from your essay so each one starts differently.",
	}
	m.Fallback = "Nice work. " + prompts.CompletionMarker
	return m
}
