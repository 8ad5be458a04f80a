package curriculum

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "schema://curriculum.json"

// curriculumSchema describes the designer's output. A bare lesson plan array
// is wrapped as {"lessonPlans": [...]} before validation.
const curriculumSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["lessonPlans"],
  "properties": {
    "analysis": {"type": "object"},
    "lessonPlans": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["pedagogy", "lessonPlan"],
        "properties": {
          "pedagogy": {"enum": ["SAFE", "MPR"]},
          "lessonPlan": {
            "type": "object",
            "required": ["objective", "activities"],
            "properties": {
              "objective": {"type": "string"},
              "commonCoreStandards": {"type": "array", "items": {"type": "string"}},
              "themes": {"type": "array", "items": {"type": "string"}},
              "activities": {
                "type": "array",
                "minItems": 1,
                "items": {
                  "type": "object",
                  "required": ["name", "text"],
                  "properties": {
                    "order": {"type": "number"},
                    "name": {"type": "string", "minLength": 1},
                    "text": {"type": "string", "minLength": 1},
                    "theme": {"type": "string"},
                    "strategy": {"type": "string"},
                    "assessmentCriteria": {"type": "array", "items": {"type": "string"}}
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(curriculumSchema))
		if err != nil {
			compileErr = fmt.Errorf("parse curriculum schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
	})
	return compiled, compileErr
}
