package generation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// JSON Schemas for the backend responses that feed directly into persisted
// documents. Validating before decoding keeps a malformed generation
// response from ever reaching the store.

const quizResponseSchema = `{
	"type": "object",
	"required": ["quizId", "questions"],
	"properties": {
		"quizId": {"type": "string", "minLength": 1},
		"questions": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["id", "question"],
				"properties": {
					"id": {"type": "string", "minLength": 1},
					"question": {"type": "string", "minLength": 1}
				}
			}
		}
	}
}`

const evaluationResponseSchema = `{
	"type": "object",
	"required": ["score", "completionStatus"],
	"properties": {
		"score": {"type": "number", "minimum": 0, "maximum": 100},
		"feedback": {"type": "string"},
		"completionStatus": {"enum": ["completed", "needs_review"]}
	}
}`

var (
	quizSchema       = gojsonschema.NewStringLoader(quizResponseSchema)
	evaluationSchema = gojsonschema.NewStringLoader(evaluationResponseSchema)
)

func validateResponse(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("validate response: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid response: %s", errs[0])
		}
		return fmt.Errorf("invalid response")
	}
	return nil
}
