package corpus

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var intentsSchema = map[string]interface{}{
	"type":     "array",
	"minItems": 1,
	"items": map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"tag", "patterns", "responses"},
		"properties": map[string]interface{}{
			"tag": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
			"patterns": map[string]interface{}{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]interface{}{"type": "string"},
			},
			"responses": map[string]interface{}{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]interface{}{"type": "string"},
			},
		},
	},
}

func validateSchema(doc interface{}) error {
	if doc == nil {
		return ErrEmptyCorpus
	}
	if arr, ok := doc.([]interface{}); ok && len(arr) == 0 {
		return ErrEmptyCorpus
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(intentsSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return fmt.Errorf("intents schema validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(errs, "; "))
	}
	return nil
}
