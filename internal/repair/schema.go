package repair

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// replySchema checks types, not presence: the model routinely omits
// fields, and the classifier downstream decides what an answer with
// missing pieces means. What must hold is that whatever IS there has the
// right shape, so a string where a number belongs fails here instead of
// silently becoming a zero rating. An explicit null on a list field is
// the same as omitting it, not a type error.
const replySchema = `{
	"type": "object",
	"properties": {
		"title":             {"type": "string"},
		"titleEn":           {"type": "string"},
		"author":            {"type": "string"},
		"authorEn":          {"type": "string"},
		"mainIdeal":         {"type": "string"},
		"summaries":         {"type": ["array", "null"], "items": {"type": "string"}},
		"keyQuestions":      {"type": ["array", "null"], "items": {"type": "string"}},
		"simpleExplanation": {"type": "string"},
		"dataSource":        {"type": "string"},
		"ratings":           {"$ref": "#/definitions/ratings"},
		"books": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"properties": {
					"title":             {"type": "string"},
					"mainSummary":       {"type": "string"},
					"simpleExplanation": {"type": "string"},
					"ratings":           {"$ref": "#/definitions/ratings"}
				}
			}
		}
	},
	"definitions": {
		"ratings": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"properties": {
					"platform":  {"type": "string"},
					"rating":    {"type": "number"},
					"maxRating": {"type": "number"},
					"summary":   {"type": "string"}
				}
			}
		}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(replySchema)

func validate(span string) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(span))
	if err != nil {
		return fmt.Errorf("schema check: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema violation: %s", strings.Join(msgs, "; "))
}
