package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// feedbackSchema is the compiled JSON Schema every feedback completion must
// satisfy: exactly five category scores carrying the fixed category names in
// order, with all scores clamped to [0,100].
var feedbackSchema *jsonschema.Schema

// feedbackSchemaJSON pins the contract the external scoring service is
// constrained against.
const feedbackSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["overallScore", "categoryScores", "strengths", "improvementAreas", "summary"],
	"properties": {
		"overallScore": {"type": "integer", "minimum": 0, "maximum": 100},
		"categoryScores": {
			"type": "array",
			"minItems": 5,
			"maxItems": 5,
			"prefixItems": [
				{"$ref": "#/$defs/categoryScore", "properties": {"categoryName": {"const": "Communication Skills"}}},
				{"$ref": "#/$defs/categoryScore", "properties": {"categoryName": {"const": "Technical Knowledge"}}},
				{"$ref": "#/$defs/categoryScore", "properties": {"categoryName": {"const": "Problem Solving"}}},
				{"$ref": "#/$defs/categoryScore", "properties": {"categoryName": {"const": "Cultural Fit"}}},
				{"$ref": "#/$defs/categoryScore", "properties": {"categoryName": {"const": "Confidence and Clarity"}}}
			]
		},
		"strengths": {"type": "array", "items": {"type": "string"}},
		"improvementAreas": {"type": "array", "items": {"type": "string"}},
		"summary": {"type": "string"}
	},
	"$defs": {
		"categoryScore": {
			"type": "object",
			"required": ["categoryName", "score", "comment"],
			"properties": {
				"categoryName": {"type": "string"},
				"score": {"type": "integer", "minimum": 0, "maximum": 100},
				"comment": {"type": "string"}
			}
		}
	}
}`

func init() {
	feedbackSchema = mustCompileSchema(feedbackSchemaJSON, "feedback.schema.json")
}

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// validateFeedbackPayload checks raw JSON bytes against the feedback schema
// and returns one message per violation, or nil when the payload conforms.
func validateFeedbackPayload(data []byte) []string {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return []string{fmt.Sprintf("JSON parse error: %v", err)}
	}

	err := feedbackSchema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
