package validation

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"credit-scoring/internal/common/errors"
)

//go:embed schemas/application_record.json
var applicationRecordSchema string

//go:embed schemas/credit_default_application.json
var creditDefaultApplicationSchema string

// Schema is a compiled JSON schema used at the HTTP and job boundaries.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

var (
	// ApplicationRecord validates rule-based scoring requests.
	ApplicationRecord = mustCompile("application_record", applicationRecordSchema)
	// CreditDefaultApplication validates default-classifier requests.
	CreditDefaultApplication = mustCompile("credit_default_application", creditDefaultApplicationSchema)
)

func mustCompile(name, raw string) *Schema {
	s, err := Compile(name, raw)
	if err != nil {
		panic(err)
	}
	return s
}

// Compile parses a JSON schema document.
func Compile(name, raw string) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: compiled}, nil
}

func (s *Schema) Name() string { return s.name }

type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Errors []errors.FieldError `json:"errors,omitempty"`
}

// ValidateJSON validates a raw JSON document. A body that is not JSON at all
// is reported as a single error on the "body" field.
func (s *Schema) ValidateJSON(body []byte) *ValidationResult {
	if len(strings.TrimSpace(string(body))) == 0 {
		return invalidBody("request body is empty")
	}
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return invalidBody(fmt.Sprintf("invalid JSON: %v", err))
	}
	return toResult(result)
}

// ValidateInput validates an already decoded document.
func (s *Schema) ValidateInput(input interface{}) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return invalidBody(err.Error())
	}
	return toResult(result)
}

func invalidBody(msg string) *ValidationResult {
	return &ValidationResult{
		Valid:  false,
		Errors: []errors.FieldError{{Field: "body", Message: msg, Code: "invalid_json"}},
	}
}

func toResult(result *gojsonschema.Result) *ValidationResult {
	if result.Valid() {
		return &ValidationResult{Valid: true}
	}

	fieldErrors := make([]errors.FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		fieldErrors = append(fieldErrors, errors.FieldError{
			Field:   fieldName(desc),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	// gojsonschema walks properties in map order
	sort.SliceStable(fieldErrors, func(i, j int) bool {
		return fieldErrors[i].Field < fieldErrors[j].Field
	})
	return &ValidationResult{Valid: false, Errors: fieldErrors}
}

func fieldName(desc gojsonschema.ResultError) string {
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			return prop
		}
	}
	field := desc.Field()
	if field == "(root)" || field == "" {
		return "body"
	}
	return field
}

// Err returns nil for a valid result and a VALIDATION_FAILED error otherwise.
func (vr *ValidationResult) Err() error {
	if vr.Valid {
		return nil
	}
	return errors.NewValidationError(vr.Errors)
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}
