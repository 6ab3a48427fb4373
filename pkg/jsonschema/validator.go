// Package jsonschema wraps JSON Schema compilation and validation for
// request-body checks. Schemas are compiled once at configuration load and
// reused for every request that hits the route.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Messages returns the individual error strings, for recording on a capture.
func (ve ValidationErrors) Messages() []string {
	msgs := make([]string, 0, len(ve))
	for _, err := range ve {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

// Validator holds a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles a JSON Schema document into a Validator.
func NewValidator(schemaStr string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaStr)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// Validate checks a JSON document against the compiled schema. It returns
// true when the document is valid; otherwise false plus the individual
// validation errors. A document that is not JSON at all is reported as a
// single validation error rather than failing the call.
func (v *Validator) Validate(doc []byte) (bool, ValidationErrors) {
	var data interface{}
	if err := json.Unmarshal(doc, &data); err != nil {
		return false, ValidationErrors{fmt.Errorf("invalid JSON: %w", err)}
	}

	err := v.schema.Validate(data)
	if err == nil {
		return true, nil
	}

	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		return false, flatten(validationErr)
	}
	return false, ValidationErrors{err}
}

// flatten extracts all leaf errors from a jsonschema.ValidationError tree.
func flatten(err *jsonschema.ValidationError) ValidationErrors {
	var errors ValidationErrors

	if err.Message != "" {
		errors = append(errors, fmt.Errorf("validation error at %s: %s", err.InstanceLocation, err.Message))
	}
	for _, child := range err.Causes {
		errors = append(errors, flatten(child)...)
	}

	return errors
}
