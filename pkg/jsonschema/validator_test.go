package jsonschema

import (
	"strings"
	"testing"
)

const notificationSchema = `{
	"type": "object",
	"required": ["endpoint", "ttl"],
	"properties": {
		"endpoint": { "type": "string", "format": "uri" },
		"ttl": { "type": "integer", "minimum": 0 },
		"topic": { "type": "string", "maxLength": 32 }
	}
}`

func TestNewValidatorInvalidSchema(t *testing.T) {
	tests := []struct {
		name   string
		schema string
	}{
		{
			name:   "Not JSON",
			schema: "{not json",
		},
		{
			name:   "Invalid type keyword",
			schema: `{"type": "not-a-type"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewValidator(tt.schema); err == nil {
				t.Errorf("NewValidator() error = nil, want error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	v, err := NewValidator(notificationSchema)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	tests := []struct {
		name  string
		doc   string
		valid bool
	}{
		{
			name:  "Valid document",
			doc:   `{"endpoint": "https://push.example.com/send/x", "ttl": 60}`,
			valid: true,
		},
		{
			name:  "Missing required field",
			doc:   `{"endpoint": "https://push.example.com/send/x"}`,
			valid: false,
		},
		{
			name:  "Wrong type",
			doc:   `{"endpoint": "https://push.example.com/send/x", "ttl": "soon"}`,
			valid: false,
		},
		{
			name:  "Constraint violation",
			doc:   `{"endpoint": "https://push.example.com/send/x", "ttl": -5}`,
			valid: false,
		},
		{
			name:  "Not JSON at all",
			doc:   `this is not json`,
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, errs := v.Validate([]byte(tt.doc))
			if valid != tt.valid {
				t.Errorf("Validate() = %v, want %v (errors: %v)", valid, tt.valid, errs)
			}
			if !tt.valid && len(errs) == 0 {
				t.Errorf("Validate() returned invalid with no errors")
			}
			if tt.valid && len(errs) != 0 {
				t.Errorf("Validate() returned valid with errors: %v", errs)
			}
		})
	}
}

func TestValidationErrorsReporting(t *testing.T) {
	v, err := NewValidator(notificationSchema)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	valid, errs := v.Validate([]byte(`{"ttl": -1}`))
	if valid {
		t.Fatal("Validate() = true, want false")
	}

	joined := errs.Error()
	if joined == "" {
		t.Error("Error() returned empty string for non-empty errors")
	}
	if len(errs) > 1 && !strings.Contains(joined, "; ") {
		t.Errorf("Error() = %q, want entries joined with '; '", joined)
	}

	msgs := errs.Messages()
	if len(msgs) != len(errs) {
		t.Errorf("Messages() returned %d entries, want %d", len(msgs), len(errs))
	}
}
