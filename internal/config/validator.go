package config

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/wesleyorama2/sink/pkg/jsonschema"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

// Error returns the error message
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) []ValidationError {
	var errors []ValidationError

	if config.Listen.Addr != "" {
		if _, _, err := net.SplitHostPort(config.Listen.Addr); err != nil {
			errors = append(errors, ValidationError{
				Path:    "listen.addr",
				Message: fmt.Sprintf("invalid listen address %q", config.Listen.Addr),
			})
		}
	}

	if config.Capture.Size < 0 {
		errors = append(errors, ValidationError{
			Path:    "capture.size",
			Message: "must not be negative",
		})
	}
	if config.Capture.BodyLimit < 0 {
		errors = append(errors, ValidationError{
			Path:    "capture.bodyLimit",
			Message: "must not be negative",
		})
	}

	errors = append(errors, validateResponse("response", &config.Response)...)

	seen := make(map[string]bool)
	for i, route := range config.Routes {
		path := fmt.Sprintf("routes[%d]", i)

		if route.Prefix == "" {
			errors = append(errors, ValidationError{
				Path:    path + ".prefix",
				Message: "prefix is required",
			})
		} else if !strings.HasPrefix(route.Prefix, "/") {
			errors = append(errors, ValidationError{
				Path:    path + ".prefix",
				Message: "prefix must start with /",
			})
		} else if seen[route.Prefix] {
			errors = append(errors, ValidationError{
				Path:    path + ".prefix",
				Message: fmt.Sprintf("duplicate prefix %q", route.Prefix),
			})
		}
		seen[route.Prefix] = true

		errors = append(errors, validateResponse(path+".response", &route.Response)...)

		if route.Schema != "" {
			if _, err := jsonschema.NewValidator(route.Schema); err != nil {
				errors = append(errors, ValidationError{
					Path:    path + ".schema",
					Message: err.Error(),
				})
			}
		}
	}

	return errors
}

func validateResponse(path string, resp *ResponseConfig) []ValidationError {
	var errors []ValidationError

	if resp.Status != 0 && http.StatusText(resp.Status) == "" {
		errors = append(errors, ValidationError{
			Path:    path + ".status",
			Message: fmt.Sprintf("unknown HTTP status code %d", resp.Status),
		})
	}
	if resp.Delay < 0 {
		errors = append(errors, ValidationError{
			Path:    path + ".delay",
			Message: "must not be negative",
		})
	}
	if resp.Echo && resp.Body != "" {
		errors = append(errors, ValidationError{
			Path:    path,
			Message: "echo and body are mutually exclusive",
		})
	}

	return errors
}
