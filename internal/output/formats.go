package output

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wesleyorama2/sink/internal/capture"
)

// OutputFormat represents the available output formats
type OutputFormat string

const (
	// FormatText is the default human-readable text format
	FormatText OutputFormat = "text"
	// FormatJSON outputs one JSON object per request, for piping into jq
	// or shipping to a log collector
	FormatJSON OutputFormat = "json"
)

// FormatProvider is an interface for different output formatters
type FormatProvider interface {
	FormatRecord(rec *capture.Record) string
	FormatResponse(status int, note string) string
}

// GetFormatter returns the appropriate formatter for the specified format
func GetFormatter(format OutputFormat, verbose, noColor bool) FormatProvider {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Verbose: verbose}
	default:
		return NewFormatter(verbose, noColor)
	}
}

// ValidFormat reports whether the given format name is supported.
func ValidFormat(format string) bool {
	switch OutputFormat(format) {
	case FormatText, FormatJSON:
		return true
	}
	return false
}

// JSONFormatter renders captured requests as single-line JSON objects.
type JSONFormatter struct {
	Verbose bool
}

// FormatRecord formats a captured request as a JSON line. The record is
// copied before serialization; stored records stay untouched.
func (f *JSONFormatter) FormatRecord(rec *capture.Record) string {
	c := *rec
	c.PrepareBody()

	data, err := json.Marshal(&c)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`+"\n", err.Error())
	}
	return string(data) + "\n"
}

// FormatResponse emits the reply summary as a JSON line. Suppressed unless
// verbose: the interesting half of a sink's output is the request.
func (f *JSONFormatter) FormatResponse(status int, note string) string {
	if !f.Verbose {
		return ""
	}

	summary := struct {
		Response int    `json:"response"`
		Status   string `json:"status"`
		Note     string `json:"note,omitempty"`
	}{
		Response: status,
		Status:   http.StatusText(status),
		Note:     note,
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return ""
	}
	return string(data) + "\n"
}
