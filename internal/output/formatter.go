// Package output formats captured requests for the terminal. It is the
// server-side sibling of a client's request printer: one banner per received
// request, headers, then the body with JSON pretty-printed.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/wesleyorama2/sink/internal/capture"
)

// Formatter renders captured requests as human-readable text.
type Formatter struct {
	Verbose bool
	NoColor bool
	scheme  *ColorScheme
}

// NewFormatter creates a new formatter with the given options
func NewFormatter(verbose, noColor bool) *Formatter {
	scheme := DefaultColorScheme()
	if noColor {
		scheme = NoColorScheme()
	}
	return &Formatter{
		Verbose: verbose,
		NoColor: noColor,
		scheme:  scheme,
	}
}

// IsTerminal reports whether stdout is a terminal, for automatic color
// detection.
func IsTerminal() bool {
	return checkIsTerminal(os.Stdout)
}

// FormatRecord formats a captured request for display.
func (f *Formatter) FormatRecord(rec *capture.Record) string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("▶ REQUEST #%d: %s %s %s\n",
		rec.ID,
		f.scheme.Method.Sprint(rec.Method),
		f.scheme.Path.Sprint(requestTarget(rec)),
		rec.Proto))

	if f.Verbose {
		buf.WriteString(fmt.Sprintf("  From: %s at %s\n",
			rec.RemoteAddr, rec.ReceivedAt.Format("15:04:05.000")))
	}

	buf.WriteString("  Headers:\n")
	for _, key := range sortedHeaderKeys(rec.Headers) {
		for _, value := range rec.Headers[key] {
			buf.WriteString(fmt.Sprintf("    %s: %s\n",
				f.scheme.HeaderKey.Sprint(key),
				f.scheme.HeaderValue.Sprint(value)))
		}
	}

	f.writeBody(&buf, rec)
	f.writeSchemaResult(&buf, rec)

	return buf.String()
}

// FormatResponse formats the one-line summary of the reply sent back.
func (f *Formatter) FormatResponse(status int, note string) string {
	statusColor := f.scheme.StatusOK
	switch {
	case status >= 500:
		statusColor = f.scheme.StatusError
	case status >= 400:
		statusColor = f.scheme.StatusWarn
	}

	line := fmt.Sprintf("◀ RESPONSE: %s", statusColor.Sprintf("%d %s", status, http.StatusText(status)))
	if note != "" {
		line += fmt.Sprintf(" (%s)", note)
	}
	return line + "\n"
}

func (f *Formatter) writeBody(buf *strings.Builder, rec *capture.Record) {
	if len(rec.Body) == 0 {
		if rec.DeclaredLength > 0 {
			buf.WriteString(fmt.Sprintf("  Body: %s\n",
				f.scheme.Meta.Sprintf("<empty; %d bytes declared but not read>", rec.DeclaredLength)))
		}
		return
	}

	if !rec.IsTextBody() {
		buf.WriteString(fmt.Sprintf("  Body: %s\n",
			f.scheme.Meta.Sprintf("<%d bytes of binary data>", len(rec.Body))))
		return
	}

	buf.WriteString("  Body:\n")
	body := formatJSONString(string(rec.Body))
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		buf.WriteString("    " + line + "\n")
	}
	if rec.BodyTruncated {
		buf.WriteString(fmt.Sprintf("    %s\n", f.scheme.Meta.Sprint("<truncated>")))
	}
}

func (f *Formatter) writeSchemaResult(buf *strings.Builder, rec *capture.Record) {
	if rec.SchemaValid == nil {
		return
	}

	if *rec.SchemaValid {
		buf.WriteString(fmt.Sprintf("  Schema: %s valid\n", SuccessIcon(f.NoColor)))
		return
	}

	buf.WriteString(fmt.Sprintf("  Schema: %s invalid\n", ErrorIcon(f.NoColor)))
	for _, msg := range rec.SchemaErrors {
		buf.WriteString(fmt.Sprintf("    %s\n", f.scheme.Error.Sprint(msg)))
	}
}

func requestTarget(rec *capture.Record) string {
	if rec.Query != "" {
		return rec.Path + "?" + rec.Query
	}
	return rec.Path
}

func sortedHeaderKeys(headers http.Header) []string {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// formatJSONString attempts to pretty-print a JSON string
func formatJSONString(s string) string {
	var prettyJSON bytes.Buffer
	err := json.Indent(&prettyJSON, []byte(s), "", "  ")
	if err != nil {
		return s
	}
	return prettyJSON.String()
}
