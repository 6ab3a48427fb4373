// Package jsonpath extracts values from JSON documents using a subset of
// JSONPath syntax. It backs the capture query endpoint, letting clients pull
// single fields out of recorded request bodies.
package jsonpath

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Extract extracts a value from a JSON document using a JSONPath expression
// such as $.subscription.keys.p256dh or $.items[2].id.
func Extract(doc string, path string) (string, error) {
	result, err := lookup(doc, path)
	if err != nil {
		return "", err
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// ExtractRaw is like Extract but returns the raw JSON of the matched value,
// preserving quoting and nesting. Useful when the caller wants to re-parse
// the result rather than display it.
func ExtractRaw(doc string, path string) (string, error) {
	result, err := lookup(doc, path)
	if err != nil {
		return "", err
	}
	return result.Raw, nil
}

func lookup(doc string, path string) (gjson.Result, error) {
	if doc == "" {
		return gjson.Result{}, fmt.Errorf("empty JSON document")
	}
	if path == "" {
		return gjson.Result{}, fmt.Errorf("empty JSONPath expression")
	}
	if !gjson.Valid(doc) {
		return gjson.Result{}, fmt.Errorf("document is not valid JSON")
	}

	result := gjson.Get(doc, toGjsonPath(path))
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("path not found: %s", path)
	}
	return result, nil
}

// toGjsonPath converts a JSONPath expression to gjson's dotted path format.
//
//	JSONPath: $.users[0].name
//	gjson:    users.0.name
func toGjsonPath(path string) string {
	if path == "$" {
		return "@this"
	}

	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	// Bracketed property names: ['name'] and ["name"]
	replacer := strings.NewReplacer("['", ".", "']", "", `["`, ".", `"]`, "")
	path = replacer.Replace(path)

	// Array indices: [0] -> .0
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")

	// A bracket at the root leaves a stray leading dot
	return strings.TrimPrefix(path, ".")
}
