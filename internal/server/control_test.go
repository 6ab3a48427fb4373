package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wesleyorama2/sink/internal/config"
)

func postSample(t *testing.T, handler http.Handler, path, body string) {
	t.Helper()
	r := httptest.NewRequest("POST", path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(httptest.NewRecorder(), r)
}

func TestControlHealthz(t *testing.T) {
	s, _ := newTestServer(t, nil, WithQuiet())
	handler := s.Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_sink/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestControlListAndClearCaptures(t *testing.T) {
	s, _ := newTestServer(t, nil, WithQuiet())
	handler := s.Handler()

	postSample(t, handler, "/a", `{"n":1}`)
	postSample(t, handler, "/b", `{"n":2}`)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_sink/captures", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var list struct {
		Count    int   `json:"count"`
		Seen     int64 `json:"seen"`
		Captures []struct {
			ID   int64  `json:"id"`
			Path string `json:"path"`
			Body string `json:"body"`
		} `json:"captures"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if list.Count != 2 || list.Seen != 2 {
		t.Errorf("count = %d, seen = %d, want 2, 2", list.Count, list.Seen)
	}
	if list.Captures[0].Path != "/a" || list.Captures[0].Body != `{"n":1}` {
		t.Errorf("first capture = %+v", list.Captures[0])
	}

	// Control requests are not themselves captured
	if s.Store().Len() != 2 {
		t.Errorf("store has %d records after listing, want 2", s.Store().Len())
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("DELETE", "/_sink/captures", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", w.Code)
	}
	if s.Store().Len() != 0 {
		t.Errorf("store has %d records after clear, want 0", s.Store().Len())
	}
}

func TestControlGetCapture(t *testing.T) {
	s, _ := newTestServer(t, nil, WithQuiet())
	handler := s.Handler()

	postSample(t, handler, "/push", `{"endpoint":"https://e.com","keys":{"auth":"s3cret"}}`)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_sink/captures/1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var rec struct {
		ID     int64  `json:"id"`
		Method string `json:"method"`
		Body   string `json:"body"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec.ID != 1 || rec.Method != "POST" {
		t.Errorf("record = %+v", rec)
	}
	if !strings.Contains(rec.Body, "s3cret") {
		t.Errorf("body = %q, want original payload", rec.Body)
	}
}

func TestControlGetCaptureErrors(t *testing.T) {
	s, _ := newTestServer(t, nil, WithQuiet())
	handler := s.Handler()

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{
			name:       "Unknown id",
			target:     "/_sink/captures/99",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Non-numeric id",
			target:     "/_sink/captures/abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", tt.target, nil))
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestControlCaptureJSONPathExtraction(t *testing.T) {
	s, _ := newTestServer(t, nil, WithQuiet())
	handler := s.Handler()

	postSample(t, handler, "/push", `{"endpoint":"https://e.com","keys":{"auth":"s3cret"}}`)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_sink/captures/1?path=$.keys.auth", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var ext struct {
		ID    int64  `json:"id"`
		Path  string `json:"path"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ext); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if ext.Value != "s3cret" {
		t.Errorf("value = %q, want s3cret", ext.Value)
	}

	// Path that does not resolve
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_sink/captures/1?path=$.nope", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status for bad path = %d, want 422", w.Code)
	}
}

func TestControlStats(t *testing.T) {
	s, _ := newTestServer(t, nil, WithQuiet())
	handler := s.Handler()

	postSample(t, handler, "/a", "12345")

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_sink/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var snap struct {
		TotalRequests int64            `json:"totalRequests"`
		TotalBytes    int64            `json:"totalBytes"`
		ByMethod      map[string]int64 `json:"byMethod"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if snap.TotalRequests != 1 || snap.TotalBytes != 5 {
		t.Errorf("snapshot = %+v", snap)
	}

	// Control traffic does not count toward stats
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/_sink/stats", nil))
	if got := s.Stats().Snapshot().TotalRequests; got != 1 {
		t.Errorf("TotalRequests after control calls = %d, want 1", got)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("DELETE", "/_sink/stats", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", w.Code)
	}
	if got := s.Stats().Snapshot().TotalRequests; got != 0 {
		t.Errorf("TotalRequests after reset = %d, want 0", got)
	}
}

func TestControlDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.DisableControl = true
	s, _ := newTestServer(t, cfg, WithQuiet())
	handler := s.Handler()

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/_sink/captures", nil))

	// With the control plane off, /_sink/ paths are inspected like any other
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if s.Store().Len() != 1 {
		t.Errorf("store has %d records, want the control path captured", s.Store().Len())
	}
}
