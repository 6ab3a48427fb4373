package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wesleyorama2/sink/internal/capture"
	"github.com/wesleyorama2/sink/pkg/jsonpath"
)

// captureList is the payload of GET /_sink/captures.
type captureList struct {
	Count    int               `json:"count"`
	Seen     int64             `json:"seen"`
	Evicted  int64             `json:"evicted"`
	Captures []*capture.Record `json:"captures"`
}

// extraction is the payload of GET /_sink/captures/{id}?path=...
type extraction struct {
	ID    int64  `json:"id"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// errorBody is the payload of control-plane errors.
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) registerControl(mux *http.ServeMux) {
	mux.HandleFunc("GET "+ControlPrefix+"healthz", s.handleHealthz)
	mux.HandleFunc("GET "+ControlPrefix+"captures", s.handleListCaptures)
	mux.HandleFunc("DELETE "+ControlPrefix+"captures", s.handleClearCaptures)
	mux.HandleFunc("GET "+ControlPrefix+"captures/{id}", s.handleGetCapture)
	mux.HandleFunc("GET "+ControlPrefix+"stats", s.handleStats)
	mux.HandleFunc("DELETE "+ControlPrefix+"stats", s.handleResetStats)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	records := s.store.List()
	// Stored records are shared; serialize copies so PrepareBody never
	// writes to a record another goroutine may be reading
	prepared := make([]*capture.Record, len(records))
	for i, rec := range records {
		c := *rec
		c.PrepareBody()
		prepared[i] = &c
	}

	writeJSON(w, http.StatusOK, captureList{
		Count:    len(prepared),
		Seen:     s.store.Seen(),
		Evicted:  s.store.Evicted(),
		Captures: prepared,
	})
}

func (s *Server) handleClearCaptures(w http.ResponseWriter, r *http.Request) {
	s.store.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid capture id"})
		return
	}

	rec := s.store.Get(id)
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "capture not found"})
		return
	}

	if path := r.URL.Query().Get("path"); path != "" {
		if !rec.IsTextBody() {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "capture body is not text"})
			return
		}
		value, err := jsonpath.Extract(string(rec.Body), path)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, extraction{ID: rec.ID, Path: path, Value: value})
		return
	}

	c := *rec
	c.PrepareBody()
	writeJSON(w, http.StatusOK, &c)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	s.stats.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
