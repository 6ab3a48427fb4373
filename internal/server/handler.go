package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wesleyorama2/sink/internal/capture"
	"github.com/wesleyorama2/sink/internal/config"
)

// handleInspect records, prints, and answers a request.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, truncated := s.readBody(r)

	headers := r.Header.Clone()
	if r.Host != "" {
		// net/http strips Host out of the header map; put it back so the
		// capture shows what was on the wire
		headers.Set("Host", r.Host)
	}

	rec := &capture.Record{
		ReceivedAt:     start,
		RemoteAddr:     r.RemoteAddr,
		Proto:          r.Proto,
		Method:         r.Method,
		Path:           r.URL.Path,
		Query:          r.URL.RawQuery,
		Headers:        headers,
		DeclaredLength: r.ContentLength,
		Body:           body,
		BodyTruncated:  truncated,
	}

	response := s.config.Response
	if rt := s.matchRoute(r.URL.Path); rt != nil {
		response = rt.response
		rec.Rule = rt.prefix
		if rt.validator != nil && len(body) > 0 {
			valid, errs := rt.validator.Validate(body)
			rec.SchemaValid = &valid
			rec.SchemaErrors = errs.Messages()
		}
	}

	s.store.Add(rec)

	if !s.quiet {
		fmt.Fprint(s.out, s.formatter.FormatRecord(rec))
	}

	note := s.respond(w, r, response, body)

	s.stats.Record(r.Method, time.Since(start), int64(len(body)))

	if !s.quiet {
		fmt.Fprint(s.out, s.formatter.FormatResponse(response.Status, note))
	}
}

// readBody reads the request body for capture.
//
// The default mode mirrors the behavior debug sinks have always had: read
// exactly Content-Length bytes, and read nothing when the header is missing.
// ReadFull mode drains the body instead, which is what chunked uploads need.
// Either way at most BodyLimit bytes are kept.
func (s *Server) readBody(r *http.Request) ([]byte, bool) {
	limit := s.config.Capture.BodyLimit

	if s.config.Capture.ReadFull {
		data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		if err != nil {
			return data, false
		}
		if int64(len(data)) > limit {
			io.Copy(io.Discard, r.Body)
			return data[:limit], true
		}
		return data, false
	}

	declared := r.ContentLength
	if declared <= 0 {
		return nil, false
	}

	n := declared
	if n > limit {
		n = limit
	}

	data := make([]byte, n)
	read, err := io.ReadFull(r.Body, data)
	if err != nil {
		return data[:read], false
	}
	return data, declared > limit
}

// respond writes the configured response and returns a short note describing
// anything unusual about it, for the output line.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, response config.ResponseConfig, body []byte) string {
	var notes []string

	if delay := response.Delay.GetDuration(0); delay > 0 {
		select {
		case <-time.After(delay):
			notes = append(notes, "delayed "+delay.String())
		case <-r.Context().Done():
			return "client gone during delay"
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	switch {
	case response.Echo && len(body) > 0:
		if ct := r.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(response.Status)
		w.Write(body)
		notes = append(notes, fmt.Sprintf("echoed %d bytes", len(body)))
	case response.Body != "":
		w.WriteHeader(response.Status)
		io.WriteString(w, response.Body)
	default:
		w.WriteHeader(response.Status)
	}

	return strings.Join(notes, ", ")
}
