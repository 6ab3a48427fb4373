// Package server implements the request inspection server: every request is
// captured, printed, and answered with a configurable response (200 by
// default). A small control plane under /_sink/ exposes the captures and
// handling stats.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/wesleyorama2/sink/internal/capture"
	"github.com/wesleyorama2/sink/internal/config"
	"github.com/wesleyorama2/sink/internal/output"
	"github.com/wesleyorama2/sink/internal/stats"
	"github.com/wesleyorama2/sink/pkg/jsonschema"
)

// ControlPrefix is the path prefix reserved for the control endpoints.
const ControlPrefix = "/_sink/"

// route is a compiled route rule: its schema has been validated and compiled
// at construction time.
type route struct {
	prefix    string
	response  config.ResponseConfig
	validator *jsonschema.Validator
}

// Server inspects incoming requests.
type Server struct {
	config    *config.Config
	store     *capture.Store
	stats     *stats.Engine
	formatter output.FormatProvider
	out       io.Writer
	routes    []route
	quiet     bool
}

// Option configures a Server.
type Option func(*Server)

// WithOutput directs the per-request output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Server) {
		s.out = w
	}
}

// WithFormatter overrides the formatter used for per-request output.
func WithFormatter(f output.FormatProvider) Option {
	return func(s *Server) {
		s.formatter = f
	}
}

// WithQuiet suppresses per-request output entirely. Captures and stats are
// still recorded.
func WithQuiet() Option {
	return func(s *Server) {
		s.quiet = true
	}
}

// New creates a Server from a validated configuration. Route schemas are
// compiled here; a schema that fails to compile is a configuration error.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	cfg.ApplyDefaults()

	s := &Server{
		config:    cfg,
		store:     capture.NewStore(cfg.Capture.Size),
		stats:     stats.NewEngine(),
		formatter: output.NewFormatter(false, true),
		out:       os.Stdout,
	}

	for _, rc := range cfg.Routes {
		compiled := route{prefix: rc.Prefix, response: rc.Response}
		if rc.Schema != "" {
			validator, err := jsonschema.NewValidator(rc.Schema)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", rc.Prefix, err)
			}
			compiled.validator = validator
		}
		s.routes = append(s.routes, compiled)
	}

	// Longest prefix first so matching can stop at the first hit
	sort.SliceStable(s.routes, func(i, j int) bool {
		return len(s.routes[i].prefix) > len(s.routes[j].prefix)
	})

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Store exposes the capture store, for the CLI and tests.
func (s *Server) Store() *capture.Store {
	return s.store
}

// Stats exposes the metrics engine.
func (s *Server) Stats() *stats.Engine {
	return s.stats
}

// Handler returns the root http.Handler: control plane when enabled, the
// inspection handler for everything else.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if !s.config.DisableControl {
		s.registerControl(mux)
	}
	mux.HandleFunc("/", s.handleInspect)
	return mux
}

// ListenAndServe runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	handler := s.Handler()
	if s.config.Listen.H2C {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	srv := &http.Server{
		Addr:              s.config.Listen.Addr,
		Handler:           handler,
		ReadTimeout:       s.config.Listen.ReadTimeout.GetDuration(0),
		WriteTimeout:      s.config.Listen.WriteTimeout.GetDuration(0),
		IdleTimeout:       s.config.Listen.IdleTimeout.GetDuration(120 * time.Second),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    s.config.Listen.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// matchRoute returns the most specific route for a path, or nil.
func (s *Server) matchRoute(path string) *route {
	for i := range s.routes {
		if strings.HasPrefix(path, s.routes[i].prefix) {
			return &s.routes[i]
		}
	}
	return nil
}
