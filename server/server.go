// Package server exposes a running world over Connect. All handlers go
// through one WorldWorker, so the world is never touched concurrently.
package server

import (
	"net/http"

	"github.com/tliron/commonlog"

	"github.com/Gordon-from-Blumberg/evo-cell/world"
)

var log = commonlog.GetLogger("evocell.server")

// Recorder receives the statistic of every turn advanced through the
// server. *store.Store satisfies it.
type Recorder interface {
	RecordStatistic(seed int64, st world.Statistic) error
}

// Server is the inspection server wrapping a running world.
type Server struct {
	worker *WorldWorker
	mux    *http.ServeMux
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	recorder   Recorder
	maxAdvance uint32
}

// WithRecorder stores the statistic of every turn advanced through the
// Advance call.
func WithRecorder(r Recorder) ServerOption {
	return func(c *serverConfig) { c.recorder = r }
}

// WithMaxAdvance bounds the turns a single Advance call may run.
func WithMaxAdvance(n uint32) ServerOption {
	return func(c *serverConfig) { c.maxAdvance = n }
}

// New creates a Server wrapping the given world. The world must not be
// used directly afterwards; go through Worker instead.
func New(w *world.World, opts ...ServerOption) *Server {
	cfg := &serverConfig{maxAdvance: 10000}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		worker: NewWorldWorker(w),
		mux:    http.NewServeMux(),
	}

	inspectSvc := NewInspectService(s.worker, cfg.recorder, cfg.maxAdvance)
	inspectPath, inspectHandler := NewInspectServiceHandler(inspectSvc)
	s.mux.Handle(inspectPath, inspectHandler)

	return s
}

// Worker returns the worker owning the world.
func (s *Server) Worker() *WorldWorker { return s.worker }

// Handler returns the HTTP handler serving all services.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *Server) ListenAndServe(addr string) error {
	log.Noticef("inspection server listening on %s", addr)
	log.Noticef("  Connect: http://%s%s", addr, DescribeBotProcedure)
	return http.ListenAndServe(addr, s.mux)
}

// Stop shuts down the server.
func (s *Server) Stop() {
	s.worker.Stop()
}
