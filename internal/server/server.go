// Package server is the HTTP host adapter: it authenticates the caller from
// a trusted header, turns requests into commands for the processor and serves
// the read side and the live event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/kitties/internal/command"
	"github.com/zjrosen/kitties/internal/kitty"
	"github.com/zjrosen/kitties/internal/log"
	"github.com/zjrosen/kitties/internal/pubsub"
	"github.com/zjrosen/kitties/internal/store"
)

// HeaderCallerID carries the authenticated caller. Authentication happens
// upstream; the adapter trusts this header.
const HeaderCallerID = "X-Caller-Id"

// Submitter runs commands and reports queue counters for /api/health.
// *processor.CommandProcessor implements it.
type Submitter interface {
	SubmitAndWait(ctx context.Context, cmd command.Command) (*command.CommandResult, error)
	ProcessedCount() int64
	ErrorCount() int64
	QueueLength() int
}

// Reader is the read side. *ledger.Query implements it.
type Reader interface {
	Kitty(ctx context.Context, id kitty.AssetID) (kitty.Kitty, error)
	Count(ctx context.Context) (kitty.AssetID, error)
	List(ctx context.Context, offset, limit int) ([]kitty.Kitty, error)
	Owned(ctx context.Context, owner kitty.OwnerID) ([]kitty.Kitty, error)
}

// Deps are the services the adapter fronts.
type Deps struct {
	Commands Submitter
	Query    Reader
	// Store backs the journal listing.
	Store store.Store
	// Events streams committed events to websocket clients.
	Events pubsub.Subscriber[kitty.Event]
	// TracerProvider instruments requests. Nil disables HTTP spans.
	TracerProvider trace.TracerProvider
}

// Config configures the listener.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Server serves the kitties HTTP API.
type Server struct {
	cfg       Config
	deps      Deps
	validator *validator.Validate
	handler   http.Handler
}

// New creates a server. Routes are registered immediately.
func New(cfg Config, deps Deps) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:       cfg,
		deps:      deps,
		validator: validator.New(),
	}
	s.handler = s.RegisterRoutes()
	return s
}

// Handler returns the routed handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on cfg.Addr until ctx is cancelled, then shuts down
// gracefully. Request contexts derive from ctx so open event streams end
// with it.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	log.Info(log.CatHTTP, "listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	log.Info(log.CatHTTP, "shutting down", "timeout", s.cfg.ShutdownTimeout)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
