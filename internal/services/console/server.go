package console

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/louisbranch/fleetdeck/internal/platform/timeouts"
	"github.com/louisbranch/fleetdeck/internal/services/console/i18n"
	"github.com/louisbranch/fleetdeck/internal/services/console/platform/httpx"
	"github.com/louisbranch/fleetdeck/internal/services/console/platform/observability"
	"github.com/louisbranch/fleetdeck/internal/services/console/routepath"
)

// Config defines startup inputs for the console HTTP surface.
type Config struct {
	HTTPAddr string
	Sessions SessionSource
	Auth     Authenticator
	Data     DataClient
	Realtime RealtimeFeed
	// Health is optional; the dashboard shows "not configured" without it.
	Health HealthChecker
	// Logger receives request logs; nil uses the standard logger.
	Logger *log.Logger
}

// Server hosts the console HTTP surface.
type Server struct {
	httpAddr   string
	httpServer *http.Server
}

// NewHandler builds the root handler with its middleware chain.
func NewHandler(cfg Config) (http.Handler, error) {
	switch {
	case cfg.Sessions == nil:
		return nil, errors.New("session source is required")
	case cfg.Auth == nil:
		return nil, errors.New("authenticator is required")
	case cfg.Data == nil:
		return nil, errors.New("data client is required")
	case cfg.Realtime == nil:
		return nil, errors.New("realtime feed is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	h := &handlers{
		sessions: cfg.Sessions,
		auth:     cfg.Auth,
		data:     cfg.Data,
		realtime: cfg.Realtime,
		health:   cfg.Health,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+routepath.Healthz, h.healthz)
	mux.HandleFunc("GET "+routepath.FragmentsPrefix+"/{kind}/{id}", h.fields)
	sameOrigin := httpx.RequireSameOrigin(h.forbidden)
	mux.Handle("POST "+routepath.ActionLogin, sameOrigin(http.HandlerFunc(h.login)))
	mux.Handle("POST "+routepath.ActionLogout, sameOrigin(http.HandlerFunc(h.logout)))
	mux.HandleFunc("/", h.notFound)

	// Pages bypass the mux: it would clean paths like //robots into a
	// redirect, and the view router owns that decision.
	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isServicePath(r.URL.Path) {
			mux.ServeHTTP(w, r)
			return
		}
		h.servePage(w, r)
	})

	return httpx.Chain(root,
		httpx.RecoverPanic(writeFailure),
		httpx.RequestID(),
		observability.RequestLogger(logger),
		i18n.Middleware(),
	), nil
}

func isServicePath(path string) bool {
	return path == routepath.Healthz ||
		strings.HasPrefix(path, routepath.FragmentsPrefix+"/") ||
		strings.HasPrefix(path, "/actions/")
}

// NewServer validates config and constructs a console server.
func NewServer(_ context.Context, cfg Config) (*Server, error) {
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("compose console handler: %w", err)
	}
	return &Server{
		httpAddr: httpAddr,
		httpServer: &http.Server{
			Addr:              httpAddr,
			Handler:           handler,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// Handler returns the composed root handler.
func (s *Server) Handler() http.Handler {
	if s == nil || s.httpServer == nil {
		return nil
	}
	return s.httpServer.Handler
}

// ListenAndServe serves HTTP traffic until context cancellation or server stop.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("console server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	listener, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpAddr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves HTTP traffic on listener until context cancellation.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s == nil {
		return errors.New("console server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	log.Printf("console listening addr=%s", listener.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown console http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve console http: %w", err)
	}
}

// Close closes open server resources.
func (s *Server) Close() {
	if s == nil || s.httpServer == nil {
		return
	}
	_ = s.httpServer.Close()
}
