package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Qian-MoBai/systemd-web/internal/log"
)

// Config holds server settings.
type Config struct {
	ListenAddress   string
	SessionCookie   string
	SessionTTL      time.Duration
	ShutdownTimeout time.Duration
	// AuthToken enables bearer authentication when non-empty.
	AuthToken string
}

// Server serves the API over TCP until its context is cancelled.
type Server struct {
	cfg     Config
	handler http.Handler
	logger  log.Logger

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new Server around h.
func NewServer(cfg Config, h *Handler, logger log.Logger) *Server {
	var handler http.Handler = h.Mux()
	handler = SessionMiddleware(cfg.SessionCookie, cfg.SessionTTL)(handler)
	if cfg.AuthToken != "" {
		handler = BearerAuthMiddleware(cfg.AuthToken)(handler)
	}

	lg := logger.With("component", "server")
	return &Server{
		cfg:     cfg,
		handler: accessLogMiddleware(handler, lg),
		logger:  lg,
	}
}

// Addr returns the bound address once Start is listening, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start listens and serves. ready, if non-nil, is called once the listener is
// bound. Start blocks until ctx is cancelled and then shuts down gracefully.
func (s *Server) Start(ctx context.Context, ready func(addr net.Addr)) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("api: listen tcp %s: %w", s.cfg.ListenAddress, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	s.logger.Info("Server started", "address", ln.Addr().String(), "auth", s.cfg.AuthToken != "")
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("api: serve: %w", err)
		}
	}

	s.logger.Info("Server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Graceful shutdown incomplete", "error", err)
		_ = srv.Close()
	}
	<-serveErr

	s.logger.Info("Server stopped")
	return nil
}

// statusRecorder captures the HTTP status code written to the response.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func accessLogMiddleware(next http.Handler, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		logger.Debug("Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
		)
	})
}
