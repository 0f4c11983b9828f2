// Package debugserver exposes a read-only HTTP view of a frame registry:
// consumer state, the recorded frame timeline, Prometheus metrics and a
// live websocket stream of per-frame stats.
package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/framehook/pkg/broadcast"
	"github.com/vango-dev/framehook/pkg/frame"
	"github.com/vango-dev/framehook/pkg/recorder"
)

const (
	// DefaultWriteTimeout bounds each websocket write.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown in Serve.
	DefaultShutdownTimeout = 5 * time.Second
)

// Registry is the read-only part of *frame.Registry the server reports on.
type Registry interface {
	Looping() bool
	Len() int
	Snapshot() []frame.ConsumerInfo
	Lookup(id string) (frame.ConsumerInfo, bool)
}

// Config wires the server to a runtime. Registry is required; routes for
// nil components are not mounted.
type Config struct {
	Registry    Registry
	Recorder    *recorder.Recorder
	Gatherer    prometheus.Gatherer
	Broadcaster *broadcast.Broadcaster
	Logger      *slog.Logger

	// CheckOrigin is passed to the websocket upgrader. Nil accepts only
	// same-origin requests.
	CheckOrigin func(r *http.Request) bool

	WriteTimeout time.Duration
}

// Server serves the debug routes.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader
}

// New builds the router. It panics if cfg.Registry is nil.
func New(cfg Config) *Server {
	if cfg.Registry == nil {
		panic("debugserver: nil Registry")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	s := &Server{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "debugserver"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/consumers", s.handleConsumers)
	r.Get("/consumers/{id}", s.handleConsumer)
	if cfg.Recorder != nil {
		r.Get("/frames", s.handleFrames)
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	if cfg.Broadcaster != nil {
		r.Get("/ws/frames", s.handleFrameStream)
	}
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("debug server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

type healthResponse struct {
	Status    string `json:"status"`
	Looping   bool   `json:"looping"`
	Consumers int    `json:"consumers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Looping:   s.cfg.Registry.Looping(),
		Consumers: s.cfg.Registry.Len(),
	})
}

func (s *Server) handleConsumers(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Registry.Snapshot())
}

func (s *Server) handleConsumer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, ok := s.cfg.Registry.Lookup(id)
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "consumer not found", "id": id})
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleFrames(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Recorder.Timeline())
}

func (s *Server) handleFrameStream(w http.ResponseWriter, r *http.Request) {
	// Subscribe before the handshake so no frame finishing right after the
	// client sees the upgrade response is missed.
	stats, cancel := s.cfg.Broadcaster.Subscribe()
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The stream is one-way; reading only detects the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					s.logger.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case st, ok := <-stats:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteJSON(st); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}
