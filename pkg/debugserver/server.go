package debugserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prasetyo/artifex/internal/observability"
	"github.com/prasetyo/artifex/pkg/coordinator"
	"github.com/rs/zerolog"
)

// ServerOptions configures the debug server
type ServerOptions struct {
	Host string
	Port int
	// StreamInterval is how often the websocket stream pushes a snapshot.
	StreamInterval time.Duration
}

// Server exposes coordinator introspection over HTTP: Prometheus metrics,
// JSON stats and debug views, and a websocket stats stream.
type Server struct {
	options        ServerOptions
	coord          *coordinator.Coordinator
	dispatcher     Dispatcher
	server         *http.Server
	logger         zerolog.Logger
	startTime      time.Time
	isShuttingDown bool
	shutdownMu     sync.RWMutex
	inFlightReqs   sync.WaitGroup
}

// NewServer creates a new debug server
func NewServer(options ServerOptions, coord *coordinator.Coordinator, logger zerolog.Logger) (*Server, error) {
	if coord == nil {
		return nil, fmt.Errorf("coordinator is required")
	}

	if options.Host == "" {
		options.Host = "127.0.0.1"
	}
	if options.Port == 0 {
		options.Port = 7630
	}
	if options.StreamInterval == 0 {
		options.StreamInterval = time.Second
	}

	return &Server{
		options:   options,
		coord:     coord,
		logger:    logger,
		startTime: time.Now(),
	}, nil
}

// Start starts the debug server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().Str("addr", s.server.Addr).Msg("Debug server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("debug server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.isShuttingDown = true
	s.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.withTracking(s.handleHealth))
	mux.HandleFunc("/stats", s.withTracking(s.handleStats))
	mux.HandleFunc("/debug", s.withTracking(s.handleDebug))
	mux.HandleFunc("/stats/reset", s.withTracking(s.handleReset))
	mux.HandleFunc("/actions", s.withTracking(s.handleActions))
	mux.HandleFunc("/ws/stats", s.handleStatsStream)
	mux.Handle("/metrics", observability.MetricsHandler())
	return mux
}

func (s *Server) withTracking(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.shutdownMu.RLock()
		if s.isShuttingDown {
			s.shutdownMu.RUnlock()
			http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
			return
		}
		s.shutdownMu.RUnlock()

		s.inFlightReqs.Add(1)
		defer s.inFlightReqs.Done()
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.GetStats())
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.coord.GetDebugInfo())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.coord.ResetStats()
	s.logger.Info().Msg("Coordinator stats reset via debug server")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
