package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/costpilot/costpilot/internal/audit"
	"github.com/costpilot/costpilot/internal/governance"
)

// Config controls the dashboard's exposed surface.
type Config struct {
	CORS bool
}

// Server is the read-only audit dashboard: a handful of GET endpoints
// over an audit.Log plus a WebSocket feed of newly appended entries.
// Grounded on the teacher's internal/api.Server, trimmed to the
// audit-only surface this package owns — no sessions, approvals, or
// agent endpoints, since those have no CostPilot analog here.
type Server struct {
	config Config
	log    *audit.Log
	clock  governance.Clock
	hub    *Hub
	mux    *http.ServeMux
	http   *http.Server
	logger *slog.Logger
}

// NewServer builds a dashboard server over log. clock supplies "now" for
// Statistics' rolling windows, matching audit.Log.Statistics' contract
// that the clock is always caller-supplied.
func NewServer(cfg Config, log *audit.Log, clock governance.Clock, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: cfg,
		log:    log,
		clock:  clock,
		hub:    NewHub(logger, cfg.CORS),
		mux:    http.NewServeMux(),
		logger: logger.With("component", "dashboard.Server"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/audit", s.handleListEntries)
	s.mux.HandleFunc("GET /api/audit/verify", s.handleVerifyChain)
	s.mux.HandleFunc("GET /api/audit/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/audit/export", s.handleExport)
	s.mux.HandleFunc("GET /api/ws/audit", s.hub.HandleWebSocket)
}

// Handler returns the HTTP handler, wrapped in CORS middleware if enabled.
func (s *Server) Handler() http.Handler {
	if s.config.CORS {
		return corsMiddleware(s.mux)
	}
	return s.mux
}

// Start begins serving on addr and broadcasting via the WebSocket hub. It
// blocks until the server stops.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.logger.Info("dashboard listening", "addr", addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops the server and closes every WebSocket client.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.http != nil {
		return s.http.Shutdown(ctx)
	}
	return nil
}

// BroadcastEntry pushes a newly committed audit entry to every connected
// viewer. The caller (cmd/costpilot, after a pipeline.Coordinator.Evaluate
// run) is responsible for invoking this — the dashboard never reads from
// the pipeline directly.
func (s *Server) BroadcastEntry(e audit.Entry) {
	s.hub.Broadcast(e)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
