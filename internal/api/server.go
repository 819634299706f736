// Package api exposes the simulation engine over HTTP: game lifecycle
// control, live event streaming, and access to stored games.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/oligopoly-sim-go/internal/game"
	"github.com/MJE43/oligopoly-sim-go/internal/store"
)

// Server handles HTTP requests. It owns the single live orchestrator; past
// games are served from the store.
type Server struct {
	db           store.DB
	orch         *game.Orchestrator
	events       *EventBuffer
	errorHandler *ErrorHandler
	logger       *log.Logger
	startTime    time.Time
}

// NewServer creates the API server around a decision provider. db may be
// nil, in which case finished games are not persisted.
func NewServer(db store.DB, provider game.DecisionProvider) *Server {
	logger := log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	events := NewEventBuffer(500)

	orch := game.New(provider, events)
	if db != nil {
		orch.SetStore(db)
	}

	return &Server{
		db:           db,
		orch:         orch,
		events:       events,
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
		startTime:    time.Now(),
	}
}

// Orchestrator exposes the live game driver, mainly for the CLI and tests.
func (s *Server) Orchestrator() *game.Orchestrator {
	return s.orch
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/games", s.handleConfigure)
		r.Get("/games", s.handleListGames)

		r.Route("/games/current", func(r chi.Router) {
			r.Get("/", s.handleCurrentGame)
			r.Post("/start", s.handleStart)
			r.Post("/pause", s.handlePause)
			r.Post("/resume", s.handleResume)
			r.Post("/reset", s.handleReset)
			r.Get("/events", s.handleEvents)
		})

		r.Get("/games/{id}", s.handleGetGame)
		r.Delete("/games/{id}", s.handleDeleteGame)
		r.Get("/games/{id}/export", s.handleExport)
	})

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
