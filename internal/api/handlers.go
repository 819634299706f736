package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MJE43/oligopoly-sim-go/internal/game"
	"github.com/MJE43/oligopoly-sim-go/internal/store"
)

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "healthy",
		"engine_version": EngineVersion,
		"version":        Version(),
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"store_enabled":  s.db != nil,
	})
}

// handleConfigure installs a new game configuration and returns the fresh
// state, benchmarks included.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	var cfg game.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}

	if snap, ok := s.orch.Snapshot(); ok && (snap.Status == game.StatusRunning || snap.Status == game.StatusPaused) {
		s.errorHandler.HandleError(w, r, fmt.Errorf("a game is %s", snap.Status), http.StatusConflict)
		return
	}

	if err := s.orch.Configure(&cfg); err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusBadRequest)
		return
	}

	snap, _ := s.orch.Snapshot()
	s.writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.orch.Snapshot()
	if !ok {
		s.errorHandler.HandleError(w, r, fmt.Errorf("no game configured"), http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.orch.Start)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.orch.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.orch.Resume)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.lifecycle(w, r, s.orch.Reset)
}

// lifecycle runs one orchestrator transition and replies with the new state.
func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request, op func() error) {
	if err := op(); err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusConflict)
		return
	}
	snap, _ := s.orch.Snapshot()
	s.writeJSON(w, http.StatusOK, snap)
}

// handleEvents streams lifecycle events as server-sent events. A short
// replay of recent events is sent first so late subscribers catch up.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.errorHandler.HandleError(w, r, fmt.Errorf("streaming unsupported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch, cancel := s.events.Subscribe()
	defer cancel()

	for _, ev := range s.events.Recent(50) {
		writeSSE(w, ev)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev game.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleError(w, r, fmt.Errorf("no store configured"), http.StatusNotFound)
		return
	}

	q := store.GamesQuery{Status: r.URL.Query().Get("status")}
	fmt.Sscanf(r.URL.Query().Get("page"), "%d", &q.Page)
	fmt.Sscanf(r.URL.Query().Get("per_page"), "%d", &q.PerPage)

	list, err := s.db.ListGames(r.Context(), q)
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, list)
}

// loadGame fetches a game by id, preferring the live state when the id
// matches the current game.
func (s *Server) loadGame(r *http.Request, id string) (*game.State, error) {
	if snap, ok := s.orch.Snapshot(); ok && snap.ID == id {
		return &snap, nil
	}
	if s.db == nil {
		return nil, sql.ErrNoRows
	}
	return s.db.GetGame(r.Context(), id)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.loadGame(r, id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sql.ErrNoRows) {
			status = http.StatusNotFound
		}
		s.errorHandler.HandleError(w, r, err, status)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.errorHandler.HandleError(w, r, fmt.Errorf("no store configured"), http.StatusNotFound)
		return
	}
	if err := s.db.DeleteGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := s.loadGame(r, id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, sql.ErrNoRows) {
			status = http.StatusNotFound
		}
		s.errorHandler.HandleError(w, r, err, status)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="game-%s.csv"`, id))
	w.Header().Set("X-Engine-Version", EngineVersion)
	if err := WriteGameCSV(w, st); err != nil {
		s.logger.Printf("csv export of game %s failed: %v", id, err)
	}
}
