// Package api serves the player-store HTTP API: player records, top-3
// leaderboards, and full ranking boards. Routes and response shapes match
// what the game client already speaks.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cmdmmo/server/internal/config"
	"github.com/cmdmmo/server/internal/storage/postgres"
)

// PlayerStore is the persistence surface the API needs.
type PlayerStore interface {
	Create(ctx context.Context, name, class string, maxDungeonLevel, maxGold, maxLevelReached int) (*postgres.Player, error)
	Update(ctx context.Context, id int64, params postgres.UpdatePlayerParams) (*postgres.Player, error)
	GetByID(ctx context.Context, id int64) (*postgres.Player, error)
	List(ctx context.Context) ([]*postgres.Player, error)
	TopByGold(ctx context.Context) ([]*postgres.Player, error)
	TopByLevel(ctx context.Context) ([]*postgres.Player, error)
	TopByDungeonLevel(ctx context.Context) ([]*postgres.Player, error)
	RankingsByGold(ctx context.Context) ([]*postgres.RankingEntry, error)
	RankingsByLevel(ctx context.Context) ([]*postgres.RankingEntry, error)
	RankingsByDungeonLevel(ctx context.Context) ([]*postgres.RankingEntry, error)
}

// Server is the player-store HTTP server.
type Server struct {
	cfg      config.HTTPConfig
	store    PlayerStore
	logger   *zap.Logger
	gatherer prometheus.Gatherer

	server   *http.Server
	listener net.Listener
}

// NewServer creates the API server.
//
// Precondition: store and logger must be non-nil. gatherer may be nil to
// omit the /metrics endpoint.
func NewServer(cfg config.HTTPConfig, store PlayerStore, logger *zap.Logger, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		gatherer: gatherer,
	}
	s.server = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the configured handler, exposed for tests.
func (s *Server) Routes() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/player", s.handleCreatePlayer)
		r.Get("/players", s.handleListPlayers)
		r.Get("/player/{id}", s.handleGetPlayer)
		r.Patch("/player/{id}", s.handleUpdatePlayer)

		r.Get("/leaderboard/gold", s.leaderboard(s.store.TopByGold))
		r.Get("/leaderboard/level", s.leaderboard(s.store.TopByLevel))
		r.Get("/leaderboard/dungeon", s.leaderboard(s.store.TopByDungeonLevel))

		r.Get("/rankings/gold", s.rankings(s.store.RankingsByGold))
		r.Get("/rankings/level", s.rankings(s.store.RankingsByLevel))
		r.Get("/rankings/dungeon", s.rankings(s.store.RankingsByDungeonLevel))
	})

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// ListenAndServe starts the HTTP listener and blocks until Stop is called.
func (s *Server) ListenAndServe() error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = listener

	s.logger.Info("api server listening", zap.String("addr", listener.Addr().String()))

	if err := s.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Addr returns the actual listening address, or "" before ListenAndServe.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

type createPlayerRequest struct {
	Name            string `json:"name"`
	Class           string `json:"class"`
	MaxDungeonLevel int    `json:"maxDungeonLevel"`
	MaxGold         int    `json:"maxGold"`
	MaxLevelReached int    `json:"maxLevelReached"`
}

type updatePlayerRequest struct {
	Class           *string `json:"class"`
	MaxDungeonLevel *int    `json:"maxDungeonLevel"`
	MaxGold         *int    `json:"maxGold"`
	MaxLevelReached *int    `json:"maxLevelReached"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Class == "" {
		s.writeError(w, http.StatusBadRequest, "name and class are required")
		return
	}
	if req.MaxLevelReached == 0 {
		req.MaxLevelReached = 1
	}

	player, err := s.store.Create(r.Context(), req.Name, req.Class,
		req.MaxDungeonLevel, req.MaxGold, req.MaxLevelReached)
	if err != nil {
		if errors.Is(err, postgres.ErrPlayerNameTaken) {
			s.writeError(w, http.StatusConflict, "player name already exists")
			return
		}
		s.internalError(w, "creating player", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, player)
}

func (s *Server) handleUpdatePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	var req updatePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	player, err := s.store.Update(r.Context(), id, postgres.UpdatePlayerParams{
		Class:           req.Class,
		MaxDungeonLevel: req.MaxDungeonLevel,
		MaxGold:         req.MaxGold,
		MaxLevelReached: req.MaxLevelReached,
	})
	if err != nil {
		if errors.Is(err, postgres.ErrPlayerNotFound) {
			s.writeError(w, http.StatusNotFound, "player not found")
			return
		}
		s.internalError(w, "updating player", err)
		return
	}
	s.writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}

	player, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, postgres.ErrPlayerNotFound) {
			s.writeError(w, http.StatusNotFound, "player not found")
			return
		}
		s.internalError(w, "fetching player", err)
		return
	}
	s.writeJSON(w, http.StatusOK, player)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.store.List(r.Context())
	if err != nil {
		s.internalError(w, "listing players", err)
		return
	}
	s.writeJSON(w, http.StatusOK, players)
}

func (s *Server) leaderboard(query func(context.Context) ([]*postgres.Player, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := query(r.Context())
		if err != nil {
			s.internalError(w, "querying leaderboard", err)
			return
		}
		s.writeJSON(w, http.StatusOK, players)
	}
}

func (s *Server) rankings(query func(context.Context) ([]*postgres.RankingEntry, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := query(r.Context())
		if err != nil {
			s.internalError(w, "querying rankings", err)
			return
		}
		s.writeJSON(w, http.StatusOK, entries)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writing response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal server error")
}
