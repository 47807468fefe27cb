// internal/httpserver/routes_games.go
//
// Read-only game endpoints:
//   - GET /api/games           → lobby list
//   - GET /api/games/{id}      → public snapshot
//   - GET /api/games/{id}/hand → the caller's own hand (bearer seat token)

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/millebornes/internal/auth"
	"github.com/robalobadob/millebornes/internal/store"
)

// mountGames registers the read-only game routes. Every change to a game
// goes through the websocket.
func (s *Server) mountGames(r chi.Router) {
	r.Route("/api/games", func(r chi.Router) {
		r.Get("/", s.handleListGames)
		r.Get("/{id}", s.handleGetGame)
		r.With(auth.RequireSeat(s.tokens)).Get("/{id}/hand", s.handleGetHand)
	})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.router.Games(r.Context()))
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	snap, err := s.router.Snapshot(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, `{"error":"game_not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, snap)
}

// handleGetHand returns the caller's own hand. The seat token decides whose.
func (s *Server) handleGetHand(w http.ResponseWriter, r *http.Request) {
	seat, _ := auth.Seat(r.Context())
	id := chi.URLParam(r, "id")
	if seat.GameID != id {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	v, err := s.router.PrivateView(r.Context(), id, seat.PlayerID)
	if err != nil {
		http.Error(w, `{"error":"game_not_found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, v)
}

func jsonEncode(w io.Writer, v any) error { return json.NewEncoder(w).Encode(v) }
