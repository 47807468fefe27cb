// internal/httpserver/routes_leaderboard.go
//
// Results endpoints:
//   - GET /api/leaderboard?date=YYYY-MM-DD&limit=N → winners of a day (default today, UTC)
//   - GET /api/results?limit=N                      → most recent finished duels

package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/millebornes/internal/results"
)

const maxLimit = 100

func (s *Server) mountLeaderboard(r chi.Router) {
	r.Get("/api/leaderboard", s.handleLeaderboard)
	r.Get("/api/results", s.handleRecent)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		http.Error(w, `{"error":"results_unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = results.DateKey(time.Now())
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, `{"error":"bad_date"}`, http.StatusBadRequest)
		return
	}
	rows, err := s.results.Leaderboard(r.Context(), date, limit(r, 20))
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("leaderboard query")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"date": date, "rows": rows})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		http.Error(w, `{"error":"results_unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	rows, err := s.results.Recent(r.Context(), limit(r, 20))
	if err != nil {
		log.Error().Err(err).Msg("recent results query")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if rows == nil {
		rows = []results.Result{}
	}
	writeJSON(w, rows)
}

// limit reads ?limit=, clamped to [1, maxLimit].
func limit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
