// internal/httpserver/server.go
//
// HTTP server wiring for the Mille Bornes backend.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, panic recovery, CORS).
//   - Public endpoints: "/", "/health", "/api/status".
//   - Game endpoints: lobby list, public snapshot, private hand (seat token).
//   - Leaderboard and recent results from the results store.
//   - The /ws websocket endpoint every game intent goes through.
//
// Notes:
//   - The handler timeout only wraps REST routes; websocket connections are
//     long-lived and manage their own deadlines.
//   - CORS echoes the request origin when it is on the CLIENT_ORIGIN list.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/millebornes/internal/auth"
	"github.com/robalobadob/millebornes/internal/results"
	"github.com/robalobadob/millebornes/internal/session"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Router  *session.Router
	Results *results.Store // optional; leaderboard routes answer 503 without it
	Tokens  *auth.Issuer
	Origins []string
}

// Server bundles the chi router with its collaborators.
type Server struct {
	r           *chi.Mux
	router      *session.Router
	results     *results.Store
	tokens      *auth.Issuer
	origins     map[string]bool
	originHosts []string
	http        *http.Server
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		router:  d.Router,
		results: d.Results,
		tokens:  d.Tokens,
		origins: map[string]bool{},
	}
	for _, o := range d.Origins {
		s.origins[o] = true
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			s.originHosts = append(s.originHosts, u.Host)
		}
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)

	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"millebornes","endpoints":["/health","/api/status","/api/games","/api/leaderboard","/ws"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/api/status", s.handleStatus)
		s.mountGames(r)
		s.mountLeaderboard(r)
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
	})

	return s
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and waits for handlers to return.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]int{
		"activeGames": s.router.ActiveGames(r.Context()),
		"games":       len(s.router.Games(r.Context())),
		"onlineUsers": s.router.OnlineUsers(),
	})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors allows credentialed requests from the configured origins.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); s.origins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := jsonEncode(w, v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
