// internal/httpserver/server.go
//
// HTTP server wiring for the riddle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, metrics).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Play endpoints: /rooms/{roomID}/* (see routes_play.go).
//   - Game master endpoints: /admin/sessions/* (see routes_admin.go).
//   - Leaderboard: GET /sessions/{sessionID}/leaderboard.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled for the single front-end origin.
//   - Live rooms are held in store.Store; durable state lives in universe.Store.
//     A room missing from memory is rebuilt from its persisted progress.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/game"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/metrics"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/play"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/riddles"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/store"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/universe"
)

// Options tune the play endpoints. Zero values pick the defaults.
type Options struct {
	ClientOrigin     string
	TransitionDelay  time.Duration
	AnswerRatePerMin int            // 0 disables the per-room answer limit
	Scheduler        game.Scheduler // nil uses the runtime timer
}

// Server bundles router, live room store, and repository.
type Server struct {
	r     *chi.Mux
	rooms store.Store
	repo  *universe.Store
	opts  Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(rooms store.Store, repo *universe.Store, opts Options) *Server {
	if opts.ClientOrigin == "" {
		opts.ClientOrigin = "http://localhost:5173"
	}
	s := &Server{r: chi.NewRouter(), rooms: rooms, repo: repo, opts: opts}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(metrics.Middleware)              // request count + latency per route
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(opts.ClientOrigin))         // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"riddle-go","endpoints":["/health","/metrics","/rooms/{roomID}","/admin/sessions","/sessions/{sessionID}/leaderboard"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.mountPlay(s.r)
	s.mountAdmin(s.r)
	s.r.Get("/sessions/{sessionID}/leaderboard", s.handleLeaderboard)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// answerLimit converts the per-minute setting into a limiter rate and burst.
func (s *Server) answerLimit() (rate.Limit, int) {
	n := s.opts.AnswerRatePerMin
	if n <= 0 {
		return 0, 0
	}
	return rate.Every(time.Minute / time.Duration(n)), n
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ responses ----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// fail maps domain errors onto HTTP status codes.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, universe.ErrNotFound), errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, play.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited")
	case errors.Is(err, play.ErrNoQuestions):
		writeError(w, http.StatusConflict, "no_riddles")
	case errors.Is(err, play.ErrNoQuestion):
		writeError(w, http.StatusConflict, "no_riddle")
	case errors.Is(err, play.ErrHintUsed):
		writeError(w, http.StatusConflict, "hint_used")
	case errors.Is(err, play.ErrNoHint):
		writeError(w, http.StatusConflict, "no_hint")
	case errors.Is(err, play.ErrNoTokens):
		writeError(w, http.StatusConflict, "no_tokens")
	case errors.Is(err, play.ErrNotSolved):
		writeError(w, http.StatusConflict, "not_solved")
	case errors.Is(err, play.ErrTransitionPending):
		writeError(w, http.StatusConflict, "transition_pending")
	case errors.Is(err, play.ErrComplete):
		writeError(w, http.StatusConflict, "game_complete")
	case errors.Is(err, riddles.ErrEmpty), errors.Is(err, riddles.ErrInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_riddles", "detail": err.Error()})
	case errors.Is(err, riddles.ErrFormat):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_format")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Str("requestId", chimw.GetReqID(r.Context())).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
