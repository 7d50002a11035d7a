// internal/httpserver/routes_admin.go
//
// Game master routes under /admin/sessions:
//   - POST   /                        → create a session {name, initialTokens?}
//   - GET    /                        → list sessions
//   - GET    /{sessionID}             → session with its riddles and rooms
//   - DELETE /{sessionID}             → remove a session and everything in it
//   - POST   /{sessionID}/questions   → upload riddles (JSON array or CSV)
//   - POST   /{sessionID}/demo        → load the built-in riddle set
//   - POST   /{sessionID}/rooms       → add a room {name}
//
// Replacing a session's riddles evicts its live rooms; they are rebuilt from
// persisted progress against the new riddle set on their next request.
// Plus the public leaderboard: GET /sessions/{sessionID}/leaderboard?limit=

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/game"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/riddles"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/universe"
)

// maxUpload bounds riddle uploads.
const maxUpload = 1 << 20

type newSessionReq struct {
	Name          string `json:"name"`
	InitialTokens int    `json:"initialTokens"`
}
type newRoomReq struct {
	Name string `json:"name"`
}
type sessionRes struct {
	universe.Session
	Questions []game.Question `json:"questions"`
	Rooms     []universe.Room `json:"rooms"`
}
type questionsRes struct {
	Count     int             `json:"count"`
	Questions []game.Question `json:"questions"`
	Evicted   int             `json:"evictedRooms"`
}

// mountAdmin registers all /admin routes.
func (s *Server) mountAdmin(r chi.Router) {
	r.Route("/admin/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Get("/", s.handleListSessions)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Delete("/", s.handleDeleteSession)
			r.Post("/questions", s.handleUploadQuestions)
			r.Post("/demo", s.handleLoadDemo)
			r.Post("/rooms", s.handleCreateRoom)
		})
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	sess, err := s.repo.CreateSession(r.Context(), req.Name, req.InitialTokens)
	if err != nil {
		fail(w, r, err)
		return
	}
	log.Info().Str("session", sess.ID).Str("name", sess.Name).Msg("session created")
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	out, err := s.repo.ListSessions(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, err := s.repo.GetSession(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	qs, err := s.repo.Questions(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	rooms, err := s.repo.Rooms(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionRes{Session: *sess, Questions: qs, Rooms: rooms})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := s.repo.DeleteSession(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	n := s.rooms.EvictSession(r.Context(), id)
	log.Info().Str("session", id).Int("evictedRooms", n).Msg("session deleted")
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleUploadQuestions(w http.ResponseWriter, r *http.Request) {
	qs, err := riddles.Parse(r.Header.Get("Content-Type"), http.MaxBytesReader(w, r.Body, maxUpload))
	if err != nil {
		fail(w, r, err)
		return
	}
	s.replaceQuestions(w, r, qs)
}

func (s *Server) handleLoadDemo(w http.ResponseWriter, r *http.Request) {
	qs, err := riddles.Demo()
	if err != nil {
		fail(w, r, err)
		return
	}
	s.replaceQuestions(w, r, qs)
}

func (s *Server) replaceQuestions(w http.ResponseWriter, r *http.Request, qs []game.Question) {
	id := chi.URLParam(r, "sessionID")
	stored, err := s.repo.ReplaceQuestions(r.Context(), id, qs)
	if err != nil {
		fail(w, r, err)
		return
	}
	n := s.rooms.EvictSession(r.Context(), id)
	log.Info().Str("session", id).Int("riddles", len(stored)).Int("evictedRooms", n).Msg("riddles replaced")
	writeJSON(w, http.StatusOK, questionsRes{Count: len(stored), Questions: stored, Evicted: n})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req newRoomReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	room, err := s.repo.CreateRoom(r.Context(), chi.URLParam(r, "sessionID"), req.Name)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// handleLeaderboard ranks a session's rooms. limit defaults to 20 and is capped at 100.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_limit")
			return
		}
		limit = min(n, 100)
	}
	if _, err := s.repo.GetSession(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	rows, err := s.repo.Leaderboard(r.Context(), id, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": id, "rows": rows})
}
