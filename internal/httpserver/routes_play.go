// internal/httpserver/routes_play.go
//
// HTTP routes for playing a room. All endpoints live under /rooms/{roomID}:
//   - POST /start   → load (or resume) the room and return its view
//   - GET  /        → current view
//   - POST /answer  → submit an answer {answer} → {correct, view}
//   - POST /hint    → spend a token, reveal the hint → {hint, view}
//   - POST /next    → schedule the move to the next door (202)
//   - POST /reset   → start the room over from door 1
//
// A room's engine is built on first use from the session's riddles and the
// room's persisted progress, then kept in the live room store so the delayed
// door transition and the one-hint cap survive between requests.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/game"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/play"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/universe"
)

type answerReq struct {
	Answer string `json:"answer"`
}
type answerRes struct {
	Correct bool      `json:"correct"`
	View    play.View `json:"view"`
}
type hintRes struct {
	Hint string    `json:"hint"`
	View play.View `json:"view"`
}

// mountPlay registers all /rooms routes.
func (s *Server) mountPlay(r chi.Router) {
	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Post("/start", s.handleStart)
		r.Get("/", s.handleView)
		r.Post("/answer", s.handleAnswer)
		r.Post("/hint", s.handleHint)
		r.Post("/next", s.handleNext)
		r.Post("/reset", s.handleReset)
	})
}

// loadRoom returns the live room, building it from the repository when absent.
// A room without persisted progress starts at door 1 with its session's
// initial token count.
func (s *Server) loadRoom(ctx context.Context, roomID string) (*play.Room, error) {
	return s.rooms.GetOrCreate(ctx, roomID, func() (*play.Room, error) {
		rm, err := s.repo.GetRoom(ctx, roomID)
		if err != nil {
			return nil, err
		}
		sess, err := s.repo.GetSession(ctx, rm.SessionID)
		if err != nil {
			return nil, err
		}
		qs, err := s.repo.Questions(ctx, rm.SessionID)
		if err != nil {
			return nil, err
		}

		seed := &game.Seed{Score: 0, CurrentDoor: 1, TokensLeft: sess.InitialTokens}
		hintUsed := false
		p, err := s.repo.Progress(ctx, roomID)
		switch {
		case err == nil:
			ps := p.Seed()
			seed, hintUsed = &ps, p.HintUsed
		case !errors.Is(err, universe.ErrNotFound):
			return nil, err
		}

		rate, burst := s.answerLimit()
		room, err := play.New(play.Options{
			RoomID:      rm.ID,
			SessionID:   rm.SessionID,
			Questions:   qs,
			Seed:        seed,
			HintUsed:    hintUsed,
			Gateway:     s.repo,
			Scheduler:   s.opts.Scheduler,
			Delay:       s.opts.TransitionDelay,
			AnswerRate:  rate,
			AnswerBurst: burst,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("room", rm.ID).Str("session", rm.SessionID).
			Int("door", seed.CurrentDoor).Int("score", seed.Score).Msg("room loaded")
		return room, nil
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	room, err := s.loadRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room.View())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	room, err := s.loadRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room.View())
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	room, err := s.loadRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	ok, err := room.Answer(r.Context(), req.Answer)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answerRes{Correct: ok, View: room.View()})
}

func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	room, err := s.loadRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	hint, err := room.Hint(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hintRes{Hint: hint, View: room.View()})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	room, err := s.loadRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := room.Next(); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, room.View())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	room, err := s.loadRoom(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	room.Reset(r.Context())
	writeJSON(w, http.StatusOK, room.View())
}
