// internal/play/room.go
//
// Room play session: the handler that owns one room's progression engine.
// Responsibilities:
//   - Build the engine from the session's riddles and the persisted progress.
//   - Feed the riddle for the current door into the engine.
//   - Cap hints at one per riddle (the engine only counts tokens).
//   - Persist score/door/tokens plus the solved and hint flags of the current
//     door after a correct answer, a hint, a door change and a reset (best
//     effort, failures are logged). A room rebuilt from that row cannot score
//     the same door twice or buy a second hint for it.
//   - Produce the player-facing view (never includes the answer).

package play

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/game"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/metrics"
)

var (
	ErrNoQuestions       = errors.New("play: session has no riddles")
	ErrNoQuestion        = errors.New("play: no active riddle")
	ErrHintUsed          = errors.New("play: hint already revealed for this riddle")
	ErrNoHint            = errors.New("play: riddle has no hint")
	ErrNoTokens          = errors.New("play: no tokens left")
	ErrNotSolved         = errors.New("play: current door not solved")
	ErrTransitionPending = errors.New("play: door transition pending")
	ErrComplete          = errors.New("play: game complete")
	ErrRateLimited       = errors.New("play: too many answers")
)

// persistTimeout bounds progress writes issued from the transition timer.
const persistTimeout = 5 * time.Second

// Gateway persists a room's progress.
type Gateway interface {
	SaveProgress(ctx context.Context, roomID string, seed game.Seed, hintUsed, completed bool) error
}

// Options configure a Room.
type Options struct {
	RoomID    string
	SessionID string
	Questions []game.Question
	Seed      *game.Seed
	HintUsed  bool // hint already bought for the seeded door
	Gateway   Gateway
	Scheduler game.Scheduler
	Delay     time.Duration
	// AnswerRate limits answer submissions; zero disables the limit.
	AnswerRate  rate.Limit
	AnswerBurst int
}

// Room is one room's live play-through.
type Room struct {
	id        string
	sessionID string
	questions []game.Question
	engine    *game.Engine
	gw        Gateway
	limiter   *rate.Limiter
	log       zerolog.Logger

	mu           sync.Mutex
	hintUsed     bool
	showContinue bool
}

// New builds a room and sets the riddle for its current door.
func New(o Options) (*Room, error) {
	if len(o.Questions) == 0 {
		return nil, ErrNoQuestions
	}
	r := &Room{
		id:        o.RoomID,
		sessionID: o.SessionID,
		questions: o.Questions,
		gw:        o.Gateway,
		log:       log.With().Str("room", o.RoomID).Logger(),
	}
	if o.AnswerRate > 0 {
		burst := o.AnswerBurst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(o.AnswerRate, burst)
	}
	door := 1
	if o.Seed != nil {
		door = o.Seed.CurrentDoor
	}
	r.engine = game.New(game.Config{
		TotalDoors: len(o.Questions),
		Seed:       o.Seed,
		Question:   r.questionFor(door),
		Scheduler:  o.Scheduler,
		Delay:      o.Delay,
		Logger:     &r.log,
		Hooks: game.Hooks{
			OnContinue:   r.onContinue,
			OnDoorChange: r.onDoorChange,
		},
	})
	st := r.engine.State()
	r.hintUsed = o.HintUsed && !st.IsGameComplete
	r.showContinue = r.engine.ShowContinue()
	return r, nil
}

// ID returns the room id.
func (r *Room) ID() string { return r.id }

// SessionID returns the id of the session the room belongs to.
func (r *Room) SessionID() string { return r.sessionID }

// State returns the engine snapshot.
func (r *Room) State() game.State { return r.engine.State() }

// Answer submits a player's answer for the current door.
func (r *Room) Answer(ctx context.Context, input string) (bool, error) {
	if r.limiter != nil && !r.limiter.Allow() {
		metrics.Answers.WithLabelValues("rejected").Inc()
		return false, ErrRateLimited
	}
	st := r.engine.State()
	switch {
	case st.IsGameComplete:
		return false, ErrComplete
	case r.engine.TransitionPending():
		metrics.Answers.WithLabelValues("rejected").Inc()
		return false, ErrTransitionPending
	case st.CurrentQuestion == nil:
		return false, ErrNoQuestion
	}

	wasSolved := st.IsAnswerCorrect == game.VerdictCorrect
	ok := r.engine.SubmitAnswer(input)
	if !ok {
		metrics.Answers.WithLabelValues("wrong").Inc()
		return false, nil
	}
	metrics.Answers.WithLabelValues("correct").Inc()
	if !wasSolved {
		r.persist(ctx, r.engine.State())
	}
	return true, nil
}

// Hint spends a token and reveals the current riddle's hint. Only one hint
// may be revealed per riddle.
func (r *Room) Hint(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.hintUsed {
		r.mu.Unlock()
		return "", ErrHintUsed
	}
	st, ok := r.engine.UseTokenIf(func(q *game.Question) bool { return q.Hint != "" })
	if ok {
		r.hintUsed = true
	}
	r.mu.Unlock()

	if !ok {
		switch q := st.CurrentQuestion; {
		case st.IsGameComplete:
			return "", ErrComplete
		case r.engine.TransitionPending():
			return "", ErrTransitionPending
		case q == nil:
			return "", ErrNoQuestion
		case q.Hint == "":
			return "", ErrNoHint
		default:
			return "", ErrNoTokens
		}
	}

	metrics.Hints.Inc()
	r.persist(ctx, st)
	return st.CurrentQuestion.Hint, nil
}

// Next schedules the move to the next door. The door must be solved first.
func (r *Room) Next() error {
	st := r.engine.State()
	if st.IsGameComplete {
		return ErrComplete
	}
	if r.engine.TransitionPending() {
		return ErrTransitionPending
	}
	if !r.engine.ShowContinue() {
		return ErrNotSolved
	}
	if !r.engine.GoToNextDoor() {
		return ErrTransitionPending
	}
	return nil
}

// Reset starts the room over from door 1 and persists the reset.
func (r *Room) Reset(ctx context.Context) {
	r.engine.Reset()
	st := r.engine.State()
	r.loadQuestion(st)
	r.persist(ctx, r.engine.State())
	r.log.Info().Msg("room reset")
}

// onContinue mirrors the engine's continue signal.
func (r *Room) onContinue(visible bool) {
	r.mu.Lock()
	r.showContinue = visible
	r.mu.Unlock()
}

// onDoorChange runs on the scheduler's goroutine once the transition lands.
func (r *Room) onDoorChange(st game.State) {
	metrics.DoorsOpened.Inc()
	if st.IsGameComplete {
		metrics.GamesCompleted.Inc()
		r.log.Info().Int("score", st.Score).Msg("all doors opened")
	} else {
		r.loadQuestion(st)
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	r.persist(ctx, r.engine.State())
}

// loadQuestion sets the riddle for the state's current door and clears the
// per-riddle hint cap.
func (r *Room) loadQuestion(st game.State) {
	if st.IsGameComplete {
		return
	}
	q := r.questionFor(st.CurrentDoor)
	if q == nil {
		return
	}
	r.mu.Lock()
	r.hintUsed = false
	r.mu.Unlock()
	r.engine.SetQuestion(q)
}

// questionFor returns the riddle behind door, or nil past the last door.
func (r *Room) questionFor(door int) *game.Question {
	i := door - 1
	if i == len(r.questions) {
		return nil
	}
	if i < 0 || i > len(r.questions) {
		r.log.Warn().Int("door", door).Int("doors", len(r.questions)).Msg("no riddle for door")
		return nil
	}
	return &r.questions[i]
}

func (r *Room) persist(ctx context.Context, st game.State) {
	if r.gw == nil {
		return
	}
	r.mu.Lock()
	hintUsed := r.hintUsed
	r.mu.Unlock()
	if err := r.gw.SaveProgress(ctx, r.id, st.Seed(), hintUsed, st.IsGameComplete); err != nil {
		r.log.Warn().Err(err).Msg("persist progress")
	}
}
