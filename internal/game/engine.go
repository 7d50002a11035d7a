// internal/game/engine.go
//
// Progression engine for a single room's play-through.
// Responsibilities:
//   - Seed a room from persisted progress (score/door/tokens) or defaults.
//   - Validate and apply answers (trimmed, case-insensitive exact match).
//   - Spend hint tokens and compute the decayed reward for a solved door.
//   - Advance between doors after a transition delay: playing → complete.
//
// Notes:
//   - The engine performs no I/O. Callers persist State.Seed() when told,
//     through Hooks, that the answer was correct or the door changed.
//   - The delayed transition goes through a Scheduler so tests can fire it
//     synchronously. While a transition is pending, answers and token spends
//     are rejected and a second GoToNextDoor is ignored.
//   - All operations are total: bad input is logged and ignored.
package game

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTokens          = 3 // per-door hint allotment
	DefaultTotalDoors      = 6
	DefaultPoints          = 100
	DefaultTransitionDelay = 1500 * time.Millisecond
	MaxPoints              = 1_000_000 // upper bound for Question.Points
)

// Scheduler runs f once after d has elapsed.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// TimerScheduler schedules callbacks on the runtime timer.
var TimerScheduler Scheduler = timerScheduler{}

// Hooks are the signals the engine sends to its presentation layer.
// They are invoked without the engine lock held, so they may call back in.
type Hooks struct {
	// OnContinue toggles the "next door" affordance.
	OnContinue func(visible bool)
	// OnDoorChange fires once a scheduled transition has been applied.
	OnDoorChange func(s State)
}

// Config configures a new Engine. Zero values pick the defaults.
type Config struct {
	TotalDoors int
	Seed       *Seed
	// Question is the riddle for the seeded door. Unlike SetQuestion it keeps
	// the seeded verdict, so a door solved before a restart stays solved.
	Question   *Question
	Scheduler  Scheduler
	Delay      time.Duration
	Hooks      Hooks
	Logger     *zerolog.Logger
}

// Engine owns one room's GameState.
type Engine struct {
	mu         sync.Mutex
	state      State
	showNext   bool
	pending    bool
	generation uint64 // bumped by Reset to drop transitions scheduled before it

	sched Scheduler
	delay time.Duration
	hooks Hooks
	log   zerolog.Logger
}

// New constructs an engine. A non-nil cfg.Seed resumes persisted progress.
func New(cfg Config) *Engine {
	if cfg.TotalDoors <= 0 {
		cfg.TotalDoors = DefaultTotalDoors
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultTransitionDelay
	}
	lg := log.Logger
	if cfg.Logger != nil {
		lg = *cfg.Logger
	}
	e := &Engine{
		state: initialState(cfg.TotalDoors, cfg.Seed),
		sched: cfg.Scheduler,
		delay: cfg.Delay,
		hooks: cfg.Hooks,
		log:   lg,
	}
	e.showNext = e.state.IsAnswerCorrect == VerdictCorrect
	if q := cfg.Question; q != nil && !e.state.IsGameComplete {
		if validQuestion(q) {
			cp := *q
			e.state.CurrentQuestion = &cp
		} else {
			e.log.Warn().Msg("new: seeded question missing text or answer")
		}
	}
	return e
}

func validQuestion(q *Question) bool {
	return q != nil && strings.TrimSpace(q.Text) != "" && strings.TrimSpace(q.Answer) != ""
}

func initialState(totalDoors int, seed *Seed) State {
	s := State{
		TokensLeft:  DefaultTokens,
		CurrentDoor: 1,
		TotalDoors:  totalDoors,
	}
	if seed != nil {
		s.Score = seed.Score
		s.CurrentDoor = seed.CurrentDoor
		s.TokensLeft = seed.TokensLeft
	}
	s.IsGameComplete = s.CurrentDoor > s.TotalDoors
	if seed != nil && seed.Solved && !s.IsGameComplete {
		s.IsAnswerCorrect = VerdictCorrect
	}
	return s
}

// State returns a snapshot of the current play-through.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// ShowContinue reports whether the "next door" affordance should be visible.
func (e *Engine) ShowContinue() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.showNext
}

// TransitionPending reports whether a door transition is scheduled but not yet applied.
func (e *Engine) TransitionPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// SetQuestion makes q the active riddle and clears the previous verdict.
// Questions without text or answer are rejected.
func (e *Engine) SetQuestion(q *Question) bool {
	if !validQuestion(q) {
		e.log.Warn().Msg("set question: missing question, text or answer")
		return false
	}
	cp := *q

	e.mu.Lock()
	e.state.CurrentQuestion = &cp
	e.state.IsAnswerCorrect = VerdictUnknown
	e.showNext = false
	e.mu.Unlock()

	e.signalContinue(false)
	return true
}

// SubmitAnswer checks input against the current question.
// A correct first answer adds the decayed reward to the score.
// Re-submitting the right answer for an already solved door reports true
// without scoring again.
func (e *Engine) SubmitAnswer(input string) bool {
	e.mu.Lock()
	if e.pending {
		e.mu.Unlock()
		e.log.Debug().Msg("submit answer: door transition pending")
		return false
	}
	q := e.state.CurrentQuestion
	if q == nil {
		e.mu.Unlock()
		e.log.Warn().Msg("submit answer: no active question")
		return false
	}
	if !Matches(input, q.Answer) {
		if e.state.IsAnswerCorrect != VerdictCorrect {
			e.state.IsAnswerCorrect = VerdictWrong
		}
		e.mu.Unlock()
		return false
	}
	if e.state.IsAnswerCorrect == VerdictCorrect {
		e.mu.Unlock()
		return true
	}

	used := DefaultTokens - e.state.TokensLeft
	earned := Reward(q.BasePoints(), used)
	e.state.Score += earned
	e.state.IsAnswerCorrect = VerdictCorrect
	e.showNext = true
	door, score := e.state.CurrentDoor, e.state.Score
	e.mu.Unlock()

	e.log.Debug().Int("door", door).Int("tokensUsed", used).Int("earned", earned).Int("score", score).Msg("door solved")
	e.signalContinue(true)
	return true
}

// UseToken spends one hint token. It reports false when none are left.
func (e *Engine) UseToken() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending || e.state.TokensLeft <= 0 {
		return false
	}
	e.state.TokensLeft--
	return true
}

// UseTokenIf spends one hint token only if allow accepts the active question.
// The check and the spend happen atomically, so the token can never land on
// a door other than the one allow inspected. It returns the snapshot taken
// under the same lock.
func (e *Engine) UseTokenIf(allow func(q *Question) bool) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q := e.state.CurrentQuestion
	if e.pending || e.state.IsGameComplete || q == nil || e.state.TokensLeft <= 0 || !allow(q) {
		return e.state, false
	}
	e.state.TokensLeft--
	return e.state, true
}

// GoToNextDoor schedules the transition to the next door and returns
// immediately. It reports false when a transition is already pending or the
// play-through is complete.
func (e *Engine) GoToNextDoor() bool {
	e.mu.Lock()
	if e.pending || e.state.IsGameComplete {
		e.mu.Unlock()
		e.log.Debug().Msg("next door: ignored")
		return false
	}
	e.pending = true
	gen := e.generation
	e.mu.Unlock()

	e.sched.AfterFunc(e.delay, func() { e.advance(gen) })
	return true
}

// advance applies a scheduled transition.
func (e *Engine) advance(gen uint64) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.log.Debug().Msg("next door: stale transition dropped")
		return
	}
	e.pending = false
	e.showNext = false
	next := e.state.CurrentDoor + 1
	e.state.CurrentDoor = next
	e.state.CurrentQuestion = nil // the next door's riddle arrives through SetQuestion
	if next > e.state.TotalDoors {
		e.state.IsGameComplete = true
	} else {
		e.state.TokensLeft = DefaultTokens
		e.state.IsAnswerCorrect = VerdictUnknown
	}
	snap := e.state
	e.mu.Unlock()

	e.signalContinue(false)
	if e.hooks.OnDoorChange != nil {
		e.hooks.OnDoorChange(snap)
	}
}

// Reset returns the room to the default starting state. A transition that
// is still pending is discarded when it fires.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.generation++
	e.pending = false
	e.showNext = false
	e.state = initialState(e.state.TotalDoors, nil)
	e.mu.Unlock()

	e.signalContinue(false)
}

func (e *Engine) signalContinue(visible bool) {
	if e.hooks.OnContinue != nil {
		e.hooks.OnContinue(visible)
	}
}

// Matches compares a player's input with the expected answer:
// surrounding whitespace of the input is ignored and case does not matter.
func Matches(input, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(input), answer)
}

// Reward computes the points for a solved door: each hint token spent takes
// 10% off base, never dropping below 60% of base.
func Reward(base, tokensUsed int) int {
	earned := base * (10 - tokensUsed) / 10
	if floor := base * 6 / 10; earned < floor {
		return floor
	}
	return earned
}
