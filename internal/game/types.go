// internal/game/types.go
//
// Core type definitions for the riddle progression engine.
// Defines:
//   - Question: one riddle behind a door (immutable during a play-through).
//   - Verdict:  tri-state result of the latest answer for the current door.
//   - Seed:     persisted values a room resumes from.
//   - State:    read-only snapshot of a room's play-through.

package game

import "encoding/json"

// Question is a single riddle. Optional fields are left empty/nil when the
// game master did not provide them; defaults are resolved at read time.
type Question struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Answer string `json:"answer"`
	Hint   string `json:"hint,omitempty"`
	Points *int   `json:"points,omitempty"`
	Image  string `json:"image,omitempty"`
	Prize  string `json:"prize,omitempty"`
	Style  string `json:"style,omitempty"`
}

// BasePoints returns the reward for solving q with no hints spent.
// Unset points fall back to DefaultPoints; values are clamped to [0, MaxPoints].
func (q *Question) BasePoints() int {
	if q == nil || q.Points == nil {
		return DefaultPoints
	}
	return min(max(*q.Points, 0), MaxPoints)
}

// Verdict is the outcome of the latest answer submitted for the current door.
type Verdict int8

const (
	VerdictUnknown Verdict = iota // nothing submitted since the question was set
	VerdictCorrect
	VerdictWrong
)

// MarshalJSON encodes the verdict as null, true or false.
func (v Verdict) MarshalJSON() ([]byte, error) {
	switch v {
	case VerdictCorrect:
		return []byte("true"), nil
	case VerdictWrong:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, true or false.
func (v *Verdict) UnmarshalJSON(b []byte) error {
	var p *bool
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	switch {
	case p == nil:
		*v = VerdictUnknown
	case *p:
		*v = VerdictCorrect
	default:
		*v = VerdictWrong
	}
	return nil
}

// Phase is a coarse name for the engine state, used in API payloads and logs.
type Phase string

const (
	PhaseAwaitingAnswer Phase = "awaiting_answer"
	PhaseSolved         Phase = "solved"
	PhaseFailed         Phase = "failed"
	PhaseComplete       Phase = "complete"
)

// Seed carries the persisted progress a room resumes from.
// Values are used verbatim; no range checks are applied.
// Solved marks the current door as already answered correctly.
type Seed struct {
	Score       int  `json:"score"`
	CurrentDoor int  `json:"currentDoor"`
	TokensLeft  int  `json:"tokensLeft"`
	Solved      bool `json:"solved"`
}

// State is a snapshot of one room's play-through.
type State struct {
	CurrentQuestion *Question `json:"currentQuestion,omitempty"`
	TokensLeft      int       `json:"tokensLeft"`
	CurrentDoor     int       `json:"currentDoor"`
	TotalDoors      int       `json:"totalDoors"`
	Score           int       `json:"score"`
	IsAnswerCorrect Verdict   `json:"isAnswerCorrect"`
	IsGameComplete  bool      `json:"isGameComplete"`
}

// Phase reports which of the engine states s is in.
func (s State) Phase() Phase {
	switch {
	case s.IsGameComplete:
		return PhaseComplete
	case s.IsAnswerCorrect == VerdictCorrect:
		return PhaseSolved
	case s.IsAnswerCorrect == VerdictWrong:
		return PhaseFailed
	default:
		return PhaseAwaitingAnswer
	}
}

// Seed extracts the persistable part of s.
func (s State) Seed() Seed {
	return Seed{
		Score:       s.Score,
		CurrentDoor: s.CurrentDoor,
		TokensLeft:  s.TokensLeft,
		Solved:      s.IsAnswerCorrect == VerdictCorrect && !s.IsGameComplete,
	}
}
