package game

import (
	"encoding/json"
	"testing"
	"time"
)

// manualScheduler queues callbacks until fire is called.
type manualScheduler struct {
	queued []func()
	delays []time.Duration
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) {
	m.delays = append(m.delays, d)
	m.queued = append(m.queued, f)
}

func (m *manualScheduler) fire() {
	q := m.queued
	m.queued = nil
	for _, f := range q {
		f()
	}
}

func intPtr(n int) *int { return &n }

func newTestEngine(totalDoors int, seed *Seed) (*Engine, *manualScheduler) {
	ms := &manualScheduler{}
	return New(Config{TotalDoors: totalDoors, Seed: seed, Scheduler: ms}), ms
}

func TestNewDefaults(t *testing.T) {
	e, _ := newTestEngine(0, nil)
	s := e.State()
	if s.Score != 0 || s.CurrentDoor != 1 || s.TokensLeft != DefaultTokens || s.TotalDoors != DefaultTotalDoors {
		t.Errorf("New() state = %+v", s)
	}
	if s.IsGameComplete || s.IsAnswerCorrect != VerdictUnknown || s.CurrentQuestion != nil {
		t.Errorf("New() should start awaiting an answer, got %+v", s)
	}
}

func TestNewWithSeed(t *testing.T) {
	tests := []struct {
		name         string
		seed         Seed
		wantComplete bool
	}{
		{name: "mid game", seed: Seed{Score: 250, CurrentDoor: 4, TokensLeft: 1}},
		{name: "out of range tokens kept", seed: Seed{Score: 10, CurrentDoor: 2, TokensLeft: 9}},
		{name: "finished room", seed: Seed{Score: 600, CurrentDoor: 7, TokensLeft: 3}, wantComplete: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(6, &tt.seed)
			s := e.State()
			if s.Seed() != tt.seed {
				t.Errorf("Seed() = %+v, want %+v", s.Seed(), tt.seed)
			}
			if s.IsGameComplete != tt.wantComplete {
				t.Errorf("IsGameComplete = %v, want %v", s.IsGameComplete, tt.wantComplete)
			}
		})
	}
}

func TestSetQuestionRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		q    *Question
	}{
		{name: "nil", q: nil},
		{name: "missing text", q: &Question{Answer: "cat"}},
		{name: "missing answer", q: &Question{Text: "Meows?"}},
		{name: "blank answer", q: &Question{Text: "Meows?", Answer: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(3, nil)
			if e.SetQuestion(tt.q) {
				t.Error("SetQuestion() should reject the question")
			}
			if e.State().CurrentQuestion != nil {
				t.Error("state should be unchanged")
			}
		})
	}
}

func TestSetQuestionResetsVerdict(t *testing.T) {
	e, _ := newTestEngine(3, nil)
	e.SetQuestion(&Question{Text: "q1", Answer: "a"})
	e.SubmitAnswer("b")
	if got := e.State().IsAnswerCorrect; got != VerdictWrong {
		t.Fatalf("IsAnswerCorrect = %v, want wrong", got)
	}
	e.SetQuestion(&Question{Text: "q2", Answer: "c"})
	if got := e.State().IsAnswerCorrect; got != VerdictUnknown {
		t.Errorf("IsAnswerCorrect after SetQuestion = %v, want unknown", got)
	}
}

func TestSubmitAnswerCaseInsensitive(t *testing.T) {
	for _, input := range []string{"piano", "PIANO", " Piano ", "Piano"} {
		t.Run(input, func(t *testing.T) {
			e, _ := newTestEngine(3, nil)
			e.SetQuestion(&Question{Text: "88 keys", Answer: "Piano"})
			if !e.SubmitAnswer(input) {
				t.Errorf("SubmitAnswer(%q) = false, want true", input)
			}
		})
	}
}

func TestSubmitAnswerWithoutQuestion(t *testing.T) {
	e, _ := newTestEngine(3, nil)
	if e.SubmitAnswer("anything") {
		t.Error("SubmitAnswer() without question should return false")
	}
	if s := e.State(); s.IsAnswerCorrect != VerdictUnknown || s.Score != 0 {
		t.Errorf("state changed: %+v", s)
	}
}

func TestSubmitAnswerWrongThenRetry(t *testing.T) {
	e, _ := newTestEngine(3, nil)
	e.SetQuestion(&Question{Text: "q", Answer: "cat"})
	e.UseToken()

	if e.SubmitAnswer("dog") {
		t.Fatal("wrong answer accepted")
	}
	s := e.State()
	if s.Phase() != PhaseFailed || s.Score != 0 || s.TokensLeft != 2 {
		t.Errorf("after wrong answer: %+v", s)
	}
	if e.ShowContinue() {
		t.Error("continue should stay hidden after a wrong answer")
	}

	if !e.SubmitAnswer("cat") {
		t.Fatal("retry rejected")
	}
	if s := e.State(); s.Phase() != PhaseSolved || s.Score != 90 {
		t.Errorf("after retry: %+v", s)
	}
}

func TestSolvedDoorDoesNotScoreTwice(t *testing.T) {
	e, _ := newTestEngine(3, nil)
	e.SetQuestion(&Question{Text: "q", Answer: "cat"})
	e.SubmitAnswer("cat")
	e.SubmitAnswer("dog")
	e.SubmitAnswer("CAT")
	s := e.State()
	if s.Score != 100 || s.Phase() != PhaseSolved {
		t.Errorf("state = %+v, want score 100 and solved", s)
	}
}

func TestResumeSolvedDoor(t *testing.T) {
	ms := &manualScheduler{}
	q := &Question{Text: "q", Answer: "cat"}
	e := New(Config{
		TotalDoors: 3,
		Seed:       &Seed{Score: 100, CurrentDoor: 1, TokensLeft: 3, Solved: true},
		Question:   q,
		Scheduler:  ms,
	})
	s := e.State()
	if s.IsAnswerCorrect != VerdictCorrect || !e.ShowContinue() || s.CurrentQuestion == nil {
		t.Fatalf("resumed state = %+v, continue = %v", s, e.ShowContinue())
	}
	if !s.Seed().Solved {
		t.Error("Seed() dropped the solved flag")
	}
	if !e.SubmitAnswer("cat") {
		t.Error("SubmitAnswer(cat) = false on a solved door")
	}
	if got := e.State().Score; got != 100 {
		t.Errorf("score = %d after re-answer, want 100", got)
	}
	if !e.GoToNextDoor() {
		t.Fatal("GoToNextDoor() refused on a solved door")
	}
	ms.fire()
	if s := e.State(); s.CurrentDoor != 2 || s.IsAnswerCorrect != VerdictUnknown || s.Seed().Solved {
		t.Errorf("after door change: %+v", s)
	}
}

func TestConfigQuestion(t *testing.T) {
	tests := []struct {
		name     string
		seed     *Seed
		question *Question
		wantSet  bool
	}{
		{name: "fresh room", question: &Question{Text: "q", Answer: "a"}, wantSet: true},
		{name: "missing answer", question: &Question{Text: "q"}},
		{name: "finished room", seed: &Seed{CurrentDoor: 4, TokensLeft: 3, Solved: true}, question: &Question{Text: "q", Answer: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Config{TotalDoors: 3, Seed: tt.seed, Question: tt.question, Scheduler: &manualScheduler{}})
			s := e.State()
			if got := s.CurrentQuestion != nil; got != tt.wantSet {
				t.Errorf("question set = %v, want %v", got, tt.wantSet)
			}
			if s.IsGameComplete && (s.IsAnswerCorrect != VerdictUnknown || s.Seed().Solved) {
				t.Errorf("finished room carries a verdict: %+v", s)
			}
		})
	}
}

func TestReward(t *testing.T) {
	tests := []struct {
		used int
		want int
	}{
		{0, 100}, {1, 90}, {2, 80}, {3, 70}, {4, 60}, {5, 60}, {12, 60},
		{-2, 120}, // room seeded with 5 tokens, none spent
	}
	for _, tt := range tests {
		if got := Reward(100, tt.used); got != tt.want {
			t.Errorf("Reward(100, %d) = %d, want %d", tt.used, got, tt.want)
		}
	}
	if got := Reward(15, 1); got != 13 {
		t.Errorf("Reward(15, 1) = %d, want 13", got)
	}
	if got := Reward(55, 9); got != 33 {
		t.Errorf("Reward(55, 9) = %d, want 33", got)
	}
}

func TestTokenDecayThroughEngine(t *testing.T) {
	// Four or more tokens used can only come from a room seeded below zero
	// tokens; the reward still stops at 60%.
	tests := []struct {
		name   string
		tokens int
		spend  int
		want   int
	}{
		{name: "no hints", tokens: 3, spend: 0, want: 100},
		{name: "one hint", tokens: 3, spend: 1, want: 90},
		{name: "two hints", tokens: 3, spend: 2, want: 80},
		{name: "three hints", tokens: 3, spend: 3, want: 70},
		{name: "floor", tokens: -1, spend: 0, want: 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(3, &Seed{CurrentDoor: 1, TokensLeft: tt.tokens})
			e.SetQuestion(&Question{Text: "q", Answer: "a"})
			for i := 0; i < tt.spend; i++ {
				e.UseToken()
			}
			e.SubmitAnswer("a")
			if got := e.State().Score; got != tt.want {
				t.Errorf("score = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCustomPoints(t *testing.T) {
	e, _ := newTestEngine(3, nil)
	e.SetQuestion(&Question{Text: "q", Answer: "a", Points: intPtr(250)})
	e.UseToken()
	e.SubmitAnswer("a")
	if got := e.State().Score; got != 225 {
		t.Errorf("score = %d, want 225", got)
	}
}

func TestBasePointsClamped(t *testing.T) {
	tests := []struct {
		points *int
		want   int
	}{
		{nil, DefaultPoints},
		{intPtr(0), 0},
		{intPtr(-40), 0},
		{intPtr(MaxPoints), MaxPoints},
		{intPtr(MaxPoints * 1000), MaxPoints},
	}
	for _, tt := range tests {
		q := Question{Text: "q", Answer: "a", Points: tt.points}
		if got := q.BasePoints(); got != tt.want {
			t.Errorf("BasePoints() = %d, want %d", got, tt.want)
		}
	}
}

func TestUseTokenIf(t *testing.T) {
	withHint := func(q *Question) bool { return q.Hint != "" }
	tests := []struct {
		name      string
		question  *Question
		tokens    int
		wantSpent bool
	}{
		{name: "spends", question: &Question{Text: "q", Answer: "a", Hint: "h"}, tokens: 3, wantSpent: true},
		{name: "no question", tokens: 3},
		{name: "rejected by caller", question: &Question{Text: "q", Answer: "a"}, tokens: 3},
		{name: "no tokens", question: &Question{Text: "q", Answer: "a", Hint: "h"}, tokens: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(3, &Seed{CurrentDoor: 1, TokensLeft: tt.tokens})
			if tt.question != nil {
				e.SetQuestion(tt.question)
			}
			s, ok := e.UseTokenIf(withHint)
			if ok != tt.wantSpent {
				t.Fatalf("UseTokenIf() = %v, want %v", ok, tt.wantSpent)
			}
			want := tt.tokens
			if ok {
				want--
			}
			if s.TokensLeft != want || e.State().TokensLeft != want {
				t.Errorf("TokensLeft = %d (snapshot %d), want %d", e.State().TokensLeft, s.TokensLeft, want)
			}
		})
	}
}

func TestDoorChangeClearsQuestion(t *testing.T) {
	e, ms := newTestEngine(3, nil)
	e.SetQuestion(&Question{Text: "q", Answer: "a", Hint: "h"})
	e.SubmitAnswer("a")
	e.GoToNextDoor()
	ms.fire()

	// a hint asked for before door 2's riddle is set must not spend a token
	if s := e.State(); s.CurrentQuestion != nil {
		t.Fatalf("door 1 riddle still active on door %d", s.CurrentDoor)
	}
	if _, ok := e.UseTokenIf(func(*Question) bool { return true }); ok {
		t.Error("UseTokenIf() spent a token with no riddle set")
	}
	if e.SubmitAnswer("a") {
		t.Error("door 1 answer accepted on door 2")
	}
	if got := e.State().TokensLeft; got != DefaultTokens {
		t.Errorf("TokensLeft = %d, want %d", got, DefaultTokens)
	}
}

func TestUseTokenNeverNegative(t *testing.T) {
	e, _ := newTestEngine(3, nil)
	spent := 0
	for i := 0; i < 10; i++ {
		if e.UseToken() {
			spent++
		}
	}
	if spent != DefaultTokens {
		t.Errorf("spent %d tokens, want %d", spent, DefaultTokens)
	}
	if got := e.State().TokensLeft; got != 0 {
		t.Errorf("TokensLeft = %d, want 0", got)
	}
}

func TestScoreMonotonic(t *testing.T) {
	e, ms := newTestEngine(6, nil)
	inputs := []string{"x", "a", "a", "y", "A"}
	prev := 0
	for door := 1; door <= 3; door++ {
		e.SetQuestion(&Question{Text: "q", Answer: "a", Points: intPtr(door * 10)})
		for _, in := range inputs {
			e.SubmitAnswer(in)
			if s := e.State().Score; s < prev {
				t.Fatalf("score decreased from %d to %d", prev, s)
			} else {
				prev = s
			}
		}
		e.GoToNextDoor()
		ms.fire()
	}
}

func TestGoToNextDoorBoundary(t *testing.T) {
	for door := 1; door <= 6; door++ {
		e, ms := newTestEngine(6, &Seed{Score: 0, CurrentDoor: door, TokensLeft: 1})
		if !e.GoToNextDoor() {
			t.Fatalf("door %d: GoToNextDoor() = false", door)
		}
		if e.State().CurrentDoor != door {
			t.Fatalf("door %d: state changed before the delay elapsed", door)
		}
		ms.fire()
		s := e.State()
		if door < 6 {
			if s.IsGameComplete || s.CurrentDoor != door+1 || s.TokensLeft != DefaultTokens {
				t.Errorf("door %d: after transition %+v", door, s)
			}
			continue
		}
		if !s.IsGameComplete || s.CurrentDoor != 7 {
			t.Errorf("door 6: after transition %+v, want complete at door 7", s)
		}
		if e.GoToNextDoor() {
			t.Error("GoToNextDoor() after completion should be ignored")
		}
	}
}

func TestTransitionUsesDelay(t *testing.T) {
	e, ms := newTestEngine(3, nil)
	e.GoToNextDoor()
	if len(ms.delays) != 1 || ms.delays[0] != DefaultTransitionDelay {
		t.Errorf("delays = %v, want [%v]", ms.delays, DefaultTransitionDelay)
	}
}

func TestTransitionGuard(t *testing.T) {
	e, ms := newTestEngine(3, nil)
	e.SetQuestion(&Question{Text: "q", Answer: "a"})
	e.SubmitAnswer("a")
	if !e.GoToNextDoor() {
		t.Fatal("GoToNextDoor() = false")
	}
	if !e.TransitionPending() {
		t.Error("TransitionPending() = false while scheduled")
	}
	if e.GoToNextDoor() {
		t.Error("second GoToNextDoor() should be ignored")
	}
	if e.UseToken() {
		t.Error("UseToken() should be rejected mid-transition")
	}
	if e.SubmitAnswer("a") {
		t.Error("SubmitAnswer() should be rejected mid-transition")
	}
	if len(ms.queued) != 1 {
		t.Fatalf("queued transitions = %d, want 1", len(ms.queued))
	}
	ms.fire()
	if s := e.State(); s.CurrentDoor != 2 || e.TransitionPending() {
		t.Errorf("after transition: %+v pending=%v", s, e.TransitionPending())
	}
}

func TestResetIdempotent(t *testing.T) {
	e, ms := newTestEngine(6, &Seed{Score: 420, CurrentDoor: 5, TokensLeft: 0})
	e.SetQuestion(&Question{Text: "q", Answer: "a"})
	e.SubmitAnswer("a")
	e.GoToNextDoor()

	for i := 0; i < 2; i++ {
		e.Reset()
		s := e.State()
		want := Seed{Score: 0, CurrentDoor: 1, TokensLeft: DefaultTokens}
		if s.Seed() != want || s.IsGameComplete || s.IsAnswerCorrect != VerdictUnknown {
			t.Errorf("Reset() #%d state = %+v", i+1, s)
		}
	}

	// the transition scheduled before Reset must not move the room
	ms.fire()
	if s := e.State(); s.CurrentDoor != 1 {
		t.Errorf("stale transition applied: door %d", s.CurrentDoor)
	}
}

func TestHooks(t *testing.T) {
	ms := &manualScheduler{}
	var signals []bool
	var doors []int
	e := New(Config{
		TotalDoors: 2,
		Scheduler:  ms,
		Hooks: Hooks{
			OnContinue:   func(v bool) { signals = append(signals, v) },
			OnDoorChange: func(s State) { doors = append(doors, s.CurrentDoor) },
		},
	})
	e.SetQuestion(&Question{Text: "q", Answer: "a"})
	e.SubmitAnswer("nope")
	e.SubmitAnswer("a")
	if !e.ShowContinue() {
		t.Error("ShowContinue() = false after correct answer")
	}
	e.GoToNextDoor()
	ms.fire()

	want := []bool{false, true, false}
	if len(signals) != len(want) {
		t.Fatalf("continue signals = %v, want %v", signals, want)
	}
	for i := range want {
		if signals[i] != want[i] {
			t.Errorf("signal %d = %v, want %v", i, signals[i], want[i])
		}
	}
	if len(doors) != 1 || doors[0] != 2 {
		t.Errorf("door changes = %v, want [2]", doors)
	}
}

func TestScenarioThreeDoors(t *testing.T) {
	e, ms := newTestEngine(3, nil)

	e.SetQuestion(&Question{ID: "1", Text: "Purrs and meows", Answer: "cat", Points: intPtr(100)})
	if got := e.State().IsAnswerCorrect; got != VerdictUnknown {
		t.Fatalf("IsAnswerCorrect = %v, want unknown", got)
	}

	e.UseToken()
	e.UseToken()
	if got := e.State().TokensLeft; got != 1 {
		t.Fatalf("TokensLeft = %d, want 1", got)
	}

	if !e.SubmitAnswer("CAT") {
		t.Fatal("SubmitAnswer(CAT) = false")
	}
	s := e.State()
	if s.Score != 80 || s.IsAnswerCorrect != VerdictCorrect {
		t.Fatalf("after answer: %+v", s)
	}

	e.GoToNextDoor()
	ms.fire()
	s = e.State()
	if s.CurrentDoor != 2 || s.TokensLeft != 3 || s.IsAnswerCorrect != VerdictUnknown {
		t.Errorf("after next door: %+v", s)
	}
}

func TestVerdictJSON(t *testing.T) {
	tests := []struct {
		v    Verdict
		want string
	}{
		{VerdictUnknown, "null"},
		{VerdictCorrect, "true"},
		{VerdictWrong, "false"},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.v)
		if err != nil {
			t.Fatalf("Marshal(%v): %v", tt.v, err)
		}
		if string(b) != tt.want {
			t.Errorf("Marshal(%v) = %s, want %s", tt.v, b, tt.want)
		}
		var back Verdict
		if err := json.Unmarshal(b, &back); err != nil || back != tt.v {
			t.Errorf("Unmarshal(%s) = %v, %v", b, back, err)
		}
	}
}
