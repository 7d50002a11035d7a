package play

import "github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/game"

// QuestionView is the player-facing part of a riddle.
type QuestionView struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Points int    `json:"points"`
	Hint   string `json:"hint,omitempty"` // only once revealed
	Image  string `json:"image,omitempty"`
	Prize  string `json:"prize,omitempty"`
	Style  string `json:"style,omitempty"`
}

// View is what the presentation layer renders for a room.
type View struct {
	RoomID            string        `json:"roomId"`
	SessionID         string        `json:"sessionId"`
	Phase             game.Phase    `json:"phase"`
	Score             int           `json:"score"`
	CurrentDoor       int           `json:"currentDoor"`
	TotalDoors        int           `json:"totalDoors"`
	TokensLeft        int           `json:"tokensLeft"`
	IsAnswerCorrect   game.Verdict  `json:"isAnswerCorrect"`
	IsGameComplete    bool          `json:"isGameComplete"`
	Question          *QuestionView `json:"question,omitempty"`
	Continue          bool          `json:"continue"`
	TransitionPending bool          `json:"transitionPending"`
	HintUsed          bool          `json:"hintUsed"`
}

// View snapshots the room for rendering.
func (r *Room) View() View {
	st := r.engine.State()
	r.mu.Lock()
	hintUsed, showContinue := r.hintUsed, r.showContinue
	r.mu.Unlock()

	v := View{
		RoomID:            r.id,
		SessionID:         r.sessionID,
		Phase:             st.Phase(),
		Score:             st.Score,
		CurrentDoor:       st.CurrentDoor,
		TotalDoors:        st.TotalDoors,
		TokensLeft:        st.TokensLeft,
		IsAnswerCorrect:   st.IsAnswerCorrect,
		IsGameComplete:    st.IsGameComplete,
		Continue:          showContinue,
		TransitionPending: r.engine.TransitionPending(),
		HintUsed:          hintUsed,
	}
	if q := st.CurrentQuestion; q != nil && !st.IsGameComplete {
		v.Question = &QuestionView{
			ID:     q.ID,
			Text:   q.Text,
			Points: q.BasePoints(),
			Image:  q.Image,
			Prize:  q.Prize,
			Style:  q.Style,
		}
		if hintUsed {
			v.Question.Hint = q.Hint
		}
	}
	return v
}
