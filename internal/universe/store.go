// internal/universe/store.go
//
// SQL repository for sessions ("universes"), their riddles, rooms and
// per-room progress.
//
// It plays two roles for the play layer:
//   - Question store: the ordered riddles of a session (door 1 first).
//   - Progress gateway: upsert of a room's score/door/tokens keyed by room id,
//     read back to resume a room after a restart.
//
// All queries use `?` placeholders; internal/db rewrites them per dialect.

package universe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/db"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/game"
)

// ErrNotFound is returned when a session or room does not exist.
var ErrNotFound = errors.New("universe: not found")

// Session is a named collection of riddles and rooms.
type Session struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	InitialTokens int       `json:"initialTokens"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Room is one team's play-through inside a session.
type Room struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Progress is the durable record of a room's play-through.
type Progress struct {
	RoomID      string    `json:"roomId"`
	Score       int       `json:"score"`
	CurrentDoor int       `json:"currentDoor"`
	TokensLeft  int       `json:"tokensLeft"`
	Solved      bool      `json:"solved"`   // current door already answered
	HintUsed    bool      `json:"hintUsed"` // current door's hint already bought
	Completed   bool      `json:"completed"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Seed returns the engine seed stored in p.
func (p *Progress) Seed() game.Seed {
	return game.Seed{Score: p.Score, CurrentDoor: p.CurrentDoor, TokensLeft: p.TokensLeft, Solved: p.Solved}
}

// LBRow is one leaderboard line.
type LBRow struct {
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName"`
	Score       int    `json:"score"`
	CurrentDoor int    `json:"currentDoor"`
	Completed   bool   `json:"completed"`
}

// Store is the SQL-backed repository.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore wraps an open database.
func NewStore(d *db.DB) *Store {
	return &Store{db: d, now: func() time.Time { return time.Now().UTC() }}
}

/* ------------------------------- sessions -------------------------------- */

// CreateSession inserts a new session. initialTokens <= 0 means the
// default per-door allotment.
func (s *Store) CreateSession(ctx context.Context, name string, initialTokens int) (*Session, error) {
	if initialTokens <= 0 {
		initialTokens = game.DefaultTokens
	}
	sess := &Session{
		ID:            uuid.NewString(),
		Name:          name,
		InitialTokens: initialTokens,
		CreatedAt:     s.now().Truncate(time.Second),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, initial_tokens, created_at) VALUES (?,?,?,?)`,
		sess.ID, sess.Name, sess.InitialTokens, sess.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// GetSession loads a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, initial_tokens, created_at FROM sessions WHERE id=?`, id)
	var sess Session
	var created string
	if err := row.Scan(&sess.ID, &sess.Name, &sess.InitialTokens, &created); err != nil {
		return nil, notFound(err, "session")
	}
	sess.CreatedAt = parseTime(created)
	return &sess, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, initial_tokens, created_at FROM sessions ORDER BY created_at DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		var sess Session
		var created string
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.InitialTokens, &created); err != nil {
			return nil, err
		}
		sess.CreatedAt = parseTime(created)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteSession removes a session with its riddles, rooms and progress.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`DELETE FROM room_progress WHERE room_id IN (SELECT id FROM rooms WHERE session_id=?)`,
		`DELETE FROM rooms WHERE session_id=?`,
		`DELETE FROM questions WHERE session_id=?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

/* ------------------------------- questions ------------------------------- */

// ReplaceQuestions stores qs as the session's riddles, door 1 first.
// Questions without an id get one.
func (s *Store) ReplaceQuestions(ctx context.Context, sessionID string, qs []game.Question) ([]game.Question, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE session_id=?`, sessionID); err != nil {
		return nil, fmt.Errorf("clear questions: %w", err)
	}
	out := make([]game.Question, len(qs))
	for i, q := range qs {
		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		var points sql.NullInt64
		if q.Points != nil {
			points = sql.NullInt64{Int64: int64(*q.Points), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO questions (id, session_id, door, text, answer, hint, points, image, prize, style)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			q.ID, sessionID, i+1, q.Text, q.Answer, q.Hint, points, q.Image, q.Prize, q.Style,
		); err != nil {
			return nil, fmt.Errorf("insert question %d: %w", i+1, err)
		}
		out[i] = q
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// Questions returns a session's riddles ordered by door.
func (s *Store) Questions(ctx context.Context, sessionID string) ([]game.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, answer, hint, points, image, prize, style
		FROM questions WHERE session_id=? ORDER BY door ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	out := []game.Question{}
	for rows.Next() {
		var q game.Question
		var points sql.NullInt64
		if err := rows.Scan(&q.ID, &q.Text, &q.Answer, &q.Hint, &points, &q.Image, &q.Prize, &q.Style); err != nil {
			return nil, err
		}
		if points.Valid {
			n := int(points.Int64)
			q.Points = &n
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

/* --------------------------------- rooms --------------------------------- */

// CreateRoom adds a room to a session.
func (s *Store) CreateRoom(ctx context.Context, sessionID, name string) (*Room, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	r := &Room{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Name:      name,
		CreatedAt: s.now().Truncate(time.Second),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (id, session_id, name, created_at) VALUES (?,?,?,?)`,
		r.ID, r.SessionID, r.Name, r.CreatedAt.Format(time.RFC3339),
	); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return r, nil
}

// GetRoom loads a room by id.
func (s *Store) GetRoom(ctx context.Context, id string) (*Room, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, name, created_at FROM rooms WHERE id=?`, id)
	var r Room
	var created string
	if err := row.Scan(&r.ID, &r.SessionID, &r.Name, &created); err != nil {
		return nil, notFound(err, "room")
	}
	r.CreatedAt = parseTime(created)
	return &r, nil
}

// Rooms returns the rooms of a session ordered by name.
func (s *Store) Rooms(ctx context.Context, sessionID string) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, name, created_at FROM rooms WHERE session_id=? ORDER BY name ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	out := []Room{}
	for rows.Next() {
		var r Room
		var created string
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Name, &created); err != nil {
			return nil, err
		}
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

/* ------------------------------- progress -------------------------------- */

// SaveProgress upserts the room's progress row.
func (s *Store) SaveProgress(ctx context.Context, roomID string, seed game.Seed, hintUsed, completed bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_progress (room_id, score, current_door, tokens_left, solved, hint_used, completed, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT (room_id) DO UPDATE SET
			score = excluded.score,
			current_door = excluded.current_door,
			tokens_left = excluded.tokens_left,
			solved = excluded.solved,
			hint_used = excluded.hint_used,
			completed = excluded.completed,
			updated_at = excluded.updated_at`,
		roomID, seed.Score, seed.CurrentDoor, seed.TokensLeft,
		btoi(seed.Solved), btoi(hintUsed), btoi(completed), s.now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save progress %s: %w", roomID, err)
	}
	return nil
}

// Progress returns the stored progress of a room, or ErrNotFound if the
// room has never been persisted.
func (s *Store) Progress(ctx context.Context, roomID string) (*Progress, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT room_id, score, current_door, tokens_left, solved, hint_used, completed, updated_at
		FROM room_progress WHERE room_id=?`, roomID)
	var p Progress
	var solved, hintUsed, completed int
	var updated string
	if err := row.Scan(&p.RoomID, &p.Score, &p.CurrentDoor, &p.TokensLeft, &solved, &hintUsed, &completed, &updated); err != nil {
		return nil, notFound(err, "progress")
	}
	p.Solved = solved != 0
	p.HintUsed = hintUsed != 0
	p.Completed = completed != 0
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

// Leaderboard ranks a session's rooms by score, then by door reached.
// Rooms that never played rank with score 0 at door 1.
func (s *Store) Leaderboard(ctx context.Context, sessionID string, limit int) ([]LBRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name,
		       COALESCE(p.score, 0), COALESCE(p.current_door, 1), COALESCE(p.completed, 0)
		FROM rooms r
		LEFT JOIN room_progress p ON p.room_id = r.id
		WHERE r.session_id=?
		ORDER BY 3 DESC, 4 DESC, r.name ASC
		LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	out := make([]LBRow, 0, limit)
	for rows.Next() {
		var r LBRow
		var completed int
		if err := rows.Scan(&r.RoomID, &r.RoomName, &r.Score, &r.CurrentDoor, &completed); err != nil {
			return nil, err
		}
		r.Completed = completed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

/* --------------------------------- util ---------------------------------- */

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("load %s: %w", what, err)
}

// parseTime parses RFC3339 timestamps; on error returns zero time.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
