// internal/riddles/riddles.go
//
// Riddle set loading for the admin console.
//
// Responsibilities:
//   - Parse uploaded riddle sets from JSON (array of questions) or CSV
//     (header row: text,answer,hint,points,image,prize,style).
//   - Normalize entries: trim fields, keep optional points unset when blank.
//   - Provide the embedded demo set used to populate a new session.
//
// Constraints:
//   • Every riddle needs text and an answer.
//   • Points, when present, must be a non-negative integer.
//   • Upload order is door order (door 1 first).

package riddles

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/assets"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/game"
)

var (
	// ErrEmpty is returned when an upload contains no riddles.
	ErrEmpty = errors.New("riddles: no riddles in upload")
	// ErrInvalid wraps per-row validation failures.
	ErrInvalid = errors.New("riddles: invalid riddle")
	// ErrFormat is returned for unsupported content types.
	ErrFormat = errors.New("riddles: unsupported format")
)

// Parse reads a riddle set in the format named by contentType.
// An empty content type is treated as JSON.
func Parse(contentType string, r io.Reader) ([]game.Question, error) {
	mt := "application/json"
	if contentType != "" {
		var err error
		if mt, _, err = mime.ParseMediaType(contentType); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
	}
	switch mt {
	case "application/json":
		return ParseJSON(r)
	case "text/csv", "application/csv":
		return ParseCSV(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrFormat, mt)
	}
}

// ParseJSON reads a JSON array of questions.
func ParseJSON(r io.Reader) ([]game.Question, error) {
	var in []game.Question
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return normalize(in)
}

// ParseCSV reads riddles from CSV. The header row decides column order;
// only text and answer columns are required.
func ParseCSV(r io.Reader) ([]game.Question, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["text"]; !ok {
		return nil, fmt.Errorf("%w: csv header needs a text column", ErrInvalid)
	}
	if _, ok := col["answer"]; !ok {
		return nil, fmt.Errorf("%w: csv header needs an answer column", ErrInvalid)
	}

	var out []game.Question
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalid, line, err)
		}
		field := func(name string) string {
			if i, ok := col[name]; ok && i < len(rec) {
				return rec[i]
			}
			return ""
		}
		q := game.Question{
			ID:     field("id"),
			Text:   field("text"),
			Answer: field("answer"),
			Hint:   field("hint"),
			Image:  field("image"),
			Prize:  field("prize"),
			Style:  field("style"),
		}
		if p := strings.TrimSpace(field("points")); p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: points %q", ErrInvalid, line, p)
			}
			q.Points = &n
		}
		out = append(out, q)
	}
	return normalize(out)
}

// Demo returns the embedded demo riddle set.
func Demo() ([]game.Question, error) {
	b, err := assets.DemoRiddles()
	if err != nil {
		return nil, err
	}
	return ParseJSON(bytes.NewReader(b))
}

// normalize trims every field and validates each riddle.
func normalize(in []game.Question) ([]game.Question, error) {
	if len(in) == 0 {
		return nil, ErrEmpty
	}
	out := make([]game.Question, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for i, q := range in {
		q.ID = strings.TrimSpace(q.ID)
		q.Text = strings.TrimSpace(q.Text)
		q.Answer = strings.TrimSpace(q.Answer)
		q.Hint = strings.TrimSpace(q.Hint)
		q.Image = strings.TrimSpace(q.Image)
		q.Prize = strings.TrimSpace(q.Prize)
		q.Style = strings.TrimSpace(q.Style)
		if q.Text == "" || q.Answer == "" {
			return nil, fmt.Errorf("%w: door %d needs text and answer", ErrInvalid, i+1)
		}
		if q.Points != nil && *q.Points < 0 {
			return nil, fmt.Errorf("%w: door %d has negative points", ErrInvalid, i+1)
		}
		if q.Points != nil && *q.Points > game.MaxPoints {
			return nil, fmt.Errorf("%w: door %d points above %d", ErrInvalid, i+1, game.MaxPoints)
		}
		if q.ID != "" {
			if _, dup := seen[q.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalid, q.ID)
			}
			seen[q.ID] = struct{}{}
		}
		out = append(out, q)
	}
	return out, nil
}
