// internal/store/memory.go
//
// In-memory registry of live rooms.
// A room's engine lives here between requests so the delayed door transition
// and the hint cap survive across calls; durable progress lives in the
// database and is used to rebuild a room after a restart or eviction.
//
// Characteristics:
//   - Stores *play.Room objects keyed by room ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - GetOrCreate builds a missing room at most once per ID.
//   - EvictSession drops every room of a session (riddles were replaced).

package store

import (
	"context"
	"errors"
	"sync"

	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/metrics"
	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/play"
)

// ErrNotFound is returned by Get for unknown room IDs.
var ErrNotFound = errors.New("store: room not found")

// Store holds live rooms.
type Store interface {
	// Save adds or replaces a room.
	Save(ctx context.Context, r *play.Room) error

	// Get retrieves a room by ID.
	Get(ctx context.Context, id string) (*play.Room, error)

	// GetOrCreate returns the room with id, building it with build when absent.
	GetOrCreate(ctx context.Context, id string, build func() (*play.Room, error)) (*play.Room, error)

	// Delete drops a room. Unknown IDs are ignored.
	Delete(ctx context.Context, id string)

	// EvictSession drops every room of a session and reports how many were dropped.
	EvictSession(ctx context.Context, sessionID string) int
}

type memory struct {
	mu    sync.RWMutex          // guards rooms map
	rooms map[string]*play.Room // keyed by Room.ID()
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{rooms: make(map[string]*play.Room)}
}

func (m *memory) Save(_ context.Context, r *play.Room) error {
	if r == nil {
		return errors.New("store: nil room")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[r.ID()] = r
	m.gauge()
	return nil
}

func (m *memory) Get(_ context.Context, id string) (*play.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	return nil, ErrNotFound
}

// GetOrCreate holds the write lock while building so concurrent first
// requests for a room share one engine.
func (m *memory) GetOrCreate(ctx context.Context, id string, build func() (*play.Room, error)) (*play.Room, error) {
	if r, err := m.Get(ctx, id); err == nil {
		return r, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	r, err := build()
	if err != nil {
		return nil, err
	}
	m.rooms[id] = r
	m.gauge()
	return r, nil
}

func (m *memory) Delete(_ context.Context, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, id)
	m.gauge()
}

func (m *memory) EvictSession(_ context.Context, sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.rooms {
		if r.SessionID() == sessionID {
			delete(m.rooms, id)
			n++
		}
	}
	m.gauge()
	return n
}

// gauge must be called with mu held.
func (m *memory) gauge() {
	metrics.LiveRooms.Set(float64(len(m.rooms)))
}
