package core

import (
	"fmt"
	"sync"
	"time"
)

// DefaultHistoryLimit caps the chat history kept per room.
const DefaultHistoryLimit = 1000

// Registry is the in-memory store of rooms and their participants. It owns
// room lifecycle and is safe for concurrent use; every method runs under a
// single lock so a sweep can never interleave with a join or leave.
type Registry struct {
	mu           sync.Mutex
	rooms        map[string]*Room
	members      map[string]string // connection id -> room code
	now          func() time.Time
	historyLimit int
	emptyGrace   time.Duration
	nextMsgID    int64
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithHistoryLimit overrides the per-room history cap.
func WithHistoryLimit(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.historyLimit = n
		}
	}
}

// WithEmptyGrace keeps empty rooms around for d so participants can come
// back. Zero deletes a room as soon as the last participant leaves.
func WithEmptyGrace(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.emptyGrace = d
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms:        make(map[string]*Room),
		members:      make(map[string]string),
		now:          time.Now,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a room and adds the creator as its first participant.
func (r *Registry) Create(code, creatorID, creatorName string) (RoomInfo, Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[code]; exists {
		return RoomInfo{}, Participant{}, fmt.Errorf("create %q: %w", code, ErrRoomAlreadyExists)
	}
	if current, ok := r.members[creatorID]; ok {
		return RoomInfo{}, Participant{}, fmt.Errorf("create %q while in %q: %w", code, current, ErrAlreadyJoined)
	}

	now := r.now()
	room := NewRoom(code, creatorID, r.historyLimit, now)
	p := room.addParticipant(creatorID, creatorName, now)
	r.rooms[code] = room
	r.members[creatorID] = code

	return room.info(), p, nil
}

// Join adds a connection to an existing room. An unknown code leaves the
// registry untouched.
func (r *Registry) Join(code, connID, name string) (RoomInfo, Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return RoomInfo{}, Participant{}, fmt.Errorf("join %q: %w", code, ErrRoomNotFound)
	}
	if current, ok := r.members[connID]; ok {
		return RoomInfo{}, Participant{}, fmt.Errorf("join %q while in %q: %w", code, current, ErrAlreadyJoined)
	}

	p := room.addParticipant(connID, name, r.now())
	r.members[connID] = code

	return room.info(), p, nil
}

// Departure describes the outcome of Leave.
type Departure struct {
	Code        string
	Participant Participant
	// Remaining is the roster after the departure.
	Remaining []Participant
	// Deleted is true when the room was removed because it became empty.
	Deleted bool
}

// Leave removes the connection from whichever room it is in. It is a no-op
// returning false when the connection is not in a room.
func (r *Registry) Leave(connID string) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code, ok := r.members[connID]
	if !ok {
		return Departure{}, false
	}
	delete(r.members, connID)

	room, ok := r.rooms[code]
	if !ok {
		return Departure{Code: code}, false
	}
	p, removed := room.removeParticipant(connID, r.now())
	if !removed {
		return Departure{Code: code}, false
	}

	dep := Departure{Code: code, Participant: p, Remaining: room.roster()}
	if room.Empty() && r.emptyGrace == 0 {
		delete(r.rooms, code)
		dep.Deleted = true
	}
	return dep, true
}

// AppendMessage stores a chat message, assigning its id and timestamp.
func (r *Registry) AppendMessage(code string, msg Message) (Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return Message{}, fmt.Errorf("append to %q: %w", code, ErrRoomNotFound)
	}

	r.nextMsgID++
	msg.ID = r.nextMsgID
	msg.Room = code
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.now()
	}
	room.appendMessage(msg)
	return msg, nil
}

// Touch refreshes a room's activity timestamp. Returns false for unknown codes.
func (r *Registry) Touch(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return false
	}
	room.LastActivity = r.now()
	return true
}

// ClearHistory drops every stored message of a room.
func (r *Registry) ClearHistory(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return fmt.Errorf("clear %q: %w", code, ErrRoomNotFound)
	}
	clear(room.history)
	room.history = room.history[:0]
	room.LastActivity = r.now()
	return nil
}

// History returns a copy of the stored messages, oldest first.
func (r *Registry) History(code string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, fmt.Errorf("history of %q: %w", code, ErrRoomNotFound)
	}
	out := make([]Message, len(room.history))
	copy(out, room.history)
	return out, nil
}

// Sweep evicts rooms without participants that have been empty for longer
// than emptyGrace, or idle for longer than inactiveTimeout. Rooms with
// participants are never evicted, however quiet they are.
func (r *Registry) Sweep(now time.Time, emptyGrace, inactiveTimeout time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for code, room := range r.rooms {
		if !room.Empty() {
			continue
		}
		expired := !room.EmptySince.IsZero() && now.Sub(room.EmptySince) > emptyGrace
		idle := now.Sub(room.LastActivity) > inactiveTimeout
		if expired || idle {
			delete(r.rooms, code)
			removed = append(removed, code)
		}
	}
	return removed
}

// Room returns a snapshot of a room.
func (r *Registry) Room(code string) (RoomInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return RoomInfo{}, fmt.Errorf("room %q: %w", code, ErrRoomNotFound)
	}
	return room.info(), nil
}

// Exists reports whether a room with this code is alive.
func (r *Registry) Exists(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[code]
	return ok
}

// Member returns the participant record of connID in room code.
func (r *Registry) Member(code, connID string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return Participant{}, false
	}
	p, ok := room.participants[connID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Participants returns the roster of a room, or nil for unknown codes.
func (r *Registry) Participants(code string) []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil
	}
	return room.roster()
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
