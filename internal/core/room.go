package core

import (
	"sort"
	"time"
)

// palette holds the participant colours. Colours only help the UI tell
// people apart; they carry no meaning.
var palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8",
	"#F7DC6F", "#BB8FCE", "#85C1E2", "#F8B195", "#C06C84",
	"#6C5B7B", "#F67280", "#355C7D", "#99B898", "#FECEAB",
}

// Participant is a connection's membership record inside a Room.
type Participant struct {
	ConnID   string
	Name     string
	Color    string
	JoinedAt time.Time
}

// Room groups the participants of one chat/call session. It is only accessed
// under the Registry lock.
type Room struct {
	Code         string
	CreatorID    string
	CreatedAt    time.Time
	LastActivity time.Time
	// EmptySince is set while the room has no participants.
	EmptySince time.Time

	participants map[string]*Participant
	history      []Message
	historyLimit int
}

// RoomInfo is a point-in-time copy of a Room that is safe to hand out.
type RoomInfo struct {
	Code         string
	CreatorID    string
	CreatedAt    time.Time
	LastActivity time.Time
	Participants []Participant
	HistoryLen   int
}

// NewRoom constructs a room with no participants.
func NewRoom(code, creatorID string, historyLimit int, now time.Time) *Room {
	return &Room{
		Code:         code,
		CreatorID:    creatorID,
		CreatedAt:    now,
		LastActivity: now,
		participants: make(map[string]*Participant),
		historyLimit: historyLimit,
	}
}

// addParticipant inserts a participant with the next free colour.
func (r *Room) addParticipant(connID, name string, now time.Time) Participant {
	p := &Participant{
		ConnID:   connID,
		Name:     name,
		Color:    r.nextColor(),
		JoinedAt: now,
	}
	r.participants[connID] = p
	r.LastActivity = now
	r.EmptySince = time.Time{}
	return *p
}

// removeParticipant deletes a participant. Returns the removed record.
func (r *Room) removeParticipant(connID string, now time.Time) (Participant, bool) {
	p, ok := r.participants[connID]
	if !ok {
		return Participant{}, false
	}
	delete(r.participants, connID)
	if len(r.participants) == 0 {
		r.EmptySince = now
	}
	return *p, true
}

// nextColor indexes the palette by head count and skips colours already taken
// while a free one exists.
func (r *Room) nextColor() string {
	start := len(r.participants) % len(palette)
	used := make(map[string]struct{}, len(r.participants))
	for _, p := range r.participants {
		used[p.Color] = struct{}{}
	}
	for i := range palette {
		c := palette[(start+i)%len(palette)]
		if _, taken := used[c]; !taken {
			return c
		}
	}
	return palette[start]
}

func (r *Room) appendMessage(msg Message) {
	r.history = append(r.history, msg)
	if over := len(r.history) - r.historyLimit; over > 0 {
		// Shift instead of reslicing so the backing array does not grow forever.
		n := copy(r.history, r.history[over:])
		clear(r.history[n:])
		r.history = r.history[:n]
	}
	r.LastActivity = msg.CreatedAt
}

// Empty returns true if no participants are in the room.
func (r *Room) Empty() bool {
	return len(r.participants) == 0
}

// roster returns participants ordered by join time.
func (r *Room) roster() []Participant {
	out := make([]Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnID < out[j].ConnID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

func (r *Room) info() RoomInfo {
	return RoomInfo{
		Code:         r.Code,
		CreatorID:    r.CreatorID,
		CreatedAt:    r.CreatedAt,
		LastActivity: r.LastActivity,
		Participants: r.roster(),
		HistoryLen:   len(r.history),
	}
}
