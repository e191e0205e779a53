package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/proto"
)

// DefaultMaxChunk bounds a single relayed media chunk.
const DefaultMaxChunk = 8 << 20

var (
	// ErrNotJoined is returned when a peer relays before join-stream.
	ErrNotJoined = errors.New("peer has not joined a stream room")
	// ErrChunkTooLarge is returned for chunks above the configured limit.
	ErrChunkTooLarge = errors.New("stream chunk too large")
)

// Relay fans binary chunks out to the other members of a stream room. Stream
// rooms are independent of chat rooms even when they share a code.
type Relay struct {
	mu       sync.Mutex
	rooms    map[string]map[*Peer]struct{}
	maxChunk int
	now      func() time.Time
	log      *zerolog.Logger
}

// Option customises a Relay.
type Option func(*Relay)

// WithMaxChunk overrides the chunk size limit.
func WithMaxChunk(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.maxChunk = n
		}
	}
}

// WithClock overrides the timestamp source used in frame headers.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRelay creates an empty relay. logger may be nil.
func NewRelay(logger *zerolog.Logger, opts ...Option) *Relay {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &Relay{
		rooms:    make(map[string]map[*Peer]struct{}),
		maxChunk: DefaultMaxChunk,
		now:      time.Now,
		log:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Join adds p to the stream room code under peerID, leaving any room it was in.
// The joiner receives peers-list with the ids already present; the others
// receive peer-joined.
func (r *Relay) Join(p *Peer, code, peerID string) {
	if peerID == "" {
		peerID = p.ConnID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.room != "" {
		r.leaveLocked(p)
	}

	members, ok := r.rooms[code]
	if !ok {
		members = make(map[*Peer]struct{})
		r.rooms[code] = members
	}

	peers := make([]string, 0, len(members))
	for other := range members {
		peers = append(peers, other.peerID)
	}
	sort.Strings(peers)

	members[p] = struct{}{}
	p.room = code
	p.peerID = peerID

	r.log.Info().Str("room", code).Str("peer_id", peerID).Int("peers", len(members)).Msg("peer joined stream")

	r.sendControl(p, proto.StreamControl{Type: proto.StreamPeersList, RoomCode: code, Peers: peers})
	r.broadcastControl(code, p, proto.StreamControl{Type: proto.StreamPeerJoined, RoomCode: code, PeerID: peerID})
}

// Leave removes p from its stream room and tells the remaining members. It is
// a no-op for peers that are not in a room.
func (r *Relay) Leave(p *Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(p)
}

func (r *Relay) leaveLocked(p *Peer) {
	code := p.room
	if code == "" {
		return
	}
	members := r.rooms[code]
	delete(members, p)
	p.room = ""

	if len(members) == 0 {
		delete(r.rooms, code)
	} else {
		r.broadcastControl(code, p, proto.StreamControl{Type: proto.StreamPeerLeft, RoomCode: code, PeerID: p.peerID})
	}
	r.log.Info().Str("room", code).Str("peer_id", p.peerID).Int("remaining", len(members)).Msg("peer left stream")
}

// Relay forwards payload to every other member of p's stream room and
// returns how many receivers accepted it. Receivers with a full queue are
// skipped for this chunk.
func (r *Relay) Relay(p *Peer, payload []byte) (int, error) {
	if len(payload) > r.maxChunk {
		return 0, fmt.Errorf("%d bytes: %w", len(payload), ErrChunkTooLarge)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.room == "" {
		return 0, ErrNotJoined
	}
	frame, err := EncodeFrame(p.peerID, r.now(), payload)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for other := range r.rooms[p.room] {
		if other == p {
			continue
		}
		if other.enqueue(Frame{Binary: true, Data: frame}) {
			delivered++
			continue
		}
		r.log.Debug().Str("room", p.room).Str("peer_id", other.peerID).Msg("skipping slow stream receiver")
	}
	return delivered, nil
}

// QualityChange tells the other members that p switched quality.
func (r *Relay) QualityChange(p *Peer, quality string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.room == "" {
		return ErrNotJoined
	}
	r.broadcastControl(p.room, p, proto.StreamControl{
		Type:     proto.StreamPeerQualityChange,
		RoomCode: p.room,
		PeerID:   p.peerID,
		Quality:  quality,
	})
	return nil
}

// Room returns the stream room p is in, or "".
func (r *Relay) Room(p *Peer) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return p.room
}

// Peers lists the peer ids of a stream room, sorted.
func (r *Relay) Peers(code string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.rooms[code]))
	for p := range r.rooms[code] {
		out = append(out, p.peerID)
	}
	sort.Strings(out)
	return out
}

// MaxChunk is the largest payload Relay accepts.
func (r *Relay) MaxChunk() int {
	return r.maxChunk
}

// RoomCount returns the number of live stream rooms.
func (r *Relay) RoomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// SendError queues an error control message for p.
func (r *Relay) SendError(p *Peer, msg string) {
	r.sendControl(p, proto.StreamControl{Type: proto.StreamError, Message: msg})
}

func (r *Relay) sendControl(p *Peer, msg proto.StreamControl) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error().Err(err).Str("type", msg.Type).Msg("marshal stream control")
		return
	}
	if !p.enqueue(Frame{Data: data}) {
		r.log.Debug().Str("conn_id", p.ConnID).Str("type", msg.Type).Msg("dropping stream control for slow peer")
	}
}

func (r *Relay) broadcastControl(code string, except *Peer, msg proto.StreamControl) {
	for p := range r.rooms[code] {
		if p == except {
			continue
		}
		r.sendControl(p, msg)
	}
}
