package core

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// RateLimiter caps how many chat messages a connection may send.
type RateLimiter interface {
	Allow(connID string) bool
	Forget(connID string)
}

type inbound struct {
	client *Client
	cmd    *Command
}

// Hub coordinates connected clients and rooms. Every command and disconnect is
// applied on the goroutine running Run, so events within a room go out in the
// order they were received.
type Hub struct {
	registry *Registry
	limiter  RateLimiter
	log      *zerolog.Logger
	handlers map[CommandKind]handlerFunc

	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	inbox      chan inbound
	done       chan struct{}
	stopOnce   sync.Once

	connections atomic.Int64
	usersMu     sync.RWMutex
	users       map[string]int // display name -> open connections using it
}

// NewHub creates a new chat hub instance. limiter and logger may be nil.
func NewHub(registry *Registry, limiter RateLimiter, logger *zerolog.Logger) *Hub {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	h := &Hub{
		registry:   registry,
		limiter:    limiter,
		log:        logger,
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan inbound, 256),
		done:       make(chan struct{}),
		users:      make(map[string]int),
	}
	h.handlers = h.routes()
	return h
}

// Run processes registrations, commands and disconnects until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c.ID] = c
			h.connections.Add(1)
			if c.Name != "" {
				h.setOnline(c.Name)
			}
			go h.pump(c)
			h.log.Debug().Str("client_id", c.ID).Msg("client registered")
		case c := <-h.unregister:
			h.disconnect(c)
		case in := <-h.inbox:
			if _, ok := h.clients[in.client.ID]; !ok {
				continue
			}
			h.dispatch(in.client, in.cmd)
		}
	}
}

// RegisterClient hands a new connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient runs the disconnect path for c.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Registry exposes the room store backing the hub.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ConnectionCount returns the number of registered clients.
func (h *Hub) ConnectionCount() int {
	return int(h.connections.Load())
}

// OnlineUsers returns the display names of connected clients, sorted.
func (h *Hub) OnlineUsers() []string {
	h.usersMu.RLock()
	defer h.usersMu.RUnlock()

	names := make([]string, 0, len(h.users))
	for name := range h.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// pump forwards a client's commands into the hub inbox, keeping per-client order.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- inbound{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-h.done:
				return
			}
		case <-c.done:
			return
		case <-h.done:
			return
		}
	}
}

func (h *Hub) disconnect(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	close(c.done)
	h.connections.Add(-1)

	h.leaveRoom(c)
	if h.limiter != nil {
		h.limiter.Forget(c.ID)
	}
	if c.Name != "" {
		h.setOffline(c.Name)
	}
	h.log.Debug().Str("client_id", c.ID).Msg("client unregistered")
}

// leaveRoom removes c from its room and tells whoever is left.
func (h *Hub) leaveRoom(c *Client) {
	if c.Room == "" {
		return
	}
	c.Room = ""

	dep, ok := h.registry.Leave(c.ID)
	if !ok {
		return
	}
	h.log.Info().Str("client_id", c.ID).Str("room", dep.Code).Bool("deleted", dep.Deleted).Msg("participant left")

	ev := &Event{
		Kind:         EventParticipantLeft,
		Room:         dep.Code,
		User:         dep.Participant.Name,
		ConnID:       c.ID,
		Participants: dep.Remaining,
	}
	for _, p := range dep.Remaining {
		h.sendTo(p.ConnID, ev)
	}
}

func (h *Hub) setOnline(name string) {
	h.usersMu.Lock()
	h.users[name]++
	h.usersMu.Unlock()
}

func (h *Hub) setOffline(name string) {
	h.usersMu.Lock()
	h.users[name]--
	gone := h.users[name] <= 0
	if gone {
		delete(h.users, name)
	}
	h.usersMu.Unlock()

	if gone {
		h.broadcastAll(&Event{Kind: EventUserStatus, User: name, Online: false})
	}
}

// send delivers an event without blocking; a full queue drops it.
func (h *Hub) send(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		h.log.Warn().Str("client_id", c.ID).Int("kind", int(ev.Kind)).Msg("dropping event for slow client")
	}
}

func (h *Hub) sendTo(connID string, ev *Event) bool {
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	h.send(c, ev)
	return true
}

// broadcastRoom sends ev to every participant of code except the given connection id.
func (h *Hub) broadcastRoom(code string, ev *Event, except string) {
	for _, p := range h.registry.Participants(code) {
		if p.ConnID == except {
			continue
		}
		h.sendTo(p.ConnID, ev)
	}
}

func (h *Hub) broadcastAll(ev *Event) {
	for _, c := range h.clients {
		h.send(c, ev)
	}
}
