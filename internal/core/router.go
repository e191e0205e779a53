package core

import (
	"errors"
	"fmt"
)

const rateLimitNotice = "Sending too many messages. Please slow down."

type handlerFunc func(c *Client, cmd *Command)

// routes is the dispatch table from command kind to handler.
func (h *Hub) routes() map[CommandKind]handlerFunc {
	return map[CommandKind]handlerFunc{
		CommandSetName:         h.handleSetName,
		CommandCreateRoom:      h.handleCreateRoom,
		CommandJoinRoom:        h.handleJoinRoom,
		CommandLeaveRoom:       h.handleLeaveRoom,
		CommandSendRoomMessage: h.handleSendMessage,
		CommandClearChat:       h.handleClearChat,
		CommandInitiateCall:    h.handleInitiateCall,
		CommandJoinCall:        h.handleJoinCall,
		CommandAcceptCall:      h.relayCall(EventCallAccepted),
		CommandRejectCall:      h.relayCall(EventCallRejected),
		CommandEndCall:         h.relayCall(EventCallEnded),
		CommandOffer:           h.relaySignal(EventOffer),
		CommandAnswer:          h.relaySignal(EventAnswer),
		CommandICECandidate:    h.relaySignal(EventICECandidate),
	}
}

func (h *Hub) dispatch(c *Client, cmd *Command) {
	handler, ok := h.handlers[cmd.Kind]
	if !ok {
		h.log.Warn().Str("client_id", c.ID).Int("kind", int(cmd.Kind)).Msg("no handler for command")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Str("client_id", c.ID).Str("command", cmd.Kind.String()).
				Interface("panic", r).Msg("command handler panicked")
		}
	}()
	handler(c, cmd)
}

func (h *Hub) handleSetName(c *Client, cmd *Command) {
	h.rename(c, cmd.Name)
	h.broadcastAll(&Event{Kind: EventUserStatus, User: c.Name, Online: true})
}

func (h *Hub) rename(c *Client, name string) {
	if name == "" || name == c.Name {
		return
	}
	if c.Name != "" {
		h.setOffline(c.Name)
	}
	c.Name = name
	h.setOnline(name)
}

func (h *Hub) handleCreateRoom(c *Client, cmd *Command) {
	if c.Room == cmd.Room {
		h.send(c, errorEvent(cmd.Room, ErrAlreadyJoined))
		return
	}
	if h.registry.Exists(cmd.Room) {
		h.send(c, errorEvent(cmd.Room, ErrRoomAlreadyExists))
		return
	}
	h.leaveRoom(c)

	info, p, err := h.registry.Create(cmd.Room, c.ID, c.displayName())
	if err != nil {
		h.send(c, errorEvent(cmd.Room, err))
		return
	}
	c.Room = info.Code
	h.log.Info().Str("client_id", c.ID).Str("room", info.Code).Msg("room created")

	h.send(c, &Event{
		Kind:         EventRoomCreated,
		Room:         info.Code,
		Color:        p.Color,
		Participants: info.Participants,
	})
}

func (h *Hub) handleJoinRoom(c *Client, cmd *Command) {
	if c.Room == cmd.Room {
		h.send(c, errorEvent(cmd.Room, ErrAlreadyJoined))
		return
	}
	if !h.registry.Exists(cmd.Room) {
		h.send(c, &Event{Kind: EventRoomNotFound, Room: cmd.Room})
		return
	}
	h.leaveRoom(c)
	h.rename(c, cmd.Name)

	info, p, err := h.registry.Join(cmd.Room, c.ID, c.displayName())
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			h.send(c, &Event{Kind: EventRoomNotFound, Room: cmd.Room})
			return
		}
		h.send(c, errorEvent(cmd.Room, err))
		return
	}
	c.Room = info.Code
	h.log.Info().Str("client_id", c.ID).Str("room", info.Code).Int("participants", len(info.Participants)).Msg("room joined")

	h.send(c, &Event{
		Kind:         EventRoomJoined,
		Room:         info.Code,
		Color:        p.Color,
		Participants: info.Participants,
	})
	h.broadcastRoom(info.Code, &Event{
		Kind:         EventUserJoinedRoom,
		Room:         info.Code,
		User:         p.Name,
		ConnID:       c.ID,
		Color:        p.Color,
		Participants: info.Participants,
	}, c.ID)

	if info.HistoryLen > 0 {
		if history, err := h.registry.History(info.Code); err == nil {
			h.send(c, &Event{Kind: EventHistory, Room: info.Code, Messages: history})
		}
	}
}

func (h *Hub) handleLeaveRoom(c *Client, cmd *Command) {
	if c.Room == "" || c.Room != cmd.Room {
		h.send(c, errorEvent(cmd.Room, ErrNotInRoom))
		return
	}
	h.leaveRoom(c)
}

func (h *Hub) handleSendMessage(c *Client, cmd *Command) {
	if h.limiter != nil && !h.limiter.Allow(c.ID) {
		h.log.Debug().Str("client_id", c.ID).Str("room", cmd.Room).Msg("message rate limited")
		h.send(c, &Event{Kind: EventRateLimited, Room: cmd.Room, Notice: rateLimitNotice})
		return
	}
	p, ok := h.requireMember(c, cmd.Room)
	if !ok {
		return
	}

	msg, err := h.registry.AppendMessage(cmd.Room, Message{
		From:   p.Name,
		FromID: c.ID,
		Text:   cmd.Text,
		Color:  p.Color,
	})
	if err != nil {
		h.send(c, errorEvent(cmd.Room, err))
		return
	}
	h.broadcastRoom(cmd.Room, &Event{Kind: EventRoomMessage, Room: cmd.Room, Message: msg}, "")
}

func (h *Hub) handleClearChat(c *Client, cmd *Command) {
	p, ok := h.requireMember(c, cmd.Room)
	if !ok {
		return
	}
	if err := h.registry.ClearHistory(cmd.Room); err != nil {
		h.send(c, errorEvent(cmd.Room, err))
		return
	}
	name := cmd.Name
	if name == "" {
		name = p.Name
	}
	h.broadcastRoom(cmd.Room, &Event{Kind: EventClearChat, Room: cmd.Room, User: name, ConnID: c.ID}, "")
}

func (h *Hub) handleInitiateCall(c *Client, cmd *Command) {
	p, ok := h.requireMember(c, cmd.Room)
	if !ok {
		return
	}
	h.registry.Touch(cmd.Room)

	from := cmd.Name
	if from == "" {
		from = p.Name
	}
	h.log.Info().Str("client_id", c.ID).Str("room", cmd.Room).Str("call_type", cmd.CallType).Msg("call initiated")
	h.broadcastRoom(cmd.Room, &Event{
		Kind:         EventCallIncoming,
		Room:         cmd.Room,
		Participants: h.registry.Participants(cmd.Room),
		Call: &CallEvent{
			CallType:   cmd.CallType,
			FromName:   from,
			FromConnID: c.ID,
		},
	}, c.ID)
}

func (h *Hub) handleJoinCall(c *Client, cmd *Command) {
	p, ok := h.requireMember(c, cmd.Room)
	if !ok {
		return
	}
	h.registry.Touch(cmd.Room)
	h.broadcastRoom(cmd.Room, &Event{
		Kind:   EventCallParticipantJoined,
		Room:   cmd.Room,
		User:   p.Name,
		ConnID: c.ID,
		Color:  p.Color,
	}, c.ID)
}

// relayCall forwards accept/reject/end to the other participants unchanged.
func (h *Hub) relayCall(kind EventKind) handlerFunc {
	return func(c *Client, cmd *Command) {
		if _, ok := h.requireMember(c, cmd.Room); !ok {
			return
		}
		h.registry.Touch(cmd.Room)
		h.broadcastRoom(cmd.Room, &Event{
			Kind:   kind,
			Room:   cmd.Room,
			ConnID: c.ID,
			Call:   &CallEvent{FromConnID: c.ID},
		}, c.ID)
	}
}

// relaySignal forwards an opaque WebRTC body either to one addressed peer or
// to every other participant of the room.
func (h *Hub) relaySignal(kind EventKind) handlerFunc {
	return func(c *Client, cmd *Command) {
		if _, ok := h.requireMember(c, cmd.Room); !ok {
			return
		}
		h.registry.Touch(cmd.Room)

		ev := &Event{
			Kind:   kind,
			Room:   cmd.Room,
			ConnID: c.ID,
			Signal: &SignalEvent{FromConnID: c.ID, Payload: cmd.Payload},
		}
		if cmd.Target == "" {
			h.broadcastRoom(cmd.Room, ev, c.ID)
			return
		}

		if cmd.Target == c.ID {
			h.send(c, errorEvent(cmd.Room, fmt.Errorf("target is the sender: %w", ErrPeerUnreachable)))
			return
		}
		if _, member := h.registry.Member(cmd.Room, cmd.Target); !member || !h.sendTo(cmd.Target, ev) {
			h.log.Debug().Str("client_id", c.ID).Str("target", cmd.Target).Str("room", cmd.Room).Msg("signal target unreachable")
			h.send(c, errorEvent(cmd.Room, fmt.Errorf("target %q: %w", cmd.Target, ErrPeerUnreachable)))
		}
	}
}

// requireMember resolves the sender's participant record in room, replying
// with room_not_found or not_in_room when it has none.
func (h *Hub) requireMember(c *Client, room string) (Participant, bool) {
	if p, ok := h.registry.Member(room, c.ID); ok {
		return p, true
	}
	if !h.registry.Exists(room) {
		h.send(c, errorEvent(room, ErrRoomNotFound))
	} else {
		h.send(c, errorEvent(room, ErrNotInRoom))
	}
	return Participant{}, false
}
