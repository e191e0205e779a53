package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUserStatus announces a display name going online or offline.
	EventUserStatus EventKind = iota
	// EventRoomCreated acknowledges room creation to the creator.
	EventRoomCreated
	// EventRoomJoined acknowledges a join with the full roster.
	EventRoomJoined
	// EventUserJoinedRoom tells existing members about a newcomer.
	EventUserJoinedRoom
	// EventRoomNotFound answers a join for an unknown code.
	EventRoomNotFound
	// EventParticipantLeft tells remaining members about a departure.
	EventParticipantLeft
	// EventRoomMessage notifies clients about a chat message in a room.
	EventRoomMessage
	// EventHistory delivers message history to a client upon joining a room.
	EventHistory
	// EventRateLimited tells the sender its message was dropped.
	EventRateLimited
	// EventClearChat tells members the history was wiped.
	EventClearChat
	// EventError notifies clients about a domain error.
	EventError

	// EventCallIncoming rings the other participants.
	EventCallIncoming
	// EventCallParticipantJoined notifies participants that someone joined the call.
	EventCallParticipantJoined
	// EventCallAccepted notifies that the call was accepted.
	EventCallAccepted
	// EventCallRejected notifies that the call was rejected.
	EventCallRejected
	// EventCallEnded notifies that the call has ended.
	EventCallEnded

	// EventOffer, EventAnswer and EventICECandidate carry relayed WebRTC bodies.
	EventOffer
	EventAnswer
	EventICECandidate
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind
	Room string
	// User is the display name the event is about.
	User string
	// ConnID is the connection the event is about.
	ConnID       string
	Color        string
	Online       bool
	Participants []Participant
	Message      Message
	Messages     []Message // For EventHistory
	Notice       string    // For EventRateLimited
	Error        *CoreError
	Call         *CallEvent   // non-nil for call events
	Signal       *SignalEvent // non-nil for WebRTC relays
}

// CallEvent holds data specific to call events.
type CallEvent struct {
	CallType   string
	FromName   string
	FromConnID string
}

// SignalEvent is an opaque WebRTC body relayed between participants.
type SignalEvent struct {
	FromConnID string
	Payload    []byte
}

func errorEvent(room string, err error) *Event {
	return &Event{Kind: EventError, Room: room, Error: toCoreError(err)}
}
