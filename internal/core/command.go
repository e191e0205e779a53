package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSetName announces the connection's display name.
	CommandSetName CommandKind = iota
	// CommandCreateRoom creates a room and joins it as creator.
	CommandCreateRoom
	// CommandJoinRoom joins an existing room.
	CommandJoinRoom
	// CommandLeaveRoom leaves the current room.
	CommandLeaveRoom
	// CommandSendRoomMessage delivers a chat message to room participants.
	CommandSendRoomMessage
	// CommandClearChat wipes the room history for everyone.
	CommandClearChat

	// CommandInitiateCall rings the other participants.
	CommandInitiateCall
	// CommandJoinCall announces that the sender joined a running call.
	CommandJoinCall
	// CommandAcceptCall accepts an incoming call.
	CommandAcceptCall
	// CommandRejectCall rejects an incoming call.
	CommandRejectCall
	// CommandEndCall hangs up.
	CommandEndCall

	// CommandOffer relays a WebRTC offer.
	CommandOffer
	// CommandAnswer relays a WebRTC answer.
	CommandAnswer
	// CommandICECandidate relays a WebRTC ICE candidate.
	CommandICECandidate
)

var commandNames = map[CommandKind]string{
	CommandSetName:         "join",
	CommandCreateRoom:      "create_room",
	CommandJoinRoom:        "join_room",
	CommandLeaveRoom:       "leave_room",
	CommandSendRoomMessage: "send_message",
	CommandClearChat:       "clear_room_chat",
	CommandInitiateCall:    "initiate_call",
	CommandJoinCall:        "join_call",
	CommandAcceptCall:      "accept_call",
	CommandRejectCall:      "reject_call",
	CommandEndCall:         "end_call",
	CommandOffer:           "webrtc_offer",
	CommandAnswer:          "webrtc_answer",
	CommandICECandidate:    "webrtc_ice_candidate",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return "unknown"
}

// Command represents an action requested by a client.
type Command struct {
	Kind CommandKind
	Room string
	// Name is the display name carried by join/join_room/initiate_call/clear_room_chat.
	Name     string
	Text     string
	CallType string
	// Target addresses a single connection for directed WebRTC relays.
	Target string
	// Payload is the opaque offer/answer/candidate body.
	Payload []byte
}
