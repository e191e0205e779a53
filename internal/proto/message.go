package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin         = "join"
	InboundTypeCreateRoom   = "create_room"
	InboundTypeJoinRoom     = "join_room"
	InboundTypeLeaveRoom    = "leave_room"
	InboundTypeSendMessage  = "send_message"
	InboundTypeInitiateCall = "initiate_call"
	InboundTypeJoinCall     = "join_call"
	InboundTypeAcceptCall   = "accept_call"
	InboundTypeRejectCall   = "reject_call"
	InboundTypeEndCall      = "end_call"
	InboundTypeOffer        = "webrtc_offer"
	InboundTypeAnswer       = "webrtc_answer"
	InboundTypeICECandidate = "webrtc_ice_candidate"
	InboundTypeClearChat    = "clear_room_chat"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// Outbound event names.
const (
	EventUserStatus            = "user_status"
	EventRoomCreated           = "room_created"
	EventRoomJoined            = "room_joined"
	EventUserJoinedRoom        = "user_joined_room"
	EventRoomNotFound          = "room_not_found"
	EventParticipantLeft       = "participant_left"
	EventNewMessage            = "new_message"
	EventHistory               = "history"
	EventRateLimitExceeded     = "rate_limit_exceeded"
	EventClearChat             = "clear_chat"
	EventIncomingCall          = "incoming_call"
	EventParticipantJoinedCall = "participant_joined_call"
	EventCallAccepted          = "call_accepted"
	EventCallRejected          = "call_rejected"
	EventCallEnded             = "call_ended"
	EventOffer                 = "webrtc_offer"
	EventAnswer                = "webrtc_answer"
	EventICECandidate          = "webrtc_ice_candidate"
)

// JoinData announces the client's display name.
type JoinData struct {
	User     string `json:"user" validate:"required,max=64"`
	Protocol int    `json:"protocol,omitempty"`
}

// RoomData addresses a room without further arguments.
type RoomData struct {
	Room string `json:"room" validate:"required,roomcode"`
}

// JoinRoomData requests to join a specific room.
type JoinRoomData struct {
	Room string `json:"room" validate:"required,roomcode"`
	User string `json:"user,omitempty" validate:"omitempty,max=64"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	Room string `json:"room" validate:"required,roomcode"`
	Text string `json:"text" validate:"required,max=4000"`
}

// CallData starts a call in a room.
type CallData struct {
	Room     string `json:"room" validate:"required,roomcode"`
	CallType string `json:"call_type" validate:"omitempty,oneof=audio video"`
	From     string `json:"from,omitempty" validate:"omitempty,max=64"`
}

// SignalData carries an opaque WebRTC body. Without Target it goes to every
// other participant of the room.
type SignalData struct {
	Room    string          `json:"room" validate:"required,roomcode"`
	Target  string          `json:"target,omitempty" validate:"omitempty,max=64"`
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// ClearChatData asks to wipe a room's chat.
type ClearChatData struct {
	Room string `json:"room" validate:"required,roomcode"`
	User string `json:"user,omitempty" validate:"omitempty,max=64"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Participant is one entry of a room roster.
type Participant struct {
	ConnectionID string `json:"connection_id"`
	User         string `json:"user"`
	Color        string `json:"color"`
	JoinedAt     int64  `json:"joined_at"`
}

// UserStatusData tells everyone a name went on- or offline.
type UserStatusData struct {
	User   string `json:"user"`
	Online bool   `json:"online"`
}

// EventRoomState answers create_room and join_room.
type EventRoomState struct {
	Room         string        `json:"room"`
	Color        string        `json:"color"`
	Participants []Participant `json:"participants"`
}

// EventParticipant notifies about someone entering or leaving a room or call.
type EventParticipant struct {
	Room         string        `json:"room"`
	User         string        `json:"user"`
	ConnectionID string        `json:"connection_id"`
	Color        string        `json:"color,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
}

// RoomNotFoundData answers a join for an unknown code.
type RoomNotFoundData struct {
	Room string `json:"room"`
}

// EventMessage is a chat message delivered to the room.
type EventMessage struct {
	ID     int64  `json:"id,omitempty"`
	Room   string `json:"room,omitempty"`
	User   string `json:"user"`
	UserID string `json:"user_id,omitempty"`
	Text   string `json:"text"`
	Color  string `json:"color,omitempty"`
	TS     int64  `json:"ts"`
}

// HistoryData contains recent messages for a room.
type HistoryData struct {
	Room     string         `json:"room"`
	Messages []EventMessage `json:"messages"`
}

// EventNotice carries a human readable notice, e.g. for rate limiting.
type EventNotice struct {
	Room    string `json:"room,omitempty"`
	Message string `json:"message"`
}

// ChatClearedData tells a room its chat was wiped.
type ChatClearedData struct {
	Room string `json:"room"`
	User string `json:"user"`
}

// IncomingCallData rings the other participants of a room.
type IncomingCallData struct {
	Room             string        `json:"room"`
	CallType         string        `json:"call_type,omitempty"`
	From             string        `json:"from"`
	FromConnectionID string        `json:"from_connection_id"`
	Participants     []Participant `json:"participants,omitempty"`
}

// EventCall answers call accept/reject/end.
type EventCall struct {
	Room             string `json:"room"`
	FromConnectionID string `json:"from_connection_id"`
}

// EventSignal relays an offer, answer or ICE candidate.
type EventSignal struct {
	Room             string          `json:"room"`
	FromConnectionID string          `json:"from_connection_id"`
	Payload          json.RawMessage `json:"payload"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
