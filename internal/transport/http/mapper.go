package http

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/proto"
)

const errCodeUnsupportedVersion = "unsupported_version"

// decode unmarshals and validates the data of an inbound envelope. Every
// failure wraps core.ErrInvalidPayload.
func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("missing data: %w", core.ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
	}
	if err := validate.Struct(v); err != nil {
		return v, fmt.Errorf("%w: %s", core.ErrInvalidPayload, validationMessage(err))
	}
	return v, nil
}

// decodeJoin also accepts a bare JSON string as the display name.
func decodeJoin(raw json.RawMessage) (proto.JoinData, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return proto.JoinData{}, fmt.Errorf("%w: %v", core.ErrInvalidPayload, err)
		}
		raw, _ = json.Marshal(proto.JoinData{User: name})
	}
	return decode[proto.JoinData](raw)
}

var signalKinds = map[string]core.CommandKind{
	proto.InboundTypeOffer:        core.CommandOffer,
	proto.InboundTypeAnswer:       core.CommandAnswer,
	proto.InboundTypeICECandidate: core.CommandICECandidate,
}

var roomOnlyKinds = map[string]core.CommandKind{
	proto.InboundTypeCreateRoom: core.CommandCreateRoom,
	proto.InboundTypeLeaveRoom:  core.CommandLeaveRoom,
	proto.InboundTypeJoinCall:   core.CommandJoinCall,
	proto.InboundTypeAcceptCall: core.CommandAcceptCall,
	proto.InboundTypeRejectCall: core.CommandRejectCall,
	proto.InboundTypeEndCall:    core.CommandEndCall,
}

// inboundToCommand maps a client envelope onto a hub command. A non-nil
// proto.Error is answered to the client; a non-nil error means the envelope
// is dropped.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	if kind, ok := roomOnlyKinds[inbound.Type]; ok {
		data, err := decode[proto.RoomData](inbound.Data)
		if err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: kind, Room: data.Room}, nil, nil
	}
	if kind, ok := signalKinds[inbound.Type]; ok {
		data, err := decode[proto.SignalData](inbound.Data)
		if err != nil {
			return nil, nil, err
		}
		if bytes.Equal(bytes.TrimSpace(data.Payload), []byte("null")) {
			return nil, nil, fmt.Errorf("%s without payload: %w", inbound.Type, core.ErrInvalidPayload)
		}
		return &core.Command{Kind: kind, Room: data.Room, Target: data.Target, Payload: data.Payload}, nil, nil
	}

	switch inbound.Type {
	case proto.InboundTypeJoin:
		data, err := decodeJoin(inbound.Data)
		if err != nil {
			return nil, nil, err
		}
		if data.Protocol != 0 && data.Protocol != proto.ProtocolVersion {
			return nil, &proto.Error{
				Code: errCodeUnsupportedVersion,
				Msg:  fmt.Sprintf("protocol %d is not supported, use %d", data.Protocol, proto.ProtocolVersion),
			}, nil
		}
		return &core.Command{Kind: core.CommandSetName, Name: data.User}, nil, nil
	case proto.InboundTypeJoinRoom:
		data, err := decode[proto.JoinRoomData](inbound.Data)
		if err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: data.Room, Name: data.User}, nil, nil
	case proto.InboundTypeSendMessage:
		data, err := decode[proto.MsgData](inbound.Data)
		if err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandSendRoomMessage, Room: data.Room, Text: data.Text}, nil, nil
	case proto.InboundTypeInitiateCall:
		data, err := decode[proto.CallData](inbound.Data)
		if err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandInitiateCall, Room: data.Room, CallType: data.CallType, Name: data.From}, nil, nil
	case proto.InboundTypeClearChat:
		data, err := decode[proto.ClearChatData](inbound.Data)
		if err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandClearChat, Room: data.Room, Name: data.User}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown message type %q: %w", inbound.Type, core.ErrInvalidPayload)
	}
}

func participantsToProto(ps []core.Participant) []proto.Participant {
	out := make([]proto.Participant, 0, len(ps))
	for _, p := range ps {
		out = append(out, proto.Participant{
			ConnectionID: p.ConnID,
			User:         p.Name,
			Color:        p.Color,
			JoinedAt:     p.JoinedAt.UnixMilli(),
		})
	}
	return out
}

func messageToProto(msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:     msg.ID,
		Room:   msg.Room,
		User:   msg.From,
		UserID: msg.FromID,
		Text:   msg.Text,
		Color:  msg.Color,
		TS:     msg.CreatedAt.Unix(),
	}
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

var callEventNames = map[core.EventKind]string{
	core.EventCallAccepted: proto.EventCallAccepted,
	core.EventCallRejected: proto.EventCallRejected,
	core.EventCallEnded:    proto.EventCallEnded,
}

var signalEventNames = map[core.EventKind]string{
	core.EventOffer:        proto.EventOffer,
	core.EventAnswer:       proto.EventAnswer,
	core.EventICECandidate: proto.EventICECandidate,
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	if name, ok := callEventNames[event.Kind]; ok {
		return eventOutbound(name, proto.EventCall{Room: event.Room, FromConnectionID: event.ConnID})
	}
	if name, ok := signalEventNames[event.Kind]; ok {
		data := proto.EventSignal{Room: event.Room, FromConnectionID: event.ConnID}
		if event.Signal != nil {
			data.FromConnectionID = event.Signal.FromConnID
			data.Payload = json.RawMessage(event.Signal.Payload)
		}
		return eventOutbound(name, data)
	}

	switch event.Kind {
	case core.EventUserStatus:
		return eventOutbound(proto.EventUserStatus, proto.UserStatusData{User: event.User, Online: event.Online})
	case core.EventRoomCreated, core.EventRoomJoined:
		name := proto.EventRoomCreated
		if event.Kind == core.EventRoomJoined {
			name = proto.EventRoomJoined
		}
		return eventOutbound(name, proto.EventRoomState{
			Room:         event.Room,
			Color:        event.Color,
			Participants: participantsToProto(event.Participants),
		})
	case core.EventUserJoinedRoom, core.EventParticipantLeft, core.EventCallParticipantJoined:
		name := proto.EventUserJoinedRoom
		switch event.Kind {
		case core.EventParticipantLeft:
			name = proto.EventParticipantLeft
		case core.EventCallParticipantJoined:
			name = proto.EventParticipantJoinedCall
		}
		data := proto.EventParticipant{
			Room:         event.Room,
			User:         event.User,
			ConnectionID: event.ConnID,
			Color:        event.Color,
		}
		if event.Participants != nil {
			data.Participants = participantsToProto(event.Participants)
		}
		return eventOutbound(name, data)
	case core.EventRoomNotFound:
		return eventOutbound(proto.EventRoomNotFound, proto.RoomNotFoundData{Room: event.Room})
	case core.EventRoomMessage:
		return eventOutbound(proto.EventNewMessage, messageToProto(event.Message))
	case core.EventHistory:
		messages := make([]proto.EventMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, messageToProto(msg))
		}
		return eventOutbound(proto.EventHistory, proto.HistoryData{Room: event.Room, Messages: messages})
	case core.EventRateLimited:
		return eventOutbound(proto.EventRateLimitExceeded, proto.EventNotice{Room: event.Room, Message: event.Notice})
	case core.EventClearChat:
		return eventOutbound(proto.EventClearChat, proto.ChatClearedData{Room: event.Room, User: event.User})
	case core.EventCallIncoming:
		data := proto.IncomingCallData{
			Room:         event.Room,
			Participants: participantsToProto(event.Participants),
		}
		if event.Call != nil {
			data.CallType = event.Call.CallType
			data.From = event.Call.FromName
			data.FromConnectionID = event.Call.FromConnID
		}
		return eventOutbound(proto.EventIncomingCall, data)
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: core.ErrCodeInternal, Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
