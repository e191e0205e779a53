package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeRoomAlreadyExists = "room_already_exists"
	ErrCodeRoomNotFound      = "room_not_found"
	ErrCodeAlreadyJoined     = "already_joined"
	ErrCodeNotInRoom         = "not_in_room"
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeInvalidPayload    = "invalid_payload"
	ErrCodePeerUnreachable   = "peer_unreachable"
	ErrCodeInternal          = "internal"
)

var (
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrRoomNotFound      = errors.New("room not found")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrNotInRoom         = errors.New("not in room")
	ErrRateLimited       = errors.New("rate limited")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrPeerUnreachable   = errors.New("peer unreachable")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// toCoreError maps a sentinel error onto its wire code.
func toCoreError(err error) *CoreError {
	switch {
	case errors.Is(err, ErrRoomAlreadyExists):
		return coreError(ErrCodeRoomAlreadyExists, err.Error())
	case errors.Is(err, ErrRoomNotFound):
		return coreError(ErrCodeRoomNotFound, err.Error())
	case errors.Is(err, ErrAlreadyJoined):
		return coreError(ErrCodeAlreadyJoined, err.Error())
	case errors.Is(err, ErrNotInRoom):
		return coreError(ErrCodeNotInRoom, err.Error())
	case errors.Is(err, ErrRateLimited):
		return coreError(ErrCodeRateLimited, err.Error())
	case errors.Is(err, ErrInvalidPayload):
		return coreError(ErrCodeInvalidPayload, err.Error())
	case errors.Is(err, ErrPeerUnreachable):
		return coreError(ErrCodePeerUnreachable, err.Error())
	default:
		return coreError(ErrCodeInternal, "internal error")
	}
}
