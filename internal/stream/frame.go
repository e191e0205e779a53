package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/roomrelay/internal/proto"
)

// ErrMalformedFrame is returned when a relayed chunk has no header line.
var ErrMalformedFrame = errors.New("malformed stream frame")

// EncodeFrame prefixes payload with a JSON header line naming the sender.
// Receivers split on the first '\n' to recover the sender before the bytes.
func EncodeFrame(from string, at time.Time, payload []byte) ([]byte, error) {
	header, err := json.Marshal(proto.StreamHeader{From: from, Timestamp: at.UnixMilli()})
	if err != nil {
		return nil, fmt.Errorf("encode stream header: %w", err)
	}
	buf := make([]byte, 0, len(header)+1+len(payload))
	buf = append(buf, header...)
	buf = append(buf, '\n')
	buf = append(buf, payload...)
	return buf, nil
}

// DecodeFrame splits a relayed chunk into its header and payload. The payload
// aliases frame.
func DecodeFrame(frame []byte) (proto.StreamHeader, []byte, error) {
	var header proto.StreamHeader

	i := bytes.IndexByte(frame, '\n')
	if i < 0 {
		return header, nil, ErrMalformedFrame
	}
	if err := json.Unmarshal(frame[:i], &header); err != nil {
		return header, nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return header, frame[i+1:], nil
}
