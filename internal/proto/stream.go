package proto

// Control message types on the stream channel.
const (
	StreamJoin          = "join-stream"
	StreamLeave         = "leave-stream"
	StreamQualityChange = "quality-change"

	StreamPeersList         = "peers-list"
	StreamPeerJoined        = "peer-joined"
	StreamPeerLeft          = "peer-left"
	StreamPeerQualityChange = "peer-quality-change"
	StreamError             = "error"
)

// StreamControl is a text frame on the stream channel. Field names follow the
// browser client, which uses camelCase here.
type StreamControl struct {
	Type     string   `json:"type"`
	RoomCode string   `json:"roomCode,omitempty"`
	PeerID   string   `json:"peerId,omitempty"`
	Peers    []string `json:"peers"`
	Quality  string   `json:"quality,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// StreamHeader prefixes every relayed binary chunk, terminated by '\n'.
type StreamHeader struct {
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp"`
}
