package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/proto"
	"github.com/vovakirdan/roomrelay/internal/stream"
	"github.com/vovakirdan/roomrelay/internal/utils"
)

// StreamHandler upgrades HTTP connections onto the binary media relay. It is
// independent of the ws channel: closing one never touches the other.
type StreamHandler struct {
	relay     *stream.Relay
	log       *zerolog.Logger
	accept    *websocket.AcceptOptions
	readLimit int64
	queue     int
}

// NewStreamHandler builds a stream relay handler.
func NewStreamHandler(relay *stream.Relay, origins []string, readLimit int64, queue int, logger *zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		relay:     relay,
		log:       logger,
		accept:    acceptOptions(origins),
		readLimit: readLimit,
		queue:     queue,
	}
}

func (h *StreamHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		h.log.Error().Err(err).Msg("stream accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	peer := stream.NewPeer(utils.NewID(), h.queue)
	defer h.relay.Leave(peer)
	defer peer.Close()
	h.log.Debug().Str("conn_id", peer.ConnID).Msg("stream connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, peer)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, peer)
	}()

	err = <-errCh
	cancel()
	<-errCh

	status, reason, report := closeStatus(err)
	if report {
		h.log.Warn().Err(err).Str("conn_id", peer.ConnID).Msg("stream connection closed with error")
	}
	conn.Close(status, reason)
}

func (h *StreamHandler) readLoop(ctx context.Context, conn *websocket.Conn, peer *stream.Peer) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ == websocket.MessageBinary {
			if _, err := h.relay.Relay(peer, data); err != nil {
				h.log.Debug().Err(err).Str("conn_id", peer.ConnID).Int("bytes", len(data)).Msg("chunk not relayed")
				switch {
				case errors.Is(err, stream.ErrNotJoined):
					h.relay.SendError(peer, "join-stream before sending media")
				case errors.Is(err, stream.ErrChunkTooLarge):
					h.relay.SendError(peer, "chunk exceeds the size limit")
				}
			}
			continue
		}
		h.handleControl(peer, data)
	}
}

func (h *StreamHandler) handleControl(peer *stream.Peer, data []byte) {
	var msg proto.StreamControl
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.Warn().Err(err).Str("conn_id", peer.ConnID).Msg("dropping malformed stream control")
		return
	}

	switch msg.Type {
	case proto.StreamJoin:
		if err := validate.Var(msg.RoomCode, "required,roomcode"); err != nil {
			h.relay.SendError(peer, "roomCode must be 6 to 8 letters or digits")
			return
		}
		if err := validate.Var(msg.PeerID, "max=64"); err != nil {
			h.relay.SendError(peer, "peerId is too long")
			return
		}
		h.relay.Join(peer, msg.RoomCode, msg.PeerID)
	case proto.StreamLeave:
		if msg.RoomCode != "" && msg.RoomCode != h.relay.Room(peer) {
			return
		}
		h.relay.Leave(peer)
	case proto.StreamQualityChange:
		if err := h.relay.QualityChange(peer, msg.Quality); err != nil {
			h.log.Debug().Err(err).Str("conn_id", peer.ConnID).Msg("quality change ignored")
		}
	default:
		h.log.Debug().Str("conn_id", peer.ConnID).Str("type", msg.Type).Msg("unknown stream control")
	}
}

func (h *StreamHandler) writeLoop(ctx context.Context, conn *websocket.Conn, peer *stream.Peer) error {
	for {
		select {
		case frame := <-peer.Outbound():
			typ := websocket.MessageText
			if frame.Binary {
				typ = websocket.MessageBinary
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, typ, frame.Data)
			cancel()
			if err != nil {
				return err
			}
		case <-peer.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
