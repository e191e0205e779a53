package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/proto"
	"github.com/vovakirdan/roomrelay/internal/utils"
)

const writeTimeout = 10 * time.Second

// acceptOptions turns the configured origins into websocket accept options.
// A "*" entry disables the origin check.
func acceptOptions(origins []string) *websocket.AcceptOptions {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}

// closeStatus picks the close frame for a finished connection and reports
// whether err is worth logging.
func closeStatus(err error) (websocket.StatusCode, string, bool) {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return websocket.StatusNormalClosure, "closing", false
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return websocket.StatusNormalClosure, "closing", false
	case websocket.StatusMessageTooBig:
		return websocket.StatusMessageTooBig, "message too big", true
	}
	return websocket.StatusInternalError, err.Error(), true
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub       *core.Hub
	log       *zerolog.Logger
	accept    *websocket.AcceptOptions
	readLimit int64
	queue     int
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, origins []string, readLimit int64, queue int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:       hub,
		log:       logger,
		accept:    acceptOptions(origins),
		readLimit: readLimit,
		queue:     queue,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(utils.NewID(), "", h.queue)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)
	h.log.Debug().Str("client_id", client.ID).Str("remote", r.RemoteAddr).Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status, reason, report := closeStatus(err)
	if report {
		h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
	}
	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			h.log.Debug().Str("client_id", client.ID).Msg("ignoring binary frame on ws channel")
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Str("code", core.ErrCodeInvalidPayload).Msg("dropping malformed envelope")
			continue
		}

		cmd, protoErr, err := inboundToCommand(inbound)
		if err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Str("type", inbound.Type).Str("code", core.ErrCodeInvalidPayload).Msg("dropping inbound")
			continue
		}
		if protoErr != nil {
			if err := h.write(ctx, conn, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events:
			if err := h.write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) write(ctx context.Context, conn *websocket.Conn, out proto.Outbound) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, out)
}
