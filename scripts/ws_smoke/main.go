package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomrelay/internal/proto"
	"github.com/vovakirdan/roomrelay/internal/stream"
	"github.com/vovakirdan/roomrelay/internal/utils"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("addr", "ws://localhost:3000", "server base address")
	user := flag.String("user", "tester", "display name to announce with join")
	room := flag.String("room", "", "room code (generated when empty)")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	code := *room
	if code == "" {
		code = utils.NewRoomCode()
	}
	baseURL := strings.TrimSuffix(*base, "/")

	if err := chat(ctx, baseURL+"/ws", *user, code, *text); err != nil {
		return err
	}
	return relay(ctx, baseURL+"/stream", code)
}

func chat(ctx context.Context, addr, user, code, text string) error {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	mustSend := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := mustSend(proto.InboundTypeJoin, proto.JoinData{User: user, Protocol: proto.ProtocolVersion}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeCreateRoom, proto.RoomData{Room: code}); err != nil {
		return err
	}
	if err := mustSend(proto.InboundTypeSendMessage, proto.MsgData{Room: code, Text: text}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s", outbound.Type)
		if outbound.Event != "" {
			fmt.Printf(" event=%s", outbound.Event)
		}
		fmt.Println()

		if outbound.Error != nil {
			return fmt.Errorf("server error %s: %s", outbound.Error.Code, outbound.Error.Msg)
		}

		switch outbound.Event {
		case proto.EventRoomCreated:
			var evt proto.EventRoomState
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("Room: code=%s color=%s participants=%d\n", evt.Room, evt.Color, len(evt.Participants))
			}
		case proto.EventNewMessage:
			var evt proto.EventMessage
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				fmt.Printf("Raw data: %s\n", string(outbound.Data))
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("EventMessage: room=%s user=%s text=%q ts=%d\n", evt.Room, evt.User, evt.Text, evt.TS)
			return nil
		default:
			// keep looping for message
		}
	}
}

func relay(ctx context.Context, addr, code string) error {
	sender, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")
	receiver, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial stream: %w", err)
	}
	defer receiver.Close(websocket.StatusNormalClosure, "bye")

	join := func(conn *websocket.Conn, peerID string) error {
		data, _ := json.Marshal(proto.StreamControl{Type: proto.StreamJoin, RoomCode: code, PeerID: peerID})
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return fmt.Errorf("join-stream %s: %w", peerID, err)
		}
		// peers-list
		_, _, err := conn.Read(ctx)
		return err
	}
	if err := join(sender, "smoke-sender"); err != nil {
		return err
	}
	if err := join(receiver, "smoke-receiver"); err != nil {
		return err
	}

	chunk := []byte("smoke chunk")
	if err := sender.Write(ctx, websocket.MessageBinary, chunk); err != nil {
		return fmt.Errorf("send chunk: %w", err)
	}
	for {
		typ, data, err := receiver.Read(ctx)
		if err != nil {
			return fmt.Errorf("read chunk: %w", err)
		}
		if typ != websocket.MessageBinary {
			continue
		}
		header, payload, err := stream.DecodeFrame(data)
		if err != nil {
			return err
		}
		if !bytes.Equal(payload, chunk) {
			return fmt.Errorf("chunk changed in transit: %q", payload)
		}
		fmt.Printf("Stream chunk: from=%s bytes=%d\n", header.From, len(payload))
		return nil
	}
}
