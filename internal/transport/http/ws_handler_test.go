package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/coder/websocket"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/core"
	"github.com/vovakirdan/roomrelay/internal/proto"
	"github.com/vovakirdan/roomrelay/internal/stream"
)

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body.Status != "healthy" || body.Environment != "development" || body.Rooms != 0 || body.Timestamp == "" {
		t.Fatalf("unexpected health body: %+v", body)
	}
}

func TestWebSocketRoomChat(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	connA := env.dial(t, ctx, "/ws")
	connB := env.dial(t, ctx, "/ws")

	send(t, ctx, connA, proto.InboundTypeJoin, proto.JoinData{User: "alice"})
	send(t, ctx, connB, proto.InboundTypeJoin, proto.JoinData{User: "bob"})

	send(t, ctx, connA, proto.InboundTypeCreateRoom, proto.RoomData{Room: "AB12CD34"})
	var created proto.EventRoomState
	readEvent(t, ctx, connA, proto.EventRoomCreated, &created)
	if created.Room != "AB12CD34" || len(created.Participants) != 1 {
		t.Fatalf("unexpected room_created: %+v", created)
	}

	send(t, ctx, connB, proto.InboundTypeJoinRoom, proto.JoinRoomData{Room: "AB12CD34", User: "bob"})
	var joined proto.EventRoomState
	readEvent(t, ctx, connB, proto.EventRoomJoined, &joined)
	if len(joined.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %+v", joined.Participants)
	}
	var announce proto.EventParticipant
	readEvent(t, ctx, connA, proto.EventUserJoinedRoom, &announce)
	if announce.User != "bob" {
		t.Fatalf("unexpected user_joined_room: %+v", announce)
	}

	send(t, ctx, connA, proto.InboundTypeSendMessage, proto.MsgData{Room: "AB12CD34", Text: "hello"})
	for _, conn := range []*websocket.Conn{connA, connB} {
		var msg proto.EventMessage
		readEvent(t, ctx, conn, proto.EventNewMessage, &msg)
		if msg.User != "alice" || msg.Text != "hello" || msg.Room != "AB12CD34" {
			t.Fatalf("unexpected new_message: %+v", msg)
		}
	}

	connB.Close(websocket.StatusNormalClosure, "bye")

	var left proto.EventParticipant
	readEvent(t, ctx, connA, proto.EventParticipantLeft, &left)
	if left.User != "bob" || len(left.Participants) != 1 {
		t.Fatalf("unexpected participant_left: %+v", left)
	}
	if !env.hub.Registry().Exists("AB12CD34") {
		t.Fatal("room should still exist")
	}
}

func TestWebSocketInvalidPayloadIsDropped(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	conn := env.dial(t, ctx, "/ws")

	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	send(t, ctx, conn, proto.InboundTypeCreateRoom, proto.RoomData{Room: "x"})
	send(t, ctx, conn, "dance", map[string]string{"room": "AB12CD34"})
	send(t, ctx, conn, proto.InboundTypeOffer, map[string]string{"room": "AB12CD34"})

	send(t, ctx, conn, proto.InboundTypeCreateRoom, proto.RoomData{Room: "VALID123"})
	out := readNext(t, ctx, conn)
	if out.Type != proto.OutboundTypeEvent || out.Event != proto.EventRoomCreated {
		t.Fatalf("expected room_created as the first reply, got %+v", out)
	}
}

func TestWebSocketJoinUnknownRoom(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	conn := env.dial(t, ctx, "/ws")
	send(t, ctx, conn, proto.InboundTypeJoinRoom, proto.JoinRoomData{Room: "NOPE1234", User: "bob"})

	var notFound proto.RoomNotFoundData
	readEvent(t, ctx, conn, proto.EventRoomNotFound, &notFound)
	if notFound.Room != "NOPE1234" {
		t.Fatalf("unexpected room_not_found: %+v", notFound)
	}
	if env.hub.Registry().Count() != 0 {
		t.Fatal("failed join must not create a room")
	}
}

func TestWebSocketDirectedOffer(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	connA := env.dial(t, ctx, "/ws")
	connB := env.dial(t, ctx, "/ws")

	send(t, ctx, connA, proto.InboundTypeCreateRoom, proto.RoomData{Room: "CALL1234"})
	var created proto.EventRoomState
	readEvent(t, ctx, connA, proto.EventRoomCreated, &created)
	aliceID := created.Participants[0].ConnectionID

	send(t, ctx, connB, proto.InboundTypeJoinRoom, proto.JoinRoomData{Room: "CALL1234", User: "bob"})
	var joined proto.EventRoomState
	readEvent(t, ctx, connB, proto.EventRoomJoined, &joined)
	var bobID string
	for _, p := range joined.Participants {
		if p.ConnectionID != aliceID {
			bobID = p.ConnectionID
		}
	}

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	send(t, ctx, connA, proto.InboundTypeOffer, proto.SignalData{Room: "CALL1234", Target: bobID, Payload: offer})

	var signal proto.EventSignal
	readEvent(t, ctx, connB, proto.EventOffer, &signal)
	if signal.FromConnectionID != aliceID {
		t.Fatalf("unexpected sender %q, want %q", signal.FromConnectionID, aliceID)
	}
	var got, want any
	_ = json.Unmarshal(signal.Payload, &got)
	_ = json.Unmarshal(offer, &want)
	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if !bytes.Equal(gotJSON, wantJSON) {
		t.Fatalf("payload changed in transit: %s", signal.Payload)
	}

	send(t, ctx, connA, proto.InboundTypeOffer, proto.SignalData{Room: "CALL1234", Target: "nobody", Payload: offer})
	out := readNext(t, ctx, connA)
	for out.Type != proto.OutboundTypeError {
		out = readNext(t, ctx, connA)
	}
	if out.Error == nil || out.Error.Code != core.ErrCodePeerUnreachable {
		t.Fatalf("expected peer_unreachable, got %+v", out.Error)
	}
}

func TestStreamRelayScenario(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	s1 := env.dial(t, ctx, "/stream")
	s2 := env.dial(t, ctx, "/stream")

	join := func(conn *websocket.Conn, peerID string) {
		data, _ := json.Marshal(proto.StreamControl{Type: proto.StreamJoin, RoomCode: "AB12CD34", PeerID: peerID})
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			t.Fatalf("join-stream: %v", err)
		}
	}

	join(s1, "p1")
	if msg := readControl(t, ctx, s1); msg.Type != proto.StreamPeersList || len(msg.Peers) != 0 {
		t.Fatalf("unexpected first control for p1: %+v", msg)
	}
	join(s2, "p2")
	if msg := readControl(t, ctx, s2); msg.Type != proto.StreamPeersList || len(msg.Peers) != 1 || msg.Peers[0] != "p1" {
		t.Fatalf("unexpected peers-list for p2: %+v", msg)
	}
	if msg := readControl(t, ctx, s1); msg.Type != proto.StreamPeerJoined || msg.PeerID != "p2" {
		t.Fatalf("unexpected peer-joined: %+v", msg)
	}

	chunk := []byte{0x1a, 0x45, 0xdf, 0xa3, 0x0a, 0xff}
	if err := s1.Write(ctx, websocket.MessageBinary, chunk); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	typ, data, err := s2.Read(ctx)
	if err != nil {
		t.Fatalf("read chunk: %v", err)
	}
	if typ != websocket.MessageBinary {
		t.Fatalf("expected binary frame")
	}
	header, payload, err := stream.DecodeFrame(data)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if header.From != "p1" || !bytes.Equal(payload, chunk) {
		t.Fatalf("unexpected relay: from=%q payload=%x", header.From, payload)
	}

	leave, _ := json.Marshal(proto.StreamControl{Type: proto.StreamLeave, RoomCode: "AB12CD34", PeerID: "p1"})
	if err := s1.Write(ctx, websocket.MessageText, leave); err != nil {
		t.Fatalf("leave-stream: %v", err)
	}
	if msg := readControl(t, ctx, s2); msg.Type != proto.StreamPeerLeft || msg.PeerID != "p1" {
		t.Fatalf("unexpected peer-left: %+v", msg)
	}
	if env.relay.RoomCount() != 1 {
		t.Fatalf("stream room should survive with p2, got %d rooms", env.relay.RoomCount())
	}
	if env.hub.Registry().Count() != 0 {
		t.Fatal("stream rooms must not create chat rooms")
	}
}

func TestStreamChunkBeforeJoin(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	conn := env.dial(t, ctx, "/stream")
	if err := conn.Write(ctx, websocket.MessageBinary, []byte("early")); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	if msg := readControl(t, ctx, conn); msg.Type != proto.StreamError {
		t.Fatalf("expected error control, got %+v", msg)
	}
}

func TestStreamOversizeChunkKeepsConnection(t *testing.T) {
	const maxChunk = 1024
	env := startTestServerWith(t, config.Default(), stream.WithMaxChunk(maxChunk))
	ctx := testContext(t)

	s1 := env.dial(t, ctx, "/stream")
	s2 := env.dial(t, ctx, "/stream")
	for _, c := range []struct {
		conn *websocket.Conn
		id   string
	}{{s1, "p1"}, {s2, "p2"}} {
		data, _ := json.Marshal(proto.StreamControl{Type: proto.StreamJoin, RoomCode: "BIG12345", PeerID: c.id})
		if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
			t.Fatalf("join-stream %s: %v", c.id, err)
		}
		if msg := readControl(t, ctx, c.conn); msg.Type != proto.StreamPeersList {
			t.Fatalf("expected peers-list for %s, got %+v", c.id, msg)
		}
	}
	if msg := readControl(t, ctx, s1); msg.Type != proto.StreamPeerJoined {
		t.Fatalf("expected peer-joined, got %+v", msg)
	}

	if err := s1.Write(ctx, websocket.MessageBinary, bytes.Repeat([]byte{0x01}, maxChunk+1)); err != nil {
		t.Fatalf("write oversize chunk: %v", err)
	}
	if msg := readControl(t, ctx, s1); msg.Type != proto.StreamError || msg.Message == "" {
		t.Fatalf("expected error control, got %+v", msg)
	}

	// The connection survives and still relays chunks within the limit.
	chunk := bytes.Repeat([]byte{0x02}, maxChunk)
	if err := s1.Write(ctx, websocket.MessageBinary, chunk); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	typ, data, err := s2.Read(ctx)
	if err != nil {
		t.Fatalf("read chunk: %v", err)
	}
	if typ != websocket.MessageBinary {
		t.Fatalf("expected binary frame")
	}
	header, payload, err := stream.DecodeFrame(data)
	if err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if header.From != "p1" || !bytes.Equal(payload, chunk) {
		t.Fatalf("unexpected relay: from=%q bytes=%d", header.From, len(payload))
	}
}

func TestStreamPeersListAlwaysCarriesPeers(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	conn := env.dial(t, ctx, "/stream")
	join, _ := json.Marshal(proto.StreamControl{Type: proto.StreamJoin, RoomCode: "SOLO1234", PeerID: "p1"})
	if err := conn.Write(ctx, websocket.MessageText, join); err != nil {
		t.Fatalf("join-stream: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read peers-list: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal peers-list: %v", err)
	}
	if string(raw["peers"]) != "[]" {
		t.Fatalf("expected empty peers array, got %s", data)
	}
}
