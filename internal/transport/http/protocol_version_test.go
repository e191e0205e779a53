package http

import (
	"testing"

	"github.com/vovakirdan/roomrelay/internal/proto"
)

func TestProtocolVersionMismatch(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	conn := env.dial(t, ctx, "/ws")
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{User: "alice", Protocol: proto.ProtocolVersion + 1})

	outbound := readNext(t, ctx, conn)
	if outbound.Type != proto.OutboundTypeError || outbound.Error == nil || outbound.Error.Code != errCodeUnsupportedVersion {
		t.Fatalf("expected unsupported_version error, got %+v", outbound)
	}
	if len(env.hub.OnlineUsers()) != 0 {
		t.Fatalf("rejected join must not register a name: %v", env.hub.OnlineUsers())
	}
}

func TestProtocolVersionAccepted(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	conn := env.dial(t, ctx, "/ws")
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{User: "alice", Protocol: proto.ProtocolVersion})

	var status proto.UserStatusData
	readEvent(t, ctx, conn, proto.EventUserStatus, &status)
	if status.User != "alice" || !status.Online {
		t.Fatalf("unexpected user_status: %+v", status)
	}
}
