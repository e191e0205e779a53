package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/core"
	applog "github.com/vovakirdan/roomrelay/internal/log"
	"github.com/vovakirdan/roomrelay/internal/proto"
	"github.com/vovakirdan/roomrelay/internal/ratelimit"
	"github.com/vovakirdan/roomrelay/internal/stream"
)

type testEnv struct {
	ts    *httptest.Server
	hub   *core.Hub
	relay *stream.Relay
}

type outboundFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func startTestServer(t *testing.T) *testEnv {
	t.Helper()
	return startTestServerWith(t, config.Default())
}

func startTestServerWith(t *testing.T, cfg config.Config, relayOpts ...stream.Option) *testEnv {
	t.Helper()

	logger := applog.Nop()

	hub := core.NewHub(core.NewRegistry(), ratelimit.New(cfg.RateLimit.Window, cfg.RateLimit.Max, nil), logger)
	relay := stream.NewRelay(logger, relayOpts...)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, relay, &cfg, logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, hub: hub, relay: relay}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, path string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.ts.URL, "http", "ws", 1) + path
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

func readNext(t *testing.T, ctx context.Context, conn *websocket.Conn) outboundFrame {
	t.Helper()

	var out outboundFrame
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// readEvent skips frames until the named event arrives and decodes its data.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, into any) {
	t.Helper()

	for {
		out := readNext(t, ctx, conn)
		if out.Type != proto.OutboundTypeEvent || out.Event != event {
			continue
		}
		if into == nil {
			return
		}
		if err := json.Unmarshal(out.Data, into); err != nil {
			t.Fatalf("unmarshal %s: %v", event, err)
		}
		return
	}
}

func readControl(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.StreamControl {
	t.Helper()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read stream control: %v", err)
	}
	if typ != websocket.MessageText {
		t.Fatalf("expected text control frame, got binary")
	}
	var msg proto.StreamControl
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal control: %v", err)
	}
	return msg
}
