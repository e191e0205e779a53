package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/roomrelay/internal/config"
	"github.com/vovakirdan/roomrelay/internal/proto"
)

func getJSON(t *testing.T, env *testEnv, method, path string, into any) int {
	t.Helper()

	req, err := http.NewRequest(method, env.ts.URL+path, nil)
	require.NoError(t, err)
	resp, err := env.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if into != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestRoomEndpoints(t *testing.T) {
	env := startTestServer(t)
	ctx := testContext(t)

	assert.Equal(t, http.StatusNotFound, getJSON(t, env, http.MethodGet, "/api/rooms/NOPE1234", nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, env, http.MethodGet, "/api/rooms/NOPE1234/messages", nil))

	conn := env.dial(t, ctx, "/ws")
	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{User: "alice"})
	send(t, ctx, conn, proto.InboundTypeCreateRoom, proto.RoomData{Room: "REST1234"})
	readEvent(t, ctx, conn, proto.EventRoomCreated, nil)
	send(t, ctx, conn, proto.InboundTypeSendMessage, proto.MsgData{Room: "REST1234", Text: "first"})
	readEvent(t, ctx, conn, proto.EventNewMessage, nil)

	var room RoomResponse
	require.Equal(t, http.StatusOK, getJSON(t, env, http.MethodGet, "/api/rooms/REST1234", &room))
	assert.Equal(t, "REST1234", room.Code)
	assert.Equal(t, 1, room.Messages)
	require.Len(t, room.Participants, 1)
	assert.Equal(t, "alice", room.Participants[0].User)

	var messages []proto.EventMessage
	require.Equal(t, http.StatusOK, getJSON(t, env, http.MethodGet, "/api/rooms/REST1234/messages", &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "first", messages[0].Text)

	var users []string
	require.Equal(t, http.StatusOK, getJSON(t, env, http.MethodGet, "/api/users", &users))
	assert.Equal(t, []string{"alice"}, users)
}

func TestNewRoomCodeEndpoint(t *testing.T) {
	env := startTestServer(t)

	var resp RoomCodeResponse
	require.Equal(t, http.StatusOK, getJSON(t, env, http.MethodPost, "/api/rooms/code", &resp))
	assert.Regexp(t, `^[A-Z0-9]{8}$`, resp.Code)
	assert.NoError(t, validate.Var(resp.Code, "roomcode"))
}

func TestWebRTCConfigEndpoint(t *testing.T) {
	env := startTestServer(t)

	var resp struct {
		STUNServers []string `json:"stunServers"`
		ICEServers  []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, env, http.MethodGet, "/api/webrtc-config", &resp))
	assert.Len(t, resp.STUNServers, 4)
	assert.Contains(t, resp.STUNServers, "stun:stun.l.google.com:19302")
	assert.Len(t, resp.ICEServers, 4)
}

func TestWebRTCConfigSecureAndTURN(t *testing.T) {
	cfg := config.Default()
	cfg.ICEServers = []webrtc.ICEServer{
		{URLs: []string{"stuns:stun.example.com:5349", "stun:stun.example.com:3478"}},
		{URLs: []string{"turn:turn.example.com:3478"}, Username: "u", Credential: "p"},
	}
	env := startTestServerWith(t, cfg)

	var resp WebRTCConfigResponse
	require.Equal(t, http.StatusOK, getJSON(t, env, http.MethodGet, "/api/webrtc-config", &resp))
	assert.Equal(t, []string{"stuns:stun.example.com:5349", "stun:stun.example.com:3478"}, resp.STUNServers)
	assert.Len(t, resp.ICEServers, 2)
}

func TestStunURLs(t *testing.T) {
	got := stunURLs([]webrtc.ICEServer{
		{URLs: []string{"stun:a", "turn:b", "stuns:c", "stun"}},
		{URLs: []string{"turns:d"}},
	})
	assert.Equal(t, []string{"stun:a", "stuns:c"}, got)
	assert.Empty(t, stunURLs(nil))
}

func TestCORSPreflight(t *testing.T) {
	env := startTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, env.ts.URL+"/api/rooms/code", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := env.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
