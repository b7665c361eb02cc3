package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/palemoky/old-maid/internal/config"
	"github.com/palemoky/old-maid/internal/logger"
	"github.com/palemoky/old-maid/internal/protocol"
	"github.com/palemoky/old-maid/internal/protocol/codec"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Security.AllowedOrigins = []string{"*"}
	cfg.Security.AdminPassword = ""
	cfg.Security.AdminPasswordHash = ""
	cfg.Security.RateLimit.MaxPerSecond = 100
	cfg.Security.RateLimit.MaxPerMinute = 1000
	cfg.Security.MessageLimit.MaxPerSecond = 100
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, rdb *redis.Client) (*Server, *httptest.Server) {
	t.Helper()
	s, err := NewServer(cfg, rdb, logger.Discard())
	require.NoError(t, err)
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil 读取消息直到出现指定类型
func readUntil(t *testing.T, conn *websocket.Conn, want protocol.MessageType) *protocol.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		frameType, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg *protocol.Message
		if frameType == websocket.BinaryMessage {
			msg, err = codec.DecodeBinary(data)
		} else {
			msg, err = codec.Decode(data)
		}
		require.NoError(t, err)
		if msg.Type == want {
			return msg
		}
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	t.Helper()
	data, err := codec.Encode(codec.MustNewMessage(msgType, payload))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func sendBinary(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload any) {
	t.Helper()
	data, err := codec.EncodeBinary(codec.MustNewMessage(msgType, payload))
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))
}

func createRoom(t *testing.T, ts *httptest.Server, password string) *http.Response {
	t.Helper()
	body := strings.NewReader(`{"password":"` + password + `"}`)
	resp, err := http.Post(ts.URL+"/rooms", "application/json", body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	s, ts := newTestServer(t, testConfig(), nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeBody[healthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)

	s.EnterMaintenanceMode()
	resp2, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestCreateRoom_AdminPassword(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Security.AdminPassword = "secret"
	s, ts := newTestServer(t, cfg, nil)

	assert.Equal(t, http.StatusUnauthorized, createRoom(t, ts, "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, createRoom(t, ts, "wrong").StatusCode)

	resp := createRoom(t, ts, "secret")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[createRoomResponse](t, resp)
	assert.Len(t, created.RoomCode, 6)
	assert.Equal(t, cfg.Game.MaxPlayers, created.MaxPlayers)
	assert.NotNil(t, s.RoomManager().GetRoom(created.RoomCode))

	// 口令也可以放在请求头
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rooms", http.NoBody)
	require.NoError(t, err)
	req.Header.Set(adminPasswordHeader, "secret")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusCreated, resp2.StatusCode)
	assert.Equal(t, 2, s.RoomManager().RoomCount())
}

func TestCreateRoom_NoPasswordConfigured(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testConfig(), nil)
	assert.Equal(t, http.StatusCreated, createRoom(t, ts, "").StatusCode)
}

func TestCreateRoom_ShuttingDown(t *testing.T) {
	t.Parallel()

	s, ts := newTestServer(t, testConfig(), nil)
	s.EnterMaintenanceMode()

	resp := createRoom(t, ts, "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, protocol.ErrCodeServerClosing, decodeBody[errorResponse](t, resp).Code)
}

// createRoomFrom 带 X-Forwarded-For 的错误口令请求，返回状态码
func createRoomFrom(t *testing.T, ts *httptest.Server, forwardedFor string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/rooms", strings.NewReader(`{"password":"wrong"}`))
	require.NoError(t, err)
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestCreateRoom_ForwardedForFromUntrustedPeer(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Security.AdminPassword = "secret"
	cfg.Security.RateLimit.MaxPerMinute = 3
	_, ts := newTestServer(t, cfg, nil)

	statuses := make(map[int]int)
	for i := range 6 {
		statuses[createRoomFrom(t, ts, fmt.Sprintf("203.0.113.%d", i+1))]++
	}
	assert.Equal(t, map[int]int{http.StatusUnauthorized: 3, http.StatusTooManyRequests: 3}, statuses,
		"rotating X-Forwarded-For must not reset the limit")
}

func TestCreateRoom_ForwardedForFromTrustedProxy(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Security.AdminPassword = "secret"
	cfg.Security.RateLimit.MaxPerMinute = 3
	cfg.Security.TrustedProxies = []string{"127.0.0.0/8", "::1"}
	cfg.Security.BlockedIPs = []string{"198.51.100.9"}
	_, ts := newTestServer(t, cfg, nil)

	for i := range 6 {
		assert.Equal(t, http.StatusUnauthorized, createRoomFrom(t, ts, fmt.Sprintf("203.0.113.%d", i+1)))
	}
	assert.Equal(t, http.StatusForbidden, createRoomFrom(t, ts, "198.51.100.9"))
}

func TestGetRoomAndList(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testConfig(), nil)
	created := decodeBody[createRoomResponse](t, createRoom(t, ts, ""))

	resp, err := http.Get(ts.URL + "/rooms/" + created.RoomCode)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	info := decodeBody[protocol.RoomListItem](t, resp)
	assert.Equal(t, created.RoomCode, info.RoomCode)
	assert.Equal(t, "lobby", info.State)
	assert.Zero(t, info.PlayerCount)

	missing, err := http.Get(ts.URL + "/rooms/999999x")
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	list, err := http.Get(ts.URL + "/rooms")
	require.NoError(t, err)
	defer list.Body.Close()
	rooms := decodeBody[protocol.RoomListResultPayload](t, list)
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, created.RoomCode, rooms.Rooms[0].RoomCode)
}

func TestWebSocket_JoinFlow(t *testing.T) {
	t.Parallel()

	s, ts := newTestServer(t, testConfig(), nil)
	created := decodeBody[createRoomResponse](t, createRoom(t, ts, ""))

	alice := dial(t, ts)
	connected, err := codec.ParsePayload[protocol.ConnectedPayload](readUntil(t, alice, protocol.MsgConnected))
	require.NoError(t, err)
	assert.NotEmpty(t, connected.ConnectionID)

	sendJSON(t, alice, protocol.MsgJoinRoom, protocol.JoinRoomPayload{RoomCode: created.RoomCode, PlayerName: "Alice"})
	joined, err := codec.ParsePayload[protocol.RoomJoinedPayload](readUntil(t, alice, protocol.MsgRoomJoined))
	require.NoError(t, err)
	assert.Equal(t, created.RoomCode, joined.RoomCode)
	assert.Equal(t, "Alice", joined.PlayerName)

	// 第二个客户端使用二进制帧，回复也是二进制帧
	bob := dial(t, ts)
	readUntil(t, bob, protocol.MsgConnected)
	sendBinary(t, bob, protocol.MsgJoinRoom, protocol.JoinRoomPayload{RoomCode: created.RoomCode, PlayerName: "Bob"})

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(3*time.Second)))
	frameType, data, err := bob.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, frameType)
	msg, err := codec.DecodeBinary(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgRoomJoined, msg.Type)

	var state *protocol.GameStatePayload
	for state == nil || len(state.Players) < 2 {
		state, err = codec.ParsePayload[protocol.GameStatePayload](readUntil(t, alice, protocol.MsgGameState))
		require.NoError(t, err)
	}
	assert.Equal(t, "Bob", state.Players[1].Name)
	assert.Equal(t, 2, s.GetOnlineCount())
}

func TestWebSocket_DisconnectLeavesRoom(t *testing.T) {
	t.Parallel()

	s, ts := newTestServer(t, testConfig(), nil)
	created := decodeBody[createRoomResponse](t, createRoom(t, ts, ""))

	conn := dial(t, ts)
	readUntil(t, conn, protocol.MsgConnected)
	sendJSON(t, conn, protocol.MsgJoinRoom, protocol.JoinRoomPayload{RoomCode: created.RoomCode, PlayerName: "Alice"})
	readUntil(t, conn, protocol.MsgRoomJoined)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool {
		return s.RoomManager().GetRoom(created.RoomCode) == nil && s.GetOnlineCount() == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestWebSocket_InvalidFrame(t *testing.T) {
	t.Parallel()

	_, ts := newTestServer(t, testConfig(), nil)
	conn := dial(t, ts)
	readUntil(t, conn, protocol.MsgConnected)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	errPayload, err := codec.ParsePayload[protocol.ErrorPayload](readUntil(t, conn, protocol.MsgError))
	require.NoError(t, err)
	assert.Equal(t, protocol.ErrCodeInvalidMsg, errPayload.Code)
}

func TestWebSocket_Rejections(t *testing.T) {
	t.Parallel()

	t.Run("shutting down", func(t *testing.T) {
		t.Parallel()
		s, ts := newTestServer(t, testConfig(), nil)
		s.EnterMaintenanceMode()

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("origin not allowed", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Security.AllowedOrigins = []string{"https://ok.example.com"}
		_, ts := newTestServer(t, cfg, nil)

		header := http.Header{"Origin": []string{"https://evil.example.com"}}
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("blocked ip", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Security.BlockedIPs = []string{"127.0.0.1"}
		_, ts := newTestServer(t, cfg, nil)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("server full", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Server.MaxConnections = 1
		_, ts := newTestServer(t, cfg, nil)

		first := dial(t, ts)
		readUntil(t, first, protocol.MsgConnected)

		_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func TestRoomMirroredToRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, ts := newTestServer(t, testConfig(), rdb)
	require.NotNil(t, s.leaderboard)

	created := decodeBody[createRoomResponse](t, createRoom(t, ts, ""))
	assert.Eventually(t, func() bool {
		return mr.Exists("oldmaid:room:" + created.RoomCode)
	}, 3*time.Second, 20*time.Millisecond)
}

func TestAdminPasswordHash(t *testing.T) {
	t.Parallel()

	hash, err := adminPasswordHash(config.SecurityConfig{})
	require.NoError(t, err)
	assert.Empty(t, hash)

	_, err = adminPasswordHash(config.SecurityConfig{AdminPasswordHash: "plain-text"})
	assert.Error(t, err)

	stored, err := bcrypt.GenerateFromPassword([]byte("stored"), bcrypt.MinCost)
	require.NoError(t, err)
	hash, err = adminPasswordHash(config.SecurityConfig{AdminPassword: "ignored", AdminPasswordHash: string(stored)})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword(hash, []byte("stored")))
}

func TestGracefulShutdown_NoActiveGames(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Game.ShutdownCheckInterval = 1
	s, ts := newTestServer(t, cfg, nil)

	conn := dial(t, ts)
	readUntil(t, conn, protocol.MsgConnected)

	done := make(chan struct{})
	go func() {
		s.GracefulShutdown(time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	assert.True(t, s.IsShuttingDown())

	// 连接被服务端关闭
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
