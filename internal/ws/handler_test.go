package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"syncroom-service/internal/auth"
	"syncroom-service/internal/chat"
	"syncroom-service/internal/mocks"
	"syncroom-service/internal/models"
)

type wsFixture struct {
	server   *httptest.Server
	handler  *Handler
	identity *auth.JWTIdentityProvider
	members  *mocks.MembershipRepositoryMock
	messages *mocks.MessageRepositoryMock
}

func setupWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	members := new(mocks.MembershipRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	identity := auth.NewJWTIdentityProvider("test-secret")
	gate := auth.NewGate(members)
	hub := NewHub()
	router := chat.NewRouter(messages, new(mocks.ReactionRepositoryMock), members, gate, hub)
	handler := NewHandler(identity, gate, hub, router, NewCallRelay(), nil)

	engine := gin.New()
	engine.GET("/ws", handler.Serve)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return &wsFixture{server: server, handler: handler, identity: identity, members: members, messages: messages}
}

func (f *wsFixture) dial(t *testing.T, userID int, username string) *websocket.Conn {
	t.Helper()
	token, err := f.identity.IssueToken(auth.Identity{UserID: userID, Username: username})
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev map[string]any
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestServeRejectsMissingToken(t *testing.T) {
	f := setupWSFixture(t)

	resp, err := http.Get(f.server.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestJoinRoomBroadcastsRoster(t *testing.T) {
	f := setupWSFixture(t)

	f.members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleMember, nil).Once()

	conn := f.dial(t, 1, "alice")
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "joinRoom", "room_id": 10}))

	ev := readEvent(t, conn)
	assert.Equal(t, "rosterUpdated", ev["type"])
	assert.Equal(t, []any{"alice"}, ev["users"])
}

func TestJoinRoomDeniedForNonMember(t *testing.T) {
	f := setupWSFixture(t)

	f.members.On("RoleOf", mock.Anything, 10, 9).Return(models.Role(""), auth.ErrNotAMember).Once()

	conn := f.dial(t, 9, "mallory")
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "joinRoom", "room_id": 10}))

	ev := readEvent(t, conn)
	assert.Equal(t, "error", ev["type"])
}

func TestChatMessageRoundTrip(t *testing.T) {
	f := setupWSFixture(t)

	f.members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleMember, nil)
	f.messages.On("Create", mock.Anything, mock.Anything).Return(models.Message{ID: 1, RoomID: 10, Body: "hello"}, nil).Once()

	conn := f.dial(t, 1, "alice")
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "joinRoom", "room_id": 10}))
	readEvent(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "chatMessage", "body": "hello"}))

	ev := readEvent(t, conn)
	assert.Equal(t, "chatMessage", ev["type"])
	assert.Equal(t, "alice", ev["author_name"])
}

func TestTypingRelayedToRoom(t *testing.T) {
	f := setupWSFixture(t)

	f.members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleMember, nil)
	f.members.On("RoleOf", mock.Anything, 10, 2).Return(models.RoleMember, nil)

	alice := f.dial(t, 1, "alice")
	require.NoError(t, alice.WriteJSON(map[string]any{"type": "joinRoom", "room_id": 10}))
	readEvent(t, alice)

	bob := f.dial(t, 2, "bob")
	require.NoError(t, bob.WriteJSON(map[string]any{"type": "joinRoom", "room_id": 10}))
	readEvent(t, bob)
	readEvent(t, alice)

	require.NoError(t, bob.WriteJSON(map[string]any{"type": "typing", "is_typing": true}))

	ev := readEvent(t, alice)
	assert.Equal(t, "typing", ev["type"])
	assert.Equal(t, "bob", ev["username"])
	assert.Equal(t, true, ev["is_typing"])
}

func TestSilentPeerDisconnectedAfterPongTimeout(t *testing.T) {
	f := setupWSFixture(t)
	f.handler.pongWait = 100 * time.Millisecond

	conn := f.dial(t, 1, "alice")
	// The client never reads, so the library never answers pings; the
	// server must drop the connection once the deadline passes.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestDisconnectUpdatesRoster(t *testing.T) {
	f := setupWSFixture(t)

	f.members.On("RoleOf", mock.Anything, 10, 1).Return(models.RoleMember, nil)
	f.members.On("RoleOf", mock.Anything, 10, 2).Return(models.RoleMember, nil)

	alice := f.dial(t, 1, "alice")
	require.NoError(t, alice.WriteJSON(map[string]any{"type": "joinRoom", "room_id": 10}))
	readEvent(t, alice)

	bob := f.dial(t, 2, "bob")
	require.NoError(t, bob.WriteJSON(map[string]any{"type": "joinRoom", "room_id": 10}))
	readEvent(t, alice)

	bob.Close()

	ev := readEvent(t, alice)
	assert.Equal(t, "rosterUpdated", ev["type"])
	assert.Equal(t, []any{"alice"}, ev["users"])
}
