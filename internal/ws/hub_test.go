package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncroom-service/internal/auth"
)

func newTestClient(userID int, username string) *Client {
	return NewClient(nil, auth.Identity{UserID: userID, Username: username}, ConnInfo{
		ConnID:   newConnID(),
		UserID:   userID,
		Username: username,
	})
}

func drain(t *testing.T, c *Client) []map[string]any {
	t.Helper()
	var events []map[string]any
	for {
		select {
		case raw := <-c.send:
			var ev map[string]any
			require.NoError(t, json.Unmarshal(raw, &ev))
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestJoinReturnsRosterInInsertionOrder(t *testing.T) {
	hub := NewHub()

	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")

	roster := hub.Join(alice, 10)
	assert.Equal(t, []string{"alice"}, roster)

	roster = hub.Join(bob, 10)
	assert.Equal(t, []string{"alice", "bob"}, roster)
}

func TestSecondSessionDoesNotDuplicateRosterEntry(t *testing.T) {
	hub := NewHub()

	tab1 := newTestClient(1, "alice")
	tab2 := newTestClient(1, "alice")

	hub.Join(tab1, 10)
	roster := hub.Join(tab2, 10)
	assert.Equal(t, []string{"alice"}, roster)
}

func TestLeaveKeepsUserWhileAnotherSessionRemains(t *testing.T) {
	hub := NewHub()

	tab1 := newTestClient(1, "alice")
	tab2 := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")

	hub.Join(tab1, 10)
	hub.Join(tab2, 10)
	hub.Join(bob, 10)

	roomID, roster, changed := hub.Leave(tab1)
	assert.Equal(t, 10, roomID)
	assert.False(t, changed)
	assert.Equal(t, []string{"alice", "bob"}, roster)

	roomID, roster, changed = hub.Leave(tab2)
	assert.Equal(t, 10, roomID)
	assert.True(t, changed)
	assert.Equal(t, []string{"bob"}, roster)
}

func TestLeaveUnboundConnectionIsNoop(t *testing.T) {
	hub := NewHub()

	roomID, roster, changed := hub.Leave(newTestClient(1, "alice"))
	assert.Zero(t, roomID)
	assert.Nil(t, roster)
	assert.False(t, changed)
}

func TestRoomPrunedWhenLastConnectionLeaves(t *testing.T) {
	hub := NewHub()

	alice := newTestClient(1, "alice")
	hub.Join(alice, 10)
	hub.Leave(alice)

	hub.mu.RLock()
	_, exists := hub.rooms[10]
	hub.mu.RUnlock()
	assert.False(t, exists)
	assert.Nil(t, hub.Roster(10))
}

func TestJoinSwitchingRoomsLeavesThePreviousOne(t *testing.T) {
	hub := NewHub()

	alice := newTestClient(1, "alice")
	hub.Join(alice, 10)
	hub.Join(alice, 20)

	assert.Equal(t, 20, alice.Room())
	assert.Nil(t, hub.Roster(10))
	assert.Equal(t, []string{"alice"}, hub.Roster(20))
}

func TestJoinSwitchingRoomsNotifiesTheOldRoom(t *testing.T) {
	hub := NewHub()

	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	hub.Join(alice, 10)
	hub.Join(bob, 10)

	hub.Join(bob, 20)

	events := drain(t, alice)
	require.Len(t, events, 1)
	assert.Equal(t, "rosterUpdated", events[0]["type"])
	assert.Equal(t, []any{"alice"}, events[0]["users"])
	assert.Equal(t, []string{"alice"}, hub.Roster(10))
	assert.Equal(t, []string{"bob"}, hub.Roster(20))
}

func TestJoinSwitchingRoomsWithSecondSessionKeepsOldRosterQuiet(t *testing.T) {
	hub := NewHub()

	tab1 := newTestClient(1, "alice")
	tab2 := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	hub.Join(tab1, 10)
	hub.Join(tab2, 10)
	hub.Join(bob, 10)

	hub.Join(tab1, 20)

	assert.Empty(t, drain(t, bob))
	assert.Equal(t, []string{"alice", "bob"}, hub.Roster(10))
}

func TestBroadcastReachesAllRoomConnections(t *testing.T) {
	hub := NewHub()

	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	outsider := newTestClient(3, "carol")

	hub.Join(alice, 10)
	hub.Join(bob, 10)
	hub.Join(outsider, 20)

	sent := hub.Broadcast(10, map[string]string{"type": "ping"})
	assert.Equal(t, 2, sent)

	require.Len(t, drain(t, alice), 1)
	require.Len(t, drain(t, bob), 1)
	assert.Empty(t, drain(t, outsider))
}

func TestBroadcastUnknownRoomReachesNobody(t *testing.T) {
	hub := NewHub()
	assert.Zero(t, hub.Broadcast(99, map[string]string{"type": "ping"}))
}

func TestKickUserClosesAllSessionsAndUpdatesRoster(t *testing.T) {
	hub := NewHub()

	tab1 := newTestClient(1, "alice")
	tab2 := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")

	hub.Join(tab1, 10)
	hub.Join(tab2, 10)
	hub.Join(bob, 10)

	hub.KickUser(10, 1)

	assert.Equal(t, []string{"bob"}, hub.Roster(10))
	assert.Zero(t, tab1.Room())
	assert.Zero(t, tab2.Room())

	events := drain(t, bob)
	require.Len(t, events, 1)
	assert.Equal(t, "rosterUpdated", events[0]["type"])
}

func TestCloseRoomDisconnectsEveryone(t *testing.T) {
	hub := NewHub()

	alice := newTestClient(1, "alice")
	bob := newTestClient(2, "bob")
	hub.Join(alice, 10)
	hub.Join(bob, 10)

	hub.CloseRoom(10)

	assert.Nil(t, hub.Roster(10))
	assert.Zero(t, alice.Room())
	assert.Zero(t, bob.Room())
	assert.Error(t, alice.TrySend([]byte("x")))
}
