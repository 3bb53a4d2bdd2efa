package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"syncroom-service/internal/models"
	"syncroom-service/internal/observability"
)

// room is the per-room presence state. Each room owns its mutex, so two
// rooms never contend with each other; the hub-level lock only guards the
// room table itself.
type room struct {
	mu sync.Mutex

	conns map[*Client]struct{}
	// presence by userID: session count, display name, insertion order
	sessions map[int]int
	names    map[int]string
	order    []int
}

func newRoom() *room {
	return &room{
		conns:    make(map[*Client]struct{}),
		sessions: make(map[int]int),
		names:    make(map[int]string),
	}
}

// rosterLocked returns display names in presence insertion order.
// Callers hold r.mu.
func (r *room) rosterLocked() []string {
	return lo.Map(r.order, func(userID int, _ int) string {
		return r.names[userID]
	})
}

// Hub is the session directory and presence tracker: it maps connections to
// their room binding and owns the per-room presence maps. Rooms materialize
// on first join and are pruned as soon as the last connection leaves; an
// absent entry and an empty room are the same thing.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int]*room
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int]*room)}
}

func (h *Hub) getOrCreate(roomID int) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		r = newRoom()
		h.rooms[roomID] = r
	}
	return r
}

func (h *Hub) get(roomID int) (*room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[roomID]
	return r, ok
}

// Join binds the connection to the room and registers presence. A second
// session for the same user keeps the single roster entry and refreshes the
// display name (last write wins). Returns the updated roster.
func (h *Hub) Join(c *Client, roomID int) []string {
	if prev := c.Room(); prev != 0 && prev != roomID {
		// The room being left must see the roster change too.
		if oldRoom, roster, changed := h.Leave(c); changed {
			h.BroadcastRoster(oldRoom, roster)
		}
	}

	r := h.getOrCreate(roomID)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; ok {
		return r.rosterLocked()
	}
	r.conns[c] = struct{}{}

	userID := c.Identity.UserID
	if r.sessions[userID] == 0 {
		r.order = append(r.order, userID)
	}
	r.sessions[userID]++
	r.names[userID] = c.Identity.Username
	c.setRoom(roomID)

	return r.rosterLocked()
}

// Leave removes the connection's binding. The user's presence entry is
// dropped only when no other live session of theirs remains bound to the
// room, so multi-tab users never flicker offline. Returns the room id, the
// updated roster, and whether the roster changed; roomID is 0 when the
// connection was not bound.
func (h *Hub) Leave(c *Client) (roomID int, roster []string, changed bool) {
	roomID = c.Room()
	if roomID == 0 {
		return 0, nil, false
	}
	r, ok := h.get(roomID)
	if !ok {
		c.setRoom(0)
		return 0, nil, false
	}

	r.mu.Lock()
	if _, bound := r.conns[c]; !bound {
		r.mu.Unlock()
		c.setRoom(0)
		return 0, nil, false
	}
	delete(r.conns, c)
	c.setRoom(0)

	userID := c.Identity.UserID
	r.sessions[userID]--
	if r.sessions[userID] <= 0 {
		delete(r.sessions, userID)
		delete(r.names, userID)
		r.order = lo.Without(r.order, userID)
		changed = true
	}
	roster = r.rosterLocked()
	empty := len(r.conns) == 0
	r.mu.Unlock()

	if empty {
		h.prune(roomID)
	}
	return roomID, roster, changed
}

// prune drops the room entry when it is still empty.
func (h *Hub) prune(roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[roomID]
	if !ok {
		return
	}
	r.mu.Lock()
	empty := len(r.conns) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, roomID)
	}
}

// Broadcast sends the event to every connection currently bound to the
// room. The fanout set is computed from live presence at call time. Returns
// the number of connections reached.
func (h *Hub) Broadcast(roomID int, event any) int {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Int("room_id", roomID).Msg("broadcast marshal")
		return 0
	}

	r, ok := h.get(roomID)
	if !ok {
		return 0
	}

	r.mu.Lock()
	clients := lo.Keys(r.conns)
	r.mu.Unlock()

	sent := 0
	for _, c := range clients {
		if err := c.TrySend(payload); err != nil {
			log.Debug().Err(err).Str("conn_id", c.Info.ConnID).Msg("dropping unwritable connection")
			c.Close()
			continue
		}
		sent++
	}
	observability.ObserveBroadcastFanout(sent)
	return sent
}

// BroadcastRoster pushes the current roster to the room.
func (h *Hub) BroadcastRoster(roomID int, roster []string) {
	h.Broadcast(roomID, models.RosterEvent{Type: models.EventRosterUpdated, Users: roster})
}

// Roster returns the room's current roster, nil for an unknown room.
func (h *Hub) Roster(roomID int) []string {
	r, ok := h.get(roomID)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

// KickUser removes the user's presence from the room and closes every one
// of their sessions bound to it.
func (h *Hub) KickUser(roomID int, userID int) {
	r, ok := h.get(roomID)
	if !ok {
		return
	}

	r.mu.Lock()
	var kicked []*Client
	for c := range r.conns {
		if c.Identity.UserID == userID {
			kicked = append(kicked, c)
			delete(r.conns, c)
		}
	}
	delete(r.sessions, userID)
	delete(r.names, userID)
	r.order = lo.Without(r.order, userID)
	roster := r.rosterLocked()
	empty := len(r.conns) == 0
	r.mu.Unlock()

	for _, c := range kicked {
		c.setRoom(0)
		c.Close()
	}
	if empty {
		h.prune(roomID)
		return
	}
	if len(kicked) > 0 {
		h.BroadcastRoster(roomID, roster)
	}
}

// CloseRoom disconnects every session in the room and drops the entry.
func (h *Hub) CloseRoom(roomID int) {
	r, ok := h.get(roomID)
	if !ok {
		return
	}

	r.mu.Lock()
	clients := lo.Keys(r.conns)
	r.conns = make(map[*Client]struct{})
	r.sessions = make(map[int]int)
	r.names = make(map[int]string)
	r.order = nil
	r.mu.Unlock()

	for _, c := range clients {
		c.setRoom(0)
		c.Close()
	}
	h.prune(roomID)
}
