package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"syncroom-service/internal/models"
)

// CallRelay forwards call-setup payloads between peers. It keeps only the
// addressing state (which connections are in which call room); SDP and ICE
// payloads pass through opaque. A connection is addressed by its ConnID.
type CallRelay struct {
	mu    sync.Mutex
	rooms map[string]map[string]*Client
}

// NewCallRelay creates an empty relay.
func NewCallRelay() *CallRelay {
	return &CallRelay{rooms: make(map[string]map[string]*Client)}
}

// JoinCall binds the connection to the call room. Existing peers are
// notified of the newcomer, and the returned list names them so the caller
// can send the newcomer its peer list; the newcomer is never in that list.
func (cr *CallRelay) JoinCall(c *Client, room string) []string {
	if prev := c.CallRoom(); prev != "" && prev != room {
		cr.LeaveCall(c)
	}

	cr.mu.Lock()
	peers, ok := cr.rooms[room]
	if !ok {
		peers = make(map[string]*Client)
		cr.rooms[room] = peers
	}
	if _, bound := peers[c.Info.ConnID]; bound {
		existing := lo.Without(lo.Keys(peers), c.Info.ConnID)
		cr.mu.Unlock()
		return existing
	}

	existing := lo.Keys(peers)
	others := lo.Values(peers)
	peers[c.Info.ConnID] = c
	c.setCallRoom(room)
	cr.mu.Unlock()

	announcement := mustMarshal(models.PeerEvent{Type: models.EventNewPeer, PeerID: c.Info.ConnID})
	for _, peer := range others {
		if err := peer.TrySend(announcement); err != nil {
			log.Debug().Err(err).Str("conn_id", peer.Info.ConnID).Msg("new peer announce failed")
		}
	}
	return existing
}

// Forward relays a signaling payload to a single peer in the sender's call
// room. An unknown target or a sender outside any call is a silent no-op.
func (cr *CallRelay) Forward(from *Client, eventType, targetID string, payload json.RawMessage) {
	room := from.CallRoom()
	if room == "" {
		return
	}

	cr.mu.Lock()
	peers, ok := cr.rooms[room]
	if !ok {
		cr.mu.Unlock()
		return
	}
	target, ok := peers[targetID]
	cr.mu.Unlock()
	if !ok {
		return
	}

	frame := mustMarshal(models.SignalEvent{Type: eventType, FromID: from.Info.ConnID, Payload: payload})
	if err := target.TrySend(frame); err != nil {
		log.Debug().Err(err).Str("conn_id", targetID).Str("event", eventType).Msg("signal forward failed")
	}
}

// LeaveCall unbinds the connection and notifies the remaining peers. Safe
// to call for a connection that is not in a call.
func (cr *CallRelay) LeaveCall(c *Client) {
	room := c.CallRoom()
	if room == "" {
		return
	}

	cr.mu.Lock()
	peers, ok := cr.rooms[room]
	if !ok {
		c.setCallRoom("")
		cr.mu.Unlock()
		return
	}
	delete(peers, c.Info.ConnID)
	remaining := lo.Values(peers)
	if len(peers) == 0 {
		delete(cr.rooms, room)
	}
	c.setCallRoom("")
	cr.mu.Unlock()

	departure := mustMarshal(models.PeerEvent{Type: models.EventPeerDisconnected, PeerID: c.Info.ConnID})
	for _, peer := range remaining {
		if err := peer.TrySend(departure); err != nil {
			log.Debug().Err(err).Str("conn_id", peer.Info.ConnID).Msg("peer departure notify failed")
		}
	}
}

func mustMarshal(v any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("event marshal")
		return nil
	}
	return payload
}
