package models

import "encoding/json"

// Inbound websocket event types.
const (
	EventJoinRoom      = "joinRoom"
	EventChatMessage   = "chatMessage"
	EventAddReaction   = "addReaction"
	EventDeleteMessage = "deleteMessage"
	EventTyping        = "typing"
	EventJoinCall      = "joinCall"
	EventOffer         = "offer"
	EventAnswer        = "answer"
	EventICECandidate  = "iceCandidate"
	EventLeaveCall     = "leaveCall"
)

// Outbound websocket event types.
const (
	EventRosterUpdated    = "rosterUpdated"
	EventReactionAdded    = "reactionAdded"
	EventMessageDeleted   = "messageDeleted"
	EventExistingPeers    = "existingPeers"
	EventNewPeer          = "newPeer"
	EventPeerDisconnected = "peerDisconnected"
	EventError            = "error"
)

// ChatMessageEvent is the enriched message broadcast to a room.
type ChatMessageEvent struct {
	Type          string         `json:"type"`
	Message       Message        `json:"message"`
	AuthorName    string         `json:"author_name"`
	ParentPreview *ParentPreview `json:"parent_preview"`
}

// RosterEvent carries the display names of currently connected members,
// in presence insertion order.
type RosterEvent struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// ReactionEvent notifies a room of an added reaction.
type ReactionEvent struct {
	Type      string `json:"type"`
	MessageID int    `json:"message_id"`
	UserID    int    `json:"user_id"`
	Emoji     string `json:"emoji"`
}

// DeletionEvent notifies a room of a deleted message.
type DeletionEvent struct {
	Type      string `json:"type"`
	MessageID int    `json:"message_id"`
}

// TypingEvent signals a participant starting or stopping typing. UserID is
// nil when the typist is the assistant.
type TypingEvent struct {
	Type     string `json:"type"`
	UserID   *int   `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// PeerListEvent delivers the identities already in a call to a joining peer.
type PeerListEvent struct {
	Type  string   `json:"type"`
	Peers []string `json:"peers"`
}

// PeerEvent announces a single peer arriving or departing a call.
type PeerEvent struct {
	Type   string `json:"type"`
	PeerID string `json:"peer_id"`
}

// SignalEvent is a relayed call-setup payload. The payload is opaque to the
// relay; only the addressing envelope is interpreted.
type SignalEvent struct {
	Type    string          `json:"type"`
	FromID  string          `json:"from_id"`
	Payload json.RawMessage `json:"payload"`
}

// ErrorEvent is sent to a single connection when its own event failed in a
// way it should see.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
