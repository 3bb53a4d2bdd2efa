package ws

import "time"

// ConnInfo carries the request-scoped metadata captured at upgrade time,
// used for lifecycle events and audit correlation.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Username    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
