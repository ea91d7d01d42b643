package ws

import "time"

// ConnInfo carries per-connection metadata for lifecycle events.
type ConnInfo struct {
	ConnID      string
	UserID      int
	Role        string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
