package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Methods pushed to clients.
const (
	MethodReceiveMessage = "receiveMessage"
	MethodReceiveError   = "receiveError"
)

// ErrTransportUnavailable classifies connectivity failures of a broadcast
// backend. Only this error kind triggers the local fallback; application-level
// errors propagate to the caller.
var ErrTransportUnavailable = errors.New("broadcast transport unavailable")

// Connection is one live transport session able to accept outbound payloads.
type Connection interface {
	ID() string
	Enqueue(payload []byte) bool
}

// UserConnections resolves the live connections a user currently holds.
type UserConnections interface {
	ConnectionsOf(userID int) []Connection
}

// Broadcaster delivers (group, method, payload) to subscribed connections and
// maintains group membership.
type Broadcaster interface {
	SendToConnection(ctx context.Context, connID string, method string, payload any) error
	SendToConnections(ctx context.Context, connIDs []string, method string, payload any) error
	SendToGroup(ctx context.Context, groupID int, method string, payload any) error
	SendToGroups(ctx context.Context, groupIDs []int, method string, payload any) error
	SendToGroupExcept(ctx context.Context, groupID int, excludedConnIDs []string, method string, payload any) error
	SendToUser(ctx context.Context, userID int, method string, payload any) error
	SendToUsers(ctx context.Context, userIDs []int, method string, payload any) error
	Subscribe(ctx context.Context, groupID int, conn Connection) error
	Unsubscribe(ctx context.Context, groupID int, conn Connection) error
}

// Frame is the outbound wire shape pushed to clients.
type Frame struct {
	Method string          `json:"method"`
	Data   json.RawMessage `json:"data"`
}

// envelope is the delivery instruction exchanged between instances. The local
// backend uses the same shape internally so both paths share one fan-out.
type envelope struct {
	Op       string          `json:"op"`
	GroupIDs []int           `json:"group_ids,omitempty"`
	ConnIDs  []string        `json:"conn_ids,omitempty"`
	UserIDs  []int           `json:"user_ids,omitempty"`
	Excluded []string        `json:"excluded,omitempty"`
	Method   string          `json:"method"`
	Payload  json.RawMessage `json:"payload"`
}

const (
	opConnections = "connections"
	opGroups      = "groups"
	opGroupExcept = "group_except"
	opUsers       = "users"
)

func newEnvelope(op string, method string, payload any) (envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, fmt.Errorf("encode %s payload: %w", method, err)
	}
	return envelope{Op: op, Method: method, Payload: raw}, nil
}

func (e envelope) frame() ([]byte, error) {
	return json.Marshal(Frame{Method: e.Method, Data: e.Payload})
}
