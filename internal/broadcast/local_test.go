package broadcast

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureConn struct {
	id     string
	full   bool
	frames [][]byte
}

func (c *captureConn) ID() string { return c.id }

func (c *captureConn) Enqueue(payload []byte) bool {
	if c.full {
		return false
	}
	c.frames = append(c.frames, payload)
	return true
}

func (c *captureConn) lastFrame(t *testing.T) Frame {
	t.Helper()
	require.NotEmpty(t, c.frames)
	var frame Frame
	require.NoError(t, json.Unmarshal(c.frames[len(c.frames)-1], &frame))
	return frame
}

type staticUserConns struct {
	byUser map[int][]Connection
}

func (s *staticUserConns) ConnectionsOf(userID int) []Connection {
	return s.byUser[userID]
}

func newTestLocal(users *staticUserConns) *LocalBroadcaster {
	if users == nil {
		users = &staticUserConns{byUser: map[int][]Connection{}}
	}
	return NewLocalBroadcaster(users)
}

func TestSendToGroupReachesSubscribers(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(nil)

	member := &captureConn{id: "member"}
	outsider := &captureConn{id: "outsider"}
	require.NoError(t, b.Subscribe(ctx, 10, member))
	b.Attach(outsider)

	require.NoError(t, b.SendToGroup(ctx, 10, MethodReceiveMessage, map[string]string{"text": "hi"}))

	frame := member.lastFrame(t)
	assert.Equal(t, MethodReceiveMessage, frame.Method)
	assert.JSONEq(t, `{"text":"hi"}`, string(frame.Data))
	assert.Empty(t, outsider.frames)
}

func TestSendToGroupExceptSkipsExcluded(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(nil)

	sender := &captureConn{id: "sender"}
	peer := &captureConn{id: "peer"}
	require.NoError(t, b.Subscribe(ctx, 10, sender))
	require.NoError(t, b.Subscribe(ctx, 10, peer))

	require.NoError(t, b.SendToGroupExcept(ctx, 10, []string{sender.ID()}, MethodReceiveMessage, "payload"))

	assert.Empty(t, sender.frames)
	assert.Len(t, peer.frames, 1)
}

func TestSendToConnectionTargetsSingleConn(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(nil)

	target := &captureConn{id: "target"}
	other := &captureConn{id: "other"}
	b.Attach(target)
	b.Attach(other)

	require.NoError(t, b.SendToConnection(ctx, target.ID(), MethodReceiveError, "bad payload"))

	frame := target.lastFrame(t)
	assert.Equal(t, MethodReceiveError, frame.Method)
	assert.JSONEq(t, `"bad payload"`, string(frame.Data))
	assert.Empty(t, other.frames)
}

func TestSendToUnknownConnectionIsNoop(t *testing.T) {
	b := newTestLocal(nil)
	assert.NoError(t, b.SendToConnection(context.Background(), "ghost", MethodReceiveError, "x"))
}

func TestSendToUserUsesRegistry(t *testing.T) {
	ctx := context.Background()
	first := &captureConn{id: "u5-a"}
	second := &captureConn{id: "u5-b"}
	users := &staticUserConns{byUser: map[int][]Connection{5: {first, second}}}
	b := newTestLocal(users)

	require.NoError(t, b.SendToUser(ctx, 5, MethodReceiveMessage, "direct"))

	assert.Len(t, first.frames, 1)
	assert.Len(t, second.frames, 1)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(nil)

	conn := &captureConn{id: "c"}
	require.NoError(t, b.Subscribe(ctx, 3, conn))
	require.NoError(t, b.Unsubscribe(ctx, 3, conn))

	require.NoError(t, b.SendToGroup(ctx, 3, MethodReceiveMessage, "gone"))
	assert.Empty(t, conn.frames)
}

func TestDetachRemovesFromAllGroups(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(nil)

	conn := &captureConn{id: "c"}
	require.NoError(t, b.Subscribe(ctx, 1, conn))
	require.NoError(t, b.Subscribe(ctx, 2, conn))

	b.Detach(conn)

	require.NoError(t, b.SendToGroups(ctx, []int{1, 2}, MethodReceiveMessage, "gone"))
	require.NoError(t, b.SendToConnection(ctx, conn.ID(), MethodReceiveMessage, "gone"))
	assert.Empty(t, conn.frames)
}

func TestSlowConnectionIsSkippedNotFatal(t *testing.T) {
	ctx := context.Background()
	b := newTestLocal(nil)

	slow := &captureConn{id: "slow", full: true}
	healthy := &captureConn{id: "healthy"}
	require.NoError(t, b.Subscribe(ctx, 4, slow))
	require.NoError(t, b.Subscribe(ctx, 4, healthy))

	require.NoError(t, b.SendToGroup(ctx, 4, MethodReceiveMessage, "hello"))

	assert.Empty(t, slow.frames)
	assert.Len(t, healthy.frames, 1)
}
