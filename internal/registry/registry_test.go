package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id string
}

func (c *fakeConn) ID() string                { return c.id }
func (c *fakeConn) Enqueue(payload []byte) bool { return true }

func TestRegisterIdempotent(t *testing.T) {
	reg := NewRegistry()
	conn := &fakeConn{id: "c1"}

	reg.Register(1, conn)
	reg.Register(1, conn)

	require.Len(t, reg.ConnectionsOf(1), 1)
	assert.Equal(t, 1, reg.Users())
}

func TestUnregisterLastHandleRemovesUser(t *testing.T) {
	reg := NewRegistry()
	first := &fakeConn{id: "c1"}
	second := &fakeConn{id: "c2"}

	reg.Register(1, first)
	reg.Register(1, second)

	reg.Unregister(1, first.ID())
	conns := reg.ConnectionsOf(1)
	require.Len(t, conns, 1)
	assert.Equal(t, "c2", conns[0].ID())

	reg.Unregister(1, second.ID())
	assert.Empty(t, reg.ConnectionsOf(1))
	assert.Zero(t, reg.Users())
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.Unregister(99, "missing")

	reg.Register(1, &fakeConn{id: "c1"})
	reg.Unregister(1, "missing")
	assert.Len(t, reg.ConnectionsOf(1), 1)
}

func TestUsersAreIndependent(t *testing.T) {
	reg := NewRegistry()
	reg.Register(1, &fakeConn{id: "a"})
	reg.Register(2, &fakeConn{id: "b"})

	reg.Unregister(1, "a")

	assert.Empty(t, reg.ConnectionsOf(1))
	assert.Len(t, reg.ConnectionsOf(2), 1)
}

func TestConcurrentRegisterUnregisterSameUser(t *testing.T) {
	reg := NewRegistry()

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			conn := &fakeConn{id: fmt.Sprintf("conn-%d", i)}
			reg.Register(7, conn)
			if i%2 == 0 {
				reg.Unregister(7, conn.ID())
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, reg.ConnectionsOf(7), workers/2)

	for i := 1; i < workers; i += 2 {
		reg.Unregister(7, fmt.Sprintf("conn-%d", i))
	}
	assert.Zero(t, reg.Users())
}
