package notify

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	events  []Event
	sendErr error
	closed  bool
}

func (c *recordingClient) Send(e Event) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, e)
	return nil
}

func (c *recordingClient) Close() error {
	c.closed = true
	return nil
}

func testRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegistry_BroadcastReachesAllClients(t *testing.T) {
	r := testRegistry()
	a := &recordingClient{}
	b := &recordingClient{}
	r.Add(a)
	r.Add(b)

	r.Broadcast(Event{Kind: EventImplantCheckin, Data: "implant-1"})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, EventImplantCheckin, a.events[0].Kind)
}

func TestRegistry_RemovedClientGetsNothing(t *testing.T) {
	r := testRegistry()
	a := &recordingClient{}
	b := &recordingClient{}
	idA := r.Add(a)
	r.Add(b)

	r.Remove(idA)
	assert.True(t, a.closed)

	r.Broadcast(Event{Kind: EventTaskCreated})
	assert.Empty(t, a.events)
	assert.Len(t, b.events, 1)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_RemoveUnknownID(t *testing.T) {
	r := testRegistry()
	r.Remove("no-such-connection")
	assert.Zero(t, r.Len())
}

func TestRegistry_FailingClientIsDropped(t *testing.T) {
	r := testRegistry()
	bad := &recordingClient{sendErr: errors.New("broken pipe")}
	good := &recordingClient{}
	r.Add(bad)
	r.Add(good)

	r.Broadcast(Event{Kind: EventImplantInactive})

	assert.Equal(t, 1, r.Len())
	assert.True(t, bad.closed)
	assert.Len(t, good.events, 1)

	// The dropped client is not retried on the next broadcast.
	r.Broadcast(Event{Kind: EventImplantInactive})
	assert.Len(t, good.events, 2)
	assert.Empty(t, bad.events)
}
