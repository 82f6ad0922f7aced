package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeRoundTrip(t *testing.T) {
	ch := NewLocalChannel()
	ch.Register("node-0", "echo", func(_ context.Context, args any) (any, error) {
		return args, nil
	})

	reply, err := ch.Invoke(context.Background(), "node-0", "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
}

func TestInvokeUnknownNode(t *testing.T) {
	ch := NewLocalChannel()
	_, err := ch.Invoke(context.Background(), "ghost", "echo", nil)
	require.ErrorIs(t, err, ErrUnreachable)
}

func TestInvokeUnknownFunction(t *testing.T) {
	ch := NewLocalChannel()
	ch.AddNode("node-0")
	_, err := ch.Invoke(context.Background(), "node-0", "missing", nil)
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestSetReachableTogglesNode(t *testing.T) {
	ch := NewLocalChannel()
	ch.Register("node-0", "echo", func(_ context.Context, args any) (any, error) {
		return args, nil
	})

	require.NoError(t, ch.Ping(context.Background(), "node-0"))

	ch.SetReachable("node-0", false)
	require.ErrorIs(t, ch.Ping(context.Background(), "node-0"), ErrUnreachable)
	_, err := ch.Invoke(context.Background(), "node-0", "echo", nil)
	require.ErrorIs(t, err, ErrUnreachable)

	ch.SetReachable("node-0", true)
	require.NoError(t, ch.Ping(context.Background(), "node-0"))
}

func TestInvokeTimesOutOnStuckHandler(t *testing.T) {
	ch := NewLocalChannel().WithTimeout(50 * time.Millisecond)
	block := make(chan struct{})
	defer close(block)
	ch.Register("node-0", "stuck", func(_ context.Context, _ any) (any, error) {
		<-block
		return nil, nil
	})

	start := time.Now()
	_, err := ch.Invoke(context.Background(), "node-0", "stuck", nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNodesSorted(t *testing.T) {
	ch := NewLocalChannel()
	ch.AddNode("node-b")
	ch.AddNode("node-a")
	ch.AddNode("node-a") // idempotent
	assert.Equal(t, []NodeRef{"node-a", "node-b"}, ch.Nodes())
}
