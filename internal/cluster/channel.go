package cluster

import (
	"context"
	"errors"
)

// NodeRef names one worker node in the cluster.
type NodeRef string

// ErrUnreachable is returned by Ping and Invoke when the target node
// cannot be reached.
var ErrUnreachable = errors.New("node unreachable")

// ErrUnknownFunction is returned by Invoke when the target node does not
// export the requested function.
var ErrUnknownFunction = errors.New("unknown remote function")

// Handler serves one remotely invokable function on a node.
type Handler func(ctx context.Context, args any) (any, error)

// Channel is the remote execution contract. Nodes share no memory; every
// cross-node interaction goes through Invoke or the state store. Both
// calls must complete within a bounded time so one dead node cannot
// stall the rest of the cluster.
type Channel interface {
	Invoke(ctx context.Context, node NodeRef, fn string, args any) (any, error)
	Ping(ctx context.Context, node NodeRef) error
}

// Registrar is implemented by transports that let a node export
// functions; hosts use it to publish their island handlers.
type Registrar interface {
	Register(node NodeRef, fn string, handler Handler)
}
