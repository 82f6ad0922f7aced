package cluster

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

const defaultInvokeTimeout = 10 * time.Second

// LocalChannel is an in-process Channel: every node is a named handler
// registry inside one process. It backs single-process clusters, the
// bardoctl demo, and the failure-injection tests; a networked transport
// substitutes for it by implementing the same interface.
type LocalChannel struct {
	timeout time.Duration

	mu       sync.RWMutex
	handlers map[NodeRef]map[string]Handler
	down     map[NodeRef]bool
}

func NewLocalChannel() *LocalChannel {
	return &LocalChannel{
		timeout:  defaultInvokeTimeout,
		handlers: make(map[NodeRef]map[string]Handler),
		down:     make(map[NodeRef]bool),
	}
}

// WithTimeout sets the per-invocation deadline.
func (c *LocalChannel) WithTimeout(timeout time.Duration) *LocalChannel {
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// AddNode registers an empty node. Idempotent.
func (c *LocalChannel) AddNode(node NodeRef) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.handlers[node]; !ok {
		c.handlers[node] = make(map[string]Handler)
	}
}

// Register exports fn on node.
func (c *LocalChannel) Register(node NodeRef, fn string, handler Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.handlers[node]; !ok {
		c.handlers[node] = make(map[string]Handler)
	}
	c.handlers[node][fn] = handler
}

// SetReachable marks a node up or down; Invoke and Ping against a down
// node fail with ErrUnreachable until it is marked up again.
func (c *LocalChannel) SetReachable(node NodeRef, reachable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.down[node] = !reachable
}

func (c *LocalChannel) Nodes() []NodeRef {
	c.mu.RLock()
	defer c.mu.RUnlock()

	nodes := make([]NodeRef, 0, len(c.handlers))
	for node := range c.handlers {
		nodes = append(nodes, node)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

func (c *LocalChannel) Ping(_ context.Context, node NodeRef) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.handlers[node]; !ok {
		return fmt.Errorf("ping %s: %w", node, ErrUnreachable)
	}
	if c.down[node] {
		return fmt.Errorf("ping %s: %w", node, ErrUnreachable)
	}
	return nil
}

func (c *LocalChannel) Invoke(ctx context.Context, node NodeRef, fn string, args any) (any, error) {
	c.mu.RLock()
	registry, ok := c.handlers[node]
	down := c.down[node]
	c.mu.RUnlock()

	if !ok || down {
		return nil, fmt.Errorf("invoke %s on %s: %w", fn, node, ErrUnreachable)
	}
	handler, ok := registry[fn]
	if !ok {
		return nil, fmt.Errorf("invoke %s on %s: %w", fn, node, ErrUnknownFunction)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type reply struct {
		value any
		err   error
	}
	done := make(chan reply, 1)
	go func() {
		value, err := handler(ctx, args)
		done <- reply{value: value, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("invoke %s on %s: %w", fn, node, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("invoke %s on %s: %w", fn, node, res.err)
		}
		return res.value, nil
	}
}
