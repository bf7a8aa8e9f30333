package store

import (
	"context"
	"sort"
	"sync"
)

// PubSub relays messages between server processes. Subscriptions end when
// their context is done.
type PubSub interface {
	Publish(ctx context.Context, channel string, message []byte) error
	Subscribe(ctx context.Context, channel string, handler func(message []byte)) error
}

// MemoryPubSub provides an in-memory implementation of the PubSub interface
// for single-process deployments. Handlers run on the publisher's goroutine,
// in subscription order.
type MemoryPubSub struct {
	subscribers map[string]map[int]func(message []byte)
	next        int
	mu          sync.RWMutex
}

// NewMemoryPubSub creates a new in-memory PubSub system.
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{
		subscribers: make(map[string]map[int]func(message []byte)),
	}
}

// Publish sends a message to all subscribers of a channel.
func (p *MemoryPubSub) Publish(_ context.Context, channel string, message []byte) error {
	p.mu.RLock()
	subs := p.subscribers[channel]
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	handlers := make([]func([]byte), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		handlers = append(handlers, subs[id])
	}
	p.mu.RUnlock()

	for _, handler := range handlers {
		handler(message)
	}
	return nil
}

// Subscribe registers handler until ctx is done.
func (p *MemoryPubSub) Subscribe(ctx context.Context, channel string, handler func(message []byte)) error {
	p.mu.Lock()
	if p.subscribers[channel] == nil {
		p.subscribers[channel] = make(map[int]func([]byte))
	}
	id := p.next
	p.next++
	p.subscribers[channel][id] = handler
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.subscribers[channel], id)
		p.mu.Unlock()
	}()
	return nil
}
