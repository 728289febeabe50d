// Package broadcast carries content-free "activity happened" ticks between
// sibling sessions (browser tabs, storefront processes) that share one login.
package broadcast

import (
	"context"
	"sync"
)

// Channel is one participant's view of the tick bus. A participant never
// receives its own ticks. Delivery is best-effort and coalesced: several ticks
// that arrive before the subscriber reads collapse into one.
type Channel interface {
	Tick(ctx context.Context) error
	Subscribe() (ticks <-chan struct{}, cancel func())
}

// subscribers is the fan-out shared by the hub endpoints and the Redis channel.
type subscribers struct {
	mu    sync.Mutex
	next  int
	chans map[int]chan struct{}
}

func (s *subscribers) add() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chans == nil {
		s.chans = make(map[int]chan struct{})
	}
	id := s.next
	s.next++
	ch := make(chan struct{}, 1)
	s.chans[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.chans, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.chans {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Hub is an in-process bus. Each Join returns a separate endpoint.
type Hub struct {
	mu        sync.Mutex
	endpoints map[*Endpoint]struct{}
}

func NewHub() *Hub {
	return &Hub{endpoints: make(map[*Endpoint]struct{})}
}

// Join adds a participant to the hub.
func (h *Hub) Join() *Endpoint {
	e := &Endpoint{hub: h}
	h.mu.Lock()
	h.endpoints[e] = struct{}{}
	h.mu.Unlock()
	return e
}

// Endpoint is a Hub participant; it implements Channel.
type Endpoint struct {
	hub  *Hub
	subs subscribers
}

func (e *Endpoint) Tick(_ context.Context) error {
	e.hub.mu.Lock()
	peers := make([]*Endpoint, 0, len(e.hub.endpoints))
	for p := range e.hub.endpoints {
		if p != e {
			peers = append(peers, p)
		}
	}
	e.hub.mu.Unlock()

	for _, p := range peers {
		p.subs.notify()
	}
	return nil
}

func (e *Endpoint) Subscribe() (<-chan struct{}, func()) {
	return e.subs.add()
}

// Leave detaches the endpoint; it no longer receives ticks.
func (e *Endpoint) Leave() {
	e.hub.mu.Lock()
	delete(e.hub.endpoints, e)
	e.hub.mu.Unlock()
}
