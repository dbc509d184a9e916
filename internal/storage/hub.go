package storage

import (
	"context"
	"fmt"
	"sync"
)

type subscriber struct {
	ch chan []Account
}

// hub fans account snapshots out to every subscriber of an owner.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*subscriber]struct{})}
}

// Subscribe opens a live query over ownerID's accounts. The current
// snapshot is available on the channel immediately and a fresh one is
// delivered after every write for that owner. Only the newest pending
// snapshot is kept. The returned func ends the subscription and closes
// the channel.
func (s *Store) Subscribe(ctx context.Context, ownerID string) (<-chan []Account, func(), error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()

	snapshot, err := s.ListAccounts(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("initial snapshot: %w", err)
	}
	sub := &subscriber{ch: make(chan []Account, 1)}
	if s.hub.subs[ownerID] == nil {
		s.hub.subs[ownerID] = make(map[*subscriber]struct{})
	}
	s.hub.subs[ownerID][sub] = struct{}{}
	sub.offer(snapshot)

	var once sync.Once
	cancel := func() {
		once.Do(func() { s.hub.remove(ownerID, sub) })
	}
	return sub.ch, cancel, nil
}

// publish reloads ownerID's accounts and hands the snapshot to each
// subscriber. A failed reload is logged and reported to the observer. Holding the hub lock across the read keeps snapshots in
// write order.
func (s *Store) publish(ctx context.Context, ownerID string) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	subs := s.hub.subs[ownerID]
	if len(subs) == 0 {
		return
	}
	snapshot, err := s.ListAccounts(ctx, ownerID)
	if err != nil {
		s.log.Error().Err(err).Str("owner", ownerID).Msg("reload snapshot failed")
		s.observe("publish", err)
		return
	}
	for sub := range subs {
		sub.offer(snapshot)
	}
}

func (sub *subscriber) offer(snapshot []Account) {
	select {
	case sub.ch <- snapshot:
		return
	default:
	}
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- snapshot
}

func (h *hub) remove(ownerID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.subs[ownerID]; ok {
		if _, ok := subs[sub]; !ok {
			return
		}
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.subs, ownerID)
		}
		close(sub.ch)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for owner, subs := range h.subs {
		for sub := range subs {
			close(sub.ch)
		}
		delete(h.subs, owner)
	}
}
