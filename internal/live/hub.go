// Package live re-runs queries when the tables they read change.
//
// A Hub receives change notifications (from committed local transactions and from
// the file watcher) and fans them out to subscriptions. Each subscription pairs a
// query.Query with a result channel; re-runs of the same query key are serialised
// so overlapping executions cannot deliver results out of order.
package live

import (
	"sync"
)

type Hub struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]*subscription
	keyLock map[string]*keyLock
}

type subscription struct {
	tables map[string]bool
	signal chan struct{}
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewHub() *Hub {
	return &Hub{
		subs:    map[int]*subscription{},
		keyLock: map[string]*keyLock{},
	}
}

// Notify marks tables as changed. Subscriptions reading any of them re-run once,
// however many notifications arrive before they get to it.
func (h *Hub) Notify(tables ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if !sub.watches(tables) {
			continue
		}
		select {
		case sub.signal <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (s *subscription) watches(tables []string) bool {
	if len(s.tables) == 0 {
		return true
	}
	for _, t := range tables {
		if s.tables[t] {
			return true
		}
	}
	return false
}

func (h *Hub) register(tables []string) (int, *subscription) {
	sub := &subscription{
		tables: make(map[string]bool, len(tables)),
		signal: make(chan struct{}, 1),
	}
	for _, t := range tables {
		sub.tables[t] = true
	}
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = sub
	h.mu.Unlock()
	return id, sub
}

func (h *Hub) unregister(id int) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// lock serialises executions of one query key across subscriptions.
func (h *Hub) lock(key string) func() {
	h.mu.Lock()
	kl := h.keyLock[key]
	if kl == nil {
		kl = &keyLock{}
		h.keyLock[key] = kl
	}
	kl.refs++
	h.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		h.mu.Lock()
		kl.refs--
		if kl.refs == 0 {
			delete(h.keyLock, key)
		}
		h.mu.Unlock()
	}
}

// ChangeSource announces committed table changes (*store.DB).
type ChangeSource interface {
	OnChange(fn func(tables []string))
}

// Attach forwards src's change announcements to h.
func (h *Hub) Attach(src ChangeSource) {
	src.OnChange(func(tables []string) { h.Notify(tables...) })
}
