package session

import (
	"sync"

	"github.com/Jasani8259/Final-Capstone/internal/model"
)

// Listener receives the new identity after every change; nil means the store
// was cleared.
type Listener func(identity *model.Identity)

// Store holds the identity of one client session. It is not shared between
// clients.
type Store struct {
	mu       sync.RWMutex
	identity *model.Identity

	notifyMu  sync.Mutex
	listeners map[int]Listener
	order     []int
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

func (s *Store) Set(identity model.Identity) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	current := identity
	s.identity = &current
	s.mu.Unlock()

	notified := identity
	s.notify(&notified)
}

func (s *Store) Get() (model.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

func (s *Store) Clear() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	wasSet := s.identity != nil
	s.identity = nil
	s.mu.Unlock()

	if wasSet {
		s.notify(nil)
	}
}

// Subscribe registers fn and returns a function that removes it. Listeners
// run synchronously, in subscription order, one change at a time.
func (s *Store) Subscribe(fn Listener) func() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.order = append(s.order, id)
	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.listeners, id)
		for i, existing := range s.order {
			if existing == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

func (s *Store) notify(identity *model.Identity) {
	for _, id := range s.order {
		fn := s.listeners[id]
		if identity == nil {
			fn(nil)
			continue
		}
		copied := *identity
		fn(&copied)
	}
}
