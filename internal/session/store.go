package session

import (
	"container/list"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// Store keeps controllers by session id. Sessions idle for longer than the TTL
// expire, and the least recently used one is evicted once the store is full.
type Store struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
}

type entry struct {
	id        string
	ctrl      *Controller
	expiresAt time.Time
}

func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Store{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Create starts a session under a fresh random id.
func (s *Store) Create() (string, *Controller, error) {
	id, err := newID()
	if err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	return id, s.GetOrCreate(id), nil
}

// Get returns the controller for id and refreshes its idle deadline.
func (s *Store) Get(id string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrUnknownSession)
	}
	e := elem.Value.(*entry)
	if s.now().After(e.expiresAt) {
		s.remove(elem)
		return nil, fmt.Errorf("session %q expired: %w", id, ErrUnknownSession)
	}
	e.expiresAt = s.now().Add(s.ttl)
	s.lru.MoveToFront(elem)
	return e.ctrl, nil
}

// GetOrCreate returns the live controller for id, creating one if needed.
func (s *Store) GetOrCreate(id string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if elem, ok := s.items[id]; ok {
		e := elem.Value.(*entry)
		if !now.After(e.expiresAt) {
			e.expiresAt = now.Add(s.ttl)
			s.lru.MoveToFront(elem)
			return e.ctrl
		}
		s.remove(elem)
	}

	ctrl := NewController()
	ctrl.now = s.now
	s.items[id] = s.lru.PushFront(&entry{id: id, ctrl: ctrl, expiresAt: now.Add(s.ttl)})
	if s.lru.Len() > s.maxSize {
		if oldest := s.lru.Back(); oldest != nil {
			s.remove(oldest)
		}
	}
	return ctrl
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if elem, ok := s.items[id]; ok {
		s.remove(elem)
	}
}

// CleanExpired drops all expired sessions and returns how many were removed.
func (s *Store) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []*list.Element
	for elem := s.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry).expiresAt) {
			expired = append(expired, elem)
		}
	}
	for _, elem := range expired {
		s.remove(elem)
	}
	return len(expired)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// StartJanitor runs CleanExpired every interval until Stop is called.
// onClean, if set, receives the number of sessions removed by each pass.
func (s *Store) StartJanitor(interval time.Duration, onClean func(int)) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := s.CleanExpired(); n > 0 && onClean != nil {
					onClean(n)
				}
			case <-stop:
				return
			}
		}
	}()
}

// Stop ends the janitor goroutine, if running.
func (s *Store) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

func (s *Store) remove(elem *list.Element) {
	delete(s.items, elem.Value.(*entry).id)
	s.lru.Remove(elem)
}

func newID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
