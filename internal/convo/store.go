package convo

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrConversationNotFound is returned when a conversation ID is unknown
// or its state has expired.
var ErrConversationNotFound = errors.New("conversation not found")

// DefaultTTL is how long an idle conversation survives before eviction.
const DefaultTTL = 30 * time.Minute

// Store persists conversation state between turns.
type Store interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	conv      *Conversation
	expiresAt time.Time
}

// MemoryStore keeps conversations in process memory with TTL eviction.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates an in-memory store. A janitor goroutine evicts
// expired conversations until Close is called.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) janitor() {
	interval := s.ttl / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryStore) evictExpired() {
	now := s.now()
	s.mu.Lock()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
}

// Get returns the conversation or ErrConversationNotFound if missing or
// expired.
func (s *MemoryStore) Get(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || s.now().After(e.expiresAt) {
		return nil, ErrConversationNotFound
	}
	cp := *e.conv
	return &cp, nil
}

// Save stores the conversation and refreshes its TTL.
func (s *MemoryStore) Save(_ context.Context, c *Conversation) error {
	if c == nil || c.ID == "" {
		return errors.New("convo: conversation id required")
	}
	cp := *c
	s.mu.Lock()
	s.entries[c.ID] = memoryEntry{conv: &cp, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes the conversation if present.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Close stops the janitor goroutine.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}
