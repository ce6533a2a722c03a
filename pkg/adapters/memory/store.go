package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/oklog/ulid/v2"
)

// Store implements ports.PersistenceStore in memory.
// Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	vars   map[string]map[string]string
	tags   map[string]map[string]struct{}
	states map[string]domain.ConversationState
	orders []domain.Order
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		vars:   make(map[string]map[string]string),
		tags:   make(map[string]map[string]struct{}),
		states: make(map[string]domain.ConversationState),
	}
}

func (s *Store) Variables(ctx context.Context, userID string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.vars[userID]))
	for k, v := range s.vars[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetVariable(ctx context.Context, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.vars[userID]
	if !ok {
		m = make(map[string]string)
		s.vars[userID] = m
	}
	m[key] = value
	return nil
}

func (s *Store) DeleteVariable(ctx context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vars[userID], key)
	return nil
}

func (s *Store) AddTag(ctx context.Context, userID, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.tags[userID]
	if !ok {
		m = make(map[string]struct{})
		s.tags[userID] = m
	}
	m[tag] = struct{}{}
	return nil
}

func (s *Store) RemoveTag(ctx context.Context, userID, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tags[userID], tag)
	return nil
}

func (s *Store) Tags(ctx context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.tags[userID]))
	for t := range s.tags[userID] {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) LoadState(ctx context.Context, userID string) (*domain.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[userID]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return &st, nil
}

func (s *Store) SaveState(ctx context.Context, state *domain.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.UserID] = *state
	return nil
}

func (s *Store) ClearState(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}

func (s *Store) SaveOrder(ctx context.Context, order domain.Order) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.ID = ulid.Make().String()
	s.orders = append(s.orders, order)
	return order.ID, nil
}

// Orders returns every saved order in insertion order.
func (s *Store) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}
