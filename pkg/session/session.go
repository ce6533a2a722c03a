package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/ports"
)

// Session is the per-turn view of one user's persisted state.
type Session struct {
	UserID string

	store ports.PersistenceStore

	vars          map[string]string
	pending       *domain.ConversationState
	pendingLoaded bool
}

func newSession(userID string, store ports.PersistenceStore) *Session {
	return &Session{UserID: userID, store: store}
}

// Vars returns a copy of the user's variables.
func (s *Session) Vars(ctx context.Context) (map[string]string, error) {
	if err := s.loadVars(ctx); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out, nil
}

// Get returns one variable and whether it is set.
func (s *Session) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.loadVars(ctx); err != nil {
		return "", false, err
	}
	v, ok := s.vars[key]
	return v, ok, nil
}

// Set writes a variable through to the store.
func (s *Session) Set(ctx context.Context, key, value string) error {
	if err := s.store.SetVariable(ctx, s.UserID, key, value); err != nil {
		return fmt.Errorf("set variable %s: %w", key, err)
	}
	if s.vars != nil {
		s.vars[key] = value
	}
	return nil
}

// Delete removes a variable.
func (s *Session) Delete(ctx context.Context, key string) error {
	if err := s.store.DeleteVariable(ctx, s.UserID, key); err != nil {
		return fmt.Errorf("delete variable %s: %w", key, err)
	}
	if s.vars != nil {
		delete(s.vars, key)
	}
	return nil
}

func (s *Session) AddTag(ctx context.Context, tag string) error {
	if err := s.store.AddTag(ctx, s.UserID, tag); err != nil {
		return fmt.Errorf("add tag %s: %w", tag, err)
	}
	return nil
}

func (s *Session) RemoveTag(ctx context.Context, tag string) error {
	if err := s.store.RemoveTag(ctx, s.UserID, tag); err != nil {
		return fmt.Errorf("remove tag %s: %w", tag, err)
	}
	return nil
}

func (s *Session) Tags(ctx context.Context) ([]string, error) {
	return s.store.Tags(ctx, s.UserID)
}

// Pending returns the awaited input, or nil when the user is idle.
func (s *Session) Pending(ctx context.Context) (*domain.ConversationState, error) {
	if s.pendingLoaded {
		return s.pending, nil
	}
	st, err := s.store.LoadState(ctx, s.UserID)
	switch {
	case errors.Is(err, domain.ErrStateNotFound):
		st = nil
	case err != nil:
		return nil, fmt.Errorf("load conversation state: %w", err)
	}
	s.pending, s.pendingLoaded = st, true
	return st, nil
}

// Await replaces the pending input.
func (s *Session) Await(ctx context.Context, st *domain.ConversationState) error {
	st.UserID = s.UserID
	if err := s.store.SaveState(ctx, st); err != nil {
		return fmt.Errorf("save conversation state: %w", err)
	}
	s.pending, s.pendingLoaded = st, true
	return nil
}

// ClearPending makes the user idle.
func (s *Session) ClearPending(ctx context.Context) error {
	if s.pendingLoaded && s.pending == nil {
		return nil
	}
	if err := s.store.ClearState(ctx, s.UserID); err != nil {
		return fmt.Errorf("clear conversation state: %w", err)
	}
	s.pending, s.pendingLoaded = nil, true
	return nil
}

func (s *Session) loadVars(ctx context.Context) error {
	if s.vars != nil {
		return nil
	}
	vars, err := s.store.Variables(ctx, s.UserID)
	if err != nil {
		return fmt.Errorf("load variables: %w", err)
	}
	if vars == nil {
		vars = make(map[string]string)
	}
	s.vars = vars
	return nil
}
