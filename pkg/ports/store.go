package ports

import (
	"context"

	"github.com/aretw0/storeflow/pkg/domain"
)

// PersistenceStore holds everything the engine remembers about a user.
type PersistenceStore interface {
	// Variables returns every variable of the user. Never nil.
	Variables(ctx context.Context, userID string) (map[string]string, error)
	// SetVariable inserts or replaces one variable.
	SetVariable(ctx context.Context, userID, key, value string) error
	// DeleteVariable removes one variable. Missing keys are not an error.
	DeleteVariable(ctx context.Context, userID, key string) error

	// AddTag is idempotent.
	AddTag(ctx context.Context, userID, tag string) error
	// RemoveTag is idempotent.
	RemoveTag(ctx context.Context, userID, tag string) error
	// Tags returns the user's tags sorted.
	Tags(ctx context.Context, userID string) ([]string, error)

	// LoadState returns the pending input, or domain.ErrStateNotFound.
	LoadState(ctx context.Context, userID string) (*domain.ConversationState, error)
	// SaveState replaces the pending input.
	SaveState(ctx context.Context, state *domain.ConversationState) error
	// ClearState removes the pending input. Missing state is not an error.
	ClearState(ctx context.Context, userID string) error

	// SaveOrder persists an order and returns its assigned id.
	SaveOrder(ctx context.Context, order domain.Order) (string, error)
}
