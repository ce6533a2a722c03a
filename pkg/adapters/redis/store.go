package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/oklog/ulid/v2"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.PersistenceStore using Redis.
//
// Variables live in a hash, tags in a set and the pending input in a JSON
// string that may expire. Orders are JSON strings indexed by a list.
type Store struct {
	client     backend.UniversalClient
	prefix     string
	pendingTTL time.Duration
}

type Option func(*Store)

// WithPendingTTL expires pending inputs after ttl. Zero keeps them forever.
func WithPendingTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.pendingTTL = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "storeflow:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client returns the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() backend.UniversalClient {
	return s.client
}

func (s *Store) varsKey(userID string) string  { return s.prefix + "vars:" + userID }
func (s *Store) tagsKey(userID string) string  { return s.prefix + "tags:" + userID }
func (s *Store) stateKey(userID string) string { return s.prefix + "state:" + userID }
func (s *Store) orderKey(id string) string     { return s.prefix + "order:" + id }
func (s *Store) ordersKey() string             { return s.prefix + "orders" }

func (s *Store) Variables(ctx context.Context, userID string) (map[string]string, error) {
	vars, err := s.client.HGetAll(ctx, s.varsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read variables: %w", err)
	}
	if vars == nil {
		vars = make(map[string]string)
	}
	return vars, nil
}

func (s *Store) SetVariable(ctx context.Context, userID, key, value string) error {
	if err := s.client.HSet(ctx, s.varsKey(userID), key, value).Err(); err != nil {
		return fmt.Errorf("failed to set variable: %w", err)
	}
	return nil
}

func (s *Store) DeleteVariable(ctx context.Context, userID, key string) error {
	if err := s.client.HDel(ctx, s.varsKey(userID), key).Err(); err != nil {
		return fmt.Errorf("failed to delete variable: %w", err)
	}
	return nil
}

func (s *Store) AddTag(ctx context.Context, userID, tag string) error {
	if err := s.client.SAdd(ctx, s.tagsKey(userID), tag).Err(); err != nil {
		return fmt.Errorf("failed to add tag: %w", err)
	}
	return nil
}

func (s *Store) RemoveTag(ctx context.Context, userID, tag string) error {
	if err := s.client.SRem(ctx, s.tagsKey(userID), tag).Err(); err != nil {
		return fmt.Errorf("failed to remove tag: %w", err)
	}
	return nil
}

func (s *Store) Tags(ctx context.Context, userID string) ([]string, error) {
	tags, err := s.client.SMembers(ctx, s.tagsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}
	sort.Strings(tags)
	return tags, nil
}

func (s *Store) LoadState(ctx context.Context, userID string) (*domain.ConversationState, error) {
	val, err := s.client.Get(ctx, s.stateKey(userID)).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get state from redis: %w", err)
	}

	var state domain.ConversationState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

func (s *Store) SaveState(ctx context.Context, state *domain.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := s.client.Set(ctx, s.stateKey(state.UserID), data, s.pendingTTL).Err(); err != nil {
		return fmt.Errorf("failed to save state to redis: %w", err)
	}
	return nil
}

func (s *Store) ClearState(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}

func (s *Store) SaveOrder(ctx context.Context, order domain.Order) (string, error) {
	order.ID = ulid.Make().String()
	data, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.orderKey(order.ID), data, 0)
	pipe.RPush(ctx, s.ordersKey(), order.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to save order to redis: %w", err)
	}
	return order.ID, nil
}

// Order loads a saved order by id.
func (s *Store) Order(ctx context.Context, id string) (*domain.Order, error) {
	val, err := s.client.Get(ctx, s.orderKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	var order domain.Order
	if err := json.Unmarshal([]byte(val), &order); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &order, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
