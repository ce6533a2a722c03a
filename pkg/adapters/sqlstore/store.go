package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/oklog/ulid/v2"
)

func (s *Store) Variables(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT key, value FROM user_variables WHERE user_id = ?`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variables: %w", err)
	}
	defer rows.Close()

	vars := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan variable row: %w", err)
		}
		vars[k] = v
	}
	return vars, rows.Err()
}

func (s *Store) SetVariable(ctx context.Context, userID, key, value string) error {
	err := s.exec(ctx, s.db, `
		INSERT INTO user_variables (user_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value`, userID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set variable %s: %w", key, err)
	}
	return nil
}

func (s *Store) DeleteVariable(ctx context.Context, userID, key string) error {
	if err := s.exec(ctx, s.db, `DELETE FROM user_variables WHERE user_id = ? AND key = ?`, userID, key); err != nil {
		return fmt.Errorf("failed to delete variable %s: %w", key, err)
	}
	return nil
}

func (s *Store) AddTag(ctx context.Context, userID, tag string) error {
	err := s.exec(ctx, s.db, `
		INSERT INTO user_tags (user_id, tag) VALUES (?, ?) ON CONFLICT (user_id, tag) DO NOTHING`, userID, tag)
	if err != nil {
		return fmt.Errorf("failed to add tag %s: %w", tag, err)
	}
	return nil
}

func (s *Store) RemoveTag(ctx context.Context, userID, tag string) error {
	if err := s.exec(ctx, s.db, `DELETE FROM user_tags WHERE user_id = ? AND tag = ?`, userID, tag); err != nil {
		return fmt.Errorf("failed to remove tag %s: %w", tag, err)
	}
	return nil
}

func (s *Store) Tags(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT tag FROM user_tags WHERE user_id = ? ORDER BY tag`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (s *Store) LoadState(ctx context.Context, userID string) (*domain.ConversationState, error) {
	st := domain.ConversationState{UserID: userID}
	var updated string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT node_code, value_kind, storage_key, success_target, cancel_target, updated_at
		FROM conversation_states WHERE user_id = ?`), userID).
		Scan(&st.NodeCode, &st.ValueKind, &st.StorageKey, &st.SuccessTarget, &st.CancelTarget, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	if st.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("failed to parse state timestamp: %w", err)
	}
	return &st, nil
}

func (s *Store) SaveState(ctx context.Context, st *domain.ConversationState) error {
	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	err := s.exec(ctx, s.db, `
		INSERT INTO conversation_states (user_id, node_code, value_kind, storage_key, success_target, cancel_target, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET node_code = excluded.node_code, value_kind = excluded.value_kind,
			storage_key = excluded.storage_key, success_target = excluded.success_target,
			cancel_target = excluded.cancel_target, updated_at = excluded.updated_at`,
		st.UserID, st.NodeCode, string(st.ValueKind), st.StorageKey, st.SuccessTarget, st.CancelTarget,
		updated.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

func (s *Store) ClearState(ctx context.Context, userID string) error {
	if err := s.exec(ctx, s.db, `DELETE FROM conversation_states WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear state: %w", err)
	}
	return nil
}

func (s *Store) SaveOrder(ctx context.Context, order domain.Order) (string, error) {
	id := ulid.Make().String()
	fields, err := json.Marshal(order.Fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode order fields: %w", err)
	}
	items, err := json.Marshal(nonNil(order.Items))
	if err != nil {
		return "", fmt.Errorf("failed to encode order items: %w", err)
	}
	created := order.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	err = s.exec(ctx, s.db, `
		INSERT INTO orders (id, user_id, fields, items, currency, total, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, order.UserID, string(fields), string(items), order.Currency, order.Total, created.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("failed to save order: %w", err)
	}
	return id, nil
}

// Order loads a saved order by id.
func (s *Store) Order(ctx context.Context, id string) (*domain.Order, error) {
	o := domain.Order{ID: id}
	var fields, items, created string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT user_id, fields, items, currency, total, created_at FROM orders WHERE id = ?`), id).
		Scan(&o.UserID, &fields, &items, &o.Currency, &o.Total, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(fields), &o.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode order fields: %w", err)
	}
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if o.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("failed to parse order timestamp: %w", err)
	}
	return &o, nil
}
