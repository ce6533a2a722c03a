package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/storeflow/pkg/domain"
)

func (s *Store) Version(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM runtime_version WHERE id = 1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read runtime version: %w", err)
	}
	return v, nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `UPDATE runtime_version SET version = version + 1 WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to bump runtime version: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// readOptions returns the options of a consistent read transaction. SQLite
// transactions already read from one snapshot.
func (s *Store) readOptions() *sql.TxOptions {
	if s.dialect == Postgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// ListEnabledNodes returns every enabled node with the actions of ACTION nodes
// filled in. Nodes and actions are read in one transaction, so a concurrent
// edit never pairs an old node body with new actions.
func (s *Store) ListEnabledNodes(ctx context.Context) ([]domain.Node, error) {
	tx, err := s.db.BeginTx(ctx, s.readOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	nodes, err := s.listNodes(ctx, tx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		act, ok := n.(*domain.ActionNode)
		if !ok {
			continue
		}
		if act.Actions, err = s.listActions(ctx, tx, act.NodeCode); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit read transaction: %w", err)
	}
	return nodes, nil
}

func (s *Store) listNodes(ctx context.Context, q querier) ([]domain.Node, error) {
	rows, err := q.QueryContext(ctx, s.rebind(`SELECT code, node_type, body FROM nodes WHERE enabled = ? ORDER BY code`), true)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.Node
	for rows.Next() {
		var code, typ, body string
		if err := rows.Scan(&code, &typ, &body); err != nil {
			return nil, fmt.Errorf("failed to scan node row: %w", err)
		}
		n, err := domain.NewNode(domain.NodeType(typ))
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", code, err)
		}
		if err := json.Unmarshal([]byte(body), n); err != nil {
			return nil, fmt.Errorf("failed to decode node %s: %w", code, err)
		}
		domain.SetCode(n, code)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate node rows: %w", err)
	}
	return nodes, nil
}

func (s *Store) ListActions(ctx context.Context, nodeCode string) ([]domain.NodeAction, error) {
	return s.listActions(ctx, s.db, nodeCode)
}

func (s *Store) listActions(ctx context.Context, q querier, nodeCode string) ([]domain.NodeAction, error) {
	rows, err := q.QueryContext(ctx, s.rebind(`
		SELECT id, kind, payload, sort_order, enabled FROM node_actions
		WHERE node_code = ? AND enabled = ?
		ORDER BY sort_order, id`), nodeCode, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.NodeAction
	for rows.Next() {
		var a domain.NodeAction
		var payload string
		if err := rows.Scan(&a.ID, &a.Kind, &payload, &a.SortOrder, &a.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan action row: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload of action %d: %w", a.ID, err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (s *Store) ListEnabledRules(ctx context.Context, trigger domain.TriggerKind) ([]domain.AutomationRule, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, name, conditions, actions FROM automation_rules
		WHERE trigger_kind = ? AND enabled = ?
		ORDER BY created_seq, id`), string(trigger), true)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.AutomationRule
	for rows.Next() {
		r := domain.AutomationRule{Trigger: trigger, Enabled: true}
		var conds, actions string
		if err := rows.Scan(&r.ID, &r.Name, &conds, &actions); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		if err := json.Unmarshal([]byte(conds), &r.Conditions); err != nil {
			return nil, fmt.Errorf("failed to decode conditions of rule %s: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(actions), &r.Actions); err != nil {
			return nil, fmt.Errorf("failed to decode actions of rule %s: %w", r.ID, err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *Store) ListEnabledPresets(ctx context.Context) ([]domain.ButtonPreset, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, name, scope, buttons FROM button_presets WHERE enabled = ? ORDER BY id`), true)
	if err != nil {
		return nil, fmt.Errorf("failed to query presets: %w", err)
	}
	defer rows.Close()

	var presets []domain.ButtonPreset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *p)
	}
	return presets, rows.Err()
}

func (s *Store) GetPreset(ctx context.Context, id string) (*domain.ButtonPreset, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, scope, buttons FROM button_presets WHERE id = ? AND enabled = ?`), id, true)
	p, err := scanPreset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPresetNotFound
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (*domain.ButtonPreset, error) {
	p := domain.ButtonPreset{Enabled: true}
	var buttons string
	if err := row.Scan(&p.ID, &p.Name, &p.Scope, &buttons); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan preset row: %w", err)
	}
	if err := json.Unmarshal([]byte(buttons), &p.Buttons); err != nil {
		return nil, fmt.Errorf("failed to decode buttons of preset %s: %w", p.ID, err)
	}
	return &p, nil
}

// PutNode inserts or replaces a node. The actions of an ACTION node replace
// the stored ones; their ids are their positions.
func (s *Store) PutNode(ctx context.Context, node domain.Node, enabled bool) error {
	var actions []domain.NodeAction
	stored := node
	if act, ok := node.(*domain.ActionNode); ok {
		actions = act.Actions
		trimmed := *act
		trimmed.Actions = nil
		stored = &trimmed
	}
	body, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode node %s: %w", node.Code(), err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		err := s.exec(ctx, tx, `
			INSERT INTO nodes (code, node_type, enabled, body) VALUES (?, ?, ?, ?)
			ON CONFLICT (code) DO UPDATE SET node_type = excluded.node_type, enabled = excluded.enabled, body = excluded.body`,
			node.Code(), string(domain.TypeOf(node)), enabled, string(body))
		if err != nil {
			return fmt.Errorf("failed to save node %s: %w", node.Code(), err)
		}
		if err := s.exec(ctx, tx, `DELETE FROM node_actions WHERE node_code = ?`, node.Code()); err != nil {
			return fmt.Errorf("failed to clear actions of %s: %w", node.Code(), err)
		}
		for i, a := range actions {
			payload, err := json.Marshal(a.Payload)
			if err != nil {
				return fmt.Errorf("failed to encode action payload: %w", err)
			}
			if a.Payload == nil {
				payload = []byte("{}")
			}
			err = s.exec(ctx, tx, `
				INSERT INTO node_actions (node_code, id, kind, payload, sort_order, enabled) VALUES (?, ?, ?, ?, ?, ?)`,
				node.Code(), int64(i+1), string(a.Kind), string(payload), a.SortOrder, a.Enabled)
			if err != nil {
				return fmt.Errorf("failed to save action of %s: %w", node.Code(), err)
			}
		}
		return bumpVersion(ctx, tx)
	})
}

// SetNodeEnabled toggles a node without touching its definition.
func (s *Store) SetNodeEnabled(ctx context.Context, code string, enabled bool) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, s.rebind(`UPDATE nodes SET enabled = ? WHERE code = ?`), enabled, code)
		if err != nil {
			return fmt.Errorf("failed to toggle node %s: %w", code, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return domain.ErrNodeNotFound
		}
		return bumpVersion(ctx, tx)
	})
}

func (s *Store) DeleteNode(ctx context.Context, code string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.exec(ctx, tx, `DELETE FROM node_actions WHERE node_code = ?`, code); err != nil {
			return fmt.Errorf("failed to delete actions of %s: %w", code, err)
		}
		if err := s.exec(ctx, tx, `DELETE FROM nodes WHERE code = ?`, code); err != nil {
			return fmt.Errorf("failed to delete node %s: %w", code, err)
		}
		return bumpVersion(ctx, tx)
	})
}

// PutRule inserts a rule or replaces the rule with the same id, keeping its position.
func (s *Store) PutRule(ctx context.Context, rule domain.AutomationRule) error {
	conds, err := json.Marshal(nonNil(rule.Conditions))
	if err != nil {
		return fmt.Errorf("failed to encode conditions: %w", err)
	}
	actions, err := json.Marshal(nonNil(rule.Actions))
	if err != nil {
		return fmt.Errorf("failed to encode actions: %w", err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		err := s.exec(ctx, tx, `
			INSERT INTO automation_rules (id, name, trigger_kind, enabled, conditions, actions, created_seq)
			VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(created_seq), 0) + 1 FROM automation_rules))
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, trigger_kind = excluded.trigger_kind,
				enabled = excluded.enabled, conditions = excluded.conditions, actions = excluded.actions`,
			rule.ID, rule.Name, string(rule.Trigger), rule.Enabled, string(conds), string(actions))
		if err != nil {
			return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
		}
		return bumpVersion(ctx, tx)
	})
}

func (s *Store) PutPreset(ctx context.Context, preset domain.ButtonPreset) error {
	buttons, err := json.Marshal(nonNil(preset.Buttons))
	if err != nil {
		return fmt.Errorf("failed to encode buttons: %w", err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		err := s.exec(ctx, tx, `
			INSERT INTO button_presets (id, name, scope, enabled, buttons) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET name = excluded.name, scope = excluded.scope,
				enabled = excluded.enabled, buttons = excluded.buttons`,
			preset.ID, preset.Name, string(preset.Scope), preset.Enabled, string(buttons))
		if err != nil {
			return fmt.Errorf("failed to save preset %s: %w", preset.ID, err)
		}
		return bumpVersion(ctx, tx)
	})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
