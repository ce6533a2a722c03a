package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/aretw0/storeflow/pkg/domain"
)

type nodeEntry struct {
	node    domain.Node
	enabled bool
}

// ConfigStore implements ports.ConfigurationStore and ports.ConfigurationAdmin in memory.
// Every mutation bumps the version. Safe for concurrent use.
type ConfigStore struct {
	mu      sync.RWMutex
	version atomic.Int64
	nodes   map[string]nodeEntry
	rules   []domain.AutomationRule
	presets map[string]domain.ButtonPreset
}

// NewConfigStore creates an empty configuration at version 0.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		nodes:   make(map[string]nodeEntry),
		presets: make(map[string]domain.ButtonPreset),
	}
}

// NewFromNodes creates a configuration with the given nodes enabled.
func NewFromNodes(nodes ...domain.Node) *ConfigStore {
	s := NewConfigStore()
	for _, n := range nodes {
		s.nodes[n.Code()] = nodeEntry{node: n, enabled: true}
	}
	s.version.Add(1)
	return s
}

func (s *ConfigStore) Version(ctx context.Context) (int64, error) {
	return s.version.Load(), nil
}

func (s *ConfigStore) ListEnabledNodes(ctx context.Context) ([]domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.nodes))
	for code, e := range s.nodes {
		if e.enabled {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	out := make([]domain.Node, 0, len(codes))
	for _, code := range codes {
		out = append(out, s.nodes[code].node)
	}
	return out, nil
}

func (s *ConfigStore) ListActions(ctx context.Context, nodeCode string) ([]domain.NodeAction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.nodes[nodeCode]
	if !ok {
		return nil, domain.ErrNodeNotFound
	}
	act, ok := e.node.(*domain.ActionNode)
	if !ok {
		return nil, nil
	}
	out := make([]domain.NodeAction, 0, len(act.Actions))
	for _, a := range act.Actions {
		if a.Enabled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *ConfigStore) ListEnabledRules(ctx context.Context, trigger domain.TriggerKind) ([]domain.AutomationRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.AutomationRule
	for _, r := range s.rules {
		if r.Enabled && r.Trigger == trigger {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ConfigStore) ListEnabledPresets(ctx context.Context) ([]domain.ButtonPreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ButtonPreset, 0, len(s.presets))
	for _, p := range s.presets {
		if p.Enabled {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *ConfigStore) GetPreset(ctx context.Context, id string) (*domain.ButtonPreset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.presets[id]
	if !ok || !p.Enabled {
		return nil, domain.ErrPresetNotFound
	}
	return &p, nil
}

// PutNode inserts or replaces a node.
func (s *ConfigStore) PutNode(ctx context.Context, node domain.Node, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[node.Code()] = nodeEntry{node: node, enabled: enabled}
	s.version.Add(1)
	return nil
}

// SetNodeEnabled toggles a node without touching its definition.
func (s *ConfigStore) SetNodeEnabled(ctx context.Context, code string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.nodes[code]
	if !ok {
		return domain.ErrNodeNotFound
	}
	e.enabled = enabled
	s.nodes[code] = e
	s.version.Add(1)
	return nil
}

func (s *ConfigStore) DeleteNode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, code)
	s.version.Add(1)
	return nil
}

// PutRule inserts a rule or replaces the rule with the same id in place.
func (s *ConfigStore) PutRule(ctx context.Context, rule domain.AutomationRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rules {
		if s.rules[i].ID == rule.ID {
			s.rules[i] = rule
			s.version.Add(1)
			return nil
		}
	}
	s.rules = append(s.rules, rule)
	s.version.Add(1)
	return nil
}

func (s *ConfigStore) PutPreset(ctx context.Context, preset domain.ButtonPreset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[preset.ID] = preset
	s.version.Add(1)
	return nil
}
