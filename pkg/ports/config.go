package ports

import (
	"context"

	"github.com/aretw0/storeflow/pkg/domain"
)

// ConfigurationStore is the read side of the flow configuration.
//
// Version is bumped by every admin mutation. Readers compare it against the
// version of their snapshot and reload when it differs.
type ConfigurationStore interface {
	// Version returns the current configuration version.
	Version(ctx context.Context) (int64, error)

	// ListEnabledNodes returns every enabled node. Actions of ACTION nodes
	// may be left empty and fetched with ListActions.
	ListEnabledNodes(ctx context.Context) ([]domain.Node, error)

	// ListActions returns the enabled actions of an ACTION node.
	ListActions(ctx context.Context, nodeCode string) ([]domain.NodeAction, error)

	// ListEnabledRules returns the enabled rules for a trigger in definition order.
	ListEnabledRules(ctx context.Context, trigger domain.TriggerKind) ([]domain.AutomationRule, error)

	// ListEnabledPresets returns every enabled button preset.
	ListEnabledPresets(ctx context.Context) ([]domain.ButtonPreset, error)

	// GetPreset returns one preset, or domain.ErrPresetNotFound.
	// Disabled presets are reported as not found.
	GetPreset(ctx context.Context, id string) (*domain.ButtonPreset, error)
}

// ConfigurationAdmin is the write side used by loaders and admin tooling.
// Every mutation bumps the version.
type ConfigurationAdmin interface {
	PutNode(ctx context.Context, node domain.Node, enabled bool) error
	SetNodeEnabled(ctx context.Context, code string, enabled bool) error
	DeleteNode(ctx context.Context, code string) error
	PutRule(ctx context.Context, rule domain.AutomationRule) error
	PutPreset(ctx context.Context, preset domain.ButtonPreset) error
}
