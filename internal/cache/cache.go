// Package cache keeps an in-memory snapshot of the enabled flow graph.
//
// The snapshot is keyed by the configuration version. Every lookup reads the
// store version first and rebuilds the snapshot when it differs; there is no
// TTL. Readers always see either the old or the new snapshot in full.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// Snapshot is an immutable view of the enabled nodes at one version.
type Snapshot struct {
	Version int64
	Nodes   map[string]domain.Node
}

// Node returns the node with the given code, or domain.ErrNodeNotFound.
func (s *Snapshot) Node(code string) (domain.Node, error) {
	n, ok := s.Nodes[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, code)
	}
	return n, nil
}

// Cache serves node lookups from the latest snapshot.
type Cache struct {
	store  ports.ConfigurationStore
	snap   atomic.Pointer[Snapshot]
	group  singleflight.Group
	logger *slog.Logger
	hooks  domain.LifecycleHooks
}

// Option configures the Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithHooks sets lifecycle hooks. Only OnCacheReloaded is used.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(c *Cache) {
		c.hooks = hooks
	}
}

// New creates an empty cache. The first lookup always builds a snapshot.
func New(store ports.ConfigurationStore, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the enabled node with the given code.
func (c *Cache) Load(ctx context.Context, code string) (domain.Node, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Node(code)
}

// Snapshot returns a snapshot matching the current store version.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	version, err := c.store.Version(ctx)
	cur := c.snap.Load()
	if err != nil {
		if cur != nil {
			c.logger.Warn("Config version check failed, serving cached snapshot",
				"version", cur.Version, "err", err)
			return cur, nil
		}
		return nil, fmt.Errorf("read config version: %w", err)
	}
	if cur != nil && cur.Version == version {
		return cur, nil
	}

	// Builds are shared per version only: a lookup that saw a newer version
	// never waits on an older build.
	v, err, _ := c.group.Do(strconv.FormatInt(version, 10), func() (any, error) {
		if cur := c.snap.Load(); cur != nil && cur.Version == version {
			return cur, nil
		}
		return c.build(ctx, version)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the current snapshot so the next lookup rebuilds it.
func (c *Cache) Invalidate() {
	c.snap.Store(nil)
}

// Version returns the version of the current snapshot, or -1 when empty.
func (c *Cache) Version() int64 {
	if s := c.snap.Load(); s != nil {
		return s.Version
	}
	return -1
}

func (c *Cache) build(ctx context.Context, version int64) (*Snapshot, error) {
	nodes, err := c.store.ListEnabledNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled nodes: %w", err)
	}

	byCode := make(map[string]domain.Node, len(nodes))
	for _, n := range nodes {
		if n == nil || n.Code() == "" {
			continue
		}
		if act, ok := n.(*domain.ActionNode); ok {
			resolved, err := c.resolveActions(ctx, act)
			if err != nil {
				return nil, err
			}
			n = resolved
		}
		if _, dup := byCode[n.Code()]; dup {
			c.logger.Warn("Duplicate node code, keeping first", "node", n.Code())
			continue
		}
		byCode[n.Code()] = n
	}

	snap := &Snapshot{Version: version, Nodes: byCode}
	if !c.publish(snap) {
		c.logger.Debug("Discarding outdated snapshot", "version", version)
		return snap, nil
	}

	c.logger.Debug("Config snapshot rebuilt", "version", version, "nodes", len(byCode))
	if c.hooks.OnCacheReloaded != nil {
		c.hooks.OnCacheReloaded(ctx, &domain.CacheEvent{
			EventBase: domain.NewEventBase(domain.EventCacheReloaded, ""),
			Version:   version,
			Nodes:     len(byCode),
		})
	}
	return snap, nil
}

// publish installs snap unless a newer snapshot is already in place.
func (c *Cache) publish(snap *Snapshot) bool {
	for {
		cur := c.snap.Load()
		if cur != nil && cur.Version > snap.Version {
			return false
		}
		if c.snap.CompareAndSwap(cur, snap) {
			return true
		}
	}
}

// resolveActions returns a copy of the node holding only enabled actions in sort order.
func (c *Cache) resolveActions(ctx context.Context, n *domain.ActionNode) (*domain.ActionNode, error) {
	actions := n.Actions
	if len(actions) == 0 {
		var err error
		actions, err = c.store.ListActions(ctx, n.NodeCode)
		if err != nil && !errors.Is(err, domain.ErrNodeNotFound) {
			return nil, fmt.Errorf("list actions of %s: %w", n.NodeCode, err)
		}
	}

	enabled := make([]domain.NodeAction, 0, len(actions))
	for _, a := range actions {
		if a.Enabled {
			enabled = append(enabled, a)
		}
	}
	domain.SortActions(enabled)

	cp := *n
	cp.Actions = enabled
	return &cp, nil
}
