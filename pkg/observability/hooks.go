package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/storeflow/pkg/domain"
)

// LogHooks logs every lifecycle event. Routine events go to Debug, failures
// to Warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("node_enter", "user_id", e.UserID, "node", e.NodeCode, "kind", e.NodeKind)
		},
		OnInputRejected: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Debug("input_rejected", "user_id", e.UserID, "node", e.NodeCode)
		},
		OnConfigFallback: func(ctx context.Context, e *domain.NodeEvent) {
			logger.Warn("config_fallback", "user_id", e.UserID, "node", e.NodeCode)
		},
		OnActionRun: func(ctx context.Context, e *domain.ActionEvent) {
			logger.Debug("action_run", "user_id", e.UserID, "node", e.NodeCode, "rule_id", e.RuleID, "action", e.Action)
		},
		OnRuleFired: func(ctx context.Context, e *domain.ActionEvent) {
			logger.Info("rule_fired", "user_id", e.UserID, "rule_id", e.RuleID)
		},
		OnDeliveryFailed: func(ctx context.Context, e *domain.DeliveryEvent) {
			logger.Warn("delivery_failed", "user_id", e.UserID, "op", e.Op, "err", e.Err)
		},
		OnCacheReloaded: func(ctx context.Context, e *domain.CacheEvent) {
			logger.Info("cache_reloaded", "version", e.Version, "nodes", e.Nodes)
		},
	}
}

// Combine returns hooks that call each of the given hooks in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range all {
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnInputRejected = chain(out.OnInputRejected, h.OnInputRejected)
		out.OnConfigFallback = chain(out.OnConfigFallback, h.OnConfigFallback)
		out.OnActionRun = chain(out.OnActionRun, h.OnActionRun)
		out.OnRuleFired = chain(out.OnRuleFired, h.OnRuleFired)
		out.OnDeliveryFailed = chain(out.OnDeliveryFailed, h.OnDeliveryFailed)
		out.OnCacheReloaded = chain(out.OnCacheReloaded, h.OnCacheReloaded)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
