package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventNodeEnter      EventType = "node_enter"
	EventActionRun      EventType = "action_run"
	EventInputRejected  EventType = "input_rejected"
	EventRuleFired      EventType = "rule_fired"
	EventDeliveryFailed EventType = "delivery_failed"
	EventConfigFallback EventType = "config_fallback"
	EventCacheReloaded  EventType = "cache_reloaded"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
}

// NodeEvent represents entry into a node, a fallback or a rejected input.
type NodeEvent struct {
	EventBase
	NodeCode string   `json:"node_code"`
	NodeKind NodeKind `json:"node_kind,omitempty"`
}

// ActionEvent represents one executed node action or rule action.
type ActionEvent struct {
	EventBase
	NodeCode string `json:"node_code,omitempty"`
	RuleID   string `json:"rule_id,omitempty"`
	Action   string `json:"action"`
}

// DeliveryEvent represents a failed transport call.
type DeliveryEvent struct {
	EventBase
	Op  string `json:"op"`
	Err error  `json:"-"`
}

// CacheEvent represents a configuration snapshot swap.
type CacheEvent struct {
	EventBase
	Version int64 `json:"version"`
	Nodes   int   `json:"nodes"`
}

// LifecycleHooks defines callbacks for engine observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnNodeEnter      func(context.Context, *NodeEvent)
	OnInputRejected  func(context.Context, *NodeEvent)
	OnConfigFallback func(context.Context, *NodeEvent)
	OnActionRun      func(context.Context, *ActionEvent)
	OnRuleFired      func(context.Context, *ActionEvent)
	OnDeliveryFailed func(context.Context, *DeliveryEvent)
	OnCacheReloaded  func(context.Context, *CacheEvent)
}

// NewEventBase fills the common fields of an event.
func NewEventBase(t EventType, userID string) EventBase {
	return EventBase{Timestamp: time.Now(), Type: t, UserID: userID}
}
