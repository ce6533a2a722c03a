package storeflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/storeflow/internal/automation"
	"github.com/aretw0/storeflow/internal/cache"
	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/internal/runtime"
	"github.com/aretw0/storeflow/internal/validator"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/ports"
	"github.com/aretw0/storeflow/pkg/session"
)

// Texts are the fixed strings the interpreter sends on its own.
type Texts = runtime.Texts

// Report is the outcome of Validate.
type Report = validator.Report

// Engine is the high-level entry point of the library.
// It ties the configuration cache, the per-user session manager, the flow
// interpreter and the automation engine to one set of stores and one transport.
type Engine struct {
	config    ports.ConfigurationStore
	store     ports.PersistenceStore
	transport ports.Transport

	cache      *cache.Cache
	sessions   *session.Manager
	runtime    *runtime.Engine
	automation *automation.Engine

	startNode string
	members   ports.MembershipChecker
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	maxHops   int
	texts     Texts
	legacy    *domain.MessageTemplate
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithStartNode configures the home node (default: "MAIN").
func WithStartNode(code string) Option {
	return func(e *Engine) {
		e.startNode = code
	}
}

// WithMembershipChecker enables SUBSCRIPTION nodes.
func WithMembershipChecker(m ports.MembershipChecker) Option {
	return func(e *Engine) {
		e.members = m
	}
}

// WithLocker serializes each user's turns across replicas.
func WithLocker(locker ports.DistributedLocker, ttl time.Duration) Option {
	return func(e *Engine) {
		e.locker = locker
		e.lockTTL = ttl
	}
}

// WithMaxHops bounds the CONDITION/ACTION chain followed in one turn.
func WithMaxHops(n int) Option {
	return func(e *Engine) {
		e.maxHops = n
	}
}

// WithTexts overrides the built-in interpreter texts.
func WithTexts(t Texts) Option {
	return func(e *Engine) {
		e.texts = t
	}
}

// WithLegacyTemplate replaces the admin notification sent for orders no rule handled.
func WithLegacyTemplate(t domain.MessageTemplate) Option {
	return func(e *Engine) {
		e.legacy = &t
	}
}

// DefaultStartNode is the home node used when WithStartNode is not given.
const DefaultStartNode = "MAIN"

// New wires an Engine over the given stores and transport.
func New(config ports.ConfigurationStore, store ports.PersistenceStore, transport ports.Transport, opts ...Option) *Engine {
	e := &Engine{
		config:    config,
		store:     store,
		transport: transport,
		startNode: DefaultStartNode,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.cache = cache.New(config, cache.WithLogger(e.logger), cache.WithHooks(e.hooks))

	sessOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(e.locker))
		if e.lockTTL > 0 {
			sessOpts = append(sessOpts, session.WithLockTTL(e.lockTTL))
		}
	}
	e.sessions = session.NewManager(store, sessOpts...)

	rtOpts := []runtime.Option{
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithStartNode(e.startNode),
		runtime.WithMaxHops(e.maxHops),
		runtime.WithTexts(e.texts),
	}
	if e.members != nil {
		rtOpts = append(rtOpts, runtime.WithMembershipChecker(e.members))
	}
	e.runtime = runtime.NewEngine(e.cache, e.sessions, transport, rtOpts...)

	autoOpts := []automation.Option{
		automation.WithLogger(e.logger),
		automation.WithLifecycleHooks(e.hooks),
	}
	if e.legacy != nil {
		autoOpts = append(autoOpts, automation.WithLegacyTemplate(*e.legacy))
	}
	e.automation = automation.NewEngine(config, store, transport, autoOpts...)

	return e
}

// StartNode returns the configured home node.
func (e *Engine) StartNode() string {
	return e.startNode
}

// Start sends the user to the home node.
func (e *Engine) Start(ctx context.Context, userID string) error {
	return e.runtime.Start(ctx, userID)
}

// EnterNode moves the user to a node. An empty code means the home node.
func (e *Engine) EnterNode(ctx context.Context, userID, code string) error {
	if code == "" {
		return e.runtime.Start(ctx, userID)
	}
	return e.runtime.EnterNode(ctx, userID, code)
}

// HandleMessage feeds a text or contact message to the user's pending input.
// It reports false when nothing was waiting for it.
func (e *Engine) HandleMessage(ctx context.Context, userID string, msg domain.Message) (bool, error) {
	return e.runtime.HandleMessage(ctx, userID, msg)
}

// HandlePress applies a decoded button press.
func (e *Engine) HandlePress(ctx context.Context, userID string, p domain.Press) error {
	return e.runtime.HandlePress(ctx, userID, p)
}

// HandlePressData decodes a button payload produced by domain.EncodePress and applies it.
func (e *Engine) HandlePressData(ctx context.Context, userID, data string) error {
	p, err := domain.DecodePress(data)
	if err != nil {
		return fmt.Errorf("invalid press %q: %w", data, err)
	}
	return e.runtime.HandlePress(ctx, userID, p)
}

// Dispatch runs the rules of a trigger against an event. It reports whether
// any rule executed.
func (e *Engine) Dispatch(ctx context.Context, trigger domain.TriggerKind, ev domain.Event) (bool, error) {
	return e.automation.Dispatch(ctx, trigger, ev)
}

// NotifyOrder handles an order event and returns the saved order id, if any.
func (e *Engine) NotifyOrder(ctx context.Context, ev domain.Event) (string, error) {
	ev.Trigger = domain.TriggerOrderReceived
	return e.automation.NotifyOrder(ctx, ev)
}

// Validate checks the configuration for dangling references.
func (e *Engine) Validate(ctx context.Context) (*Report, error) {
	return validator.Validate(ctx, e.config, e.startNode)
}

// Reload drops the cached configuration so the next turn reads the store.
func (e *Engine) Reload() {
	e.cache.Invalidate()
}

// ConfigVersion returns the version of the cached configuration snapshot.
func (e *Engine) ConfigVersion() int64 {
	return e.cache.Version()
}
