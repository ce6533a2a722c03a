// Package runtime interprets the conversation graph for one user at a time.
package runtime

import (
	"context"
	"log/slog"

	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/ports"
	"github.com/aretw0/storeflow/pkg/session"
)

// DefaultMaxHops bounds the CONDITION/ACTION chain followed in one turn.
const DefaultMaxHops = 32

// NodeSource resolves enabled nodes by code.
type NodeSource interface {
	Load(ctx context.Context, code string) (domain.Node, error)
}

// Texts are the fixed strings the interpreter sends on its own.
type Texts struct {
	ConfigError     string
	NothingToCancel string
	CancelButton    string
	ShareContact    string
	ShareLocation   string
}

// DefaultTexts returns the built-in English texts.
func DefaultTexts() Texts {
	return Texts{
		ConfigError:     "Sorry, this step is not available right now. Please try again later.",
		NothingToCancel: "Nothing to cancel.",
		CancelButton:    "Cancel",
		ShareContact:    "Please share your contact.",
		ShareLocation:   "Please share your location.",
	}
}

// Engine is the flow interpreter.
type Engine struct {
	nodes     NodeSource
	sessions  *session.Manager
	transport ports.Transport
	members   ports.MembershipChecker

	startNode string
	maxHops   int
	texts     Texts
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Engine.
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

// WithStartNode designates the home node used by home presses, GOTO_MAIN and
// the configuration fallback.
func WithStartNode(code string) Option {
	return func(e *Engine) {
		e.startNode = code
	}
}

// WithMembershipChecker enables subscription checks.
func WithMembershipChecker(m ports.MembershipChecker) Option {
	return func(e *Engine) {
		e.members = m
	}
}

// WithMaxHops overrides DefaultMaxHops.
func WithMaxHops(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxHops = n
		}
	}
}

// WithTexts replaces the built-in texts. Empty fields keep their default.
func WithTexts(t Texts) Option {
	return func(e *Engine) {
		d := &e.texts
		if t.ConfigError != "" {
			d.ConfigError = t.ConfigError
		}
		if t.NothingToCancel != "" {
			d.NothingToCancel = t.NothingToCancel
		}
		if t.CancelButton != "" {
			d.CancelButton = t.CancelButton
		}
		if t.ShareContact != "" {
			d.ShareContact = t.ShareContact
		}
		if t.ShareLocation != "" {
			d.ShareLocation = t.ShareLocation
		}
	}
}

// NewEngine creates a new interpreter.
func NewEngine(nodes NodeSource, sessions *session.Manager, transport ports.Transport, opts ...Option) *Engine {
	e := &Engine{
		nodes:     nodes,
		sessions:  sessions,
		transport: transport,
		maxHops:   DefaultMaxHops,
		texts:     DefaultTexts(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartNode returns the designated home node.
func (e *Engine) StartNode() string {
	return e.startNode
}

// EnterNode moves the user to the node with the given code.
func (e *Engine) EnterNode(ctx context.Context, userID, code string) error {
	return e.sessions.Do(ctx, userID, func(ctx context.Context, s *session.Session) error {
		t := e.newTurn(s)
		defer t.flush(ctx)
		return t.enter(ctx, code)
	})
}

// Start enters the designated start node.
func (e *Engine) Start(ctx context.Context, userID string) error {
	return e.HandlePress(ctx, userID, domain.Press{Intent: domain.IntentHome})
}

// HandleMessage routes an inbound message to the pending input, if any.
// It reports false when the user was idle and the message was not consumed.
func (e *Engine) HandleMessage(ctx context.Context, userID string, msg domain.Message) (bool, error) {
	handled := false
	err := e.sessions.Do(ctx, userID, func(ctx context.Context, s *session.Session) error {
		t := e.newTurn(s)
		defer t.flush(ctx)

		var err error
		handled, err = t.message(ctx, msg)
		return err
	})
	return handled, err
}

// HandlePress applies a decoded button press.
func (e *Engine) HandlePress(ctx context.Context, userID string, p domain.Press) error {
	return e.sessions.Do(ctx, userID, func(ctx context.Context, s *session.Session) error {
		t := e.newTurn(s)
		defer t.flush(ctx)

		switch p.Intent {
		case domain.IntentOpen, domain.IntentAlias:
			return t.enter(ctx, p.NodeCode)
		case domain.IntentHome:
			if e.startNode == "" {
				t.configError(ctx, "", "no start node configured", nil)
				return nil
			}
			return t.enter(ctx, e.startNode)
		case domain.IntentCancel:
			return t.cancel(ctx, p.NodeCode)
		}
		e.logger.Warn("Ignoring press with unknown intent", "user_id", userID, "intent", int(p.Intent))
		return nil
	})
}
