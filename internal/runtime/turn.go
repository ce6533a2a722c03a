package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/input"
	"github.com/aretw0/storeflow/pkg/session"
)

// outbound is a transport call deferred until the turn's state is committed.
type outbound struct {
	op   string
	send func(ctx context.Context) error
}

// turn is one serialized interaction of one user.
type turn struct {
	e        *Engine
	s        *session.Session
	out      []outbound
	hops     int
	fellBack bool
}

func (e *Engine) newTurn(s *session.Session) *turn {
	return &turn{e: e, s: s}
}

func (t *turn) queue(op string, send func(ctx context.Context) error) {
	t.out = append(t.out, outbound{op: op, send: send})
}

// flush delivers queued messages. Failures are logged and never undo state.
func (t *turn) flush(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for _, o := range t.out {
		err := o.send(ctx)
		if err == nil {
			continue
		}
		terr := &domain.TransportError{UserID: t.s.UserID, Op: o.op, Err: err}
		t.e.logger.Error("Delivery failed", "user_id", t.s.UserID, "op", o.op, "err", terr)
		if t.e.hooks.OnDeliveryFailed != nil {
			t.e.hooks.OnDeliveryFailed(ctx, &domain.DeliveryEvent{
				EventBase: domain.NewEventBase(domain.EventDeliveryFailed, t.s.UserID),
				Op:        o.op,
				Err:       terr,
			})
		}
	}
	t.out = nil
}

func (t *turn) sendText(text string, rows [][]domain.Button) {
	userID := t.s.UserID
	t.queue("send_message", func(ctx context.Context) error {
		return t.e.transport.SendMessage(ctx, userID, text, rows)
	})
}

// enter follows the chain of nodes starting at code until a node waits for
// the user or the chain ends.
func (t *turn) enter(ctx context.Context, code string) error {
	for code != "" {
		if t.hops >= t.e.maxHops {
			code = t.fallback(ctx, &domain.ConfigurationError{
				NodeCode: code,
				Reason:   fmt.Sprintf("more than %d hops in one turn", t.e.maxHops),
			})
			continue
		}
		t.hops++

		node, err := t.e.nodes.Load(ctx, code)
		if err != nil {
			if errors.Is(err, domain.ErrNodeNotFound) {
				code = t.fallback(ctx, &domain.ConfigurationError{NodeCode: code, Reason: "node missing or disabled", Err: err})
				continue
			}
			return fmt.Errorf("load node %s: %w", code, err)
		}

		t.e.logger.Debug("Entering node", "user_id", t.s.UserID, "node", code, "kind", node.Kind())
		if t.e.hooks.OnNodeEnter != nil {
			t.e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
				EventBase: domain.NewEventBase(domain.EventNodeEnter, t.s.UserID),
				NodeCode:  code,
				NodeKind:  node.Kind(),
			})
		}

		next, err := t.step(ctx, node)
		var cerr *domain.ConfigurationError
		if errors.As(err, &cerr) {
			code = t.fallback(ctx, cerr)
			continue
		}
		if err != nil {
			return err
		}
		code = next
	}
	return nil
}

// step runs one node and returns the code to continue to, or "" to stop.
func (t *turn) step(ctx context.Context, node domain.Node) (string, error) {
	switch n := node.(type) {
	case *domain.MessageNode:
		if err := t.s.ClearPending(ctx); err != nil {
			return "", err
		}
		return "", t.deliver(ctx, n.Base)
	case *domain.InputNode:
		return "", t.await(ctx, n)
	case *domain.ConditionNode:
		if err := t.s.ClearPending(ctx); err != nil {
			return "", err
		}
		return t.branch(ctx, n)
	case *domain.SubscriptionNode:
		if err := t.s.ClearPending(ctx); err != nil {
			return "", err
		}
		return t.checkSubscription(ctx, n)
	case *domain.ActionNode:
		if err := t.s.ClearPending(ctx); err != nil {
			return "", err
		}
		return t.runActions(ctx, n)
	}
	return "", &domain.ConfigurationError{NodeCode: node.Code(), Reason: fmt.Sprintf("unsupported node type %T", node)}
}

// fallback applies the configuration error policy and returns the node to
// continue to. The start node is tried once per turn.
func (t *turn) fallback(ctx context.Context, cerr *domain.ConfigurationError) string {
	start := t.e.startNode
	if start != "" && !t.fellBack && cerr.NodeCode != start {
		t.fellBack = true
		t.hops = 0
		t.configEvent(ctx, cerr)
		t.e.logger.Warn("Configuration error, falling back to start node",
			"user_id", t.s.UserID, "node", cerr.NodeCode, "start", start, "err", cerr)
		return start
	}
	t.configError(ctx, cerr.NodeCode, cerr.Reason, cerr.Err)
	return ""
}

// configError reports a configuration problem to the user without a fallback.
func (t *turn) configError(ctx context.Context, code, reason string, cause error) {
	cerr := &domain.ConfigurationError{NodeCode: code, Reason: reason, Err: cause}
	t.configEvent(ctx, cerr)
	t.e.logger.Error("Configuration error", "user_id", t.s.UserID, "node", code, "err", cerr)
	t.sendText(t.e.texts.ConfigError, nil)
}

func (t *turn) configEvent(ctx context.Context, cerr *domain.ConfigurationError) {
	if t.e.hooks.OnConfigFallback != nil {
		t.e.hooks.OnConfigFallback(ctx, &domain.NodeEvent{
			EventBase: domain.NewEventBase(domain.EventConfigFallback, t.s.UserID),
			NodeCode:  cerr.NodeCode,
		})
	}
}

// message handles free input while awaiting, and the cancel keyword.
func (t *turn) message(ctx context.Context, msg domain.Message) (bool, error) {
	pending, err := t.s.Pending(ctx)
	if err != nil {
		return false, err
	}
	if pending == nil {
		if msg.Contact == nil && input.IsCancel(domain.ValueText, msg.Text) {
			t.sendText(t.e.texts.NothingToCancel, nil)
			return true, nil
		}
		return false, nil
	}

	if msg.Contact == nil && input.IsCancel(pending.ValueKind, msg.Text) {
		return true, t.cancel(ctx, "")
	}

	spec := t.inputSpec(ctx, pending)
	value, verr := input.Validate(spec, msg)
	if verr != nil {
		t.e.logger.Debug("Input rejected", "user_id", t.s.UserID, "node", pending.NodeCode, "err", verr)
		if t.e.hooks.OnInputRejected != nil {
			t.e.hooks.OnInputRejected(ctx, &domain.NodeEvent{
				EventBase: domain.NewEventBase(domain.EventInputRejected, t.s.UserID),
				NodeCode:  pending.NodeCode,
				NodeKind:  domain.KindInput,
			})
		}
		var rows [][]domain.Button
		if pending.CancelTarget != "" {
			rows = [][]domain.Button{{t.cancelButton(pending.NodeCode)}}
		}
		t.sendText(verr.Text, rows)
		return true, nil
	}

	if pending.StorageKey != "" {
		if err := t.s.Set(ctx, pending.StorageKey, value); err != nil {
			return true, err
		}
	}
	if err := t.s.ClearPending(ctx); err != nil {
		return true, err
	}
	return true, t.enter(ctx, pending.SuccessTarget)
}

// inputSpec returns the current definition of the pending node, or the
// expectations captured in the state when the node is gone.
func (t *turn) inputSpec(ctx context.Context, pending *domain.ConversationState) domain.InputSpec {
	spec := domain.InputSpec{Kind: pending.ValueKind, StorageKey: pending.StorageKey}
	node, err := t.e.nodes.Load(ctx, pending.NodeCode)
	if err != nil {
		return spec
	}
	if in, ok := node.(*domain.InputNode); ok && in.Input.Kind == pending.ValueKind {
		spec = in.Input
		spec.StorageKey = pending.StorageKey
	}
	return spec
}

// cancel resolves a cancel request. An empty code matches any pending input.
func (t *turn) cancel(ctx context.Context, code string) error {
	pending, err := t.s.Pending(ctx)
	if err != nil {
		return err
	}
	if pending == nil {
		t.sendText(t.e.texts.NothingToCancel, nil)
		return nil
	}
	if code != "" && code != pending.NodeCode {
		t.e.logger.Debug("Ignoring stale cancel press", "user_id", t.s.UserID, "node", code, "pending", pending.NodeCode)
		return nil
	}
	if err := t.s.ClearPending(ctx); err != nil {
		return err
	}
	if pending.CancelTarget == "" {
		t.sendText(t.e.texts.NothingToCancel, nil)
		return nil
	}
	return t.enter(ctx, pending.CancelTarget)
}
