// Package automation runs rule-driven reactions to business events.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/ports"
	"github.com/aretw0/storeflow/pkg/template"
)

// DefaultLegacyTemplate is the admin notification sent when no rule handles an order.
var DefaultLegacyTemplate = domain.MessageTemplate{
	Text:         "New order #{order_id}\nSource: {source}\nUser: {user_id}\nTotal: {total} {currency}",
	ShowItems:    true,
	ItemFields:   []domain.ItemField{domain.ItemTitle, domain.ItemQty, domain.ItemPrice, domain.ItemSum},
	ItemsHeading: template.DefaultItemsHeading,
}

// Engine matches events against enabled rules and executes their actions.
type Engine struct {
	config    ports.ConfigurationStore
	store     ports.PersistenceStore
	transport ports.Transport

	legacy domain.MessageTemplate
	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger.
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

// WithLegacyTemplate replaces DefaultLegacyTemplate.
func WithLegacyTemplate(t domain.MessageTemplate) Option {
	return func(e *Engine) {
		e.legacy = t
	}
}

// NewEngine creates a rule engine.
func NewEngine(config ports.ConfigurationStore, store ports.PersistenceStore, transport ports.Transport, opts ...Option) *Engine {
	e := &Engine{
		config:    config,
		store:     store,
		transport: transport,
		legacy:    DefaultLegacyTemplate,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// dispatchState is the context threaded through every action of one Dispatch call.
type dispatchState struct {
	ev      domain.Event
	values  map[string]string
	orderID string
	presets map[domain.Audience]*domain.ButtonPreset
}

func newDispatch(ev domain.Event) *dispatchState {
	values := make(map[string]string, len(ev.Fields)+4)
	for k, v := range ev.Fields {
		values[k] = v
	}
	if ev.UserID != "" {
		values[domain.FieldUserID] = ev.UserID
	}
	values[domain.FieldTotal] = template.Money(ev.Total(), "")
	values[domain.FieldCurrency] = ev.Currency
	values[domain.FieldItemsCount] = strconv.Itoa(len(ev.Items))
	return &dispatchState{ev: ev, values: values, presets: make(map[domain.Audience]*domain.ButtonPreset)}
}

func (d *dispatchState) rows(a domain.Audience) [][]domain.Button {
	if p := d.presets[a]; p != nil {
		return domain.Layout(p.Buttons)
	}
	return nil
}

// Dispatch runs every enabled rule of the trigger whose conditions match the
// event. It reports whether any rule executed. Storage failures abort the
// affected rule and are returned joined; everything else is logged.
func (e *Engine) Dispatch(ctx context.Context, trigger domain.TriggerKind, ev domain.Event) (bool, error) {
	executed, _, err := e.dispatch(ctx, trigger, ev)
	return executed, err
}

func (e *Engine) dispatch(ctx context.Context, trigger domain.TriggerKind, ev domain.Event) (bool, *dispatchState, error) {
	rules, err := e.config.ListEnabledRules(ctx, trigger)
	if err != nil {
		return false, nil, fmt.Errorf("list rules for %s: %w", trigger, err)
	}
	ev.Trigger = trigger
	d := newDispatch(ev)

	executed := false
	var errs []error
	for _, rule := range rules {
		if !rule.Enabled || !Matches(rule.Conditions, d.values) {
			continue
		}
		executed = true
		e.logger.Info("Rule fired", "rule_id", rule.ID, "trigger", trigger, "user_id", ev.UserID)
		if e.hooks.OnRuleFired != nil {
			e.hooks.OnRuleFired(ctx, &domain.ActionEvent{
				EventBase: domain.NewEventBase(domain.EventRuleFired, ev.UserID),
				RuleID:    rule.ID,
				Action:    string(trigger),
			})
		}
		if err := e.run(ctx, rule, d); err != nil {
			e.logger.Error("Rule aborted", "rule_id", rule.ID, "err", err)
			errs = append(errs, fmt.Errorf("rule %s: %w", rule.ID, err))
		}
	}
	return executed, d, errors.Join(errs...)
}

// Matches reports whether every condition equals the corresponding value,
// ignoring case and surrounding spaces. An empty list always matches.
func Matches(conds []domain.RuleCondition, values map[string]string) bool {
	for _, c := range conds {
		got := strings.TrimSpace(values[strings.TrimSpace(c.Key)])
		if !strings.EqualFold(got, strings.TrimSpace(c.Value)) {
			return false
		}
	}
	return true
}

func (e *Engine) run(ctx context.Context, rule domain.AutomationRule, d *dispatchState) error {
	for _, a := range rule.Actions {
		if err := e.runAction(ctx, rule, a, d); err != nil {
			return err
		}
		if e.hooks.OnActionRun != nil {
			e.hooks.OnActionRun(ctx, &domain.ActionEvent{
				EventBase: domain.NewEventBase(domain.EventActionRun, d.ev.UserID),
				RuleID:    rule.ID,
				Action:    string(a.Kind),
			})
		}
	}
	return nil
}

func (e *Engine) runAction(ctx context.Context, rule domain.AutomationRule, a domain.RuleAction, d *dispatchState) error {
	switch a.Kind {
	case domain.RuleSaveOrder:
		if d.orderID != "" {
			return nil
		}
		id, err := e.store.SaveOrder(ctx, domain.OrderFromEvent(d.ev))
		if err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		d.orderID = id
		d.values[domain.FieldOrderID] = id
		e.logger.Debug("Order saved", "rule_id", rule.ID, "order_id", id)
		return nil

	case domain.RuleAttachButtons:
		return e.attach(ctx, rule, a, d)

	case domain.RuleSendUserMessage:
		if d.ev.UserID == "" {
			e.logger.Warn("Skipping user message for event without user", "rule_id", rule.ID)
			return nil
		}
		text := template.Render(a.Template, d.values, d.ev.Items, d.ev.Currency)
		e.deliver(ctx, d.ev.UserID, "send_message", func(ctx context.Context) error {
			return e.transport.SendMessage(ctx, d.ev.UserID, text, d.rows(domain.AudienceUser))
		})
		return nil

	case domain.RuleSendAdminMessage:
		text := template.Render(a.Template, d.values, d.ev.Items, d.ev.Currency)
		e.deliver(ctx, "", "send_admin_message", func(ctx context.Context) error {
			return e.transport.SendAdminMessage(ctx, text, d.rows(domain.AudienceAdmin))
		})
		return nil
	}

	e.logger.Warn("Skipping unknown rule action", "rule_id", rule.ID, "action", a.Kind)
	return nil
}

// attach remembers a preset for the rest of the dispatch. Missing presets and
// scope mismatches skip the action.
func (e *Engine) attach(ctx context.Context, rule domain.AutomationRule, a domain.RuleAction, d *dispatchState) error {
	audience := a.Audience
	if audience == "" {
		audience = domain.AudienceUser
	}
	preset, err := e.config.GetPreset(ctx, a.PresetID)
	if errors.Is(err, domain.ErrPresetNotFound) {
		e.logger.Warn("Skipping ATTACH_BUTTONS", "rule_id", rule.ID, "preset_id", a.PresetID,
			"err", &domain.ConfigurationError{NodeCode: rule.ID, Reason: "preset missing or disabled", Err: err})
		return nil
	}
	if err != nil {
		return fmt.Errorf("get preset %s: %w", a.PresetID, err)
	}
	if preset.Scope != audience {
		e.logger.Warn("Skipping ATTACH_BUTTONS", "rule_id", rule.ID, "preset_id", a.PresetID,
			"err", &domain.PresetMismatchError{PresetID: preset.ID, Want: audience, Got: preset.Scope})
		return nil
	}
	d.presets[audience] = preset
	return nil
}

// deliver calls the transport and logs failures.
func (e *Engine) deliver(ctx context.Context, userID, op string, send func(context.Context) error) {
	err := send(ctx)
	if err == nil {
		return
	}
	terr := &domain.TransportError{UserID: userID, Op: op, Err: err}
	e.logger.Error("Delivery failed", "user_id", userID, "op", op, "err", terr)
	if e.hooks.OnDeliveryFailed != nil {
		e.hooks.OnDeliveryFailed(ctx, &domain.DeliveryEvent{
			EventBase: domain.NewEventBase(domain.EventDeliveryFailed, userID),
			Op:        op,
			Err:       terr,
		})
	}
}

// NotifyOrder dispatches an order event and, when no rule executed, saves the
// order and sends the legacy admin notification. It returns the id of the
// saved order, or "" when the matching rules saved none.
func (e *Engine) NotifyOrder(ctx context.Context, ev domain.Event) (string, error) {
	executed, d, err := e.dispatch(ctx, domain.TriggerOrderReceived, ev)
	if err != nil {
		if d != nil {
			return d.orderID, err
		}
		return "", err
	}
	if executed {
		return d.orderID, nil
	}

	e.logger.Info("No rule matched, using legacy notification", "user_id", ev.UserID)
	id, err := e.store.SaveOrder(ctx, domain.OrderFromEvent(ev))
	if err != nil {
		return "", fmt.Errorf("save order: %w", err)
	}
	d.values[domain.FieldOrderID] = id

	text := template.Render(e.legacy, d.values, ev.Items, ev.Currency)
	e.deliver(ctx, "", "send_admin_message", func(ctx context.Context) error {
		return e.transport.SendAdminMessage(ctx, text, nil)
	})
	return id, nil
}
