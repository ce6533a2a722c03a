package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/storeflow/pkg/condition"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/template"
	"github.com/mitchellh/mapstructure"
)

// actionParams is the union of every NodeAction payload field.
type actionParams struct {
	Key      string `mapstructure:"key"`
	Value    string `mapstructure:"value"`
	Step     string `mapstructure:"step"`
	Tag      string `mapstructure:"tag"`
	Text     string `mapstructure:"text"`
	NodeCode string `mapstructure:"node_code"`
}

func decodeParams(payload map[string]any) (actionParams, error) {
	var p actionParams
	if len(payload) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(payload); err != nil {
		return p, err
	}
	return p, nil
}

type flow int

const (
	flowContinue flow = iota
	flowStop
	flowGoto
)

// runActions executes the node's actions in order and returns the next node.
func (t *turn) runActions(ctx context.Context, n *domain.ActionNode) (string, error) {
	for _, a := range n.Actions {
		if !a.Enabled {
			continue
		}
		f, target, err := t.runAction(ctx, n.NodeCode, a)
		if err != nil {
			return "", err
		}
		if t.e.hooks.OnActionRun != nil {
			t.e.hooks.OnActionRun(ctx, &domain.ActionEvent{
				EventBase: domain.NewEventBase(domain.EventActionRun, t.s.UserID),
				NodeCode:  n.NodeCode,
				Action:    string(a.Kind),
			})
		}
		switch f {
		case flowStop:
			return "", nil
		case flowGoto:
			return target, nil
		}
	}
	return n.Next, nil
}

func (t *turn) runAction(ctx context.Context, code string, a domain.NodeAction) (flow, string, error) {
	p, err := decodeParams(a.Payload)
	if err != nil {
		t.skipAction(code, a, fmt.Sprintf("bad payload: %v", err))
		return flowContinue, "", nil
	}
	userID := t.s.UserID

	switch a.Kind {
	case domain.ActionSetVar:
		if p.Key == "" {
			t.skipAction(code, a, "missing key")
			return flowContinue, "", nil
		}
		vars, err := t.s.Vars(ctx)
		if err != nil {
			return flowContinue, "", err
		}
		return flowContinue, "", t.s.Set(ctx, p.Key, template.Interpolate(p.Value, vars))

	case domain.ActionClearVar:
		if p.Key == "" {
			t.skipAction(code, a, "missing key")
			return flowContinue, "", nil
		}
		return flowContinue, "", t.s.Delete(ctx, p.Key)

	case domain.ActionIncrementVar, domain.ActionDecrementVar:
		if p.Key == "" {
			t.skipAction(code, a, "missing key")
			return flowContinue, "", nil
		}
		return flowContinue, "", t.adjust(ctx, p, a.Kind == domain.ActionDecrementVar)

	case domain.ActionAddTag, domain.ActionRemoveTag:
		if p.Tag == "" {
			t.skipAction(code, a, "missing tag")
			return flowContinue, "", nil
		}
		if a.Kind == domain.ActionAddTag {
			return flowContinue, "", t.s.AddTag(ctx, p.Tag)
		}
		return flowContinue, "", t.s.RemoveTag(ctx, p.Tag)

	case domain.ActionSendMessage:
		text, err := t.interpolate(ctx, p.Text)
		if err != nil {
			return flowContinue, "", err
		}
		if text != "" {
			t.sendText(text, nil)
		}
		return flowContinue, "", nil

	case domain.ActionSendAdminMessage:
		text, err := t.interpolate(ctx, p.Text)
		if err != nil {
			return flowContinue, "", err
		}
		if text != "" {
			t.queue("send_admin_message", func(ctx context.Context) error {
				return t.e.transport.SendAdminMessage(ctx, text, nil)
			})
		}
		return flowContinue, "", nil

	case domain.ActionGotoNode:
		if p.NodeCode == "" {
			return flowContinue, "", &domain.ConfigurationError{NodeCode: code, Reason: "GOTO_NODE without node_code"}
		}
		return flowGoto, p.NodeCode, nil

	case domain.ActionGotoMain:
		if t.e.startNode == "" {
			return flowContinue, "", &domain.ConfigurationError{NodeCode: code, Reason: "GOTO_MAIN without a start node"}
		}
		return flowGoto, t.e.startNode, nil

	case domain.ActionStopFlow:
		return flowStop, "", nil

	case domain.ActionRequestContact:
		text := p.Text
		if text == "" {
			text = t.e.texts.ShareContact
		}
		t.queue("request_contact", func(ctx context.Context) error {
			return t.e.transport.RequestContact(ctx, userID, text)
		})
		return flowContinue, "", nil

	case domain.ActionRequestLocation:
		text := p.Text
		if text == "" {
			text = t.e.texts.ShareLocation
		}
		t.queue("request_location", func(ctx context.Context) error {
			return t.e.transport.RequestLocation(ctx, userID, text)
		})
		return flowContinue, "", nil
	}

	t.skipAction(code, a, "unknown action kind")
	return flowContinue, "", nil
}

// adjust adds or subtracts step from a numeric variable. Absent or
// non-numeric values count as zero; an absent step is 1.
func (t *turn) adjust(ctx context.Context, p actionParams, negative bool) error {
	step := 1.0
	if p.Step != "" {
		if f, ok := condition.ParseNumber(p.Step); ok {
			step = f
		} else {
			t.e.logger.Warn("Invalid step, using 1", "user_id", t.s.UserID, "key", p.Key, "step", p.Step)
		}
	}
	if negative {
		step = -step
	}

	cur, _, err := t.s.Get(ctx, p.Key)
	if err != nil {
		return err
	}
	n, _ := condition.ParseNumber(cur)
	return t.s.Set(ctx, p.Key, condition.FormatNumber(n+step))
}

func (t *turn) interpolate(ctx context.Context, text string) (string, error) {
	vars, err := t.s.Vars(ctx)
	if err != nil {
		return "", err
	}
	return template.Interpolate(text, vars), nil
}

func (t *turn) skipAction(code string, a domain.NodeAction, reason string) {
	t.e.logger.Warn("Skipping action", "user_id", t.s.UserID, "node", code, "action", a.Kind, "action_id", a.ID, "reason", reason)
}
