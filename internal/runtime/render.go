package runtime

import (
	"context"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/template"
)

// render builds the delivery for a node, interpolating its text and button
// labels against the user's variables. extra buttons form a trailing row.
func (t *turn) render(ctx context.Context, b domain.Base, extra ...domain.Button) (domain.Delivery, error) {
	vars, err := t.s.Vars(ctx)
	if err != nil {
		return domain.Delivery{}, err
	}

	buttons := make([]domain.Button, len(b.Buttons))
	for i, btn := range b.Buttons {
		btn.Label = template.Interpolate(btn.Label, vars)
		buttons[i] = btn
	}
	rows := domain.Layout(buttons)
	if len(extra) > 0 {
		rows = append(rows, extra)
	}

	return domain.Delivery{
		NodeCode:  b.NodeCode,
		Text:      template.Interpolate(b.Content.Text, vars),
		ParseMode: b.Content.ParseMode,
		Image:     b.Content.Image,
		Rows:      rows,
	}, nil
}

func (t *turn) deliver(ctx context.Context, b domain.Base, extra ...domain.Button) error {
	d, err := t.render(ctx, b, extra...)
	if err != nil {
		return err
	}
	userID := t.s.UserID
	t.queue("deliver_node", func(ctx context.Context) error {
		return t.e.transport.DeliverNode(ctx, userID, d)
	})
	return nil
}

// await renders an INPUT node and records the pending input.
func (t *turn) await(ctx context.Context, n *domain.InputNode) error {
	var extra []domain.Button
	if n.Input.CancelTarget != "" {
		extra = append(extra, t.cancelButton(n.NodeCode))
	}
	if err := t.s.Await(ctx, domain.NewAwaiting(t.s.UserID, n)); err != nil {
		return err
	}
	if err := t.deliver(ctx, n.Base, extra...); err != nil {
		return err
	}
	if n.Input.Kind == domain.ValueContact {
		userID, text := t.s.UserID, t.e.texts.ShareContact
		t.queue("request_contact", func(ctx context.Context) error {
			return t.e.transport.RequestContact(ctx, userID, text)
		})
	}
	return nil
}

func (t *turn) cancelButton(code string) domain.Button {
	return domain.Button{Label: t.e.texts.CancelButton, Kind: domain.TargetCancel, Target: code}
}
