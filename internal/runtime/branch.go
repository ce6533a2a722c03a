package runtime

import (
	"context"

	"github.com/aretw0/storeflow/pkg/condition"
	"github.com/aretw0/storeflow/pkg/domain"
)

func (t *turn) branch(ctx context.Context, n *domain.ConditionNode) (string, error) {
	vars, err := t.s.Vars(ctx)
	if err != nil {
		return "", err
	}
	ok := condition.Evaluate(n.Operator, condition.Lookup(vars, n.Key), n.Literal)

	target := n.FalseTarget
	if ok {
		target = n.TrueTarget
	}
	t.e.logger.Debug("Condition evaluated", "user_id", t.s.UserID, "node", n.NodeCode, "result", ok, "next", target)
	if target == "" {
		return "", &domain.ConfigurationError{NodeCode: n.NodeCode, Reason: "condition branch has no target"}
	}
	return target, nil
}

type subscription int

const (
	subscribed subscription = iota
	notSubscribed
	membershipUnknown
)

// checkSubscription resolves the built-in membership check. The user must
// belong to every channel.
func (t *turn) checkSubscription(ctx context.Context, n *domain.SubscriptionNode) (string, error) {
	outcome := subscribed
	if t.e.members == nil && len(n.Channels) > 0 {
		outcome = membershipUnknown
	}
	for _, ch := range n.Channels {
		if outcome != subscribed {
			break
		}
		ok, err := t.e.members.IsMember(ctx, t.s.UserID, ch)
		switch {
		case err != nil:
			t.e.logger.Warn("Membership check failed", "user_id", t.s.UserID, "node", n.NodeCode, "channel", ch, "err", err)
			outcome = membershipUnknown
		case !ok:
			outcome = notSubscribed
		}
	}

	var target string
	switch outcome {
	case subscribed:
		target = n.SuccessTarget
	case notSubscribed:
		if n.FailText != "" {
			t.sendText(n.FailText, nil)
		}
		target = n.FailTarget
	case membershipUnknown:
		target = n.UnavailableTarget
		if target == "" {
			target = n.FailTarget
		}
	}
	if target == "" {
		return "", &domain.ConfigurationError{NodeCode: n.NodeCode, Reason: "subscription outcome has no target"}
	}
	return target, nil
}
