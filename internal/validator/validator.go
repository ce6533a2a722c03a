// Package validator checks a flow configuration for dangling references.
package validator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/storeflow/pkg/condition"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/ports"
)

// Report lists the problems found. Errors break a conversation at runtime;
// warnings do not.
type Report struct {
	Errors   []string
	Warnings []string
}

// Err returns the errors as one error, or nil.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(r.Errors, "\n- "))
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate inspects every enabled node, rule and preset of the store.
// startNode may be empty, in which case reachability is not checked.
func Validate(ctx context.Context, store ports.ConfigurationStore, startNode string) (*Report, error) {
	nodes, err := store.ListEnabledNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	byCode := make(map[string]domain.Node, len(nodes))
	for _, n := range nodes {
		if act, ok := n.(*domain.ActionNode); ok && len(act.Actions) == 0 {
			actions, err := store.ListActions(ctx, act.NodeCode)
			if err != nil {
				return nil, fmt.Errorf("list actions of %s: %w", act.NodeCode, err)
			}
			cp := *act
			cp.Actions = actions
			n = &cp
		}
		byCode[n.Code()] = n
	}

	r := &Report{}
	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		n := byCode[code]
		checkNode(r, n)
		for _, target := range domain.Targets(n) {
			if _, ok := byCode[target]; !ok {
				r.errorf("node '%s' points to missing or disabled node '%s'", code, target)
			}
		}
	}

	if startNode != "" {
		if _, ok := byCode[startNode]; !ok {
			r.errorf("start node '%s' is missing or disabled", startNode)
		} else {
			reached := reachable(byCode, startNode)
			for _, code := range codes {
				if !reached[code] {
					r.warnf("node '%s' is not reachable from '%s'", code, startNode)
				}
			}
		}
	}

	if err := checkRules(ctx, r, store); err != nil {
		return nil, err
	}
	return r, nil
}

func checkNode(r *Report, n domain.Node) {
	switch v := n.(type) {
	case *domain.InputNode:
		if v.Input.StorageKey == "" {
			r.errorf("input node '%s' has no storage key", v.NodeCode)
		}
		switch v.Input.Kind {
		case domain.ValueText, domain.ValueNumber, domain.ValuePhoneText, domain.ValueContact:
		default:
			r.errorf("input node '%s' has unknown value kind '%s'", v.NodeCode, v.Input.Kind)
		}
	case *domain.ConditionNode:
		if !condition.Supported(v.Operator) {
			r.errorf("condition node '%s' has unknown operator '%s'", v.NodeCode, v.Operator)
		}
		if v.Key == "" {
			r.errorf("condition node '%s' has no variable key", v.NodeCode)
		}
		if v.TrueTarget == "" || v.FalseTarget == "" {
			r.warnf("condition node '%s' has an empty branch", v.NodeCode)
		}
	case *domain.SubscriptionNode:
		if len(v.Channels) == 0 {
			r.warnf("subscription node '%s' checks no channels", v.NodeCode)
		}
	case *domain.ActionNode:
		for _, a := range v.Actions {
			if a.Kind == domain.ActionGotoNode {
				if code, _ := a.Payload[domain.PayloadNodeCode].(string); code == "" {
					r.errorf("action node '%s' has GOTO_NODE without node_code", v.NodeCode)
				}
			}
		}
	}
}

// reachable walks every target from start.
func reachable(nodes map[string]domain.Node, start string) map[string]bool {
	visited := make(map[string]bool)
	queue := []string{start}
	for len(queue) > 0 {
		code := queue[0]
		queue = queue[1:]
		if visited[code] {
			continue
		}
		visited[code] = true
		n, ok := nodes[code]
		if !ok {
			continue
		}
		for _, t := range domain.Targets(n) {
			if !visited[t] {
				queue = append(queue, t)
			}
		}
	}
	return visited
}

func checkRules(ctx context.Context, r *Report, store ports.ConfigurationStore) error {
	rules, err := store.ListEnabledRules(ctx, domain.TriggerOrderReceived)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}
	for _, rule := range rules {
		if len(rule.Actions) == 0 {
			r.warnf("rule '%s' has no actions", rule.ID)
		}
		for _, a := range rule.Actions {
			if a.Kind != domain.RuleAttachButtons {
				continue
			}
			audience := a.Audience
			if audience == "" {
				audience = domain.AudienceUser
			}
			p, err := store.GetPreset(ctx, a.PresetID)
			switch {
			case errors.Is(err, domain.ErrPresetNotFound):
				r.errorf("rule '%s' attaches missing or disabled preset '%s'", rule.ID, a.PresetID)
			case err != nil:
				return fmt.Errorf("get preset %s: %w", a.PresetID, err)
			case p.Scope != audience:
				r.errorf("rule '%s': %v", rule.ID, &domain.PresetMismatchError{PresetID: p.ID, Want: audience, Got: p.Scope})
			}
		}
	}
	return nil
}
