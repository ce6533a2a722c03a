package validator_test

import (
	"context"
	"testing"

	"github.com/aretw0/storeflow/internal/validator"
	"github.com/aretw0/storeflow/pkg/adapters/memory"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(code string, targets ...string) *domain.MessageNode {
	n := &domain.MessageNode{Base: domain.Base{NodeCode: code}}
	for i, t := range targets {
		n.Buttons = append(n.Buttons, domain.Button{Label: t, Kind: domain.TargetNode, Target: t, Position: i})
	}
	return n
}

func TestValidate_CleanGraph(t *testing.T) {
	store := memory.NewFromNodes(
		msg("START", "ASK"),
		&domain.InputNode{
			Base:  domain.Base{NodeCode: "ASK"},
			Input: domain.InputSpec{Kind: domain.ValueText, StorageKey: "name", SuccessTarget: "START"},
		},
	)

	report, err := validator.Validate(context.Background(), store, "START")
	require.NoError(t, err)
	assert.NoError(t, report.Err())
	assert.Empty(t, report.Warnings)
}

func TestValidate_DanglingReferences(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFromNodes(
		msg("START", "GHOST"),
		&domain.ActionNode{NodeCode: "ACT", Actions: []domain.NodeAction{
			{Kind: domain.ActionGotoNode, Payload: map[string]any{"node_code": "NOWHERE"}, Enabled: true},
		}},
		&domain.InputNode{Base: domain.Base{NodeCode: "BAD_INPUT"}, Input: domain.InputSpec{Kind: "EMAIL"}},
		&domain.ConditionNode{NodeCode: "BAD_COND", Operator: "REGEX", Key: "x", TrueTarget: "START", FalseTarget: "START"},
	)
	require.NoError(t, store.PutNode(ctx, msg("OFF"), false))
	require.NoError(t, store.PutNode(ctx, msg("TO_OFF", "OFF"), true))

	report, err := validator.Validate(ctx, store, "START")
	require.NoError(t, err)
	require.Error(t, report.Err())

	joined := report.Err().Error()
	assert.Contains(t, joined, "'START' points to missing or disabled node 'GHOST'")
	assert.Contains(t, joined, "'ACT' points to missing or disabled node 'NOWHERE'")
	assert.Contains(t, joined, "'TO_OFF' points to missing or disabled node 'OFF'")
	assert.Contains(t, joined, "input node 'BAD_INPUT' has no storage key")
	assert.Contains(t, joined, "unknown value kind 'EMAIL'")
	assert.Contains(t, joined, "unknown operator 'REGEX'")
	assert.Contains(t, report.Warnings, "node 'ACT' is not reachable from 'START'")
}

func TestValidate_MissingStart(t *testing.T) {
	report, err := validator.Validate(context.Background(), memory.NewFromNodes(msg("A")), "START")
	require.NoError(t, err)
	assert.ErrorContains(t, report.Err(), "start node 'START' is missing or disabled")
}

func TestValidate_RulePresets(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFromNodes(msg("START"))
	require.NoError(t, store.PutPreset(ctx, domain.ButtonPreset{ID: "admin", Scope: domain.AudienceAdmin, Enabled: true}))
	require.NoError(t, store.PutRule(ctx, domain.AutomationRule{
		ID: "r1", Trigger: domain.TriggerOrderReceived, Enabled: true,
		Actions: []domain.RuleAction{
			{Kind: domain.RuleAttachButtons, PresetID: "admin", Audience: domain.AudienceUser},
			{Kind: domain.RuleAttachButtons, PresetID: "ghost", Audience: domain.AudienceAdmin},
			{Kind: domain.RuleAttachButtons, PresetID: "admin", Audience: domain.AudienceAdmin},
		},
	}))

	report, err := validator.Validate(ctx, store, "")
	require.NoError(t, err)
	require.Len(t, report.Errors, 2)
	assert.Contains(t, report.Errors[0], "preset 'admin' is scoped to admin, action targets user")
	assert.Contains(t, report.Errors[1], "missing or disabled preset 'ghost'")
}
