package flowfile_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/storeflow/internal/validator"
	"github.com/aretw0/storeflow/pkg/adapters/flowfile"
	"github.com/aretw0/storeflow/pkg/adapters/memory"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ShopBundle(t *testing.T) {
	b, err := flowfile.Load("testdata/shop.yaml")
	require.NoError(t, err)

	assert.Equal(t, "MAIN", b.Start)
	require.Len(t, b.Nodes, 5)
	require.Len(t, b.Rules, 1)
	require.Len(t, b.Presets, 1)

	main, ok := b.Nodes[0].Node.(*domain.MessageNode)
	require.True(t, ok)
	assert.Equal(t, "Welcome, {{name}}!", main.Content.Text)
	assert.Len(t, main.Buttons, 2)

	act, ok := b.Nodes[2].Node.(*domain.ActionNode)
	require.True(t, ok)
	require.Len(t, act.Actions, 3)
	assert.True(t, act.Actions[0].Enabled)
	assert.True(t, act.Actions[1].Enabled)
	assert.False(t, act.Actions[2].Enabled)
	assert.Equal(t, "lead", act.Actions[0].Payload["tag"])

	_, ok = b.Nodes[4].Node.(*domain.SubscriptionNode)
	assert.True(t, ok)
	assert.False(t, b.Nodes[4].Enabled)
	assert.True(t, b.Nodes[0].Enabled)

	assert.True(t, b.Rules[0].Enabled)
	assert.Equal(t, domain.AudienceAdmin, b.Rules[0].Actions[1].Audience)
	assert.True(t, b.Rules[0].Actions[2].Template.ShowItems)
}

func TestApply_PassesValidation(t *testing.T) {
	b, err := flowfile.Load("testdata/shop.yaml")
	require.NoError(t, err)

	store := memory.NewConfigStore()
	ctx := context.Background()
	require.NoError(t, b.Apply(ctx, store))

	nodes, err := store.ListEnabledNodes(ctx)
	require.NoError(t, err)
	assert.Len(t, nodes, 4)

	actions, err := store.ListActions(ctx, "SAVE_LEAD")
	require.NoError(t, err)
	assert.Len(t, actions, 2)

	preset, err := store.GetPreset(ctx, "order-admin")
	require.NoError(t, err)
	assert.Equal(t, domain.AudienceAdmin, preset.Scope)

	report, err := validator.Validate(ctx, store, b.Start)
	require.NoError(t, err)
	assert.NoError(t, report.Err())
}

func TestParse_Errors(t *testing.T) {
	cases := map[string]string{
		"unknown type":   "nodes:\n  - {type: CAROUSEL, code: X}\n",
		"missing code":   "nodes:\n  - {type: MESSAGE}\n",
		"duplicate code": "nodes:\n  - {code: X}\n  - {code: X}\n",
		"rule without id": "rules:\n  - {trigger: EXTERNAL_ORDER_RECEIVED}\n",
		"unknown field":  "nodez: []\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := flowfile.Parse(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	b, err := flowfile.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, b.Nodes)
}
