package domain_test

import (
	"testing"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPress_Codec(t *testing.T) {
	presses := []domain.Press{
		{Intent: domain.IntentOpen, NodeCode: "SHOW_CATALOG"},
		{Intent: domain.IntentHome},
		{Intent: domain.IntentCancel, NodeCode: "ASK_PHONE"},
		{Intent: domain.IntentAlias, NodeCode: "CART"},
	}
	for _, p := range presses {
		t.Run(p.Intent.String(), func(t *testing.T) {
			decoded, err := domain.DecodePress(domain.EncodePress(p))
			require.NoError(t, err)
			assert.Equal(t, p, decoded)
		})
	}
}

func TestPress_DecodeRejectsGarbage(t *testing.T) {
	for _, data := range []string{"", "x:1", "n:", "c:"} {
		_, err := domain.DecodePress(data)
		assert.Error(t, err, "payload %q", data)
	}
}

func TestLayout_GroupsRowsInOrder(t *testing.T) {
	buttons := []domain.Button{
		{Label: "b2", Row: 1, Position: 2},
		{Label: "a1", Row: 0, Position: 1},
		{Label: "b1", Row: 1, Position: 1},
		{Label: "a0", Row: 0, Position: 0},
	}

	rows := domain.Layout(buttons)

	require.Len(t, rows, 2)
	assert.Equal(t, "a0", rows[0][0].Label)
	assert.Equal(t, "a1", rows[0][1].Label)
	assert.Equal(t, "b1", rows[1][0].Label)
	assert.Equal(t, "b2", rows[1][1].Label)
	assert.Nil(t, domain.Layout(nil))
}

func TestButton_Press(t *testing.T) {
	p, ok := domain.Button{Kind: domain.TargetNode, Target: "CART"}.Press()
	assert.True(t, ok)
	assert.Equal(t, domain.Press{Intent: domain.IntentOpen, NodeCode: "CART"}, p)

	_, ok = domain.Button{Kind: domain.TargetURL, Target: "https://example.org"}.Press()
	assert.False(t, ok)
}

func TestTargets(t *testing.T) {
	action := &domain.ActionNode{
		NodeCode: "A",
		Next:     "B",
		Actions: []domain.NodeAction{
			{Kind: domain.ActionGotoNode, Payload: map[string]any{"node_code": "C"}},
			{Kind: domain.ActionSetVar, Payload: map[string]any{"key": "x"}},
		},
	}
	assert.ElementsMatch(t, []string{"B", "C"}, domain.Targets(action))

	input := &domain.InputNode{
		Base:  domain.Base{NodeCode: "I", Buttons: []domain.Button{{Kind: domain.TargetURL, Target: "https://x"}}},
		Input: domain.InputSpec{SuccessTarget: "OK"},
	}
	assert.Equal(t, []string{"OK"}, domain.Targets(input))
}

func TestNodeType_RoundTrip(t *testing.T) {
	nodes := []domain.Node{
		&domain.MessageNode{},
		&domain.InputNode{},
		&domain.ConditionNode{},
		&domain.SubscriptionNode{},
		&domain.ActionNode{},
	}
	for _, n := range nodes {
		typ := domain.TypeOf(n)
		fresh, err := domain.NewNode(typ)
		require.NoError(t, err)
		assert.IsType(t, n, fresh)

		domain.SetCode(fresh, "X")
		assert.Equal(t, "X", fresh.Code())
	}

	_, err := domain.NewNode("BOGUS")
	assert.Error(t, err)
}
