package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPersistenceStoreContract runs a suite of tests to verify that a PersistenceStore
// implementation adheres to the defined interface contract.
func RunPersistenceStoreContract(t *testing.T, store PersistenceStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405.000")

	t.Run("Variables", func(t *testing.T) {
		vars, err := store.Variables(ctx, userID+"-empty")
		require.NoError(t, err)
		assert.NotNil(t, vars)
		assert.Empty(t, vars)

		require.NoError(t, store.SetVariable(ctx, userID, "phone", "5551234567"))
		require.NoError(t, store.SetVariable(ctx, userID, "name", "Ann"))
		require.NoError(t, store.SetVariable(ctx, userID, "name", "Bob"))

		vars, err = store.Variables(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"phone": "5551234567", "name": "Bob"}, vars)

		require.NoError(t, store.DeleteVariable(ctx, userID, "phone"))
		require.NoError(t, store.DeleteVariable(ctx, userID, "missing"))

		vars, err = store.Variables(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"name": "Bob"}, vars)
	})

	t.Run("Tags", func(t *testing.T) {
		require.NoError(t, store.AddTag(ctx, userID, "vip"))
		require.NoError(t, store.AddTag(ctx, userID, "buyer"))
		require.NoError(t, store.AddTag(ctx, userID, "vip"))

		tags, err := store.Tags(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []string{"buyer", "vip"}, tags)

		require.NoError(t, store.RemoveTag(ctx, userID, "vip"))
		require.NoError(t, store.RemoveTag(ctx, userID, "vip"))

		tags, err = store.Tags(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []string{"buyer"}, tags)
	})

	t.Run("State Lifecycle", func(t *testing.T) {
		_, err := store.LoadState(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)

		state := &domain.ConversationState{
			UserID:        userID,
			NodeCode:      "ASK_PHONE",
			ValueKind:     domain.ValuePhoneText,
			StorageKey:    "phone",
			SuccessTarget: "THANKS",
			CancelTarget:  "MAIN",
			UpdatedAt:     time.Now().UTC(),
		}
		require.NoError(t, store.SaveState(ctx, state))

		loaded, err := store.LoadState(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, state.NodeCode, loaded.NodeCode)
		assert.Equal(t, state.ValueKind, loaded.ValueKind)
		assert.Equal(t, state.StorageKey, loaded.StorageKey)
		assert.Equal(t, state.SuccessTarget, loaded.SuccessTarget)
		assert.Equal(t, state.CancelTarget, loaded.CancelTarget)

		state.NodeCode = "ASK_NAME"
		require.NoError(t, store.SaveState(ctx, state))
		loaded, err = store.LoadState(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "ASK_NAME", loaded.NodeCode)

		require.NoError(t, store.ClearState(ctx, userID))
		require.NoError(t, store.ClearState(ctx, userID))
		_, err = store.LoadState(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("Orders", func(t *testing.T) {
		order := domain.Order{
			UserID:    userID,
			Fields:    map[string]string{domain.FieldSource: "webapp"},
			Items:     []domain.Item{{Title: "Tea", Qty: 2, Price: 3.5}},
			Currency:  "USD",
			Total:     7,
			CreatedAt: time.Now().UTC(),
		}
		id1, err := store.SaveOrder(ctx, order)
		require.NoError(t, err)
		assert.NotEmpty(t, id1)

		id2, err := store.SaveOrder(ctx, order)
		require.NoError(t, err)
		assert.NotEqual(t, id1, id2)
	})
}

// RunConfigurationStoreContract verifies a ConfigurationStore that can also be
// mutated through ConfigurationAdmin.
func RunConfigurationStoreContract(t *testing.T, store interface {
	ConfigurationStore
	ConfigurationAdmin
}) {
	ctx := context.Background()

	t.Run("Version Bumps On Mutation", func(t *testing.T) {
		before, err := store.Version(ctx)
		require.NoError(t, err)

		node := &domain.MessageNode{Base: domain.Base{NodeCode: "CONTRACT_MAIN", Content: domain.Content{Text: "hi"}}}
		require.NoError(t, store.PutNode(ctx, node, true))

		after, err := store.Version(ctx)
		require.NoError(t, err)
		assert.Greater(t, after, before)
	})

	t.Run("Disabled Nodes Are Hidden", func(t *testing.T) {
		node := &domain.MessageNode{Base: domain.Base{NodeCode: "CONTRACT_HIDDEN"}}
		require.NoError(t, store.PutNode(ctx, node, false))

		nodes, err := store.ListEnabledNodes(ctx)
		require.NoError(t, err)
		codes := make([]string, 0, len(nodes))
		for _, n := range nodes {
			codes = append(codes, n.Code())
		}
		assert.Contains(t, codes, "CONTRACT_MAIN")
		assert.NotContains(t, codes, "CONTRACT_HIDDEN")
	})

	t.Run("Toggle Node", func(t *testing.T) {
		require.NoError(t, store.SetNodeEnabled(ctx, "CONTRACT_HIDDEN", true))
		before, err := store.Version(ctx)
		require.NoError(t, err)
		require.NoError(t, store.SetNodeEnabled(ctx, "CONTRACT_HIDDEN", false))
		after, err := store.Version(ctx)
		require.NoError(t, err)
		assert.Greater(t, after, before)

		assert.ErrorIs(t, store.SetNodeEnabled(ctx, "CONTRACT_NOPE", true), domain.ErrNodeNotFound)
	})

	t.Run("Action Nodes Keep Their Actions", func(t *testing.T) {
		node := &domain.ActionNode{
			NodeCode: "CONTRACT_ACT",
			Next:     "CONTRACT_MAIN",
			Actions: []domain.NodeAction{
				{Kind: domain.ActionAddTag, Payload: map[string]any{"tag": "b"}, SortOrder: 2, Enabled: true},
				{Kind: domain.ActionSetVar, Payload: map[string]any{"key": "a", "value": "1"}, SortOrder: 1, Enabled: true},
				{Kind: domain.ActionStopFlow, SortOrder: 3, Enabled: false},
			},
		}
		require.NoError(t, store.PutNode(ctx, node, true))

		actions, err := store.ListActions(ctx, "CONTRACT_ACT")
		require.NoError(t, err)
		require.Len(t, actions, 2)
		domain.SortActions(actions)
		assert.Equal(t, domain.ActionSetVar, actions[0].Kind)
		assert.Equal(t, domain.ActionAddTag, actions[1].Kind)
	})

	t.Run("Delete Node", func(t *testing.T) {
		require.NoError(t, store.PutNode(ctx, &domain.MessageNode{Base: domain.Base{NodeCode: "CONTRACT_GONE"}}, true))
		require.NoError(t, store.DeleteNode(ctx, "CONTRACT_GONE"))

		nodes, err := store.ListEnabledNodes(ctx)
		require.NoError(t, err)
		for _, n := range nodes {
			assert.NotEqual(t, "CONTRACT_GONE", n.Code())
		}
	})

	t.Run("Rules By Trigger", func(t *testing.T) {
		rule := domain.AutomationRule{
			ID:         "contract-rule",
			Name:       "webapp orders",
			Trigger:    domain.TriggerOrderReceived,
			Conditions: []domain.RuleCondition{{Key: "source", Value: "webapp"}},
			Actions:    []domain.RuleAction{{Kind: domain.RuleSaveOrder}},
			Enabled:    true,
		}
		require.NoError(t, store.PutRule(ctx, rule))
		require.NoError(t, store.PutRule(ctx, domain.AutomationRule{ID: "contract-off", Trigger: domain.TriggerOrderReceived}))

		rules, err := store.ListEnabledRules(ctx, domain.TriggerOrderReceived)
		require.NoError(t, err)
		var ids []string
		for _, r := range rules {
			ids = append(ids, r.ID)
		}
		assert.Contains(t, ids, "contract-rule")
		assert.NotContains(t, ids, "contract-off")

		for _, r := range rules {
			if r.ID == "contract-rule" {
				assert.Equal(t, rule.Conditions, r.Conditions)
				assert.Equal(t, rule.Actions[0].Kind, r.Actions[0].Kind)
			}
		}
	})

	t.Run("Presets", func(t *testing.T) {
		preset := domain.ButtonPreset{
			ID:      "contract-preset",
			Name:    "order buttons",
			Scope:   domain.AudienceAdmin,
			Buttons: []domain.Button{{Label: "Open", Kind: domain.TargetURL, Target: "https://example.org"}},
			Enabled: true,
		}
		require.NoError(t, store.PutPreset(ctx, preset))

		got, err := store.GetPreset(ctx, "contract-preset")
		require.NoError(t, err)
		assert.Equal(t, domain.AudienceAdmin, got.Scope)
		assert.Equal(t, preset.Buttons, got.Buttons)

		preset.Enabled = false
		require.NoError(t, store.PutPreset(ctx, preset))
		_, err = store.GetPreset(ctx, "contract-preset")
		assert.ErrorIs(t, err, domain.ErrPresetNotFound)

		_, err = store.GetPreset(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrPresetNotFound)
	})
}
