package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/storeflow/internal/cache"
	"github.com/aretw0/storeflow/internal/runtime"
	"github.com/aretw0/storeflow/internal/testutils"
	"github.com/aretw0/storeflow/pkg/adapters/memory"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const user = "u1"

type fixture struct {
	cfg   *memory.ConfigStore
	store *memory.Store
	tr    *testutils.RecordingTransport
	eng   *runtime.Engine
}

func newFixture(t *testing.T, nodes []domain.Node, opts ...runtime.Option) *fixture {
	t.Helper()
	f := &fixture{
		cfg:   memory.NewFromNodes(nodes...),
		store: memory.NewStore(),
		tr:    &testutils.RecordingTransport{},
	}
	f.eng = runtime.NewEngine(cache.New(f.cfg), session.NewManager(f.store), f.tr, opts...)
	return f
}

func (f *fixture) pending(t *testing.T) *domain.ConversationState {
	t.Helper()
	st, err := f.store.LoadState(context.Background(), user)
	if errors.Is(err, domain.ErrStateNotFound) {
		return nil
	}
	require.NoError(t, err)
	return st
}

func (f *fixture) vars(t *testing.T) map[string]string {
	t.Helper()
	v, err := f.store.Variables(context.Background(), user)
	require.NoError(t, err)
	return v
}

func message(code, text string, buttons ...domain.Button) *domain.MessageNode {
	return &domain.MessageNode{Base: domain.Base{NodeCode: code, Content: domain.Content{Text: text}, Buttons: buttons}}
}

func open(label, target string, row, pos int) domain.Button {
	return domain.Button{Label: label, Kind: domain.TargetNode, Target: target, Row: row, Position: pos}
}

func askPhone() *domain.InputNode {
	return &domain.InputNode{
		Base: domain.Base{NodeCode: "ASK_PHONE", Content: domain.Content{Text: "Your phone?"}},
		Input: domain.InputSpec{
			Kind:          domain.ValuePhoneText,
			StorageKey:    "phone",
			ErrorText:     "need at least 10 digits",
			SuccessTarget: "THANKS",
			CancelTarget:  "START",
		},
	}
}

func TestEngine_ScenarioA_ButtonOpensNode(t *testing.T) {
	ctx := context.Background()
	start := message("START", "Welcome", open("Catalog", "SHOW_CATALOG", 0, 0))
	f := newFixture(t, []domain.Node{start, message("SHOW_CATALOG", "Our products")}, runtime.WithStartNode("START"))

	require.NoError(t, f.eng.Start(ctx, user))
	first := f.tr.Last()
	assert.Equal(t, "START", first.NodeCode)
	require.Len(t, first.Rows, 1)

	press, ok := first.Rows[0][0].Press()
	require.True(t, ok)
	require.NoError(t, f.eng.HandlePress(ctx, user, press))

	assert.Equal(t, []string{"START", "SHOW_CATALOG"}, f.tr.Delivered())
	assert.Nil(t, f.pending(t))
}

func TestEngine_ScenarioB_InvalidPhoneKeepsAwaiting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []domain.Node{askPhone(), message("THANKS", "Thanks"), message("START", "Home")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "ASK_PHONE"))
	delivered := f.tr.Last()
	require.Len(t, delivered.Rows, 1, "input with cancel target gets a cancel row")
	assert.Equal(t, domain.TargetCancel, delivered.Rows[0][0].Kind)

	handled, err := f.eng.HandleMessage(ctx, user, domain.Message{Text: "not a phone"})
	require.NoError(t, err)
	assert.True(t, handled)

	last := f.tr.Last()
	assert.Equal(t, "message", last.Op)
	assert.Equal(t, "need at least 10 digits", last.Text)
	require.Len(t, last.Rows, 1)
	assert.Equal(t, "ASK_PHONE", last.Rows[0][0].Target)

	st := f.pending(t)
	require.NotNil(t, st)
	assert.Equal(t, "ASK_PHONE", st.NodeCode)
	assert.Equal(t, domain.ValuePhoneText, st.ValueKind)
	assert.NotContains(t, f.vars(t), "phone")
}

func TestEngine_ScenarioC_ConditionRoutes(t *testing.T) {
	ctx := context.Background()
	vip := &domain.ConditionNode{
		NodeCode: "CHECK_VIP", Operator: domain.OpEq, Key: "tier", Literal: "vip",
		TrueTarget: "VIP_MENU", FalseTarget: "BASIC_MENU",
	}
	f := newFixture(t, []domain.Node{vip, message("VIP_MENU", "vip"), message("BASIC_MENU", "basic")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "CHECK_VIP"))
	assert.Equal(t, []string{"BASIC_MENU"}, f.tr.Delivered())

	require.NoError(t, f.store.SetVariable(ctx, user, "tier", "vip"))
	f.tr.Reset()
	require.NoError(t, f.eng.EnterNode(ctx, user, "CHECK_VIP"))
	assert.Equal(t, []string{"VIP_MENU"}, f.tr.Delivered())
}

func TestEngine_InputRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []domain.Node{askPhone(), message("THANKS", "Saved {{phone}}"), message("START", "Home")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "ASK_PHONE"))
	handled, err := f.eng.HandleMessage(ctx, user, domain.Message{Text: "+1 (555) 123-4567"})
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Nil(t, f.pending(t))
	assert.Equal(t, "15551234567", f.vars(t)["phone"])
	last := f.tr.Last()
	assert.Equal(t, "THANKS", last.NodeCode)
	assert.Equal(t, "Saved 15551234567", last.Text)
}

func TestEngine_CancelByText(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []domain.Node{askPhone(), message("THANKS", ""), message("START", "Home")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "ASK_PHONE"))
	handled, err := f.eng.HandleMessage(ctx, user, domain.Message{Text: " Cancel "})
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Nil(t, f.pending(t))
	assert.Equal(t, "START", f.tr.Last().NodeCode)
}

func TestEngine_CancelPress(t *testing.T) {
	ctx := context.Background()
	other := &domain.InputNode{
		Base:  domain.Base{NodeCode: "ASK_NAME"},
		Input: domain.InputSpec{Kind: domain.ValueText, StorageKey: "name", CancelTarget: "START"},
	}
	f := newFixture(t, []domain.Node{askPhone(), other, message("THANKS", ""), message("START", "Home")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "ASK_PHONE"))

	// A cancel for a node that is not pending is ignored.
	f.tr.Reset()
	require.NoError(t, f.eng.HandlePress(ctx, user, domain.Press{Intent: domain.IntentCancel, NodeCode: "ASK_NAME"}))
	assert.Empty(t, f.tr.Sent())
	require.NotNil(t, f.pending(t))

	require.NoError(t, f.eng.HandlePress(ctx, user, domain.Press{Intent: domain.IntentCancel, NodeCode: "ASK_PHONE"}))
	assert.Nil(t, f.pending(t))
	assert.Equal(t, []string{"START"}, f.tr.Delivered())

	// Nothing pending any more.
	require.NoError(t, f.eng.HandlePress(ctx, user, domain.Press{Intent: domain.IntentCancel, NodeCode: "ASK_PHONE"}))
	assert.Equal(t, runtime.DefaultTexts().NothingToCancel, f.tr.Last().Text)
}

func TestEngine_CancelWithoutTarget(t *testing.T) {
	ctx := context.Background()
	node := &domain.InputNode{
		Base:  domain.Base{NodeCode: "ASK_NAME", Content: domain.Content{Text: "Name?"}},
		Input: domain.InputSpec{Kind: domain.ValueText, StorageKey: "name", Required: true, SuccessTarget: "DONE"},
	}
	f := newFixture(t, []domain.Node{node, message("DONE", "")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "ASK_NAME"))
	assert.Empty(t, f.tr.Last().Rows, "no cancel target, no cancel button")

	handled, err := f.eng.HandleMessage(ctx, user, domain.Message{Text: "cancel"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, runtime.DefaultTexts().NothingToCancel, f.tr.Last().Text)
	assert.Nil(t, f.pending(t))
}

func TestEngine_IdleMessagesAreNotHandled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []domain.Node{message("START", "")})

	handled, err := f.eng.HandleMessage(ctx, user, domain.Message{Text: "hello"})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Empty(t, f.tr.Sent())

	handled, err = f.eng.HandleMessage(ctx, user, domain.Message{Text: "cancel"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, runtime.DefaultTexts().NothingToCancel, f.tr.Last().Text)
}

func TestEngine_ContactInput(t *testing.T) {
	ctx := context.Background()
	node := &domain.InputNode{
		Base:  domain.Base{NodeCode: "ASK_CONTACT", Content: domain.Content{Text: "Share"}},
		Input: domain.InputSpec{Kind: domain.ValueContact, StorageKey: "phone", SuccessTarget: "DONE", CancelTarget: "DONE"},
	}
	f := newFixture(t, []domain.Node{node, message("DONE", "ok")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "ASK_CONTACT"))
	sent := f.tr.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "deliver", sent[0].Op)
	assert.Equal(t, "contact", sent[1].Op)

	// "cancel" is not a cancel signal for contact inputs.
	_, err := f.eng.HandleMessage(ctx, user, domain.Message{Text: "cancel"})
	require.NoError(t, err)
	require.NotNil(t, f.pending(t))

	_, err = f.eng.HandleMessage(ctx, user, domain.Message{Contact: &domain.Contact{PhoneNumber: "+15551234567"}})
	require.NoError(t, err)
	assert.Nil(t, f.pending(t))
	assert.Equal(t, "+15551234567", f.vars(t)["phone"])
}

func TestEngine_EnteringOtherNodeClearsPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []domain.Node{askPhone(), message("START", "")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "ASK_PHONE"))
	require.NotNil(t, f.pending(t))

	require.NoError(t, f.eng.HandlePress(ctx, user, domain.Press{Intent: domain.IntentOpen, NodeCode: "START"}))
	assert.Nil(t, f.pending(t))
}

func TestEngine_IncrementIgnoresNonFiniteStep(t *testing.T) {
	ctx := context.Background()
	act := &domain.ActionNode{
		NodeCode: "COUNT",
		Actions: []domain.NodeAction{
			{Kind: domain.ActionIncrementVar, Payload: map[string]any{"key": "visits", "step": "nan"}, SortOrder: 1, Enabled: true},
			{Kind: domain.ActionIncrementVar, Payload: map[string]any{"key": "visits", "step": "inf"}, SortOrder: 2, Enabled: true},
		},
	}
	f := newFixture(t, []domain.Node{act})
	require.NoError(t, f.store.SetVariable(ctx, user, "visits", "NaN"))

	require.NoError(t, f.eng.EnterNode(ctx, user, "COUNT"))
	assert.Equal(t, "2", f.vars(t)["visits"])
}

func TestEngine_ActionNode(t *testing.T) {
	ctx := context.Background()
	act := &domain.ActionNode{
		NodeCode: "CHECKOUT",
		Next:     "DONE",
		Actions: []domain.NodeAction{
			{Kind: domain.ActionSetVar, Payload: map[string]any{"key": "greeting", "value": "hi {{name}}"}, SortOrder: 1, Enabled: true},
			{Kind: domain.ActionIncrementVar, Payload: map[string]any{"key": "visits"}, SortOrder: 2, Enabled: true},
			{Kind: domain.ActionIncrementVar, Payload: map[string]any{"key": "visits", "step": 2.5}, SortOrder: 3, Enabled: true},
			{Kind: domain.ActionDecrementVar, Payload: map[string]any{"key": "stock", "step": "1,5"}, SortOrder: 4, Enabled: true},
			{Kind: domain.ActionAddTag, Payload: map[string]any{"tag": "buyer"}, SortOrder: 5, Enabled: true},
			{Kind: domain.ActionRemoveTag, Payload: map[string]any{"tag": "lead"}, SortOrder: 6, Enabled: true},
			{Kind: domain.ActionClearVar, Payload: map[string]any{"key": "cart"}, SortOrder: 7, Enabled: true},
			{Kind: domain.ActionSendMessage, Payload: map[string]any{"text": "Thanks {{name}}"}, SortOrder: 8, Enabled: true},
			{Kind: domain.ActionSendAdminMessage, Payload: map[string]any{"text": "{{name}} checked out"}, SortOrder: 9, Enabled: true},
			{Kind: domain.ActionSetVar, Payload: map[string]any{"key": "skipped", "value": "x"}, SortOrder: 10, Enabled: false},
		},
	}
	f := newFixture(t, []domain.Node{act, message("DONE", "Done")})
	require.NoError(t, f.store.SetVariable(ctx, user, "name", "Ann"))
	require.NoError(t, f.store.SetVariable(ctx, user, "stock", "abc"))
	require.NoError(t, f.store.SetVariable(ctx, user, "cart", "1"))
	require.NoError(t, f.store.AddTag(ctx, user, "lead"))

	require.NoError(t, f.eng.EnterNode(ctx, user, "CHECKOUT"))

	vars := f.vars(t)
	assert.Equal(t, "hi Ann", vars["greeting"])
	assert.Equal(t, "3.5", vars["visits"])
	assert.Equal(t, "-1.5", vars["stock"])
	assert.NotContains(t, vars, "cart")
	assert.NotContains(t, vars, "skipped")

	tags, err := f.store.Tags(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"buyer"}, tags)

	sent := f.tr.Sent()
	require.Len(t, sent, 3)
	assert.Equal(t, testutils.Sent{Op: "message", UserID: user, Text: "Thanks Ann"}, sent[0])
	assert.Equal(t, testutils.Sent{Op: "admin", Text: "Ann checked out"}, sent[1])
	assert.Equal(t, "DONE", sent[2].NodeCode)
}

func TestEngine_ActionFlowControl(t *testing.T) {
	ctx := context.Background()
	stop := &domain.ActionNode{
		NodeCode: "STOP",
		Next:     "NEVER",
		Actions: []domain.NodeAction{
			{Kind: domain.ActionAddTag, Payload: map[string]any{"tag": "a"}, SortOrder: 1, Enabled: true},
			{Kind: domain.ActionStopFlow, SortOrder: 2, Enabled: true},
			{Kind: domain.ActionAddTag, Payload: map[string]any{"tag": "b"}, SortOrder: 3, Enabled: true},
		},
	}
	jump := &domain.ActionNode{
		NodeCode: "JUMP",
		Next:     "NEVER",
		Actions: []domain.NodeAction{
			{Kind: domain.ActionGotoNode, Payload: map[string]any{"node_code": "THERE"}, SortOrder: 1, Enabled: true},
			{Kind: domain.ActionAddTag, Payload: map[string]any{"tag": "c"}, SortOrder: 2, Enabled: true},
		},
	}
	home := &domain.ActionNode{
		NodeCode: "HOME",
		Actions:  []domain.NodeAction{{Kind: domain.ActionGotoMain, Enabled: true}},
	}
	f := newFixture(t, []domain.Node{stop, jump, home, message("THERE", ""), message("NEVER", ""), message("START", "")},
		runtime.WithStartNode("START"))

	require.NoError(t, f.eng.EnterNode(ctx, user, "STOP"))
	assert.Empty(t, f.tr.Delivered())

	require.NoError(t, f.eng.EnterNode(ctx, user, "JUMP"))
	assert.Equal(t, []string{"THERE"}, f.tr.Delivered())

	require.NoError(t, f.eng.EnterNode(ctx, user, "HOME"))
	assert.Equal(t, []string{"THERE", "START"}, f.tr.Delivered())

	tags, _ := f.store.Tags(ctx, user)
	assert.Equal(t, []string{"a"}, tags)
}

func TestEngine_RequestAffordances(t *testing.T) {
	ctx := context.Background()
	act := &domain.ActionNode{
		NodeCode: "ASK",
		Actions: []domain.NodeAction{
			{Kind: domain.ActionRequestContact, SortOrder: 1, Enabled: true},
			{Kind: domain.ActionRequestLocation, Payload: map[string]any{"text": "Where?"}, SortOrder: 2, Enabled: true},
		},
	}
	f := newFixture(t, []domain.Node{act})

	require.NoError(t, f.eng.EnterNode(ctx, user, "ASK"))
	sent := f.tr.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "contact", sent[0].Op)
	assert.Equal(t, runtime.DefaultTexts().ShareContact, sent[0].Text)
	assert.Equal(t, testutils.Sent{Op: "location", UserID: user, Text: "Where?"}, sent[1])
}

func TestEngine_MissingNodeFallsBackToStart(t *testing.T) {
	ctx := context.Background()
	var fallbacks []string
	f := newFixture(t, []domain.Node{message("START", "Home", open("Broken", "GONE", 0, 0))},
		runtime.WithStartNode("START"),
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnConfigFallback: func(_ context.Context, e *domain.NodeEvent) { fallbacks = append(fallbacks, e.NodeCode) },
		}))

	require.NoError(t, f.eng.HandlePress(ctx, user, domain.Press{Intent: domain.IntentOpen, NodeCode: "GONE"}))
	assert.Equal(t, []string{"START"}, f.tr.Delivered())
	assert.Equal(t, []string{"GONE"}, fallbacks)
}

func TestEngine_MissingNodeWithoutStartReportsError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []domain.Node{message("A", "")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "GONE"))
	assert.Equal(t, runtime.DefaultTexts().ConfigError, f.tr.Last().Text)

	require.NoError(t, f.eng.HandlePress(ctx, user, domain.Press{Intent: domain.IntentHome}))
	assert.Equal(t, runtime.DefaultTexts().ConfigError, f.tr.Last().Text)
}

func TestEngine_BrokenStartDoesNotLoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []domain.Node{message("A", "")}, runtime.WithStartNode("START"))

	require.NoError(t, f.eng.EnterNode(ctx, user, "GONE"))
	sent := f.tr.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, runtime.DefaultTexts().ConfigError, sent[0].Text)
}

func TestEngine_DisabledNodeIsMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []domain.Node{message("START", "")}, runtime.WithStartNode("START"))
	require.NoError(t, f.cfg.PutNode(ctx, message("PROMO", ""), false))

	require.NoError(t, f.eng.EnterNode(ctx, user, "PROMO"))
	assert.Equal(t, []string{"START"}, f.tr.Delivered())
}

func TestEngine_HopLimit(t *testing.T) {
	ctx := context.Background()
	loop := func(code, next string) *domain.ActionNode {
		return &domain.ActionNode{NodeCode: code, Next: next}
	}
	f := newFixture(t, []domain.Node{loop("A", "B"), loop("B", "A")}, runtime.WithMaxHops(5))

	require.NoError(t, f.eng.EnterNode(ctx, user, "A"))
	assert.Equal(t, runtime.DefaultTexts().ConfigError, f.tr.Last().Text)
}

func TestEngine_ConditionWithoutTarget(t *testing.T) {
	ctx := context.Background()
	cond := &domain.ConditionNode{NodeCode: "C", Operator: domain.OpExists, Key: "x", TrueTarget: "START"}
	f := newFixture(t, []domain.Node{cond, message("START", "")}, runtime.WithStartNode("START"))

	require.NoError(t, f.eng.EnterNode(ctx, user, "C"))
	assert.Equal(t, []string{"START"}, f.tr.Delivered())
}

func TestEngine_Subscription(t *testing.T) {
	ctx := context.Background()
	sub := &domain.SubscriptionNode{
		NodeCode:          "SUB",
		Channels:          []string{"@news", "@deals"},
		FailText:          "Please subscribe first",
		SuccessTarget:     "OK",
		FailTarget:        "NOT_OK",
		UnavailableTarget: "LATER",
	}
	nodes := []domain.Node{sub, message("OK", ""), message("NOT_OK", ""), message("LATER", "")}

	t.Run("member of all", func(t *testing.T) {
		members := testutils.Members{In: map[string]bool{user + "@@news": true, user + "@@deals": true}}
		f := newFixture(t, nodes, runtime.WithMembershipChecker(members))
		require.NoError(t, f.eng.EnterNode(ctx, user, "SUB"))
		assert.Equal(t, []string{"OK"}, f.tr.Delivered())
	})

	t.Run("missing one", func(t *testing.T) {
		members := testutils.Members{In: map[string]bool{user + "@@news": true}}
		f := newFixture(t, nodes, runtime.WithMembershipChecker(members))
		require.NoError(t, f.eng.EnterNode(ctx, user, "SUB"))
		sent := f.tr.Sent()
		require.Len(t, sent, 2)
		assert.Equal(t, "Please subscribe first", sent[0].Text)
		assert.Equal(t, "NOT_OK", sent[1].NodeCode)
	})

	t.Run("lookup failure", func(t *testing.T) {
		members := testutils.Members{Err: errors.New("api down")}
		f := newFixture(t, nodes, runtime.WithMembershipChecker(members))
		require.NoError(t, f.eng.EnterNode(ctx, user, "SUB"))
		assert.Equal(t, []string{"LATER"}, f.tr.Delivered())
	})

	t.Run("no checker", func(t *testing.T) {
		f := newFixture(t, nodes)
		require.NoError(t, f.eng.EnterNode(ctx, user, "SUB"))
		assert.Equal(t, []string{"LATER"}, f.tr.Delivered())
	})
}

func TestEngine_DeliveryFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	var failures int
	f := newFixture(t, []domain.Node{askPhone(), message("START", ""), message("THANKS", "")},
		runtime.WithLifecycleHooks(domain.LifecycleHooks{
			OnDeliveryFailed: func(_ context.Context, e *domain.DeliveryEvent) {
				failures++
				var terr *domain.TransportError
				assert.ErrorAs(t, e.Err, &terr)
			},
		}))
	f.tr.Fail = errors.New("network down")

	require.NoError(t, f.eng.EnterNode(ctx, user, "ASK_PHONE"))
	assert.Equal(t, 1, failures)

	st := f.pending(t)
	require.NotNil(t, st, "state commits even when delivery fails")
	assert.Equal(t, "ASK_PHONE", st.NodeCode)
}

func TestEngine_RenderInterpolatesAndLaysOutButtons(t *testing.T) {
	ctx := context.Background()
	node := message("MENU", "Hi {{name}}",
		open("Cart ({{cart_count}})", "CART", 1, 0),
		open("Catalog", "CATALOG", 0, 0),
		domain.Button{Label: "Site", Kind: domain.TargetURL, Target: "https://example.org", Row: 1, Position: 1},
	)
	f := newFixture(t, []domain.Node{node})
	require.NoError(t, f.store.SetVariable(ctx, user, "name", "Ann"))
	require.NoError(t, f.store.SetVariable(ctx, user, "cart_count", "2"))

	require.NoError(t, f.eng.EnterNode(ctx, user, "MENU"))
	last := f.tr.Last()
	assert.Equal(t, "Hi Ann", last.Text)
	require.Len(t, last.Rows, 2)
	assert.Equal(t, "Catalog", last.Rows[0][0].Label)
	assert.Equal(t, "Cart (2)", last.Rows[1][0].Label)
	assert.Equal(t, "Site", last.Rows[1][1].Label)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	var entered, actions, rejected []string
	hooks := domain.LifecycleHooks{
		OnNodeEnter:     func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, e.NodeCode) },
		OnActionRun:     func(_ context.Context, e *domain.ActionEvent) { actions = append(actions, e.Action) },
		OnInputRejected: func(_ context.Context, e *domain.NodeEvent) { rejected = append(rejected, e.NodeCode) },
	}
	act := &domain.ActionNode{
		NodeCode: "ACT",
		Next:     "ASK_PHONE",
		Actions:  []domain.NodeAction{{Kind: domain.ActionAddTag, Payload: map[string]any{"tag": "x"}, Enabled: true}},
	}
	f := newFixture(t, []domain.Node{act, askPhone(), message("START", ""), message("THANKS", "")},
		runtime.WithLifecycleHooks(hooks))

	require.NoError(t, f.eng.EnterNode(ctx, user, "ACT"))
	_, err := f.eng.HandleMessage(ctx, user, domain.Message{Text: "123"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ACT", "ASK_PHONE"}, entered)
	assert.Equal(t, []string{"ADD_TAG"}, actions)
	assert.Equal(t, []string{"ASK_PHONE"}, rejected)
}

func TestEngine_ReloadsEditedNodes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, []domain.Node{message("START", "v1")})

	require.NoError(t, f.eng.EnterNode(ctx, user, "START"))
	assert.Equal(t, "v1", f.tr.Last().Text)

	require.NoError(t, f.cfg.PutNode(ctx, message("START", "v2"), true))
	require.NoError(t, f.eng.EnterNode(ctx, user, "START"))
	assert.Equal(t, "v2", f.tr.Last().Text)
}
