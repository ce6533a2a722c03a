package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/storeflow/pkg/domain"
)

func TestBuilder_LeadFlow(t *testing.T) {
	b := New()

	b.Message("MAIN").
		Text("Welcome").
		Button("Call me", "ASK_PHONE").
		URL("Site", "https://shop.example").
		Row().
		Button("Deals", "CHECK")

	b.Input("ASK_PHONE").
		Text("Your phone?").
		Expect(domain.ValuePhoneText, "phone").
		OnSuccess("SAVE").
		OnCancel("MAIN").
		Cancel("Never mind")

	b.Condition("CHECK").
		When("phone", domain.OpExists, "").
		Then("MAIN").
		Else("ASK_PHONE")

	b.Action("SAVE").
		AddTag("lead").
		SendAdmin("Call {{phone}}").
		Next("MAIN")

	nodes := b.Nodes()
	if len(nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(nodes))
	}
	if nodes[0].Code() != "MAIN" || nodes[3].Code() != "SAVE" {
		t.Errorf("nodes out of insertion order: %s..%s", nodes[0].Code(), nodes[3].Code())
	}

	home := nodes[0].(*domain.MessageNode)
	if len(home.Buttons) != 3 {
		t.Fatalf("expected 3 buttons, got %d", len(home.Buttons))
	}
	rows := domain.Layout(home.Buttons)
	if len(rows) != 2 || len(rows[0]) != 2 {
		t.Fatalf("unexpected layout: %+v", rows)
	}
	if rows[1][0].Target != "CHECK" || rows[1][0].Position != 0 {
		t.Errorf("second row should start with Deals, got %+v", rows[1][0])
	}

	in := nodes[1].(*domain.InputNode)
	if in.Input.Kind != domain.ValuePhoneText || in.Input.StorageKey != "phone" || !in.Input.Required {
		t.Errorf("unexpected input spec: %+v", in.Input)
	}
	if in.Buttons[0].Kind != domain.TargetCancel || in.Buttons[0].Target != "ASK_PHONE" {
		t.Errorf("cancel button should target its own node: %+v", in.Buttons[0])
	}

	cfg := b.Build()
	actions, err := cfg.ListActions(context.Background(), "SAVE")
	if err != nil {
		t.Fatalf("ListActions failed: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	if actions[0].Kind != domain.ActionAddTag || actions[1].SortOrder != 1 {
		t.Errorf("unexpected actions: %+v", actions)
	}

	enabled, err := cfg.ListEnabledNodes(context.Background())
	if err != nil {
		t.Fatalf("ListEnabledNodes failed: %v", err)
	}
	if len(enabled) != 4 {
		t.Errorf("expected 4 enabled nodes, got %d", len(enabled))
	}
}

func TestBuilder_ReplacesNode(t *testing.T) {
	b := New()
	b.Message("MAIN").Text("first")
	b.Input("OTHER")
	b.Message("MAIN").Text("second")

	nodes := b.Nodes()
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if got := nodes[0].(*domain.MessageNode).Content.Text; got != "second" {
		t.Errorf("expected replaced text, got %q", got)
	}
}

func TestBuilder_Subscription(t *testing.T) {
	b := New()
	b.Subscription("GATE", "@news").Then("MAIN").Else("JOIN", "Join first").Unavailable("MAIN")

	n := b.Nodes()[0].(*domain.SubscriptionNode)
	if n.FailText != "Join first" || n.FailTarget != "JOIN" || n.UnavailableTarget != "MAIN" {
		t.Errorf("unexpected node: %+v", n)
	}
	if got := domain.Targets(n); len(got) != 3 {
		t.Errorf("expected 3 targets, got %v", got)
	}
}
