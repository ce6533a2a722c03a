package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/storeflow/internal/presentation/graph"
	"github.com/aretw0/storeflow/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []domain.Node
		start    string
		contains []string
		excludes []string
	}{
		{
			name:     "Start Node Shape",
			nodes:    []domain.Node{&domain.MessageNode{Base: domain.Base{NodeCode: "MAIN"}}},
			start:    "MAIN",
			contains: []string{`MAIN(("MAIN"))`},
		},
		{
			name: "Shapes By Type",
			nodes: []domain.Node{
				&domain.InputNode{Base: domain.Base{NodeCode: "ASK"}},
				&domain.ConditionNode{NodeCode: "IF"},
				&domain.SubscriptionNode{NodeCode: "SUB"},
				&domain.ActionNode{NodeCode: "ACT"},
				&domain.MessageNode{Base: domain.Base{NodeCode: "MSG"}},
			},
			contains: []string{
				`ASK[/"ASK"/]`,
				`IF{"IF"}`,
				`SUB{{"SUB"}}`,
				`ACT[["ACT"]]`,
				`MSG["MSG"]`,
			},
		},
		{
			name: "Button Labels And Escaping",
			nodes: []domain.Node{
				&domain.MessageNode{Base: domain.Base{NodeCode: "A", Buttons: []domain.Button{
					{Label: `Say "hi"`, Kind: domain.TargetNode, Target: "B"},
					{Label: "Site", Kind: domain.TargetURL, Target: "https://example.org"},
				}}},
				&domain.MessageNode{Base: domain.Base{NodeCode: "B"}},
			},
			contains: []string{`A -- "Say 'hi'" --> B`},
			excludes: []string{"example.org", "missing"},
		},
		{
			name: "Branches And Goto",
			nodes: []domain.Node{
				&domain.ConditionNode{NodeCode: "IF", Operator: domain.OpExists, Key: "phone", TrueTarget: "YES", FalseTarget: "NO"},
				&domain.ActionNode{NodeCode: "ACT", Next: "YES", Actions: []domain.NodeAction{
					{Kind: domain.ActionGotoNode, Payload: map[string]any{domain.PayloadNodeCode: "NO"}},
				}},
				&domain.MessageNode{Base: domain.Base{NodeCode: "YES"}},
				&domain.MessageNode{Base: domain.Base{NodeCode: "NO"}},
			},
			contains: []string{
				`IF -- "else" --> NO`,
				`ACT -. "goto" .-> NO`,
				"ACT --> YES",
			},
		},
		{
			name: "Missing Targets",
			nodes: []domain.Node{
				&domain.ActionNode{NodeCode: "ACT", Next: "GONE-1"},
			},
			contains: []string{
				"ACT --> GONE_1",
				"class GONE_1 missing;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.nodes, tt.start)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnwanted substring: %v", got, unwanted)
				}
			}
		})
	}
}
