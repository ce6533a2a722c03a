package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/storeflow/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of the nodes.
// Shapes follow the node type:
//   - Start: ((Circle))
//   - INPUT: [/Parallelogram/]
//   - CONDITION: {Rhombus}
//   - SUBSCRIPTION: {{Hexagon}}
//   - ACTION: [[Subroutine]]
//   - MESSAGE: [Rectangle]
//
// Targets that are not among nodes are drawn with the "missing" class.
func GenerateMermaid(nodes []domain.Node, start string) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sorted := make([]domain.Node, len(nodes))
	copy(sorted, nodes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code() < sorted[j].Code() })

	known := make(map[string]bool, len(sorted))
	for _, n := range sorted {
		known[n.Code()] = true
	}

	missing := make(map[string]bool)
	edge := func(from, to, label string, dotted bool) {
		if to == "" {
			return
		}
		if !known[to] {
			missing[to] = true
		}
		arrow := "-->"
		if dotted {
			arrow = "-.->"
		}
		if label != "" {
			label = strings.ReplaceAll(label, "\"", "'")
			arrow = fmt.Sprintf("-- \"%s\" -->", label)
			if dotted {
				arrow = fmt.Sprintf("-. \"%s\" .->", label)
			}
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(from), arrow, sanitizeMermaidID(to))
	}

	for _, n := range sorted {
		code := n.Code()
		opener, closer := shape(n)
		if code == start {
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(code), opener, code, closer)

		switch v := n.(type) {
		case *domain.MessageNode:
			buttonEdges(v.Buttons, code, edge)
		case *domain.InputNode:
			buttonEdges(v.Buttons, code, edge)
			edge(code, v.Input.SuccessTarget, "valid", false)
			edge(code, v.Input.CancelTarget, "cancel", true)
		case *domain.ConditionNode:
			test := fmt.Sprintf("%s %s %s", v.Key, v.Operator, v.Literal)
			edge(code, v.TrueTarget, strings.TrimSpace(test), false)
			edge(code, v.FalseTarget, "else", false)
		case *domain.SubscriptionNode:
			edge(code, v.SuccessTarget, "member", false)
			edge(code, v.FailTarget, "not member", false)
			edge(code, v.UnavailableTarget, "unknown", true)
		case *domain.ActionNode:
			for _, a := range v.Actions {
				if a.Kind != domain.ActionGotoNode {
					continue
				}
				target, _ := a.Payload[domain.PayloadNodeCode].(string)
				edge(code, target, "goto", true)
			}
			edge(code, v.Next, "", false)
		}
	}

	if len(missing) > 0 {
		codes := make([]string, 0, len(missing))
		for code := range missing {
			codes = append(codes, code)
		}
		sort.Strings(codes)

		sb.WriteString("\n    %% Missing or disabled targets\n")
		sb.WriteString("    classDef missing fill:#fee2e2,stroke:#b91c1c,stroke-dasharray: 5 5,color:#000;\n")
		for _, code := range codes {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", sanitizeMermaidID(code), code)
			fmt.Fprintf(&sb, "    class %s missing;\n", sanitizeMermaidID(code))
		}
	}

	return sb.String()
}

func shape(n domain.Node) (string, string) {
	switch n.(type) {
	case *domain.InputNode:
		return "[/", "/]"
	case *domain.ConditionNode:
		return "{", "}"
	case *domain.SubscriptionNode:
		return "{{", "}}"
	case *domain.ActionNode:
		return "[[", "]]"
	}
	return "[", "]"
}

func buttonEdges(buttons []domain.Button, from string, edge func(from, to, label string, dotted bool)) {
	for _, b := range buttons {
		if b.Kind == domain.TargetNode {
			edge(from, b.Target, b.Label, false)
		}
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
