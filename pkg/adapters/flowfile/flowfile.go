// Package flowfile reads a YAML bundle of nodes, automation rules and button
// presets and applies it to a configuration store.
//
//	start: MAIN
//	nodes:
//	  - type: MESSAGE
//	    code: MAIN
//	    content: {text: "Welcome!"}
//	    buttons: [{label: Catalog, kind: node, target: CATALOG}]
//	rules:
//	  - id: webapp-orders
//	    trigger: EXTERNAL_ORDER_RECEIVED
//	    conditions: [{key: source, value: webapp}]
//	    actions: [{kind: SAVE_ORDER}]
//	presets:
//	  - id: order-admin
//	    scope: admin
//	    buttons: [{label: Orders, kind: url, target: "https://shop.example/admin"}]
//
// Everything is enabled unless it says `enabled: false`.
package flowfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Bundle is a decoded flow file.
type Bundle struct {
	Start   string   `yaml:"start,omitempty"`
	Nodes   []Node   `yaml:"nodes"`
	Rules   []Rule   `yaml:"rules,omitempty"`
	Presets []Preset `yaml:"presets,omitempty"`
}

// Node is one node entry of a bundle.
type Node struct {
	domain.Node
	Enabled bool
}

// Rule is one rule entry of a bundle.
type Rule struct {
	domain.AutomationRule `yaml:",inline"`
}

// Preset is one preset entry of a bundle.
type Preset struct {
	domain.ButtonPreset `yaml:",inline"`
}

// Load reads and parses the bundle at path.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open flow file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a bundle. Unknown fields are rejected.
func Parse(r io.Reader) (*Bundle, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var b Bundle
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return &b, nil
		}
		return nil, fmt.Errorf("failed to parse flow file: %w", err)
	}

	seen := make(map[string]bool, len(b.Nodes))
	for _, n := range b.Nodes {
		if seen[n.Code()] {
			return nil, fmt.Errorf("duplicate node code '%s'", n.Code())
		}
		seen[n.Code()] = true
	}
	return &b, nil
}

// Apply saves every entry of the bundle through admin.
func (b *Bundle) Apply(ctx context.Context, admin ports.ConfigurationAdmin) error {
	for _, n := range b.Nodes {
		if err := admin.PutNode(ctx, n.Node, n.Enabled); err != nil {
			return fmt.Errorf("failed to save node %s: %w", n.Code(), err)
		}
	}
	for _, p := range b.Presets {
		if err := admin.PutPreset(ctx, p.ButtonPreset); err != nil {
			return fmt.Errorf("failed to save preset %s: %w", p.ID, err)
		}
	}
	for _, r := range b.Rules {
		if err := admin.PutRule(ctx, r.AutomationRule); err != nil {
			return fmt.Errorf("failed to save rule %s: %w", r.ID, err)
		}
	}
	return nil
}

type nodeHeader struct {
	Type string `yaml:"type"`
	Code string `yaml:"code"`
}

func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	var head nodeHeader
	if err := value.Decode(&head); err != nil {
		return err
	}
	if head.Code == "" {
		return fmt.Errorf("line %d: node without code", value.Line)
	}
	typ := domain.NodeType(strings.ToUpper(head.Type))
	if typ == "" {
		typ = domain.TypeMessage
	}
	node, err := domain.NewNode(typ)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	body := withoutKeys(value, "type", "enabled")
	if err := body.Decode(node); err != nil {
		return fmt.Errorf("node %s: %w", head.Code, err)
	}
	if act, ok := node.(*domain.ActionNode); ok {
		defaultActionsEnabled(act, mappingValue(value, "actions"))
	}

	n.Node = node
	n.Enabled = enabledFlag(value)
	return nil
}

func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode(&r.AutomationRule); err != nil {
		return err
	}
	r.Enabled = enabledFlag(value)
	if r.ID == "" {
		return fmt.Errorf("line %d: rule without id", value.Line)
	}
	return nil
}

func (p *Preset) UnmarshalYAML(value *yaml.Node) error {
	if err := value.Decode(&p.ButtonPreset); err != nil {
		return err
	}
	p.Enabled = enabledFlag(value)
	if p.ID == "" {
		return fmt.Errorf("line %d: preset without id", value.Line)
	}
	return nil
}

// enabledFlag reads the optional enabled key of a mapping, defaulting to true.
func enabledFlag(value *yaml.Node) bool {
	v := mappingValue(value, "enabled")
	if v == nil {
		return true
	}
	var enabled bool
	if err := v.Decode(&enabled); err != nil {
		return true
	}
	return enabled
}

func mappingValue(value *yaml.Node, key string) *yaml.Node {
	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == key {
			return value.Content[i+1]
		}
	}
	return nil
}

// withoutKeys returns a shallow copy of a mapping without the given keys.
func withoutKeys(value *yaml.Node, keys ...string) *yaml.Node {
	if value.Kind != yaml.MappingNode {
		return value
	}
	out := *value
	out.Content = nil
	for i := 0; i+1 < len(value.Content); i += 2 {
		skip := false
		for _, k := range keys {
			if value.Content[i].Value == k {
				skip = true
				break
			}
		}
		if !skip {
			out.Content = append(out.Content, value.Content[i], value.Content[i+1])
		}
	}
	return &out
}

func defaultActionsEnabled(act *domain.ActionNode, seq *yaml.Node) {
	if seq == nil || seq.Kind != yaml.SequenceNode {
		return
	}
	for i := range act.Actions {
		if i < len(seq.Content) && mappingValue(seq.Content[i], "enabled") == nil {
			act.Actions[i].Enabled = true
		}
		if act.Actions[i].ID == 0 {
			act.Actions[i].ID = int64(i + 1)
		}
	}
}
