package dsl

import (
	"github.com/aretw0/storeflow/pkg/adapters/memory"
	"github.com/aretw0/storeflow/pkg/domain"
)

// Builder manages the graph construction.
type Builder struct {
	order []string
	nodes map[string]domain.Node
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{nodes: make(map[string]domain.Node)}
}

func (b *Builder) add(n domain.Node) {
	if _, ok := b.nodes[n.Code()]; !ok {
		b.order = append(b.order, n.Code())
	}
	b.nodes[n.Code()] = n
}

// Message adds a MESSAGE node. Adding a code twice replaces the first node.
func (b *Builder) Message(code string) *MessageBuilder {
	n := &domain.MessageNode{Base: domain.Base{NodeCode: code}}
	b.add(n)
	return &MessageBuilder{buttons: buttons{base: &n.Base}}
}

// Input adds an INPUT node expecting TEXT until Expect says otherwise.
func (b *Builder) Input(code string) *InputBuilder {
	n := &domain.InputNode{
		Base:  domain.Base{NodeCode: code},
		Input: domain.InputSpec{Kind: domain.ValueText, Required: true},
	}
	b.add(n)
	return &InputBuilder{buttons: buttons{base: &n.Base}, node: n}
}

// Condition adds a CONDITION node.
func (b *Builder) Condition(code string) *ConditionBuilder {
	n := &domain.ConditionNode{NodeCode: code}
	b.add(n)
	return &ConditionBuilder{node: n}
}

// Subscription adds a membership check over channels.
func (b *Builder) Subscription(code string, channels ...string) *SubscriptionBuilder {
	n := &domain.SubscriptionNode{NodeCode: code, Channels: channels}
	b.add(n)
	return &SubscriptionBuilder{node: n}
}

// Action adds an ACTION node.
func (b *Builder) Action(code string) *ActionBuilder {
	n := &domain.ActionNode{NodeCode: code}
	b.add(n)
	return &ActionBuilder{node: n}
}

// Nodes returns the nodes in the order they were first added.
func (b *Builder) Nodes() []domain.Node {
	out := make([]domain.Node, 0, len(b.order))
	for _, code := range b.order {
		out = append(out, b.nodes[code])
	}
	return out
}

// Build compiles the graph into an in-memory configuration store with every
// node enabled.
func (b *Builder) Build() *memory.ConfigStore {
	return memory.NewFromNodes(b.Nodes()...)
}
