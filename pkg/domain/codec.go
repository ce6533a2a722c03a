package domain

import "fmt"

// NodeType is the storage discriminator of a node variant. It is finer than
// NodeKind: subscription checks are CONDITION nodes with their own shape.
type NodeType string

const (
	TypeMessage      NodeType = "MESSAGE"
	TypeInput        NodeType = "INPUT"
	TypeCondition    NodeType = "CONDITION"
	TypeSubscription NodeType = "SUBSCRIPTION"
	TypeAction       NodeType = "ACTION"
)

// TypeOf returns the discriminator used to persist n.
func TypeOf(n Node) NodeType {
	switch n.(type) {
	case *MessageNode:
		return TypeMessage
	case *InputNode:
		return TypeInput
	case *ConditionNode:
		return TypeCondition
	case *SubscriptionNode:
		return TypeSubscription
	case *ActionNode:
		return TypeAction
	}
	return ""
}

// NewNode returns an empty node of the given type, ready to be decoded into.
func NewNode(t NodeType) (Node, error) {
	switch t {
	case TypeMessage:
		return &MessageNode{}, nil
	case TypeInput:
		return &InputNode{}, nil
	case TypeCondition:
		return &ConditionNode{}, nil
	case TypeSubscription:
		return &SubscriptionNode{}, nil
	case TypeAction:
		return &ActionNode{}, nil
	}
	return nil, fmt.Errorf("unknown node type %q", t)
}

// SetCode assigns the code of a freshly decoded node.
func SetCode(n Node, code string) {
	switch v := n.(type) {
	case *MessageNode:
		v.NodeCode = code
	case *InputNode:
		v.NodeCode = code
	case *ConditionNode:
		v.NodeCode = code
	case *SubscriptionNode:
		v.NodeCode = code
	case *ActionNode:
		v.NodeCode = code
	}
}
