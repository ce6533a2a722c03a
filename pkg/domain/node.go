package domain

import "sort"

// NodeKind defines the control flow behavior of a node.
type NodeKind string

const (
	// KindMessage renders content and waits for the next button press.
	KindMessage NodeKind = "MESSAGE"
	// KindInput renders content and captures the next message into a variable.
	KindInput NodeKind = "INPUT"
	// KindCondition branches silently on a stored variable.
	KindCondition NodeKind = "CONDITION"
	// KindAction runs an ordered list of NodeActions and continues.
	KindAction NodeKind = "ACTION"
)

// ParseMode tells the transport how to format node text.
type ParseMode string

const (
	ParsePlain    ParseMode = ""
	ParseHTML     ParseMode = "HTML"
	ParseMarkdown ParseMode = "Markdown"
)

// Content is the visible part of a node.
type Content struct {
	Text      string    `json:"text" yaml:"text"`
	ParseMode ParseMode `json:"parse_mode,omitempty" yaml:"parse_mode,omitempty"`
	Image     string    `json:"image,omitempty" yaml:"image,omitempty"`
}

// Node is one step of the conversation graph.
//
// The concrete variants are *MessageNode, *InputNode, *ConditionNode,
// *SubscriptionNode and *ActionNode. Each carries only the fields its kind
// needs; the set is closed.
type Node interface {
	Code() string
	Kind() NodeKind
	sealed()
}

// Base holds the fields shared by nodes that render content.
type Base struct {
	NodeCode string   `json:"code" yaml:"code"`
	Content  Content  `json:"content" yaml:"content"`
	Buttons  []Button `json:"buttons,omitempty" yaml:"buttons,omitempty"`
}

// Code returns the stable identifier of the node.
func (b Base) Code() string { return b.NodeCode }

// MessageNode displays content and buttons.
type MessageNode struct {
	Base `yaml:",inline"`
}

func (*MessageNode) Kind() NodeKind { return KindMessage }
func (*MessageNode) sealed()        {}

// ValueKind is the kind of value an INPUT node expects.
type ValueKind string

const (
	ValueText      ValueKind = "TEXT"
	ValueNumber    ValueKind = "NUMBER"
	ValuePhoneText ValueKind = "PHONE_TEXT"
	ValueContact   ValueKind = "CONTACT"
)

// InputSpec declares what an INPUT node accepts and where the value goes.
type InputSpec struct {
	Kind          ValueKind `json:"kind" yaml:"kind"`
	StorageKey    string    `json:"storage_key" yaml:"storage_key"`
	Required      bool      `json:"required" yaml:"required"`
	MinLength     int       `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	ErrorText     string    `json:"error_text,omitempty" yaml:"error_text,omitempty"`
	SuccessTarget string    `json:"success_target,omitempty" yaml:"success_target,omitempty"`
	CancelTarget  string    `json:"cancel_target,omitempty" yaml:"cancel_target,omitempty"`
}

// InputNode displays content and waits for a value.
type InputNode struct {
	Base  `yaml:",inline"`
	Input InputSpec `json:"input" yaml:"input"`
}

func (*InputNode) Kind() NodeKind { return KindInput }
func (*InputNode) sealed()        {}

// Operator is a comparison used by CONDITION nodes.
type Operator string

const (
	OpExists     Operator = "EXISTS"
	OpNotExists  Operator = "NOT_EXISTS"
	OpEq         Operator = "EQ"
	OpNeq        Operator = "NEQ"
	OpContains   Operator = "CONTAINS"
	OpStartsWith Operator = "STARTS_WITH"
	OpEndsWith   Operator = "ENDS_WITH"
	OpGt         Operator = "GT"
	OpGte        Operator = "GTE"
	OpLt         Operator = "LT"
	OpLte        Operator = "LTE"
)

// ConditionNode compares a user variable with a literal and branches.
type ConditionNode struct {
	NodeCode    string   `json:"code" yaml:"code"`
	Operator    Operator `json:"operator" yaml:"operator"`
	Key         string   `json:"key" yaml:"key"`
	Literal     string   `json:"literal,omitempty" yaml:"literal,omitempty"`
	TrueTarget  string   `json:"true_target,omitempty" yaml:"true_target,omitempty"`
	FalseTarget string   `json:"false_target,omitempty" yaml:"false_target,omitempty"`
}

func (n *ConditionNode) Code() string { return n.NodeCode }
func (*ConditionNode) Kind() NodeKind { return KindCondition }
func (*ConditionNode) sealed()        {}

// SubscriptionNode is the built-in channel membership check.
// It is a CONDITION variant that does not use the generic operators.
type SubscriptionNode struct {
	NodeCode string   `json:"code" yaml:"code"`
	Channels []string `json:"channels" yaml:"channels"`
	// FailText is sent to the user before routing to FailTarget.
	FailText          string `json:"fail_text,omitempty" yaml:"fail_text,omitempty"`
	SuccessTarget     string `json:"success_target,omitempty" yaml:"success_target,omitempty"`
	FailTarget        string `json:"fail_target,omitempty" yaml:"fail_target,omitempty"`
	UnavailableTarget string `json:"unavailable_target,omitempty" yaml:"unavailable_target,omitempty"`
}

func (n *SubscriptionNode) Code() string { return n.NodeCode }
func (*SubscriptionNode) Kind() NodeKind { return KindCondition }
func (*SubscriptionNode) sealed()        {}

// ActionNode runs its actions in sort order and then continues to Next.
type ActionNode struct {
	NodeCode string       `json:"code" yaml:"code"`
	Actions  []NodeAction `json:"actions,omitempty" yaml:"actions,omitempty"`
	Next     string       `json:"next,omitempty" yaml:"next,omitempty"`
}

func (n *ActionNode) Code() string { return n.NodeCode }
func (*ActionNode) Kind() NodeKind { return KindAction }
func (*ActionNode) sealed()        {}

// SortActions orders actions by their sort key, keeping insertion order for ties.
func SortActions(actions []NodeAction) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].SortOrder < actions[j].SortOrder
	})
}

// Targets lists every node code a node can continue to.
// Empty targets are omitted.
func Targets(n Node) []string {
	var out []string
	add := func(codes ...string) {
		for _, c := range codes {
			if c != "" {
				out = append(out, c)
			}
		}
	}
	switch v := n.(type) {
	case *MessageNode:
		add(buttonTargets(v.Buttons)...)
	case *InputNode:
		add(buttonTargets(v.Buttons)...)
		add(v.Input.SuccessTarget, v.Input.CancelTarget)
	case *ConditionNode:
		add(v.TrueTarget, v.FalseTarget)
	case *SubscriptionNode:
		add(v.SuccessTarget, v.FailTarget, v.UnavailableTarget)
	case *ActionNode:
		add(v.Next)
		for _, a := range v.Actions {
			if a.Kind == ActionGotoNode {
				if code, ok := a.Payload["node_code"].(string); ok {
					add(code)
				}
			}
		}
	}
	return out
}

func buttonTargets(buttons []Button) []string {
	var out []string
	for _, b := range buttons {
		if b.Kind == TargetNode {
			out = append(out, b.Target)
		}
	}
	return out
}
