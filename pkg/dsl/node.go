package dsl

import "github.com/aretw0/storeflow/pkg/domain"

// buttons lays out the keyboard of a rendering node. Buttons fill the
// current row until Row starts a new one.
type buttons struct {
	base *domain.Base
	row  int
	pos  int
}

func (k *buttons) push(label string, kind domain.TargetKind, target string) {
	k.base.Buttons = append(k.base.Buttons, domain.Button{
		Label:    label,
		Row:      k.row,
		Position: k.pos,
		Kind:     kind,
		Target:   target,
	})
	k.pos++
}

func (k *buttons) newRow() {
	k.row++
	k.pos = 0
}

// MessageBuilder configures a MESSAGE node.
type MessageBuilder struct {
	buttons
}

// Text sets the node text. It may use {{var}} placeholders.
func (m *MessageBuilder) Text(text string) *MessageBuilder {
	m.base.Content.Text = text
	return m
}

// Format sets the parse mode of the text.
func (m *MessageBuilder) Format(mode domain.ParseMode) *MessageBuilder {
	m.base.Content.ParseMode = mode
	return m
}

// Image attaches an image URL.
func (m *MessageBuilder) Image(url string) *MessageBuilder {
	m.base.Content.Image = url
	return m
}

// Button adds a button opening the target node.
func (m *MessageBuilder) Button(label, target string) *MessageBuilder {
	m.push(label, domain.TargetNode, target)
	return m
}

// URL adds a link button.
func (m *MessageBuilder) URL(label, url string) *MessageBuilder {
	m.push(label, domain.TargetURL, url)
	return m
}

// WebApp adds a web app button.
func (m *MessageBuilder) WebApp(label, url string) *MessageBuilder {
	m.push(label, domain.TargetWebApp, url)
	return m
}

// Home adds a button back to the start node.
func (m *MessageBuilder) Home(label string) *MessageBuilder {
	m.push(label, domain.TargetHome, "")
	return m
}

// Row starts a new keyboard row.
func (m *MessageBuilder) Row() *MessageBuilder {
	m.newRow()
	return m
}

// InputBuilder configures an INPUT node.
type InputBuilder struct {
	buttons
	node *domain.InputNode
}

func (i *InputBuilder) Text(text string) *InputBuilder {
	i.base.Content.Text = text
	return i
}

// Expect sets the value kind and the variable the value is stored in.
func (i *InputBuilder) Expect(kind domain.ValueKind, key string) *InputBuilder {
	i.node.Input.Kind = kind
	i.node.Input.StorageKey = key
	return i
}

// Optional lets an empty value through.
func (i *InputBuilder) Optional() *InputBuilder {
	i.node.Input.Required = false
	return i
}

func (i *InputBuilder) MinLength(n int) *InputBuilder {
	i.node.Input.MinLength = n
	return i
}

// ErrorText replaces the generic rejection message.
func (i *InputBuilder) ErrorText(text string) *InputBuilder {
	i.node.Input.ErrorText = text
	return i
}

func (i *InputBuilder) OnSuccess(target string) *InputBuilder {
	i.node.Input.SuccessTarget = target
	return i
}

func (i *InputBuilder) OnCancel(target string) *InputBuilder {
	i.node.Input.CancelTarget = target
	return i
}

// Cancel adds a button that cancels this input.
func (i *InputBuilder) Cancel(label string) *InputBuilder {
	i.push(label, domain.TargetCancel, i.node.NodeCode)
	return i
}

// ConditionBuilder configures a CONDITION node.
type ConditionBuilder struct {
	node *domain.ConditionNode
}

// When sets the comparison. literal is ignored by EXISTS and NOT_EXISTS.
func (c *ConditionBuilder) When(key string, op domain.Operator, literal string) *ConditionBuilder {
	c.node.Key = key
	c.node.Operator = op
	c.node.Literal = literal
	return c
}

func (c *ConditionBuilder) Then(target string) *ConditionBuilder {
	c.node.TrueTarget = target
	return c
}

func (c *ConditionBuilder) Else(target string) *ConditionBuilder {
	c.node.FalseTarget = target
	return c
}

// SubscriptionBuilder configures a membership check.
type SubscriptionBuilder struct {
	node *domain.SubscriptionNode
}

func (s *SubscriptionBuilder) Then(target string) *SubscriptionBuilder {
	s.node.SuccessTarget = target
	return s
}

// Else routes non-members to target after sending text, if any.
func (s *SubscriptionBuilder) Else(target, text string) *SubscriptionBuilder {
	s.node.FailTarget = target
	s.node.FailText = text
	return s
}

// Unavailable routes to target when membership cannot be checked.
func (s *SubscriptionBuilder) Unavailable(target string) *SubscriptionBuilder {
	s.node.UnavailableTarget = target
	return s
}

// ActionBuilder configures an ACTION node. Actions run in the order added.
type ActionBuilder struct {
	node *domain.ActionNode
}

// Do appends an enabled action.
func (a *ActionBuilder) Do(kind domain.ActionKind, payload map[string]any) *ActionBuilder {
	a.node.Actions = append(a.node.Actions, domain.NodeAction{
		Kind:      kind,
		Payload:   payload,
		SortOrder: len(a.node.Actions),
		Enabled:   true,
	})
	return a
}

func (a *ActionBuilder) SetVar(key, value string) *ActionBuilder {
	return a.Do(domain.ActionSetVar, map[string]any{"key": key, "value": value})
}

func (a *ActionBuilder) AddTag(tag string) *ActionBuilder {
	return a.Do(domain.ActionAddTag, map[string]any{"tag": tag})
}

func (a *ActionBuilder) SendAdmin(text string) *ActionBuilder {
	return a.Do(domain.ActionSendAdminMessage, map[string]any{"text": text})
}

func (a *ActionBuilder) Goto(code string) *ActionBuilder {
	return a.Do(domain.ActionGotoNode, map[string]any{"node_code": code})
}

// Next sets the node entered after the actions.
func (a *ActionBuilder) Next(target string) *ActionBuilder {
	a.node.Next = target
	return a
}
