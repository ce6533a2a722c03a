package domain

import "time"

// TriggerKind is the business event an AutomationRule reacts to.
type TriggerKind string

const (
	// TriggerOrderReceived fires when an order arrives from an external storefront.
	TriggerOrderReceived TriggerKind = "EXTERNAL_ORDER_RECEIVED"
)

// RuleActionKind identifies one step of an automation rule.
type RuleActionKind string

const (
	RuleSaveOrder        RuleActionKind = "SAVE_ORDER"
	RuleAttachButtons    RuleActionKind = "ATTACH_BUTTONS"
	RuleSendUserMessage  RuleActionKind = "SEND_USER_MESSAGE"
	RuleSendAdminMessage RuleActionKind = "SEND_ADMIN_MESSAGE"
)

// RuleCondition is a key/value predicate over the event fields.
type RuleCondition struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ItemField selects one column of an itemized line.
type ItemField string

const (
	ItemTitle ItemField = "title"
	ItemQty   ItemField = "qty"
	ItemPrice ItemField = "price"
	ItemSum   ItemField = "sum"
)

// MessageTemplate is the text of a rule message plus its item block settings.
type MessageTemplate struct {
	Text         string      `json:"text" yaml:"text"`
	ParseMode    ParseMode   `json:"parse_mode,omitempty" yaml:"parse_mode,omitempty"`
	ShowItems    bool        `json:"show_items" yaml:"show_items"`
	ItemFields   []ItemField `json:"item_fields,omitempty" yaml:"item_fields,omitempty"`
	ItemsHeading string      `json:"items_heading,omitempty" yaml:"items_heading,omitempty"`
}

// RuleAction is one ordered step of an AutomationRule.
type RuleAction struct {
	Kind RuleActionKind `json:"kind" yaml:"kind"`
	// PresetID and Audience are used by ATTACH_BUTTONS.
	PresetID string   `json:"preset_id,omitempty" yaml:"preset_id,omitempty"`
	Audience Audience `json:"audience,omitempty" yaml:"audience,omitempty"`
	// Template is used by the SEND_* actions.
	Template MessageTemplate `json:"template,omitempty" yaml:"template,omitempty"`
}

// AutomationRule reacts to a business event when every condition matches.
type AutomationRule struct {
	ID         string          `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	Trigger    TriggerKind     `json:"trigger" yaml:"trigger"`
	Conditions []RuleCondition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
	Actions    []RuleAction    `json:"actions" yaml:"actions"`
	Enabled    bool            `json:"enabled" yaml:"enabled"`
}

// Item is one line of an order.
type Item struct {
	Title string  `json:"title"`
	Qty   int     `json:"qty"`
	Price float64 `json:"price"`
}

// Sum returns price times quantity.
func (i Item) Sum() float64 { return i.Price * float64(i.Qty) }

// Event is a business event handed to the automation engine.
type Event struct {
	Trigger TriggerKind `json:"trigger"`
	// UserID addresses the end user, if the event has one.
	UserID string `json:"user_id,omitempty"`
	// Fields are matched by rule conditions and exposed to templates, e.g. source=webapp.
	Fields   map[string]string `json:"fields,omitempty"`
	Items    []Item            `json:"items,omitempty"`
	Currency string            `json:"currency,omitempty"`
}

// Total sums every item line.
func (e Event) Total() float64 {
	var total float64
	for _, it := range e.Items {
		total += it.Sum()
	}
	return total
}

// Order is a persisted order.
type Order struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Items     []Item            `json:"items"`
	Currency  string            `json:"currency,omitempty"`
	Total     float64           `json:"total"`
	CreatedAt time.Time         `json:"created_at"`
}

// OrderFromEvent builds the order an event describes. ID is assigned by the store.
func OrderFromEvent(e Event) Order {
	fields := make(map[string]string, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	items := make([]Item, len(e.Items))
	copy(items, e.Items)
	return Order{
		UserID:    e.UserID,
		Fields:    fields,
		Items:     items,
		Currency:  e.Currency,
		Total:     e.Total(),
		CreatedAt: time.Now().UTC(),
	}
}
