package domain

// ActionKind identifies one imperative step inside an ACTION node.
type ActionKind string

const (
	ActionSetVar           ActionKind = "SET_VAR"
	ActionClearVar         ActionKind = "CLEAR_VAR"
	ActionIncrementVar     ActionKind = "INCREMENT_VAR"
	ActionDecrementVar     ActionKind = "DECREMENT_VAR"
	ActionAddTag           ActionKind = "ADD_TAG"
	ActionRemoveTag        ActionKind = "REMOVE_TAG"
	ActionSendMessage      ActionKind = "SEND_MESSAGE"
	ActionSendAdminMessage ActionKind = "SEND_ADMIN_MESSAGE"
	ActionGotoNode         ActionKind = "GOTO_NODE"
	ActionGotoMain         ActionKind = "GOTO_MAIN"
	ActionStopFlow         ActionKind = "STOP_FLOW"
	ActionRequestContact   ActionKind = "REQUEST_CONTACT"
	ActionRequestLocation  ActionKind = "REQUEST_LOCATION"
)

// NodeAction is one step of an ACTION node.
// Payload is a kind-specific bag, e.g. {key, value} for SET_VAR or
// {node_code} for GOTO_NODE.
type NodeAction struct {
	ID        int64          `json:"id,omitempty" yaml:"id,omitempty"`
	Kind      ActionKind     `json:"kind" yaml:"kind"`
	Payload   map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
	SortOrder int            `json:"sort_order" yaml:"sort_order"`
	Enabled   bool           `json:"enabled" yaml:"enabled"`
}

// Delivery is rendered node content handed to the transport.
type Delivery struct {
	NodeCode  string
	Text      string
	ParseMode ParseMode
	Image     string
	Rows      [][]Button
}

// Message is an inbound user message.
type Message struct {
	Text    string   `json:"text,omitempty"`
	Contact *Contact `json:"contact,omitempty"`
}

// Contact is a structured contact shared by the user.
type Contact struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}
