package loam

import "github.com/aretw0/storeflow/pkg/domain"

// NodeMetadata is the frontmatter of a node document. The document body is
// the node text.
type NodeMetadata struct {
	Code    string `json:"code" mapstructure:"code" yaml:"code"`
	Type    string `json:"type" mapstructure:"type" yaml:"type"`
	Enabled *bool  `json:"enabled,omitempty" mapstructure:"enabled" yaml:"enabled,omitempty"`

	ParseMode string          `json:"parse_mode,omitempty" mapstructure:"parse_mode" yaml:"parse_mode,omitempty"`
	Image     string          `json:"image,omitempty" mapstructure:"image" yaml:"image,omitempty"`
	Buttons   []domain.Button `json:"buttons,omitempty" mapstructure:"buttons" yaml:"buttons,omitempty"`

	Input *InputMetadata `json:"input,omitempty" mapstructure:"input" yaml:"input,omitempty"`

	// Condition
	Operator    string `json:"operator,omitempty" mapstructure:"operator" yaml:"operator,omitempty"`
	Key         string `json:"key,omitempty" mapstructure:"key" yaml:"key,omitempty"`
	Literal     string `json:"literal,omitempty" mapstructure:"literal" yaml:"literal,omitempty"`
	TrueTarget  string `json:"true_target,omitempty" mapstructure:"true_target" yaml:"true_target,omitempty"`
	FalseTarget string `json:"false_target,omitempty" mapstructure:"false_target" yaml:"false_target,omitempty"`

	// Subscription
	Channels          []string `json:"channels,omitempty" mapstructure:"channels" yaml:"channels,omitempty"`
	FailText          string   `json:"fail_text,omitempty" mapstructure:"fail_text" yaml:"fail_text,omitempty"`
	SuccessTarget     string   `json:"success_target,omitempty" mapstructure:"success_target" yaml:"success_target,omitempty"`
	FailTarget        string   `json:"fail_target,omitempty" mapstructure:"fail_target" yaml:"fail_target,omitempty"`
	UnavailableTarget string   `json:"unavailable_target,omitempty" mapstructure:"unavailable_target" yaml:"unavailable_target,omitempty"`

	// Action
	Actions []ActionMetadata `json:"actions,omitempty" mapstructure:"actions" yaml:"actions,omitempty"`
	Next    string           `json:"next,omitempty" mapstructure:"next" yaml:"next,omitempty"`
}

type InputMetadata struct {
	Kind          string `json:"kind" mapstructure:"kind" yaml:"kind"`
	StorageKey    string `json:"storage_key" mapstructure:"storage_key" yaml:"storage_key"`
	Required      bool   `json:"required" mapstructure:"required" yaml:"required"`
	MinLength     int    `json:"min_length,omitempty" mapstructure:"min_length" yaml:"min_length,omitempty"`
	ErrorText     string `json:"error_text,omitempty" mapstructure:"error_text" yaml:"error_text,omitempty"`
	SuccessTarget string `json:"success_target,omitempty" mapstructure:"success_target" yaml:"success_target,omitempty"`
	CancelTarget  string `json:"cancel_target,omitempty" mapstructure:"cancel_target" yaml:"cancel_target,omitempty"`
}

// ActionMetadata is one action of an ACTION document. Actions are enabled
// unless stated otherwise and run in list order when no sort key is given.
type ActionMetadata struct {
	Kind      string         `json:"kind" mapstructure:"kind" yaml:"kind"`
	Payload   map[string]any `json:"payload,omitempty" mapstructure:"payload" yaml:"payload,omitempty"`
	SortOrder *int           `json:"sort_order,omitempty" mapstructure:"sort_order" yaml:"sort_order,omitempty"`
	Enabled   *bool          `json:"enabled,omitempty" mapstructure:"enabled" yaml:"enabled,omitempty"`
}
