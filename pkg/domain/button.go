package domain

import "sort"

// TargetKind says what a button does when pressed.
type TargetKind string

const (
	// TargetNode opens another node.
	TargetNode TargetKind = "node"
	// TargetURL opens a literal URL.
	TargetURL TargetKind = "url"
	// TargetWebApp opens an embedded web app.
	TargetWebApp TargetKind = "webapp"
	// TargetHome returns to the start node.
	TargetHome TargetKind = "home"
	// TargetCancel cancels the pending input of the node in Target.
	TargetCancel TargetKind = "cancel"
)

// Button is one entry of a node or preset keyboard.
type Button struct {
	Label    string     `json:"label" yaml:"label" mapstructure:"label"`
	Row      int        `json:"row" yaml:"row" mapstructure:"row"`
	Position int        `json:"position" yaml:"position" mapstructure:"position"`
	Kind     TargetKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Target   string     `json:"target,omitempty" yaml:"target,omitempty" mapstructure:"target"`
}

// Press returns the press a transport should encode for this button.
// URL and web app buttons have no press.
func (b Button) Press() (Press, bool) {
	switch b.Kind {
	case TargetNode:
		return Press{Intent: IntentOpen, NodeCode: b.Target}, true
	case TargetHome:
		return Press{Intent: IntentHome}, true
	case TargetCancel:
		return Press{Intent: IntentCancel, NodeCode: b.Target}, true
	}
	return Press{}, false
}

// Layout groups buttons into rows ordered by (row, position).
func Layout(buttons []Button) [][]Button {
	if len(buttons) == 0 {
		return nil
	}
	sorted := make([]Button, len(buttons))
	copy(sorted, buttons)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Row != sorted[j].Row {
			return sorted[i].Row < sorted[j].Row
		}
		return sorted[i].Position < sorted[j].Position
	})

	var rows [][]Button
	for i, b := range sorted {
		if i == 0 || b.Row != sorted[i-1].Row {
			rows = append(rows, nil)
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], b)
	}
	return rows
}

// Audience selects who a preset or notification is meant for.
type Audience string

const (
	AudienceUser  Audience = "user"
	AudienceAdmin Audience = "admin"
)

// ButtonPreset is a named, reusable button layout scoped to one audience.
type ButtonPreset struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Scope   Audience `json:"scope" yaml:"scope"`
	Buttons []Button `json:"buttons" yaml:"buttons"`
	Enabled bool     `json:"enabled" yaml:"enabled"`
}
