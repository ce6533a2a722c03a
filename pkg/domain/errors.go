package domain

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned when a node code is unknown or the node is disabled.
var ErrNodeNotFound = errors.New("node not found")

// ErrStateNotFound is returned when a user has no pending input.
var ErrStateNotFound = errors.New("conversation state not found")

// ErrPresetNotFound is returned when a button preset is unknown or disabled.
var ErrPresetNotFound = errors.New("button preset not found")

// ConfigurationError reports a reference to a missing or disabled definition.
type ConfigurationError struct {
	NodeCode string
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error at '%s': %s: %v", e.NodeCode, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error at '%s': %s", e.NodeCode, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError carries the text shown to the user when input is rejected.
type ValidationError struct {
	Kind ValueKind
	Text string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s input: %s", e.Kind, e.Text)
}

// PresetMismatchError reports an ATTACH_BUTTONS action whose preset scope differs
// from the declared audience.
type PresetMismatchError struct {
	PresetID string
	Want     Audience
	Got      Audience
}

func (e *PresetMismatchError) Error() string {
	return fmt.Sprintf("preset '%s' is scoped to %s, action targets %s", e.PresetID, e.Got, e.Want)
}

// TransportError wraps a delivery failure.
type TransportError struct {
	UserID string
	Op     string
	Err    error
}

func (e *TransportError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("transport %s to %s failed: %v", e.Op, e.UserID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
