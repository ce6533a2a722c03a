package domain

import (
	"fmt"
	"strings"
)

// Intent is what a button press asks the interpreter to do.
type Intent int

const (
	// IntentOpen enters the node in Press.NodeCode.
	IntentOpen Intent = iota + 1
	// IntentHome enters the designated start node.
	IntentHome
	// IntentCancel cancels the pending input tied to Press.NodeCode.
	IntentCancel
	// IntentAlias enters Press.NodeCode through a menu shortcut alias.
	IntentAlias
)

func (i Intent) String() string {
	switch i {
	case IntentOpen:
		return "open"
	case IntentHome:
		return "home"
	case IntentCancel:
		return "cancel"
	case IntentAlias:
		return "alias"
	default:
		return "unknown"
	}
}

// Press is a decoded button press.
type Press struct {
	Intent   Intent `json:"intent"`
	NodeCode string `json:"node_code,omitempty"`
}

// Wire prefixes for callback data. Transports use EncodePress/DecodePress and
// hand the interpreter a Press; nothing past the edge parses strings.
const (
	prefixOpen   = "n:"
	prefixCancel = "c:"
	prefixAlias  = "m:"
	wireHome     = "home"
)

// EncodePress renders a press as compact callback data.
func EncodePress(p Press) string {
	switch p.Intent {
	case IntentOpen:
		return prefixOpen + p.NodeCode
	case IntentCancel:
		return prefixCancel + p.NodeCode
	case IntentAlias:
		return prefixAlias + p.NodeCode
	case IntentHome:
		return wireHome
	}
	return ""
}

// DecodePress parses callback data produced by EncodePress.
func DecodePress(data string) (Press, error) {
	data = strings.TrimSpace(data)
	switch {
	case data == wireHome:
		return Press{Intent: IntentHome}, nil
	case strings.HasPrefix(data, prefixOpen):
		return codePress(IntentOpen, data, prefixOpen)
	case strings.HasPrefix(data, prefixCancel):
		return codePress(IntentCancel, data, prefixCancel)
	case strings.HasPrefix(data, prefixAlias):
		return codePress(IntentAlias, data, prefixAlias)
	}
	return Press{}, fmt.Errorf("unrecognized press payload %q", data)
}

func codePress(intent Intent, data, prefix string) (Press, error) {
	code := strings.TrimPrefix(data, prefix)
	if code == "" {
		return Press{}, fmt.Errorf("press payload %q has no node code", data)
	}
	return Press{Intent: intent, NodeCode: code}, nil
}
