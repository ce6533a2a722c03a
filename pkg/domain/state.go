package domain

import "time"

// ConversationState records the input a user is expected to send next.
// A user has at most one. Absence means the user is idle.
type ConversationState struct {
	UserID        string    `json:"user_id"`
	NodeCode      string    `json:"node_code"`
	ValueKind     ValueKind `json:"value_kind"`
	StorageKey    string    `json:"storage_key"`
	SuccessTarget string    `json:"success_target,omitempty"`
	CancelTarget  string    `json:"cancel_target,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewAwaiting captures the expectations of an INPUT node at the moment it is entered.
func NewAwaiting(userID string, n *InputNode) *ConversationState {
	return &ConversationState{
		UserID:        userID,
		NodeCode:      n.NodeCode,
		ValueKind:     n.Input.Kind,
		StorageKey:    n.Input.StorageKey,
		SuccessTarget: n.Input.SuccessTarget,
		CancelTarget:  n.Input.CancelTarget,
		UpdatedAt:     time.Now().UTC(),
	}
}
