package ports

import (
	"context"

	"github.com/aretw0/storeflow/pkg/domain"
)

// Transport delivers messages to users and to the admin chat.
//
// Transports encode button presses with domain.EncodePress and hand decoded
// presses back to the interpreter.
type Transport interface {
	// DeliverNode renders node content with its keyboard.
	DeliverNode(ctx context.Context, userID string, d domain.Delivery) error
	// RequestContact asks the user to share a contact.
	RequestContact(ctx context.Context, userID, text string) error
	// RequestLocation asks the user to share a location.
	RequestLocation(ctx context.Context, userID, text string) error
	// SendMessage sends free text with an optional keyboard.
	SendMessage(ctx context.Context, userID, text string, rows [][]domain.Button) error
	// SendAdminMessage sends free text to the configured admin chat.
	SendAdminMessage(ctx context.Context, text string, rows [][]domain.Button) error
}

// MembershipChecker answers whether a user belongs to a channel.
// An error means the answer is unknown.
type MembershipChecker interface {
	IsMember(ctx context.Context, userID, channel string) (bool, error)
}
