package mcp

import (
	"context"
	"sync"

	"github.com/aretw0/storeflow/pkg/domain"
)

// Reply is one message the engine sent during a simulation.
type Reply struct {
	// To is "user" or "admin".
	To   string `json:"to"`
	Node string `json:"node,omitempty"`
	// Kind is "node", "message", "contact_request" or "location_request".
	Kind    string        `json:"kind"`
	Text    string        `json:"text"`
	Image   string        `json:"image,omitempty"`
	Buttons []ReplyButton `json:"buttons,omitempty"`
}

// ReplyButton is a button of a reply. Data is set on pressable buttons and
// URL on links.
type ReplyButton struct {
	Label string `json:"label"`
	Data  string `json:"data,omitempty"`
	URL   string `json:"url,omitempty"`
}

// transcript implements ports.Transport by collecting replies.
type transcript struct {
	mu      sync.Mutex
	replies []Reply
}

func (t *transcript) add(r Reply) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = append(t.replies, r)
	return nil
}

func (t *transcript) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.replies = nil
}

func (t *transcript) take() []Reply {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.replies
	t.replies = nil
	if out == nil {
		out = []Reply{}
	}
	return out
}

func (t *transcript) DeliverNode(ctx context.Context, userID string, d domain.Delivery) error {
	return t.add(Reply{To: "user", Node: d.NodeCode, Kind: "node", Text: d.Text, Image: d.Image, Buttons: replyButtons(d.Rows)})
}

func (t *transcript) RequestContact(ctx context.Context, userID, text string) error {
	return t.add(Reply{To: "user", Kind: "contact_request", Text: text})
}

func (t *transcript) RequestLocation(ctx context.Context, userID, text string) error {
	return t.add(Reply{To: "user", Kind: "location_request", Text: text})
}

func (t *transcript) SendMessage(ctx context.Context, userID, text string, rows [][]domain.Button) error {
	return t.add(Reply{To: "user", Kind: "message", Text: text, Buttons: replyButtons(rows)})
}

func (t *transcript) SendAdminMessage(ctx context.Context, text string, rows [][]domain.Button) error {
	return t.add(Reply{To: "admin", Kind: "message", Text: text, Buttons: replyButtons(rows)})
}

func replyButtons(rows [][]domain.Button) []ReplyButton {
	var out []ReplyButton
	for _, row := range rows {
		for _, b := range row {
			rb := ReplyButton{Label: b.Label}
			if p, ok := b.Press(); ok {
				rb.Data = domain.EncodePress(p)
			} else {
				rb.URL = b.Target
			}
			out = append(out, rb)
		}
	}
	return out
}
