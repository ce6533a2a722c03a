package testutils

import (
	"context"
	"sync"

	"github.com/aretw0/storeflow/pkg/domain"
)

// Sent is one call recorded by RecordingTransport.
type Sent struct {
	Op       string
	UserID   string
	NodeCode string
	Text     string
	Rows     [][]domain.Button
}

// RecordingTransport implements ports.Transport by recording every call.
// Fail makes every call return the given error after recording it.
type RecordingTransport struct {
	mu   sync.Mutex
	sent []Sent
	Fail error
}

func (r *RecordingTransport) record(s Sent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, s)
	return r.Fail
}

func (r *RecordingTransport) DeliverNode(ctx context.Context, userID string, d domain.Delivery) error {
	return r.record(Sent{Op: "deliver", UserID: userID, NodeCode: d.NodeCode, Text: d.Text, Rows: d.Rows})
}

func (r *RecordingTransport) RequestContact(ctx context.Context, userID, text string) error {
	return r.record(Sent{Op: "contact", UserID: userID, Text: text})
}

func (r *RecordingTransport) RequestLocation(ctx context.Context, userID, text string) error {
	return r.record(Sent{Op: "location", UserID: userID, Text: text})
}

func (r *RecordingTransport) SendMessage(ctx context.Context, userID, text string, rows [][]domain.Button) error {
	return r.record(Sent{Op: "message", UserID: userID, Text: text, Rows: rows})
}

func (r *RecordingTransport) SendAdminMessage(ctx context.Context, text string, rows [][]domain.Button) error {
	return r.record(Sent{Op: "admin", Text: text, Rows: rows})
}

// Sent returns a copy of the recorded calls.
func (r *RecordingTransport) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent call, or a zero Sent.
func (r *RecordingTransport) Last() Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}
	}
	return r.sent[len(r.sent)-1]
}

// Delivered lists the node codes delivered, in order.
func (r *RecordingTransport) Delivered() []string {
	var out []string
	for _, s := range r.Sent() {
		if s.Op == "deliver" {
			out = append(out, s.NodeCode)
		}
	}
	return out
}

// Reset drops the recorded calls.
func (r *RecordingTransport) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// Members implements ports.MembershipChecker from a static table.
type Members struct {
	In  map[string]bool
	Err error
}

func (m Members) IsMember(ctx context.Context, userID, channel string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	return m.In[userID+"@"+channel], nil
}
