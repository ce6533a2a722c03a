package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/pkg/domain"
)

// Stream identifies a set of SSE subscribers. The admin chat lives outside the
// user id space, so no user id can name it.
type Stream struct {
	Admin  bool
	UserID string
}

// AdminStream is the stream of the admin chat.
var AdminStream = Stream{Admin: true}

// UserStream is the stream of one user.
func UserStream(userID string) Stream {
	return Stream{UserID: userID}
}

func (k Stream) String() string {
	if k.Admin {
		return "admin"
	}
	return "user " + k.UserID
}

// StreamManager fans messages out to the SSE connections of a stream.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[Stream]map[chan string]struct{}
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[Stream]map[chan string]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a buffered channel for key. The returned func
// unsubscribes and closes the channel.
func (sm *StreamManager) Subscribe(key Stream) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[key]; !ok {
		sm.subscribers[key] = make(map[chan string]struct{})
	}
	sm.subscribers[key][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[key]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, key)
			}
		}
	}
}

// Broadcast sends msg to every subscriber of key and returns how many got it.
// Slow subscribers with a full buffer miss the message.
func (sm *StreamManager) Broadcast(key Stream, msg string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sent := 0
	for ch := range sm.subscribers[key] {
		select {
		case ch <- msg:
			sent++
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "stream", key.String())
		}
	}
	return sent
}

// OutboundButton is a button as seen by a web client. Data is set for
// presses and URL for links.
type OutboundButton struct {
	Label string `json:"label"`
	Data  string `json:"data,omitempty"`
	URL   string `json:"url,omitempty"`
	Kind  string `json:"kind"`
}

// Outbound is one message pushed to a stream.
type Outbound struct {
	Op        string             `json:"op"`
	NodeCode  string             `json:"node_code,omitempty"`
	Text      string             `json:"text"`
	ParseMode domain.ParseMode   `json:"parse_mode,omitempty"`
	Image     string             `json:"image,omitempty"`
	Buttons   [][]OutboundButton `json:"buttons,omitempty"`
}

// Transport implements ports.Transport over a StreamManager. With no
// subscriber on a stream the message is dropped and an error returned.
type Transport struct {
	streams *StreamManager
}

// NewTransport creates a transport publishing to streams.
func NewTransport(streams *StreamManager) *Transport {
	return &Transport{streams: streams}
}

func (t *Transport) DeliverNode(ctx context.Context, userID string, d domain.Delivery) error {
	return t.publish(UserStream(userID), Outbound{
		Op:        "node",
		NodeCode:  d.NodeCode,
		Text:      d.Text,
		ParseMode: d.ParseMode,
		Image:     d.Image,
		Buttons:   outboundRows(d.Rows),
	})
}

func (t *Transport) RequestContact(ctx context.Context, userID, text string) error {
	return t.publish(UserStream(userID), Outbound{Op: "request_contact", Text: text})
}

func (t *Transport) RequestLocation(ctx context.Context, userID, text string) error {
	return t.publish(UserStream(userID), Outbound{Op: "request_location", Text: text})
}

func (t *Transport) SendMessage(ctx context.Context, userID, text string, rows [][]domain.Button) error {
	return t.publish(UserStream(userID), Outbound{Op: "message", Text: text, Buttons: outboundRows(rows)})
}

func (t *Transport) SendAdminMessage(ctx context.Context, text string, rows [][]domain.Button) error {
	return t.publish(AdminStream, Outbound{Op: "message", Text: text, Buttons: outboundRows(rows)})
}

func (t *Transport) publish(key Stream, msg Outbound) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode outbound message: %w", err)
	}
	if t.streams.Broadcast(key, string(data)) == 0 {
		return fmt.Errorf("no subscriber on stream %s", key)
	}
	return nil
}

func outboundRows(rows [][]domain.Button) [][]OutboundButton {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]OutboundButton, len(rows))
	for i, row := range rows {
		out[i] = make([]OutboundButton, len(row))
		for j, b := range row {
			ob := OutboundButton{Label: b.Label, Kind: string(b.Kind)}
			if p, ok := b.Press(); ok {
				ob.Data = domain.EncodePress(p)
			} else {
				ob.URL = b.Target
			}
			out[i][j] = ob
		}
	}
	return out
}
