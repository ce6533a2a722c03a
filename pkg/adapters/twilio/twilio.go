// Package twilio delivers conversations over WhatsApp through the Twilio
// Messages API. WhatsApp text messages carry no inline keyboard, so buttons
// are rendered as a numbered menu and a numeric reply is mapped back to the
// press it stands for.
package twilio

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Sender sends one text message to a WhatsApp number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Client is a Sender over the Twilio REST API.
type Client struct {
	client *twilio.RestClient
	from   string
}

// NewClient creates a Twilio client. from is the sender in
// "whatsapp:+1234567890" form.
func NewClient(accountSID, authToken, from string) (*Client, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if from == "" {
		return nil, fmt.Errorf("from number must be provided")
	}
	if !strings.HasPrefix(from, "whatsapp:") {
		from = "whatsapp:" + from
	}
	return &Client{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: from,
	}, nil
}

func (c *Client) Send(ctx context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + strings.TrimPrefix(to, "whatsapp:"))
	params.SetFrom(c.from)
	params.SetBody(body)

	if _, err := c.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	return nil
}

// Transport implements ports.Transport over a Sender.
type Transport struct {
	sender Sender
	admins []string
	logger *slog.Logger

	mu    sync.Mutex
	menus map[string][]domain.Button
}

type Option func(*Transport)

// WithAdmins sets the numbers that receive admin messages.
func WithAdmins(numbers ...string) Option {
	return func(t *Transport) {
		t.admins = append(t.admins, numbers...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// NewTransport creates a transport sending through sender.
func NewTransport(sender Sender, opts ...Option) *Transport {
	t := &Transport{
		sender: sender,
		logger: logging.NewNop(),
		menus:  make(map[string][]domain.Button),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) DeliverNode(ctx context.Context, userID string, d domain.Delivery) error {
	body := d.Text
	if d.Image != "" {
		body = d.Image + "\n\n" + body
	}
	return t.sender.Send(ctx, userID, body+t.menu(userID, d.Rows))
}

func (t *Transport) RequestContact(ctx context.Context, userID, text string) error {
	return t.sender.Send(ctx, userID, text+t.menu(userID, nil))
}

func (t *Transport) RequestLocation(ctx context.Context, userID, text string) error {
	return t.sender.Send(ctx, userID, text+t.menu(userID, nil))
}

func (t *Transport) SendMessage(ctx context.Context, userID, text string, rows [][]domain.Button) error {
	return t.sender.Send(ctx, userID, text+t.menu(userID, rows))
}

// SendAdminMessage sends text to every admin number. Links are listed after
// the text; admins get no numbered menu.
func (t *Transport) SendAdminMessage(ctx context.Context, text string, rows [][]domain.Button) error {
	if len(t.admins) == 0 {
		return fmt.Errorf("no admin numbers configured")
	}
	var b strings.Builder
	b.WriteString(text)
	for _, row := range rows {
		for _, btn := range row {
			if btn.Kind == domain.TargetURL || btn.Kind == domain.TargetWebApp {
				fmt.Fprintf(&b, "\n%s: %s", btn.Label, btn.Target)
			}
		}
	}
	var failed []string
	for _, admin := range t.admins {
		if err := t.sender.Send(ctx, admin, b.String()); err != nil {
			t.logger.Error("admin message failed", "to", admin, "err", err)
			failed = append(failed, admin)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("admin message failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

// menu renders rows as numbered lines and remembers the pressable buttons
// for Resolve. Every message replaces the menu, so an empty keyboard clears it.
func (t *Transport) menu(userID string, rows [][]domain.Button) string {
	if len(rows) == 0 {
		t.mu.Lock()
		delete(t.menus, userID)
		t.mu.Unlock()
		return ""
	}
	var b strings.Builder
	var choices []domain.Button
	b.WriteString("\n")
	for _, row := range rows {
		for _, btn := range row {
			if _, ok := btn.Press(); ok {
				choices = append(choices, btn)
				fmt.Fprintf(&b, "\n%d. %s", len(choices), btn.Label)
				continue
			}
			fmt.Fprintf(&b, "\n%s: %s", btn.Label, btn.Target)
		}
	}

	t.mu.Lock()
	t.menus[userID] = choices
	t.mu.Unlock()
	return b.String()
}

// Resolve maps a numeric reply to the press of the last menu sent to userID.
func (t *Transport) Resolve(userID, text string) (domain.Press, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return domain.Press{}, false
	}
	t.mu.Lock()
	choices := t.menus[userID]
	t.mu.Unlock()
	if n < 1 || n > len(choices) {
		return domain.Press{}, false
	}
	return choices[n-1].Press()
}
