package twilio_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/aretw0/storeflow"
	"github.com/aretw0/storeflow/pkg/adapters/memory"
	"github.com/aretw0/storeflow/pkg/adapters/twilio"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct{ To, Body string }

type fakeSender struct {
	mu   sync.Mutex
	sent []sent
	fail map[string]bool
}

func (f *fakeSender) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[to] {
		return errors.New("undeliverable")
	}
	f.sent = append(f.sent, sent{To: to, Body: body})
	return nil
}

func menuRows() [][]domain.Button {
	return [][]domain.Button{
		{{Label: "Catalog", Kind: domain.TargetWebApp, Target: "https://shop.example"}},
		{{Label: "Leave phone", Kind: domain.TargetNode, Target: "ASK_PHONE"}, {Label: "Home", Kind: domain.TargetHome}},
	}
}

func TestTransport_RendersNumberedMenu(t *testing.T) {
	s := &fakeSender{}
	tr := twilio.NewTransport(s)

	require.NoError(t, tr.DeliverNode(context.Background(), "+1555", domain.Delivery{Text: "Welcome", Rows: menuRows()}))

	require.Len(t, s.sent, 1)
	assert.Equal(t, "+1555", s.sent[0].To)
	assert.Equal(t, "Welcome\n\nCatalog: https://shop.example\n1. Leave phone\n2. Home", s.sent[0].Body)

	p, ok := tr.Resolve("+1555", " 1 ")
	require.True(t, ok)
	assert.Equal(t, domain.Press{Intent: domain.IntentOpen, NodeCode: "ASK_PHONE"}, p)

	p, ok = tr.Resolve("+1555", "2")
	require.True(t, ok)
	assert.Equal(t, domain.IntentHome, p.Intent)

	_, ok = tr.Resolve("+1555", "3")
	assert.False(t, ok)
	_, ok = tr.Resolve("+1999", "1")
	assert.False(t, ok, "menus are per user")
}

func TestTransport_AdminMessage(t *testing.T) {
	s := &fakeSender{fail: map[string]bool{"+2": true}}
	tr := twilio.NewTransport(s, twilio.WithAdmins("+1", "+2"))

	err := tr.SendAdminMessage(context.Background(), "New order", [][]domain.Button{
		{{Label: "Open", Kind: domain.TargetURL, Target: "https://shop.example/admin"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "+2")

	require.Len(t, s.sent, 1)
	assert.Equal(t, "New order\nOpen: https://shop.example/admin", s.sent[0].Body)

	assert.Error(t, twilio.NewTransport(s).SendAdminMessage(context.Background(), "x", nil))
}

type fakeConversation struct {
	handled  bool
	entered  []string
	presses  []domain.Press
	messages []string
}

func (c *fakeConversation) HandleMessage(ctx context.Context, userID string, msg domain.Message) (bool, error) {
	c.messages = append(c.messages, msg.Text)
	return c.handled, nil
}

func (c *fakeConversation) HandlePress(ctx context.Context, userID string, p domain.Press) error {
	c.presses = append(c.presses, p)
	return nil
}

func (c *fakeConversation) EnterNode(ctx context.Context, userID, code string) error {
	c.entered = append(c.entered, userID+":"+code)
	return nil
}

func inbound(h http.Handler, from, body string) *httptest.ResponseRecorder {
	form := url.Values{"From": {from}, "Body": {body}}
	req := httptest.NewRequest(http.MethodPost, "/twilio", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestInboundHandler(t *testing.T) {
	s := &fakeSender{}
	tr := twilio.NewTransport(s)
	conv := &fakeConversation{}
	h := tr.InboundHandler(conv, "https://bot.example/twilio", "")

	require.NoError(t, tr.SendMessage(context.Background(), "+1555", "Pick", menuRows()))

	w := inbound(h, "whatsapp:+1555", "1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<Response>")
	assert.Equal(t, []domain.Press{{Intent: domain.IntentOpen, NodeCode: "ASK_PHONE"}}, conv.presses)

	inbound(h, "whatsapp:+1555", "hi there")
	assert.Equal(t, []string{"1", "hi there"}, conv.messages)
	assert.Equal(t, []string{"+1555:"}, conv.entered, "idle chatter returns home")

	conv.handled = true
	inbound(h, "whatsapp:+1555", "5551234567")
	assert.Len(t, conv.entered, 1)

	inbound(h, "whatsapp:+1555", "START")
	assert.Len(t, conv.entered, 2)

	assert.Equal(t, http.StatusBadRequest, inbound(h, "", "x").Code)
}

func TestTransport_EmptyKeyboardClearsMenu(t *testing.T) {
	tr := twilio.NewTransport(&fakeSender{})
	ctx := context.Background()

	require.NoError(t, tr.SendMessage(ctx, "+1555", "Pick", menuRows()))
	_, ok := tr.Resolve("+1555", "1")
	require.True(t, ok)

	require.NoError(t, tr.DeliverNode(ctx, "+1555", domain.Delivery{Text: "Thanks"}))
	_, ok = tr.Resolve("+1555", "1")
	assert.False(t, ok)
}

func quantityFlow() *memory.ConfigStore {
	b := dsl.New()
	b.Message("MAIN").
		Text("Menu").
		Button("Order", "ASK_QTY").
		Button("About", "ABOUT")
	b.Message("ABOUT").Text("About us")
	b.Input("ASK_QTY").
		Text("How many?").
		Expect(domain.ValueNumber, "qty").
		OnSuccess("THANKS").
		OnCancel("MAIN")
	b.Message("THANKS").Text("Got {{qty}}")
	return b.Build()
}

func TestInboundHandler_NumberAnswersPendingInput(t *testing.T) {
	ctx := context.Background()
	s := &fakeSender{}
	tr := twilio.NewTransport(s)
	store := memory.NewStore()
	eng := storeflow.New(quantityFlow(), store, tr)
	h := tr.InboundHandler(eng, "https://bot.example/twilio", "")

	for _, body := range []string{"start", "1", "2"} {
		require.Equal(t, http.StatusOK, inbound(h, "whatsapp:+1555", body).Code)
	}

	vars, err := store.Variables(ctx, "+1555")
	require.NoError(t, err)
	assert.Equal(t, "2", vars["qty"])
	require.Len(t, s.sent, 3)
	assert.True(t, strings.HasPrefix(s.sent[1].Body, "How many?"))
	assert.Equal(t, "Got 2", s.sent[2].Body)

	// THANKS has no buttons, so the old menu is gone and "1" returns home.
	inbound(h, "whatsapp:+1555", "1")
	require.Len(t, s.sent, 4)
	assert.True(t, strings.HasPrefix(s.sent[3].Body, "Menu"))

	// The cancel entry of the input menu does not steal a numeric answer.
	inbound(h, "whatsapp:+1555", "1")
	inbound(h, "whatsapp:+1555", "1")
	vars, err = store.Variables(ctx, "+1555")
	require.NoError(t, err)
	assert.Equal(t, "1", vars["qty"])
}

func TestInboundHandler_RejectsBadSignature(t *testing.T) {
	tr := twilio.NewTransport(&fakeSender{})
	conv := &fakeConversation{}
	h := tr.InboundHandler(conv, "https://bot.example/twilio", "secret-token")

	w := inbound(h, "whatsapp:+1555", "hello")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, conv.messages)
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := twilio.NewClient("", "", "+1")
	assert.Error(t, err)
	_, err = twilio.NewClient("AC123", "token", "")
	assert.Error(t, err)

	c, err := twilio.NewClient("AC123", "token", "+15550001111")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
