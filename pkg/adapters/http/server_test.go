package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockEngine struct {
	mu       sync.Mutex
	messages []domain.Message
	presses  []domain.Press
	entered  []string
	orders   []domain.Event
	handled  bool
	err      error
}

func (m *mockEngine) HandleMessage(ctx context.Context, userID string, msg domain.Message) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.handled, m.err
}

func (m *mockEngine) HandlePress(ctx context.Context, userID string, p domain.Press) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presses = append(m.presses, p)
	return m.err
}

func (m *mockEngine) EnterNode(ctx context.Context, userID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entered = append(m.entered, userID+":"+code)
	return m.err
}

func (m *mockEngine) NotifyOrder(ctx context.Context, ev domain.Event) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, ev)
	return "01ORDER", m.err
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostMessage(t *testing.T) {
	eng := &mockEngine{handled: true}
	h := NewHandler(eng)

	w := post(t, h, "/v1/users/u1/messages", `{"text":"5551234567"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp MessageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Handled)
	assert.Equal(t, "5551234567", eng.messages[0].Text)

	w = post(t, h, "/v1/users/u1/messages", `{"contact":{"phone_number":"+1 555"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+1 555", eng.messages[1].Contact.PhoneNumber)

	assert.Equal(t, http.StatusBadRequest, post(t, h, "/v1/users/u1/messages", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, h, "/v1/users/u1/messages", `not json`).Code)

	w = post(t, h, "/v1/users/u1/messages", `{"text":"hi\u001b[0m"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hi[0m", eng.messages[2].Text)

	long := `{"text":"` + strings.Repeat("a", 5000) + `"}`
	assert.Equal(t, http.StatusBadRequest, post(t, h, "/v1/users/u1/messages", long).Code)
	assert.Len(t, eng.messages, 3)
}

func TestPostPress(t *testing.T) {
	eng := &mockEngine{}
	h := NewHandler(eng)

	w := post(t, h, "/v1/users/u1/presses", `{"data":"c:ASK_PHONE"}`)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, domain.Press{Intent: domain.IntentCancel, NodeCode: "ASK_PHONE"}, eng.presses[0])

	w = post(t, h, "/v1/users/u1/presses", `{"data":"zz"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, eng.presses, 1)
}

func TestPostEnter(t *testing.T) {
	eng := &mockEngine{}
	h := NewHandler(eng)

	require.Equal(t, http.StatusNoContent, post(t, h, "/v1/users/u7/enter", `{"node_code":"CART"}`).Code)
	require.Equal(t, http.StatusNoContent, post(t, h, "/v1/users/u7/enter", `{}`).Code)
	assert.Equal(t, []string{"u7:CART", "u7:"}, eng.entered)

	eng.err = domain.ErrNodeNotFound
	assert.Equal(t, http.StatusNotFound, post(t, h, "/v1/users/u7/enter", `{"node_code":"NOPE"}`).Code)
}

func TestPostOrder(t *testing.T) {
	eng := &mockEngine{}
	h := NewHandler(eng)

	w := post(t, h, "/v1/events/orders", `{
		"user_id": "u1",
		"fields": {"source": "webapp", "name": "Ann"},
		"items": [{"title": "Tea", "qty": 2, "price": 3.5}],
		"currency": "USD"
	}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp OrderResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "01ORDER", resp.OrderID)

	ev := eng.orders[0]
	assert.Equal(t, domain.TriggerOrderReceived, ev.Trigger)
	assert.Equal(t, "webapp", ev.Fields["source"])
	assert.InDelta(t, 7.0, ev.Total(), 0.001)

	assert.Equal(t, http.StatusBadRequest, post(t, h, "/v1/events/orders", `{"items":[]}`).Code)

	eng.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, post(t, h, "/v1/events/orders", `{"items":[{"title":"x","qty":1}]}`).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("storeflow_up 1\n"))
	})
	h := NewHandler(&mockEngine{}, WithMetrics(metrics))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok"`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "storeflow_up 1")
}

func TestWithMount(t *testing.T) {
	hook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := NewHandler(&mockEngine{}, WithMount("/webhooks/whatsapp", hook))

	w := post(t, h, "/webhooks/whatsapp", "")
	assert.Equal(t, http.StatusTeapot, w.Code)
}

func TestSubscribeUser_ReceivesDeliveries(t *testing.T) {
	streams := NewStreamManager()
	transport := NewTransport(streams)
	h := NewHandler(&mockEngine{}, WithStreams(streams))

	ctx, cancel := context.WithCancel(context.Background())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/u1/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(w, req)
	}()

	require.Eventually(t, func() bool {
		return transport.SendMessage(context.Background(), "u1", "ping", nil) == nil
	}, time.Second, 10*time.Millisecond, "subscriber should register")

	err := transport.DeliverNode(context.Background(), "u1", domain.Delivery{
		NodeCode: "MAIN",
		Text:     "Welcome",
		Rows: [][]domain.Button{{
			{Label: "Cart", Kind: domain.TargetNode, Target: "CART"},
			{Label: "Site", Kind: domain.TargetURL, Target: "https://shop.example"},
		}},
	})
	require.NoError(t, err)

	cancel()
	<-done

	out := w.Body.String()
	assert.Contains(t, out, "event: ping")
	assert.Contains(t, out, `"node_code":"MAIN"`)
	assert.Contains(t, out, `"data":"n:CART"`)
	assert.Contains(t, out, `"url":"https://shop.example"`)
}

func TestTransport_NoSubscriber(t *testing.T) {
	transport := NewTransport(NewStreamManager())
	err := transport.SendAdminMessage(context.Background(), "New order", nil)
	assert.Error(t, err)
}

func TestTransport_AdminStreamIsNotAUserID(t *testing.T) {
	ctx := context.Background()
	sm := NewStreamManager()
	transport := NewTransport(sm)

	admin, cancelAdmin := sm.Subscribe(AdminStream)
	defer cancelAdmin()
	user, cancelUser := sm.Subscribe(UserStream("@admin"))
	defer cancelUser()

	require.NoError(t, transport.SendAdminMessage(ctx, "New order", nil))
	require.NoError(t, transport.SendMessage(ctx, "@admin", "hi", nil))

	assert.Contains(t, <-admin, "New order")
	assert.Contains(t, <-user, "hi")
	assert.Empty(t, admin)
	assert.Empty(t, user)
}

func TestStreamManager_UnsubscribeClosesChannel(t *testing.T) {
	sm := NewStreamManager()
	ch, cancel := sm.Subscribe(AdminStream)
	assert.Equal(t, 1, sm.Broadcast(AdminStream, "hello"))
	assert.Equal(t, "hello", <-ch)

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, sm.Broadcast(AdminStream, "again"))
}
