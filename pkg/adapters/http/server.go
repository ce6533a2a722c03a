// Package http exposes the flow and automation engines as JSON webhooks and
// streams outbound messages to subscribers over server-sent events.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/storeflow/internal/logging"
	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/input"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Engine is the surface the webhooks drive.
type Engine interface {
	HandleMessage(ctx context.Context, userID string, msg domain.Message) (bool, error)
	HandlePress(ctx context.Context, userID string, p domain.Press) error
	EnterNode(ctx context.Context, userID, code string) error
	NotifyOrder(ctx context.Context, ev domain.Event) (string, error)
}

// Server holds the webhook handlers.
type Server struct {
	Engine  Engine
	Streams *StreamManager
	logger  *slog.Logger
	metrics http.Handler
	mounts  map[string]http.Handler
}

type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithStreams serves /events from streams, usually shared with a Transport.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithMount serves h under pattern, e.g. a messaging provider webhook.
func WithMount(pattern string, h http.Handler) Option {
	return func(s *Server) {
		if s.mounts == nil {
			s.mounts = make(map[string]http.Handler)
		}
		s.mounts[pattern] = h
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:  engine,
		Streams: NewStreamManager(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	for pattern, h := range s.mounts {
		r.Handle(pattern, h)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/events/orders", s.PostOrder)
		r.Get("/admin/events", s.SubscribeAdmin)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/messages", s.PostMessage)
			r.Post("/presses", s.PostPress)
			r.Post("/enter", s.PostEnter)
			r.Get("/events", s.SubscribeUser)
		})
	})
	return r
}

// MessageRequest is the body of POST /v1/users/{userID}/messages.
type MessageRequest struct {
	Text    string          `json:"text,omitempty"`
	Contact *domain.Contact `json:"contact,omitempty"`
}

// MessageResponse reports whether the message was consumed by a pending input.
type MessageResponse struct {
	Handled bool `json:"handled"`
}

// PressRequest carries callback data produced by domain.EncodePress.
type PressRequest struct {
	Data string `json:"data"`
}

// EnterRequest names the node to enter. Empty means the start node.
type EnterRequest struct {
	NodeCode string `json:"node_code,omitempty"`
}

// OrderRequest is an order placed through an external storefront.
type OrderRequest struct {
	UserID   string            `json:"user_id,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Items    []domain.Item     `json:"items"`
	Currency string            `json:"currency,omitempty"`
}

// OrderResponse carries the saved order id, if any.
type OrderResponse struct {
	OrderID string `json:"order_id,omitempty"`
}

// PostMessage handles an inbound user message.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body MessageRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Text == "" && body.Contact == nil {
		http.Error(w, "message needs text or contact", http.StatusBadRequest)
		return
	}
	text, err := input.Sanitize(body.Text)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	handled, err := s.Engine.HandleMessage(r.Context(), userID, domain.Message{Text: text, Contact: body.Contact})
	if err != nil {
		s.fail(w, "HandleMessage", userID, err)
		return
	}
	s.respond(w, http.StatusOK, MessageResponse{Handled: handled})
}

// PostPress handles a button press.
func (s *Server) PostPress(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body PressRequest
	if !s.decode(w, r, &body) {
		return
	}
	press, err := domain.DecodePress(body.Data)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid press: %v", err), http.StatusBadRequest)
		s.logger.Warn("PostPress: invalid press", "user_id", userID, "err", err)
		return
	}

	if err := s.Engine.HandlePress(r.Context(), userID, press); err != nil {
		s.fail(w, "HandlePress", userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostEnter moves a user to a node, or to the start node.
func (s *Server) PostEnter(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var body EnterRequest
	if !s.decode(w, r, &body) {
		return
	}

	if err := s.Engine.EnterNode(r.Context(), userID, body.NodeCode); err != nil {
		s.fail(w, "EnterNode", userID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostOrder dispatches an external order to the automation rules.
func (s *Server) PostOrder(w http.ResponseWriter, r *http.Request) {
	var body OrderRequest
	if !s.decode(w, r, &body) {
		return
	}
	if len(body.Items) == 0 {
		http.Error(w, "order has no items", http.StatusBadRequest)
		return
	}

	id, err := s.Engine.NotifyOrder(r.Context(), domain.Event{
		Trigger:  domain.TriggerOrderReceived,
		UserID:   body.UserID,
		Fields:   body.Fields,
		Items:    body.Items,
		Currency: body.Currency,
	})
	if err != nil {
		s.fail(w, "NotifyOrder", body.UserID, err)
		return
	}
	s.respond(w, http.StatusAccepted, OrderResponse{OrderID: id})
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, op, userID string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrNodeNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
	if status >= 500 {
		s.logger.Error(op+" failed", "user_id", userID, "err", err)
	}
}

// SubscribeUser streams outbound messages addressed to one user.
func (s *Server) SubscribeUser(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, UserStream(chi.URLParam(r, "userID")))
}

// SubscribeAdmin streams messages sent to the admin chat.
func (s *Server) SubscribeAdmin(w http.ResponseWriter, r *http.Request) {
	s.subscribe(w, r, AdminStream)
}

func (s *Server) subscribe(w http.ResponseWriter, r *http.Request, key Stream) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(key)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE client connected", "stream", key.String())

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected", "stream", key.String())
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", strings.TrimSpace(msg))
			flusher.Flush()
		}
	}
}
