package twilio

import (
	"context"
	"net/http"
	"strings"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/input"
	"github.com/twilio/twilio-go/client"
)

// Conversation is the part of the engine inbound messages drive.
type Conversation interface {
	HandleMessage(ctx context.Context, userID string, msg domain.Message) (bool, error)
	HandlePress(ctx context.Context, userID string, p domain.Press) error
	EnterNode(ctx context.Context, userID, code string) error
}

// InboundHandler receives Twilio WhatsApp webhooks. When authToken is set,
// requests must carry a valid X-Twilio-Signature for publicURL.
//
// "start" returns home. Other text answers the pending input first, so a
// number typed for an input is never taken as a menu choice. An idle user's
// menu number becomes a press and anything else returns home.
func (t *Transport) InboundHandler(conv Conversation, publicURL, authToken string) http.Handler {
	var validator *client.RequestValidator
	if authToken != "" {
		v := client.NewRequestValidator(authToken)
		validator = &v
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}
		if validator != nil {
			params := make(map[string]string, len(r.PostForm))
			for k := range r.PostForm {
				params[k] = r.PostForm.Get(k)
			}
			if !validator.Validate(publicURL, params, r.Header.Get("X-Twilio-Signature")) {
				http.Error(w, "invalid signature", http.StatusForbidden)
				return
			}
		}

		userID := strings.TrimPrefix(r.PostForm.Get("From"), "whatsapp:")
		if userID == "" {
			http.Error(w, "missing sender", http.StatusBadRequest)
			return
		}
		body, err := input.Sanitize(strings.TrimSpace(r.PostForm.Get("Body")))
		if err != nil {
			t.logger.Warn("inbound message rejected", "user_id", userID, "err", err)
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}

		if err := t.inbound(r.Context(), conv, userID, body); err != nil {
			t.logger.Error("inbound message failed", "user_id", userID, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Response></Response>`))
	})
}

func (t *Transport) inbound(ctx context.Context, conv Conversation, userID, body string) error {
	if strings.EqualFold(body, "start") {
		return conv.EnterNode(ctx, userID, "")
	}
	handled, err := conv.HandleMessage(ctx, userID, domain.Message{Text: body})
	if err != nil || handled {
		return err
	}
	if p, ok := t.Resolve(userID, body); ok {
		return conv.HandlePress(ctx, userID, p)
	}
	return conv.EnterNode(ctx, userID, "")
}
