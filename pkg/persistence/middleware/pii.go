package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/ports"
)

// Mask replaces values whose key matched a PII pattern.
const Mask = "***"

type piiMiddleware struct {
	ports.PersistenceStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks, before they are stored,
// user variables and order fields whose key matches one of the patterns.
// Masked values cannot be recovered.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.PersistenceStore) ports.PersistenceStore {
		return &piiMiddleware{PersistenceStore: next, patterns: patterns}
	}
}

func (m *piiMiddleware) SetVariable(ctx context.Context, userID, key, value string) error {
	if m.sensitive(key) {
		value = Mask
	}
	return m.PersistenceStore.SetVariable(ctx, userID, key, value)
}

func (m *piiMiddleware) SaveOrder(ctx context.Context, order domain.Order) (string, error) {
	// Copy so the caller's event fields stay intact.
	fields := make(map[string]string, len(order.Fields))
	for k, v := range order.Fields {
		if m.sensitive(k) {
			v = Mask
		}
		fields[k] = v
	}
	order.Fields = fields
	return m.PersistenceStore.SaveOrder(ctx, order)
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
