// Package template renders automation message templates and node texts.
//
// Automation templates use single-brace placeholders ({order_id}) resolved
// against the dispatch context. Node texts use double braces ({{name}})
// resolved against the user's variables. Missing keys render as empty strings.
package template

import (
	"strconv"
	"strings"

	"github.com/aretw0/storeflow/pkg/domain"
)

// DefaultItemsHeading is used when a template enables items without a heading.
const DefaultItemsHeading = "Items:"

const bullet = "• "

// Render substitutes {name} placeholders in tmpl.Text and appends the item
// block when the template asks for it.
func Render(tmpl domain.MessageTemplate, ctx map[string]string, items []domain.Item, currency string) string {
	text := substitute(tmpl.Text, "{", "}", ctx)

	block := Items(tmpl, items, currency)
	switch {
	case block == "":
		return text
	case strings.TrimSpace(text) == "":
		return block
	default:
		return strings.TrimRight(text, "\n") + "\n\n" + block
	}
}

// Items renders the itemized block alone. It returns "" when item rendering is
// disabled, the field subset is empty or there are no items.
func Items(tmpl domain.MessageTemplate, items []domain.Item, currency string) string {
	if !tmpl.ShowItems || len(tmpl.ItemFields) == 0 || len(items) == 0 {
		return ""
	}
	heading := tmpl.ItemsHeading
	if heading == "" {
		heading = DefaultItemsHeading
	}

	lines := make([]string, 0, len(items)+1)
	lines = append(lines, heading)
	for _, it := range items {
		lines = append(lines, bullet+ItemLine(it, tmpl.ItemFields, currency))
	}
	return strings.Join(lines, "\n")
}

// ItemLine renders the selected fields of one item.
func ItemLine(it domain.Item, fields []domain.ItemField, currency string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f {
		case domain.ItemTitle:
			parts = append(parts, it.Title)
		case domain.ItemQty:
			parts = append(parts, "x"+strconv.Itoa(it.Qty))
		case domain.ItemPrice:
			parts = append(parts, Money(it.Price, currency))
		case domain.ItemSum:
			parts = append(parts, "= "+Money(it.Sum(), currency))
		}
	}
	return strings.Join(parts, " ")
}

// Money formats an amount with two decimals and an optional currency code.
func Money(amount float64, currency string) string {
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// Interpolate substitutes {{key}} placeholders from vars.
func Interpolate(text string, vars map[string]string) string {
	return substitute(text, "{{", "}}", vars)
}

// substitute replaces open+name+close tokens. Tokens whose name is not a
// plain identifier are copied through untouched.
func substitute(s, open, close string, values map[string]string) string {
	if !strings.Contains(s, open) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for {
		start := strings.Index(s, open)
		if start == -1 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.Index(s[start+len(open):], close)
		if end == -1 {
			b.WriteString(s)
			return b.String()
		}
		end += start + len(open)

		name := strings.TrimSpace(s[start+len(open) : end])
		if !isName(name) {
			b.WriteString(s[:start+len(open)])
			s = s[start+len(open):]
			continue
		}
		b.WriteString(s[:start])
		b.WriteString(values[name])
		s = s[end+len(close):]
	}
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
		default:
			return false
		}
	}
	return true
}
