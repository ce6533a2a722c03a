package template_test

import (
	"testing"

	"github.com/aretw0/storeflow/pkg/domain"
	"github.com/aretw0/storeflow/pkg/template"
	"github.com/stretchr/testify/assert"
)

var items = []domain.Item{
	{Title: "Green tea", Qty: 2, Price: 3.5},
	{Title: "Mug", Qty: 1, Price: 12},
}

func TestRender_Placeholders(t *testing.T) {
	tmpl := domain.MessageTemplate{Text: "Order #{order_id} for {name}: {total} {currency}{missing}"}
	ctx := map[string]string{"order_id": "42", "name": "Ann", "total": "19.00", "currency": "USD"}

	assert.Equal(t, "Order #42 for Ann: 19.00 USD", template.Render(tmpl, ctx, nil, ""))
}

func TestRender_LeavesNonPlaceholdersAlone(t *testing.T) {
	tmpl := domain.MessageTemplate{Text: `{"json": true} and {not closed`}
	assert.Equal(t, `{"json": true} and {not closed`, template.Render(tmpl, nil, nil, ""))
}

func TestRender_ItemBlock(t *testing.T) {
	tmpl := domain.MessageTemplate{
		Text:         "New order {order_id}",
		ShowItems:    true,
		ItemFields:   []domain.ItemField{domain.ItemTitle, domain.ItemQty, domain.ItemSum},
		ItemsHeading: "Your items:",
	}

	got := template.Render(tmpl, map[string]string{"order_id": "7"}, items, "USD")

	assert.Equal(t, "New order 7\n\nYour items:\n• Green tea x2 = 7.00 USD\n• Mug x1 = 12.00 USD", got)
}

func TestRender_ItemBlockOmitted(t *testing.T) {
	base := domain.MessageTemplate{Text: "hi", ShowItems: true, ItemFields: []domain.ItemField{domain.ItemTitle}}

	disabled := base
	disabled.ShowItems = false
	assert.Equal(t, "hi", template.Render(disabled, nil, items, ""))

	noFields := base
	noFields.ItemFields = nil
	assert.Equal(t, "hi", template.Render(noFields, nil, items, ""))

	assert.Equal(t, "hi", template.Render(base, nil, nil, ""))
}

func TestRender_OnlyItems(t *testing.T) {
	tmpl := domain.MessageTemplate{ShowItems: true, ItemFields: []domain.ItemField{domain.ItemTitle, domain.ItemPrice}}
	assert.Equal(t, "Items:\n• Green tea 3.50\n• Mug 12.00", template.Render(tmpl, nil, items, ""))
}

func TestInterpolate(t *testing.T) {
	vars := map[string]string{"name": "Ann", "cart.total": "12"}

	assert.Equal(t, "Hi Ann, total 12.", template.Interpolate("Hi {{name}}, total {{ cart.total }}.", vars))
	assert.Equal(t, "Hi !", template.Interpolate("Hi {{nobody}}!", vars))
	assert.Equal(t, "single {name} stays", template.Interpolate("single {name} stays", vars))
	assert.Equal(t, "{{ two words }}", template.Interpolate("{{ two words }}", vars))
}
