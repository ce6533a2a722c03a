package domain

// Payload keys of NodeAction bags, shared by loaders and the interpreter.
const (
	PayloadKey      = "key"
	PayloadValue    = "value"
	PayloadStep     = "step"
	PayloadTag      = "tag"
	PayloadText     = "text"
	PayloadNodeCode = "node_code"
)

// Reserved event field keys exposed to automation templates.
const (
	FieldSource     = "source"
	FieldUserID     = "user_id"
	FieldOrderID    = "order_id"
	FieldTotal      = "total"
	FieldCurrency   = "currency"
	FieldItemsCount = "items_count"
)
