package models

import "time"

// Order is a single cart line owned by a user. The id is a unix-millisecond
// timestamp taken at creation.
type Order struct {
	ID         int64   `json:"id"`
	UserEmail  string  `json:"userEmail"`
	ItemID     int     `json:"itemId"`
	ItemName   string  `json:"itemName"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
	Paid       bool    `json:"paid"`
}

// CreatedAt derives the creation time from the id.
func (o Order) CreatedAt() time.Time {
	return time.UnixMilli(o.ID)
}

// Receipt describes a settled charge.
type Receipt struct {
	OrderID      int64     `json:"orderId"`
	Amount       int64     `json:"amount"` // minor units
	Currency     string    `json:"currency"`
	ReceiptEmail string    `json:"receiptEmail"`
	Description  string    `json:"description"`
	ChargedAt    time.Time `json:"chargedAt"`
}

// Order event types published on the event bus.
const (
	OrderCreated = "order.created"
	OrderUpdated = "order.updated"
	OrderDeleted = "order.deleted"
	OrderPaid    = "order.paid"
)

// OrderEvent is the message body for order lifecycle events.
type OrderEvent struct {
	Type       string    `json:"type"`
	OrderID    int64     `json:"orderId"`
	UserEmail  string    `json:"userEmail"`
	TotalPrice float64   `json:"totalPrice"`
	OccurredAt time.Time `json:"occurredAt"`
}
