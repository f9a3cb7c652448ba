// Package customer defines the user and order records the support workflow
// reads from (and, for refunds, writes to) the data store.
package customer

import "time"

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusRefunded   OrderStatus = "refunded"
)

// User is a customer account. Read-only from the workflow's point of view.
type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CardLast4 string `json:"card_last4"`
}

// LineItem is one product line of an order.
type LineItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

// Order is a purchase owned by a single user.
type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Status    OrderStatus `json:"status"`
	Amount    float64     `json:"amount"`
	Items     []LineItem  `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OwnedBy reports whether the order belongs to the given user.
func (o *Order) OwnedBy(userID int64) bool {
	return o.UserID == userID
}
