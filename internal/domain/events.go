package domain

import "time"

// Outbox event types published on the order-events topic.
const (
	EventOrderCreated = "OrderCreated"
	EventOrderPaid    = "OrderPaid"
)

type OrderCreatedEvent struct {
	OrderID    string      `json:"orderId"`
	UserID     string      `json:"userId"`
	Items      []OrderItem `json:"items"`
	TotalPrice string      `json:"totalPrice"`
	CreatedAt  time.Time   `json:"createdAt"`
}

type OrderPaidEvent struct {
	OrderID       string        `json:"orderId"`
	UserID        string        `json:"userId"`
	PaymentResult PaymentResult `json:"paymentResult"`
	PaidAt        time.Time     `json:"paidAt"`
}
