package domain

import "time"

// PaymentStatusCompleted is the provider status of a settled capture.
const PaymentStatusCompleted = "COMPLETED"

// OrderItem is a line copied from the cart at placement. Position keeps the
// cart's line order.
type OrderItem struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Image     string `json:"image"`
	Price     string `json:"price"`
	Qty       int    `json:"qty"`
	Position  int    `json:"-"`
}

type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	EmailAddress string `json:"email_address"`
	PricePaid    string `json:"pricePaid"`
}

// CaptureResult is what the provider reports for a capture call.
type CaptureResult struct {
	ID         string
	Status     string
	PayerEmail string
	AmountPaid string
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	UserName        string          `json:"userName,omitempty"`
	Items           []OrderItem     `json:"orderItems"`
	PaymentMethod   string          `json:"paymentMethod"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	Prices
	IsPaid        bool           `json:"isPaid"`
	PaidAt        *time.Time     `json:"paidAt"`
	PaymentResult *PaymentResult `json:"paymentResult"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// MonthlySales is one bucket of the admin sales chart, Month formatted MM/YY.
type MonthlySales struct {
	Month      string `json:"month"`
	TotalSales string `json:"totalSales"`
}

type OrderSummary struct {
	OrdersCount   int            `json:"ordersCount"`
	ProductsCount int            `json:"productsCount"`
	UsersCount    int            `json:"usersCount"`
	TotalSales    string         `json:"totalSales"`
	SalesData     []MonthlySales `json:"salesData"`
	LatestSales   []*Order       `json:"latestSales"`
}

// Capture outcomes recorded in the capture journal.
const (
	CaptureSettled       = "settled"
	CaptureRejected      = "rejected"
	CaptureProviderError = "provider_error"
	CaptureSettleFailed  = "settle_failed"
)

// CaptureRecord is one capture attempt as kept in the capture journal.
type CaptureRecord struct {
	OrderID         string    `bson:"order_id" json:"orderId"`
	ProviderOrderID string    `bson:"provider_order_id" json:"providerOrderId"`
	Status          string    `bson:"status" json:"status"`
	PayerEmail      string    `bson:"payer_email" json:"payerEmail"`
	Amount          string    `bson:"amount" json:"amount"`
	Outcome         string    `bson:"outcome" json:"outcome"`
	Error           string    `bson:"error,omitempty" json:"error,omitempty"`
	RecordedAt      time.Time `bson:"recorded_at" json:"recordedAt"`
}
