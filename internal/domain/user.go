package domain

import "time"

const (
	PaymentMethodPayPal         = "PayPal"
	PaymentMethodStripe         = "Stripe"
	PaymentMethodCashOnDelivery = "CashOnDelivery"
)

var PaymentMethods = []string{PaymentMethodPayPal, PaymentMethodStripe, PaymentMethodCashOnDelivery}

type ShippingAddress struct {
	FullName      string   `json:"fullName"`
	StreetAddress string   `json:"streetAddress"`
	City          string   `json:"city"`
	PostalCode    string   `json:"postalCode"`
	Country       string   `json:"country"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
}

type User struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	Role          string           `json:"role"`
	Address       *ShippingAddress `json:"address,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}
