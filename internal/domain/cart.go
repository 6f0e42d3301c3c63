package domain

import "time"

// CartItem is a line in a cart. Price is a 2-place decimal string.
type CartItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Image     string `json:"image"`
	Price     string `json:"price"`
	Qty       int    `json:"qty"`
}

// Prices are always derived from the items they describe.
type Prices struct {
	ItemsPrice    string `json:"itemsPrice"`
	ShippingPrice string `json:"shippingPrice"`
	TaxPrice      string `json:"taxPrice"`
	TotalPrice    string `json:"totalPrice"`
}

// ZeroPrices is the price set of an empty, reset cart.
var ZeroPrices = Prices{
	ItemsPrice:    "0.00",
	ShippingPrice: "0.00",
	TaxPrice:      "0.00",
	TotalPrice:    "0.00",
}

type Cart struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId,omitempty"`
	SessionCartID string     `json:"sessionCartId"`
	Items         []CartItem `json:"items"`
	Prices
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FindItem returns the index of the line for productID, or -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}
