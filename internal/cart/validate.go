package cart

import (
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/pricing"
)

// ValidateItem checks a cart line as submitted by the client and rewrites its
// price with exactly two decimals.
func ValidateItem(item *domain.CartItem) error {
	required := []struct{ field, value string }{
		{"productId", item.ProductID},
		{"name", item.Name},
		{"slug", item.Slug},
		{"image", item.Image},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.ValidationError(r.field, "is required")
		}
	}
	price, err := pricing.NormalizeCurrency(item.Price)
	if err != nil {
		return domain.ValidationError("price", "must be an amount with two decimal places")
	}
	item.Price = price
	if item.Qty <= 0 {
		return domain.ValidationError("qty", "must be a positive number")
	}
	return nil
}
