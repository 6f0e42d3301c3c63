package pricing

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Config holds the flat-rate pricing constants.
type Config struct {
	ShippingThreshold decimal.Decimal // items below this pay ShippingBelow
	ShippingBelow     decimal.Decimal
	ShippingAbove     decimal.Decimal
	TaxRate           decimal.Decimal
}

var DefaultConfig = Config{
	ShippingThreshold: decimal.NewFromInt(100),
	ShippingBelow:     decimal.NewFromInt(1),
	ShippingAbove:     decimal.NewFromInt(10),
	TaxRate:           decimal.RequireFromString("0.22"),
}

// CalcPrice prices items with DefaultConfig.
func CalcPrice(items []domain.CartItem) (domain.Prices, error) {
	return DefaultConfig.CalcPrice(items)
}

// CalcPrice returns the itemized totals for items. It has no side effects.
func (c Config) CalcPrice(items []domain.CartItem) (domain.Prices, error) {
	sum := decimal.Zero
	for _, item := range items {
		price, err := Round2(item.Price)
		if err != nil {
			return domain.Prices{}, fmt.Errorf("price of %s: %w", item.ProductID, err)
		}
		sum = sum.Add(price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}

	itemsPrice := sum.Round(2)
	shipping := c.ShippingAbove
	if itemsPrice.LessThan(c.ShippingThreshold) {
		shipping = c.ShippingBelow
	}
	shippingPrice := shipping.Round(2)
	taxPrice := c.TaxRate.Mul(itemsPrice).Round(2)
	totalPrice := itemsPrice.Add(shippingPrice).Add(taxPrice).Round(2)

	return domain.Prices{
		ItemsPrice:    Format(itemsPrice),
		ShippingPrice: Format(shippingPrice),
		TaxPrice:      Format(taxPrice),
		TotalPrice:    Format(totalPrice),
	}, nil
}

// Round2 rounds half away from zero to two places. Floats are converted through
// their shortest decimal representation, so binary drift such as
// 1.005 == 1.00499999999999989... does not round down.
func Round2(v any) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch n := v.(type) {
	case decimal.Decimal:
		d = n
	case string:
		parsed, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidNumericInput, n)
		}
		d = parsed
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrInvalidNumericInput, n)
		}
		d = decimal.NewFromFloat(n)
	case float32:
		d = decimal.NewFromFloat32(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case int32:
		d = decimal.NewFromInt32(n)
	case int16:
		d = decimal.NewFromInt(int64(n))
	case int8:
		d = decimal.NewFromInt(int64(n))
	case uint:
		d = decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(n)), 0)
	case uint64:
		d = decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0)
	case uint32:
		d = decimal.NewFromInt(int64(n))
	case uint16:
		d = decimal.NewFromInt(int64(n))
	case uint8:
		d = decimal.NewFromInt(int64(n))
	default:
		return decimal.Zero, fmt.Errorf("%w: %T", domain.ErrInvalidNumericInput, v)
	}
	return d.Round(2), nil
}

// Format renders an amount with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// NormalizeCurrency parses s as a non-negative amount with at most two
// decimal places and renders it with exactly two ("25.5" -> "25.50",
// "1e2" -> "100.00").
func NormalizeCurrency(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidNumericInput, s)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(2)) {
		return "", fmt.Errorf("%w: %q is not a two-place amount", domain.ErrInvalidNumericInput, s)
	}
	return Format(d), nil
}

// IsCurrency reports whether s normalizes to a two-place amount.
func IsCurrency(s string) bool {
	_, err := NormalizeCurrency(s)
	return err == nil
}
