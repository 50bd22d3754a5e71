package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// shippingTariffs is the flat, currency-local price per shipping method.
var shippingTariffs = map[ShippingMethod]decimal.Decimal{
	ShippingStandard: decimal.RequireFromString("4.99"),
	ShippingExpress:  decimal.RequireFromString("9.99"),
}

// DefaultTaxRate is the single-jurisdiction VAT rate.
var DefaultTaxRate = decimal.RequireFromString("0.21")

// ShippingCost looks up the tariff for a method. An empty method means the default.
func ShippingCost(method ShippingMethod) (decimal.Decimal, error) {
	if method == "" {
		method = DefaultShippingMethod
	}
	cost, ok := shippingTariffs[method]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownShippingMethod, method)
	}
	return cost, nil
}

// Valuator prices carts at a fixed tax rate.
type Valuator struct {
	taxRate decimal.Decimal
}

func NewValuator(taxRate decimal.Decimal) (*Valuator, error) {
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTaxRate, taxRate)
	}
	return &Valuator{taxRate: taxRate}, nil
}

// ParseTaxRate reads a rate such as "0.21" from configuration.
func ParseTaxRate(s string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidTaxRate, err)
	}
	return rate, nil
}

func (v *Valuator) TaxRate() decimal.Decimal { return v.taxRate }

// Valuate is a pure function of lines and method:
// total = subtotal + tax + shipping - discount, each rounded to cents.
func (v *Valuator) Valuate(lines []Line, method ShippingMethod) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, ErrEmptyCart
	}

	shipping, err := ShippingCost(method)
	if err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return Totals{}, err
		}
		subtotal = subtotal.Add(l.LineTotal())
	}

	tax := subtotal.Mul(v.taxRate).Round(2)
	discount := decimal.Zero

	return Totals{
		Subtotal:     subtotal,
		TaxAmount:    tax,
		ShippingCost: shipping,
		Discount:     discount,
		Total:        subtotal.Add(tax).Add(shipping).Sub(discount),
	}, nil
}
