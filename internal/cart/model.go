package cart

import (
	"errors"
	"fmt"

	"github.com/TechnoExperience/texnewweb-sub000/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Line is a product or variant with the quantity and price captured when it was added to
// the cart. Prices are never re-fetched from the catalog.
type Line struct {
	ProductID  string            `json:"product_id" validate:"required"`
	VariantID  *string           `json:"variant_id,omitempty"`
	Name       string            `json:"name"`
	SKU        *string           `json:"sku,omitempty"`
	Quantity   int               `json:"quantity" validate:"required,gt=0"`
	UnitPrice  decimal.Decimal   `json:"unit_price" validate:"price"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// LineTotal is unit price times quantity, rounded to the currency minor unit.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// Validate rejects a line without a product, with a non-positive quantity, or with a unit
// price that is negative or finer than a cent.
func (l Line) Validate() error {
	err := utils.ValidateStruct(l)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	switch verrs[0].Field() {
	case "product_id":
		return ErrMissingProduct
	case "quantity":
		return fmt.Errorf("%w: %d for product %s", ErrInvalidQuantity, l.Quantity, l.ProductID)
	default:
		return fmt.Errorf("%w: %s for product %s", ErrInvalidPrice, l.UnitPrice, l.ProductID)
	}
}

type ShippingMethod string

const (
	ShippingStandard ShippingMethod = "standard"
	ShippingExpress  ShippingMethod = "express"

	DefaultShippingMethod = ShippingStandard
)

// Totals is the valuation shared by the review step and the order writer.
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}
