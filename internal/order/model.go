package order

import (
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
	"github.com/TechnoExperience/texnewweb-sub000/internal/cart"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentAuthorized PaymentStatus = "authorized"
	PaymentFailed     PaymentStatus = "failed"
)

type Order struct {
	ID               string              `json:"id"`
	UserID           string              `json:"user_id"`
	Email            string              `json:"email"`
	Status           Status              `json:"status"`
	PaymentStatus    PaymentStatus       `json:"payment_status"`
	Subtotal         decimal.Decimal     `json:"subtotal"`
	TaxAmount        decimal.Decimal     `json:"tax_amount"`
	ShippingAmount   decimal.Decimal     `json:"shipping_amount"`
	DiscountAmount   decimal.Decimal     `json:"discount_amount"`
	Total            decimal.Decimal     `json:"total"`
	Currency         string              `json:"currency"`
	ShippingAddress  address.Address     `json:"shipping_address"`
	BillingAddress   address.Address     `json:"billing_address"`
	PaymentMethod    string              `json:"payment_method"`
	ShippingMethod   cart.ShippingMethod `json:"shipping_method"`
	CheckoutToken    string              `json:"-"`
	PaymentReference string              `json:"payment_reference"`
	CreatedAt        time.Time           `json:"created_at"`
	// ItemsWrittenAt is set by the writer that owns the item batch.
	ItemsWrittenAt *time.Time  `json:"-"`
	Items          []OrderItem `json:"items"`
}

// IsPending reports whether the gateway has not settled the order yet.
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

// ItemsSubtotal sums item totals; for a written order it equals Subtotal.
func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.TotalPrice)
	}
	return sum
}

type OrderItem struct {
	ID                      string            `json:"id"`
	OrderID                 string            `json:"order_id"`
	LineNo                  int               `json:"line_no"`
	ProductID               string            `json:"product_id"`
	VariantID               *string           `json:"variant_id,omitempty"`
	Name                    string            `json:"name"`
	SKU                     *string           `json:"sku,omitempty"`
	Quantity                int               `json:"quantity"`
	UnitPrice               decimal.Decimal   `json:"unit_price"`
	TotalPrice              decimal.Decimal   `json:"total_price"`
	Attributes              map[string]string `json:"attributes,omitempty"`
	FulfillmentDispatchedAt *time.Time        `json:"fulfillment_dispatched_at,omitempty"`
}

// Dispatched reports whether a drop-ship request already went out for the item.
func (i OrderItem) Dispatched() bool {
	return i.FulfillmentDispatchedAt != nil
}

// ItemFromLine snapshots the cart line at position lineNo. Prices are copied, never looked up again.
func ItemFromLine(orderID string, lineNo int, l cart.Line) OrderItem {
	return OrderItem{
		OrderID:    orderID,
		LineNo:     lineNo,
		ProductID:  l.ProductID,
		VariantID:  l.VariantID,
		Name:       l.Name,
		SKU:        l.SKU,
		Quantity:   l.Quantity,
		UnitPrice:  l.UnitPrice,
		TotalPrice: l.LineTotal(),
		Attributes: l.Attributes,
	}
}
