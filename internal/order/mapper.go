package order

import (
	"fmt"
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/cart"
	"github.com/TechnoExperience/texnewweb-sub000/internal/recordstore"
)

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func orderToRow(o *Order) (recordstore.Row, error) {
	shipping, err := recordstore.JSONValue(o.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("encode shipping address: %w", err)
	}
	billing, err := recordstore.JSONValue(o.BillingAddress)
	if err != nil {
		return nil, fmt.Errorf("encode billing address: %w", err)
	}

	return recordstore.Row{
		"user_id":           o.UserID,
		"email":             o.Email,
		"status":            string(o.Status),
		"payment_status":    string(o.PaymentStatus),
		"subtotal":          o.Subtotal.StringFixed(2),
		"tax_amount":        o.TaxAmount.StringFixed(2),
		"shipping_amount":   o.ShippingAmount.StringFixed(2),
		"discount_amount":   o.DiscountAmount.StringFixed(2),
		"total":             o.Total.StringFixed(2),
		"currency":          o.Currency,
		"shipping_address":  shipping,
		"billing_address":   billing,
		"payment_method":    o.PaymentMethod,
		"shipping_method":   string(o.ShippingMethod),
		"checkout_token":    o.CheckoutToken,
		"payment_reference": o.PaymentReference,
		"created_at":        o.CreatedAt,
		"items_written_at":  nullableTime(o.ItemsWrittenAt),
	}, nil
}

func orderFromRow(row recordstore.Row) (*Order, error) {
	o := &Order{
		ID:               row.String("id"),
		UserID:           row.String("user_id"),
		Email:            row.String("email"),
		Status:           Status(row.String("status")),
		PaymentStatus:    PaymentStatus(row.String("payment_status")),
		Currency:         row.String("currency"),
		PaymentMethod:    row.String("payment_method"),
		ShippingMethod:   cart.ShippingMethod(row.String("shipping_method")),
		CheckoutToken:    row.String("checkout_token"),
		PaymentReference: row.String("payment_reference"),
	}
	if t := row.Time("created_at"); t != nil {
		o.CreatedAt = *t
	}
	o.ItemsWrittenAt = row.Time("items_written_at")

	var err error
	if o.Subtotal, err = row.Decimal("subtotal"); err != nil {
		return nil, err
	}
	if o.TaxAmount, err = row.Decimal("tax_amount"); err != nil {
		return nil, err
	}
	if o.ShippingAmount, err = row.Decimal("shipping_amount"); err != nil {
		return nil, err
	}
	if o.DiscountAmount, err = row.Decimal("discount_amount"); err != nil {
		return nil, err
	}
	if o.Total, err = row.Decimal("total"); err != nil {
		return nil, err
	}
	if err := row.JSON("shipping_address", &o.ShippingAddress); err != nil {
		return nil, err
	}
	if err := row.JSON("billing_address", &o.BillingAddress); err != nil {
		return nil, err
	}
	return o, nil
}

func itemToRow(it OrderItem) (recordstore.Row, error) {
	attrs, err := recordstore.JSONValue(it.Attributes)
	if err != nil {
		return nil, fmt.Errorf("encode attributes: %w", err)
	}

	return recordstore.Row{
		"order_id":                  it.OrderID,
		"line_no":                   it.LineNo,
		"product_id":                it.ProductID,
		"variant_id":                nullable(it.VariantID),
		"name":                      it.Name,
		"sku":                       nullable(it.SKU),
		"quantity":                  it.Quantity,
		"unit_price":                it.UnitPrice.StringFixed(2),
		"total_price":               it.TotalPrice.StringFixed(2),
		"attributes":                attrs,
		"fulfillment_dispatched_at": nil,
	}, nil
}

func itemFromRow(row recordstore.Row) (OrderItem, error) {
	it := OrderItem{
		ID:                      row.String("id"),
		OrderID:                 row.String("order_id"),
		LineNo:                  row.Int("line_no"),
		ProductID:               row.String("product_id"),
		VariantID:               row.StringPtr("variant_id"),
		Name:                    row.String("name"),
		SKU:                     row.StringPtr("sku"),
		Quantity:                row.Int("quantity"),
		FulfillmentDispatchedAt: row.Time("fulfillment_dispatched_at"),
	}

	var err error
	if it.UnitPrice, err = row.Decimal("unit_price"); err != nil {
		return OrderItem{}, err
	}
	if it.TotalPrice, err = row.Decimal("total_price"); err != nil {
		return OrderItem{}, err
	}
	if err := row.JSON("attributes", &it.Attributes); err != nil {
		return OrderItem{}, err
	}
	return it, nil
}

func now() time.Time {
	return time.Now().UTC()
}
