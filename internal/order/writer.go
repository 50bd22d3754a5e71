package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
	"github.com/TechnoExperience/texnewweb-sub000/internal/cart"
	"github.com/TechnoExperience/texnewweb-sub000/internal/events"
	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/metrics"
	"github.com/TechnoExperience/texnewweb-sub000/internal/utils"

	"go.uber.org/zap"
)

type WriteInput struct {
	UserID          string
	Email           string
	CheckoutToken   string
	Lines           []cart.Line
	ShippingAddress address.Address
	BillingAddress  address.Address
	ShippingMethod  cart.ShippingMethod
	PaymentMethod   string
	Currency        string
}

// Writer persists an order header and its items, keyed by checkout token.
type Writer interface {
	Write(ctx context.Context, in WriteInput) (*Order, error)
}

type writer struct {
	repo      Repository
	valuator  *cart.Valuator
	publisher events.Publisher
	metrics   *metrics.Metrics
}

func NewWriter(repo Repository, valuator *cart.Valuator, publisher events.Publisher, m *metrics.Metrics) Writer {
	return &writer{repo: repo, valuator: valuator, publisher: publisher, metrics: m}
}

// Write re-derives totals, then either resumes the order already written for the token
// or inserts a new pending header followed by one batch of items. The header is inserted
// with its item batch claimed, so a concurrent submit with the same token cannot write
// the items a second time. A failed batch releases the claim and leaves the header in
// place; retrying with the same token fills it in.
func (w *writer) Write(ctx context.Context, in WriteInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Write"),
		zap.Int("line_count", len(in.Lines)),
	)

	if in.CheckoutToken == "" {
		return nil, ErrMissingCheckoutToken
	}

	totals, err := w.valuator.Valuate(in.Lines, in.ShippingMethod)
	if err != nil {
		return nil, err
	}

	existing, err := w.repo.GetByCheckoutToken(ctx, in.CheckoutToken)
	switch {
	case err == nil:
		return w.resume(ctx, existing, in, totals)
	case !errors.Is(err, ErrOrderNotFound):
		w.metrics.OrderWrites.WithLabelValues("failed").Inc()
		return nil, err
	}

	method := in.ShippingMethod
	if method == "" {
		method = cart.DefaultShippingMethod
	}

	createdAt := now()
	header, err := w.repo.CreateOrder(ctx, &Order{
		UserID:           in.UserID,
		Email:            in.Email,
		Status:           StatusPending,
		PaymentStatus:    PaymentPending,
		Subtotal:         totals.Subtotal,
		TaxAmount:        totals.TaxAmount,
		ShippingAmount:   totals.ShippingCost,
		DiscountAmount:   totals.Discount,
		Total:            totals.Total,
		Currency:         in.Currency,
		ShippingAddress:  in.ShippingAddress,
		BillingAddress:   in.BillingAddress,
		PaymentMethod:    in.PaymentMethod,
		ShippingMethod:   method,
		CheckoutToken:    in.CheckoutToken,
		PaymentReference: utils.GeneratePaymentReference(),
		CreatedAt:        createdAt,
		ItemsWrittenAt:   &createdAt,
	})
	if err != nil {
		// A concurrent submit may have won the unique token.
		if raced, lookupErr := w.repo.GetByCheckoutToken(ctx, in.CheckoutToken); lookupErr == nil {
			return w.resume(ctx, raced, in, totals)
		}
		w.metrics.OrderWrites.WithLabelValues("failed").Inc()
		return nil, err
	}

	if header.Items, err = w.insertItems(ctx, header.ID, in.Lines); err != nil {
		log.Error("order header left without items", zap.String("order_id", header.ID), zap.Error(err))
		w.metrics.OrderWrites.WithLabelValues("failed").Inc()
		return nil, err
	}

	w.metrics.OrderWrites.WithLabelValues("created").Inc()
	log.Info("order written",
		zap.String("order_id", header.ID),
		zap.String("payment_reference", header.PaymentReference),
		zap.String("total", header.Total.StringFixed(2)),
	)

	if err := w.publisher.Publish(ctx, events.Event{
		Type:             events.OrderCreated,
		OrderID:          header.ID,
		PaymentReference: header.PaymentReference,
		Status:           string(header.Status),
		Total:            header.Total.StringFixed(2),
		Currency:         header.Currency,
	}); err != nil {
		log.Warn("failed to publish order event", zap.Error(err))
	}

	return header, nil
}

func (w *writer) resume(ctx context.Context, existing *Order, in WriteInput, totals cart.Totals) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Write"),
		zap.String("order_id", existing.ID),
	)

	if !existing.IsPending() {
		return nil, ErrOrderClosed
	}
	if existing.UserID != in.UserID || !existing.Total.Equal(totals.Total) {
		log.Warn("checkout token reused with a different cart",
			zap.String("stored_total", existing.Total.StringFixed(2)),
			zap.String("total", totals.Total.StringFixed(2)),
		)
		return nil, ErrTokenConflict
	}

	if len(existing.Items) == 0 {
		items, err := w.completeOrphan(ctx, existing.ID, in.Lines)
		if err != nil {
			if !errors.Is(err, ErrWriteInProgress) {
				w.metrics.OrderWrites.WithLabelValues("failed").Inc()
			}
			return nil, err
		}
		existing.Items = items
	}

	w.metrics.OrderWrites.WithLabelValues("resumed").Inc()
	log.Info("order resumed")
	return existing, nil
}

// completeOrphan writes the items of a header that has none, provided the batch can be claimed.
// Losing the claim means another request owns the batch: its items are returned once visible.
func (w *writer) completeOrphan(ctx context.Context, orderID string, lines []cart.Line) ([]OrderItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Write"),
		zap.String("order_id", orderID),
	)

	claimed, err := w.repo.ClaimItems(ctx, orderID, now())
	if err != nil {
		return nil, err
	}
	if !claimed {
		items, err := w.repo.ListItems(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			log.Info("order items held by a concurrent submit")
			return nil, ErrWriteInProgress
		}
		return items, nil
	}

	items, err := w.insertItems(ctx, orderID, lines)
	if err != nil {
		return nil, err
	}
	log.Info("orphan order header completed")
	return items, nil
}

// insertItems writes the batch under an already held claim and releases the claim on failure.
func (w *writer) insertItems(ctx context.Context, orderID string, lines []cart.Line) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(lines))
	for i, l := range lines {
		items = append(items, ItemFromLine(orderID, i+1, l))
	}
	created, err := w.repo.CreateItems(ctx, orderID, items)
	if err != nil {
		if releaseErr := w.repo.ReleaseItems(ctx, orderID); releaseErr != nil {
			logger.FromCtx(ctx).Error("failed to release order items claim",
				zap.String("order_id", orderID),
				zap.Error(releaseErr),
			)
		}
		return nil, fmt.Errorf("order %s: %w", orderID, err)
	}
	return created, nil
}
