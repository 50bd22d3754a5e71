// Package order writes checkout orders and applies the gateway's payment outcome to them.
package order

import (
	"context"

	"github.com/TechnoExperience/texnewweb-sub000/internal/events"
	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"

	"go.uber.org/zap"
)

type Service interface {
	// GetOrderDetail returns an order only to its owner.
	GetOrderDetail(ctx context.Context, userID, orderID string) (*Order, error)
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*Order, error)
	MarkAsPaid(ctx context.Context, orderID string) (bool, error)
	MarkAsFailed(ctx context.Context, orderID string) (bool, error)
}

type service struct {
	repo      Repository
	publisher events.Publisher
}

func NewService(repo Repository, publisher events.Publisher) Service {
	return &service{repo: repo, publisher: publisher}
}

func (s *service) GetOrderDetail(ctx context.Context, userID, orderID string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID == "" || o.UserID != userID {
		return nil, ErrUnauthorized
	}
	return o, nil
}

func (s *service) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *service) GetByPaymentReference(ctx context.Context, reference string) (*Order, error) {
	return s.repo.GetByPaymentReference(ctx, reference)
}

func (s *service) MarkAsPaid(ctx context.Context, orderID string) (bool, error) {
	return s.transition(ctx, orderID, StatusPaid, PaymentAuthorized, events.OrderPaid)
}

func (s *service) MarkAsFailed(ctx context.Context, orderID string) (bool, error) {
	return s.transition(ctx, orderID, StatusFailed, PaymentFailed, events.OrderFailed)
}

// transition is a no-op for orders that already left pending, so repeated gateway
// notifications are harmless.
func (s *service) transition(ctx context.Context, orderID string, status Status, payment PaymentStatus, evt events.Type) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "transition"),
		zap.String("order_id", orderID),
		zap.String("status", string(status)),
	)

	changed, err := s.repo.TransitionFromPending(ctx, orderID, status, payment)
	if err != nil {
		return false, err
	}
	if !changed {
		log.Info("order already settled, transition skipped")
		return false, nil
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		log.Warn("order changed but could not be reloaded for event", zap.Error(err))
		return true, nil
	}

	if err := s.publisher.Publish(ctx, events.Event{
		Type:             evt,
		OrderID:          o.ID,
		PaymentReference: o.PaymentReference,
		Status:           string(o.Status),
		Total:            o.Total.StringFixed(2),
		Currency:         o.Currency,
	}); err != nil {
		log.Warn("failed to publish order event", zap.Error(err))
	}

	log.Info("order status updated")
	return true, nil
}
