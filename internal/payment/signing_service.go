package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/order"

	"go.uber.org/zap"
)

// OrderReader is the part of the order service the signer needs.
type OrderReader interface {
	GetByID(ctx context.Context, orderID string) (*order.Order, error)
}

type SigningConfig struct {
	GatewayURL string
	NotifyURL  string
	// SuccessURL and FailureURL may contain {order_id}.
	SuccessURL string
	FailureURL string
}

type signingService struct {
	orders OrderReader
	signer *Signer
	cfg    SigningConfig
}

// NewSigningService signs locally. It only signs pending orders whose stored total and
// currency match the request, so a tampered client cannot pay less.
func NewSigningService(orders OrderReader, signer *Signer, cfg SigningConfig) Backend {
	return &signingService{orders: orders, signer: signer, cfg: cfg}
}

func (s *signingService) RequestSignature(ctx context.Context, req SignRequest) (*SignResponse, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RequestSignature"),
		zap.String("order_id", req.OrderID),
	)

	o, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return &SignResponse{Error: err.Error()}, nil
		}
		log.Error("failed to load order for signing", zap.Error(err))
		return nil, err
	}

	if !o.IsPending() {
		log.Warn("refusing to sign settled order", zap.String("status", string(o.Status)))
		return &SignResponse{Error: ErrOrderNotPending.Error()}, nil
	}
	if !o.Total.Equal(req.Amount) || !strings.EqualFold(o.Currency, req.Currency) {
		log.Warn("sign request does not match stored order",
			zap.String("amount", req.Amount.StringFixed(2)),
			zap.String("stored_amount", o.Total.StringFixed(2)),
		)
		return &SignResponse{Error: ErrAmountMismatch.Error()}, nil
	}

	currency, err := CurrencyCode(o.Currency)
	if err != nil {
		return &SignResponse{Error: err.Error()}, nil
	}

	params, err := s.signer.EncodeParameters(MerchantParameters{
		Amount:      AmountInCents(o.Total),
		Order:       o.PaymentReference,
		Currency:    currency,
		MerchantURL: s.cfg.NotifyURL,
		URLOK:       withOrderID(s.cfg.SuccessURL, o.ID),
		URLKO:       withOrderID(s.cfg.FailureURL, o.ID),
		Titular:     o.BillingAddress.FullName(),
	})
	if err != nil {
		return nil, err
	}

	signature, err := s.signer.Sign(o.PaymentReference, params)
	if err != nil {
		return nil, err
	}

	log.Info("payment request signed", zap.String("payment_reference", o.PaymentReference))
	return &SignResponse{
		Success:     true,
		RedirectURL: s.cfg.GatewayURL,
		Parameters:  params,
		Signature:   signature,
	}, nil
}

func withOrderID(url, orderID string) string {
	return strings.ReplaceAll(url, "{order_id}", orderID)
}
