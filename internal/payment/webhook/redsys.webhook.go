// Package webhook applies the gateway's asynchronous payment notifications to orders.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/metrics"
	"github.com/TechnoExperience/texnewweb-sub000/internal/order"
	"github.com/TechnoExperience/texnewweb-sub000/internal/payment"
	"github.com/TechnoExperience/texnewweb-sub000/internal/recordstore"

	"go.uber.org/zap"
)

const maxNotificationBytes = 64 << 10

// OrderService is the part of order.Service a notification touches.
type OrderService interface {
	GetByPaymentReference(ctx context.Context, reference string) (*order.Order, error)
	MarkAsPaid(ctx context.Context, orderID string) (bool, error)
	MarkAsFailed(ctx context.Context, orderID string) (bool, error)
}

type Verifier interface {
	VerifyNotification(parameters, signature string) (*payment.Notification, error)
}

type Handler struct {
	OrderSvc OrderService
	Verifier Verifier
	Repo     payment.Repository
	Metrics  *metrics.Metrics
}

func NewWebhookHandler(orderSvc OrderService, verifier Verifier, repo payment.Repository, m *metrics.Metrics) *Handler {
	return &Handler{
		OrderSvc: orderSvc,
		Verifier: verifier,
		Repo:     repo,
		Metrics:  m,
	}
}

// NotifyHandler is the only code path that moves an order out of pending. It answers 200
// for notifications it has applied or already applied, so the gateway stops retrying.
func (h *Handler) NotifyHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "handler"),
		zap.String("method", "NotifyHandler"),
	)

	r.Body = http.MaxBytesReader(w, r.Body, maxNotificationBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	version := r.PostForm.Get(payment.FieldSignatureVersion)
	params := r.PostForm.Get(payment.FieldMerchantParameters)
	signature := r.PostForm.Get(payment.FieldSignature)

	if version != payment.SignatureVersion || params == "" || signature == "" {
		h.Metrics.Notifications.WithLabelValues("rejected").Inc()
		http.Error(w, "missing or unsupported signature fields", http.StatusBadRequest)
		return
	}

	n, verifyErr := h.Verifier.VerifyNotification(params, signature)
	if n == nil {
		h.Metrics.Notifications.WithLabelValues("rejected").Inc()
		log.Warn("undecodable notification", zap.Error(verifyErr))
		http.Error(w, "invalid merchant parameters", http.StatusBadRequest)
		return
	}

	log = log.With(zap.String("payment_reference", n.Order), zap.String("response_code", n.Response))

	payload, err := recordstore.JSONValue(n.Raw)
	if err != nil {
		payload = params
	}
	auditID, err := h.Repo.SaveNotification(ctx, &payment.NotificationRecord{
		PaymentReference: n.Order,
		ResponseCode:     n.Response,
		SignatureValid:   verifyErr == nil,
		Payload:          payload,
	})
	if err != nil {
		log.Error("failed to record notification", zap.Error(err))
		http.Error(w, "failed to record notification", http.StatusInternalServerError)
		return
	}

	if verifyErr != nil {
		h.fail(ctx, auditID, "rejected", verifyErr.Error())
		log.Warn("notification signature rejected")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	o, err := h.OrderSvc.GetByPaymentReference(ctx, n.Order)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			h.fail(ctx, auditID, "rejected", err.Error())
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		h.fail(ctx, auditID, "error", err.Error())
		log.Error("failed to load order", zap.Error(err))
		http.Error(w, "failed to load order", http.StatusInternalServerError)
		return
	}

	if err := matchesOrder(n, o); err != nil {
		h.fail(ctx, auditID, "rejected", err.Error())
		log.Warn("notification does not match order", zap.String("order_id", o.ID), zap.Error(err))
		http.Error(w, "amount mismatch", http.StatusBadRequest)
		return
	}

	var (
		changed bool
		outcome string
	)
	if n.Authorized() {
		outcome = "paid"
		changed, err = h.OrderSvc.MarkAsPaid(ctx, o.ID)
	} else {
		outcome = "failed"
		changed, err = h.OrderSvc.MarkAsFailed(ctx, o.ID)
	}
	if err != nil {
		h.fail(ctx, auditID, "error", err.Error())
		log.Error("failed to update order", zap.String("order_id", o.ID), zap.Error(err))
		http.Error(w, "failed to update order", http.StatusInternalServerError)
		return
	}
	if !changed {
		outcome = "ignored"
	}

	if err := h.Repo.MarkNotificationProcessed(ctx, auditID); err != nil {
		log.Warn("failed to mark notification processed", zap.Error(err))
	}

	h.Metrics.Notifications.WithLabelValues(outcome).Inc()
	log.Info("notification applied", zap.String("order_id", o.ID), zap.String("outcome", outcome))

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func (h *Handler) fail(ctx context.Context, auditID, outcome, reason string) {
	h.Metrics.Notifications.WithLabelValues(outcome).Inc()
	if err := h.Repo.MarkNotificationFailed(ctx, auditID, reason); err != nil {
		logger.FromCtx(ctx).Warn("failed to mark notification failed", zap.Error(err))
	}
}

func matchesOrder(n *payment.Notification, o *order.Order) error {
	if n.Amount != payment.AmountInCents(o.Total) {
		return fmt.Errorf("%w: amount %s", payment.ErrAmountMismatch, n.Amount)
	}
	if n.Currency != "" {
		code, err := payment.CurrencyCode(o.Currency)
		if err != nil {
			return err
		}
		if n.Currency != code {
			return fmt.Errorf("%w: currency %s", payment.ErrAmountMismatch, n.Currency)
		}
	}
	return nil
}
