package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/recordstore"

	"go.uber.org/zap"
)

const notificationsTable = "payment_notifications"

// Repository keeps the audit trail of gateway callbacks.
type Repository interface {
	SaveNotification(ctx context.Context, rec *NotificationRecord) (string, error)
	MarkNotificationProcessed(ctx context.Context, id string) error
	MarkNotificationFailed(ctx context.Context, id string, reason string) error
}

type repository struct {
	store recordstore.Store
}

func NewRepository(store recordstore.Store) Repository {
	return &repository{store: store}
}

func (r *repository) SaveNotification(ctx context.Context, rec *NotificationRecord) (string, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "SaveNotification"),
		zap.String("payment_reference", rec.PaymentReference),
	)

	rows, err := r.store.Insert(ctx, notificationsTable, recordstore.Row{
		"payment_reference": rec.PaymentReference,
		"response_code":     rec.ResponseCode,
		"signature_valid":   rec.SignatureValid,
		"payload":           rec.Payload,
		"received_at":       time.Now().UTC(),
	})
	if err != nil {
		log.Error("failed to save notification", zap.Error(err))
		return "", fmt.Errorf("insert notification: %w", err)
	}
	return rows[0].String("id"), nil
}

func (r *repository) MarkNotificationProcessed(ctx context.Context, id string) error {
	_, err := r.store.Update(ctx, notificationsTable,
		recordstore.Row{"processed_at": time.Now().UTC()},
		recordstore.Eq("id", id),
	)
	if err != nil {
		return fmt.Errorf("mark notification processed: %w", err)
	}
	return nil
}

func (r *repository) MarkNotificationFailed(ctx context.Context, id string, reason string) error {
	_, err := r.store.Update(ctx, notificationsTable,
		recordstore.Row{"processed_at": time.Now().UTC(), "error": reason},
		recordstore.Eq("id", id),
	)
	if err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}
