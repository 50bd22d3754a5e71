package order

import (
	"context"
	"fmt"
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/recordstore"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	ordersTable = "orders"
	itemsTable  = "order_items"
)

type Repository interface {
	CreateOrder(ctx context.Context, o *Order) (*Order, error)
	CreateItems(ctx context.Context, orderID string, items []OrderItem) ([]OrderItem, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByCheckoutToken(ctx context.Context, token string) (*Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*Order, error)
	ListItems(ctx context.Context, orderID string) ([]OrderItem, error)
	// ClaimItems marks the item batch of a header as taken. Only one caller gets true.
	ClaimItems(ctx context.Context, orderID string, at time.Time) (bool, error)
	// ReleaseItems hands a claimed batch back after a failed insert.
	ReleaseItems(ctx context.Context, orderID string) error
	MarkItemDispatched(ctx context.Context, itemID string, at time.Time) error
	// TransitionFromPending applies status and payment status only while the order is pending.
	// It reports whether a row changed.
	TransitionFromPending(ctx context.Context, id string, status Status, payment PaymentStatus) (bool, error)
}

type repository struct {
	store recordstore.Store
}

func NewRepository(store recordstore.Store) Repository {
	return &repository{store: store}
}

func (r *repository) CreateOrder(ctx context.Context, o *Order) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
	)

	row, err := orderToRow(o)
	if err != nil {
		return nil, err
	}

	rows, err := r.store.Insert(ctx, ordersTable, row)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return nil, fmt.Errorf("insert order: %w", err)
	}

	created, err := orderFromRow(rows[0])
	if err != nil {
		return nil, err
	}

	log.Info("order header inserted", zap.String("order_id", created.ID))
	return created, nil
}

// CreateItems inserts all items in one batch keyed by orderID.
func (r *repository) CreateItems(ctx context.Context, orderID string, items []OrderItem) ([]OrderItem, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateItems"),
		zap.String("order_id", orderID),
		zap.Int("item_count", len(items)),
	)

	rows := make([]recordstore.Row, 0, len(items))
	for i, it := range items {
		it.OrderID = orderID
		if it.LineNo == 0 {
			it.LineNo = i + 1
		}
		row, err := itemToRow(it)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	inserted, err := r.store.Insert(ctx, itemsTable, rows...)
	if err != nil {
		log.Error("failed to insert order items", zap.Error(err))
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	out, err := itemsFromRows(inserted)
	if err != nil {
		return nil, err
	}

	log.Info("order items inserted")
	return out, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}
	return r.getOne(ctx, "GetByID", recordstore.Eq("id", id))
}

func (r *repository) GetByCheckoutToken(ctx context.Context, token string) (*Order, error) {
	return r.getOne(ctx, "GetByCheckoutToken", recordstore.Eq("checkout_token", token))
}

func (r *repository) GetByPaymentReference(ctx context.Context, reference string) (*Order, error) {
	return r.getOne(ctx, "GetByPaymentReference", recordstore.Eq("payment_reference", reference))
}

// getOne loads the first matching order together with its items.
func (r *repository) getOne(ctx context.Context, method string, f recordstore.Filter) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", method),
	)

	rows, err := r.store.Select(ctx, ordersTable, f)
	if err != nil {
		log.Error("failed to select order", zap.Error(err))
		return nil, fmt.Errorf("select order: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrOrderNotFound
	}

	o, err := orderFromRow(rows[0])
	if err != nil {
		log.Error("failed to decode order", zap.Error(err))
		return nil, err
	}

	if o.Items, err = r.ListItems(ctx, o.ID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) ListItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := r.store.Select(ctx, itemsTable, recordstore.Eq("order_id", orderID).OrderBy("line_no"))
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	return itemsFromRows(rows)
}

func (r *repository) ClaimItems(ctx context.Context, orderID string, at time.Time) (bool, error) {
	rows, err := r.store.Update(ctx, ordersTable,
		recordstore.Row{"items_written_at": at},
		recordstore.Eq("id", orderID).IsNull("items_written_at"),
	)
	if err != nil {
		return false, fmt.Errorf("claim order items: %w", err)
	}
	return len(rows) > 0, nil
}

func (r *repository) ReleaseItems(ctx context.Context, orderID string) error {
	_, err := r.store.Update(ctx, ordersTable,
		recordstore.Row{"items_written_at": nil},
		recordstore.Eq("id", orderID),
	)
	if err != nil {
		return fmt.Errorf("release order items: %w", err)
	}
	return nil
}

// MarkItemDispatched only sets the marker once; a second call is a no-op.
func (r *repository) MarkItemDispatched(ctx context.Context, itemID string, at time.Time) error {
	_, err := r.store.Update(ctx, itemsTable,
		recordstore.Row{"fulfillment_dispatched_at": at},
		recordstore.Eq("id", itemID).IsNull("fulfillment_dispatched_at"),
	)
	if err != nil {
		return fmt.Errorf("mark item dispatched: %w", err)
	}
	return nil
}

func (r *repository) TransitionFromPending(ctx context.Context, id string, status Status, payment PaymentStatus) (bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "TransitionFromPending"),
		zap.String("order_id", id),
		zap.String("status", string(status)),
	)

	rows, err := r.store.Update(ctx, ordersTable,
		recordstore.Row{"status": string(status), "payment_status": string(payment)},
		recordstore.Eq("id", id).Eq("status", string(StatusPending)),
	)
	if err != nil {
		log.Error("failed to update order status", zap.Error(err))
		return false, fmt.Errorf("update order status: %w", err)
	}

	log.Info("order status transition", zap.Bool("changed", len(rows) > 0))
	return len(rows) > 0, nil
}

func itemsFromRows(rows []recordstore.Row) ([]OrderItem, error) {
	items := make([]OrderItem, 0, len(rows))
	for _, row := range rows {
		it, err := itemFromRow(row)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
