// Package fulfillment sends drop-shipping requests for the items of a written order.
package fulfillment

import (
	"context"
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/metrics"
	"github.com/TechnoExperience/texnewweb-sub000/internal/order"
	"github.com/TechnoExperience/texnewweb-sub000/internal/product"
	"github.com/TechnoExperience/texnewweb-sub000/internal/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProductRepository resolves the catalog entries of an order's items.
type ProductRepository interface {
	GetProducts(ctx context.Context, ids []string) (map[string]product.Product, error)
}

// ItemMarker records that an item was handed to its provider.
type ItemMarker interface {
	MarkItemDispatched(ctx context.Context, itemID string, at time.Time) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, o *order.Order) Result
}

type dispatcher struct {
	products    ProductRepository
	client      Client
	marker      ItemMarker
	concurrency int
	metrics     *metrics.Metrics
}

// NewDispatcher runs at most concurrency provider calls at once; 1 means sequential.
func NewDispatcher(products ProductRepository, client Client, marker ItemMarker, concurrency int, m *metrics.Metrics) Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &dispatcher{
		products:    products,
		client:      client,
		marker:      marker,
		concurrency: concurrency,
		metrics:     m,
	}
}

// Dispatch is best effort: every failure is logged and counted, none is returned, so a
// provider outage never blocks payment. Items already carrying a dispatched marker are
// skipped, which makes a retried checkout safe.
func (d *dispatcher) Dispatch(ctx context.Context, o *order.Order) Result {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Dispatch"),
		zap.String("order_id", o.ID),
	)

	var result Result
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}

	products, err := d.products.GetProducts(ctx, ids)
	if err != nil {
		log.Warn("product lookup failed, fulfillment skipped", zap.Error(err))
		d.metrics.FulfillmentDispatches.WithLabelValues("failed").Inc()
		result.Failed = len(o.Items)
		return result
	}

	type job struct {
		item        order.OrderItem
		providerURL string
	}

	var jobs []job
	for _, it := range o.Items {
		p, ok := products[it.ProductID]
		if !ok || !p.Qualifies() {
			continue
		}
		if it.Dispatched() {
			result.Skipped++
			d.metrics.FulfillmentDispatches.WithLabelValues("skipped").Inc()
			continue
		}
		jobs = append(jobs, job{item: it, providerURL: *p.ProviderURL})
	}

	if len(jobs) == 0 {
		return result
	}

	customer := CustomerData{
		Name:    o.ShippingAddress.FullName(),
		Email:   o.Email,
		Phone:   utils.PtrString(o.ShippingAddress.Phone),
		Address: o.ShippingAddress,
	}

	// One slot per job keeps hand-offs in item order whatever the completion order.
	outcomes := make([]*Response, len(jobs))
	failed := make([]bool, len(jobs))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			itemLog := log.With(
				zap.String("item_id", j.item.ID),
				zap.String("product_id", j.item.ProductID),
			)

			resp, err := d.client.RequestFulfillment(ctx, j.providerURL, Request{
				OrderID:      o.ID,
				ProductID:    j.item.ProductID,
				Quantity:     j.item.Quantity,
				CustomerData: customer,
			})
			if err != nil {
				itemLog.Warn("fulfillment request failed", zap.Error(err))
				d.metrics.FulfillmentDispatches.WithLabelValues("failed").Inc()
				failed[i] = true
				return nil
			}

			if err := d.marker.MarkItemDispatched(ctx, j.item.ID, time.Now().UTC()); err != nil {
				itemLog.Warn("failed to mark item dispatched", zap.Error(err))
			}

			d.metrics.FulfillmentDispatches.WithLabelValues("ok").Inc()
			itemLog.Info("fulfillment requested")
			outcomes[i] = resp
			return nil
		})
	}
	_ = g.Wait()

	for i, j := range jobs {
		if failed[i] {
			result.Failed++
			continue
		}
		result.Dispatched++

		resp := outcomes[i]
		if resp == nil || resp.RedirectURL == nil || *resp.RedirectURL == "" {
			continue
		}
		result.HandOffs = append(result.HandOffs, HandOff{
			ItemID:       j.item.ID,
			ProductID:    j.item.ProductID,
			RedirectURL:  *resp.RedirectURL,
			SupplierName: utils.PtrString(resp.SupplierName),
		})
	}

	log.Info("fulfillment dispatch finished",
		zap.Int("dispatched", result.Dispatched),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result
}
