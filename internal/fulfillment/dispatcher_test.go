package fulfillment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
	"github.com/TechnoExperience/texnewweb-sub000/internal/metrics"
	"github.com/TechnoExperience/texnewweb-sub000/internal/order"
	"github.com/TechnoExperience/texnewweb-sub000/internal/product"
	"github.com/TechnoExperience/texnewweb-sub000/internal/recordstore"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clientFunc func(ctx context.Context, providerURL string, req Request) (*Response, error)

func (f clientFunc) RequestFulfillment(ctx context.Context, providerURL string, req Request) (*Response, error) {
	return f(ctx, providerURL, req)
}

type recordingMarker struct {
	mu     sync.Mutex
	marked []string
}

func (m *recordingMarker) MarkItemDispatched(_ context.Context, itemID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = append(m.marked, itemID)
	return nil
}

func strPtr(s string) *string { return &s }

func seedProducts(t *testing.T) recordstore.Store {
	t.Helper()
	store := recordstore.NewMemory()
	_, err := store.Insert(context.Background(), product.Table,
		recordstore.Row{"id": "drop-1", "name": "Tee", "dropshipping_enabled": true, "dropshipping_provider_url": "https://supplier-a.test/orders"},
		recordstore.Row{"id": "drop-2", "name": "Poster", "dropshipping_enabled": true, "dropshipping_provider_url": "https://supplier-b.test/orders"},
		recordstore.Row{"id": "drop-3", "name": "Hoodie", "dropshipping_enabled": true, "dropshipping_provider_url": "https://supplier-a.test/orders"},
		recordstore.Row{"id": "local", "name": "Ticket", "dropshipping_enabled": false, "dropshipping_provider_url": nil},
		recordstore.Row{"id": "no-url", "name": "Cap", "dropshipping_enabled": true, "dropshipping_provider_url": nil},
	)
	require.NoError(t, err)
	return store
}

func testOrder() *order.Order {
	return &order.Order{
		ID:    "o-1",
		Email: "amelie@example.com",
		ShippingAddress: address.Address{
			FirstName: "Amelie", LastName: "Lens", AddressLine1: "Calle Mayor 1",
			City: "Madrid", PostalCode: "28013", Country: "ES", Phone: strPtr("+34600000000"),
		},
		Items: []order.OrderItem{
			{ID: "i-1", ProductID: "drop-1", Quantity: 1},
			{ID: "i-2", ProductID: "local", Quantity: 2},
			{ID: "i-3", ProductID: "drop-2", Quantity: 3},
			{ID: "i-4", ProductID: "no-url", Quantity: 1},
			{ID: "i-5", ProductID: "drop-3", Quantity: 1},
		},
	}
}

func TestDispatcher_DispatchesQualifyingItems(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []Request
	)
	client := clientFunc(func(_ context.Context, providerURL string, req Request) (*Response, error) {
		mu.Lock()
		calls = append(calls, req)
		mu.Unlock()
		if req.ProductID == "drop-2" {
			return &Response{RedirectURL: strPtr("https://supplier-b.test/track/1"), SupplierName: strPtr("Supplier B")}, nil
		}
		return &Response{}, nil
	})

	marker := &recordingMarker{}
	m := metrics.New()
	d := NewDispatcher(product.NewRepository(seedProducts(t)), client, marker, 1, m)

	res := d.Dispatch(context.Background(), testOrder())

	assert.Equal(t, 3, res.Dispatched)
	assert.Equal(t, 0, res.Failed)
	require.Len(t, calls, 3)
	assert.Equal(t, "drop-1", calls[0].ProductID, "sequential dispatch keeps item order")
	assert.Equal(t, "Amelie Lens", calls[0].CustomerData.Name)
	assert.Equal(t, "+34600000000", calls[0].CustomerData.Phone)
	assert.ElementsMatch(t, []string{"i-1", "i-3", "i-5"}, marker.marked)

	require.Len(t, res.HandOffs, 1)
	assert.Equal(t, "i-3", res.HandOffs[0].ItemID)
	assert.Equal(t, "Supplier B", res.HandOffs[0].SupplierName)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FulfillmentDispatches.WithLabelValues("ok")))
}

func TestDispatcher_FailuresNeverPropagate(t *testing.T) {
	client := clientFunc(func(context.Context, string, Request) (*Response, error) {
		return nil, errors.New("supplier down")
	})
	marker := &recordingMarker{}
	m := metrics.New()
	d := NewDispatcher(product.NewRepository(seedProducts(t)), client, marker, 2, m)

	res := d.Dispatch(context.Background(), testOrder())

	assert.Equal(t, 0, res.Dispatched)
	assert.Equal(t, 3, res.Failed)
	assert.Empty(t, res.HandOffs)
	assert.Empty(t, marker.marked)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.FulfillmentDispatches.WithLabelValues("failed")))
}

func TestDispatcher_SkipsDispatchedItems(t *testing.T) {
	var calls atomic.Int32
	client := clientFunc(func(context.Context, string, Request) (*Response, error) {
		calls.Add(1)
		return &Response{}, nil
	})
	d := NewDispatcher(product.NewRepository(seedProducts(t)), client, &recordingMarker{}, 1, metrics.New())

	o := testOrder()
	at := time.Now()
	o.Items[0].FulfillmentDispatchedAt = &at
	o.Items[2].FulfillmentDispatchedAt = &at

	res := d.Dispatch(context.Background(), o)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, res.Dispatched)
	assert.Equal(t, 2, res.Skipped)
}

func TestDispatcher_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	client := clientFunc(func(context.Context, string, Request) (*Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return &Response{}, nil
	})

	store := recordstore.NewMemory()
	o := &order.Order{ID: "o-1"}
	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		_, err := store.Insert(context.Background(), product.Table, recordstore.Row{
			"id": id, "name": id, "dropshipping_enabled": true, "dropshipping_provider_url": "https://supplier.test",
		})
		require.NoError(t, err)
		o.Items = append(o.Items, order.OrderItem{ID: "i-" + id, ProductID: id, Quantity: 1})
	}

	d := NewDispatcher(product.NewRepository(store), client, &recordingMarker{}, 2, metrics.New())
	res := d.Dispatch(context.Background(), o)

	assert.Equal(t, 8, res.Dispatched)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestDispatcher_ProductLookupFailure(t *testing.T) {
	d := NewDispatcher(failingProducts{}, clientFunc(func(context.Context, string, Request) (*Response, error) {
		t.Fatal("provider must not be called")
		return nil, nil
	}), &recordingMarker{}, 1, metrics.New())

	res := d.Dispatch(context.Background(), testOrder())
	assert.Equal(t, 0, res.Dispatched)
}

type failingProducts struct{}

func (failingProducts) GetProducts(context.Context, []string) (map[string]product.Product, error) {
	return nil, errors.New("db down")
}

func TestDispatcher_MarkerPreventsRedispatchAcrossRetries(t *testing.T) {
	ctx := context.Background()
	store := seedProducts(t)
	orders := order.NewRepository(store)

	header, err := orders.CreateOrder(ctx, &order.Order{
		UserID: "u-1", Status: order.StatusPending, PaymentStatus: order.PaymentPending, CheckoutToken: "tok",
		PaymentReference: "1234ABCDEFGH", Currency: "EUR",
	})
	require.NoError(t, err)
	_, err = orders.CreateItems(ctx, header.ID, []order.OrderItem{
		{ProductID: "drop-1", Name: "Tee", Quantity: 1},
		{ProductID: "local", Name: "Ticket", Quantity: 1},
	})
	require.NoError(t, err)

	var calls atomic.Int32
	client := clientFunc(func(context.Context, string, Request) (*Response, error) {
		calls.Add(1)
		return &Response{}, nil
	})
	d := NewDispatcher(product.NewRepository(store), client, orders, 1, metrics.New())

	for i := 0; i < 2; i++ {
		o, err := orders.GetByID(ctx, header.ID)
		require.NoError(t, err)
		d.Dispatch(ctx, o)
	}

	assert.Equal(t, int32(1), calls.Load())
}
