package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
	"github.com/TechnoExperience/texnewweb-sub000/internal/order"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderReader struct {
	mock.Mock
}

func (m *MockOrderReader) GetByID(ctx context.Context, orderID string) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func pendingOrder() *order.Order {
	return &order.Order{
		ID:               "o-1",
		Status:           order.StatusPending,
		Total:            decimal.RequireFromString("53.39"),
		Currency:         "EUR",
		PaymentReference: "1234ABCDEFGH",
		BillingAddress:   address.Address{FirstName: "Amelie", LastName: "Lens"},
	}
}

func TestSigningService_RequestSignature(t *testing.T) {
	ctx := context.Background()
	cfg := SigningConfig{
		GatewayURL: "https://sis-t.redsys.es:25443/sis/realizarPago",
		NotifyURL:  "https://api.shop.test/api/payments/notify",
		SuccessURL: "https://shop.test/checkout/success?order={order_id}",
		FailureURL: "https://shop.test/checkout/failed",
	}
	amount := decimal.RequireFromString("53.39")

	t.Run("Success", func(t *testing.T) {
		orders := new(MockOrderReader)
		orders.On("GetByID", ctx, "o-1").Return(pendingOrder(), nil)
		signer := newTestSigner(t)

		resp, err := NewSigningService(orders, signer, cfg).RequestSignature(ctx, SignRequest{OrderID: "o-1", Amount: amount, Currency: "eur"})
		require.NoError(t, err)
		require.True(t, resp.Complete())
		assert.Equal(t, cfg.GatewayURL, resp.RedirectURL)

		n, err := DecodeNotification(resp.Parameters)
		require.NoError(t, err)
		assert.Equal(t, "5339", n.Raw["DS_MERCHANT_AMOUNT"])
		assert.Equal(t, "1234ABCDEFGH", n.Raw["DS_MERCHANT_ORDER"])
		assert.Equal(t, "978", n.Raw["DS_MERCHANT_CURRENCY"])
		assert.Equal(t, "https://shop.test/checkout/success?order=o-1", n.Raw["DS_MERCHANT_URLOK"])
		assert.Equal(t, "Amelie Lens", n.Raw["DS_MERCHANT_TITULAR"])

		want, err := signer.Sign("1234ABCDEFGH", resp.Parameters)
		require.NoError(t, err)
		assert.Equal(t, want, resp.Signature)
	})

	tests := []struct {
		name   string
		order  *order.Order
		err    error
		req    SignRequest
		expect string
	}{
		{
			name:   "Tampered amount",
			order:  pendingOrder(),
			req:    SignRequest{OrderID: "o-1", Amount: decimal.RequireFromString("0.01"), Currency: "EUR"},
			expect: ErrAmountMismatch.Error(),
		},
		{
			name:   "Tampered currency",
			order:  pendingOrder(),
			req:    SignRequest{OrderID: "o-1", Amount: amount, Currency: "USD"},
			expect: ErrAmountMismatch.Error(),
		},
		{
			name: "Settled order",
			order: func() *order.Order {
				o := pendingOrder()
				o.Status = order.StatusPaid
				return o
			}(),
			req:    SignRequest{OrderID: "o-1", Amount: amount, Currency: "EUR"},
			expect: ErrOrderNotPending.Error(),
		},
		{
			name:   "Unknown order",
			err:    order.ErrOrderNotFound,
			req:    SignRequest{OrderID: "o-1", Amount: amount, Currency: "EUR"},
			expect: order.ErrOrderNotFound.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := new(MockOrderReader)
			if tt.order != nil {
				orders.On("GetByID", ctx, "o-1").Return(tt.order, nil)
			} else {
				orders.On("GetByID", ctx, "o-1").Return(nil, tt.err)
			}

			resp, err := NewSigningService(orders, newTestSigner(t), cfg).RequestSignature(ctx, tt.req)
			require.NoError(t, err)
			assert.False(t, resp.Success)
			assert.Empty(t, resp.Signature)
			assert.Equal(t, tt.expect, resp.Error)
		})
	}

	t.Run("Store failure is an error", func(t *testing.T) {
		orders := new(MockOrderReader)
		orders.On("GetByID", ctx, "o-1").Return(nil, errors.New("db down"))

		_, err := NewSigningService(orders, newTestSigner(t), cfg).RequestSignature(ctx, SignRequest{OrderID: "o-1", Amount: amount, Currency: "EUR"})
		assert.Error(t, err)
	})
}
