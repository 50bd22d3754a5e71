package webhook

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/TechnoExperience/texnewweb-sub000/internal/events"
	"github.com/TechnoExperience/texnewweb-sub000/internal/metrics"
	"github.com/TechnoExperience/texnewweb-sub000/internal/order"
	"github.com/TechnoExperience/texnewweb-sub000/internal/payment"
	"github.com/TechnoExperience/texnewweb-sub000/internal/recordstore"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "sq7HjrUOBfKmC576ILgskD5srU870gJ7"

type fixture struct {
	store   *recordstore.Memory
	orders  order.Service
	signer  *payment.Signer
	metrics *metrics.Metrics
	handler *Handler
	order   *order.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := recordstore.NewMemory()
	repo := order.NewRepository(store)
	o, err := repo.CreateOrder(ctx, &order.Order{
		UserID:           "u-1",
		Status:           order.StatusPending,
		PaymentStatus:    order.PaymentPending,
		Total:            decimal.RequireFromString("53.39"),
		Currency:         "EUR",
		CheckoutToken:    "tok",
		PaymentReference: "1234ABCDEFGH",
	})
	require.NoError(t, err)

	signer, err := payment.NewSigner("999008881", "1", testSecret)
	require.NoError(t, err)

	svc := order.NewService(repo, events.Nop{})
	m := metrics.New()
	return &fixture{
		store:   store,
		orders:  svc,
		signer:  signer,
		metrics: m,
		handler: NewWebhookHandler(svc, signer, payment.NewRepository(store), m),
		order:   o,
	}
}

func (f *fixture) form(t *testing.T, fields map[string]any, tamper bool) url.Values {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	params := base64.URLEncoding.EncodeToString(raw)

	sig, err := f.signer.Sign(fields["Ds_Order"].(string), params)
	require.NoError(t, err)
	sig = strings.NewReplacer("+", "-", "/", "_").Replace(sig)
	if tamper {
		sig = "AAAA" + sig[4:]
	}

	return url.Values{
		"Ds_SignatureVersion":   {payment.SignatureVersion},
		"Ds_MerchantParameters": {params},
		"Ds_Signature":          {sig},
	}
}

func post(h *Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/notify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.NotifyHandler(w, req)
	return w
}

func paid(code string) map[string]any {
	return map[string]any{
		"Ds_Order":    "1234ABCDEFGH",
		"Ds_Amount":   "5339",
		"Ds_Currency": "978",
		"Ds_Response": code,
	}
}

func TestHandler_NotifyHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Paid_Once", func(t *testing.T) {
		f := newFixture(t)

		w := post(f.handler, f.form(t, paid("0000"), false))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())

		o, err := f.orders.GetByID(ctx, f.order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, o.Status)
		assert.Equal(t, order.PaymentAuthorized, o.PaymentStatus)

		// A replay, or a late failure notice, changes nothing.
		w = post(f.handler, f.form(t, paid("0190"), false))
		assert.Equal(t, http.StatusOK, w.Code)
		o, _ = f.orders.GetByID(ctx, f.order.ID)
		assert.Equal(t, order.StatusPaid, o.Status)

		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("paid")))
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Notifications.WithLabelValues("ignored")))

		audit, _ := f.store.Select(ctx, "payment_notifications", recordstore.All())
		assert.Len(t, audit, 2)
	})

	t.Run("Declined", func(t *testing.T) {
		f := newFixture(t)

		w := post(f.handler, f.form(t, paid("0190"), false))
		assert.Equal(t, http.StatusOK, w.Code)

		o, _ := f.orders.GetByID(ctx, f.order.ID)
		assert.Equal(t, order.StatusFailed, o.Status)
		assert.Equal(t, order.PaymentFailed, o.PaymentStatus)
	})

	t.Run("Bad signature", func(t *testing.T) {
		f := newFixture(t)

		w := post(f.handler, f.form(t, paid("0000"), true))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		o, _ := f.orders.GetByID(ctx, f.order.ID)
		assert.Equal(t, order.StatusPending, o.Status)

		audit, _ := f.store.Select(ctx, "payment_notifications", recordstore.All())
		require.Len(t, audit, 1)
		assert.False(t, audit[0].Bool("signature_valid"))
		assert.Equal(t, "invalid gateway signature", audit[0].String("error"))
	})

	t.Run("Amount mismatch", func(t *testing.T) {
		f := newFixture(t)
		fields := paid("0000")
		fields["Ds_Amount"] = "100"

		w := post(f.handler, f.form(t, fields, false))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		o, _ := f.orders.GetByID(ctx, f.order.ID)
		assert.Equal(t, order.StatusPending, o.Status)
	})

	t.Run("Unknown order", func(t *testing.T) {
		f := newFixture(t)
		fields := paid("0000")
		fields["Ds_Order"] = "9999ZZZZZZZZ"

		w := post(f.handler, f.form(t, fields, false))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Missing fields", func(t *testing.T) {
		f := newFixture(t)

		w := post(f.handler, url.Values{"Ds_SignatureVersion": {payment.SignatureVersion}})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		form := f.form(t, paid("0000"), false)
		form.Set("Ds_SignatureVersion", "HMAC_SHA512_V2")
		w = post(f.handler, form)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) GetByPaymentReference(ctx context.Context, reference string) (*order.Order, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) MarkAsPaid(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderService) MarkAsFailed(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func TestHandler_NotifyHandler_UpdateFailure(t *testing.T) {
	f := newFixture(t)
	svc := new(MockOrderService)
	svc.On("GetByPaymentReference", mock.Anything, "1234ABCDEFGH").Return(f.order, nil)
	svc.On("MarkAsPaid", mock.Anything, f.order.ID).Return(false, errors.New("db down"))

	h := NewWebhookHandler(svc, f.signer, payment.NewRepository(f.store), f.metrics)
	w := post(h, f.form(t, paid("0000"), false))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	svc.AssertExpectations(t)
}
