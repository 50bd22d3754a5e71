// Package checkout drives a cart through the address, review and payment steps and turns
// the final submit into a written order, fulfillment requests and a payment redirect.
package checkout

import (
	"context"
	"errors"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
	"github.com/TechnoExperience/texnewweb-sub000/internal/cart"
	"github.com/TechnoExperience/texnewweb-sub000/internal/fulfillment"
	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/metrics"
	"github.com/TechnoExperience/texnewweb-sub000/internal/order"
	"github.com/TechnoExperience/texnewweb-sub000/internal/payment"

	"go.uber.org/zap"
)

type SubmitInput struct {
	UserID        string
	Email         string
	CheckoutToken string
	Lines         []cart.Line
	Form          Form
}

type SubmitResult struct {
	Order       *order.Order          `json:"order"`
	Redirect    *payment.RedirectForm `json:"redirect"`
	Fulfillment fulfillment.Result    `json:"fulfillment"`
}

type Flow struct {
	writer     order.Writer
	dispatcher fulfillment.Dispatcher
	redirects  payment.RedirectBuilder
	metrics    *metrics.Metrics
	currency   string
}

func NewFlow(
	writer order.Writer,
	dispatcher fulfillment.Dispatcher,
	redirects payment.RedirectBuilder,
	m *metrics.Metrics,
	currency string,
) *Flow {
	return &Flow{
		writer:     writer,
		dispatcher: dispatcher,
		redirects:  redirects,
		metrics:    m,
		currency:   currency,
	}
}

// Submit runs write, dispatch and redirect strictly in that order. The payment backend is
// never called without a persisted order; fulfillment failures never stop payment. Every
// failure comes back as *Error.
func (f *Flow) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	ctx = logger.WithCheckoutToken(ctx, in.CheckoutToken)
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Submit"),
	)
	timer := metrics.StartTimer()

	if _, err := Replay(in.Lines, in.Form, StepPayment); err != nil {
		return nil, validationError(err)
	}

	o, err := f.writer.Write(ctx, order.WriteInput{
		UserID:          in.UserID,
		Email:           in.Email,
		CheckoutToken:   in.CheckoutToken,
		Lines:           in.Lines,
		ShippingAddress: in.Form.ShippingAddress,
		BillingAddress:  in.Form.Billing(),
		ShippingMethod:  in.Form.ShippingMethod,
		PaymentMethod:   in.Form.PaymentMethod,
		Currency:        f.currency,
	})
	if err != nil {
		log.Error("order write failed", zap.Error(err))
		return nil, writeError(err)
	}

	log = log.With(zap.String("order_id", o.ID))

	dispatched := f.dispatcher.Dispatch(ctx, o)

	form, err := f.redirects.Build(ctx, o.ID, o.Total, o.Currency)
	if err != nil {
		log.Error("payment redirect failed, order stays pending", zap.Error(err))
		return nil, &Error{
			Kind:    KindPayment,
			Message: "We could not start the payment. Your order is saved, please try again.",
			Err:     err,
		}
	}

	f.metrics.CheckoutDuration.Observe(timer.Seconds())
	log.Info("checkout submitted",
		zap.String("total", o.Total.StringFixed(2)),
		zap.Int("hand_offs", len(dispatched.HandOffs)),
		zap.Duration("duration", timer.Duration()),
	)

	return &SubmitResult{Order: o, Redirect: form, Fulfillment: dispatched}, nil
}

func validationError(err error) *Error {
	var verr *address.ValidationError
	switch {
	case errors.Is(err, ErrEmptyCart):
		return &Error{Kind: KindValidation, Message: "Your cart is empty.", Err: err}
	case errors.As(err, &verr):
		return &Error{Kind: KindValidation, Message: "Please complete the required address fields.", Fields: verr.Fields, Err: err}
	}
	return &Error{Kind: KindValidation, Message: "Your cart could not be checked out.", Err: err}
}

func writeError(err error) *Error {
	switch {
	case errors.Is(err, order.ErrOrderClosed):
		return &Error{Kind: KindConflict, Message: "This checkout has already been completed.", Err: err}
	case errors.Is(err, order.ErrTokenConflict):
		return &Error{Kind: KindConflict, Message: "Your cart changed. Please start the checkout again.", Err: err}
	case errors.Is(err, order.ErrWriteInProgress):
		return &Error{Kind: KindConflict, Message: "Your order is still being processed. Please try again in a moment.", Err: err}
	case errors.Is(err, order.ErrMissingCheckoutToken),
		errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidPrice),
		errors.Is(err, cart.ErrMissingProduct),
		errors.Is(err, cart.ErrUnknownShippingMethod):
		return &Error{Kind: KindValidation, Message: "Your cart could not be checked out.", Err: err}
	}
	return &Error{Kind: KindPersistence, Message: "We could not save your order. Please try again.", Err: err}
}
