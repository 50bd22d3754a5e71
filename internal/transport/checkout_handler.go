package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
	"github.com/TechnoExperience/texnewweb-sub000/internal/cart"
	"github.com/TechnoExperience/texnewweb-sub000/internal/checkout"
	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/profile"
	"github.com/TechnoExperience/texnewweb-sub000/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader may carry the checkout token instead of the body.
const IdempotencyKeyHeader = "Idempotency-Key"

type Submitter interface {
	Submit(ctx context.Context, in checkout.SubmitInput) (*checkout.SubmitResult, error)
}

type CheckoutHandler struct {
	Valuator      *cart.Valuator
	Profiles      profile.Service
	Flow          Submitter
	Currency      string
	StorefrontURL string
}

type valuationRequest struct {
	Lines          []cart.Line         `json:"lines"`
	ShippingMethod cart.ShippingMethod `json:"shipping_method"`
}

type valuationResponse struct {
	cart.Totals
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Currency string          `json:"currency"`
}

type advanceRequest struct {
	Lines  []cart.Line    `json:"lines"`
	Form   checkout.Form  `json:"form"`
	Target *checkout.Step `json:"target,omitempty"`
}

type advanceResponse struct {
	Step           checkout.Step        `json:"step"`
	StepName       string               `json:"step_name"`
	Fields         []address.FieldError `json:"fields,omitempty"`
	BillingAddress address.Address      `json:"billing_address"`
	Totals         *cart.Totals         `json:"totals,omitempty"`
	TaxRate        decimal.Decimal      `json:"tax_rate"`
	Currency       string               `json:"currency"`
}

type submitRequest struct {
	CheckoutToken string        `json:"checkout_token"`
	Email         string        `json:"email"`
	Lines         []cart.Line   `json:"lines"`
	Form          checkout.Form `json:"form"`
}

type errorResponse struct {
	Error      string               `json:"error"`
	Kind       checkout.ErrorKind   `json:"kind,omitempty"`
	Fields     []address.FieldError `json:"fields,omitempty"`
	RedirectTo string               `json:"redirect_to,omitempty"`
}

// Prefill returns the shipping address fields known from the user's profile.
func (h *CheckoutHandler) Prefill(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"shipping_address": h.Profiles.Prefill(r.Context(), userID),
		"email":            utils.GetUserEmailFromContext(r.Context()),
	})
}

func (h *CheckoutHandler) Valuation(w http.ResponseWriter, r *http.Request) {
	var req valuationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteJSONError(w, errInvalidBody.Error(), http.StatusBadRequest)
		return
	}
	if req.ShippingMethod == "" {
		req.ShippingMethod = cart.DefaultShippingMethod
	}

	totals, err := h.Valuator.Valuate(req.Lines, req.ShippingMethod)
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, valuationResponse{Totals: totals, TaxRate: h.Valuator.TaxRate(), Currency: h.Currency})
}

// Advance replays the step machine with the submitted form and reports how far it gets.
// A blocked gate is a normal answer, not an error status.
func (h *CheckoutHandler) Advance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteJSONError(w, errInvalidBody.Error(), http.StatusBadRequest)
		return
	}

	target := checkout.StepPayment
	if req.Target != nil {
		target = *req.Target
	}

	m, err := checkout.Replay(req.Lines, req.Form, target)
	if m == nil {
		h.writeCartError(w, err)
		return
	}

	form := m.Form()
	resp := advanceResponse{
		Step:           m.Step(),
		StepName:       m.Step().String(),
		BillingAddress: form.Billing(),
		TaxRate:        h.Valuator.TaxRate(),
		Currency:       h.Currency,
	}

	var verr *address.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	method := form.ShippingMethod
	if method == "" {
		method = cart.DefaultShippingMethod
	}
	totals, err := h.Valuator.Valuate(m.Lines(), method)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	resp.Totals = &totals

	utils.WriteJSON(w, http.StatusOK, resp)
}

// Submit writes the order and answers with the self-submitting gateway page, or with the
// whole result as JSON when the client asks for it.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "handler"),
		zap.String("method", "Submit"),
	)

	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteJSONError(w, errInvalidBody.Error(), http.StatusBadRequest)
		return
	}

	userID, _ := utils.GetUserIDFromContext(ctx)
	email := utils.GetUserEmailFromContext(ctx)
	if email == "" {
		email = req.Email
	}
	token := req.CheckoutToken
	if token == "" {
		token = r.Header.Get(IdempotencyKeyHeader)
	}

	result, err := h.Flow.Submit(ctx, checkout.SubmitInput{
		UserID:        userID,
		Email:         email,
		CheckoutToken: token,
		Lines:         req.Lines,
		Form:          req.Form,
	})
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}

	if wantsJSON(r) {
		utils.WriteJSON(w, http.StatusOK, result)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := result.Redirect.Render(w); err != nil {
		log.Error("failed to render payment redirect", zap.String("order_id", result.Order.ID), zap.Error(err))
	}
}

func (h *CheckoutHandler) writeCartError(w http.ResponseWriter, err error) {
	if errors.Is(err, cart.ErrEmptyCart) {
		utils.WriteJSON(w, http.StatusBadRequest, errorResponse{
			Error:      err.Error(),
			Kind:       checkout.KindValidation,
			RedirectTo: h.StorefrontURL,
		})
		return
	}
	utils.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: checkout.KindValidation})
}

func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, err error) {
	var cerr *checkout.Error
	if !errors.As(err, &cerr) {
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := errorResponse{Error: cerr.Message, Kind: cerr.Kind, Fields: cerr.Fields}
	if errors.Is(err, cart.ErrEmptyCart) {
		resp.RedirectTo = h.StorefrontURL
	}
	utils.WriteJSON(w, statusForKind(cerr), resp)
}

func statusForKind(e *checkout.Error) int {
	switch e.Kind {
	case checkout.KindValidation:
		if len(e.Fields) > 0 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	case checkout.KindConflict:
		return http.StatusConflict
	case checkout.KindPayment:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
