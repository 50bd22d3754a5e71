package transport

import (
	"net/http"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"
	"github.com/TechnoExperience/texnewweb-sub000/internal/payment"
	"github.com/TechnoExperience/texnewweb-sub000/internal/utils"

	"go.uber.org/zap"
)

type PaymentHandler struct {
	Backend payment.Backend
	// Notify receives the gateway's form-encoded callbacks.
	Notify http.HandlerFunc
}

// Sign serves the payment backend contract for external front ends. Refusals are
// answered with success=false and a reason.
func (h *PaymentHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req payment.SignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, payment.SignResponse{Error: errInvalidBody.Error()})
		return
	}
	if req.OrderID == "" || req.Currency == "" || !req.Amount.IsPositive() {
		utils.WriteJSON(w, http.StatusBadRequest, payment.SignResponse{Error: "order_id, amount and currency are required"})
		return
	}

	resp, err := h.Backend.RequestSignature(r.Context(), req)
	if err != nil {
		logger.FromCtx(r.Context()).Error("payment signing failed",
			zap.String("layer", "handler"),
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		utils.WriteJSON(w, http.StatusInternalServerError, payment.SignResponse{Error: "internal server error"})
		return
	}
	if !resp.Success {
		utils.WriteJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}
