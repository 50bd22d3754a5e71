package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/TechnoExperience/texnewweb-sub000/internal/order"
	"github.com/TechnoExperience/texnewweb-sub000/internal/utils"

	"github.com/go-chi/chi/v5"
)

type OrderReader interface {
	GetOrderDetail(ctx context.Context, userID, orderID string) (*order.Order, error)
}

type OrderHandler struct {
	Orders OrderReader
}

// GetOrder returns an order with its items to its owner.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())

	o, err := h.Orders.GetOrderDetail(r.Context(), userID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteJSONError(w, "order not found", http.StatusNotFound)
		return
	case errors.Is(err, order.ErrUnauthorized):
		utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
		return
	case err != nil:
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, o)
}
