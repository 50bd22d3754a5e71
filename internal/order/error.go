package order

import "errors"

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrMissingCheckoutToken = errors.New("checkout token is required")
	// ErrOrderClosed means the token belongs to an order that already left pending.
	ErrOrderClosed = errors.New("order for this checkout is no longer pending")
	// ErrTokenConflict means the token was reused for a cart with different totals or owner.
	ErrTokenConflict = errors.New("checkout token already used for a different order")
	// ErrWriteInProgress means another request holds the item batch for the same token.
	ErrWriteInProgress = errors.New("order items are still being written")
)
