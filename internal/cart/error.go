package cart

import "errors"

var (
	// -- Validation & Input --
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidQuantity       = errors.New("invalid cart quantity")
	ErrInvalidPrice          = errors.New("invalid unit price")
	ErrMissingProduct        = errors.New("cart line has no product")
	ErrUnknownShippingMethod = errors.New("unknown shipping method")
	ErrInvalidTaxRate        = errors.New("invalid tax rate")
)
