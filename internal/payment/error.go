package payment

import "errors"

var (
	// ErrPaymentRejected is the user-visible failure when no signed payload could be obtained.
	ErrPaymentRejected  = errors.New("payment could not be initiated")
	ErrOrderNotPending  = errors.New("order is not pending payment")
	ErrAmountMismatch   = errors.New("amount or currency does not match the order")
	ErrInvalidSignature = errors.New("invalid gateway signature")
	ErrInvalidSecret    = errors.New("merchant secret must be a base64 encoded 24 byte key")
	ErrUnknownCurrency  = errors.New("unsupported currency")
	ErrBackendStatus    = errors.New("payment backend returned an error status")
)
