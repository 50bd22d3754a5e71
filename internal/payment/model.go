package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignatureVersion is the only scheme the gateway accepts.
const SignatureVersion = "HMAC_SHA256_V1"

const (
	FieldSignatureVersion   = "Ds_SignatureVersion"
	FieldMerchantParameters = "Ds_MerchantParameters"
	FieldSignature          = "Ds_Signature"
)

// SignRequest asks the payment backend to sign a redirect for an order.
type SignRequest struct {
	OrderID  string          `json:"order_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type SignResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Parameters  string `json:"parameters,omitempty"`
	Signature   string `json:"signature,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Complete reports whether the response carries everything a redirect needs.
func (r *SignResponse) Complete() bool {
	return r.Success && r.RedirectURL != "" && r.Parameters != "" && r.Signature != ""
}

// MerchantParameters is the JSON document encoded into Ds_MerchantParameters.
type MerchantParameters struct {
	Amount          string `json:"DS_MERCHANT_AMOUNT"`
	Order           string `json:"DS_MERCHANT_ORDER"`
	MerchantCode    string `json:"DS_MERCHANT_MERCHANTCODE"`
	Currency        string `json:"DS_MERCHANT_CURRENCY"`
	TransactionType string `json:"DS_MERCHANT_TRANSACTIONTYPE"`
	Terminal        string `json:"DS_MERCHANT_TERMINAL"`
	MerchantURL     string `json:"DS_MERCHANT_MERCHANTURL,omitempty"`
	URLOK           string `json:"DS_MERCHANT_URLOK,omitempty"`
	URLKO           string `json:"DS_MERCHANT_URLKO,omitempty"`
	Titular         string `json:"DS_MERCHANT_TITULAR,omitempty"`
}

// Notification is the decoded body of an asynchronous gateway callback.
type Notification struct {
	Order             string
	Amount            string
	Currency          string
	Response          string
	AuthorisationCode string
	Raw               map[string]string
}

// NotificationRecord is the audit row kept for every callback, valid or not.
type NotificationRecord struct {
	ID               string
	PaymentReference string
	ResponseCode     string
	SignatureValid   bool
	Payload          string
	ProcessedAt      *time.Time
	Error            *string
}
