package payment

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// iso4217 maps currencies to the numeric codes the gateway expects.
var iso4217 = map[string]string{
	"EUR": "978",
	"USD": "840",
	"GBP": "826",
}

// transactionAuthorization is a standard card payment.
const transactionAuthorization = "0"

// Signer implements the gateway's HMAC_SHA256_V1 scheme: the per-order key is the order
// code encrypted with 3DES-CBC under the merchant secret, and the signature is an
// HMAC-SHA256 of the base64 merchant parameters under that key.
type Signer struct {
	merchantCode string
	terminal     string
	secret       []byte
}

func NewSigner(merchantCode, terminal, secretB64 string) (*Signer, error) {
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil || len(secret) != 24 {
		return nil, ErrInvalidSecret
	}
	return &Signer{merchantCode: merchantCode, terminal: terminal, secret: secret}, nil
}

// CurrencyCode returns the ISO 4217 numeric code for an alphabetic currency.
func CurrencyCode(currency string) (string, error) {
	code, ok := iso4217[strings.ToUpper(currency)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCurrency, currency)
	}
	return code, nil
}

// AmountInCents renders an amount in minor units, as the gateway expects.
func AmountInCents(amount decimal.Decimal) string {
	return amount.Shift(2).Round(0).StringFixed(0)
}

// EncodeParameters fills merchant code and terminal and returns the base64 JSON blob.
func (s *Signer) EncodeParameters(p MerchantParameters) (string, error) {
	p.MerchantCode = s.merchantCode
	p.Terminal = s.terminal
	if p.TransactionType == "" {
		p.TransactionType = transactionAuthorization
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Sign returns the standard base64 signature of parameters for orderCode.
func (s *Signer) Sign(orderCode, parameters string) (string, error) {
	mac, err := s.mac(orderCode, parameters)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(mac), nil
}

// VerifyNotification checks a callback signature, which the gateway sends base64url
// encoded, and returns the decoded parameters.
func (s *Signer) VerifyNotification(parameters, signature string) (*Notification, error) {
	n, err := DecodeNotification(parameters)
	if err != nil {
		return nil, err
	}

	expected, err := s.mac(n.Order, parameters)
	if err != nil {
		return nil, err
	}

	got, err := decodeBase64(signature)
	if err != nil || !hmac.Equal(expected, got) {
		return n, ErrInvalidSignature
	}
	return n, nil
}

func (s *Signer) mac(orderCode, parameters string) ([]byte, error) {
	key, err := s.orderKey(orderCode)
	if err != nil {
		return nil, err
	}
	h := hmac.New(sha256.New, key)
	h.Write([]byte(parameters))
	return h.Sum(nil), nil
}

// orderKey encrypts the zero-padded order code with 3DES-CBC and a zero IV.
func (s *Signer) orderKey(orderCode string) ([]byte, error) {
	block, err := des.NewTripleDESCipher(s.secret)
	if err != nil {
		return nil, err
	}

	data := []byte(orderCode)
	if rem := len(data) % des.BlockSize; rem != 0 || len(data) == 0 {
		data = append(data, make([]byte, des.BlockSize-rem)...)
	}

	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, make([]byte, des.BlockSize)).CryptBlocks(out, data)
	return out, nil
}

// DecodeNotification parses Ds_MerchantParameters from a callback. Values arrive as JSON
// strings or numbers depending on the field.
func DecodeNotification(parameters string) (*Notification, error) {
	raw, err := decodeBase64(parameters)
	if err != nil {
		return nil, fmt.Errorf("decode merchant parameters: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode merchant parameters: %w", err)
	}

	flat := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			flat[k] = val
		case float64:
			flat[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case nil:
		default:
			flat[k] = fmt.Sprint(val)
		}
	}

	// Keys are documented as Ds_Order but some integrations send DS_ORDER.
	get := func(name string) string {
		if v, ok := flat[name]; ok {
			return v
		}
		return flat[strings.ToUpper(name)]
	}

	return &Notification{
		Order:             get("Ds_Order"),
		Amount:            get("Ds_Amount"),
		Currency:          get("Ds_Currency"),
		Response:          get("Ds_Response"),
		AuthorisationCode: get("Ds_AuthorisationCode"),
		Raw:               flat,
	}, nil
}

// Authorized reports whether Ds_Response is in the 0000-0099 success band.
func (n *Notification) Authorized() bool {
	code, err := strconv.Atoi(strings.TrimSpace(n.Response))
	return err == nil && code >= 0 && code <= 99
}

// decodeBase64 accepts padded or unpadded standard or URL alphabets.
func decodeBase64(s string) ([]byte, error) {
	s = strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimSpace(s))
	s = strings.TrimRight(s, "=")
	return base64.RawStdEncoding.DecodeString(s)
}
