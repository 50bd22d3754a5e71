package fulfillment

import (
	"errors"

	"github.com/TechnoExperience/texnewweb-sub000/internal/address"
)

var (
	ErrProviderStatus = errors.New("fulfillment provider returned an error status")
	ErrNoProvider     = errors.New("product has no fulfillment provider")
)

type CustomerData struct {
	Name    string          `json:"name"`
	Email   string          `json:"email"`
	Phone   string          `json:"phone,omitempty"`
	Address address.Address `json:"address"`
}

type Request struct {
	OrderID      string       `json:"order_id"`
	ProductID    string       `json:"product_id"`
	Quantity     int          `json:"quantity"`
	CustomerData CustomerData `json:"customer_data"`
}

type Response struct {
	RedirectURL  *string `json:"redirect_url,omitempty"`
	SupplierName *string `json:"supplier_name,omitempty"`
}

// HandOff is a supplier page the buyer should open next to the payment redirect.
type HandOff struct {
	ItemID       string `json:"item_id"`
	ProductID    string `json:"product_id"`
	RedirectURL  string `json:"redirect_url"`
	SupplierName string `json:"supplier_name,omitempty"`
}

// Result summarises one dispatch run. Failures are counted, never returned.
type Result struct {
	Dispatched int       `json:"dispatched"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	HandOffs   []HandOff `json:"hand_offs"`
}
