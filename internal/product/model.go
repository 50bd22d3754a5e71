// Package product reads the catalog fields checkout needs. Prices are never read here:
// cart lines carry the price captured when the item was added.
package product

const Table = "products"

type Product struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"`
	DropshippingEnabled bool    `json:"dropshipping_enabled"`
	ProviderURL         *string `json:"dropshipping_provider_url,omitempty"`
}

// Qualifies reports whether items of this product go to a drop-shipping provider.
func (p Product) Qualifies() bool {
	return p.DropshippingEnabled && p.ProviderURL != nil && *p.ProviderURL != ""
}
