package catalog

// Package is a fixed-price travel package as sold in the storefront.
// Prices are in minor currency units (centavos for BRL).
type Package struct {
	ID          int64  `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at,omitempty"`
}
