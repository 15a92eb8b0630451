package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Proxied Call Errors
// ---------------------------------------------------------------------------

// ExternalAPIError is returned when a proxied platform call answers with
// a non-2xx status other than 401/403. The upstream status and body are
// preserved so handlers can surface them meaningfully.
type ExternalAPIError struct {
	Platform Platform
	Status   int
	Body     string
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("integration: %s API returned HTTP %d", e.Platform, e.Status)
}

// ---------------------------------------------------------------------------
// Marketplace Value Objects
// ---------------------------------------------------------------------------

// MarketplaceProfile is the seller profile reported by MercadoLibre.
type MarketplaceProfile struct {
	// UserID is the numeric MercadoLibre user id
	UserID int64 `json:"user_id"`
	// Nickname is the public seller nickname
	Nickname string `json:"nickname"`
	// Email is the account email
	Email string `json:"email"`
	// SiteID is the MercadoLibre site (e.g. MCO, MLA)
	SiteID string `json:"site_id"`
	// CountryID is the seller's country
	CountryID string `json:"country_id"`
}

// MarketplaceOrder is an order as reported by the marketplace order
// search. Only the fields this middleware consumes are modeled; the raw
// body is kept for diagnostics.
type MarketplaceOrder struct {
	// OrderID is the marketplace order id
	OrderID string `json:"order_id"`
	// Status is the marketplace status string (paid, cancelled, ...)
	Status string `json:"status"`
	// TotalAmount is what the buyer paid
	TotalAmount decimal.Decimal `json:"total_amount"`
	// CurrencyID is the payment currency
	CurrencyID string `json:"currency_id"`
	// BuyerNickname is the buyer's marketplace nickname
	BuyerNickname string `json:"buyer_nickname"`
	// TotalQuantity is the summed item quantity
	TotalQuantity int `json:"total_quantity"`
	// DateCreated is when the order was created on the marketplace
	DateCreated time.Time `json:"date_created"`
	// RawData is the original order JSON
	RawData string `json:"-"`
}

// ErpProduct is a product as reported by the Siigo catalog.
type ErpProduct struct {
	// ProductID is the Siigo product id
	ProductID string `json:"product_id"`
	// Code is the product reference code
	Code string `json:"code"`
	// Name is the product name
	Name string `json:"name"`
	// AvailableQuantity is the stock level Siigo reports
	AvailableQuantity decimal.Decimal `json:"available_quantity"`
	// Active reports whether the product is enabled in Siigo
	Active bool `json:"active"`
}

// ---------------------------------------------------------------------------
// Platform API Ports
// ---------------------------------------------------------------------------

// MarketplaceClient is the port for proxied MercadoLibre calls. Adapters
// obtain a valid token from the TokenProvider before every call and set
// it as the bearer Authorization header. A 401/403 from the platform is
// reported as ErrPlatformUnauthorized without a forced second refresh.
type MarketplaceClient interface {
	// GetProfile fetches the seller profile for the account
	GetProfile(ctx context.Context, accountKey string) (*MarketplaceProfile, error)

	// SearchOrders lists orders for the seller within the optional time
	// range
	SearchOrders(ctx context.Context, accountKey, sellerID string, from, to *time.Time) ([]MarketplaceOrder, error)

	// UpdateItem applies a partial update (price, quantity, status) to a
	// published item
	UpdateItem(ctx context.Context, accountKey, itemID string, patch map[string]any) error
}

// ErpClient is the port for proxied Siigo calls.
type ErpClient interface {
	// ListProducts fetches the product catalog
	ListProducts(ctx context.Context, accountKey string) ([]ErpProduct, error)

	// UpdateInventory sets the available quantity for a product code
	UpdateInventory(ctx context.Context, accountKey, productCode string, quantity int) error

	// CreateInvoice creates a sales invoice from the given document
	// payload and returns the created document
	CreateInvoice(ctx context.Context, accountKey string, invoice map[string]any) (map[string]any, error)
}
