// Package platform contains the HTTP adapters for the external platforms
// this middleware integrates with. Each platform contributes a token
// refresher (the platform-specific token exchange) and an API client for
// the proxied calls. Adapters never touch the credential store; token
// persistence is the application layer's job.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/conexapi/backend/internal/domain/integration"
)

// maxResponseSize limits response body reads to prevent memory exhaustion
const maxResponseSize = 10 * 1024 * 1024 // 10MB max response

// ---------------------------------------------------------------------------
// MercadoLibre Token Refresher
// ---------------------------------------------------------------------------

// MercadoLibreRefresher exchanges a stored refresh token for fresh token
// material via the MercadoLibre OAuth endpoint.
type MercadoLibreRefresher struct {
	baseURL    string
	httpClient *http.Client
}

// NewMercadoLibreRefresher creates a refresher pointed at the given API
// base URL (e.g. https://api.mercadolibre.com).
func NewMercadoLibreRefresher(baseURL string, timeout time.Duration) *MercadoLibreRefresher {
	return &MercadoLibreRefresher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Platform returns the platform this refresher exchanges tokens for.
func (r *MercadoLibreRefresher) Platform() integration.Platform {
	return integration.PlatformMercadoLibre
}

// mercadoLibreTokenResponse is the OAuth token endpoint response body.
type mercadoLibreTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	UserID       int64  `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh performs the refresh_token grant. The stored refresh token is
// consumed; MercadoLibre rotates it, so the response carries a new one.
func (r *MercadoLibreRefresher) Refresh(ctx context.Context, cred *integration.Credential, identity integration.ClientIdentity) (*integration.TokenMaterial, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if cred.RefreshToken == "" {
		return nil, integration.ErrMissingRefreshToken
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", identity.ClientID)
	form.Set("client_secret", identity.ClientSecret)
	form.Set("refresh_token", cred.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, integration.NewRefreshNetworkError(integration.PlatformMercadoLibre, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, integration.NewRefreshNetworkError(integration.PlatformMercadoLibre, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, integration.NewRefreshNetworkError(integration.PlatformMercadoLibre, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, integration.NewRefreshHTTPError(integration.PlatformMercadoLibre, resp.StatusCode)
	}

	var tokenResp mercadoLibreTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, integration.NewRefreshMalformedError(integration.PlatformMercadoLibre, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, integration.NewRefreshMalformedError(integration.PlatformMercadoLibre, fmt.Errorf("token response missing access_token"))
	}

	return &integration.TokenMaterial{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

// ---------------------------------------------------------------------------
// MercadoLibre API Client
// ---------------------------------------------------------------------------

// MercadoLibreClient performs proxied MercadoLibre API calls. A valid
// bearer token is obtained from the token provider before every call.
type MercadoLibreClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     integration.TokenProvider
}

// NewMercadoLibreClient creates an API client backed by the given token
// provider.
func NewMercadoLibreClient(baseURL string, timeout time.Duration, tokens integration.TokenProvider) *MercadoLibreClient {
	return &MercadoLibreClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

// mercadoLibreProfileResponse is the /users/me response body.
type mercadoLibreProfileResponse struct {
	ID        int64  `json:"id"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
	SiteID    string `json:"site_id"`
	CountryID string `json:"country_id"`
}

// mercadoLibreOrderSearchResponse is the /orders/search response body.
// Result elements are kept raw so the original order JSON survives into
// the domain model.
type mercadoLibreOrderSearchResponse struct {
	Results []json.RawMessage `json:"results"`
	Paging  struct {
		Total int `json:"total"`
	} `json:"paging"`
}

// mercadoLibreOrder is the subset of an order search result this
// middleware consumes.
type mercadoLibreOrder struct {
	ID          json.Number `json:"id"`
	Status      string      `json:"status"`
	TotalAmount json.Number `json:"total_amount"`
	CurrencyID  string      `json:"currency_id"`
	DateCreated time.Time   `json:"date_created"`
	Buyer       struct {
		Nickname string `json:"nickname"`
	} `json:"buyer"`
	OrderItems []struct {
		Quantity int `json:"quantity"`
	} `json:"order_items"`
}

// GetProfile fetches the seller profile for the account.
func (c *MercadoLibreClient) GetProfile(ctx context.Context, accountKey string) (*integration.MarketplaceProfile, error) {
	body, err := c.doRequest(ctx, accountKey, http.MethodGet, "/users/me", nil)
	if err != nil {
		return nil, err
	}

	var resp mercadoLibreProfileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mercadolibre: failed to parse profile response: %w", err)
	}

	return &integration.MarketplaceProfile{
		UserID:    resp.ID,
		Nickname:  resp.Nickname,
		Email:     resp.Email,
		SiteID:    resp.SiteID,
		CountryID: resp.CountryID,
	}, nil
}

// SearchOrders lists orders for the seller within the optional time range.
func (c *MercadoLibreClient) SearchOrders(ctx context.Context, accountKey, sellerID string, from, to *time.Time) ([]integration.MarketplaceOrder, error) {
	query := url.Values{}
	query.Set("seller", sellerID)
	if from != nil {
		query.Set("order.date_created.from", from.UTC().Format(time.RFC3339))
	}
	if to != nil {
		query.Set("order.date_created.to", to.UTC().Format(time.RFC3339))
	}

	body, err := c.doRequest(ctx, accountKey, http.MethodGet, "/orders/search?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var resp mercadoLibreOrderSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mercadolibre: failed to parse order search response: %w", err)
	}

	orders := make([]integration.MarketplaceOrder, 0, len(resp.Results))
	for _, raw := range resp.Results {
		var order mercadoLibreOrder
		if err := json.Unmarshal(raw, &order); err != nil {
			return nil, fmt.Errorf("mercadolibre: failed to parse order: %w", err)
		}

		amount, err := decimal.NewFromString(order.TotalAmount.String())
		if err != nil {
			amount = decimal.Zero
		}

		totalQuantity := 0
		for _, item := range order.OrderItems {
			totalQuantity += item.Quantity
		}

		orders = append(orders, integration.MarketplaceOrder{
			OrderID:       order.ID.String(),
			Status:        order.Status,
			TotalAmount:   amount,
			CurrencyID:    order.CurrencyID,
			BuyerNickname: order.Buyer.Nickname,
			TotalQuantity: totalQuantity,
			DateCreated:   order.DateCreated,
			RawData:       string(raw),
		})
	}

	return orders, nil
}

// UpdateItem applies a partial update to a published item.
func (c *MercadoLibreClient) UpdateItem(ctx context.Context, accountKey, itemID string, patch map[string]any) error {
	if itemID == "" {
		return fmt.Errorf("%w: item id is required", integration.ErrPlatformInvalidBody)
	}
	_, err := c.doRequest(ctx, accountKey, http.MethodPut, "/items/"+url.PathEscape(itemID), patch)
	return err
}

// doRequest performs an authorized request against the MercadoLibre API
// and maps transport and HTTP failures to the domain error taxonomy.
func (c *MercadoLibreClient) doRequest(ctx context.Context, accountKey, method, path string, payload any) ([]byte, error) {
	token, err := c.tokens.ValidToken(ctx, integration.PlatformMercadoLibre, accountKey)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("mercadolibre: failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("mercadolibre: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &integration.ExternalAPIError{
			Platform: integration.PlatformMercadoLibre,
			Status:   resp.StatusCode,
			Body:     string(body),
		}
	}

	return body, nil
}

// Ensure the adapters implement the platform ports
var (
	_ integration.TokenRefresher    = (*MercadoLibreRefresher)(nil)
	_ integration.MarketplaceClient = (*MercadoLibreClient)(nil)
)
