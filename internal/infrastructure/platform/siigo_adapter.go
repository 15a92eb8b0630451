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

// ---------------------------------------------------------------------------
// Siigo Token Refresher
// ---------------------------------------------------------------------------

// SiigoRefresher obtains an access token from the Siigo auth endpoint.
// Siigo uses a password grant where the account access key acts as the
// password, so re-authentication needs the stored account identity
// rather than a refresh token.
type SiigoRefresher struct {
	authURL    string
	httpClient *http.Client
}

// NewSiigoRefresher creates a refresher pointed at the given auth base
// URL (e.g. https://api.siigo.com).
func NewSiigoRefresher(authURL string, timeout time.Duration) *SiigoRefresher {
	return &SiigoRefresher{
		authURL:    strings.TrimRight(authURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Platform returns the platform this refresher exchanges tokens for.
func (r *SiigoRefresher) Platform() integration.Platform {
	return integration.PlatformSiigo
}

// siigoTokenResponse is the /connect/token response body.
type siigoTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh performs the password grant against the Siigo token endpoint.
// The partner identifier from the client identity accompanies the
// request as a header, as Siigo requires for every integration.
func (r *SiigoRefresher) Refresh(ctx context.Context, cred *integration.Credential, identity integration.ClientIdentity) (*integration.TokenMaterial, error) {
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	if !cred.HasAccountIdentity() {
		return nil, integration.ErrMissingAccountIdentity
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", identity.ClientID)
	form.Set("client_secret", identity.ClientSecret)
	form.Set("scope", "offline_access")
	form.Set("username", cred.Username)
	form.Set("password", cred.AccessKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.authURL+"/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, integration.NewRefreshNetworkError(integration.PlatformSiigo, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if identity.PartnerID != "" {
		req.Header.Set("Partner-Id", identity.PartnerID)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, integration.NewRefreshNetworkError(integration.PlatformSiigo, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, integration.NewRefreshNetworkError(integration.PlatformSiigo, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, integration.NewRefreshHTTPError(integration.PlatformSiigo, resp.StatusCode)
	}

	var tokenResp siigoTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, integration.NewRefreshMalformedError(integration.PlatformSiigo, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, integration.NewRefreshMalformedError(integration.PlatformSiigo, fmt.Errorf("token response missing access_token"))
	}

	return &integration.TokenMaterial{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

// ---------------------------------------------------------------------------
// Siigo API Client
// ---------------------------------------------------------------------------

// SiigoClient performs proxied Siigo API calls. A valid bearer token is
// obtained from the token provider before every call; the partner
// identifier accompanies every request.
type SiigoClient struct {
	apiBaseURL string
	partnerID  string
	httpClient *http.Client
	tokens     integration.TokenProvider
}

// NewSiigoClient creates an API client backed by the given token provider.
func NewSiigoClient(apiBaseURL, partnerID string, timeout time.Duration, tokens integration.TokenProvider) *SiigoClient {
	return &SiigoClient{
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		partnerID:  partnerID,
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
	}
}

// siigoProductListResponse is the /products response body.
type siigoProductListResponse struct {
	Results    []siigoProduct `json:"results"`
	Pagination struct {
		TotalResults int `json:"total_results"`
	} `json:"pagination"`
}

// siigoProduct is the subset of a Siigo product this middleware consumes.
type siigoProduct struct {
	ID                string      `json:"id"`
	Code              string      `json:"code"`
	Name              string      `json:"name"`
	Active            bool        `json:"active"`
	AvailableQuantity json.Number `json:"available_quantity"`
}

// ListProducts fetches the product catalog.
func (c *SiigoClient) ListProducts(ctx context.Context, accountKey string) ([]integration.ErpProduct, error) {
	body, err := c.doRequest(ctx, accountKey, http.MethodGet, "/products", nil)
	if err != nil {
		return nil, err
	}

	var resp siigoProductListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("siigo: failed to parse product list response: %w", err)
	}

	products := make([]integration.ErpProduct, 0, len(resp.Results))
	for _, item := range resp.Results {
		quantity, err := decimal.NewFromString(item.AvailableQuantity.String())
		if err != nil {
			quantity = decimal.Zero
		}
		products = append(products, integration.ErpProduct{
			ProductID:         item.ID,
			Code:              item.Code,
			Name:              item.Name,
			AvailableQuantity: quantity,
			Active:            item.Active,
		})
	}

	return products, nil
}

// UpdateInventory sets the available quantity for a product code.
func (c *SiigoClient) UpdateInventory(ctx context.Context, accountKey, productCode string, quantity int) error {
	if productCode == "" {
		return fmt.Errorf("%w: product code is required", integration.ErrPlatformInvalidBody)
	}
	payload := map[string]any{"quantity": quantity}
	_, err := c.doRequest(ctx, accountKey, http.MethodPatch, "/products/"+url.PathEscape(productCode)+"/inventory", payload)
	return err
}

// CreateInvoice creates a sales invoice and returns the created document.
func (c *SiigoClient) CreateInvoice(ctx context.Context, accountKey string, invoice map[string]any) (map[string]any, error) {
	body, err := c.doRequest(ctx, accountKey, http.MethodPost, "/invoices", invoice)
	if err != nil {
		return nil, err
	}

	var created map[string]any
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("siigo: failed to parse invoice response: %w", err)
	}
	return created, nil
}

// doRequest performs an authorized request against the Siigo API and
// maps transport and HTTP failures to the domain error taxonomy.
func (c *SiigoClient) doRequest(ctx context.Context, accountKey, method, path string, payload any) ([]byte, error) {
	token, err := c.tokens.ValidToken(ctx, integration.PlatformSiigo, accountKey)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("siigo: failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("siigo: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if c.partnerID != "" {
		req.Header.Set("Partner-Id", c.partnerID)
	}
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
			Platform: integration.PlatformSiigo,
			Status:   resp.StatusCode,
			Body:     string(body),
		}
	}

	return body, nil
}

// Ensure the adapters implement the platform ports
var (
	_ integration.TokenRefresher = (*SiigoRefresher)(nil)
	_ integration.ErpClient      = (*SiigoClient)(nil)
)
