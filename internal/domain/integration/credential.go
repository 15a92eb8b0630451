package integration

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// Credential errors
	ErrNoCredential           = errors.New("integration: no credential stored for platform and account")
	ErrCredentialExists       = errors.New("integration: credential already exists for platform and account")
	ErrCredentialInactive     = errors.New("integration: credential is deactivated")
	ErrInvalidPlatform        = errors.New("integration: invalid platform")
	ErrInvalidAccountKey      = errors.New("integration: account key is required")
	ErrInvalidRefreshMargin   = errors.New("integration: refresh margin cannot be negative")
	ErrMissingAccountIdentity = errors.New("integration: account username and access key are required")
	ErrMissingRefreshToken    = errors.New("integration: no refresh token stored")
	ErrMissingClientIdentity  = errors.New("integration: platform client id and secret are not configured")
	ErrTokenWithoutExpiry     = errors.New("integration: access token stored without expiry")
	ErrExpiryWithoutToken     = errors.New("integration: expiry stored without access token")

	// Platform call errors
	ErrPlatformUnavailable  = errors.New("integration: platform temporarily unavailable")
	ErrPlatformUnauthorized = errors.New("integration: platform rejected the access token")
	ErrPlatformInvalidBody  = errors.New("integration: invalid platform response")
)

// ---------------------------------------------------------------------------
// Platform
// ---------------------------------------------------------------------------

// Platform identifies an external platform
type Platform string

const (
	// PlatformSiigo represents the Siigo Cloud accounting ERP
	PlatformSiigo Platform = "SIIGO"
	// PlatformMercadoLibre represents the MercadoLibre marketplace
	PlatformMercadoLibre Platform = "MERCADOLIBRE"
)

// IsValid returns true if the platform is a known one
func (p Platform) IsValid() bool {
	switch p {
	case PlatformSiigo, PlatformMercadoLibre:
		return true
	default:
		return false
	}
}

// String returns the string representation of Platform
func (p Platform) String() string {
	return string(p)
}

// DisplayName returns a human-readable name for the platform
func (p Platform) DisplayName() string {
	switch p {
	case PlatformSiigo:
		return "Siigo Cloud"
	case PlatformMercadoLibre:
		return "Mercado Libre"
	default:
		return string(p)
	}
}

// UsesRefreshGrant returns true if the platform mints new access tokens
// from a stored refresh token. Siigo re-authenticates with the account
// access key instead (password grant).
func (p Platform) UsesRefreshGrant() bool {
	return p == PlatformMercadoLibre
}

// DefaultRefreshMargin is the safety buffer subtracted from token expiry
// when deciding whether a refresh is due.
const DefaultRefreshMargin = 5 * time.Minute

// ---------------------------------------------------------------------------
// Credential Entity
// ---------------------------------------------------------------------------

// Credential holds the stored token material and account identity for one
// (platform, account) pair. Exactly one live credential exists per pair;
// updates replace the row in place.
type Credential struct {
	// ID is the unique identifier of the credential
	ID uuid.UUID
	// Platform identifies which external platform this credential is for
	Platform Platform
	// AccountKey identifies the local user/tenant that owns the credential
	AccountKey string
	// AccessToken is the current bearer credential; empty if never obtained
	AccessToken string
	// RefreshToken is the long-lived credential used to mint new access
	// tokens; platform-dependent (Siigo may never issue one)
	RefreshToken string
	// ExpiresAt is the absolute UTC instant after which AccessToken is
	// invalid; nil while unauthenticated
	ExpiresAt *time.Time
	// RefreshMargin is subtracted from ExpiresAt when deciding freshness
	RefreshMargin time.Duration
	// Username is the account-level API username (Siigo password grant)
	Username string
	// AccessKey is the account-level API key used as password (Siigo)
	AccessKey string
	// IsActive toggles the integration without deleting stored tokens
	IsActive bool
	// CreatedAt is when the credential was first stored
	CreatedAt time.Time
	// UpdatedAt is when the credential was last mutated
	UpdatedAt time.Time
}

// NewCredential creates a credential in the unauthenticated state.
func NewCredential(platform Platform, accountKey string) (*Credential, error) {
	if !platform.IsValid() {
		return nil, ErrInvalidPlatform
	}
	if accountKey == "" {
		return nil, ErrInvalidAccountKey
	}
	now := time.Now().UTC()
	return &Credential{
		ID:            uuid.New(),
		Platform:      platform,
		AccountKey:    accountKey,
		RefreshMargin: DefaultRefreshMargin,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Validate checks the credential invariants.
func (c *Credential) Validate() error {
	if !c.Platform.IsValid() {
		return ErrInvalidPlatform
	}
	if c.AccountKey == "" {
		return ErrInvalidAccountKey
	}
	if c.RefreshMargin < 0 {
		return ErrInvalidRefreshMargin
	}
	// ExpiresAt travels together with AccessToken; only the initial
	// unauthenticated state may have both unset.
	if c.AccessToken != "" && c.ExpiresAt == nil {
		return ErrTokenWithoutExpiry
	}
	if c.AccessToken == "" && c.ExpiresAt != nil {
		return ErrExpiryWithoutToken
	}
	return nil
}

// NeedsRefresh is the token freshness policy. It reports whether the
// stored access token must be refreshed before use: true when no token
// was ever obtained, no expiry is recorded, or now plus the safety
// margin has reached the expiry. Pure, no I/O; now is compared in UTC.
func (c *Credential) NeedsRefresh(now time.Time) bool {
	if c.AccessToken == "" {
		return true
	}
	if c.ExpiresAt == nil {
		return true
	}
	return !now.UTC().Add(c.RefreshMargin).Before(c.ExpiresAt.UTC())
}

// ApplyTokenMaterial records the outcome of a successful token exchange.
// A refresh token omitted by the platform means "unchanged", so the
// previously stored one is kept. The absolute expiry is computed from
// the relative lifetime the platform reported.
func (c *Credential) ApplyTokenMaterial(m *TokenMaterial, now time.Time) {
	c.AccessToken = m.AccessToken
	if m.RefreshToken != "" {
		c.RefreshToken = m.RefreshToken
	}
	expiresAt := now.UTC().Add(m.Lifetime())
	c.ExpiresAt = &expiresAt
	c.UpdatedAt = now.UTC()
}

// HasAccountIdentity returns true if the account-level credentials needed
// for a password/access-key grant are present.
func (c *Credential) HasAccountIdentity() bool {
	return c.Username != "" && c.AccessKey != ""
}

// Deactivate disables the integration without discarding tokens.
func (c *Credential) Deactivate() {
	c.IsActive = false
	c.UpdatedAt = time.Now().UTC()
}

// Activate re-enables the integration.
func (c *Credential) Activate() {
	c.IsActive = true
	c.UpdatedAt = time.Now().UTC()
}
