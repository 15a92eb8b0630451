package integration

import (
	"context"
	"fmt"
	"time"
)

// defaultExpiresIn is assumed when a platform omits expires_in from a
// token response.
const defaultExpiresIn = 3600

// ---------------------------------------------------------------------------
// Token Exchange Types
// ---------------------------------------------------------------------------

// ClientIdentity carries the application-level credentials needed to talk
// to a platform's token endpoint. It comes from configuration, never from
// the credential store.
type ClientIdentity struct {
	// ClientID is the application client id (MercadoLibre app id)
	ClientID string
	// ClientSecret is the application client secret
	ClientSecret string
	// PartnerID is the integration partner identifier required by Siigo
	PartnerID string
}

// Validate checks that the identity can authenticate a token exchange.
func (i ClientIdentity) Validate() error {
	if i.ClientID == "" || i.ClientSecret == "" {
		return ErrMissingClientIdentity
	}
	return nil
}

// TokenMaterial is the validated result of a successful token exchange.
// It is plain data; persisting it is the token service's job.
type TokenMaterial struct {
	// AccessToken is the new bearer credential (always present)
	AccessToken string
	// RefreshToken is the new refresh token; empty means the platform
	// left the stored one unchanged
	RefreshToken string
	// ExpiresIn is the token lifetime in seconds as reported by the
	// platform; zero means the platform omitted it
	ExpiresIn int
}

// Lifetime returns the token lifetime as a duration, falling back to one
// hour when the platform did not report one.
func (m *TokenMaterial) Lifetime() time.Duration {
	seconds := m.ExpiresIn
	if seconds <= 0 {
		seconds = defaultExpiresIn
	}
	return time.Duration(seconds) * time.Second
}

// ---------------------------------------------------------------------------
// Refresh Failure Taxonomy
// ---------------------------------------------------------------------------

// RefreshReason tags why a token exchange failed.
type RefreshReason string

const (
	// RefreshReasonNetwork indicates a transport error or timeout
	RefreshReasonNetwork RefreshReason = "network"
	// RefreshReasonHTTPError indicates a non-2xx response from the
	// token endpoint
	RefreshReasonHTTPError RefreshReason = "http_error"
	// RefreshReasonMalformed indicates a 2xx response whose body lacked
	// the mandatory access_token field
	RefreshReasonMalformed RefreshReason = "malformed_response"
)

// RefreshError is the typed failure returned by a TokenRefresher. It is
// a value to inspect, not an exception: the token service decides
// whether and how to propagate it.
type RefreshError struct {
	// Platform is the platform whose token endpoint failed
	Platform Platform
	// Reason tags the failure class
	Reason RefreshReason
	// Status is the HTTP status code for http_error failures, zero
	// otherwise
	Status int
	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *RefreshError) Error() string {
	if e.Reason == RefreshReasonHTTPError {
		return fmt.Sprintf("integration: %s token refresh failed: %s:%d", e.Platform, e.Reason, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("integration: %s token refresh failed: %s: %v", e.Platform, e.Reason, e.Err)
	}
	return fmt.Sprintf("integration: %s token refresh failed: %s", e.Platform, e.Reason)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *RefreshError) Unwrap() error {
	return e.Err
}

// ReasonTag returns the reason in the wire format used by API responses,
// e.g. "network" or "http_error:401".
func (e *RefreshError) ReasonTag() string {
	if e.Reason == RefreshReasonHTTPError {
		return fmt.Sprintf("%s:%d", e.Reason, e.Status)
	}
	return string(e.Reason)
}

// NewRefreshNetworkError builds a network-class refresh failure.
func NewRefreshNetworkError(platform Platform, cause error) *RefreshError {
	return &RefreshError{Platform: platform, Reason: RefreshReasonNetwork, Err: cause}
}

// NewRefreshHTTPError builds an http_error-class refresh failure.
func NewRefreshHTTPError(platform Platform, status int) *RefreshError {
	return &RefreshError{Platform: platform, Reason: RefreshReasonHTTPError, Status: status}
}

// NewRefreshMalformedError builds a malformed_response-class refresh failure.
func NewRefreshMalformedError(platform Platform, cause error) *RefreshError {
	return &RefreshError{Platform: platform, Reason: RefreshReasonMalformed, Err: cause}
}

// ---------------------------------------------------------------------------
// TokenRefresher Port
// ---------------------------------------------------------------------------

// TokenRefresher performs the platform-specific token exchange. It never
// touches the credential store; it returns material for the token
// service to persist. Failures are always *RefreshError values.
type TokenRefresher interface {
	// Platform returns the platform this refresher exchanges tokens for
	Platform() Platform

	// Refresh exchanges the stored credential for fresh token material.
	// For refresh-token platforms it consumes cred.RefreshToken; for
	// password-grant platforms it uses the account identity directly.
	Refresh(ctx context.Context, cred *Credential, identity ClientIdentity) (*TokenMaterial, error)
}

// TokenProvider hands callers a guaranteed-valid access token for a
// (platform, account) pair, refreshing and persisting as needed. The
// application-layer token service implements it; platform API clients
// consume it before every proxied call.
type TokenProvider interface {
	ValidToken(ctx context.Context, platform Platform, accountKey string) (string, error)
}
