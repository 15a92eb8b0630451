package integration

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/conexapi/backend/internal/domain/integration"
)

// ErrNoRefresher is returned when a token is requested for a platform
// that has no refresher registered.
var ErrNoRefresher = errors.New("integration: no token refresher registered for platform")

// refreshFlightTimeout bounds a detached refresh flight
const refreshFlightTimeout = 30 * time.Second

// registeredRefresher pairs a platform refresher with the client
// identity it authenticates with.
type registeredRefresher struct {
	refresher integration.TokenRefresher
	identity  integration.ClientIdentity
}

// TokenService hands out guaranteed-valid access tokens for stored
// platform credentials, refreshing and persisting them as needed. It is
// the single writer of token material; platform API clients only consume
// tokens through it.
type TokenService struct {
	repo       integration.CredentialRepository
	refreshers map[integration.Platform]registeredRefresher
	logger     *zap.Logger

	// group collapses concurrent refreshes for the same account into a
	// single upstream token exchange
	group singleflight.Group

	// now is replaceable in tests
	now func() time.Time
}

// NewTokenService creates a token service over the given credential store.
func NewTokenService(repo integration.CredentialRepository, logger *zap.Logger) *TokenService {
	return &TokenService{
		repo:       repo,
		refreshers: make(map[integration.Platform]registeredRefresher),
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterRefresher wires a platform refresher and the client identity
// it should authenticate with. Call once per platform at startup.
func (s *TokenService) RegisterRefresher(refresher integration.TokenRefresher, identity integration.ClientIdentity) {
	s.refreshers[refresher.Platform()] = registeredRefresher{
		refresher: refresher,
		identity:  identity,
	}
}

// ValidToken returns an access token that is guaranteed fresh for at
// least the credential's refresh margin. A fresh stored token is
// returned with zero network calls; a stale one triggers exactly one
// token exchange per (platform, account) regardless of concurrency. A
// failed refresh leaves the stored credential untouched.
func (s *TokenService) ValidToken(ctx context.Context, platform integration.Platform, accountKey string) (string, error) {
	if !platform.IsValid() {
		return "", integration.ErrInvalidPlatform
	}
	if accountKey == "" {
		return "", integration.ErrInvalidAccountKey
	}

	cred, err := s.repo.FindByPlatformAccount(ctx, platform, accountKey)
	if err != nil {
		return "", err
	}
	if !cred.IsActive {
		return "", integration.ErrCredentialInactive
	}
	if !cred.NeedsRefresh(s.now()) {
		return cred.AccessToken, nil
	}

	token, err, _ := s.group.Do(string(platform)+"/"+accountKey, func() (any, error) {
		return s.refreshAndStore(ctx, platform, accountKey)
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// refreshAndStore runs inside the singleflight group. It re-reads the
// credential so a refresh that completed while this caller was queued is
// reused instead of repeated. The flight runs on a context detached from
// the initiating request; a cancelled initiator must not fail the other
// callers waiting on the same key.
func (s *TokenService) refreshAndStore(ctx context.Context, platform integration.Platform, accountKey string) (string, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshFlightTimeout)
	defer cancel()

	cred, err := s.repo.FindByPlatformAccount(ctx, platform, accountKey)
	if err != nil {
		return "", err
	}
	if !cred.NeedsRefresh(s.now()) {
		return cred.AccessToken, nil
	}

	registered, ok := s.refreshers[platform]
	if !ok {
		return "", ErrNoRefresher
	}

	s.logger.Info("Refreshing platform token",
		zap.String("platform", platform.String()),
		zap.String("account_key", accountKey))

	material, err := registered.refresher.Refresh(ctx, cred, registered.identity)
	if err != nil {
		var refreshErr *integration.RefreshError
		if errors.As(err, &refreshErr) {
			s.logger.Warn("Platform token refresh failed",
				zap.String("platform", platform.String()),
				zap.String("account_key", accountKey),
				zap.String("reason", refreshErr.ReasonTag()),
				zap.Error(err))
		} else {
			s.logger.Warn("Platform token refresh failed",
				zap.String("platform", platform.String()),
				zap.String("account_key", accountKey),
				zap.Error(err))
		}
		return "", err
	}

	cred.ApplyTokenMaterial(material, s.now())
	if err := s.repo.Save(ctx, cred); err != nil {
		s.logger.Error("Failed to persist refreshed token",
			zap.String("platform", platform.String()),
			zap.String("account_key", accountKey),
			zap.Error(err))
		return "", err
	}

	s.logger.Info("Platform token refreshed",
		zap.String("platform", platform.String()),
		zap.String("account_key", accountKey),
		zap.Timep("expires_at", cred.ExpiresAt))

	return cred.AccessToken, nil
}

// Ensure TokenService implements the provider port
var _ integration.TokenProvider = (*TokenService)(nil)
