package integration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/conexapi/backend/internal/domain/integration"
)

// CredentialService manages the stored platform credentials. Reads are
// always redacted; raw token material is only handled by the token
// service.
type CredentialService struct {
	repo integration.CredentialRepository
	// defaultMargin is applied at connect time when the caller does not
	// choose a refresh margin; zero falls back to the domain default
	defaultMargin time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewCredentialService creates a credential management service.
func NewCredentialService(repo integration.CredentialRepository, defaultMargin time.Duration, logger *zap.Logger) *CredentialService {
	return &CredentialService{
		repo:          repo,
		defaultMargin: defaultMargin,
		logger:        logger,
		now:           time.Now,
	}
}

// Create connects a new platform account. The (platform, account_key)
// pair must not already exist.
func (s *CredentialService) Create(ctx context.Context, input CreateCredentialInput) (*CredentialResult, error) {
	platform, err := parsePlatform(input.Platform)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByPlatformAccount(ctx, platform, input.AccountKey); err == nil {
		return nil, integration.ErrCredentialExists
	} else if !errors.Is(err, integration.ErrNoCredential) {
		return nil, err
	}

	cred, err := integration.NewCredential(platform, input.AccountKey)
	if err != nil {
		return nil, err
	}

	cred.RefreshToken = input.RefreshToken
	cred.Username = input.Username
	cred.AccessKey = input.AccessKey
	switch {
	case input.RefreshMargin > 0:
		cred.RefreshMargin = input.RefreshMargin
	case s.defaultMargin > 0:
		cred.RefreshMargin = s.defaultMargin
	}

	// The first token is always minted through the refresh path, so the
	// grant inputs must be complete at connect time.
	if platform.UsesRefreshGrant() && cred.RefreshToken == "" {
		return nil, integration.ErrMissingRefreshToken
	}
	if !platform.UsesRefreshGrant() && !cred.HasAccountIdentity() {
		return nil, integration.ErrMissingAccountIdentity
	}

	if err := cred.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, cred); err != nil {
		return nil, err
	}

	s.logger.Info("Platform credential created",
		zap.String("platform", platform.String()),
		zap.String("account_key", cred.AccountKey),
		zap.String("credential_id", cred.ID.String()))

	return toCredentialResult(cred), nil
}

// Get returns the redacted credential with the given id.
func (s *CredentialService) Get(ctx context.Context, id uuid.UUID) (*CredentialResult, error) {
	cred, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCredentialResult(cred), nil
}

// List returns all stored credentials, redacted.
func (s *CredentialService) List(ctx context.Context) ([]*CredentialResult, error) {
	creds, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*CredentialResult, 0, len(creds))
	for _, cred := range creds {
		results = append(results, toCredentialResult(cred))
	}
	return results, nil
}

// Update modifies a stored credential. Empty input fields keep the
// stored value.
func (s *CredentialService) Update(ctx context.Context, id uuid.UUID, input UpdateCredentialInput) (*CredentialResult, error) {
	cred, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.RefreshToken != "" {
		cred.RefreshToken = input.RefreshToken
	}
	if input.Username != "" {
		cred.Username = input.Username
	}
	if input.AccessKey != "" {
		cred.AccessKey = input.AccessKey
	}
	if input.RefreshMargin != nil {
		cred.RefreshMargin = *input.RefreshMargin
	}
	if input.IsActive != nil {
		if *input.IsActive {
			cred.Activate()
		} else {
			cred.Deactivate()
		}
	}
	cred.UpdatedAt = s.now().UTC()

	if err := cred.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, cred); err != nil {
		return nil, err
	}

	s.logger.Info("Platform credential updated",
		zap.String("credential_id", cred.ID.String()),
		zap.String("platform", cred.Platform.String()))

	return toCredentialResult(cred), nil
}

// Delete removes a stored credential.
func (s *CredentialService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Platform credential deleted", zap.String("credential_id", id.String()))
	return nil
}
