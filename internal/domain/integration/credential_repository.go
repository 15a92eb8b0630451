package integration

import (
	"context"

	"github.com/google/uuid"
)

// CredentialRepository is the persistence port for integration
// credentials. Save is an atomic upsert: the row for the credential's
// (platform, account_key) pair is replaced as a whole, so concurrent
// readers never observe a partially updated credential.
type CredentialRepository interface {
	// FindByID finds a credential by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Credential, error)

	// FindByPlatformAccount finds the live credential for a
	// (platform, account_key) pair. Returns ErrNoCredential when none
	// is stored.
	FindByPlatformAccount(ctx context.Context, platform Platform, accountKey string) (*Credential, error)

	// Save upserts the credential, replacing any existing row for the
	// same (platform, account_key) pair
	Save(ctx context.Context, cred *Credential) error

	// List returns all stored credentials
	List(ctx context.Context) ([]*Credential, error)

	// Delete removes the credential with the given ID
	Delete(ctx context.Context, id uuid.UUID) error
}
