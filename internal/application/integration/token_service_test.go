package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/conexapi/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeCredentialRepo is an in-memory credential store keyed by
// platform/account.
type fakeCredentialRepo struct {
	mu    sync.Mutex
	creds map[string]*integration.Credential
	saves int
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{creds: make(map[string]*integration.Credential)}
}

func credKey(platform integration.Platform, accountKey string) string {
	return string(platform) + "/" + accountKey
}

func (r *fakeCredentialRepo) put(cred *integration.Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *cred
	r.creds[credKey(cred.Platform, cred.AccountKey)] = &clone
}

func (r *fakeCredentialRepo) FindByID(_ context.Context, id uuid.UUID) (*integration.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cred := range r.creds {
		if cred.ID == id {
			clone := *cred
			return &clone, nil
		}
	}
	return nil, integration.ErrNoCredential
}

func (r *fakeCredentialRepo) FindByPlatformAccount(_ context.Context, platform integration.Platform, accountKey string) (*integration.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.creds[credKey(platform, accountKey)]
	if !ok {
		return nil, integration.ErrNoCredential
	}
	clone := *cred
	return &clone, nil
}

func (r *fakeCredentialRepo) Save(_ context.Context, cred *integration.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *cred
	r.creds[credKey(cred.Platform, cred.AccountKey)] = &clone
	r.saves++
	return nil
}

func (r *fakeCredentialRepo) List(_ context.Context) ([]*integration.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*integration.Credential, 0, len(r.creds))
	for _, cred := range r.creds {
		clone := *cred
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeCredentialRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, cred := range r.creds {
		if cred.ID == id {
			delete(r.creds, key)
			return nil
		}
	}
	return integration.ErrNoCredential
}

func (r *fakeCredentialRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

var _ integration.CredentialRepository = (*fakeCredentialRepo)(nil)

// fakeRefresher returns a fixed material or error and counts calls.
type fakeRefresher struct {
	platform integration.Platform
	material *integration.TokenMaterial
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (f *fakeRefresher) Platform() integration.Platform { return f.platform }

func (f *fakeRefresher) Refresh(ctx context.Context, _ *integration.Credential, _ integration.ClientIdentity) (*integration.TokenMaterial, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, integration.NewRefreshNetworkError(f.platform, ctx.Err())
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	material := *f.material
	return &material, nil
}

var _ integration.TokenRefresher = (*fakeRefresher)(nil)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newServiceUnderTest(t *testing.T, refresher *fakeRefresher) (*TokenService, *fakeCredentialRepo) {
	t.Helper()
	repo := newFakeCredentialRepo()
	service := NewTokenService(repo, zap.NewNop())
	if refresher != nil {
		service.RegisterRefresher(refresher, integration.ClientIdentity{
			ClientID:     "app",
			ClientSecret: "secret",
		})
	}
	return service, repo
}

func storedCredential(t *testing.T, repo *fakeCredentialRepo, platform integration.Platform, token string, expiresIn time.Duration) *integration.Credential {
	t.Helper()
	cred, err := integration.NewCredential(platform, "tenant-1")
	require.NoError(t, err)
	cred.RefreshToken = "RT-old"
	cred.Username = "user"
	cred.AccessKey = "key"
	if token != "" {
		cred.AccessToken = token
		expiresAt := time.Now().UTC().Add(expiresIn)
		cred.ExpiresAt = &expiresAt
	}
	repo.put(cred)
	return cred
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestTokenService_FreshTokenReturnedWithoutRefresh(t *testing.T) {
	refresher := &fakeRefresher{platform: integration.PlatformMercadoLibre}
	service, repo := newServiceUnderTest(t, refresher)
	storedCredential(t, repo, integration.PlatformMercadoLibre, "AT-fresh", 2*time.Hour)

	token, err := service.ValidToken(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "AT-fresh", token)
	assert.Equal(t, int32(0), refresher.calls.Load())
	assert.Equal(t, 0, repo.saveCount())
}

func TestTokenService_StaleTokenRefreshedAndPersisted(t *testing.T) {
	refresher := &fakeRefresher{
		platform: integration.PlatformMercadoLibre,
		material: &integration.TokenMaterial{
			AccessToken:  "AT-new",
			RefreshToken: "RT-new",
			ExpiresIn:    21600,
		},
	}
	service, repo := newServiceUnderTest(t, refresher)
	storedCredential(t, repo, integration.PlatformMercadoLibre, "AT-old", time.Minute)

	before := time.Now().UTC()
	token, err := service.ValidToken(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "AT-new", token)
	assert.Equal(t, int32(1), refresher.calls.Load())

	stored, err := repo.FindByPlatformAccount(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "AT-new", stored.AccessToken)
	assert.Equal(t, "RT-new", stored.RefreshToken)
	require.NotNil(t, stored.ExpiresAt)
	assert.WithinDuration(t, before.Add(21600*time.Second), *stored.ExpiresAt, 5*time.Second)
}

func TestTokenService_NeverAuthenticatedTriggersRefresh(t *testing.T) {
	refresher := &fakeRefresher{
		platform: integration.PlatformSiigo,
		material: &integration.TokenMaterial{AccessToken: "AT-first", ExpiresIn: 86400},
	}
	service, repo := newServiceUnderTest(t, refresher)
	storedCredential(t, repo, integration.PlatformSiigo, "", 0)

	token, err := service.ValidToken(context.Background(), integration.PlatformSiigo, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "AT-first", token)
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestTokenService_OmittedRefreshTokenIsRetained(t *testing.T) {
	refresher := &fakeRefresher{
		platform: integration.PlatformSiigo,
		material: &integration.TokenMaterial{AccessToken: "AT-new", ExpiresIn: 3600},
	}
	service, repo := newServiceUnderTest(t, refresher)
	storedCredential(t, repo, integration.PlatformSiigo, "AT-old", time.Minute)

	_, err := service.ValidToken(context.Background(), integration.PlatformSiigo, "tenant-1")
	require.NoError(t, err)

	stored, err := repo.FindByPlatformAccount(context.Background(), integration.PlatformSiigo, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "RT-old", stored.RefreshToken)
}

func TestTokenService_FailedRefreshLeavesStoreUntouched(t *testing.T) {
	refresher := &fakeRefresher{
		platform: integration.PlatformMercadoLibre,
		err:      integration.NewRefreshHTTPError(integration.PlatformMercadoLibre, 401),
	}
	service, repo := newServiceUnderTest(t, refresher)
	original := storedCredential(t, repo, integration.PlatformMercadoLibre, "AT-old", time.Minute)

	_, err := service.ValidToken(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
	require.Error(t, err)

	var refreshErr *integration.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, "http_error:401", refreshErr.ReasonTag())

	stored, err := repo.FindByPlatformAccount(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, original.AccessToken, stored.AccessToken)
	assert.Equal(t, original.RefreshToken, stored.RefreshToken)
	assert.Equal(t, 0, repo.saveCount())
}

func TestTokenService_ConcurrentStaleReadsRefreshOnce(t *testing.T) {
	refresher := &fakeRefresher{
		platform: integration.PlatformMercadoLibre,
		material: &integration.TokenMaterial{AccessToken: "AT-new", RefreshToken: "RT-new", ExpiresIn: 3600},
		delay:    50 * time.Millisecond,
	}
	service, repo := newServiceUnderTest(t, refresher)
	storedCredential(t, repo, integration.PlatformMercadoLibre, "AT-old", time.Minute)

	const callers = 8
	tokens := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = service.ValidToken(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "AT-new", tokens[i])
	}
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.Equal(t, 1, repo.saveCount())
}

func TestTokenService_CancelledCallerDoesNotFailQueuedCallers(t *testing.T) {
	refresher := &fakeRefresher{
		platform: integration.PlatformMercadoLibre,
		material: &integration.TokenMaterial{AccessToken: "AT-new", RefreshToken: "RT-new", ExpiresIn: 3600},
		delay:    200 * time.Millisecond,
	}
	service, repo := newServiceUnderTest(t, refresher)
	storedCredential(t, repo, integration.PlatformMercadoLibre, "AT-old", time.Minute)

	initiatorCtx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	var initiatorToken, followerToken string
	var initiatorErr, followerErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		initiatorToken, initiatorErr = service.ValidToken(initiatorCtx, integration.PlatformMercadoLibre, "tenant-1")
	}()

	// Let the initiator start the refresh, join the flight, then cancel
	// the initiator mid-exchange
	time.Sleep(50 * time.Millisecond)
	wg.Add(1)
	go func() {
		defer wg.Done()
		followerToken, followerErr = service.ValidToken(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	require.NoError(t, followerErr)
	assert.Equal(t, "AT-new", followerToken)
	require.NoError(t, initiatorErr)
	assert.Equal(t, "AT-new", initiatorToken)
	assert.Equal(t, int32(1), refresher.calls.Load())

	stored, err := repo.FindByPlatformAccount(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "AT-new", stored.AccessToken)
}

func TestTokenService_RepeatedCallsAreIdempotentWhileFresh(t *testing.T) {
	refresher := &fakeRefresher{
		platform: integration.PlatformMercadoLibre,
		material: &integration.TokenMaterial{AccessToken: "AT-new", RefreshToken: "RT-new", ExpiresIn: 3600},
	}
	service, repo := newServiceUnderTest(t, refresher)
	storedCredential(t, repo, integration.PlatformMercadoLibre, "AT-old", time.Minute)

	for i := 0; i < 5; i++ {
		token, err := service.ValidToken(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
		require.NoError(t, err)
		assert.Equal(t, "AT-new", token)
	}
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestTokenService_InputErrors(t *testing.T) {
	refresher := &fakeRefresher{platform: integration.PlatformMercadoLibre}
	service, repo := newServiceUnderTest(t, refresher)

	_, err := service.ValidToken(context.Background(), integration.Platform("EBAY"), "tenant-1")
	assert.ErrorIs(t, err, integration.ErrInvalidPlatform)

	_, err = service.ValidToken(context.Background(), integration.PlatformMercadoLibre, "")
	assert.ErrorIs(t, err, integration.ErrInvalidAccountKey)

	_, err = service.ValidToken(context.Background(), integration.PlatformMercadoLibre, "unknown")
	assert.ErrorIs(t, err, integration.ErrNoCredential)

	cred := storedCredential(t, repo, integration.PlatformMercadoLibre, "AT", time.Hour)
	cred.Deactivate()
	repo.put(cred)
	_, err = service.ValidToken(context.Background(), integration.PlatformMercadoLibre, "tenant-1")
	assert.ErrorIs(t, err, integration.ErrCredentialInactive)
}

func TestTokenService_NoRefresherRegistered(t *testing.T) {
	service, repo := newServiceUnderTest(t, nil)
	storedCredential(t, repo, integration.PlatformSiigo, "", 0)

	_, err := service.ValidToken(context.Background(), integration.PlatformSiigo, "tenant-1")
	assert.ErrorIs(t, err, ErrNoRefresher)
}
