package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/config"
	"temple-services-backend/internal/domain"
	"temple-services-backend/internal/retry"
	"temple-services-backend/internal/security"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Store:        config.StoreConfig{Backend: config.BackendMemory},
		Auth:         config.AuthConfig{Provider: config.AuthProviderLocal, JWTSecret: "0123456789abcdef0123456789abcdef", TokenExpiryMinute: 5},
		Retry:        config.RetryConfig{MaxAttempts: 4, BaseDelayMS: 10},
		Authz:        config.AuthzConfig{CacheTTLSeconds: 30},
		API:          config.APIConfig{PageSize: 20},
		Registration: config.RegistrationConfig{EnforceCapacity: true},
	}
}

func TestOpen_Memory(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()

	b, err := Open(ctx, cfg, true)
	require.NoError(t, err)
	defer b.Close()
	assert.Nil(t, b.DB)
	assert.Nil(t, b.Firebase)

	verifier, err := b.Verifier(ctx, cfg)
	require.NoError(t, err)
	token, err := security.NewTokenManager(cfg.Auth.JWTSecret, time.Minute).GenerateAccessToken("u1", "u1@example.com")
	require.NoError(t, err)
	ident, err := verifier.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", ident.UserID)
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Backend = "cassandra"
	_, err := Open(context.Background(), cfg, false)
	assert.Error(t, err)
}

func TestRetryPolicy(t *testing.T) {
	policy := RetryPolicy(memoryConfig())
	assert.Equal(t, 4, policy.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, policy.BaseDelay)
	assert.Contains(t, policy.NonRetryable, codes.PermissionDenied)
	assert.Contains(t, policy.NonRetryable, codes.NotFound)
	assert.NotContains(t, policy.NonRetryable, codes.Unavailable)
	assert.Len(t, retry.DefaultNonRetryable, 2)
	// retry.Do already logs every retry.
	assert.Nil(t, policy.OnRetry)
}

func TestNewServices(t *testing.T) {
	ctx := context.Background()
	b, err := Open(ctx, memoryConfig(), false)
	require.NoError(t, err)
	svcs := NewServices(b.Store, memoryConfig())

	temple, err := svcs.API.Admin.CreateTemple(ctx, authz.System(), &domain.Temple{Name: "Ganesha Temple"})
	require.NoError(t, err)

	_, err = svcs.API.Admin.GrantSuperAdmin(ctx, authz.System(), "u1")
	require.NoError(t, err)
	ac, err := svcs.Resolver.Resolve(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ac.SuperAdmin)
	assert.True(t, ac.IsTempleAdmin(temple.ID))
}
