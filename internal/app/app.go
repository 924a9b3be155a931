// Package app wires configuration into a store, a token verifier and the
// service layer shared by the server, the cron runner and templectl.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"google.golang.org/grpc/codes"

	api "temple-services-backend/internal/api/http"
	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/config"
	"temple-services-backend/internal/firebase"
	"temple-services-backend/internal/logger"
	"temple-services-backend/internal/repository"
	"temple-services-backend/internal/repository/firestore"
	"temple-services-backend/internal/repository/memory"
	"temple-services-backend/internal/repository/postgres"
	"temple-services-backend/internal/retry"
	"temple-services-backend/internal/security"
	"temple-services-backend/internal/service"
)

// Backend holds the opened store and whatever clients it depends on.
type Backend struct {
	Store    *repository.Store
	DB       *sql.DB
	Firebase *firebase.App

	closers []func() error
}

// Open connects the configured store backend. Postgres schemas are migrated
// when migrate is set.
func Open(ctx context.Context, cfg *config.Config, migrate bool) (*Backend, error) {
	b := &Backend{}

	if cfg.Store.Backend == config.BackendFirestore || cfg.Auth.Provider == config.AuthProviderFirebase {
		fbApp, err := firebase.NewApp(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		b.Firebase = fbApp
	}

	switch cfg.Store.Backend {
	case config.BackendFirestore:
		client, err := b.Firebase.Firestore(ctx)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Close)
		b.Store = firestore.NewStore(client)
		logger.Info("Using Firestore store", "project_id", cfg.Firebase.ProjectID)

	case config.BackendPostgres:
		dsn := cfg.GetDatabaseConnectionString()
		logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database)
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		b.closers = append(b.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Database connection established")
		if migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				b.Close()
				return nil, err
			}
		}
		b.DB = db
		b.Store = postgres.NewStore(db, dsn)

	case config.BackendMemory:
		logger.Warn("Using in-memory store; data is lost on exit")
		b.Store = memory.NewStore()

	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
	return b, nil
}

// Close releases every client opened by Open.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			logger.Warn("Failed to close backend client", "error", err)
		}
	}
	b.closers = nil
}

// Verifier returns the bearer token verifier for the configured provider.
func (b *Backend) Verifier(ctx context.Context, cfg *config.Config) (security.TokenVerifier, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderFirebase:
		client, err := b.Firebase.Auth(ctx)
		if err != nil {
			return nil, err
		}
		return security.NewFirebaseVerifier(client), nil
	case config.AuthProviderLocal:
		return security.NewTokenManager(cfg.Auth.JWTSecret, cfg.TokenExpiry()), nil
	default:
		return nil, fmt.Errorf("unknown auth provider: %q", cfg.Auth.Provider)
	}
}

// RetryPolicy builds the registration workflow policy from cfg.
func RetryPolicy(cfg *config.Config) retry.Policy {
	nonRetryable := append([]codes.Code{}, retry.DefaultNonRetryable...)
	return retry.Policy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		BaseDelay:    cfg.RetryBaseDelay(),
		NonRetryable: append(nonRetryable, retry.Terminal...),
	}
}

// Services is the service layer over one store.
type Services struct {
	API      api.Services
	Resolver *authz.Resolver
}

// NewServices builds every service over store.
func NewServices(store *repository.Store, cfg *config.Config) *Services {
	resolver := authz.NewResolver(store.Admins, cfg.AuthzCacheTTL())
	admin := service.NewAdminService(store.Temples, store.Services, store.Admins, store.Members, store.Users, resolver)
	notes := service.NewNotificationService(store.Notifications, cfg.API.PageSize)

	return &Services{
		API: api.Services{
			Admin:         admin,
			Services:      service.NewServiceManager(store.Temples, store.Services),
			Registrations: service.NewRegistrationService(store.Services, store.Registrations, admin, notes, RetryPolicy(cfg), cfg.Registration.EnforceCapacity),
			Events:        service.NewEventService(store.Events),
			Users:         service.NewUserService(store.Users),
			Notifications: notes,
			QuickLinks:    service.NewQuickLinkService(store.QuickLinks),
		},
		Resolver: resolver,
	}
}
