// Package firebase bootstraps the Firebase Admin SDK used for Firestore and
// ID token verification.
package firebase

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"temple-services-backend/internal/config"
	"temple-services-backend/internal/logger"
)

// App wraps an initialised Firebase application.
type App struct {
	app *fb.App
}

// NewApp initialises Firebase for cfg. Without a credentials file the
// application default credentials are used; FIRESTORE_EMULATOR_HOST is
// honoured by the Firestore client.
func NewApp(ctx context.Context, cfg config.FirebaseConfig) (*App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	logger.ExternalServiceCall("firebase", "NewApp", "project_id", cfg.ProjectID)
	app, err := fb.NewApp(ctx, &fb.Config{ProjectID: cfg.ProjectID}, opts...)
	logger.ExternalServiceResult("firebase", "NewApp", err)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase: %w", err)
	}
	return &App{app: app}, nil
}

func (a *App) Firestore(ctx context.Context) (*firestore.Client, error) {
	client, err := a.app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

func (a *App) Auth(ctx context.Context) (*auth.Client, error) {
	client, err := a.app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}
	return client, nil
}
