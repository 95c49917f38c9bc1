package firebaseapp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Options selects the Firebase project. Empty fields fall back to the
// application default credentials and project discovery.
type Options struct {
	CredentialsFile string
	ProjectID       string
	DatabaseURL     string
}

// App holds the process-wide Firebase app. Service clients are created on
// first use and reused afterwards.
type App struct {
	app    *firebase.App
	logger *slog.Logger

	messagingOnce   sync.Once
	messagingClient *messaging.Client
	messagingErr    error

	databaseOnce   sync.Once
	databaseClient *db.Client
	databaseErr    error
}

var (
	initOnce sync.Once
	instance *App
	initErr  error
)

// Init initializes the process-wide App. Later calls return the first result
// regardless of their arguments.
func Init(ctx context.Context, opts Options, logger *slog.Logger) (*App, error) {
	initOnce.Do(func() {
		instance, initErr = newApp(ctx, opts, logger)
	})
	return instance, initErr
}

func newApp(ctx context.Context, opts Options, logger *slog.Logger) (*App, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	conf := &firebase.Config{
		ProjectID:   opts.ProjectID,
		DatabaseURL: opts.DatabaseURL,
	}
	app, err := firebase.NewApp(ctx, conf, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	logger = logger.With("component", "firebase")
	logger.Info("Firebase app initialized", "project_id", opts.ProjectID, "database_url", opts.DatabaseURL)
	return &App{app: app, logger: logger}, nil
}

// Messaging returns the shared FCM client.
func (a *App) Messaging(ctx context.Context) (*messaging.Client, error) {
	a.messagingOnce.Do(func() {
		a.messagingClient, a.messagingErr = a.app.Messaging(ctx)
		if a.messagingErr != nil {
			a.messagingErr = fmt.Errorf("failed to get messaging client: %w", a.messagingErr)
			return
		}
		a.logger.Debug("Messaging client ready")
	})
	return a.messagingClient, a.messagingErr
}

// Database returns the shared Realtime Database client.
func (a *App) Database(ctx context.Context) (*db.Client, error) {
	a.databaseOnce.Do(func() {
		a.databaseClient, a.databaseErr = a.app.Database(ctx)
		if a.databaseErr != nil {
			a.databaseErr = fmt.Errorf("failed to get database client: %w", a.databaseErr)
			return
		}
		a.logger.Debug("Realtime Database client ready")
	})
	return a.databaseClient, a.databaseErr
}
