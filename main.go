package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"gorm.io/gorm"

	api "push-backend/cmd/api"
	notificationDomain "push-backend/internal/notification/domain"
	notificationRepo "push-backend/internal/notification/repository"
	"push-backend/internal/notification/scheduler"
	notificationUsecase "push-backend/internal/notification/usecase"
	subscriptionDomain "push-backend/internal/subscription/domain"
	"push-backend/internal/subscription/policy"
	subscriptionRepo "push-backend/internal/subscription/repository"
	subscriptionUsecase "push-backend/internal/subscription/usecase"
	"push-backend/internal/trigger"
	"push-backend/pkg/config"
	"push-backend/pkg/database"
	"push-backend/pkg/fcm"
	"push-backend/pkg/firebaseapp"
	"push-backend/pkg/logger"
	"push-backend/pkg/metrics"
)

// stores groups the repositories selected by STORE_DRIVER
type stores struct {
	notifications notificationRepo.NotificationRepository
	users         subscriptionRepo.UserRepository
	subscriptions subscriptionRepo.SubscriptionRepository
	close         func() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	metrics.Init()
	if err := run(cfg, log); err != nil {
		log.Error("Exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Firebase
	app, err := firebaseapp.Init(ctx, firebaseapp.Options{
		CredentialsFile: cfg.FirebaseCredentials,
		ProjectID:       cfg.FirebaseProjectID,
		DatabaseURL:     cfg.FirebaseDatabaseURL,
	}, log)
	if err != nil {
		return err
	}

	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return err
	}
	fcmClient := fcm.NewClient(messagingClient, cfg.FCMDryRun, log)
	if cfg.FCMDryRun {
		log.Warn("FCM dry run enabled, messages are validated but not delivered")
	}

	// Initialize repositories (dependency injection)
	st, err := openStores(ctx, cfg, app, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error("Failed to close store", "error", err)
		}
	}()

	var ledger subscriptionRepo.SubscriptionRepository
	if cfg.TrackSubscriptionMembership {
		ledger = st.subscriptions
		log.Info("Subscription membership tracking enabled")
	}

	// Initialize use cases (dependency injection)
	resolver := policy.NewResolver(cfg.UniversalTopic, cfg.RoleTopics)
	var notificationOpts []notificationUsecase.Option
	if cfg.DeliverOnEnqueue() {
		notificationOpts = append(notificationOpts, notificationUsecase.WithDeliverOnEnqueue())
		log.Info("Enqueued notifications are delivered inline", "driver", cfg.StoreDriver)
	}
	notifications := notificationUsecase.NewNotificationUsecase(st.notifications, fcmClient, log, notificationOpts...)
	subscriptions := subscriptionUsecase.NewSubscriptionUsecase(st.users, ledger, resolver, fcmClient, log)
	router := trigger.NewRouter(notifications, subscriptions, log)

	var wg sync.WaitGroup

	// Pub/Sub trigger consumer, only when a subscription is configured
	if cfg.PubSubSubscription != "" {
		consumer, err := trigger.NewConsumer(ctx, cfg.PubSubProject(), cfg.PubSubSubscription, cfg.FirebaseCredentials, router, log)
		if err != nil {
			return err
		}
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Start(ctx); err != nil {
				log.Error("Pub/Sub consumer stopped", "error", err)
			}
		}()
	} else {
		log.Info("PUBSUB_SUBSCRIPTION not configured, pull consumer disabled")
	}

	if cfg.PendingSweepInterval > 0 {
		sweeper := scheduler.NewPendingSweeper(st.notifications, notifications, cfg.PendingSweepInterval, cfg.PendingSweepMinAge, log)
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	// Start server
	handler := api.NewHandler(notifications, router, log)
	err = handler.Start(ctx, ":"+cfg.Port)

	stop()
	wg.Wait()
	return err
}

func openStores(ctx context.Context, cfg *config.Config, app *firebaseapp.App, log *slog.Logger) (*stores, error) {
	log.Info("Opening record store", "driver", cfg.StoreDriver)

	switch cfg.StoreDriver {
	case config.StoreRTDB:
		client, err := app.Database(ctx)
		if err != nil {
			return nil, err
		}
		return &stores{
			notifications: notificationRepo.NewRTDBNotificationRepository(client, cfg.NotificationsPath),
			users:         subscriptionRepo.NewRTDBUserRepository(client, cfg.UsersPath),
			subscriptions: subscriptionRepo.NewRTDBSubscriptionRepository(client, cfg.SubscriptionsPath),
			close:         func() error { return nil },
		}, nil

	case config.StorePostgres:
		db, err := database.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := migrate(db); err != nil {
			database.Close(db)
			return nil, err
		}
		return &stores{
			notifications: notificationRepo.NewGormNotificationRepository(db),
			users:         subscriptionRepo.NewGormUserRepository(db),
			subscriptions: subscriptionRepo.NewGormSubscriptionRepository(db),
			close:         func() error { return database.Close(db) },
		}, nil

	case config.StoreMemory:
		log.Warn("Using in-memory store, records are lost on exit")
		return &stores{
			notifications: notificationRepo.NewMemoryNotificationRepository(),
			users:         subscriptionRepo.NewMemoryUserRepository(),
			subscriptions: subscriptionRepo.NewMemorySubscriptionRepository(),
			close:         func() error { return nil },
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Auto-migrate database schemas
func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&notificationDomain.Notification{}, &subscriptionDomain.User{}, &subscriptionDomain.Subscription{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
