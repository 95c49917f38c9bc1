package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store drivers supported by STORE_DRIVER
const (
	StoreRTDB     = "rtdb"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Firebase
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS"`
	FirebaseProjectID   string `env:"FIREBASE_PROJECT_ID"`
	FirebaseDatabaseURL string `env:"FIREBASE_DATABASE_URL"`
	FCMDryRun           bool   `env:"FCM_DRY_RUN" envDefault:"false"`

	// Record store
	StoreDriver       string `env:"STORE_DRIVER" envDefault:"rtdb"`
	DatabaseURL       string `env:"DATABASE_URL"`
	NotificationsPath string `env:"NOTIFICATIONS_PATH" envDefault:"notifications"`
	UsersPath         string `env:"USERS_PATH" envDefault:"users"`
	SubscriptionsPath string `env:"SUBSCRIPTIONS_PATH" envDefault:"subscriptions"`

	// Topic policy
	UniversalTopic              string            `env:"TOPIC_UNIVERSAL" envDefault:"all"`
	RoleTopics                  map[string]string `env:"TOPIC_ROLE_MAP" envDefault:"resident:residents,administrator:admin,住戶:residents,管理員:admin"`
	TrackSubscriptionMembership bool              `env:"SUBSCRIPTION_TRACK_MEMBERSHIP" envDefault:"false"`

	// Trigger delivery over Pub/Sub (disabled when the subscription is empty)
	PubSubProjectID    string `env:"PUBSUB_PROJECT_ID"`
	PubSubSubscription string `env:"PUBSUB_SUBSCRIPTION"`

	// Pending sweeper (disabled when the interval is zero)
	PendingSweepInterval time.Duration `env:"PENDING_SWEEP_INTERVAL" envDefault:"0s"`
	PendingSweepMinAge   time.Duration `env:"PENDING_SWEEP_MIN_AGE" envDefault:"2m"`
}

// Load reads the optional .env file, parses the environment into a Config
// and validates the result.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreRTDB:
		if c.FirebaseDatabaseURL == "" {
			errs = append(errs, errors.New("FIREBASE_DATABASE_URL is required for the rtdb store"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if c.UniversalTopic == "" {
		errs = append(errs, errors.New("TOPIC_UNIVERSAL must not be empty"))
	}
	if c.PendingSweepInterval < 0 {
		errs = append(errs, errors.New("PENDING_SWEEP_INTERVAL must not be negative"))
	}
	if c.PubSubSubscription != "" && c.PubSubProject() == "" {
		errs = append(errs, errors.New("PUBSUB_PROJECT_ID or FIREBASE_PROJECT_ID is required with PUBSUB_SUBSCRIPTION"))
	}

	return errors.Join(errs...)
}

// PubSubProject returns the project hosting the trigger subscription,
// falling back to the Firebase project.
func (c *Config) PubSubProject() string {
	if c.PubSubProjectID != "" {
		return c.PubSubProjectID
	}
	return c.FirebaseProjectID
}

// DeliverOnEnqueue reports whether Enqueue must deliver records itself.
// Only the Realtime Database store has a creation trigger in front of it.
func (c *Config) DeliverOnEnqueue() bool {
	return c.StoreDriver != StoreRTDB
}
