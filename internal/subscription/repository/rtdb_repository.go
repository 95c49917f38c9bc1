package repository

import (
	"context"
	"errors"
	"time"

	"firebase.google.com/go/v4/db"

	"push-backend/internal/subscription/domain"
	"push-backend/pkg/apperror"
)

// rtdbUserRepository reads users/{id}
type rtdbUserRepository struct {
	client *db.Client
	path   string
}

func NewRTDBUserRepository(client *db.Client, path string) UserRepository {
	return &rtdbUserRepository{client: client, path: path}
}

func (r *rtdbUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user *domain.User
	if err := r.client.NewRef(r.path).Child(id).Get(ctx, &user); err != nil {
		return nil, apperror.Wrapf(apperror.KindStore, err, "failed to read user %s", id)
	}
	if user == nil {
		return nil, nil
	}
	user.ID = id
	return user, nil
}

// rtdbSubscriptionRepository stores the ledger at subscriptions/{userId}
type rtdbSubscriptionRepository struct {
	client *db.Client
	path   string
}

func NewRTDBSubscriptionRepository(client *db.Client, path string) SubscriptionRepository {
	return &rtdbSubscriptionRepository{client: client, path: path}
}

func (r *rtdbSubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub *domain.Subscription
	if err := r.client.NewRef(r.path).Child(userID).Get(ctx, &sub); err != nil {
		return nil, apperror.Wrapf(apperror.KindStore, err, "failed to read subscription for user %s", userID)
	}
	if sub == nil {
		return nil, nil
	}
	sub.UserID = userID
	return sub, nil
}

func (r *rtdbSubscriptionRepository) Save(ctx context.Context, sub *domain.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	if err := r.client.NewRef(r.path).Child(sub.UserID).Set(ctx, sub); err != nil {
		return apperror.Wrapf(apperror.KindStore, err, "failed to save subscription for user %s", sub.UserID)
	}
	return nil
}

var errEntryExists = errors.New("subscription entry exists")

// SaveIfAbsent writes the entry in a transaction that aborts when the node
// already holds data.
func (r *rtdbSubscriptionRepository) SaveIfAbsent(ctx context.Context, sub *domain.Subscription) (bool, error) {
	sub.UpdatedAt = time.Now().UTC()
	err := r.client.NewRef(r.path).Child(sub.UserID).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var current map[string]interface{}
		if err := node.Unmarshal(&current); err != nil {
			return nil, err
		}
		if current != nil {
			return nil, errEntryExists
		}
		return sub, nil
	})
	if errors.Is(err, errEntryExists) {
		return false, nil
	}
	if err != nil {
		return false, apperror.Wrapf(apperror.KindStore, err, "failed to create subscription for user %s", sub.UserID)
	}
	return true, nil
}
