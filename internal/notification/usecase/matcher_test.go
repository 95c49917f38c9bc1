package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-backend/internal/notification/domain"
	"push-backend/internal/notification/repository"
)

type failingQueryRepo struct {
	*repository.MemoryNotificationRepository
}

func (r *failingQueryRepo) FindByField(ctx context.Context, field, value string) ([]*domain.Notification, error) {
	return nil, errors.New("index not defined")
}

func TestMatcher_Match(t *testing.T) {
	repo := repository.NewMemoryNotificationRepository()
	seed(t, repo,
		fireDrill("a", domain.StatusPending),
		&domain.Notification{ID: "b", Title: "Fire Drill", Body: "Evacuate now", Topic: "admin"},
		&domain.Notification{ID: "c", Title: "Fire Drill", Body: "Stay inside", Topic: "residents"},
		&domain.Notification{ID: "d", Title: "Water Outage", Body: "Evacuate now", Topic: "residents"},
		fireDrill("e", domain.StatusSent),
	)
	m := NewMatcher(repo)

	got, err := m.Match(context.Background(), domain.Content{Title: "Fire Drill", Body: "Evacuate now", Topic: "residents"})
	require.NoError(t, err)

	var keys []string
	for _, n := range got {
		keys = append(keys, n.ID)
	}
	// status is not part of the match
	assert.Equal(t, []string{"a", "e"}, keys)
}

func TestMatcher_NoMatch(t *testing.T) {
	m := NewMatcher(repository.NewMemoryNotificationRepository())

	got, err := m.Match(context.Background(), domain.Content{Title: "Power Cut", Body: "x", Topic: "all"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMatcher_StoreError(t *testing.T) {
	m := NewMatcher(&failingQueryRepo{repository.NewMemoryNotificationRepository()})

	_, err := m.Match(context.Background(), domain.Content{Title: "t"})
	assert.EqualError(t, err, "index not defined")
}
