package usecase

import (
	"context"

	"push-backend/internal/notification/domain"
	"push-backend/internal/notification/repository"
)

// Matcher finds the records carrying a given (title, body, topic). The store
// indexes a single field, so the title is queried and the rest is filtered
// in memory.
type Matcher struct {
	repo repository.NotificationRepository
}

func NewMatcher(repo repository.NotificationRepository) *Matcher {
	return &Matcher{repo: repo}
}

// Match returns every matching record, in store order. Duplicates are
// expected; an empty result is not an error.
func (m *Matcher) Match(ctx context.Context, c domain.Content) ([]*domain.Notification, error) {
	candidates, err := m.repo.FindByField(ctx, domain.FieldTitle, c.Title)
	if err != nil {
		return nil, err
	}

	matches := make([]*domain.Notification, 0, len(candidates))
	for _, n := range candidates {
		if n.Matches(c) {
			matches = append(matches, n)
		}
	}
	return matches, nil
}
