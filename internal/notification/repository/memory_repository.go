package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"push-backend/internal/notification/domain"
	"push-backend/pkg/apperror"
)

// MemoryNotificationRepository keeps records in process memory.
// Suitable for development and testing.
type MemoryNotificationRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Notification
	order   []string
}

func NewMemoryNotificationRepository() *MemoryNotificationRepository {
	return &MemoryNotificationRepository{
		records: make(map[string]*domain.Notification),
	}
}

func (r *MemoryNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if _, exists := r.records[n.ID]; exists {
		return apperror.New(apperror.KindStore, "notification %s already exists", n.ID)
	}
	if n.Status == "" {
		n.Status = domain.StatusPending
	}

	r.records[n.ID] = clone(n)
	r.order = append(r.order, n.ID)
	return nil
}

func (r *MemoryNotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	return clone(n), nil
}

func (r *MemoryNotificationRepository) FindByField(ctx context.Context, field, value string) ([]*domain.Notification, error) {
	if !queryableFields[field] {
		return nil, apperror.New(apperror.KindStore, "field %q is not indexed", field)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Notification
	for _, id := range r.order {
		n := r.records[id]
		if fieldValue(n, field) == value {
			out = append(out, clone(n))
		}
	}
	return out, nil
}

// ApplyStatus updates all listed records under one lock. Records that are
// missing or no longer pending are left untouched.
func (r *MemoryNotificationRepository) ApplyStatus(ctx context.Context, update domain.StatusUpdate, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if _, ok := r.records[id]; !ok {
			return apperror.New(apperror.KindStore, "notification %s not found", id)
		}
	}
	for _, id := range ids {
		n := r.records[id]
		if n.Status.CanTransitionTo(update.Status) {
			update.Apply(n)
		}
	}
	return nil
}

func (r *MemoryNotificationRepository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.records[id]
	if !ok || n.Status != domain.StatusPending || n.Claimed() {
		return false, nil
	}
	t := at.UTC()
	n.AttemptedAt = &t
	return true, nil
}

// All returns every record ordered by ID.
func (r *MemoryNotificationRepository) All() []*domain.Notification {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Notification, 0, len(r.records))
	for _, n := range r.records {
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func fieldValue(n *domain.Notification, field string) string {
	switch field {
	case domain.FieldTitle:
		return n.Title
	case domain.FieldStatus:
		return string(n.Status)
	default:
		panic(fmt.Sprintf("unindexed field %q", field))
	}
}

func clone(n *domain.Notification) *domain.Notification {
	c := *n
	if n.Data != nil {
		c.Data = make(map[string]string, len(n.Data))
		for k, v := range n.Data {
			c.Data[k] = v
		}
	}
	if n.SentAt != nil {
		t := *n.SentAt
		c.SentAt = &t
	}
	if n.CreatedAt != nil {
		t := *n.CreatedAt
		c.CreatedAt = &t
	}
	if n.AttemptedAt != nil {
		t := *n.AttemptedAt
		c.AttemptedAt = &t
	}
	return &c
}

var _ NotificationRepository = (*MemoryNotificationRepository)(nil)
