package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-backend/internal/notification/domain"
	"push-backend/pkg/apperror"
)

func TestMemoryRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNotificationRepository()

	n := &domain.Notification{Title: "Fire Drill", Body: "Evacuate now", Topic: "residents", Data: map[string]string{"floor": "3"}}
	require.NoError(t, repo.Create(ctx, n))
	require.NotEmpty(t, n.ID)
	assert.Equal(t, domain.StatusPending, n.Status)

	got, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got)

	// stored copies are isolated from callers
	got.Data["floor"] = "9"
	again, err := repo.FindByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "3", again.Data["floor"])

	missing, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = repo.Create(ctx, &domain.Notification{ID: n.ID})
	assert.True(t, apperror.Is(err, apperror.KindStore))
}

func TestMemoryRepository_FindByField(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNotificationRepository()

	require.NoError(t, repo.Create(ctx, &domain.Notification{ID: "a", Title: "Fire Drill", Status: domain.StatusPending}))
	require.NoError(t, repo.Create(ctx, &domain.Notification{ID: "b", Title: "Water Outage", Status: domain.StatusSent}))
	require.NoError(t, repo.Create(ctx, &domain.Notification{ID: "c", Title: "Fire Drill", Status: domain.StatusFailed}))

	byTitle, err := repo.FindByField(ctx, domain.FieldTitle, "Fire Drill")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(byTitle))

	byStatus, err := repo.FindByField(ctx, domain.FieldStatus, "sent")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(byStatus))

	none, err := repo.FindByField(ctx, domain.FieldTitle, "Power Cut")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.FindByField(ctx, "body", "x")
	assert.True(t, apperror.Is(err, apperror.KindStore))
}

func TestMemoryRepository_ApplyStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNotificationRepository()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.Notification{ID: "a", Status: domain.StatusPending}))
	require.NoError(t, repo.Create(ctx, &domain.Notification{ID: "b", Status: domain.StatusPending}))
	require.NoError(t, repo.Create(ctx, &domain.Notification{ID: "c", Status: domain.StatusFailed, Error: "earlier"}))

	require.NoError(t, repo.ApplyStatus(ctx, domain.SentUpdate("msg-1", at), "a", "b", "c"))

	for _, id := range []string{"a", "b"} {
		n, _ := repo.FindByID(ctx, id)
		assert.Equal(t, domain.StatusSent, n.Status)
		assert.Equal(t, "msg-1", n.MessageID)
		assert.Equal(t, at, *n.SentAt)
	}

	// terminal records are never revisited
	c, _ := repo.FindByID(ctx, "c")
	assert.Equal(t, domain.StatusFailed, c.Status)
	assert.Equal(t, "earlier", c.Error)

	require.NoError(t, repo.ApplyStatus(ctx, domain.FailedUpdate("x")))
	assert.Error(t, repo.ApplyStatus(ctx, domain.FailedUpdate("x"), "missing"))
}

func TestMultiPathUpdate(t *testing.T) {
	at := time.Date(2026, 10, 14, 8, 0, 0, 123456789, time.UTC)

	sent := multiPathUpdate(domain.SentUpdate("projects/p/messages/1", at), []string{"k1", "k2"})
	assert.Equal(t, map[string]interface{}{
		"k1/status":     "sent",
		"k1/sent_at":    "2026-10-14T08:00:00.123Z",
		"k1/message_id": "projects/p/messages/1",
		"k2/status":     "sent",
		"k2/sent_at":    "2026-10-14T08:00:00.123Z",
		"k2/message_id": "projects/p/messages/1",
	}, sent)

	failed := multiPathUpdate(domain.FailedUpdate("quota exceeded"), []string{"k1"})
	assert.Equal(t, map[string]interface{}{
		"k1/status": "failed",
		"k1/error":  "quota exceeded",
	}, failed)
}

func TestFromSnapshot(t *testing.T) {
	snapshot := map[string]*domain.Notification{
		"-Nb": {Title: "second"},
		"-Na": {Title: "first"},
		"-Nc": nil,
	}

	out := fromSnapshot(snapshot)
	require.Len(t, out, 2)
	assert.Equal(t, "-Na", out[0].ID)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "-Nb", out[1].ID)

	assert.Empty(t, fromSnapshot(nil))
}

func ids(records []*domain.Notification) []string {
	out := make([]string, 0, len(records))
	for _, n := range records {
		out = append(out, n.ID)
	}
	return out
}

func TestMemoryRepository_Claim(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNotificationRepository()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, &domain.Notification{ID: "a", Status: domain.StatusPending}))
	require.NoError(t, repo.Create(ctx, &domain.Notification{ID: "b", Status: domain.StatusSent}))

	ok, err := repo.Claim(ctx, "a", at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Claim(ctx, "a", at.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	for _, id := range []string{"b", "missing"} {
		ok, err := repo.Claim(ctx, id, at)
		require.NoError(t, err)
		assert.False(t, ok, id)
	}

	got, _ := repo.FindByID(ctx, "a")
	require.NotNil(t, got.AttemptedAt)
	assert.Equal(t, at, *got.AttemptedAt)
	// a claim does not block the status write that follows delivery
	require.NoError(t, repo.ApplyStatus(ctx, domain.SentUpdate("m", at), "a"))
	got, _ = repo.FindByID(ctx, "a")
	assert.Equal(t, domain.StatusSent, got.Status)
}
