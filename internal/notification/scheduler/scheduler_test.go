package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-backend/internal/event"
	"push-backend/internal/notification/domain"
	"push-backend/internal/notification/repository"
	"push-backend/internal/notification/usecase"
	"push-backend/pkg/fcm"
	"push-backend/pkg/logger"
)

var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type recordingProcessor struct {
	ids []string
}

func (p *recordingProcessor) ProcessCreated(ctx context.Context, n *domain.Notification) event.Result {
	p.ids = append(p.ids, n.ID)
	return event.Result{Success: true}
}

type failingListRepo struct {
	*repository.MemoryNotificationRepository
}

func (failingListRepo) FindByField(ctx context.Context, field, value string) ([]*domain.Notification, error) {
	return nil, errors.New("store offline")
}

// flakyStatusRepo fails the first status write and behaves normally afterwards
type flakyStatusRepo struct {
	*repository.MemoryNotificationRepository
	failed bool
}

func (r *flakyStatusRepo) ApplyStatus(ctx context.Context, update domain.StatusUpdate, ids ...string) error {
	if !r.failed {
		r.failed = true
		return errors.New("deadline exceeded")
	}
	return r.MemoryNotificationRepository.ApplyStatus(ctx, update, ids...)
}

type countingGateway struct {
	sends int
}

func (g *countingGateway) Send(ctx context.Context, msg fcm.Message) (string, error) {
	g.sends++
	return "projects/p/messages/1", nil
}

func at(t time.Time) *time.Time { return &t }

func newTestSweeper(repo repository.NotificationRepository, p Processor) *PendingSweeper {
	s := NewPendingSweeper(repo, p, time.Minute, 2*time.Minute, logger.Discard())
	s.now = func() time.Time { return now }
	return s
}

func TestSweep_OnlyStalePending(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryNotificationRepository()
	for _, n := range []*domain.Notification{
		{ID: "stale", Title: "a", Body: "b", Topic: "c", Status: domain.StatusPending, CreatedAt: at(now.Add(-5 * time.Minute))},
		{ID: "fresh", Title: "a", Body: "b", Topic: "c", Status: domain.StatusPending, CreatedAt: at(now.Add(-30 * time.Second))},
		{ID: "external", Title: "a", Body: "b", Topic: "c", Status: domain.StatusPending},
		{ID: "done", Title: "a", Body: "b", Topic: "c", Status: domain.StatusSent, CreatedAt: at(now.Add(-time.Hour))},
	} {
		require.NoError(t, repo.Create(ctx, n))
	}

	p := &recordingProcessor{}
	processed := newTestSweeper(repo, p).sweep(ctx)

	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{"stale"}, p.ids)
}

func TestSweep_SkipsClaimed(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryNotificationRepository()
	for _, id := range []string{"claimed", "unclaimed"} {
		require.NoError(t, repo.Create(ctx, &domain.Notification{
			ID: id, Title: "a", Body: "b", Topic: "c",
			Status: domain.StatusPending, CreatedAt: at(now.Add(-5 * time.Minute)),
		}))
	}
	ok, err := repo.Claim(ctx, "claimed", now.Add(-4*time.Minute))
	require.NoError(t, err)
	require.True(t, ok)

	p := &recordingProcessor{}
	assert.Equal(t, 1, newTestSweeper(repo, p).sweep(ctx))
	assert.Equal(t, []string{"unclaimed"}, p.ids)
}

// A record whose sent status could not be saved stays pending, but must not be
// handed to the gateway a second time.
func TestSweep_DoesNotResendAfterLostStatusWrite(t *testing.T) {
	ctx := context.Background()
	repo := &flakyStatusRepo{MemoryNotificationRepository: repository.NewMemoryNotificationRepository()}
	n := &domain.Notification{
		ID: "n1", Title: "Fire drill", Body: "10:00", Topic: "all",
		Status: domain.StatusPending, CreatedAt: at(now.Add(-5 * time.Minute)),
	}
	require.NoError(t, repo.Create(ctx, n))

	gw := &countingGateway{}
	uc := usecase.NewNotificationUsecase(repo, gw, logger.Discard())

	res := uc.ProcessCreated(ctx, n)
	require.False(t, res.Success)
	assert.Equal(t, "projects/p/messages/1", res.MessageID)

	assert.Equal(t, 0, newTestSweeper(repo, uc).sweep(ctx))
	assert.Equal(t, 1, gw.sends)

	got, err := repo.FindByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.True(t, got.Claimed())
}

func TestSweep_ListFailure(t *testing.T) {
	p := &recordingProcessor{}
	s := newTestSweeper(failingListRepo{repository.NewMemoryNotificationRepository()}, p)

	assert.Equal(t, 0, s.sweep(context.Background()))
	assert.Empty(t, p.ids)
}

func TestStartStop(t *testing.T) {
	s := newTestSweeper(repository.NewMemoryNotificationRepository(), &recordingProcessor{})
	s.Start(context.Background())
	s.Stop()
	// second stop is a no-op
	s.Stop()
}

func TestStart_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestSweeper(repository.NewMemoryNotificationRepository(), &recordingProcessor{})
	s.Start(ctx)
	cancel()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
