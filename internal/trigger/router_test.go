package trigger

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"push-backend/internal/event"
	notifDomain "push-backend/internal/notification/domain"
	notifUsecase "push-backend/internal/notification/usecase"
	subDomain "push-backend/internal/subscription/domain"
	"push-backend/pkg/apperror"
	"push-backend/pkg/logger"
	"push-backend/pkg/metrics"
)

type mockNotifications struct {
	mock.Mock
}

func (m *mockNotifications) Dispatch(ctx context.Context, req notifUsecase.DispatchRequest) (*notifUsecase.DispatchResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*notifUsecase.DispatchResponse)
	return resp, args.Error(1)
}

func (m *mockNotifications) ProcessCreated(ctx context.Context, n *notifDomain.Notification) event.Result {
	return m.Called(ctx, n).Get(0).(event.Result)
}

func (m *mockNotifications) Enqueue(ctx context.Context, req notifUsecase.EnqueueRequest) (*notifDomain.Notification, error) {
	args := m.Called(ctx, req)
	n, _ := args.Get(0).(*notifDomain.Notification)
	return n, args.Error(1)
}

func (m *mockNotifications) GetByID(ctx context.Context, id string) (*notifDomain.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*notifDomain.Notification)
	return n, args.Error(1)
}

type mockSubscriptions struct {
	mock.Mock
}

func (m *mockSubscriptions) OnUserCreated(ctx context.Context, userID string, user *subDomain.User) event.Result {
	return m.Called(ctx, userID, user).Get(0).(event.Result)
}

func (m *mockSubscriptions) OnTokenWritten(ctx context.Context, userID, before, after string) event.Result {
	return m.Called(ctx, userID, before, after).Get(0).(event.Result)
}

func newTestRouter() (*Router, *mockNotifications, *mockSubscriptions) {
	n := new(mockNotifications)
	s := new(mockSubscriptions)
	return NewRouter(n, s, logger.Discard()), n, s
}

func TestRoute_NotificationCreated(t *testing.T) {
	r, notifications, _ := newTestRouter()

	notifications.On("ProcessCreated", mock.Anything, mock.MatchedBy(func(n *notifDomain.Notification) bool {
		return n.ID == "n1" && n.Title == "Fire Drill" && n.Status == notifDomain.StatusPending
	})).Return(event.Result{Success: true, MessageID: "projects/p/messages/1"}).Once()

	res, err := r.Route(context.Background(), event.Event{
		Type:   event.TypeNotificationCreated,
		Params: map[string]string{event.ParamNotificationID: "n1"},
		Data:   json.RawMessage(`{"title":"Fire Drill","body":"Evacuate now","topic":"residents","status":"pending"}`),
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "projects/p/messages/1", res.MessageID)
	notifications.AssertExpectations(t)
}

func TestRoute_NotificationCreatedWithoutData(t *testing.T) {
	r, notifications, _ := newTestRouter()

	res, err := r.Route(context.Background(), event.Event{
		Type:   event.TypeNotificationCreated,
		Params: map[string]string{event.ParamNotificationID: "n1"},
		Data:   json.RawMessage(`null`),
	})

	require.NoError(t, err)
	assert.True(t, res.Skipped)
	notifications.AssertNotCalled(t, "ProcessCreated", mock.Anything, mock.Anything)
}

func TestRoute_UserCreated(t *testing.T) {
	r, _, subscriptions := newTestRouter()

	subscriptions.On("OnUserCreated", mock.Anything, "u1", &subDomain.User{Role: "administrator"}).
		Return(event.Result{Success: true, Topics: []string{"all", "admin"}}).Once()

	res, err := r.Route(context.Background(), event.Event{
		Type:   event.TypeUserCreated,
		Params: map[string]string{event.ParamUserID: "u1"},
		Data:   json.RawMessage(`{"role":"administrator"}`),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"all", "admin"}, res.Topics)
	subscriptions.AssertExpectations(t)
}

func TestRoute_TokenWritten(t *testing.T) {
	r, _, subscriptions := newTestRouter()

	subscriptions.On("OnTokenWritten", mock.Anything, "u1", "", "tok-2").
		Return(event.Result{Success: true}).Once()

	_, err := r.Route(context.Background(), event.Event{
		Type:   event.TypeTokenWritten,
		Params: map[string]string{event.ParamUserID: "u1"},
		Before: json.RawMessage(`null`),
		After:  json.RawMessage(`"tok-2"`),
	})

	require.NoError(t, err)
	subscriptions.AssertExpectations(t)
}

func TestRoute_Malformed(t *testing.T) {
	tests := []struct {
		name string
		evt  event.Event
	}{
		{name: "unknown type", evt: event.Event{Type: "user.deleted"}},
		{name: "missing notification id", evt: event.Event{Type: event.TypeNotificationCreated, Data: json.RawMessage(`{}`)}},
		{name: "missing user id", evt: event.Event{Type: event.TypeUserCreated}},
		{
			name: "bad notification data",
			evt: event.Event{
				Type:   event.TypeNotificationCreated,
				Params: map[string]string{event.ParamNotificationID: "n1"},
				Data:   json.RawMessage(`"not an object"`),
			},
		},
		{
			name: "token is not a string",
			evt: event.Event{
				Type:   event.TypeTokenWritten,
				Params: map[string]string{event.ParamUserID: "u1"},
				After:  json.RawMessage(`42`),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, notifications, subscriptions := newTestRouter()

			_, err := r.Route(context.Background(), tt.evt)

			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.KindInvalidArgument))
			notifications.AssertExpectations(t)
			subscriptions.AssertExpectations(t)
		})
	}
}

func TestRoute_CountsOutcomes(t *testing.T) {
	r, _, subscriptions := newTestRouter()
	subscriptions.On("OnTokenWritten", mock.Anything, "u9", "a", "a").Return(event.Skip()).Once()

	skipped := metrics.TriggerEvents.WithLabelValues(string(event.TypeTokenWritten), metrics.OutcomeSkipped)
	malformed := metrics.TriggerEvents.WithLabelValues("unknown", metrics.OutcomeMalformed)
	beforeSkipped := testutil.ToFloat64(skipped)
	beforeMalformed := testutil.ToFloat64(malformed)

	_, err := r.Route(context.Background(), event.Event{
		Type:   event.TypeTokenWritten,
		Params: map[string]string{event.ParamUserID: "u9"},
		Before: json.RawMessage(`"a"`),
		After:  json.RawMessage(`"a"`),
	})
	require.NoError(t, err)

	_, err = r.Route(context.Background(), event.Event{Type: "bogus"})
	require.Error(t, err)

	assert.Equal(t, beforeSkipped+1, testutil.ToFloat64(skipped))
	assert.Equal(t, beforeMalformed+1, testutil.ToFloat64(malformed))
}
