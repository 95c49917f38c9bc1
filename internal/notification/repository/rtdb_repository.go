package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"firebase.google.com/go/v4/db"

	"push-backend/internal/notification/domain"
	"push-backend/pkg/apperror"
)

// ISOTimestamp is the layout sent_at is stored with in the Realtime Database.
const ISOTimestamp = "2006-01-02T15:04:05.000Z07:00"

// rtdbNotificationRepository stores records under a Realtime Database path.
// Equality queries need ".indexOn": ["title", "status"] in the database rules.
type rtdbNotificationRepository struct {
	client *db.Client
	path   string
}

// NewRTDBNotificationRepository creates a NotificationRepository rooted at path
func NewRTDBNotificationRepository(client *db.Client, path string) NotificationRepository {
	return &rtdbNotificationRepository{client: client, path: path}
}

func (r *rtdbNotificationRepository) ref() *db.Ref {
	return r.client.NewRef(r.path)
}

func (r *rtdbNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	record := *n
	record.ID = ""
	if record.Status == "" {
		record.Status = domain.StatusPending
	}

	child, err := r.ref().Push(ctx, &record)
	if err != nil {
		return apperror.Wrapf(apperror.KindStore, err, "failed to create notification")
	}
	n.ID = child.Key
	n.Status = record.Status
	return nil
}

func (r *rtdbNotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n *domain.Notification
	if err := r.ref().Child(id).Get(ctx, &n); err != nil {
		return nil, apperror.Wrapf(apperror.KindStore, err, "failed to read notification %s", id)
	}
	if n == nil {
		return nil, nil
	}
	n.ID = id
	return n, nil
}

func (r *rtdbNotificationRepository) FindByField(ctx context.Context, field, value string) ([]*domain.Notification, error) {
	if !queryableFields[field] {
		return nil, apperror.New(apperror.KindStore, "field %q is not indexed", field)
	}

	var snapshot map[string]*domain.Notification
	if err := r.ref().OrderByChild(field).EqualTo(value).Get(ctx, &snapshot); err != nil {
		return nil, apperror.Wrapf(apperror.KindStore, err, "failed to query notifications by %s", field)
	}
	return fromSnapshot(snapshot), nil
}

// ApplyStatus sends one multi-path update covering every id.
func (r *rtdbNotificationRepository) ApplyStatus(ctx context.Context, update domain.StatusUpdate, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.ref().Update(ctx, multiPathUpdate(update, ids)); err != nil {
		return apperror.Wrapf(apperror.KindStore, err, "failed to update %d notification(s)", len(ids))
	}
	return nil
}

var errAlreadyClaimed = errors.New("notification already claimed")

// Claim runs a transaction on the record so that concurrent claimers race on
// the same ETag and only one of them wins.
func (r *rtdbNotificationRepository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	err := r.ref().Child(id).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		var record map[string]interface{}
		if err := node.Unmarshal(&record); err != nil {
			return nil, err
		}
		if record == nil || record[domain.FieldStatus] != string(domain.StatusPending) || record["attempted_at"] != nil {
			return nil, errAlreadyClaimed
		}
		record["attempted_at"] = formatTimestamp(at)
		return record, nil
	})
	if errors.Is(err, errAlreadyClaimed) {
		return false, nil
	}
	if err != nil {
		return false, apperror.Wrapf(apperror.KindStore, err, "failed to claim notification %s", id)
	}
	return true, nil
}

// fromSnapshot flattens a keyed query result, ordered by key. Push keys sort
// chronologically.
func fromSnapshot(snapshot map[string]*domain.Notification) []*domain.Notification {
	out := make([]*domain.Notification, 0, len(snapshot))
	for key, n := range snapshot {
		if n == nil {
			continue
		}
		n.ID = key
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// multiPathUpdate builds {"<id>/<field>": value} for every id.
func multiPathUpdate(update domain.StatusUpdate, ids []string) map[string]interface{} {
	cols := update.Columns()
	if update.SentAt != nil {
		cols["sent_at"] = formatTimestamp(*update.SentAt)
	}

	out := make(map[string]interface{}, len(ids)*len(cols))
	for _, id := range ids {
		for field, value := range cols {
			out[id+"/"+field] = value
		}
	}
	return out
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(ISOTimestamp)
}
