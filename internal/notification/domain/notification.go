package domain

import "time"

// Status represents the lifecycle state of a notification
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// transitions lists the states reachable from each state. Terminal states
// have no entry.
var transitions = map[Status][]Status{
	StatusPending: {StatusSent, StatusFailed},
}

// CanTransitionTo reports whether a record in state s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Store field names used for equality queries
const (
	FieldTitle  = "title"
	FieldStatus = "status"
)

// Notification is a push notification record and its delivery outcome
type Notification struct {
	ID        string            `json:"id,omitempty" gorm:"primaryKey"`
	Title     string            `json:"title" gorm:"index;not null"`
	Body      string            `json:"body" gorm:"not null"`
	Topic     string            `json:"topic" gorm:"not null"`
	Data      map[string]string `json:"data,omitempty" gorm:"serializer:json"`
	Status    Status            `json:"status" gorm:"index;default:pending"`
	SentAt    *time.Time        `json:"sent_at,omitempty"`
	MessageID string            `json:"message_id,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`

	// AttemptedAt is set once, while pending, by the worker that owns delivery.
	AttemptedAt *time.Time `json:"attempted_at,omitempty"`
}

// Claimed reports whether a worker has already taken the record for delivery
func (n *Notification) Claimed() bool {
	return n.AttemptedAt != nil
}

// Content is the (title, body, topic) triple used to match records
type Content struct {
	Title string
	Body  string
	Topic string
}

func (n *Notification) Content() Content {
	return Content{Title: n.Title, Body: n.Body, Topic: n.Topic}
}

// Matches reports whether n carries exactly the given content.
func (n *Notification) Matches(c Content) bool {
	return n.Title == c.Title && n.Body == c.Body && n.Topic == c.Topic
}

// StatusUpdate is the field-scoped write that moves a record out of pending
type StatusUpdate struct {
	Status    Status
	SentAt    *time.Time
	MessageID string
	Error     string
}

func SentUpdate(messageID string, at time.Time) StatusUpdate {
	at = at.UTC()
	return StatusUpdate{Status: StatusSent, SentAt: &at, MessageID: messageID}
}

func FailedUpdate(reason string) StatusUpdate {
	return StatusUpdate{Status: StatusFailed, Error: reason}
}

// Apply copies the update onto n.
func (u StatusUpdate) Apply(n *Notification) {
	n.Status = u.Status
	switch u.Status {
	case StatusSent:
		n.SentAt = u.SentAt
		n.MessageID = u.MessageID
	case StatusFailed:
		n.Error = u.Error
	}
}

// Columns returns the fields written by the update keyed by column name.
// Only the fields owned by the target status are included.
func (u StatusUpdate) Columns() map[string]interface{} {
	cols := map[string]interface{}{"status": string(u.Status)}
	switch u.Status {
	case StatusSent:
		cols["sent_at"] = u.SentAt
		cols["message_id"] = u.MessageID
	case StatusFailed:
		cols["error"] = u.Error
	}
	return cols
}
