// Package event defines the store trigger envelope and the result returned by
// trigger-driven handlers.
package event

import (
	"encoding/json"
	"fmt"
)

type Type string

const (
	TypeNotificationCreated Type = "notification.created"
	TypeUserCreated         Type = "user.created"
	TypeTokenWritten        Type = "user.fcm_token.written"
)

// Path parameters carried in Event.Params
const (
	ParamNotificationID = "notificationId"
	ParamUserID         = "userId"
)

// Event is a store change notification. Creation events carry the new value
// in Data; write events carry Before and After.
type Event struct {
	ID     string            `json:"id,omitempty"`
	Type   Type              `json:"type"`
	Params map[string]string `json:"params,omitempty"`
	Data   json.RawMessage   `json:"data,omitempty"`
	Before json.RawMessage   `json:"before,omitempty"`
	After  json.RawMessage   `json:"after,omitempty"`
}

// Param returns a required path parameter.
func (e Event) Param(name string) (string, error) {
	v := e.Params[name]
	if v == "" {
		return "", fmt.Errorf("event %s is missing param %q", e.Type, name)
	}
	return v, nil
}

// DecodeString decodes a JSON string value. Absent and null values decode to
// the empty string.
func DecodeString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return *s, nil
}

// Result is the outcome of a trigger-driven handler. It is only logged or
// echoed back to the host; it never becomes an error.
type Result struct {
	Success   bool     `json:"success"`
	Skipped   bool     `json:"skipped,omitempty"`
	MessageID string   `json:"messageId,omitempty"`
	Topics    []string `json:"topics,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Skip is the result of a handler that had nothing to do.
func Skip() Result {
	return Result{Success: true, Skipped: true}
}

func Failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}
