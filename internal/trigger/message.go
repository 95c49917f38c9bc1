package trigger

import (
	"encoding/json"

	"push-backend/internal/event"
	"push-backend/pkg/apperror"
)

// Message attributes understood on Pub/Sub deliveries
const (
	AttrType = "type"
	AttrID   = "id"
)

// DecodeMessage builds an event from a Pub/Sub payload. Attributes fill in
// the type and id when the body leaves them out.
func DecodeMessage(data []byte, attrs map[string]string, messageID string) (event.Event, error) {
	var evt event.Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return event.Event{}, apperror.Wrapf(apperror.KindInvalidArgument, err, "invalid event payload")
	}
	if evt.Type == "" {
		evt.Type = event.Type(attrs[AttrType])
	}
	if evt.ID == "" {
		evt.ID = attrs[AttrID]
	}
	if evt.ID == "" {
		evt.ID = messageID
	}
	if evt.Type == "" {
		return event.Event{}, apperror.New(apperror.KindInvalidArgument, "event type is missing")
	}
	return evt, nil
}
