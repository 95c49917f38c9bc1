package event

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name    string
		raw     json.RawMessage
		want    string
		wantErr bool
	}{
		{name: "absent", raw: nil, want: ""},
		{name: "null", raw: json.RawMessage(`null`), want: ""},
		{name: "string", raw: json.RawMessage(`"tok-1"`), want: "tok-1"},
		{name: "not a string", raw: json.RawMessage(`42`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeString(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvent_Param(t *testing.T) {
	ev := Event{Type: TypeUserCreated, Params: map[string]string{ParamUserID: "u1"}}

	v, err := ev.Param(ParamUserID)
	require.NoError(t, err)
	assert.Equal(t, "u1", v)

	_, err = ev.Param(ParamNotificationID)
	assert.EqualError(t, err, `event user.created is missing param "notificationId"`)
}

func TestEvent_JSON(t *testing.T) {
	var ev Event
	body := `{"type":"user.fcm_token.written","params":{"userId":"u1"},"before":null,"after":"tok-2"}`
	require.NoError(t, json.Unmarshal([]byte(body), &ev))

	assert.Equal(t, TypeTokenWritten, ev.Type)
	before, _ := DecodeString(ev.Before)
	after, _ := DecodeString(ev.After)
	assert.Equal(t, "", before)
	assert.Equal(t, "tok-2", after)
}

func TestResultHelpers(t *testing.T) {
	assert.Equal(t, Result{Success: true, Skipped: true}, Skip())
	assert.Equal(t, Result{Error: "boom"}, Failure(errors.New("boom")))
}
