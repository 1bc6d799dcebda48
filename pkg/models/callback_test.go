package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCallback(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Callback
	}{
		{"approve", "approve:req-1", Callback{Action: CallbackApprove, RequestID: "req-1"}},
		{"decline", "decline:req-2", Callback{Action: CallbackDecline, RequestID: "req-2"}},
		{"id with colon", "approve:a:b", Callback{Action: CallbackApprove, RequestID: "a:b"}},
		{"unknown action", "snooze:req-1", Callback{}},
		{"missing id", "approve:", Callback{}},
		{"no separator", "approve", Callback{}},
		{"empty", "", Callback{}},
		{"garbage", "ЃЂЃ", Callback{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCallback(tt.data)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Action != CallbackUnrecognized, got.Recognized())
		})
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	cb := Callback{Action: CallbackApprove, RequestID: "3f6b0b2e"}
	assert.Equal(t, cb, ParseCallback(cb.Data()))
}
