package models

import "strings"

// CallbackAction type of approval callback action
type CallbackAction string

const (
	CallbackApprove      CallbackAction = "approve"
	CallbackDecline      CallbackAction = "decline"
	CallbackUnrecognized CallbackAction = ""
)

// Callback is a parsed inline-button payload of the form "action:requestId".
type Callback struct {
	Action    CallbackAction
	RequestID string
}

// Recognized reports whether the payload named a known action and a request.
func (c Callback) Recognized() bool {
	return c.Action != CallbackUnrecognized && c.RequestID != ""
}

// Data encodes the callback back into its wire form.
func (c Callback) Data() string {
	return string(c.Action) + ":" + c.RequestID
}

// ParseCallback parses inline-button payload data. Anything that is not an
// approve or decline followed by a request id comes back unrecognized; the
// caller treats that as a no-op rather than an error.
func ParseCallback(data string) Callback {
	action, id, ok := strings.Cut(data, ":")
	if !ok || id == "" {
		return Callback{}
	}
	switch CallbackAction(action) {
	case CallbackApprove, CallbackDecline:
		return Callback{Action: CallbackAction(action), RequestID: id}
	}
	return Callback{}
}
