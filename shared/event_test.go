package shared

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
)

func TestEventValidate(t *testing.T) {
	now := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	// Ensure a well formed event validates.
	event := &Event{
		Type:       TradeExited,
		Timestamp:  now,
		InstanceID: "instance-a",
		Trade: &TradePayload{
			Market:    "^GSPC",
			Direction: Long,
			ExitPrice: 101,
			Reason:    StoppedOut,
		},
	}
	assert.NoError(t, event.Validate())

	// Ensure a zero timestamp is rejected.
	event.Timestamp = time.Time{}
	assert.Error(t, event.Validate())
	event.Timestamp = now

	// Ensure a missing instance id is rejected.
	event.InstanceID = ""
	assert.Error(t, event.Validate())
	event.InstanceID = "instance-a"

	// Ensure a payload mismatched with the event type is rejected.
	event.Type = MindStateUpdated
	assert.Error(t, event.Validate())

	// Ensure multiple payload variants are rejected.
	event.Type = TradeExited
	event.MindState = &MindStatePayload{Market: "^GSPC"}
	assert.Error(t, event.Validate())

	// Ensure an event with no payload is rejected.
	event.MindState = nil
	event.Trade = nil
	assert.Error(t, event.Validate())
}
