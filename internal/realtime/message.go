package realtime

import (
	"github.com/google/uuid"
)

// Event names the kind of a realtime message.
type Event string

// Events published by the server
const (
	EventQueueUpdated   Event = "QueueUpdated"
	EventProfileUpdated Event = "ProfileUpdated"
	EventItemUpdated    Event = "ItemUpdated"
)

// Message is one realtime notification addressed to a channel.
type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

// QueueChannel is the channel carrying a principal's queue snapshots.
func QueueChannel(principalID uuid.UUID) string {
	return "queue:" + principalID.String()
}

// ProfileChannel is the channel carrying a principal's balance and plan.
func ProfileChannel(principalID uuid.UUID) string {
	return "profile:" + principalID.String()
}
