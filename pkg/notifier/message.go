package notifier

import (
	"github.com/scoir/attestor/pkg/evidence"
)

// AnyTopic subscribes a webhook to every notification type.
const AnyTopic = "*"

// EventMessage is the body posted to webhooks.
type EventMessage struct {
	Event     string                 `json:"event"`
	Timestamp int64                  `json:"timestamp"`
	EventData *evidence.Notification `json:"message"`
}
