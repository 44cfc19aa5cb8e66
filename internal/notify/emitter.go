package notify

import (
	"context"
	"encoding/json"
	"log"

	"rollcall/internal/queue"
)

// MessageType tags notification messages on the queue.
const MessageType = "notification"

// Emitter publishes notifications onto the queue for the worker to
// persist. Emit never returns an error: publish failures are logged and
// swallowed.
type Emitter struct {
	q queue.Queue
}

// NewEmitter creates an emitter over a queue.
func NewEmitter(q queue.Queue) *Emitter {
	return &Emitter{q: q}
}

// Emit publishes a notification, best-effort.
func (e *Emitter) Emit(ctx context.Context, n Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		log.Printf("notify: marshal failed: %v", err)
		return
	}
	if err := e.q.Publish(ctx, queue.Message{Type: MessageType, Body: body}); err != nil {
		log.Printf("notify: publish failed for user %d: %v", n.UserID, err)
	}
}

// Decode parses a queued notification message body.
func Decode(body []byte) (Notification, error) {
	var n Notification
	err := json.Unmarshal(body, &n)
	return n, err
}
