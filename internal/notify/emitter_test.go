package notify

import (
	"context"
	"errors"
	"testing"

	"rollcall/internal/queue"
)

func TestEmitRoundTrip(t *testing.T) {
	q := queue.NewInMemory(4)
	e := NewEmitter(q)

	classID := int64(3)
	e.Emit(context.Background(), Notification{
		UserID:         7,
		Type:           TypeAttendanceMarked,
		Title:          "Attendance Confirmed",
		Message:        "Your attendance has been recorded as PRESENT",
		Priority:       "low",
		RelatedClassID: &classID,
	})

	msgs, err := q.Consume(context.Background())
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	msg := <-msgs
	if msg.Type != MessageType {
		t.Errorf("message type = %q, want %q", msg.Type, MessageType)
	}
	n, err := Decode(msg.Body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n.UserID != 7 || n.Type != TypeAttendanceMarked || n.RelatedClassID == nil || *n.RelatedClassID != 3 {
		t.Errorf("decoded notification = %+v", n)
	}
}

type failingQueue struct{}

func (failingQueue) Publish(context.Context, queue.Message) error {
	return errors.New("redis down")
}

func (failingQueue) Consume(context.Context) (<-chan queue.Message, error) {
	return nil, errors.New("redis down")
}

func TestEmitSwallowsPublishFailure(t *testing.T) {
	e := NewEmitter(failingQueue{})
	// Must not panic or propagate; Emit has no error to return.
	e.Emit(context.Background(), Notification{UserID: 1, Type: TypeWelcome})
}
