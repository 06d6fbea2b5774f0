package bus

import (
	"context"

	"github.com/studyfold/studyspace-backend/internal/realtime"
)

// Bus moves realtime messages between backend replicas. Publish fans a
// message out to every replica's forwarder; each forwarder hands it to the
// local hub for delivery to that replica's connected clients.
type Bus interface {
	Publish(ctx context.Context, msg realtime.Message) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error
	Close() error
}
