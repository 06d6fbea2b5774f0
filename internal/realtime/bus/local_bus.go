package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/studyfold/studyspace-backend/internal/realtime"
)

// localBus is a single-process loopback for development and tests: Publish
// hands the message straight to the forwarder callback. With one replica
// there is nothing to fan out across, so Redis is not required.
type localBus struct {
	mu    sync.RWMutex
	onMsg func(m realtime.Message)
}

func NewLocalBus() Bus {
	return &localBus{}
}

func (b *localBus) Publish(ctx context.Context, msg realtime.Message) error {
	b.mu.RLock()
	onMsg := b.onMsg
	b.mu.RUnlock()
	if onMsg == nil {
		return fmt.Errorf("local bus has no forwarder")
	}
	onMsg(msg)
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onMsg func(m realtime.Message)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.onMsg = onMsg
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error {
	b.mu.Lock()
	b.onMsg = nil
	b.mu.Unlock()
	return nil
}
