package microbus

import (
	"context"
	"sync"

	"github.com/eapache/queue"
)

// mailbox is an unbounded FIFO of messages owned by one worker.
// put never blocks; take blocks until a message arrives, the mailbox is
// closed, or ctx ends.
type mailbox struct {
	mu     sync.Mutex
	items  *queue.Queue
	closed bool

	// ready holds at most one wake-up token. A token may be stale; takers
	// always re-check items under mu.
	ready chan struct{}
	done  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{
		items: queue.New(),
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (m *mailbox) put(msg Message) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.items.Add(msg)
	m.mu.Unlock()

	m.wake()
	return true
}

func (m *mailbox) take(ctx context.Context) (Message, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return nil, ErrNotRegistered
		}
		if m.items.Length() > 0 {
			msg := m.items.Remove().(Message)
			more := m.items.Length() > 0
			m.mu.Unlock()
			if more {
				// Pass the token on in case another taker is waiting.
				m.wake()
			}
			return msg, nil
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-m.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// close discards queued messages and wakes blocked takers.
// It returns the number of messages dropped.
func (m *mailbox) close() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0
	}
	m.closed = true
	dropped := m.items.Length()
	m.items = queue.New()
	close(m.done)
	return dropped
}

func (m *mailbox) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items.Length()
}

func (m *mailbox) wake() {
	select {
	case m.ready <- struct{}{}:
	default:
	}
}
