package servicebusclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockServiceBusClient is an in-memory ServiceBusClient. Abandoned messages
// go back to the end of their queue with DeliveryCount incremented.
type MockServiceBusClient struct {
	mu          sync.Mutex
	queues      map[string][]Message
	deadLetters map[string][]Message
	completed   map[string]int
	notify      chan struct{}
}

// NewMockServiceBusClient creates a new mock Service Bus client.
func NewMockServiceBusClient() *MockServiceBusClient {
	return &MockServiceBusClient{
		queues:      make(map[string][]Message),
		deadLetters: make(map[string][]Message),
		completed:   make(map[string]int),
		notify:      make(chan struct{}, 1),
	}
}

func (m *MockServiceBusClient) Send(ctx context.Context, queue string, body []byte, opts ...SendOption) (string, error) {
	o := applySendOptions(opts)
	id := o.MessageID
	if id == "" {
		id = uuid.NewString()
	}

	m.enqueue(queue, Message{
		ID:          id,
		Body:        append([]byte(nil), body...),
		ContentType: o.ContentType,
		Properties:  o.Properties,
		EnqueuedAt:  time.Now(),
	})
	return id, nil
}

func (m *MockServiceBusClient) Receive(ctx context.Context, queue string, maxMessages int, wait time.Duration) ([]*Delivery, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		if out := m.take(queue, maxMessages); len(out) > 0 {
			return out, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case <-m.notify:
		}
	}
}

func (m *MockServiceBusClient) Close(ctx context.Context) error { return nil }

// Pending returns the number of messages waiting in queue.
func (m *MockServiceBusClient) Pending(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[queue])
}

// Completed returns how many messages were completed on queue.
func (m *MockServiceBusClient) Completed(queue string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.completed[queue]
}

// DeadLetters returns the dead-lettered messages of queue.
func (m *MockServiceBusClient) DeadLetters(queue string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.deadLetters[queue]...)
}

func (m *MockServiceBusClient) enqueue(queue string, msg Message) {
	m.mu.Lock()
	m.queues[queue] = append(m.queues[queue], msg)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *MockServiceBusClient) take(queue string, max int) []*Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queues[queue]
	if max <= 0 || max > len(q) {
		max = len(q)
	}
	batch := q[:max]
	m.queues[queue] = append([]Message(nil), q[max:]...)

	out := make([]*Delivery, 0, len(batch))
	for _, msg := range batch {
		msg.DeliveryCount++
		out = append(out, m.delivery(queue, msg))
	}
	return out
}

func (m *MockServiceBusClient) delivery(queue string, msg Message) *Delivery {
	var once sync.Once
	settle := func(fn func()) error {
		settled := false
		once.Do(func() {
			fn()
			settled = true
		})
		if !settled {
			return fmt.Errorf("message %s already settled", msg.ID)
		}
		return nil
	}

	return &Delivery{
		Message: msg,
		complete: func(ctx context.Context) error {
			return settle(func() {
				m.mu.Lock()
				m.completed[queue]++
				m.mu.Unlock()
			})
		},
		abandon: func(ctx context.Context) error {
			return settle(func() { m.enqueue(queue, msg) })
		},
		deadLetter: func(ctx context.Context, reason, description string) error {
			return settle(func() {
				dead := msg
				dead.Properties = map[string]interface{}{
					"DeadLetterReason":           reason,
					"DeadLetterErrorDescription": description,
				}
				m.mu.Lock()
				m.deadLetters[queue] = append(m.deadLetters[queue], dead)
				m.mu.Unlock()
			})
		},
	}
}
