// Package servicebusclient queues batch jobs on Azure Service Bus.
package servicebusclient

import (
	"context"
	"time"
)

// ServiceBusClient defines the interface for Service Bus operations.
type ServiceBusClient interface {
	// Send sends a message to a queue.
	Send(ctx context.Context, queue string, body []byte, opts ...SendOption) (messageID string, err error)

	// Receive waits up to wait for at most maxMessages messages. An empty
	// result with a nil error means nothing arrived in time.
	Receive(ctx context.Context, queue string, maxMessages int, wait time.Duration) ([]*Delivery, error)

	// Close releases senders and receivers.
	Close(ctx context.Context) error
}

// Message represents a Service Bus message.
type Message struct {
	ID            string
	Body          []byte
	ContentType   string
	Properties    map[string]interface{}
	EnqueuedAt    time.Time
	DeliveryCount uint32
}

// Delivery is a received message that must be settled exactly once.
type Delivery struct {
	Message

	complete   func(ctx context.Context) error
	abandon    func(ctx context.Context) error
	deadLetter func(ctx context.Context, reason, description string) error
}

// Complete removes the message from the queue.
func (d *Delivery) Complete(ctx context.Context) error { return d.complete(ctx) }

// Abandon releases the lock so the message is delivered again.
func (d *Delivery) Abandon(ctx context.Context) error { return d.abandon(ctx) }

// DeadLetter moves the message to the dead-letter queue.
func (d *Delivery) DeadLetter(ctx context.Context, reason, description string) error {
	return d.deadLetter(ctx, reason, description)
}

// SendOption represents optional parameters for send operations.
type SendOption func(*SendOptions)

// SendOptions contains options for send operations.
type SendOptions struct {
	ContentType string
	Properties  map[string]interface{}
	MessageID   string
}

// WithContentType sets the content type for a message.
func WithContentType(contentType string) SendOption {
	return func(opts *SendOptions) {
		opts.ContentType = contentType
	}
}

// WithProperties sets custom properties for a message.
func WithProperties(properties map[string]interface{}) SendOption {
	return func(opts *SendOptions) {
		opts.Properties = properties
	}
}

// WithMessageID sets a custom message ID. Jobs use their job ID so a
// duplicate send is detectable.
func WithMessageID(messageID string) SendOption {
	return func(opts *SendOptions) {
		opts.MessageID = messageID
	}
}

func applySendOptions(opts []SendOption) SendOptions {
	var o SendOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
