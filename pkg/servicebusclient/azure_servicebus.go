package servicebusclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// AzureConfig selects the namespace and credentials.
type AzureConfig struct {
	// ConnectionString takes precedence over the other fields.
	ConnectionString string
	Namespace        string
	// KeyName and KeyValue select shared access key auth; without them the
	// default Azure credential chain is used.
	KeyName  string
	KeyValue string
}

// AzureServiceBusClient implements ServiceBusClient using Azure Service Bus.
type AzureServiceBusClient struct {
	client *azservicebus.Client
	logger logging.Logger

	mu        sync.Mutex
	senders   map[string]*azservicebus.Sender
	receivers map[string]*azservicebus.Receiver
}

// NewAzureServiceBusClient creates a new Azure Service Bus client.
func NewAzureServiceBusClient(cfg AzureConfig, logger logging.Logger) (*AzureServiceBusClient, error) {
	var (
		client *azservicebus.Client
		err    error
	)

	switch {
	case cfg.ConnectionString != "":
		client, err = azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.KeyName != "" && cfg.KeyValue != "":
		connStr := fmt.Sprintf("Endpoint=sb://%s.servicebus.windows.net/;SharedAccessKeyName=%s;SharedAccessKey=%s",
			cfg.Namespace, cfg.KeyName, cfg.KeyValue)
		client, err = azservicebus.NewClientFromConnectionString(connStr, nil)
	default:
		cred, cerr := azidentity.NewDefaultAzureCredential(nil)
		if cerr != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", cerr)
		}
		client, err = azservicebus.NewClient(cfg.Namespace+".servicebus.windows.net", cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Service Bus client: %w", err)
	}

	return &AzureServiceBusClient{
		client:    client,
		logger:    logger.With(logging.NewField("component", "servicebus")),
		senders:   make(map[string]*azservicebus.Sender),
		receivers: make(map[string]*azservicebus.Receiver),
	}, nil
}

// Send sends a message to a queue.
func (a *AzureServiceBusClient) Send(ctx context.Context, queue string, body []byte, opts ...SendOption) (string, error) {
	logger := a.logger.With(
		logging.NewField("operation", "servicebus.send"),
		logging.NewField("queue", queue),
	)

	sender, err := a.sender(queue)
	if err != nil {
		logger.Error("Failed to create sender", logging.NewField("error", err))
		return "", err
	}

	o := applySendOptions(opts)
	msg := &azservicebus.Message{
		Body:                  body,
		ApplicationProperties: o.Properties,
	}
	if o.ContentType != "" {
		msg.ContentType = &o.ContentType
	}
	if o.MessageID != "" {
		msg.MessageID = &o.MessageID
	}

	if err := sender.SendMessage(ctx, msg, nil); err != nil {
		logger.Error("Failed to send message", logging.NewField("error", err))
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	logger.Debug("Message sent", logging.NewField("messageID", o.MessageID))
	return o.MessageID, nil
}

// Receive receives messages from a queue. The receiver is cached per queue
// so deliveries can be settled after Receive returns.
func (a *AzureServiceBusClient) Receive(ctx context.Context, queue string, maxMessages int, wait time.Duration) ([]*Delivery, error) {
	receiver, err := a.receiver(queue)
	if err != nil {
		return nil, err
	}

	receiveCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	msgs, err := receiver.ReceiveMessages(receiveCtx, maxMessages, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	deliveries := make([]*Delivery, 0, len(msgs))
	for _, m := range msgs {
		m := m
		deliveries = append(deliveries, &Delivery{
			Message: convertAzureMessage(m),
			complete: func(ctx context.Context) error {
				return receiver.CompleteMessage(ctx, m, nil)
			},
			abandon: func(ctx context.Context) error {
				return receiver.AbandonMessage(ctx, m, nil)
			},
			deadLetter: func(ctx context.Context, reason, description string) error {
				return receiver.DeadLetterMessage(ctx, m, &azservicebus.DeadLetterOptions{
					Reason:           &reason,
					ErrorDescription: &description,
				})
			},
		})
	}
	return deliveries, nil
}

// Close closes every cached sender and receiver, then the client.
func (a *AzureServiceBusClient) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for name, s := range a.senders {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close sender %s: %w", name, err))
		}
	}
	for name, r := range a.receivers {
		if err := r.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close receiver %s: %w", name, err))
		}
	}
	a.senders = map[string]*azservicebus.Sender{}
	a.receivers = map[string]*azservicebus.Receiver{}

	if err := a.client.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *AzureServiceBusClient) sender(queue string) (*azservicebus.Sender, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.senders[queue]; ok {
		return s, nil
	}
	s, err := a.client.NewSender(queue, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}
	a.senders[queue] = s
	return s, nil
}

func (a *AzureServiceBusClient) receiver(queue string) (*azservicebus.Receiver, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.receivers[queue]; ok {
		return r, nil
	}
	r, err := a.client.NewReceiverForQueue(queue, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create receiver: %w", err)
	}
	a.receivers[queue] = r
	return r, nil
}

// convertAzureMessage converts an Azure Service Bus message to our Message type.
func convertAzureMessage(sbMsg *azservicebus.ReceivedMessage) Message {
	msg := Message{
		ID:            sbMsg.MessageID,
		Body:          sbMsg.Body,
		Properties:    make(map[string]interface{}, len(sbMsg.ApplicationProperties)),
		DeliveryCount: sbMsg.DeliveryCount,
	}
	if sbMsg.ContentType != nil {
		msg.ContentType = *sbMsg.ContentType
	}
	for k, v := range sbMsg.ApplicationProperties {
		msg.Properties[k] = v
	}
	if sbMsg.EnqueuedTime != nil {
		msg.EnqueuedAt = *sbMsg.EnqueuedTime
	}
	return msg
}
