package servicebusclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// MessageHandler processes a single message. A nil return completes the
// message; an error abandons it for redelivery.
type MessageHandler func(ctx context.Context, msg Message) error

// ErrDeadLetter makes the consumer dead-letter a message instead of
// abandoning it. Wrap it for messages that can never succeed.
var ErrDeadLetter = errors.New("dead letter")

// ConsumerConfig configures a Service Bus consumer.
type ConsumerConfig struct {
	Queue         string
	Workers       int
	MaxMessages   int
	ReceiveWait   time.Duration
	MaxDeliveries uint32 // dead-letter after this many failed deliveries; 0 never
	Logger        logging.Logger
}

// Consumer runs a pool of workers that receive and settle messages.
type Consumer struct {
	client   ServiceBusClient
	config   ConsumerConfig
	handler  MessageHandler
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
	logger   logging.Logger
}

// NewConsumer creates a new Service Bus consumer.
func NewConsumer(client ServiceBusClient, config ConsumerConfig, handler MessageHandler) (*Consumer, error) {
	if config.Queue == "" {
		return nil, fmt.Errorf("consumer queue is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("consumer handler is required")
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.MaxMessages <= 0 {
		config.MaxMessages = 1
	}
	if config.ReceiveWait <= 0 {
		config.ReceiveWait = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = logging.NewNopLogger()
	}

	return &Consumer{
		client:   client,
		config:   config,
		handler:  handler,
		stopChan: make(chan struct{}),
		logger:   config.Logger.With(logging.NewField("queue", config.Queue)),
	}, nil
}

// Start starts the workers and returns immediately.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info("Starting Service Bus consumer",
		logging.NewField("workers", c.config.Workers),
	)

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		select {
		case <-c.stopChan:
		case <-ctx.Done():
		}
	}()

	for i := 0; i < c.config.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}
}

func (c *Consumer) worker(ctx context.Context, workerID int) {
	defer c.wg.Done()

	logger := c.logger.With(logging.NewField("worker", workerID))
	logger.Debug("Worker started")

	for ctx.Err() == nil {
		deliveries, err := c.client.Receive(ctx, c.config.Queue, c.config.MaxMessages, c.config.ReceiveWait)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error("Failed to receive messages", logging.NewField("error", err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}

		for _, d := range deliveries {
			c.process(ctx, logger, d)
		}
	}
	logger.Debug("Worker stopped")
}

// process runs the handler and settles the delivery. Settlement uses a
// background context so a message is not left locked during shutdown.
func (c *Consumer) process(ctx context.Context, logger logging.Logger, d *Delivery) {
	logger = logger.With(
		logging.NewField("messageID", d.ID),
		logging.NewField("deliveryCount", d.DeliveryCount),
	)
	settleCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := c.handler(ctx, d.Message)
	switch {
	case err == nil:
		if cerr := d.Complete(settleCtx); cerr != nil {
			logger.Error("Failed to complete message", logging.NewField("error", cerr))
			return
		}
		logger.Debug("Message processed successfully")

	case errors.Is(err, ErrDeadLetter),
		c.config.MaxDeliveries > 0 && d.DeliveryCount >= c.config.MaxDeliveries:
		logger.Error("Dead-lettering message", logging.NewField("error", err))
		if derr := d.DeadLetter(settleCtx, "ProcessingFailed", err.Error()); derr != nil {
			logger.Error("Failed to dead-letter message", logging.NewField("error", derr))
		}

	default:
		logger.Warn("Message handler failed, abandoning", logging.NewField("error", err))
		if aerr := d.Abandon(settleCtx); aerr != nil {
			logger.Error("Failed to abandon message", logging.NewField("error", aerr))
		}
	}
}

// Stop signals the workers and waits for in-flight messages to settle.
func (c *Consumer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping Service Bus consumer")
	c.stopOnce.Do(func() { close(c.stopChan) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("All workers stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("Timeout waiting for workers to stop")
		return ctx.Err()
	}
}
