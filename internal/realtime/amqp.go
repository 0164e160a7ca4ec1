package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DeliverySource yields AMQP deliveries
type DeliverySource interface {
	Consume() (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPSource consumes a durable queue the sensor bridge publishes to
type AMQPSource struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func DialAMQP(url, queue string) (*AMQPSource, error) {
	if url == "" {
		return nil, errors.New("rabbitmq URL cannot be empty")
	}
	if queue == "" {
		return nil, errors.New("queue name cannot be empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.Qos(32, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &AMQPSource{conn: conn, ch: ch, queue: queue}, nil
}

func (s *AMQPSource) Consume() (<-chan amqp.Delivery, error) {
	return s.ch.Consume(s.queue, "", false, false, false, false, nil)
}

func (s *AMQPSource) Close() error {
	if err := s.ch.Close(); err != nil {
		_ = s.conn.Close()
		return err
	}
	return s.conn.Close()
}

// Consumer feeds bridge messages from AMQP into the realtime service
type Consumer struct {
	source DeliverySource
	ingest func(context.Context, []Reading) error
	logger *zap.Logger
	done   chan struct{}
}

func NewConsumer(source DeliverySource, ingest func(context.Context, []Reading) error, lg *zap.Logger) *Consumer {
	return &Consumer{source: source, ingest: ingest, logger: lg.Named("realtime.amqp"), done: make(chan struct{})}
}

// Start begins consuming in the background until ctx is done or the channel closes
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.source.Consume()
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	c.logger.Info("sensor reading consumer started")
	go c.process(ctx, deliveries)
	return nil
}

// Done is closed once the consumer stops
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}

func (c *Consumer) process(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn("reading deliveries channel closed")
				return
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	readings, err := ParseReadings("", d.Body, time.Now())
	if err != nil {
		// Unparseable payloads will never succeed; drop them.
		c.logger.Warn("dropping malformed reading message", zap.Error(err))
		if ackErr := d.Ack(false); ackErr != nil {
			c.logger.Error("failed to ack message", zap.Error(ackErr))
		}
		return
	}
	if err := c.ingest(ctx, readings); err != nil {
		c.logger.Error("failed to ingest readings", zap.Error(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("failed to nack message", zap.Error(nackErr))
		}
		return
	}
	if err := d.Ack(false); err != nil {
		c.logger.Error("failed to ack message", zap.Error(err))
	}
}
