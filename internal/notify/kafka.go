package notify

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/refuel-athletics/gelstore/internal/domain/order"
)

var _ order.Notifier = (*Publisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// PublisherConfig configures the Kafka publisher.
type PublisherConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// Publisher emits an order.confirmed event per recorded order, keyed by
// order reference.
type Publisher struct {
	w  messageWriter
	lg *zap.Logger
}

// NewPublisher creates a Publisher writing to cfg.Topic.
func NewPublisher(cfg PublisherConfig, lg *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if lg == nil {
		lg = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{w: w, lg: lg}, nil
}

// SendOrderConfirmation publishes the confirmation event.
func (p *Publisher) SendOrderConfirmation(ctx context.Context, reference, email string, o *order.Order) error {
	msg := kafka.Message{
		Key:   []byte(reference),
		Value: encodeEvent(reference, email, o),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderConfirmed)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "publish order event")
	}
	p.lg.Debug("Order event published", zap.String("reference", reference))
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	return p.w.Close()
}
