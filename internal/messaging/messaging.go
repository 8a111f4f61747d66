package messaging

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/invoicedesk/internal/config"
)

// Header is attached to every published message.
type Header struct {
	Key   string
	Value string
}

// Client publishes domain events to the configured bus.
type Client interface {
	Publish(ctx context.Context, key []byte, value []byte, headers ...Header) error
	Topic() string
}

// Module wires the messaging client.
var Module = fx.Provide(NewClient)

// Noop returns a client that drops every message.
func Noop(topic string) Client {
	return noopClient{topic: topic}
}

type noopClient struct {
	topic string
}

func (n noopClient) Publish(context.Context, []byte, []byte, ...Header) error { return nil }
func (n noopClient) Topic() string                                           { return n.topic }

// kafkaClient implements the Client via kafka-go.
type kafkaClient struct {
	writer *kafka.Writer
	topic  string
}

func (k *kafkaClient) Publish(ctx context.Context, key []byte, value []byte, headers ...Header) error {
	msg := kafka.Message{Key: key, Value: value}
	for _, h := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: h.Key, Value: []byte(h.Value)})
	}
	return k.writer.WriteMessages(ctx, msg)
}

func (k *kafkaClient) Topic() string { return k.topic }

// NewClient builds a messaging client based on configuration.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	if !cfg.Messaging.Enabled || cfg.Messaging.Driver == "noop" {
		logger.Info("messaging disabled; using noop client")
		return Noop(cfg.Messaging.Kafka.Topic), nil
	}

	switch cfg.Messaging.Driver {
	case "kafka":
		return newKafkaClient(lc, cfg.Messaging.Kafka, logger), nil
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
}

func newKafkaClient(lc fx.Lifecycle, cfg config.Kafka, logger *zap.Logger) Client {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
		Logger:       kafkaLogger{logger: logger},
		ErrorLogger:  kafkaLogger{logger: logger},
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing kafka writer", zap.String("topic", cfg.Topic))
			return writer.Close()
		},
	})

	return &kafkaClient{writer: writer, topic: cfg.Topic}
}

type kafkaLogger struct {
	logger *zap.Logger
}

func (k kafkaLogger) Printf(msg string, args ...interface{}) {
	k.logger.Sugar().Debugf(msg, args...)
}
