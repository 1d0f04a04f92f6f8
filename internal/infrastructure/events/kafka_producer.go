// Package events publishes twin sync events to downstream consumers.
package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/internal/domain/models"
	"github.com/turtacn/astragrid/internal/domain/service"
	"github.com/turtacn/astragrid/pkg/errors"
	"github.com/turtacn/astragrid/pkg/logger"
)

// messageWriter is the part of kafka.Writer the producer needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes twin sync events keyed by component id, so all
// events of one component land on the same partition in order.
type KafkaProducer struct {
	writer messageWriter
	topic  string
	logger logger.Logger
}

// NewKafkaProducer creates a new KafkaProducer.
func NewKafkaProducer(cfg config.KafkaConfig, log logger.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}
	return newKafkaProducer(writer, cfg.Topic, log)
}

func newKafkaProducer(w messageWriter, topic string, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer: w,
		topic:  topic,
		logger: log.WithComponent("KafkaProducer"),
	}
}

var _ service.EventPublisher = (*KafkaProducer)(nil)

// PublishTwinSync sends one event to the topic.
func (p *KafkaProducer) PublishTwinSync(ctx context.Context, event *models.TwinSyncEvent) error {
	bytes, err := json.Marshal(event)
	if err != nil {
		p.logger.Error(ctx, "failed to marshal twin sync event", err)
		return errors.ErrMalformedInput("twin sync event cannot be encoded").WithCause(err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ComponentID),
		Value: bytes,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "scan_id", Value: []byte(event.ScanID)},
		},
	})
	if err != nil {
		p.logger.Error(ctx, "failed to write message to Kafka", err,
			logger.String("topic", p.topic),
			logger.String("component_id", event.ComponentID),
		)
		return errors.ErrDependencyUnavailable("kafka", err)
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// LogPublisher only logs events; used when Kafka is disabled.
type LogPublisher struct {
	logger logger.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{logger: log.WithComponent("EventLog")}
}

func (p *LogPublisher) PublishTwinSync(ctx context.Context, event *models.TwinSyncEvent) error {
	p.logger.Debug(ctx, "twin sync",
		logger.String("component_id", event.ComponentID),
		logger.String("risk_category", string(event.RiskCategory)),
		logger.Bool("compliant", event.Compliant),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
