package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/datasync/libs/kafkax"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type KafkaConfig struct {
	Brokers          []string
	ClientID         string
	BatchTimeout     time.Duration
	AutoCreateTopics bool
	// OnComplete, if set, is called after each completion is logged.
	OnComplete func(Result)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes through an async kafka-go writer. Messages are hashed onto
// partitions by key.
type Kafka struct {
	writer messageWriter
	reporter
}

func NewKafka(cfg KafkaConfig, logger *slog.Logger) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers not configured")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	p := &Kafka{reporter: reporter{logger: logger, onComplete: cfg.OnComplete}}
	p.writer = &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  true,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: cfg.AutoCreateTopics,
		Completion:             p.complete,
		Transport: &kafka.Transport{
			ClientID: cfg.ClientID,
		},
	}
	return p, nil
}

// Publish serializes value as JSON and hands it to the writer. It returns as
// soon as the message is queued.
func (p *Kafka) Publish(ctx context.Context, topic, key string, value any) {
	ctx, span := otel.Tracer("kafka").Start(ctx, "kafka.produce",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", topic),
			attribute.String("messaging.kafka.message.key", key),
		),
	)
	defer span.End()

	raw, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		p.report(Result{Topic: topic, Key: key, Err: fmt.Errorf("encode message: %w", err)})
		return
	}

	msg := kafka.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   raw,
		Headers: kafkax.EventHeaders(key, eventTypeOf(value)),
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		p.report(Result{Topic: topic, Key: key, Err: err})
	}
}

// complete is the writer's Completion callback.
func (p *Kafka) complete(messages []kafka.Message, err error) {
	for _, m := range messages {
		p.report(Result{
			Topic:     m.Topic,
			Key:       string(m.Key),
			Partition: m.Partition,
			Offset:    m.Offset,
			Err:       err,
		})
	}
}

// Close flushes queued messages. kafka-go does not take a context here, so a
// broker that never answers is bounded by ctx only from the caller's side.
func (p *Kafka) Close(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- p.writer.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
