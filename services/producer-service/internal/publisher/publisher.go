// Package publisher sends envelopes to the bus without waiting for broker
// acknowledgment. Completions are reported on transport goroutines and never
// flow back to the caller.
package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/metrics"
)

// Publisher is safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any)
	Close(ctx context.Context) error
}

// Result is the outcome of one publish. Offset is the partition offset on
// Kafka and the stream sequence on JetStream.
type Result struct {
	Topic     string
	Key       string
	Partition int
	Offset    int64
	Err       error
}

// PublishError is a transport-level send failure. It only reaches logs,
// metrics and the optional completion hook.
type PublishError struct {
	Topic string
	Key   string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s (key %s): %v", e.Topic, e.Key, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// typed is implemented by values that carry an event type for the headers.
type typed interface {
	Type() string
}

func eventTypeOf(value any) string {
	if t, ok := value.(typed); ok {
		return t.Type()
	}
	return ""
}

type reporter struct {
	logger     *slog.Logger
	onComplete func(Result)
}

func (r reporter) report(res Result) {
	if res.Err != nil {
		res.Err = &PublishError{Topic: res.Topic, Key: res.Key, Err: res.Err}
		r.logger.Error("publish failed", "topic", res.Topic, "event_id", res.Key, "err", res.Err)
	} else {
		r.logger.Info("published", "topic", res.Topic, "event_id", res.Key, "partition", res.Partition, "offset", res.Offset)
	}
	metrics.ObservePublish(res.Topic, res.Err)
	if r.onComplete != nil {
		r.onComplete(res)
	}
}

var (
	_ Publisher = (*Kafka)(nil)
	_ Publisher = (*NATS)(nil)
)
