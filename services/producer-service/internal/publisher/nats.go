package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/md-rashed-zaman/datasync/libs/kafkax"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type NATSConfig struct {
	URL  string
	Name string
	// Stream, when set, is created or updated at startup to capture Subjects.
	Stream   string
	Subjects []string
	Timeout  time.Duration
	// OnComplete, if set, is called after each completion is logged.
	OnComplete func(Result)
}

type asyncPublisher interface {
	PublishMsgAsync(msg *nats.Msg, opts ...jetstream.PublishOpt) (jetstream.PubAckFuture, error)
}

// NATS publishes to JetStream. The topic is the subject and the key becomes
// the Nats-Msg-Id, so the broker drops duplicates inside its window.
type NATS struct {
	conn    *nats.Conn
	js      asyncPublisher
	pending sync.WaitGroup
	reporter
}

func NewNATS(ctx context.Context, cfg NATSConfig, logger *slog.Logger) (*NATS, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url not configured")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if cfg.Stream != "" {
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     cfg.Stream,
			Subjects: cfg.Subjects,
			Storage:  jetstream.FileStorage,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
		}
	}
	return &NATS{
		conn:     conn,
		js:       js,
		reporter: reporter{logger: logger, onComplete: cfg.OnComplete},
	}, nil
}

func (p *NATS) Publish(ctx context.Context, topic, key string, value any) {
	ctx, span := otel.Tracer("nats").Start(ctx, "nats.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination", topic),
		),
	)
	defer span.End()

	raw, err := json.Marshal(value)
	if err != nil {
		span.RecordError(err)
		p.report(Result{Topic: topic, Key: key, Err: fmt.Errorf("encode message: %w", err)})
		return
	}

	msg := nats.NewMsg(topic)
	msg.Data = raw
	msg.Header.Set(kafkax.HeaderEventID, key)
	if t := eventTypeOf(value); t != "" {
		msg.Header.Set(kafkax.HeaderEventType, t)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))

	fut, err := p.js.PublishMsgAsync(msg, jetstream.WithMsgID(key))
	if err != nil {
		span.RecordError(err)
		p.report(Result{Topic: topic, Key: key, Err: err})
		return
	}
	p.pending.Add(1)
	go p.await(topic, key, fut)
}

func (p *NATS) await(topic, key string, fut jetstream.PubAckFuture) {
	defer p.pending.Done()
	select {
	case ack := <-fut.Ok():
		p.report(Result{Topic: topic, Key: key, Offset: int64(ack.Sequence)})
	case err := <-fut.Err():
		p.report(Result{Topic: topic, Key: key, Err: err})
	}
}

// Close waits for outstanding acks (bounded by ctx) and drains the connection.
func (p *NATS) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if p.conn != nil {
		if drainErr := p.conn.Drain(); drainErr != nil && err == nil {
			err = drainErr
		}
	}
	return err
}

func (p *NATS) ReadyCheck() func(context.Context) error {
	return func(context.Context) error {
		if p.conn == nil || p.conn.Status() != nats.CONNECTED {
			return errors.New("nats not connected")
		}
		return nil
	}
}
