package kafkax

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, SplitBrokers(" a:9092, ,b:9092,"))
	assert.Nil(t, SplitBrokers(""))
}

func TestEventHeaders(t *testing.T) {
	headers := EventHeaders("evt-1", "CUSTOMER_UPDATE")
	assert.Equal(t, "evt-1", HeaderValue(headers, HeaderEventID))
	assert.Equal(t, "CUSTOMER_UPDATE", HeaderValue(headers, HeaderEventType))

	assert.Len(t, EventHeaders("", "x"), 1)
}

func TestInjectTraceHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := InjectTraceHeaders(ctx, []kafka.Header{{Key: HeaderEventID, Value: []byte("evt-1")}})

	assert.Equal(t, "evt-1", HeaderValue(headers, HeaderEventID))
	assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", HeaderValue(headers, "traceparent"))
}

func TestReadyCheckWithoutBrokers(t *testing.T) {
	err := ReadyCheck(nil)(context.Background())
	assert.EqualError(t, err, "kafka brokers not configured")
}
