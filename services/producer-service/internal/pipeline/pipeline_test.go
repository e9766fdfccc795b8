package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/md-rashed-zaman/datasync/services/producer-service/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	records []event.Record
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(context.Context) ([]event.Record, error) {
	f.calls++
	return f.records, f.err
}

type published struct {
	topic string
	key   string
	env   event.Envelope
}

// recordingPublisher mimics a transport whose completions fail for some keys;
// like the real publishers it never surfaces that to the caller.
type recordingPublisher struct {
	calls  []published
	failAt map[int]bool
	failed []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, value any) {
	idx := len(p.calls)
	p.calls = append(p.calls, published{topic: topic, key: key, env: value.(event.Envelope)})
	if p.failAt[idx] {
		p.failed = append(p.failed, key)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCustomerPipelinePublishesAlice(t *testing.T) {
	fetcher := &stubFetcher{records: []event.Record{{"name": "Alice"}}}
	pub := &recordingPublisher{}

	err := NewCustomer("", fetcher, pub, discardLogger()).Produce(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, "customer_data", call.topic)
	assert.Equal(t, call.env.EventID, call.key)
	assert.Equal(t, event.CustomerUpdate, call.env.EventType)
	assert.Equal(t, event.SourceCRM, call.env.SourceSystem)
	assert.Equal(t, "Alice", call.env.Payload["name"])
}

func TestOneEnvelopePerRecordInOrder(t *testing.T) {
	records := []event.Record{
		{"sku": "A-1"},
		{"sku": "A-1"},
		{"sku": "B-2", "type": "CUSTOMER_UPDATE"},
		{},
	}
	pub := &recordingPublisher{}

	err := NewInventory("", &stubFetcher{records: records}, pub, discardLogger()).Produce(context.Background())
	require.NoError(t, err)

	require.Len(t, pub.calls, len(records))
	ids := map[string]struct{}{}
	for i, call := range pub.calls {
		assert.Equal(t, "inventory_data", call.topic)
		assert.Equal(t, event.InventoryUpdate, call.env.EventType)
		assert.Equal(t, event.SourceInventory, call.env.SourceSystem)
		assert.Equal(t, records[i], call.env.Payload)
		ids[call.env.EventID] = struct{}{}
	}
	assert.Len(t, ids, len(records))
}

func TestFetchFailurePublishesNothing(t *testing.T) {
	fetchErr := errors.New("upstream crm: exhausted")
	pub := &recordingPublisher{}

	err := NewCustomer("", &stubFetcher{err: fetchErr}, pub, discardLogger()).Produce(context.Background())
	require.ErrorIs(t, err, fetchErr)
	assert.Empty(t, pub.calls)
}

func TestPublishFailureDoesNotStopRemainingRecords(t *testing.T) {
	records := []event.Record{{"n": 1}, {"n": 2}, {"n": 3}, {"n": 4}}
	pub := &recordingPublisher{failAt: map[int]bool{1: true}}

	err := NewCustomer("", &stubFetcher{records: records}, pub, discardLogger()).Produce(context.Background())
	require.NoError(t, err)
	assert.Len(t, pub.calls, 4)
	assert.Len(t, pub.failed, 1)
}

func TestCustomTopic(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewInventory("inventory_data_v2", &stubFetcher{records: []event.Record{{"a": 1}}}, pub, discardLogger())

	require.NoError(t, p.Produce(context.Background()))
	assert.Equal(t, "inventory", p.Name())
	assert.Equal(t, "inventory_data_v2", pub.calls[0].topic)
}
