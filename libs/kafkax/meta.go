package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// Header keys carried on every produced message alongside the trace context.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// EventHeaders builds the canonical metadata headers for one message.
// Empty values are skipped.
func EventHeaders(eventID, eventType string) []kafka.Header {
	headers := make([]kafka.Header, 0, 2)
	if eventID != "" {
		headers = append(headers, kafka.Header{Key: HeaderEventID, Value: []byte(eventID)})
	}
	if eventType != "" {
		headers = append(headers, kafka.Header{Key: HeaderEventType, Value: []byte(eventType)})
	}
	return headers
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
