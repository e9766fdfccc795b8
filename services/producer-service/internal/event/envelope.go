package event

import (
	"time"

	"github.com/google/uuid"
)

// Record is one schema-free object as returned by an upstream source.
type Record map[string]any

type EventType string

const (
	CustomerUpdate  EventType = "CUSTOMER_UPDATE"
	InventoryUpdate EventType = "INVENTORY_UPDATE"
)

type SourceSystem string

const (
	SourceCRM       SourceSystem = "CRM"
	SourceInventory SourceSystem = "INVENTORY"
)

// Envelope is the uniform wrapper published to the bus. EventID is the
// partition key and the idempotency token for consumers.
type Envelope struct {
	EventID      string       `json:"eventId"`
	EventType    EventType    `json:"eventType"`
	SourceSystem SourceSystem `json:"sourceSystem"`
	Timestamp    time.Time    `json:"timestamp"`
	Payload      Record       `json:"payload"`
}

// Wrap builds a new envelope. Every call gets a fresh id and timestamp, even
// for an identical record.
func Wrap(record Record, eventType EventType, source SourceSystem) Envelope {
	return Envelope{
		EventID:      uuid.NewString(),
		EventType:    eventType,
		SourceSystem: source,
		Timestamp:    time.Now().UTC(),
		Payload:      record,
	}
}

func (e Envelope) Key() string { return e.EventID }

// Type exposes the event type for transport headers.
func (e Envelope) Type() string { return string(e.EventType) }
