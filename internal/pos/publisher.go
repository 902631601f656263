package pos

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/tranqhuy/bida-pos/internal/kafka"
)

// EventSink is what the async kafka producer looks like from here.
type EventSink interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// Publisher wraps lifecycle payloads into the versioned envelope. A nil
// Publisher is valid and publishes nothing (library use without a broker).
type Publisher struct {
	Sink    EventSink
	Service string
}

func (p *Publisher) Emit(topic, eventType string, tableID, orderID int64, payload any) {
	if p == nil || p.Sink == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      p.Service,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Sink.Publish(topic, PartitionKey(tableID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
