package pos

import (
	"encoding/json"
	"time"
)

const (
	EventSessionStarted   = "SessionStarted"
	EventOrderSaved       = "OrderSaved"
	EventSessionCompleted = "SessionCompleted"
	EventSessionCancelled = "SessionCancelled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type SessionStartedPayload struct {
	OrderID      int64     `json:"order_id"`
	TableID      int64     `json:"table_id"`
	PricePerHour int64     `json:"price_per_hour"`
	StartedAt    time.Time `json:"started_at"`
}

type OrderSavedPayload struct {
	OrderID int64 `json:"order_id"`
	TableID int64 `json:"table_id"`
	Total   int64 `json:"total"`
}

type SessionCompletedPayload struct {
	OrderID      int64       `json:"order_id"`
	TableID      int64       `json:"table_id"`
	CustomerID   *int64      `json:"customer_id,omitempty"`
	Items        []OrderItem `json:"items"`
	Total        int64       `json:"total"`
	PointsEarned int64       `json:"points_earned"`
}

type SessionCancelledPayload struct {
	OrderID int64 `json:"order_id"`
	TableID int64 `json:"table_id"`
}
