package redisx

import "time"

const (
	// Table occupancy snapshot: table_status:{table_id} -> {"status":"occupied","order_id":7}
	KeyTableStatus = "table_status:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Payment QR cache: qr:order:{order_id} -> png bytes
	KeyOrderQR = "qr:order:%d"
)

var (
	TTLTableStatus = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLOrderQR     = 24 * time.Hour
)
