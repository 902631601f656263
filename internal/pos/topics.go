package pos

import "strconv"

const (
	TopicSessionStarted   = "pos.session.started"
	TopicOrderSaved       = "pos.order.saved"
	TopicSessionCompleted = "pos.session.completed"
	TopicSessionCancelled = "pos.session.cancelled"
)

// Partition key = table id, so events of one table keep their order.
func PartitionKey(tableID int64) []byte {
	return []byte(strconv.FormatInt(tableID, 10))
}
