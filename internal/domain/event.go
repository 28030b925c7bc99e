package domain

import "time"

// ChainEvent is a dispatched consensus-layer event, deduped by subscribers
// using EventID (stable and reproducible across reconnects, §3).
type ChainEvent struct {
	EventID     string
	Type        string
	BlockHeight uint64
	TxIndex     int
	Timestamp   time.Time
	TxHash      string
	Attributes  map[string]string
}

// Canonical chain event types (§6 subscription query mapping).
const (
	EventOrderCreated           = "order.created"
	EventBidCreated             = "bid.created"
	EventAllocationStatusChanged = "allocation.status_changed"
	EventSettlementExecuted     = "settlement.executed"
	EventHPCJobStatusChanged    = "hpc_job.status_changed"
)

// SubscriptionQueries maps canonical event types to the underlying
// message.action query fragment (§6).
var SubscriptionQueries = map[string]string{
	EventOrderCreated:            "message.action='CreateOrder'",
	EventBidCreated:              "message.action='CreateBid'",
	EventAllocationStatusChanged: "message.action='UpdateAllocationStatus'",
	EventSettlementExecuted:      "message.action='ExecuteSettlement'",
	EventHPCJobStatusChanged:     "message.action='UpdateHPCJobStatus'",
}

// RawTypeToEventType maps the wire "type" string inside a TxResult event to
// the canonical ChainEvent type, the inverse of SubscriptionQueries' action
// fragments. Unknown raw types are dropped silently by the client (§4.6).
var RawTypeToEventType = map[string]string{
	"CreateOrder":            EventOrderCreated,
	"CreateBid":              EventBidCreated,
	"UpdateAllocationStatus": EventAllocationStatusChanged,
	"ExecuteSettlement":      EventSettlementExecuted,
	"UpdateHPCJobStatus":     EventHPCJobStatusChanged,
}
