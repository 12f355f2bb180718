package event

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/pkg/money"
)

// Job codes consumed by the side-effect workers
const (
	JobRecordLog                = "RECORD_LOG"
	JobSocketBroadcast          = "SOCKET_BROADCAST"
	JobCheckProductAvailability = "CHECK_PRODUCT_AVAILABILITY"
	JobProductionTicketFanout   = "PRODUCTION_TICKET_FANOUT"
	JobNotifyOrder              = "NOTIFY_ORDER"
)

// Socket broadcast events
const (
	OrderCreated   = "ORDER_CREATED"
	OrderUpdated   = "ORDER_UPDATED"
	OrderCancelled = "ORDER_CANCELLED"
	OrderPaid      = "ORDER_PAID"
	OrderRefunded  = "ORDER_REFUNDED"
)

// Options is the retry and retention policy of a job
type Options struct {
	MaxAttempts      int  `json:"max_attempts"`
	RemoveOnComplete bool `json:"remove_on_complete"`
	RemoveOnFail     bool `json:"remove_on_fail"`
}

// DefaultOptions is the policy every side-effect job is enqueued with
func DefaultOptions() Options {
	return Options{MaxAttempts: 2, RemoveOnComplete: true, RemoveOnFail: true}
}

// Job is one asynchronous side effect
type Job struct {
	Code    string          `json:"code"`
	Payload json.RawMessage `json:"payload"`
	Options Options         `json:"options"`
}

// Dispatcher hands jobs to the queue. It is only called after a commit.
type Dispatcher interface {
	Enqueue(ctx context.Context, job Job) error
}

// NewJob encodes the payload with the default options
func NewJob(code string, payload interface{}) (Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Job{}, err
	}
	return Job{Code: code, Payload: data, Options: DefaultOptions()}, nil
}

// OrderRecord is one audit entry of an order action
type OrderRecord struct {
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	MadeByID  uuid.UUID `json:"made_by_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordLogPayload carries the audit entries produced by one transaction
type RecordLogPayload struct {
	BusinessID uuid.UUID     `json:"business_id"`
	OrderID    uuid.UUID     `json:"order_id"`
	Records    []OrderRecord `json:"records"`
}

// BroadcastPayload is the socket message for an order change
type BroadcastPayload struct {
	BusinessID uuid.UUID  `json:"business_id"`
	AreaID     uuid.UUID  `json:"area_id"`
	Event      string     `json:"event"`
	OrderID    uuid.UUID  `json:"order_id"`
	Status     string     `json:"status"`
	TotalToPay money.List `json:"total_to_pay"`
}

// AvailabilityPayload asks the workers to recheck product availability in an area
type AvailabilityPayload struct {
	BusinessID uuid.UUID   `json:"business_id"`
	AreaID     uuid.UUID   `json:"area_id"`
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// TicketFanoutPayload routes new production tickets to their displays and printers
type TicketFanoutPayload struct {
	BusinessID uuid.UUID   `json:"business_id"`
	OrderID    uuid.UUID   `json:"order_id"`
	TicketIDs  []uuid.UUID `json:"ticket_ids"`
}

// NotifyPayload triggers customer notifications (email, push)
type NotifyPayload struct {
	BusinessID uuid.UUID `json:"business_id"`
	OrderID    uuid.UUID `json:"order_id"`
	Event      string    `json:"event"`
	Origin     string    `json:"origin"`
}
