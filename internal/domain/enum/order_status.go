package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus int

const (
	OrderStatusCreated        OrderStatus = 0
	OrderStatusInProcess      OrderStatus = 1
	OrderStatusCompleted      OrderStatus = 2
	OrderStatusPaymentPending OrderStatus = 3
	OrderStatusBilled         OrderStatus = 4
	OrderStatusCancelled      OrderStatus = 5
	OrderStatusRefunded       OrderStatus = 6
	OrderStatusInTransit      OrderStatus = 7
	OrderStatusDelivered      OrderStatus = 8
)

var orderStatusNames = []string{
	"CREATED", "IN_PROCESS", "COMPLETED", "PAYMENT_PENDING", "BILLED",
	"CANCELLED", "REFUNDED", "IN_TRANSIT", "DELIVERED",
}

// ParseOrderStatus parses a status name
func ParseOrderStatus(s string) (OrderStatus, bool) {
	i, ok := parseName(orderStatusNames, s)
	return OrderStatus(i), ok
}

// IsClosed reports statuses in which the product list cannot be changed
func (s OrderStatus) IsClosed() bool {
	return s == OrderStatusBilled || s == OrderStatusCancelled || s == OrderStatusRefunded
}

func (s OrderStatus) String() string {
	return nameOf(orderStatusNames, int(s))
}

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, orderStatusNames)
	if err != nil {
		return err
	}
	*s = OrderStatus(i)
	return nil
}

func (s OrderStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *OrderStatus) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*s = OrderStatus(i)
	return nil
}

// OrderOrigin is the channel an order was placed through
type OrderOrigin int

const (
	OrderOriginPOS         OrderOrigin = 0
	OrderOriginOnline      OrderOrigin = 1
	OrderOriginApp         OrderOrigin = 2
	OrderOriginMarketplace OrderOrigin = 3
)

var orderOriginNames = []string{"POS", "ONLINE", "APP", "MARKETPLACE"}

func (o OrderOrigin) String() string {
	return nameOf(orderOriginNames, int(o))
}

func (o OrderOrigin) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *OrderOrigin) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, orderOriginNames)
	if err != nil {
		return err
	}
	*o = OrderOrigin(i)
	return nil
}

func (o OrderOrigin) Value() (driver.Value, error) {
	return int64(o), nil
}

func (o *OrderOrigin) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*o = OrderOrigin(i)
	return nil
}
