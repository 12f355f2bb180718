package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// ProductionStatus tracks a line item through preparation
type ProductionStatus int

const (
	ProductionStatusReceived  ProductionStatus = 0
	ProductionStatusInProcess ProductionStatus = 1
	ProductionStatusCompleted ProductionStatus = 2
)

var productionStatusNames = []string{"RECEIVED", "IN_PROCESS", "COMPLETED"}

func (s ProductionStatus) String() string {
	return nameOf(productionStatusNames, int(s))
}

func (s ProductionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ProductionStatus) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, productionStatusNames)
	if err != nil {
		return err
	}
	*s = ProductionStatus(i)
	return nil
}

func (s ProductionStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *ProductionStatus) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*s = ProductionStatus(i)
	return nil
}

// TicketStatus tracks a production ticket
type TicketStatus int

const (
	TicketStatusReceived   TicketStatus = 0
	TicketStatusInProcess  TicketStatus = 1
	TicketStatusDispatched TicketStatus = 2
	TicketStatusClosed     TicketStatus = 3
)

var ticketStatusNames = []string{"RECEIVED", "IN_PROCESS", "DISPATCHED", "CLOSED"}

func (s TicketStatus) String() string {
	return nameOf(ticketStatusNames, int(s))
}

func (s TicketStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *TicketStatus) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, ticketStatusNames)
	if err != nil {
		return err
	}
	*s = TicketStatus(i)
	return nil
}

func (s TicketStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *TicketStatus) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*s = TicketStatus(i)
	return nil
}
