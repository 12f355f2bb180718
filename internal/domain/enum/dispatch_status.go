package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// DispatchStatus is the state of a stock/order dispatch between areas
type DispatchStatus int

const (
	DispatchStatusCreated  DispatchStatus = 0
	DispatchStatusAccepted DispatchStatus = 1
	DispatchStatusRejected DispatchStatus = 2
)

var dispatchStatusNames = []string{"CREATED", "ACCEPTED", "REJECTED"}

func (s DispatchStatus) String() string {
	return nameOf(dispatchStatusNames, int(s))
}

func (s DispatchStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *DispatchStatus) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, dispatchStatusNames)
	if err != nil {
		return err
	}
	*s = DispatchStatus(i)
	return nil
}

func (s DispatchStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *DispatchStatus) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*s = DispatchStatus(i)
	return nil
}

// DiscountType is how a coupon discount is expressed
type DiscountType int

const (
	DiscountTypePercent DiscountType = 0
	DiscountTypeFixed   DiscountType = 1
)

var discountTypeNames = []string{"PERCENT", "FIXED"}

func (t DiscountType) String() string {
	return nameOf(discountTypeNames, int(t))
}

func (t DiscountType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *DiscountType) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, discountTypeNames)
	if err != nil {
		return err
	}
	*t = DiscountType(i)
	return nil
}

func (t DiscountType) Value() (driver.Value, error) {
	return int64(t), nil
}

func (t *DiscountType) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*t = DiscountType(i)
	return nil
}
