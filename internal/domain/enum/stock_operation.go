package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// StockOperation tags a stock movement record.
// MOVE_OUT returns quantity to the area an order leaves, MOVE_IN consumes it in the area the order enters.
type StockOperation int

const (
	StockOperationSale                    StockOperation = 0
	StockOperationReturn                  StockOperation = 1
	StockOperationAdjustmentPreviousCycle StockOperation = 2
	StockOperationMoveOut                 StockOperation = 3
	StockOperationMoveIn                  StockOperation = 4
)

var stockOperationNames = []string{"SALE", "RETURN", "ADJUSTMENT_PREVIOUS_CYCLE", "MOVE_OUT", "MOVE_IN"}

func (o StockOperation) String() string {
	return nameOf(stockOperationNames, int(o))
}

func (o StockOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *StockOperation) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, stockOperationNames)
	if err != nil {
		return err
	}
	*o = StockOperation(i)
	return nil
}

func (o StockOperation) Value() (driver.Value, error) {
	return int64(o), nil
}

func (o *StockOperation) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*o = StockOperation(i)
	return nil
}
