package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// PaymentWay is the instrument a payment was received with
type PaymentWay int

const (
	PaymentWayCash         PaymentWay = 0
	PaymentWayTransfer     PaymentWay = 1
	PaymentWayCard         PaymentWay = 2
	PaymentWayCreditPoints PaymentWay = 3
)

var paymentWayNames = []string{"CASH", "TRANSFER", "CARD", "CREDIT_POINTS"}

func (p PaymentWay) String() string {
	return nameOf(paymentWayNames, int(p))
}

func (p PaymentWay) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *PaymentWay) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, paymentWayNames)
	if err != nil {
		return err
	}
	*p = PaymentWay(i)
	return nil
}

func (p PaymentWay) Value() (driver.Value, error) {
	return int64(p), nil
}

func (p *PaymentWay) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*p = PaymentWay(i)
	return nil
}

// CashOperation tags an entry of the cash register ledger
type CashOperation int

const (
	CashOperationDepositSale        CashOperation = 0
	CashOperationWithdrawSale       CashOperation = 1
	CashOperationWithdrawSaleRefund CashOperation = 2
	CashOperationManualDeposit      CashOperation = 3
	CashOperationManualWithdraw     CashOperation = 4
	CashOperationManualFund         CashOperation = 5
)

var cashOperationNames = []string{
	"DEPOSIT_SALE", "WITHDRAW_SALE", "WITHDRAW_SALE_REFUND",
	"MANUAL_DEPOSIT", "MANUAL_WITHDRAW", "MANUAL_FUND",
}

// Cash register entry types
const (
	CashTypeCredit = "credit"
	CashTypeDebit  = "debit"
)

// ParseCashOperation parses an operation name
func ParseCashOperation(s string) (CashOperation, bool) {
	i, ok := parseName(cashOperationNames, s)
	return CashOperation(i), ok
}

// Type returns whether the operation adds money to the drawer or takes it out
func (o CashOperation) Type() string {
	switch o {
	case CashOperationDepositSale, CashOperationManualDeposit, CashOperationManualFund:
		return CashTypeCredit
	}
	return CashTypeDebit
}

// IsManual reports operations registered by hand at the drawer
func (o CashOperation) IsManual() bool {
	return o == CashOperationManualDeposit || o == CashOperationManualWithdraw || o == CashOperationManualFund
}

func (o CashOperation) String() string {
	return nameOf(cashOperationNames, int(o))
}

func (o CashOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *CashOperation) UnmarshalJSON(data []byte) error {
	i, err := unmarshalName(data, cashOperationNames)
	if err != nil {
		return err
	}
	*o = CashOperation(i)
	return nil
}

func (o CashOperation) Value() (driver.Value, error) {
	return int64(o), nil
}

func (o *CashOperation) Scan(value interface{}) error {
	i, err := scanInt(value)
	if err != nil {
		return err
	}
	*o = CashOperation(i)
	return nil
}
