package enum

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_JSONAcceptsNameAndInt(t *testing.T) {
	var s OrderStatus
	require.NoError(t, json.Unmarshal([]byte(`"billed"`), &s))
	assert.Equal(t, OrderStatusBilled, s)

	require.NoError(t, json.Unmarshal([]byte(`5`), &s))
	assert.Equal(t, OrderStatusCancelled, s)

	assert.Error(t, json.Unmarshal([]byte(`"LOST"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`42`), &s))

	out, err := json.Marshal(OrderStatusPaymentPending)
	require.NoError(t, err)
	assert.Equal(t, `"PAYMENT_PENDING"`, string(out))
}

func TestOrderStatus_Scan(t *testing.T) {
	var s OrderStatus
	require.NoError(t, s.Scan(int64(4)))
	assert.Equal(t, OrderStatusBilled, s)
	require.NoError(t, s.Scan([]byte("6")))
	assert.Equal(t, OrderStatusRefunded, s)
	assert.Error(t, s.Scan(3.5))
}

func TestCashOperation_Type(t *testing.T) {
	assert.Equal(t, CashTypeCredit, CashOperationDepositSale.Type())
	assert.Equal(t, CashTypeCredit, CashOperationManualFund.Type())
	assert.Equal(t, CashTypeDebit, CashOperationWithdrawSale.Type())
	assert.Equal(t, CashTypeDebit, CashOperationWithdrawSaleRefund.Type())
	assert.True(t, CashOperationManualWithdraw.IsManual())
	assert.False(t, CashOperationDepositSale.IsManual())
}

func TestProductType_Rules(t *testing.T) {
	assert.True(t, ProductTypeStock.ControlsStock())
	assert.True(t, ProductTypeAddon.ControlsStock())
	assert.False(t, ProductTypeMenu.ControlsStock())
	assert.True(t, ProductTypeMenu.RequiresProduction())
	assert.False(t, ProductTypeService.ControlsStock())
	assert.Equal(t, "UNKNOWN", ProductType(99).String())
}
