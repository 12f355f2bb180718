package service

import (
	"testing"

	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usdRates() money.Rates {
	return money.NewRates("USD", map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("1.1"),
		"CUP": decimal.RequireFromString("0.01"),
	})
}

func TestReconcile_MixedCurrencyPaymentLeavesChange(t *testing.T) {
	owed := money.Of(money.FromFloat(120, "USD"))
	payments := money.List{money.FromFloat(100, "USD"), money.FromFloat(50, "EUR")}

	s, err := Reconcile(owed, payments, usdRates())
	require.NoError(t, err)

	assert.Empty(t, s.Outstanding)
	assert.True(t, s.Sufficient())
	assert.Equal(t, "35.00 USD", s.Remain.String())
	assert.Equal(t, "155.00 USD", s.ReceivedInMain.String())
	assert.Equal(t, "120.00 USD", s.OwedInMain.String())
}

func TestReconcile_IsIndependentOfInputOrder(t *testing.T) {
	owed := money.List{money.FromFloat(30, "EUR"), money.FromFloat(1000, "CUP"), money.FromFloat(5, "USD")}
	payments := money.List{money.FromFloat(20, "USD"), money.FromFloat(10, "EUR"), money.FromFloat(500, "CUP")}

	first, err := Reconcile(owed, payments, usdRates())
	require.NoError(t, err)

	reversedOwed := money.List{owed[2], owed[1], owed[0]}
	reversedPayments := money.List{payments[1], payments[2], payments[0]}
	for i := 0; i < 10; i++ {
		again, err := Reconcile(reversedOwed, reversedPayments, usdRates())
		require.NoError(t, err)
		assert.True(t, first.Outstanding.Equal(again.Outstanding))
		assert.Equal(t, first.Outstanding.Currencies(), again.Outstanding.Currencies())
		assert.True(t, first.Remain.Amount.Equal(again.Remain.Amount))
	}
}

func TestReconcile_SurplusCoversNonMainCurrenciesInCodeOrder(t *testing.T) {
	// USD surplus of 15 first covers CUP (500 CUP = 5 USD) then 10 of the 22 USD owed in EUR
	owed := money.List{money.FromFloat(20, "EUR"), money.FromFloat(500, "CUP"), money.FromFloat(5, "USD")}
	payments := money.List{money.FromFloat(20, "USD")}

	s, err := Reconcile(owed, payments, usdRates())
	require.NoError(t, err)

	// 10 USD / 1.1 = 9.09 EUR covered
	assert.True(t, s.Outstanding.Equal(money.List{money.FromFloat(10.91, "EUR")}), s.Outstanding)
	assert.True(t, s.Remain.IsZero())
	assert.False(t, s.Sufficient())
}

func TestReconcile_OmitsZeroBalances(t *testing.T) {
	owed := money.List{money.FromFloat(10, "EUR"), money.FromFloat(10, "USD")}
	payments := money.List{money.FromFloat(10, "EUR"), money.FromFloat(4, "USD")}

	s, err := Reconcile(owed, payments, usdRates())
	require.NoError(t, err)

	require.Len(t, s.Outstanding, 1)
	assert.Equal(t, "USD", s.Outstanding[0].Currency)
	assert.True(t, s.Outstanding[0].Amount.Equal(decimal.NewFromInt(6)))
}

func TestReconcile_ExactPaymentIsSufficient(t *testing.T) {
	owed := money.List{money.FromFloat(100, "EUR")}
	payments := money.List{money.FromFloat(110, "USD")}

	s, err := Reconcile(owed, payments, usdRates())
	require.NoError(t, err)

	assert.True(t, s.Sufficient())
	assert.Empty(t, s.Outstanding)
	assert.True(t, s.Remain.IsZero())
}

func TestReconcile_UnknownCurrencyIsValidationError(t *testing.T) {
	_, err := Reconcile(money.List{money.FromFloat(1, "USD")}, money.List{money.FromFloat(1, "GBP")}, usdRates())
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}
