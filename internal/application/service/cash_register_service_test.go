package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCashRegister(f *fixture) *CashRegisterService {
	return NewCashRegisterService(f.store, f.store.Businesses(), f.store.Areas(), f.store.Cycles(), f.store.CashOps(), time.Hour, f.now)
}

func TestCashRegister_RegisterManualOperation(t *testing.T) {
	f := newFixture(t)
	svc := newCashRegister(f)

	op, err := svc.Register(context.Background(), f.rc, &RegisterCashOperationInput{
		AreaID:       f.hall.ID,
		Operation:    enum.CashOperationManualWithdraw,
		Amount:       eur(40),
		Observations: "ice delivery",
	})
	require.NoError(t, err)

	assert.Equal(t, enum.CashTypeDebit, op.Type)
	assert.Equal(t, f.cycle.ID, op.EconomicCycleID)
	assert.Equal(t, f.rc.UserID, op.MadeByID)

	listed, err := svc.List(context.Background(), f.rc, &repository.CashOperationFilterParams{AreaID: &f.hall.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, op.ID, listed[0].ID)
}

func TestCashRegister_RegisterRejections(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   func(f *fixture) *RegisterCashOperationInput
		kind apperror.Kind
	}{
		{
			name: "sale operation",
			in: func(f *fixture) *RegisterCashOperationInput {
				return &RegisterCashOperationInput{AreaID: f.hall.ID, Operation: enum.CashOperationDepositSale, Amount: usd(1)}
			},
			kind: apperror.KindValidation,
		},
		{
			name: "zero amount",
			in: func(f *fixture) *RegisterCashOperationInput {
				return &RegisterCashOperationInput{AreaID: f.hall.ID, Operation: enum.CashOperationManualDeposit, Amount: usd(0)}
			},
			kind: apperror.KindValidation,
		},
		{
			name: "unknown currency",
			in: func(f *fixture) *RegisterCashOperationInput {
				return &RegisterCashOperationInput{AreaID: f.hall.ID, Operation: enum.CashOperationManualDeposit, Amount: money.FromFloat(1, "GBP")}
			},
			kind: apperror.KindValidation,
		},
		{
			name: "stock area",
			in: func(f *fixture) *RegisterCashOperationInput {
				return &RegisterCashOperationInput{AreaID: f.warehouse.ID, Operation: enum.CashOperationManualFund, Amount: usd(1)}
			},
			kind: apperror.KindValidation,
		},
		{
			name: "unknown area",
			in: func(f *fixture) *RegisterCashOperationInput {
				return &RegisterCashOperationInput{AreaID: uuid.New(), Operation: enum.CashOperationManualFund, Amount: usd(1)}
			},
			kind: apperror.KindNotFound,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := newCashRegister(f).Register(context.Background(), f.rc, tc.in(f))

			assert.True(t, apperror.IsKind(err, tc.kind), "got %v", err)
			assert.Empty(t, f.store.CashOperations(nil))
		})
	}
}

func TestCashRegister_RegisterRequiresActiveCycle(t *testing.T) {
	f := newFixture(t)
	closed := *f.cycle
	closed.IsActive = false
	f.store.Seed(&closed)

	_, err := newCashRegister(f).Register(context.Background(), f.rc, &RegisterCashOperationInput{
		AreaID: f.hall.ID, Operation: enum.CashOperationManualDeposit, Amount: usd(10),
	})

	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))
}

func TestCashRegister_Delete(t *testing.T) {
	f := newFixture(t)
	svc := newCashRegister(f)
	ctx := context.Background()

	op, err := svc.Register(ctx, f.rc, &RegisterCashOperationInput{AreaID: f.hall.ID, Operation: enum.CashOperationManualDeposit, Amount: usd(10)})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, f.rc, op.ID))
	assert.Empty(t, f.store.CashOperations(nil))

	err = svc.Delete(ctx, f.rc, op.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestCashRegister_DeleteRejections(t *testing.T) {
	f := newFixture(t)
	svc := newCashRegister(f)
	orderID := uuid.New()
	fromOrder := &entity.CashRegisterOperation{
		ID: uuid.New(), BusinessID: f.business.ID, AreaID: f.hall.ID, EconomicCycleID: f.cycle.ID, OrderID: &orderID,
		Operation: enum.CashOperationDepositSale, Amount: usd(5), CreatedAt: f.now(),
	}
	stale := &entity.CashRegisterOperation{
		ID: uuid.New(), BusinessID: f.business.ID, AreaID: f.hall.ID, EconomicCycleID: f.cycle.ID,
		Operation: enum.CashOperationManualDeposit, Amount: usd(5), CreatedAt: f.now().Add(-2 * time.Hour),
	}
	f.store.Seed(fromOrder, stale)

	err := svc.Delete(context.Background(), f.rc, fromOrder.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))

	err = svc.Delete(context.Background(), f.rc, stale.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindStateConflict))

	assert.Len(t, f.store.CashOperations(nil), 2)
}
