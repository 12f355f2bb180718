package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/logger"
	"github.com/sangkips/posflow-api/pkg/money"
	"go.uber.org/zap"
)

// DefaultCashOperationDeleteWindow is how long a manual cash operation can be deleted after creation
const DefaultCashOperationDeleteWindow = 24 * time.Hour

// CashRegisterService handles manual cash drawer operations
type CashRegisterService struct {
	txm          repository.TxManager
	businesses   repository.BusinessRepository
	areas        repository.AreaRepository
	cycles       repository.EconomicCycleRepository
	cash         repository.CashOperationRepository
	deleteWindow time.Duration
	now          func() time.Time
}

// NewCashRegisterService creates a new cash register service
func NewCashRegisterService(
	txm repository.TxManager,
	businesses repository.BusinessRepository,
	areas repository.AreaRepository,
	cycles repository.EconomicCycleRepository,
	cash repository.CashOperationRepository,
	deleteWindow time.Duration,
	now func() time.Time,
) *CashRegisterService {
	if deleteWindow <= 0 {
		deleteWindow = DefaultCashOperationDeleteWindow
	}
	if now == nil {
		now = time.Now
	}
	return &CashRegisterService{
		txm:          txm,
		businesses:   businesses,
		areas:        areas,
		cycles:       cycles,
		cash:         cash,
		deleteWindow: deleteWindow,
		now:          now,
	}
}

// RegisterCashOperationInput represents a manual cash drawer entry
type RegisterCashOperationInput struct {
	AreaID       uuid.UUID
	Operation    enum.CashOperation
	Amount       money.Money
	PaymentWay   enum.PaymentWay
	Observations string
}

// Register records a manual deposit, withdrawal or fund in the drawer of a sales area
func (s *CashRegisterService) Register(ctx context.Context, rc RequestContext, in *RegisterCashOperationInput) (*entity.CashRegisterOperation, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if in.AreaID == uuid.Nil {
		return nil, apperror.NewFieldError("area_id", "is required")
	}
	if !in.Operation.IsManual() {
		return nil, apperror.NewFieldError("operation", "only manual operations can be registered")
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.NewFieldError("amount", "must be greater than zero")
	}

	var op *entity.CashRegisterOperation
	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		business, err := s.businesses.GetByID(ctx, rc.BusinessID)
		if err != nil {
			return err
		}
		if business == nil {
			return apperror.NewNotFoundError("Business")
		}
		if !business.Rates().Has(in.Amount.Currency) {
			return apperror.NewFieldError("currency", "Currency "+money.NormalizeCode(in.Amount.Currency)+" is not available")
		}
		area, err := s.areas.GetByID(ctx, rc.BusinessID, in.AreaID)
		if err != nil {
			return err
		}
		if area == nil {
			return apperror.NewNotFoundError("Area")
		}
		if area.Type != enum.AreaTypeSale {
			return apperror.NewFieldError("area_id", "must be a sales area")
		}
		cycle, err := s.cycles.GetActive(ctx, rc.BusinessID)
		if err != nil {
			return err
		}
		if cycle == nil {
			return apperror.NewStateConflictError("There is no active economic cycle")
		}

		op = &entity.CashRegisterOperation{
			ID:              uuid.New(),
			BusinessID:      rc.BusinessID,
			AreaID:          area.ID,
			EconomicCycleID: cycle.ID,
			Operation:       in.Operation,
			Type:            in.Operation.Type(),
			Amount:          money.New(in.Amount.Amount, in.Amount.Currency),
			PaymentWay:      in.PaymentWay,
			Observations:    in.Observations,
			MadeByID:        rc.UserID,
			CreatedAt:       s.now(),
		}
		return s.cash.Create(ctx, *op)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("cash operation registered",
		zap.String("operation_id", op.ID.String()),
		zap.String("operation", op.Operation.String()),
		zap.String("amount", op.Amount.String()),
	)
	return op, nil
}

// Delete removes a manual cash operation inside the audit window
func (s *CashRegisterService) Delete(ctx context.Context, rc RequestContext, id uuid.UUID) error {
	if err := rc.Validate(); err != nil {
		return err
	}
	return s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		op, err := s.cash.GetByID(ctx, rc.BusinessID, id)
		if err != nil {
			return err
		}
		if op == nil {
			return apperror.NewNotFoundError("Cash operation")
		}
		if !op.Operation.IsManual() {
			return apperror.NewStateConflictError("Operations generated by orders cannot be deleted")
		}
		if s.now().Sub(op.CreatedAt) > s.deleteWindow {
			return apperror.NewStateConflictError("Cash operation is older than the deletion window")
		}
		return s.cash.Delete(ctx, op.ID)
	})
}

// List lists the cash operations of the business
func (s *CashRegisterService) List(ctx context.Context, rc RequestContext, params *repository.CashOperationFilterParams) ([]entity.CashRegisterOperation, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if params == nil {
		params = &repository.CashOperationFilterParams{}
	}
	return s.cash.List(ctx, rc.BusinessID, params)
}
