package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/logger"
	"go.uber.org/zap"
)

// EconomicCycleService handles economic cycle operations
type EconomicCycleService struct {
	txm    repository.TxManager
	cycles repository.EconomicCycleRepository
	now    func() time.Time
}

// NewEconomicCycleService creates a new economic cycle service
func NewEconomicCycleService(txm repository.TxManager, cycles repository.EconomicCycleRepository, now func() time.Time) *EconomicCycleService {
	if now == nil {
		now = time.Now
	}
	return &EconomicCycleService{txm: txm, cycles: cycles, now: now}
}

// GetActive returns the active economic cycle
func (s *EconomicCycleService) GetActive(ctx context.Context, rc RequestContext) (*entity.EconomicCycle, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	cycle, err := s.cycles.GetActive(ctx, rc.BusinessID)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, apperror.NewNotFoundError("Active economic cycle")
	}
	return cycle, nil
}

// Open starts a new economic cycle. Only one can be active per business.
func (s *EconomicCycleService) Open(ctx context.Context, rc RequestContext) (*entity.EconomicCycle, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	var cycle *entity.EconomicCycle
	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		active, err := s.cycles.GetActive(ctx, rc.BusinessID)
		if err != nil {
			return err
		}
		if active != nil {
			return apperror.NewStateConflictError("An economic cycle is already open")
		}
		cycle = &entity.EconomicCycle{
			ID:         uuid.New(),
			BusinessID: rc.BusinessID,
			OpenDate:   s.now(),
			IsActive:   true,
			OpenedByID: rc.UserID,
		}
		return s.cycles.Create(ctx, cycle)
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("economic cycle opened", zap.String("cycle_id", cycle.ID.String()))
	return cycle, nil
}

// Close closes the active economic cycle
func (s *EconomicCycleService) Close(ctx context.Context, rc RequestContext) (*entity.EconomicCycle, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	var cycle *entity.EconomicCycle
	err := s.txm.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		cycle, err = s.cycles.GetActive(ctx, rc.BusinessID)
		if err != nil {
			return err
		}
		if cycle == nil {
			return apperror.NewStateConflictError("There is no active economic cycle")
		}
		now := s.now()
		closedBy := rc.UserID
		cycle.IsActive = false
		cycle.CloseDate = &now
		cycle.ClosedByID = &closedBy
		return s.cycles.Update(ctx, cycle)
	})
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("economic cycle closed", zap.String("cycle_id", cycle.ID.String()))
	return cycle, nil
}
