package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/event"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/logger"
	"go.uber.org/zap"
)

// Staging roles
const (
	roleOrder          = "order"
	roleSecondaryOrder = "order-secondary"
	roleRecords        = "records"
	roleCoupon         = "coupon"
)

// DefaultStagingTTL bounds the lifetime of an abandoned staged transaction
const DefaultStagingTTL = 5 * time.Minute

// StagingKey builds the key of a staged entry: business, role and transaction identity
func StagingKey(businessID uuid.UUID, role string, txID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:%s", businessID, role, txID)
}

// stage is the working area of one open transaction
type stage struct {
	store      repository.StagingStore
	ttl        time.Duration
	businessID uuid.UUID
	txID       uuid.UUID
	userID     uuid.UUID
	now        func() time.Time
	roles      map[string]struct{}
}

func openStage(ctx context.Context, store repository.StagingStore, ttl time.Duration, rc RequestContext, now func() time.Time) (*stage, error) {
	txID, ok := repository.TxIDFromContext(ctx)
	if !ok {
		return nil, apperror.NewInfrastructureError("No open transaction to stage order state", nil)
	}
	if ttl <= 0 {
		ttl = DefaultStagingTTL
	}
	st := &stage{
		store:      store,
		ttl:        ttl,
		businessID: rc.BusinessID,
		txID:       txID,
		userID:     rc.UserID,
		now:        now,
		roles:      make(map[string]struct{}),
	}
	if err := st.put(ctx, roleRecords, []event.OrderRecord{}); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *stage) key(role string) string {
	return StagingKey(st.businessID, role, st.txID)
}

func (st *stage) put(ctx context.Context, role string, value interface{}) error {
	if err := st.store.Put(ctx, st.key(role), value, st.ttl); err != nil {
		return apperror.NewInfrastructureError("Staging cache unavailable", err)
	}
	st.roles[role] = struct{}{}
	return nil
}

func (st *stage) get(ctx context.Context, role string, dst interface{}) error {
	err := st.store.Get(ctx, st.key(role), dst)
	if errors.Is(err, repository.ErrStagedEntryNotFound) {
		return apperror.NewInfrastructureError("Staged transaction state was lost, retry the request", err)
	}
	if err != nil {
		return apperror.NewInfrastructureError("Staging cache unavailable", err)
	}
	return nil
}

func (st *stage) putOrder(ctx context.Context, role string, order *entity.Order) error {
	return st.put(ctx, role, order)
}

func (st *stage) order(ctx context.Context, role string) (*entity.Order, error) {
	var order entity.Order
	if err := st.get(ctx, role, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// mutate reads the staged order, applies fn and stages the result
func (st *stage) mutate(ctx context.Context, role string, fn func(order *entity.Order) error) error {
	order, err := st.order(ctx, role)
	if err != nil {
		return err
	}
	if err := fn(order); err != nil {
		return err
	}
	return st.putOrder(ctx, role, order)
}

// record appends an audit entry for the RECORD_LOG job
func (st *stage) record(ctx context.Context, action, detail string) error {
	records, err := st.records(ctx)
	if err != nil {
		return err
	}
	records = append(records, event.OrderRecord{
		Action:    action,
		Detail:    detail,
		MadeByID:  st.userID,
		CreatedAt: st.now(),
	})
	return st.put(ctx, roleRecords, records)
}

func (st *stage) records(ctx context.Context) ([]event.OrderRecord, error) {
	var records []event.OrderRecord
	if err := st.get(ctx, roleRecords, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// clear drops every staged entry. Failures only leave entries to expire.
func (st *stage) clear(ctx context.Context) {
	keys := make([]string, 0, len(st.roles))
	for role := range st.roles {
		keys = append(keys, st.key(role))
	}
	if err := st.store.Delete(ctx, keys...); err != nil {
		logger.FromContext(ctx).Warn("failed to clear staged entries", zap.String("tx_id", st.txID.String()), zap.Error(err))
	}
}
