package repository

import (
	"context"

	"github.com/google/uuid"
)

// TxManager runs a unit of work inside one relational transaction.
// Any error returned by fn rolls the transaction back.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type txIDKey struct{}

// WithTxID tags the context with the identity of the open transaction
func WithTxID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, txIDKey{}, id)
}

// TxIDFromContext returns the identity of the open transaction, if any
func TxIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(txIDKey{}).(uuid.UUID)
	return id, ok && id != uuid.Nil
}
