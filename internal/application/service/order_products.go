package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/event"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

// RemoveLineInput removes quantity from a line. A zero quantity, or one at least as large
// as the line, removes the whole line.
type RemoveLineInput struct {
	SelledProductID uuid.UUID
	Quantity        decimal.Decimal
}

// AddRemoveProductsInput represents the products to add to and remove from an order
type AddRemoveProductsInput struct {
	Added   []LineInput
	Deleted []RemoveLineInput
}

// Validate checks the input
func (in *AddRemoveProductsInput) Validate() error {
	if len(in.Added) == 0 && len(in.Deleted) == 0 {
		return apperror.NewValidationError("Nothing to add or remove")
	}
	for _, del := range in.Deleted {
		if del.SelledProductID == uuid.Nil {
			return apperror.NewFieldError("deleted", "selled product id is required")
		}
		if del.Quantity.IsNegative() {
			return apperror.NewFieldError("deleted", "quantity cannot be negative")
		}
	}
	return validateLines("added", in.Added)
}

// AddRemoveProducts changes the lines of an open order of the active economic cycle.
// Removals are applied first and give their stock back; additions take stock and may
// merge into an identical line.
func (s *OrderService) AddRemoveProducts(ctx context.Context, rc RequestContext, orderID uuid.UUID, in *AddRemoveProductsInput) (*entity.Order, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ac, err := s.run(ctx, rc, func(ctx context.Context, st *stage) (*afterCommit, error) {
		business, err := s.loadBusiness(ctx, rc)
		if err != nil {
			return nil, err
		}
		order, err := s.lockOrder(ctx, rc, orderID)
		if err != nil {
			return nil, err
		}
		if err := requireMutable(order); err != nil {
			return nil, err
		}
		if _, err := s.requireCurrentCycle(ctx, rc, order); err != nil {
			return nil, err
		}

		if err := st.putOrder(ctx, roleOrder, order); err != nil {
			return nil, err
		}
		ac := newAfterCommit(order, event.OrderUpdated, order.Status)

		if len(in.Deleted) > 0 {
			if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
				returned, err := removeLines(o, in.Deleted)
				if err != nil {
					return err
				}
				changed, err := s.settleTickets(ctx, returned, o.SelledProducts)
				if err != nil {
					return err
				}
				ac.ticketIDs = append(ac.ticketIDs, changed...)
				return s.restoreLines(ctx, rc, o, returned, true, enum.StockOperationReturn, ac)
			}); err != nil {
				return nil, err
			}
			if err := st.record(ctx, "PRODUCTS_REMOVED", ""); err != nil {
				return nil, err
			}
		}

		if len(in.Added) > 0 {
			area, err := s.loadSaleArea(ctx, rc, order.AreaID)
			if err != nil {
				return nil, err
			}
			lines, err := s.buildLines(ctx, rc, area, in.Added)
			if err != nil {
				return nil, err
			}
			if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
				if err := s.substractLines(ctx, rc, business, o, lines, enum.StockOperationSale, ac); err != nil {
					return err
				}
				addedProduction := false
				for _, line := range lines {
					line.OrderID = o.ID
					if line.Type.RequiresProduction() {
						addedProduction = true
					}
					if merged := mergeLine(o, line); !merged {
						o.SelledProducts = append(o.SelledProducts, line)
					}
				}
				opened, err := s.openTickets(ctx, rc, o)
				if err != nil {
					return err
				}
				ac.ticketIDs = append(ac.ticketIDs, opened...)
				switch {
				case addedProduction && (o.Status == enum.OrderStatusCreated || o.Status == enum.OrderStatusCompleted):
					o.Status = enum.OrderStatusInProcess
				case o.Status == enum.OrderStatusCreated:
					o.Status = enum.OrderStatusCompleted
				}
				return nil
			}); err != nil {
				return nil, err
			}
			if err := st.record(ctx, "PRODUCTS_ADDED", ""); err != nil {
				return nil, err
			}
		}

		if err := st.mutate(ctx, roleOrder, func(o *entity.Order) error {
			return priceOrder(o, business.Rates())
		}); err != nil {
			return nil, err
		}

		final, err := st.order(ctx, roleOrder)
		if err != nil {
			return nil, err
		}
		if err := s.orders.Save(ctx, final); err != nil {
			return nil, err
		}
		ac.order = final
		return ac, nil
	})
	if err != nil {
		return nil, err
	}
	return ac.order, nil
}

// removeLines drops quantities from the order and returns the removed portions
func removeLines(order *entity.Order, deleted []RemoveLineInput) ([]entity.SelledProduct, error) {
	var removed []entity.SelledProduct
	for _, del := range deleted {
		line := order.Line(del.SelledProductID)
		if line == nil {
			return nil, apperror.NewNotFoundError("Order line " + del.SelledProductID.String())
		}
		if del.Quantity.IsZero() || del.Quantity.GreaterThanOrEqual(line.Quantity) {
			removed = append(removed, *line)
			order.SelledProducts = withoutLine(order.SelledProducts, line.ID)
			continue
		}
		if len(line.Addons) > 0 {
			return nil, apperror.NewFieldError("deleted", "a line with addons can only be removed entirely")
		}
		part := *line
		part.Quantity = del.Quantity
		removed = append(removed, part)
		line.Quantity = line.Quantity.Sub(del.Quantity)
	}
	return removed, nil
}

func withoutLine(lines []entity.SelledProduct, id uuid.UUID) []entity.SelledProduct {
	out := lines[:0]
	for _, line := range lines {
		if line.ID != id {
			out = append(out, line)
		}
	}
	return out
}

// mergeLine adds the quantity of line to an identical existing line. Lines with addons or
// prepared in a production area are never merged.
func mergeLine(order *entity.Order, line entity.SelledProduct) bool {
	if len(line.Addons) > 0 || line.Type.RequiresProduction() {
		return false
	}
	for i := range order.SelledProducts {
		existing := &order.SelledProducts[i]
		if existing.ProductID != line.ProductID ||
			existing.VariationKey() != line.VariationKey() ||
			len(existing.Addons) > 0 ||
			existing.Type.RequiresProduction() ||
			existing.UnitPrice.Currency != line.UnitPrice.Currency ||
			!existing.UnitPrice.Amount.Equal(line.UnitPrice.Amount) ||
			!sameArea(existing.StockAreaID, line.StockAreaID) {
			continue
		}
		existing.Quantity = existing.Quantity.Add(line.Quantity)
		return true
	}
	return false
}

func sameArea(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
