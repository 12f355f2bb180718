package service

import (
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// priceOrder recomputes line totals, the price vector, the amount to pay and the cost snapshot.
//
// For every currency of the price vector the discount percent is applied first, then the
// commission on the discounted amount, then the coupon discount (never below zero).
// Shipping and tip are added on top. A house-costed order pays its cost.
func priceOrder(order *entity.Order, rates money.Rates) error {
	for i := range order.SelledProducts {
		line := &order.SelledProducts[i]
		line.TotalPrice = line.UnitPrice.Mul(line.Quantity)
	}
	order.Prices = lineSubtotals(order.SelledProducts, func(entity.SelledProduct) bool { return true })

	for _, m := range order.Prices {
		if !rates.Has(m.Currency) {
			return apperror.NewFieldError("currency", "Currency "+m.Currency+" is not available")
		}
	}

	cost := decimal.Zero
	for _, line := range order.SelledProducts {
		if !line.UnitCost.IsSet() {
			continue
		}
		inMain, err := rates.ToMain(line.UnitCost.Mul(line.Quantity))
		if err != nil {
			return apperror.NewFieldError("currency", err.Error())
		}
		cost = cost.Add(inMain.Amount)
	}
	order.TotalCost = money.New(cost, rates.Main())

	if order.HouseCosted {
		order.TotalToPay = money.Of(order.TotalCost)
		return nil
	}

	toPay := make(money.List, 0, len(order.Prices)+2)
	for _, m := range order.Prices {
		amount := m.Amount.Sub(m.Amount.Mul(order.DiscountPercent).Div(hundred))
		amount = amount.Add(amount.Mul(order.CommissionPercent).Div(hundred))
		amount = money.Round(amount).Sub(order.CouponDiscount.Get(m.Currency))
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		toPay = append(toPay, money.New(amount, m.Currency))
	}
	for _, extra := range []money.Money{order.Shipping, order.Tip} {
		if !extra.IsSet() {
			continue
		}
		if !rates.Has(extra.Currency) {
			return apperror.NewFieldError("currency", "Currency "+extra.Currency+" is not available")
		}
		toPay = append(toPay, extra)
	}
	order.TotalToPay = toPay.Normalize()
	return nil
}

func validatePercent(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return apperror.NewFieldError(field, "must be between 0 and 100")
	}
	return nil
}
