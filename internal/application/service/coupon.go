package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/internal/domain/repository"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/shopspring/decimal"
)

// CouponResult is the outcome of applying coupons to a cart
type CouponResult struct {
	Discount  money.List           `json:"discount"`
	Applied   []entity.OrderCoupon `json:"applied"`
	CouponIDs []uuid.UUID          `json:"coupon_ids"`
}

// CouponProcessor validates coupons against a cart and books their usage
type CouponProcessor struct {
	coupons repository.CouponRepository
	now     func() time.Time
}

// NewCouponProcessor creates a new coupon processor
func NewCouponProcessor(coupons repository.CouponRepository, now func() time.Time) *CouponProcessor {
	if now == nil {
		now = time.Now
	}
	return &CouponProcessor{coupons: coupons, now: now}
}

// NormalizeCouponCodes trims, upper-cases and deduplicates coupon codes
func NormalizeCouponCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Apply locks the coupons, validates them against the lines and increments their usage.
// The discount of every coupon is expressed per currency of the discounted lines.
func (p *CouponProcessor) Apply(ctx context.Context, rc RequestContext, codes []string, lines []entity.SelledProduct, rates money.Rates) (*CouponResult, error) {
	codes = NormalizeCouponCodes(codes)
	if len(codes) == 0 {
		return &CouponResult{}, nil
	}

	coupons, err := p.coupons.GetByCodesForUpdate(ctx, rc.BusinessID, codes)
	if err != nil {
		return nil, err
	}
	found := make(map[string]*entity.Coupon, len(coupons))
	for i := range coupons {
		found[strings.ToUpper(coupons[i].Code)] = &coupons[i]
	}
	for _, code := range codes {
		if _, ok := found[code]; !ok {
			return nil, apperror.NewNotFoundError("Coupon " + code)
		}
	}

	subtotal := lineSubtotals(lines, func(entity.SelledProduct) bool { return true })
	subtotalInMain, err := rates.SumInMain(subtotal)
	if err != nil {
		return nil, apperror.NewFieldError("currency", err.Error())
	}

	now := p.now()
	result := &CouponResult{}
	for _, code := range codes {
		coupon := found[code]
		if coupon.IsExpired(now) {
			return nil, apperror.NewFieldError("coupons", "Coupon "+code+" has expired")
		}
		if coupon.IsExhausted() {
			return nil, apperror.NewFieldError("coupons", "Coupon "+code+" reached its usage limit")
		}
		if coupon.IndividualUse && len(codes) > 1 {
			return nil, apperror.NewFieldError("coupons", "Coupon "+code+" cannot be combined with other coupons")
		}
		if coupon.MinimumSpend.IsPositive() && subtotalInMain.Amount.LessThan(coupon.MinimumSpend) {
			return nil, apperror.NewFieldError("coupons", "Coupon "+code+" requires a minimum spend of "+
				money.New(coupon.MinimumSpend, rates.Main()).String())
		}

		eligible := lineSubtotals(lines, func(line entity.SelledProduct) bool { return coupon.AppliesTo(line.ProductID) })
		if len(eligible) == 0 {
			return nil, apperror.NewFieldError("coupons", "Coupon "+code+" does not apply to any product of the order")
		}

		discount, err := couponDiscount(coupon, eligible, rates)
		if err != nil {
			return nil, err
		}

		if err := p.coupons.UpdateUsage(ctx, coupon.ID, coupon.UsageCount+1); err != nil {
			return nil, err
		}
		coupon.UsageCount++

		result.Discount = result.Discount.Add(discount...)
		result.Applied = append(result.Applied, entity.OrderCoupon{
			ID:       uuid.New(),
			CouponID: coupon.ID,
			Code:     coupon.Code,
			Discount: discount,
		})
		result.CouponIDs = append(result.CouponIDs, coupon.ID)
	}
	return result, nil
}

// Release gives back one usage of each coupon, never going below zero
func (p *CouponProcessor) Release(ctx context.Context, rc RequestContext, couponIDs []uuid.UUID) error {
	if len(couponIDs) == 0 {
		return nil
	}
	coupons, err := p.coupons.GetByIDsForUpdate(ctx, rc.BusinessID, couponIDs)
	if err != nil {
		return err
	}
	for _, coupon := range coupons {
		count := coupon.UsageCount - 1
		if count < 0 {
			count = 0
		}
		if err := p.coupons.UpdateUsage(ctx, coupon.ID, count); err != nil {
			return err
		}
	}
	return nil
}

func couponDiscount(coupon *entity.Coupon, eligible money.List, rates money.Rates) (money.List, error) {
	switch coupon.DiscountType {
	case enum.DiscountTypePercent:
		out := make(money.List, 0, len(eligible))
		for _, m := range eligible {
			out = append(out, m.Percent(coupon.Amount))
		}
		return out.Normalize(), nil
	case enum.DiscountTypeFixed:
		return allocateFixedDiscount(coupon.Amount, eligible, rates)
	default:
		return nil, apperror.NewFieldError("coupons", "Coupon "+coupon.Code+" has an unknown discount type")
	}
}

// allocateFixedDiscount spreads a main-currency amount over the eligible currencies,
// main currency first and then by code, never exceeding the eligible amount of a currency
func allocateFixedDiscount(amount decimal.Decimal, eligible money.List, rates money.Rates) (money.List, error) {
	codes := eligible.Currencies()
	sort.SliceStable(codes, func(i, j int) bool {
		return codes[i] == rates.Main() && codes[j] != rates.Main()
	})

	left := money.Round(amount)
	out := make(money.List, 0, len(codes))
	for _, code := range codes {
		if !left.IsPositive() {
			break
		}
		available := eligible.Get(code)
		inMain, err := rates.ToMain(money.New(available, code))
		if err != nil {
			return nil, apperror.NewFieldError("currency", err.Error())
		}
		if left.GreaterThanOrEqual(inMain.Amount) {
			out = append(out, money.New(available, code))
			left = left.Sub(inMain.Amount)
			continue
		}
		part, err := rates.FromMain(left, code)
		if err != nil {
			return nil, apperror.NewFieldError("currency", err.Error())
		}
		if part.Amount.GreaterThan(available) {
			part = money.New(available, code)
		}
		out = append(out, part)
		left = decimal.Zero
	}
	return out.Normalize(), nil
}

// lineSubtotals sums line totals and addons per currency for the lines accepted by keep
func lineSubtotals(lines []entity.SelledProduct, keep func(entity.SelledProduct) bool) money.List {
	var out money.List
	for _, line := range lines {
		if !keep(line) {
			continue
		}
		out = append(out, line.UnitPrice.Mul(line.Quantity))
		for _, addon := range line.Addons {
			out = append(out, addon.Price.Mul(addon.Quantity))
		}
	}
	return out.Normalize()
}
