package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/posflow-api/internal/domain/entity"
	"github.com/sangkips/posflow-api/internal/domain/enum"
	"github.com/sangkips/posflow-api/pkg/apperror"
	"github.com/sangkips/posflow-api/pkg/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCouponCodes(t *testing.T) {
	assert.Equal(t, []string{"A10", "WELCOME"}, NormalizeCouponCodes([]string{" welcome", "a10", "WELCOME ", ""}))
	assert.Empty(t, NormalizeCouponCodes(nil))
}

func couponLines(f *fixture) []entity.SelledProduct {
	return []entity.SelledProduct{
		{ID: uuid.New(), ProductID: f.tv.ID, Quantity: dec("1"), UnitPrice: usd(10)},
		{ID: uuid.New(), ProductID: f.beer.ID, Quantity: dec("2"), UnitPrice: eur(10)},
	}
}

func TestCouponProcessor_PercentDiscountPerCurrency(t *testing.T) {
	f := newFixture(t)
	coupon := seedCoupon(f, "TENOFF")
	processor := NewCouponProcessor(f.store.CouponRepo(), f.now)

	result, err := processor.Apply(context.Background(), f.rc, []string{"tenoff"}, couponLines(f), usdRates())
	require.NoError(t, err)

	assert.True(t, result.Discount.Equal(money.List{usd(1), eur(2)}), result.Discount)
	require.Len(t, result.Applied, 1)
	assert.Equal(t, coupon.ID, result.Applied[0].CouponID)
	assert.Equal(t, []uuid.UUID{coupon.ID}, result.CouponIDs)
	assert.Equal(t, 1, f.store.Coupon(coupon.ID).UsageCount)
}

func TestCouponProcessor_FixedDiscountStartsWithMainCurrency(t *testing.T) {
	for _, tc := range []struct {
		name   string
		amount string
		want   money.List
	}{
		{name: "covered by main", amount: "6", want: money.List{usd(6)}},
		{name: "spills into other currencies", amount: "15", want: money.List{usd(10), eur(4.55)}},
		{name: "capped at the eligible amount", amount: "500", want: money.List{usd(10), eur(20)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.store.Seed(&entity.Coupon{ID: uuid.New(), BusinessID: f.business.ID, Code: "FLAT", DiscountType: enum.DiscountTypeFixed, Amount: dec(tc.amount)})
			processor := NewCouponProcessor(f.store.CouponRepo(), f.now)

			result, err := processor.Apply(context.Background(), f.rc, []string{"FLAT"}, couponLines(f), usdRates())
			require.NoError(t, err)
			assert.True(t, result.Discount.Equal(tc.want), result.Discount)
		})
	}
}

func TestCouponProcessor_OnlyDiscountsAllowedProducts(t *testing.T) {
	f := newFixture(t)
	f.store.Seed(&entity.Coupon{
		ID: uuid.New(), BusinessID: f.business.ID, Code: "BEER", DiscountType: enum.DiscountTypePercent,
		Amount: dec("50"), AllowedProductIDs: []uuid.UUID{f.beer.ID},
	})
	processor := NewCouponProcessor(f.store.CouponRepo(), f.now)

	result, err := processor.Apply(context.Background(), f.rc, []string{"BEER"}, couponLines(f), usdRates())
	require.NoError(t, err)

	assert.True(t, result.Discount.Equal(money.List{eur(10)}), result.Discount)
}

func TestCouponProcessor_Rejections(t *testing.T) {
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		name   string
		coupon entity.Coupon
		codes  []string
		kind   apperror.Kind
	}{
		{name: "unknown code", codes: []string{"NOPE"}, kind: apperror.KindNotFound},
		{name: "expired", coupon: entity.Coupon{Code: "OLD", ExpirationAt: &past}, codes: []string{"OLD"}, kind: apperror.KindValidation},
		{name: "exhausted", coupon: entity.Coupon{Code: "USED", UsageLimit: 2, UsageCount: 2}, codes: []string{"USED"}, kind: apperror.KindValidation},
		{name: "minimum spend", coupon: entity.Coupon{Code: "BIG", MinimumSpend: dec("100")}, codes: []string{"BIG"}, kind: apperror.KindValidation},
		{name: "individual use", coupon: entity.Coupon{Code: "SOLO", IndividualUse: true}, codes: []string{"SOLO", "TENOFF"}, kind: apperror.KindValidation},
		{name: "no eligible product", coupon: entity.Coupon{Code: "OTHER", AllowedProductIDs: []uuid.UUID{uuid.New()}}, codes: []string{"OTHER"}, kind: apperror.KindValidation},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			tenoff := seedCoupon(f, "TENOFF")
			if tc.coupon.Code != "" {
				c := tc.coupon
				c.ID = uuid.New()
				c.BusinessID = f.business.ID
				c.Amount = dec("10")
				f.store.Seed(&c)
			}
			processor := NewCouponProcessor(f.store.CouponRepo(), f.now)

			_, err := processor.Apply(context.Background(), f.rc, tc.codes, couponLines(f), usdRates())

			assert.True(t, apperror.IsKind(err, tc.kind), "got %v", err)
			assert.Equal(t, 0, f.store.Coupon(tenoff.ID).UsageCount)
		})
	}
}

func TestCouponProcessor_ReleaseNeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	used := &entity.Coupon{ID: uuid.New(), BusinessID: f.business.ID, Code: "USED", Amount: dec("5"), UsageCount: 1}
	fresh := seedCoupon(f, "FRESH")
	f.store.Seed(used)
	processor := NewCouponProcessor(f.store.CouponRepo(), f.now)

	require.NoError(t, processor.Release(context.Background(), f.rc, []uuid.UUID{used.ID, fresh.ID}))

	assert.Equal(t, 0, f.store.Coupon(used.ID).UsageCount)
	assert.Equal(t, 0, f.store.Coupon(fresh.ID).UsageCount)
}
