package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Refusal reasons
const (
	ReasonInactive     = "Coupon is inactive"
	ReasonLimitReached = "Coupon usage limit reached"
	ReasonNotYetActive = "Coupon is not yet active"
	ReasonExpired      = "Coupon has expired"
	ReasonWrongCourse  = "Coupon is not valid for this course"
	ReasonMinNotMet    = "Minimum purchase amount not met"
)

const moneyDecimalPlaces = 2

var hundred = decimal.NewFromInt(100)

// NormalizeCode returns the stored form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks c's state at now. The first failing rule wins:
// inactive, usage limit, not yet active, expired.
func Validate(c Coupon, now time.Time) Validation {
	switch {
	case !c.IsActive:
		return Validation{Reason: ReasonInactive}
	case c.MaxUses.Valid && c.UsedCount >= c.MaxUses.Int:
		return Validation{Reason: ReasonLimitReached}
	case c.ValidFrom.Valid && now.Before(c.ValidFrom.Time):
		return Validation{Reason: ReasonNotYetActive}
	case c.ValidTo.Valid && now.After(c.ValidTo.Time):
		return Validation{Reason: ReasonExpired}
	}
	return Validation{Valid: true}
}

// CheckApplicable checks c against the purchase: course scope, then minimum amount.
func CheckApplicable(c Coupon, courseID string, price decimal.Decimal) Validation {
	if c.CourseID.Valid && c.CourseID.String != courseID {
		return Validation{Reason: ReasonWrongCourse}
	}
	if price.LessThan(c.MinPurchaseAmount) {
		return Validation{Reason: ReasonMinNotMet}
	}
	return Validation{Valid: true}
}

// CalculateDiscount returns the amount c takes off originalPrice, always within [0, originalPrice].
func CalculateDiscount(c Coupon, originalPrice decimal.Decimal) decimal.Decimal {
	if !originalPrice.IsPositive() {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.Type {
	case TypePercentage:
		discount = originalPrice.Mul(c.Value).Div(hundred).Round(moneyDecimalPlaces)
		if c.MaxDiscountAmount.Valid && discount.GreaterThan(c.MaxDiscountAmount.Decimal) {
			discount = c.MaxDiscountAmount.Decimal
		}
	case TypeFixed:
		discount = c.Value
	case TypeFree:
		discount = originalPrice
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(discount, originalPrice)
}

// Evaluate validates c for the purchase and prices it. Refused coupons leave the price unchanged.
func Evaluate(c Coupon, courseID string, price decimal.Decimal, now time.Time) Quote {
	q := Quote{
		Code:           c.Code,
		OriginalPrice:  price,
		DiscountAmount: decimal.Zero,
		FinalPrice:     price,
	}

	if q.Validation = Validate(c, now); !q.Valid {
		return q
	}
	if q.Validation = CheckApplicable(c, courseID, price); !q.Valid {
		return q
	}

	q.DiscountAmount = CalculateDiscount(c, price)
	q.FinalPrice = price.Sub(q.DiscountAmount)
	return q
}
