package coupon

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

type Type string

// Coupon types
const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
	TypeFree       Type = "free"
)

var Types = []Type{TypePercentage, TypeFixed, TypeFree}

type Coupon struct {
	ID                string              `json:"id"`
	Code              string              `json:"code"` // upper case
	Type              Type                `json:"type"`
	Value             decimal.Decimal     `json:"value"`
	MaxUses           null.Int            `json:"max_uses"`
	UsedCount         int                 `json:"used_count"`
	ValidFrom         null.Time           `json:"valid_from"`
	ValidTo           null.Time           `json:"valid_to"`
	CourseID          null.String         `json:"course_id"` // null: all courses
	MinPurchaseAmount decimal.Decimal     `json:"min_purchase_amount"`
	MaxDiscountAmount decimal.NullDecimal `json:"max_discount_amount"`
	IsActive          bool                `json:"is_active"`
	CreatedBy         string              `json:"created_by"`
	CreatedAt         time.Time           `json:"created_at"` // UTC
	UpdatedAt         time.Time           `json:"updated_at"` // UTC
}

// CanBeManagedBy reports whether usr is an admin or the instructor who created the coupon.
func (c Coupon) CanBeManagedBy(usr user.User) bool {
	return usr.IsAdmin() || (usr.IsInstructor() && usr.ID != "" && usr.ID == c.CreatedBy)
}

// Usage is one redemption. Usages are never modified once stored.
type Usage struct {
	ID             string          `json:"id"`
	CouponID       string          `json:"coupon_id"`
	UserID         string          `json:"user_id"`
	CourseID       string          `json:"course_id"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
	UsedAt         time.Time       `json:"used_at"` // UTC
}

// Validation tells whether a coupon may be used; Reason explains a refusal.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Quote is the price of a course once a coupon is applied.
type Quote struct {
	Validation
	Code           string          `json:"code"`
	OriginalPrice  decimal.Decimal `json:"original_price"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}

// NewCoupon contains information needed to create a new Coupon.
type NewCoupon struct {
	Code              string           `json:"code" validate:"required,min=3,max=32,alphanum_"`
	Type              Type             `json:"type" validate:"required,coupontype"`
	Value             decimal.Decimal  `json:"value"`
	MaxUses           *int             `json:"max_uses" validate:"omitempty,min=1"`
	ValidFrom         *time.Time       `json:"valid_from"`
	ValidTo           *time.Time       `json:"valid_to"`
	CourseID          string           `json:"course_id"`
	MinPurchaseAmount decimal.Decimal  `json:"min_purchase_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	IsActive          *bool            `json:"is_active"`
}

func (nc *NewCoupon) Validate(validate *validator.Validate) error {
	nc.Code = NormalizeCode(nc.Code)
	nc.CourseID = core.CleanString(nc.CourseID)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return validateAmounts(nc.Type, nc.Value, nc.MinPurchaseAmount, nc.MaxDiscountAmount, nc.ValidFrom, nc.ValidTo)
}

// UpdateCoupon defines what information may be provided to modify an existing Coupon.
// Code and type cannot change.
type UpdateCoupon struct {
	Value             *decimal.Decimal `json:"value"`
	MaxUses           *int             `json:"max_uses" validate:"omitempty,min=1"`
	ValidFrom         *time.Time       `json:"valid_from"`
	ValidTo           *time.Time       `json:"valid_to"`
	MinPurchaseAmount *decimal.Decimal `json:"min_purchase_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"max_discount_amount"`
	IsActive          *bool            `json:"is_active"`
}

func (uc *UpdateCoupon) Validate(orig Coupon, validate *validator.Validate) error {
	if err := validate.Struct(uc); err != nil {
		return err
	}

	value := orig.Value
	if uc.Value != nil {
		value = *uc.Value
	}
	minPurchase := orig.MinPurchaseAmount
	if uc.MinPurchaseAmount != nil {
		minPurchase = *uc.MinPurchaseAmount
	}
	from, to := uc.ValidFrom, uc.ValidTo
	if from == nil && orig.ValidFrom.Valid {
		from = &orig.ValidFrom.Time
	}
	if to == nil && orig.ValidTo.Valid {
		to = &orig.ValidTo.Time
	}
	return validateAmounts(orig.Type, value, minPurchase, uc.MaxDiscountAmount, from, to)
}

func validateAmounts(typ Type, value, minPurchase decimal.Decimal, maxDiscount *decimal.Decimal, from, to *time.Time) error {
	fieldErr := func(field string, err error) error {
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}

	switch {
	case value.IsNegative():
		return fieldErr("value", errNegativeAmount)
	case typ == TypePercentage && value.GreaterThan(decimal.NewFromInt(100)):
		return fieldErr("value", errPercentageRange)
	case typ != TypeFree && value.IsZero():
		return fieldErr("value", errZeroValue)
	case minPurchase.IsNegative():
		return fieldErr("min_purchase_amount", errNegativeAmount)
	case maxDiscount != nil && maxDiscount.IsNegative():
		return fieldErr("max_discount_amount", errNegativeAmount)
	case from != nil && to != nil && to.Before(*from):
		return fieldErr("valid_to", errInvalidWindow)
	}
	return nil
}

type QueryFilter struct {
	Search    string `query:"search"`
	CourseID  string `query:"course_id"`
	IsActive  *bool  `query:"is_active"`
	CreatedBy string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CourseID = core.CleanString(qf.CourseID)
}

// GetFilter selects a single coupon by ID or code.
type GetFilter struct {
	ID   string
	Code string
}
