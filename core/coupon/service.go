package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound          = core.NewNotFoundError("coupon not found")
	ErrCodeExists        = errors.New("a coupon with this code already exists")
	ErrUsageLimitReached = core.NewConflictError(ReasonLimitReached)
	ErrAlreadyUsed       = core.NewConflictError("coupon has been used; deactivate it instead")
	ErrForbidden         = core.NewPermissionError("you may not manage this coupon")

	errNegativeAmount  = errors.New("amount cannot be negative")
	errPercentageRange = errors.New("percentage must be between 0 and 100")
	errZeroValue       = errors.New("value must be greater than zero")
	errInvalidWindow   = errors.New("valid_to must be after valid_from")
)

type (
	Repository interface {
		// CreateCoupon returns ErrCodeExists when the code is taken.
		CreateCoupon(ctx context.Context, c Coupon, exec ...core.DBExecutor) (Coupon, error)
		UpdateCoupon(ctx context.Context, c Coupon, exec ...core.DBExecutor) (Coupon, error)
		GetCoupon(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Coupon, error)
		QueryCoupons(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Coupon, error)
		DeleteCoupon(ctx context.Context, id string, exec ...core.DBExecutor) error

		// IncrementUsage atomically bumps used_count unless max_uses is reached.
		// It reports whether the increment happened.
		IncrementUsage(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error)
		CreateUsage(ctx context.Context, u Usage, exec ...core.DBExecutor) (Usage, error)
		QueryUsages(ctx context.Context, couponID string, exec ...core.DBExecutor) ([]Usage, error)

		// DeactivateExpired deactivates active coupons whose valid_to is before now.
		DeactivateExpired(ctx context.Context, now time.Time, exec ...core.DBExecutor) (int, error)
	}

	// CourseGetter finds the course a coupon is scoped to or previewed against.
	CourseGetter interface {
		GetCourse(ctx context.Context, id string) (course.Course, error)
	}

	Service struct {
		tx      core.TxRunner
		repo    Repository
		courses CourseGetter
	}
)

func NewService(tx core.TxRunner, repo Repository, courses CourseGetter) *Service {
	return &Service{tx: tx, repo: repo, courses: courses}
}

// Create stores a new coupon. Admins may scope it to any course or none;
// instructors only to one of their courses.
func (svc *Service) Create(ctx context.Context, actor user.User, nc NewCoupon) (Coupon, error) {
	if !(actor.IsAdmin() || actor.IsInstructor()) {
		return Coupon{}, ErrForbidden
	}

	c := Coupon{
		ID:                uuid.New().String(),
		Code:              nc.Code,
		Type:              nc.Type,
		Value:             nc.Value.Round(moneyDecimalPlaces),
		MinPurchaseAmount: nc.MinPurchaseAmount.Round(moneyDecimalPlaces),
		IsActive:          true,
		CreatedBy:         actor.ID,
	}
	if nc.CourseID != "" {
		crs, err := svc.courses.GetCourse(ctx, nc.CourseID)
		if err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				return Coupon{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
			}
			return Coupon{}, errors.Wrap(err, "finding course")
		}
		if !crs.CanBeModifiedBy(actor) {
			return Coupon{}, ErrForbidden
		}
		c.CourseID = null.StringFrom(crs.ID)
	} else if !actor.IsAdmin() {
		return Coupon{}, ErrForbidden
	}

	if nc.MaxUses != nil {
		c.MaxUses = null.IntFrom(*nc.MaxUses)
	}
	if nc.ValidFrom != nil {
		c.ValidFrom = null.TimeFrom(nc.ValidFrom.UTC())
	}
	if nc.ValidTo != nil {
		c.ValidTo = null.TimeFrom(nc.ValidTo.UTC())
	}
	if nc.MaxDiscountAmount != nil {
		c.MaxDiscountAmount = decimal.NewNullDecimal(nc.MaxDiscountAmount.Round(moneyDecimalPlaces))
	}
	if nc.IsActive != nil {
		c.IsActive = *nc.IsActive
	}

	now := NowFunc().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	c, err := svc.repo.CreateCoupon(ctx, c)
	if err == ErrCodeExists {
		return Coupon{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
	}
	return c, err
}

func (svc *Service) Update(ctx context.Context, actor user.User, c Coupon, uc UpdateCoupon) (Coupon, error) {
	if !c.CanBeManagedBy(actor) {
		return Coupon{}, ErrForbidden
	}

	if uc.Value != nil {
		c.Value = uc.Value.Round(moneyDecimalPlaces)
	}
	if uc.MaxUses != nil {
		c.MaxUses = null.IntFrom(*uc.MaxUses)
	}
	if uc.ValidFrom != nil {
		c.ValidFrom = null.TimeFrom(uc.ValidFrom.UTC())
	}
	if uc.ValidTo != nil {
		c.ValidTo = null.TimeFrom(uc.ValidTo.UTC())
	}
	if uc.MinPurchaseAmount != nil {
		c.MinPurchaseAmount = uc.MinPurchaseAmount.Round(moneyDecimalPlaces)
	}
	if uc.MaxDiscountAmount != nil {
		c.MaxDiscountAmount = decimal.NewNullDecimal(uc.MaxDiscountAmount.Round(moneyDecimalPlaces))
	}
	if uc.IsActive != nil {
		c.IsActive = *uc.IsActive
	}
	c.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateCoupon(ctx, c)
}

func (svc *Service) Get(ctx context.Context, id string) (Coupon, error) {
	return svc.repo.GetCoupon(ctx, GetFilter{ID: id})
}

// GetByCode finds a coupon by its case-insensitive code.
func (svc *Service) GetByCode(ctx context.Context, code string, exec ...core.DBExecutor) (Coupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Coupon{}, ErrNotFound
	}
	return svc.repo.GetCoupon(ctx, GetFilter{Code: code}, exec...)
}

// Query lists coupons; instructors only see their own.
func (svc *Service) Query(ctx context.Context, actor user.User, filter *QueryFilter) ([]Coupon, error) {
	if !(actor.IsAdmin() || actor.IsInstructor()) {
		return nil, ErrForbidden
	}
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !actor.IsAdmin() {
		filter.CreatedBy = actor.ID
	}
	return svc.repo.QueryCoupons(ctx, filter)
}

// Delete removes an unused coupon.
func (svc *Service) Delete(ctx context.Context, actor user.User, c Coupon) error {
	if !c.CanBeManagedBy(actor) {
		return ErrForbidden
	}
	if c.UsedCount > 0 {
		return ErrAlreadyUsed
	}
	return svc.repo.DeleteCoupon(ctx, c.ID)
}

// Preview prices courseID with the coupon identified by code, without redeeming it.
func (svc *Service) Preview(ctx context.Context, code, courseID string) (Quote, error) {
	c, err := svc.GetByCode(ctx, code)
	if err != nil {
		return Quote{}, err
	}
	crs, err := svc.courses.GetCourse(ctx, courseID)
	if err != nil {
		return Quote{}, err
	}
	return Evaluate(c, crs.ID, crs.Price, NowFunc().UTC()), nil
}

// Redeem applies c to a purchase: it re-validates the coupon, increments its usage count
// and records the usage. It joins the caller's transaction when exec is provided.
func (svc *Service) Redeem(ctx context.Context, c Coupon, userID, courseID string, price decimal.Decimal, exec ...core.DBExecutor) (Usage, error) {
	now := NowFunc().UTC()
	q := Evaluate(c, courseID, price, now)
	if !q.Valid {
		err := errors.New(q.Reason)
		return Usage{}, core.NewValidationError(err, core.FieldError{Field: "coupon_code", Error: q.Reason})
	}

	var usage Usage
	redeem := func(exe core.DBExecutor) error {
		ok, err := svc.repo.IncrementUsage(ctx, c.ID, exe)
		if err != nil {
			return errors.Wrap(err, "incrementing coupon usage")
		}
		if !ok {
			return ErrUsageLimitReached
		}

		usage, err = svc.repo.CreateUsage(ctx, Usage{
			ID:             uuid.New().String(),
			CouponID:       c.ID,
			UserID:         userID,
			CourseID:       courseID,
			OriginalPrice:  q.OriginalPrice,
			DiscountAmount: q.DiscountAmount,
			FinalPrice:     q.FinalPrice,
			UsedAt:         now,
		}, exe)
		return errors.Wrap(err, "recording coupon usage")
	}

	var err error
	if len(exec) > 0 && exec[0] != nil {
		err = redeem(exec[0])
	} else {
		err = svc.tx.RunInTx(ctx, redeem)
	}
	if err != nil {
		return Usage{}, err
	}
	return usage, nil
}

func (svc *Service) QueryUsages(ctx context.Context, actor user.User, c Coupon) ([]Usage, error) {
	if !c.CanBeManagedBy(actor) {
		return nil, ErrForbidden
	}
	return svc.repo.QueryUsages(ctx, c.ID)
}

// ExpireStale deactivates the coupons whose validity window ended before now.
func (svc *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	return svc.repo.DeactivateExpired(ctx, now.UTC())
}
