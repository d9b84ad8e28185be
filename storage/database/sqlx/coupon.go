package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/coupon"
)

const couponColumns = `id, code, type, value, max_uses, used_count, valid_from, valid_to, course_id,
	min_purchase_amount, max_discount_amount, is_active, created_by, created_at, updated_at`

const couponUsageColumns = `id, coupon_id, user_id, course_id, original_price, discount_amount, final_price, used_at`

type couponRow struct {
	ID                string              `db:"id"`
	Code              string              `db:"code"`
	Type              string              `db:"type"`
	Value             decimal.Decimal     `db:"value"`
	MaxUses           null.Int            `db:"max_uses"`
	UsedCount         int                 `db:"used_count"`
	ValidFrom         null.Time           `db:"valid_from"`
	ValidTo           null.Time           `db:"valid_to"`
	CourseID          null.String         `db:"course_id"`
	MinPurchaseAmount decimal.Decimal     `db:"min_purchase_amount"`
	MaxDiscountAmount decimal.NullDecimal `db:"max_discount_amount"`
	IsActive          bool                `db:"is_active"`
	CreatedBy         null.String         `db:"created_by"`
	CreatedAt         time.Time           `db:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at"`
}

func toCouponRow(c coupon.Coupon) couponRow {
	return couponRow{
		ID:                c.ID,
		Code:              c.Code,
		Type:              string(c.Type),
		Value:             c.Value,
		MaxUses:           c.MaxUses,
		UsedCount:         c.UsedCount,
		ValidFrom:         c.ValidFrom,
		ValidTo:           c.ValidTo,
		CourseID:          c.CourseID,
		MinPurchaseAmount: c.MinPurchaseAmount,
		MaxDiscountAmount: c.MaxDiscountAmount,
		IsActive:          c.IsActive,
		CreatedBy:         null.NewString(c.CreatedBy, c.CreatedBy != ""),
		CreatedAt:         c.CreatedAt.UTC(),
		UpdatedAt:         c.UpdatedAt.UTC(),
	}
}

func (r couponRow) toCoupon() coupon.Coupon {
	return coupon.Coupon{
		ID:                r.ID,
		Code:              r.Code,
		Type:              coupon.Type(r.Type),
		Value:             r.Value,
		MaxUses:           r.MaxUses,
		UsedCount:         r.UsedCount,
		ValidFrom:         r.ValidFrom,
		ValidTo:           r.ValidTo,
		CourseID:          r.CourseID,
		MinPurchaseAmount: r.MinPurchaseAmount,
		MaxDiscountAmount: r.MaxDiscountAmount,
		IsActive:          r.IsActive,
		CreatedBy:         r.CreatedBy.String,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
}

type couponUsageRow struct {
	ID             string          `db:"id"`
	CouponID       string          `db:"coupon_id"`
	UserID         string          `db:"user_id"`
	CourseID       string          `db:"course_id"`
	OriginalPrice  decimal.Decimal `db:"original_price"`
	DiscountAmount decimal.Decimal `db:"discount_amount"`
	FinalPrice     decimal.Decimal `db:"final_price"`
	UsedAt         time.Time       `db:"used_at"`
}

type couponRepository struct {
	exec core.DBExecutor
}

var _ coupon.Repository = (*couponRepository)(nil) // interface compliance check

func NewCouponRepository(exec core.DBExecutor) *couponRepository {
	return &couponRepository{exec: exec}
}

func (repo couponRepository) CreateCoupon(ctx context.Context, c coupon.Coupon, exec ...core.DBExecutor) (coupon.Coupon, error) {
	q := `INSERT INTO coupon (` + couponColumns + `)
		VALUES (:id, :code, :type, :value, :max_uses, :used_count, :valid_from, :valid_to, :course_id,
			:min_purchase_amount, :max_discount_amount, :is_active, :created_by, :created_at, :updated_at)`
	if _, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, toCouponRow(c)); err != nil {
		if isUniqueViolation(err) {
			return coupon.Coupon{}, coupon.ErrCodeExists
		}
		return coupon.Coupon{}, errors.Wrap(err, "inserting coupon")
	}
	return c, nil
}

// UpdateCoupon leaves used_count alone: only IncrementUsage changes it.
func (repo couponRepository) UpdateCoupon(ctx context.Context, c coupon.Coupon, exec ...core.DBExecutor) (coupon.Coupon, error) {
	q := `UPDATE coupon SET value = :value, max_uses = :max_uses, valid_from = :valid_from, valid_to = :valid_to,
		min_purchase_amount = :min_purchase_amount, max_discount_amount = :max_discount_amount,
		is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, toCouponRow(c))
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "updating coupon")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	return repo.GetCoupon(ctx, coupon.GetFilter{ID: c.ID}, exec...)
}

func (repo couponRepository) GetCoupon(ctx context.Context, filter coupon.GetFilter, exec ...core.DBExecutor) (coupon.Coupon, error) {
	var (
		cond string
		arg  string
	)
	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return coupon.Coupon{}, coupon.ErrNotFound
		}
		cond, arg = "id = $1", filter.ID
	case filter.Code != "":
		cond, arg = "code = $1", coupon.NormalizeCode(filter.Code)
	default:
		return coupon.Coupon{}, coupon.ErrNotFound
	}

	var row couponRow
	q := `SELECT ` + couponColumns + ` FROM coupon WHERE ` + cond
	if err := core.GetExec(repo.exec, exec).GetContext(ctx, &row, q, arg); err != nil {
		if err == sql.ErrNoRows {
			return coupon.Coupon{}, coupon.ErrNotFound
		}
		return coupon.Coupon{}, errors.Wrap(err, "finding coupon")
	}
	return row.toCoupon(), nil
}

func (repo couponRepository) QueryCoupons(ctx context.Context, filter *coupon.QueryFilter, exec ...core.DBExecutor) ([]coupon.Coupon, error) {
	exe := core.GetExec(repo.exec, exec)

	w := new(where)
	if filter != nil {
		if filter.Search != "" {
			w.add("code ILIKE ?", "%"+filter.Search+"%")
		}
		if filter.CourseID != "" {
			w.add("course_id::text = ?", filter.CourseID)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if filter.CreatedBy != "" {
			w.add("created_by::text = ?", filter.CreatedBy)
		}
	}

	var rows []couponRow
	q := exe.Rebind(`SELECT ` + couponColumns + ` FROM coupon` + w.String() + ` ORDER BY created_at DESC`)
	if err := exe.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying coupons")
	}

	coupons := make([]coupon.Coupon, 0, len(rows))
	for _, row := range rows {
		coupons = append(coupons, row.toCoupon())
	}
	return coupons, nil
}

func (repo couponRepository) DeleteCoupon(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validID(id) {
		return coupon.ErrNotFound
	}
	res, err := core.GetExec(repo.exec, exec).ExecContext(ctx, `DELETE FROM coupon WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting coupon")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

func (repo couponRepository) IncrementUsage(ctx context.Context, id string, exec ...core.DBExecutor) (bool, error) {
	q := `UPDATE coupon SET used_count = used_count + 1
		WHERE id = $1 AND is_active AND (max_uses IS NULL OR used_count < max_uses)`
	res, err := core.GetExec(repo.exec, exec).ExecContext(ctx, q, id)
	if err != nil {
		return false, errors.Wrap(err, "incrementing coupon usage")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "incrementing coupon usage")
	}
	return n == 1, nil
}

func (repo couponRepository) CreateUsage(ctx context.Context, u coupon.Usage, exec ...core.DBExecutor) (coupon.Usage, error) {
	row := couponUsageRow{
		ID:             u.ID,
		CouponID:       u.CouponID,
		UserID:         u.UserID,
		CourseID:       u.CourseID,
		OriginalPrice:  u.OriginalPrice,
		DiscountAmount: u.DiscountAmount,
		FinalPrice:     u.FinalPrice,
		UsedAt:         u.UsedAt.UTC(),
	}
	q := `INSERT INTO coupon_usage (` + couponUsageColumns + `)
		VALUES (:id, :coupon_id, :user_id, :course_id, :original_price, :discount_amount, :final_price, :used_at)`
	if _, err := core.GetExec(repo.exec, exec).NamedExecContext(ctx, q, row); err != nil {
		return coupon.Usage{}, errors.Wrap(err, "inserting coupon usage")
	}
	return u, nil
}

func (repo couponRepository) QueryUsages(ctx context.Context, couponID string, exec ...core.DBExecutor) ([]coupon.Usage, error) {
	usages := make([]coupon.Usage, 0)
	if !validID(couponID) {
		return usages, nil
	}

	var rows []couponUsageRow
	q := `SELECT ` + couponUsageColumns + ` FROM coupon_usage WHERE coupon_id = $1 ORDER BY used_at`
	if err := core.GetExec(repo.exec, exec).SelectContext(ctx, &rows, q, couponID); err != nil {
		return nil, errors.Wrap(err, "querying coupon usages")
	}
	for _, row := range rows {
		usages = append(usages, coupon.Usage{
			ID:             row.ID,
			CouponID:       row.CouponID,
			UserID:         row.UserID,
			CourseID:       row.CourseID,
			OriginalPrice:  row.OriginalPrice,
			DiscountAmount: row.DiscountAmount,
			FinalPrice:     row.FinalPrice,
			UsedAt:         row.UsedAt.UTC(),
		})
	}
	return usages, nil
}

func (repo couponRepository) DeactivateExpired(ctx context.Context, now time.Time, exec ...core.DBExecutor) (int, error) {
	q := `UPDATE coupon SET is_active = false, updated_at = $1 WHERE is_active AND valid_to IS NOT NULL AND valid_to < $1`
	res, err := core.GetExec(repo.exec, exec).ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deactivating expired coupons")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deactivating expired coupons")
	}
	return int(n), nil
}
