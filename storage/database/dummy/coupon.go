package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/coupon"
)

type couponRepository struct {
	db *DB
}

var _ coupon.Repository = (*couponRepository)(nil) // interface compliance check

func NewCouponRepository(db *DB) *couponRepository {
	return &couponRepository{db: db}
}

func (repo *couponRepository) CreateCoupon(_ context.Context, c coupon.Coupon, _ ...core.DBExecutor) (coupon.Coupon, error) {
	repo.db.coupon.Lock()
	defer repo.db.coupon.Unlock()

	for _, existing := range repo.db.coupon.coupons {
		if existing.Code == c.Code {
			return coupon.Coupon{}, coupon.ErrCodeExists
		}
	}
	repo.db.coupon.coupons[c.ID] = &c
	return c, nil
}

// UpdateCoupon leaves UsedCount alone: only IncrementUsage changes it.
func (repo *couponRepository) UpdateCoupon(_ context.Context, c coupon.Coupon, _ ...core.DBExecutor) (coupon.Coupon, error) {
	repo.db.coupon.Lock()
	defer repo.db.coupon.Unlock()

	orig, ok := repo.db.coupon.coupons[c.ID]
	if !ok {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	c.Code = orig.Code
	c.Type = orig.Type
	c.CourseID = orig.CourseID
	c.UsedCount = orig.UsedCount
	c.CreatedBy = orig.CreatedBy
	c.CreatedAt = orig.CreatedAt
	repo.db.coupon.coupons[c.ID] = &c
	return c, nil
}

func (repo *couponRepository) GetCoupon(_ context.Context, filter coupon.GetFilter, _ ...core.DBExecutor) (coupon.Coupon, error) {
	repo.db.coupon.RLock()
	defer repo.db.coupon.RUnlock()

	switch {
	case filter.ID != "":
		if c, ok := repo.db.coupon.coupons[filter.ID]; ok {
			return *c, nil
		}
	case filter.Code != "":
		code := coupon.NormalizeCode(filter.Code)
		for _, c := range repo.db.coupon.coupons {
			if c.Code == code {
				return *c, nil
			}
		}
	}
	return coupon.Coupon{}, coupon.ErrNotFound
}

func (repo *couponRepository) QueryCoupons(_ context.Context, filter *coupon.QueryFilter, _ ...core.DBExecutor) ([]coupon.Coupon, error) {
	repo.db.coupon.RLock()
	defer repo.db.coupon.RUnlock()

	coupons := make([]coupon.Coupon, 0)
	for _, c := range repo.db.coupon.coupons {
		if filter != nil {
			if filter.Search != "" && !strings.Contains(c.Code, strings.ToUpper(filter.Search)) {
				continue
			}
			if filter.CourseID != "" && c.CourseID.String != filter.CourseID {
				continue
			}
			if filter.IsActive != nil && c.IsActive != *filter.IsActive {
				continue
			}
			if filter.CreatedBy != "" && c.CreatedBy != filter.CreatedBy {
				continue
			}
		}
		coupons = append(coupons, *c)
	}
	sort.SliceStable(coupons, func(i, j int) bool { return coupons[i].CreatedAt.After(coupons[j].CreatedAt) })
	return coupons, nil
}

func (repo *couponRepository) DeleteCoupon(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.coupon.Lock()
	defer repo.db.coupon.Unlock()

	if _, ok := repo.db.coupon.coupons[id]; !ok {
		return coupon.ErrNotFound
	}
	delete(repo.db.coupon.coupons, id)
	return nil
}

// IncrementUsage checks the limit and bumps the counter under the table lock.
func (repo *couponRepository) IncrementUsage(_ context.Context, id string, _ ...core.DBExecutor) (bool, error) {
	repo.db.coupon.Lock()
	defer repo.db.coupon.Unlock()

	c, ok := repo.db.coupon.coupons[id]
	if !ok || !c.IsActive {
		return false, nil
	}
	if c.MaxUses.Valid && c.UsedCount >= c.MaxUses.Int {
		return false, nil
	}
	c.UsedCount++
	return true, nil
}

func (repo *couponRepository) CreateUsage(_ context.Context, u coupon.Usage, _ ...core.DBExecutor) (coupon.Usage, error) {
	repo.db.coupon.Lock()
	defer repo.db.coupon.Unlock()

	repo.db.coupon.usages = append(repo.db.coupon.usages, u)
	return u, nil
}

func (repo *couponRepository) QueryUsages(_ context.Context, couponID string, _ ...core.DBExecutor) ([]coupon.Usage, error) {
	repo.db.coupon.RLock()
	defer repo.db.coupon.RUnlock()

	usages := make([]coupon.Usage, 0)
	for _, u := range repo.db.coupon.usages {
		if u.CouponID == couponID {
			usages = append(usages, u)
		}
	}
	return usages, nil
}

func (repo *couponRepository) DeactivateExpired(_ context.Context, now time.Time, _ ...core.DBExecutor) (int, error) {
	repo.db.coupon.Lock()
	defer repo.db.coupon.Unlock()

	var n int
	for _, c := range repo.db.coupon.coupons {
		if c.IsActive && c.ValidTo.Valid && c.ValidTo.Time.Before(now) {
			c.IsActive = false
			c.UpdatedAt = now.UTC()
			n++
		}
	}
	return n, nil
}
