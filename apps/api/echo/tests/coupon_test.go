package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core/coupon"
	"github.com/trezcool/elimu/core/enrollment"
)

func Test_couponApi(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)

	instructorToken := getToken(t, srv, f.instructor)
	studentToken := getToken(t, srv, f.student)
	otherToken := getToken(t, srv, f.other)
	adminToken := getToken(t, srv, f.admin)

	newCoupon := func(code, typ, value, courseID string) []byte {
		return []byte(`{"code": "` + code + `", "type": "` + typ + `", "value": "` + value + `", "course_id": "` + courseID + `"}`)
	}

	runHTTPTests(t, srv, []httpTest{
		{
			name: "students cannot create", method: http.MethodPost, path: "/v1/coupons", token: studentToken,
			body: newCoupon("half50", "percentage", "50", f.crs.ID), wantCode: http.StatusForbidden,
		},
		{
			name: "invalid type", method: http.MethodPost, path: "/v1/coupons", token: instructorToken,
			body: newCoupon("half50", "bogus", "50", f.crs.ID), wantCode: http.StatusBadRequest,
		},
		{
			name: "percentage over 100", method: http.MethodPost, path: "/v1/coupons", token: instructorToken,
			body: newCoupon("half50", "percentage", "150", f.crs.ID), wantCode: http.StatusBadRequest,
		},
		{
			name: "another instructor's course", method: http.MethodPost, path: "/v1/coupons", token: otherToken,
			body: newCoupon("half50", "percentage", "50", f.crs.ID), wantCode: http.StatusForbidden,
		},
		{
			name: "instructors must scope to a course", method: http.MethodPost, path: "/v1/coupons", token: instructorToken,
			body: newCoupon("half50", "percentage", "50", ""), wantCode: http.StatusForbidden,
		},
	})

	rec := do(srv, http.MethodPost, "/v1/coupons", instructorToken, newCoupon(" half50 ", "percentage", "50", f.crs.ID))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c coupon.Coupon
	unmarshal(t, rec, &c)
	assert.Equal(t, "HALF50", c.Code)
	assert.True(t, c.IsActive)
	assert.Equal(t, f.crs.ID, c.CourseID.String)

	rec = do(srv, http.MethodPost, "/v1/coupons", adminToken, newCoupon("FREEBIE", "free", "0", ""))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var free coupon.Coupon
	unmarshal(t, rec, &free)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "duplicate code", method: http.MethodPost, path: "/v1/coupons", token: adminToken,
			body: newCoupon("Half50", "fixed", "10", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": coupon.ErrCodeExists.Error()}),
		},
		{name: "instructors list their own", path: "/v1/coupons", token: instructorToken, wantCode: http.StatusOK, wantData: marchallList(t, c)},
		{name: "retrieve", path: "/v1/coupons/" + c.ID, token: instructorToken, wantCode: http.StatusOK, wantData: marchallObj(t, c)},
		{name: "retrieve someone else's", path: "/v1/coupons/" + c.ID, token: otherToken, wantCode: http.StatusNotFound},
		{name: "admins retrieve any", path: "/v1/coupons/" + c.ID, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, c)},
		{name: "unknown", path: "/v1/coupons/unknown", token: adminToken, wantCode: http.StatusNotFound},
	})

	preview := func(t *testing.T, token, code, courseID string) coupon.Quote {
		rec := do(srv, http.MethodPost, "/v1/coupons/preview", token, marchallObj(t, PreviewRequest{Code: code, CourseID: courseID}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var q coupon.Quote
		unmarshal(t, rec, &q)
		return q
	}

	t.Run("preview", func(t *testing.T) {
		q := preview(t, studentToken, "half50", f.crs.ID)
		assert.True(t, q.Valid)
		assert.Equal(t, "HALF50", q.Code)
		assert.Equal(t, "100", q.OriginalPrice.String())
		assert.Equal(t, "50", q.DiscountAmount.String())
		assert.Equal(t, "50", q.FinalPrice.String())

		q = preview(t, studentToken, "HALF50", f.draft.ID)
		assert.False(t, q.Valid)
		assert.Equal(t, coupon.ReasonWrongCourse, q.Reason)
		assert.Equal(t, "200", q.FinalPrice.String())

		q = preview(t, studentToken, "freebie", f.crs.ID)
		assert.True(t, q.Valid)
		assert.True(t, q.FinalPrice.IsZero())

		rec := do(srv, http.MethodPost, "/v1/coupons/preview", studentToken, marchallObj(t, PreviewRequest{Code: "NOPE", CourseID: f.crs.ID}))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("redeem on enrollment", func(t *testing.T) {
		rec := do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/enroll", studentToken, []byte(`{"coupon_code": "half50"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var enr enrollment.Enrollment
		unmarshal(t, rec, &enr)
		assert.Equal(t, "50", enr.PricePaid.String())
		assert.Equal(t, "HALF50", enr.CouponCode.String)

		rec = do(srv, http.MethodGet, "/v1/coupons/"+c.ID+"/usages", instructorToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usages []coupon.Usage
		unmarshal(t, rec, &usages)
		require.Len(t, usages, 1)
		assert.Equal(t, f.student.ID, usages[0].UserID)
		assert.Equal(t, "50", usages[0].FinalPrice.String())
	})

	t.Run("used coupons cannot be deleted", func(t *testing.T) {
		rec := do(srv, http.MethodDelete, "/v1/coupons/"+c.ID, instructorToken)
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("deactivate", func(t *testing.T) {
		rec := do(srv, http.MethodPut, "/v1/coupons/"+c.ID, instructorToken, []byte(`{"is_active": false}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		q := preview(t, studentToken, "half50", f.crs.ID)
		assert.False(t, q.Valid)
		assert.Equal(t, coupon.ReasonInactive, q.Reason)
	})

	t.Run("delete unused", func(t *testing.T) {
		rec := do(srv, http.MethodDelete, "/v1/coupons/"+free.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = do(srv, http.MethodGet, "/v1/coupons/"+free.ID, adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
