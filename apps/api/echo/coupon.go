package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/coupon"
	"github.com/trezcool/elimu/core/user"
)

type couponApi struct {
	svc      *coupon.Service
	users    user.ServiceInterface
	auth     *jwtAuth
	validate *validator.Validate
}

func registerCouponAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *jwtAuth,
	svc *coupon.Service,
	users user.ServiceInterface,
	validate *validator.Validate,
) {
	api := couponApi{
		svc:      svc,
		users:    users,
		auth:     auth,
		validate: validate,
	}

	cg := g.Group("/coupons", jwt)
	cg.POST("/preview", api.preview)

	sg := cg.Group("", staffMiddleware(auth))
	sg.GET("", api.query)
	sg.POST("", api.create)

	// detail endpoints
	dg := sg.Group("/:id", couponManagerMiddleware(auth, svc, users))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/usages", api.queryUsages)
}

type PreviewRequest struct {
	Code     string `json:"code" validate:"required"`
	CourseID string `json:"course_id" validate:"required"`
}

func (pr *PreviewRequest) Validate(validate *validator.Validate) error {
	pr.Code = coupon.NormalizeCode(pr.Code)
	pr.CourseID = core.CleanString(pr.CourseID)
	return validate.Struct(pr)
}

// Handlers

func (api *couponApi) preview(ctx echo.Context) error {
	var data PreviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PreviewRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	quote, err := api.svc.Preview(ctx.Request().Context(), data.Code, data.CourseID)
	if err != nil {
		return errors.Wrap(err, "previewing coupon")
	}
	return ctx.JSON(http.StatusOK, quote)
}

func (api *couponApi) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(coupon.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []coupon.Coupon{})
	}
	filter.Clean()

	coupons, err := api.svc.Query(ctx.Request().Context(), usr, filter)
	if err != nil {
		return errors.Wrap(err, "querying coupons")
	}
	if coupons == nil {
		coupons = []coupon.Coupon{}
	}
	return ctx.JSON(http.StatusOK, coupons)
}

func (api *couponApi) create(ctx echo.Context) error {
	var data coupon.NewCoupon
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCoupon")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	c, err := api.svc.Create(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating coupon")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *couponApi) retrieve(ctx echo.Context) error {
	c, ok := ctx.Get("object").(coupon.Coupon)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *couponApi) update(ctx echo.Context) error {
	c, ok := ctx.Get("object").(coupon.Coupon)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}

	var data coupon.UpdateCoupon
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCoupon")
	}
	if err := data.Validate(c, api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	c, err = api.svc.Update(ctx.Request().Context(), usr, c, data)
	if err != nil {
		return errors.Wrap(err, "updating coupon")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *couponApi) destroy(ctx echo.Context) error {
	c, ok := ctx.Get("object").(coupon.Coupon)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Delete(ctx.Request().Context(), usr, c); err != nil {
		return errors.Wrap(err, "deleting coupon")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *couponApi) queryUsages(ctx echo.Context) error {
	c, ok := ctx.Get("object").(coupon.Coupon)
	if !ok {
		return errors.Wrap(errObjNotFoundInCtx, "retrieving object from context")
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	usages, err := api.svc.QueryUsages(ctx.Request().Context(), usr, c)
	if err != nil {
		return errors.Wrap(err, "querying coupon usages")
	}
	if usages == nil {
		usages = []coupon.Usage{}
	}
	return ctx.JSON(http.StatusOK, usages)
}

// couponManagerMiddleware loads the coupon into the context. Coupons the user cannot manage are not found.
func couponManagerMiddleware(auth *jwtAuth, svc *coupon.Service, users user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx, users)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			c, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == coupon.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding coupon by ID")
			}
			if !c.CanBeManagedBy(usr) {
				return errHttpNotFound
			}
			ctx.Set("object", c)
			return next(ctx)
		}
	}
}
