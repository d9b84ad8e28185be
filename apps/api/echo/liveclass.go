package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/liveclass"
	"github.com/trezcool/elimu/core/user"
)

type liveClassApi struct {
	svc      *liveclass.Service
	users    user.ServiceInterface
	auth     *jwtAuth
	validate *validator.Validate
}

func registerLiveClassAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *jwtAuth,
	svc *liveclass.Service,
	users user.ServiceInterface,
	validate *validator.Validate,
) {
	api := liveClassApi{
		svc:      svc,
		users:    users,
		auth:     auth,
		validate: validate,
	}

	ag := g.Group("", jwt)
	ag.GET("/courses/:id/live-classes", api.queryUpcoming)
	ag.POST("/courses/:id/live-classes", api.schedule, staffMiddleware(auth))
	ag.DELETE("/live-classes/:id", api.cancel, staffMiddleware(auth))
}

// Handlers

func (api *liveClassApi) schedule(ctx echo.Context) error {
	var data liveclass.NewLiveClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLiveClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	lc, err := api.svc.Schedule(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "scheduling live class")
	}
	return ctx.JSON(http.StatusCreated, lc)
}

func (api *liveClassApi) queryUpcoming(ctx echo.Context) error {
	classes, err := api.svc.QueryUpcoming(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying live classes")
	}
	if classes == nil {
		classes = []liveclass.LiveClass{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *liveClassApi) cancel(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.Cancel(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "cancelling live class")
	}
	return ctx.NoContent(http.StatusNoContent)
}
