package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/message"
	"github.com/trezcool/elimu/core/user"
)

type messageApi struct {
	svc      *message.Service
	users    user.ServiceInterface
	auth     *jwtAuth
	validate *validator.Validate
}

func registerMessageAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *jwtAuth,
	svc *message.Service,
	users user.ServiceInterface,
	validate *validator.Validate,
) {
	api := messageApi{
		svc:      svc,
		users:    users,
		auth:     auth,
		validate: validate,
	}

	ag := g.Group("", jwt)
	ag.GET("/messages", api.inbox)
	ag.POST("/messages/:id/read", api.markRead)
	ag.POST("/messages", api.send, adminMiddleware(auth))
	ag.POST("/courses/:id/messages", api.broadcast, adminMiddleware(auth))
}

type BroadcastResponse struct {
	Sent int `json:"sent"`
}

// Handlers

func (api *messageApi) send(ctx echo.Context) error {
	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	msg, err := api.svc.Send(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) broadcast(ctx echo.Context) error {
	var data message.NewBroadcast
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBroadcast")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	sent, err := api.svc.Broadcast(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "broadcasting message")
	}
	return ctx.JSON(http.StatusCreated, BroadcastResponse{Sent: sent})
}

func (api *messageApi) inbox(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	unreadOnly, _ := strconv.ParseBool(ctx.QueryParam("unread"))

	msgs, err := api.svc.Inbox(ctx.Request().Context(), claims.Subject, unreadOnly)
	if err != nil {
		return errors.Wrap(err, "querying inbox")
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) markRead(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	msg, err := api.svc.MarkRead(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking message as read")
	}
	return ctx.JSON(http.StatusOK, msg)
}
