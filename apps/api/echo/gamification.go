package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/gamification"
)

type gamificationApi struct {
	svc  *gamification.Service
	auth *jwtAuth
}

func registerGamificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *jwtAuth, svc *gamification.Service) {
	api := gamificationApi{svc: svc, auth: auth}

	ag := g.Group("", jwt)
	ag.GET("/me/xp", api.profile)
	ag.GET("/leaderboard", api.leaderboard)
}

// Handlers

func (api *gamificationApi) profile(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	prof, err := api.svc.GetProfile(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "getting xp profile")
	}
	return ctx.JSON(http.StatusOK, prof)
}

func (api *gamificationApi) leaderboard(ctx echo.Context) error {
	// the service clamps the limit
	entries, err := api.svc.Leaderboard(ctx.Request().Context(), queryInt(ctx, "limit"))
	if err != nil {
		return errors.Wrap(err, "getting leaderboard")
	}
	if entries == nil {
		entries = []gamification.LeaderboardEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}
