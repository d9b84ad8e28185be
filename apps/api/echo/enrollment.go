package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/enrollment"
)

type enrollmentApi struct {
	svc      *enrollment.Service
	auth     *jwtAuth
	validate *validator.Validate
}

func registerEnrollmentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *jwtAuth,
	svc *enrollment.Service,
	validate *validator.Validate,
) {
	api := enrollmentApi{
		svc:      svc,
		auth:     auth,
		validate: validate,
	}

	ag := g.Group("", jwt)
	ag.GET("/enrollments", api.query)
	ag.POST("/courses/:id/enroll", api.enroll)
	ag.GET("/courses/:id/progress", api.progress)
	ag.POST("/courses/:id/units/:unitId/complete", api.completeUnit)
	ag.POST("/quizzes/:quizId/submit", api.submitQuiz)
}

type ProgressResponse struct {
	CourseID string `json:"course_id"`
	Progress int    `json:"progress"`
}

// Handlers

func (api *enrollmentApi) enroll(ctx echo.Context) error {
	var data enrollment.EnrollRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EnrollRequest")
	}
	data.Clean()

	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	enr, err := api.svc.Enroll(ctx.Request().Context(), claims.Subject, ctx.Param("id"), data.CouponCode)
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *enrollmentApi) query(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	enrs, err := api.svc.QueryByUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrs == nil {
		enrs = []enrollment.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *enrollmentApi) progress(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	progress, err := api.svc.Progress(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}
	return ctx.JSON(http.StatusOK, ProgressResponse{CourseID: ctx.Param("id"), Progress: progress})
}

func (api *enrollmentApi) completeUnit(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	enr, err := api.svc.CompleteUnit(ctx.Request().Context(), claims.Subject, ctx.Param("id"), ctx.Param("unitId"))
	if err != nil {
		return errors.Wrap(err, "completing unit")
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *enrollmentApi) submitQuiz(ctx echo.Context) error {
	var data enrollment.QuizAnswers
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuizAnswers")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	sub, err := api.svc.SubmitQuiz(ctx.Request().Context(), claims.Subject, ctx.Param("quizId"), data.Answers)
	if err != nil {
		return errors.Wrap(err, "submitting quiz")
	}
	return ctx.JSON(http.StatusOK, sub)
}
