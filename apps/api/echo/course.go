package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
)

type courseApi struct {
	svc      *course.Service
	users    user.ServiceInterface
	auth     *jwtAuth
	validate *validator.Validate
}

func registerCourseAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *jwtAuth,
	svc *course.Service,
	users user.ServiceInterface,
	validate *validator.Validate,
) {
	api := courseApi{
		svc:      svc,
		users:    users,
		auth:     auth,
		validate: validate,
	}

	cg := g.Group("/courses", jwt)
	cg.GET("", api.query)
	cg.POST("", api.create, staffMiddleware(auth))
	cg.GET("/stats", api.stats, staffMiddleware(auth))

	// detail endpoints
	dg := cg.Group("/:id")
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, staffMiddleware(auth))
	dg.DELETE("", api.destroy, staffMiddleware(auth))
	dg.GET("/chapters", api.queryChapters)
	dg.POST("/chapters", api.createChapter, staffMiddleware(auth))
	dg.GET("/units", api.queryUnits)
	dg.POST("/units", api.createUnit, staffMiddleware(auth))
	dg.POST("/quizzes", api.createQuiz, staffMiddleware(auth))
	dg.GET("/quizzes/:quizId", api.retrieveQuiz)
}

// visibleCourse returns the course unless it is unpublished and usr may not edit it.
func (api *courseApi) visibleCourse(ctx echo.Context, usr user.User) (course.Course, error) {
	crs, err := api.svc.GetCourse(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return course.Course{}, err
	}
	if !crs.IsPublished && !crs.CanBeModifiedBy(usr) {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.Course{})
	}
	filter.Clean()
	if !(usr.IsAdmin() || (usr.IsInstructor() && filter.InstructorID == usr.ID)) {
		published := true
		filter.IsPublished = &published
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	courses, err := api.svc.QueryCourses(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.svc.CreateCourse(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) stats(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	instructorID := usr.ID
	if id := ctx.QueryParam("instructor_id"); id != "" && usr.IsAdmin() {
		instructorID = id
	}
	stats, err := api.svc.Stats(ctx.Request().Context(), instructorID)
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.visibleCourse(ctx, usr)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.svc.UpdateCourse(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err := api.svc.DeleteCourse(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) queryChapters(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.visibleCourse(ctx, usr)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}

	chapters, err := api.svc.QueryChapters(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying chapters")
	}
	if chapters == nil {
		chapters = []course.Chapter{}
	}
	return ctx.JSON(http.StatusOK, chapters)
}

func (api *courseApi) createChapter(ctx echo.Context) error {
	var data course.NewChapter
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewChapter")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	ch, err := api.svc.AddChapter(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding chapter")
	}
	return ctx.JSON(http.StatusCreated, ch)
}

func (api *courseApi) queryUnits(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.visibleCourse(ctx, usr)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}

	units, err := api.svc.QueryContentUnits(ctx.Request().Context(), crs.ID)
	if err != nil {
		return errors.Wrap(err, "querying content units")
	}
	if units == nil {
		units = []course.ContentUnit{}
	}
	return ctx.JSON(http.StatusOK, units)
}

func (api *courseApi) createUnit(ctx echo.Context) error {
	var data course.NewContentUnit
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewContentUnit")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	unit, err := api.svc.AddContentUnit(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding content unit")
	}
	return ctx.JSON(http.StatusCreated, unit)
}

func (api *courseApi) createQuiz(ctx echo.Context) error {
	var data course.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	quiz, err := api.svc.CreateQuiz(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return ctx.JSON(http.StatusCreated, quiz)
}

// retrieveQuiz hides the answers from anyone who cannot edit the course.
func (api *courseApi) retrieveQuiz(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	crs, err := api.visibleCourse(ctx, usr)
	if err != nil {
		return errors.Wrap(err, "finding course")
	}

	quiz, err := api.svc.GetQuiz(ctx.Request().Context(), ctx.Param("quizId"))
	if err != nil {
		return errors.Wrap(err, "finding quiz")
	}
	if quiz.CourseID != crs.ID {
		return course.ErrQuizNotFound
	}

	if crs.CanBeModifiedBy(usr) {
		return ctx.JSON(http.StatusOK, quiz)
	}
	return ctx.JSON(http.StatusOK, quiz.Public())
}
