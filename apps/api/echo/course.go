package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/policy"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

type courseApi struct {
	svc           *course.Service
	userSvc       *user.Service
	enrollmentSvc *enrollment.Service
	gradeSvc      *grade.Service
	validate      *validator.Validate
}

func registerCourseAPI(g *echo.Group, authn echo.MiddlewareFunc, deps *Deps) {
	api := &courseApi{
		svc:           deps.CourseSvc,
		userSvc:       deps.UserSvc,
		enrollmentSvc: deps.EnrollmentSvc,
		gradeSvc:      deps.GradeSvc,
		validate:      deps.Validate,
	}
	admin := requireRoles(user.RoleAdmin)

	cg := g.Group("/courses", authn)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.POST("", api.create, admin)
	cg.PUT("/:id", api.update, admin)
	cg.DELETE("/:id", api.destroy, admin)
}

// courseResource describes c for the authorization policy. Enrolled is only looked up for students.
func courseResource(ctx echo.Context, enrollmentSvc *enrollment.Service, c course.Course) (policy.Resource, error) {
	res := policy.Resource{Kind: policy.KindCourse, TeacherID: c.TeacherIDOrZero()}
	actor, err := contextActor(ctx)
	if err != nil {
		return res, err
	}
	if actor.Role == user.RoleStudent {
		if res.Enrolled, err = enrollmentSvc.IsEnrolled(ctx.Request().Context(), actor.ID, c.ID); err != nil {
			return res, errors.Wrap(err, "checking enrollment")
		}
	}
	return res, nil
}

// readableCourse loads the course of the path parameter name and checks the caller may read it.
func readableCourse(ctx echo.Context, name string, svc *course.Service, enrollmentSvc *enrollment.Service) (course.Course, error) {
	id, err := paramID(ctx, name)
	if err != nil {
		return course.Course{}, err
	}
	c, err := svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return course.Course{}, err
	}
	res, err := courseResource(ctx, enrollmentSvc, c)
	if err != nil {
		return course.Course{}, err
	}
	if err = authorize(ctx, policy.OpRead, res); err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (api *courseApi) query(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	if err = ordering.Bind(ctx, query.Courses); err != nil {
		return err
	}

	filter := query.And(policy.ScopeFilter(actor, query.Courses), bindSearch(ctx))
	courses, pagination, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings, bindPage(ctx))
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Summary{}
	}
	return ctx.JSON(http.StatusOK, CourseListResponse{Courses: courses, Pagination: pagination})
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	c, err := readableCourse(ctx, "id", api.svc, api.enrollmentSvc)
	if err != nil {
		return err
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	detail := CourseDetail{Course: c, Enrollments: []enrollment.Detail{}, Grades: []grade.Detail{}}
	if c.TeacherID.Valid {
		teacher, err := api.userSvc.GetByID(reqCtx, c.TeacherID.Int)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			return errors.Wrap(err, "finding teacher")
		}
		if err == nil {
			brief := teacher.Brief()
			detail.Teacher = &brief
		}
	}

	byCourse := query.Eq(query.FieldCourseID, c.ID)
	enrollments, err := api.enrollmentSvc.List(reqCtx, query.And(policy.ScopeFilter(actor, query.Enrollments), byCourse))
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrollments != nil {
		detail.Enrollments = enrollments
	}
	grades, err := api.gradeSvc.List(reqCtx, query.And(policy.ScopeFilter(actor, query.Grades), byCourse))
	if err != nil {
		return errors.Wrap(err, "listing grades")
	}
	if grades != nil {
		detail.Grades = grades
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := authorize(ctx, policy.OpCreate, policy.Resource{Kind: policy.KindCourse}); err != nil {
		return err
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *courseApi) update(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	c, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if err = authorize(ctx, policy.OpUpdate, policy.Resource{Kind: policy.KindCourse, TeacherID: c.TeacherIDOrZero()}); err != nil {
		return err
	}

	var data course.UpdateCourse
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err = data.Validate(ctx.Request().Context(), c, api.validate, api.svc); err != nil {
		return err
	}

	c, err = api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating course")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *courseApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = authorize(ctx, policy.OpDelete, policy.Resource{Kind: policy.KindCourse}); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Curso eliminado correctamente"})
}

type (
	CourseListResponse struct {
		Courses    []course.Summary `json:"courses"`
		Pagination query.Pagination `json:"pagination"`
	}

	CourseDetail struct {
		course.Course
		Teacher     *user.Brief         `json:"teacher"`
		Enrollments []enrollment.Detail `json:"enrollments"`
		Grades      []grade.Detail      `json:"grades"`
	}
)
