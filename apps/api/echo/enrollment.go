package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/policy"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

type enrollmentApi struct {
	svc       *enrollment.Service
	courseSvc *course.Service
	validate  *validator.Validate
}

func registerEnrollmentAPI(g *echo.Group, authn echo.MiddlewareFunc, deps *Deps) {
	api := &enrollmentApi{svc: deps.EnrollmentSvc, courseSvc: deps.CourseSvc, validate: deps.Validate}
	admin := requireRoles(user.RoleAdmin)

	eg := g.Group("/enrollments", authn)
	eg.POST("", api.create, admin)
	eg.DELETE("/:id", api.destroy, admin)
	eg.GET("/course/:courseId/students", api.courseStudents, requireRoles(user.RoleAdmin, user.RoleTeacher))
}

func (api *enrollmentApi) create(ctx echo.Context) error {
	var data enrollment.NewEnrollment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEnrollment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if err := authorize(ctx, policy.OpCreate, policy.Resource{Kind: policy.KindEnrollment, StudentID: data.StudentID}); err != nil {
		return err
	}

	e, err := api.svc.Enroll(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "enrolling student")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *enrollmentApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	e, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if err = authorize(ctx, policy.OpDelete, policy.Resource{Kind: policy.KindEnrollment, StudentID: e.StudentID}); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Matrícula eliminada correctamente"})
}

// courseStudents lists the enrollments of a course with their students, ordered by student name.
func (api *enrollmentApi) courseStudents(ctx echo.Context) error {
	id, err := paramID(ctx, "courseId")
	if err != nil {
		return err
	}
	c, err := api.courseSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if err = authorize(ctx, policy.OpRead, policy.Resource{Kind: policy.KindEnrollment, TeacherID: c.TeacherIDOrZero()}); err != nil {
		return err
	}
	return listCourseEnrollments(ctx, api.svc, c)
}

func listCourseEnrollments(ctx echo.Context, svc *enrollment.Service, c course.Course) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	filter := query.And(policy.ScopeFilter(actor, query.Enrollments), query.Eq(query.FieldCourseID, c.ID))
	enrollments, err := svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Detail{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}
