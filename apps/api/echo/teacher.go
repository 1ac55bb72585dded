package echoapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/policy"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
	"github.com/sistemanotas/notas/services/report"
)

type teacherApi struct {
	courseSvc     *course.Service
	enrollmentSvc *enrollment.Service
	gradeSvc      *grade.Service
	grades        *gradeApi
}

func registerTeacherAPI(g *echo.Group, authn echo.MiddlewareFunc, deps *Deps) {
	api := &teacherApi{
		courseSvc:     deps.CourseSvc,
		enrollmentSvc: deps.EnrollmentSvc,
		gradeSvc:      deps.GradeSvc,
		grades:        newGradeApi(deps),
	}

	tg := g.Group("/teacher", authn, requireRoles(user.RoleTeacher))
	tg.GET("/courses", api.courses)
	tg.GET("/courses/:courseId/students", api.students)
	tg.GET("/courses/:courseId/grades", api.courseGrades)
	tg.POST("/courses/:courseId/grades", api.grades.upsertForCourse)
	tg.GET("/courses/:courseId/grades/export", api.exportGrades)
}

// courses lists the courses assigned to the caller, ordered by name.
func (api *teacherApi) courses(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	courses, err := api.courseSvc.List(ctx.Request().Context(), policy.ScopeFilter(actor, query.Courses))
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *teacherApi) ownCourse(ctx echo.Context) (course.Course, error) {
	return readableCourse(ctx, "courseId", api.courseSvc, api.enrollmentSvc)
}

func (api *teacherApi) students(ctx echo.Context) error {
	c, err := api.ownCourse(ctx)
	if err != nil {
		return err
	}
	return listCourseEnrollments(ctx, api.enrollmentSvc, c)
}

func (api *teacherApi) courseGrades(ctx echo.Context) error {
	c, err := api.ownCourse(ctx)
	if err != nil {
		return err
	}
	return listCourseGrades(ctx, api.gradeSvc, c)
}

// exportGrades sends the grades of the course as an XLSX workbook.
func (api *teacherApi) exportGrades(ctx echo.Context) error {
	c, err := api.ownCourse(ctx)
	if err != nil {
		return err
	}
	grades, err := courseGrades(ctx, api.gradeSvc, c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err = report.WriteGrades(&buf, c, grades); err != nil {
		return errors.Wrap(err, "writing grades workbook")
	}
	filename := report.GradesFilename(c, time.Now())
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, report.XLSXContentType, buf.Bytes())
}
