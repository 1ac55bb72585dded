package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/policy"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

type gradeApi struct {
	svc           *grade.Service
	courseSvc     *course.Service
	enrollmentSvc *enrollment.Service
	validate      *validator.Validate
}

func newGradeApi(deps *Deps) *gradeApi {
	return &gradeApi{
		svc:           deps.GradeSvc,
		courseSvc:     deps.CourseSvc,
		enrollmentSvc: deps.EnrollmentSvc,
		validate:      deps.Validate,
	}
}

func registerGradeAPI(g *echo.Group, authn echo.MiddlewareFunc, deps *Deps) {
	api := newGradeApi(deps)

	gg := g.Group("/grades", authn)
	gg.GET("", api.query)
	gg.POST("", api.upsert)
	gg.GET("/course/:courseId", api.courseGrades)
	gg.POST("/course/:courseId", api.upsertForCourse)
	gg.DELETE("/:id", api.destroy, requireRoles(user.RoleAdmin))
}

// write validates data, checks the caller may grade the student in the course and upserts the grade.
func (api *gradeApi) write(ctx echo.Context, data grade.NewGrade) (grade.Grade, error) {
	if err := data.Validate(api.validate); err != nil {
		return grade.Grade{}, err
	}
	reqCtx := ctx.Request().Context()

	c, err := api.courseSvc.GetByID(reqCtx, data.CourseID)
	if err != nil {
		return grade.Grade{}, err
	}
	enrolled, err := api.enrollmentSvc.IsEnrolled(reqCtx, data.StudentID, c.ID)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "checking enrollment")
	}
	res := policy.Resource{
		Kind:      policy.KindGrade,
		StudentID: data.StudentID,
		TeacherID: c.TeacherIDOrZero(),
		Enrolled:  enrolled,
	}
	if err = authorize(ctx, policy.OpUpdate, res); err != nil {
		return grade.Grade{}, err
	}

	g, err := api.svc.Upsert(reqCtx, data.StudentID, c.ID, *data.Value)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "saving grade")
	}
	return g, nil
}

func (api *gradeApi) upsert(ctx echo.Context) error {
	var data grade.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	g, err := api.write(ctx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, g)
}

// upsertForCourse takes the course from the path, any courseId in the body is ignored.
func (api *gradeApi) upsertForCourse(ctx echo.Context) error {
	courseID, err := paramID(ctx, "courseId")
	if err != nil {
		return err
	}
	var data grade.NewGrade
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	data.CourseID = courseID

	g, err := api.write(ctx, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, g)
}

func (api *gradeApi) query(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	courseID, err := queryID(ctx, "courseId")
	if err != nil {
		return err
	}
	studentID, err := queryID(ctx, "studentId")
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	if err = ordering.Bind(ctx, query.Grades); err != nil {
		return err
	}

	filters := []query.Filter{policy.ScopeFilter(actor, query.Grades)}
	if courseID > 0 {
		filters = append(filters, query.Eq(query.FieldCourseID, courseID))
	}
	if studentID > 0 {
		filters = append(filters, query.Eq(query.FieldStudentID, studentID))
	}

	grades, pagination, err := api.svc.Query(ctx.Request().Context(), query.And(filters...), ordering.Orderings, bindPage(ctx))
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []grade.Detail{}
	}
	return ctx.JSON(http.StatusOK, GradeListResponse{Grades: grades, Pagination: pagination})
}

func (api *gradeApi) courseGrades(ctx echo.Context) error {
	c, err := readableCourse(ctx, "courseId", api.courseSvc, api.enrollmentSvc)
	if err != nil {
		return err
	}
	return listCourseGrades(ctx, api.svc, c)
}

func listCourseGrades(ctx echo.Context, svc *grade.Service, c course.Course) error {
	grades, err := courseGrades(ctx, svc, c)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, grades)
}

// courseGrades returns the grades of c visible to the caller, ordered by student name.
func courseGrades(ctx echo.Context, svc *grade.Service, c course.Course) ([]grade.Detail, error) {
	actor, err := contextActor(ctx)
	if err != nil {
		return nil, err
	}
	filter := query.And(policy.ScopeFilter(actor, query.Grades), query.Eq(query.FieldCourseID, c.ID))
	grades, err := svc.List(ctx.Request().Context(), filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing grades")
	}
	if grades == nil {
		grades = []grade.Detail{}
	}
	return grades, nil
}

func (api *gradeApi) destroy(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	g, err := api.svc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if err = authorize(ctx, policy.OpDelete, policy.Resource{Kind: policy.KindGrade, StudentID: g.StudentID}); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting grade")
	}
	return ctx.JSON(http.StatusOK, messageResponse{Message: "Nota eliminada correctamente"})
}

type GradeListResponse struct {
	Grades     []grade.Detail   `json:"grades"`
	Pagination query.Pagination `json:"pagination"`
}
