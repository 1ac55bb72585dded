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

type studentApi struct {
	userSvc       *user.Service
	courseSvc     *course.Service
	enrollmentSvc *enrollment.Service
	gradeSvc      *grade.Service
	validate      *validator.Validate
}

func registerStudentAPI(g *echo.Group, authn echo.MiddlewareFunc, deps *Deps) {
	api := &studentApi{
		userSvc:       deps.UserSvc,
		courseSvc:     deps.CourseSvc,
		enrollmentSvc: deps.EnrollmentSvc,
		gradeSvc:      deps.GradeSvc,
		validate:      deps.Validate,
	}
	student := requireRoles(user.RoleStudent)
	admin := requireRoles(user.RoleAdmin)

	sg := g.Group("/students", authn)
	sg.GET("/profile", api.profile, student)
	sg.GET("/grades", api.grades, student)
	sg.GET("/:id/courses", api.courses, admin)
	sg.PUT("/:id/courses", api.replaceCourses, admin)
}

func (api *studentApi) profile(ctx echo.Context) error {
	usr, err := contextUser(ctx, api.userSvc)
	if err != nil {
		return err
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}

	enrollments, err := api.enrollmentSvc.List(ctx.Request().Context(), policy.ScopeFilter(actor, query.Enrollments))
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrollments == nil {
		enrollments = []enrollment.Detail{}
	}
	return ctx.JSON(http.StatusOK, StudentProfile{Student: usr, Enrollments: enrollments})
}

func (api *studentApi) grades(ctx echo.Context) error {
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}

	grades, err := api.gradeSvc.List(ctx.Request().Context(), policy.ScopeFilter(actor, query.Grades))
	if err != nil {
		return errors.Wrap(err, "listing grades")
	}
	if grades == nil {
		grades = []grade.Detail{}
	}
	return ctx.JSON(http.StatusOK, StudentGrades{Grades: grades, Average: grade.Average(grades)})
}

// student loads the student of the `:id` path parameter.
func (api *studentApi) student(ctx echo.Context) (user.User, error) {
	id, err := paramID(ctx, "id")
	if err != nil {
		return user.User{}, err
	}
	usr, err := api.userSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return user.User{}, err
	}
	if !usr.IsStudent() {
		return user.User{}, enrollment.ErrStudentNotFound
	}
	return usr, nil
}

func (api *studentApi) courses(ctx echo.Context) error {
	usr, err := api.student(ctx)
	if err != nil {
		return err
	}
	actor, err := contextActor(ctx)
	if err != nil {
		return err
	}
	if err = authorize(ctx, policy.OpRead, policy.Resource{Kind: policy.KindEnrollment, StudentID: usr.ID}); err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	courses, err := api.courseSvc.List(reqCtx, policy.ScopeFilter(actor, query.Courses))
	if err != nil {
		return errors.Wrap(err, "listing courses")
	}
	all := make([]course.Brief, 0, len(courses))
	for _, c := range courses {
		all = append(all, course.Brief{ID: c.ID, Name: c.Name, Code: c.Code})
	}

	enrolled, err := api.enrollmentSvc.StudentCourseIDs(reqCtx, usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing enrolled courses")
	}
	if enrolled == nil {
		enrolled = []int{}
	}
	return ctx.JSON(http.StatusOK, StudentCourses{AllCourses: all, EnrolledCourseIDs: enrolled})
}

// replaceCourses makes the body's courseIds the exact set of courses the student is enrolled in.
func (api *studentApi) replaceCourses(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = authorize(ctx, policy.OpUpdate, policy.Resource{Kind: policy.KindEnrollment, StudentID: id}); err != nil {
		return err
	}

	var data enrollment.ReplaceEnrollments
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReplaceEnrollments")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ids, err := api.enrollmentSvc.Replace(ctx.Request().Context(), id, data.CourseIDs)
	if err != nil {
		return errors.Wrap(err, "replacing enrollments")
	}
	return ctx.JSON(http.StatusOK, ReplaceCoursesResponse{Message: "Cursos actualizados correctamente", EnrolledCourseIDs: ids})
}

type (
	StudentProfile struct {
		Student     user.User           `json:"student"`
		Enrollments []enrollment.Detail `json:"enrollments"`
	}

	StudentGrades struct {
		Grades  []grade.Detail `json:"grades"`
		Average *float64       `json:"average"`
	}

	StudentCourses struct {
		AllCourses        []course.Brief `json:"allCourses"`
		EnrolledCourseIDs []int          `json:"enrolledCourseIds"`
	}

	ReplaceCoursesResponse struct {
		Message           string `json:"message"`
		EnrolledCourseIDs []int  `json:"enrolledCourseIds"`
	}
)
