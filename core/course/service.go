package course

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

var (
	// errors
	ErrNotFound   = core.NewError(core.ErrNotFound, "Curso no encontrado")
	ErrCodeExists = core.NewError(core.ErrConflict, "El código de curso ya existe")

	errInvalidTeacherText = "el docente no existe"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		GetCourseByID(ctx context.Context, id int, exec ...core.DBExecutor) (Course, error)
		GetCourseByCode(ctx context.Context, code string, exec ...core.DBExecutor) (Course, error)
		// QueryCourses returns one page of the courses matching filter and the total number of matches.
		QueryCourses(ctx context.Context, filter query.Filter, ords []core.DBOrdering, page query.Page) ([]Summary, int, error)
		// ListCourses returns all courses matching filter, ordered by name.
		ListCourses(ctx context.Context, filter query.Filter) ([]Course, error)
		// MissingCourseIDs returns the ids in ids that do not belong to any course.
		MissingCourseIDs(ctx context.Context, ids []int, exec ...core.DBExecutor) ([]int, error)
		CountCourses(ctx context.Context) (int, error)
		UpdateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		userRepo user.Repository
	}
)

func NewService(repo Repository, userRepo user.Repository) *Service {
	core.MustNotBeNil(map[string]interface{}{
		"repo":     repo,
		"userRepo": userRepo,
	})
	return &Service{repo: repo, userRepo: userRepo}
}

// CheckUniqueness returns ErrCodeExists when a course other than exclCourses already uses code.
func (svc *Service) CheckUniqueness(ctx context.Context, code string, exclCourses ...Course) error {
	c, err := svc.repo.GetCourseByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return errors.Wrap(err, "finding course by code")
	}
	for _, excl := range exclCourses {
		if excl.ID == c.ID {
			return nil
		}
	}
	return ErrCodeExists
}

func (svc *Service) checkTeacher(ctx context.Context, teacherID null.Int) error {
	if !teacherID.Valid {
		return nil
	}
	usr, err := svc.userRepo.GetUserByID(ctx, teacherID.Int)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return core.NewFieldError("teacherId", errInvalidTeacherText)
		}
		return errors.Wrap(err, "finding teacher")
	}
	if !usr.IsTeacher() {
		return core.NewFieldError("teacherId", errInvalidTeacherText)
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	return svc.repo.CreateCourse(ctx, Course{
		Name:        nc.Name,
		Code:        nc.Code,
		Description: nullableString(nc.Description),
		TeacherID:   nc.TeacherID,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter query.Filter, ords []core.DBOrdering, page query.Page) ([]Summary, query.Pagination, error) {
	courses, total, err := svc.repo.QueryCourses(ctx, filter, ords, page)
	if err != nil {
		return nil, query.Pagination{}, errors.Wrap(err, "querying courses")
	}
	return courses, query.NewPagination(total, page), nil
}

func (svc *Service) List(ctx context.Context, filter query.Filter) ([]Course, error) {
	return svc.repo.ListCourses(ctx, filter)
}

func (svc *Service) Count(ctx context.Context) (int, error) {
	return svc.repo.CountCourses(ctx)
}

func (svc *Service) Update(ctx context.Context, c Course, uc UpdateCourse) (Course, error) {
	c.Name = uc.Name
	c.Code = uc.Code
	c.Description = nullableString(uc.Description)
	c.TeacherID = uc.TeacherID
	return svc.repo.UpdateCourse(ctx, c)
}

// Delete removes the course together with its enrollments and grades.
func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteCourse(ctx, id)
}
