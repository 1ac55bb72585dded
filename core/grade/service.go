package grade

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/query"
)

var (
	// errors
	ErrNotFound    = core.NewError(core.ErrNotFound, "Nota no encontrada")
	ErrNotEnrolled = core.NewError(core.ErrNotEnrolled, "El alumno no está matriculado en el curso")
)

type (
	Repository interface {
		// UpsertGrade inserts the grade or updates the value of the existing one for the same student and course.
		UpsertGrade(ctx context.Context, g Grade, exec ...core.DBExecutor) (Grade, error)
		GetGradeByID(ctx context.Context, id int, exec ...core.DBExecutor) (Grade, error)
		// QueryGrades returns one page of the grades matching filter and the total number of matches.
		QueryGrades(ctx context.Context, filter query.Filter, ords []core.DBOrdering, page query.Page) ([]Detail, int, error)
		// ListGrades returns all grades matching filter, ordered by student name.
		ListGrades(ctx context.Context, filter query.Filter) ([]Detail, error)
		DeleteGrade(ctx context.Context, id int, exec ...core.DBExecutor) error
	}

	// EnrollmentChecker tells whether a student is enrolled in a course.
	EnrollmentChecker interface {
		IsEnrolled(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) (bool, error)
	}

	Service struct {
		db          core.DB
		repo        Repository
		enrollments EnrollmentChecker
		bounds      Bounds
	}
)

func NewService(conf *core.Config, db core.DB, repo Repository, enrollments EnrollmentChecker) *Service {
	core.MustNotBeNil(map[string]interface{}{
		"conf":        conf,
		"db":          db,
		"repo":        repo,
		"enrollments": enrollments,
	})
	return &Service{db: db, repo: repo, enrollments: enrollments, bounds: NewBounds(conf)}
}

func (svc *Service) Bounds() Bounds { return svc.bounds }

// Upsert writes the grade of a student in a course. The value must be within bounds and the student
// must be enrolled in the course. Writing the same pair again updates the existing grade.
func (svc *Service) Upsert(ctx context.Context, studentID, courseID int, value float64) (Grade, error) {
	if err := svc.bounds.Check(value); err != nil {
		return Grade{}, err
	}

	var g Grade
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		enrolled, err := svc.enrollments.IsEnrolled(ctx, studentID, courseID, tx)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return ErrNotEnrolled
		}

		now := time.Now().UTC()
		g, err = svc.repo.UpsertGrade(ctx, Grade{
			StudentID: studentID,
			CourseID:  courseID,
			Value:     value,
			CreatedAt: now,
			UpdatedAt: now,
		}, tx)
		return err
	})
	if err != nil {
		return Grade{}, err
	}
	return g, nil
}

func (svc *Service) GetByID(ctx context.Context, id int) (Grade, error) {
	return svc.repo.GetGradeByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter query.Filter, ords []core.DBOrdering, page query.Page) ([]Detail, query.Pagination, error) {
	grades, total, err := svc.repo.QueryGrades(ctx, filter, ords, page)
	if err != nil {
		return nil, query.Pagination{}, errors.Wrap(err, "querying grades")
	}
	return grades, query.NewPagination(total, page), nil
}

func (svc *Service) List(ctx context.Context, filter query.Filter) ([]Detail, error) {
	return svc.repo.ListGrades(ctx, filter)
}

func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteGrade(ctx, id)
}
