package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewError(core.ErrNotFound, "Matrícula no encontrada")
	ErrAlreadyEnrolled = core.NewError(core.ErrConflict, "Alumno ya está matriculado")
	ErrStudentNotFound = core.NewError(core.ErrNotFound, "Alumno no encontrado")

	errInvalidStudentText = "Alumno inválido"
	errCourseNotFoundText = "Curso no encontrado"
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, e Enrollment, exec ...core.DBExecutor) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id int, exec ...core.DBExecutor) (Enrollment, error)
		IsEnrolled(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) (bool, error)
		// ListEnrollments returns the enrollments matching filter, ordered by student name.
		ListEnrollments(ctx context.Context, filter query.Filter) ([]Detail, error)
		ListStudentCourseIDs(ctx context.Context, studentID int) ([]int, error)
		InsertEnrollments(ctx context.Context, studentID int, courseIDs []int, exec ...core.DBExecutor) error
		DeleteEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error
		DeleteStudentEnrollments(ctx context.Context, studentID int, exec ...core.DBExecutor) error
	}

	// GradeRemover deletes the grades that would be left without an enrollment.
	GradeRemover interface {
		DeleteGradeFor(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) error
		DeleteStudentGradesExcept(ctx context.Context, studentID int, keepCourseIDs []int, exec ...core.DBExecutor) error
	}

	Service struct {
		db         core.DB
		repo       Repository
		userRepo   user.Repository
		courseRepo course.Repository
		grades     GradeRemover
	}
)

func NewService(db core.DB, repo Repository, userRepo user.Repository, courseRepo course.Repository, grades GradeRemover) *Service {
	core.MustNotBeNil(map[string]interface{}{
		"db":         db,
		"repo":       repo,
		"userRepo":   userRepo,
		"courseRepo": courseRepo,
		"grades":     grades,
	})
	return &Service{db: db, repo: repo, userRepo: userRepo, courseRepo: courseRepo, grades: grades}
}

// Enroll registers the student in the course. The student must be an ALUMNO and the course must exist.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	student, err := svc.userRepo.GetUserByID(ctx, ne.StudentID)
	if err != nil && !errors.Is(err, user.ErrNotFound) {
		return Enrollment{}, errors.Wrap(err, "finding student")
	}
	if err != nil || !student.IsStudent() {
		return Enrollment{}, core.NewFieldError("studentId", errInvalidStudentText)
	}

	if _, err = svc.courseRepo.GetCourseByID(ctx, ne.CourseID); err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return Enrollment{}, core.NewFieldError("courseId", errCourseNotFoundText)
		}
		return Enrollment{}, errors.Wrap(err, "finding course")
	}

	enrolled, err := svc.repo.IsEnrolled(ctx, ne.StudentID, ne.CourseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking enrollment")
	}
	if enrolled {
		return Enrollment{}, ErrAlreadyEnrolled
	}

	return svc.repo.CreateEnrollment(ctx, Enrollment{
		StudentID: ne.StudentID,
		CourseID:  ne.CourseID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

func (svc *Service) IsEnrolled(ctx context.Context, studentID, courseID int) (bool, error) {
	return svc.repo.IsEnrolled(ctx, studentID, courseID)
}

func (svc *Service) List(ctx context.Context, filter query.Filter) ([]Detail, error) {
	return svc.repo.ListEnrollments(ctx, filter)
}

func (svc *Service) StudentCourseIDs(ctx context.Context, studentID int) ([]int, error) {
	return svc.repo.ListStudentCourseIDs(ctx, studentID)
}

// Delete removes the enrollment and the grade the student had in that course.
func (svc *Service) Delete(ctx context.Context, id int) error {
	return core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		e, err := svc.repo.GetEnrollmentByID(ctx, id, tx)
		if err != nil {
			return err
		}
		if err = svc.grades.DeleteGradeFor(ctx, e.StudentID, e.CourseID, tx); err != nil {
			return errors.Wrap(err, "deleting grade")
		}
		return errors.Wrap(svc.repo.DeleteEnrollment(ctx, id, tx), "deleting enrollment")
	})
}

// Replace makes courseIDs the exact set of courses the student is enrolled in. Grades of the courses
// left are deleted. Either everything is applied or nothing is. It returns the deduplicated ids.
func (svc *Service) Replace(ctx context.Context, studentID int, courseIDs []int) ([]int, error) {
	ids := dedupe(courseIDs)

	student, err := svc.userRepo.GetUserByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, errors.Wrap(err, "finding student")
	}
	if !student.IsStudent() {
		return nil, core.NewFieldError("studentId", errInvalidStudentText)
	}

	err = core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		missing, err := svc.courseRepo.MissingCourseIDs(ctx, ids, tx)
		if err != nil {
			return errors.Wrap(err, "checking courses")
		}
		if len(missing) > 0 {
			return core.NewFieldError("courseIds", fmt.Sprintf("cursos no encontrados: %v", missing))
		}

		if err = svc.repo.DeleteStudentEnrollments(ctx, studentID, tx); err != nil {
			return errors.Wrap(err, "deleting enrollments")
		}
		if err = svc.grades.DeleteStudentGradesExcept(ctx, studentID, ids, tx); err != nil {
			return errors.Wrap(err, "deleting grades")
		}
		return errors.Wrap(svc.repo.InsertEnrollments(ctx, studentID, ids, tx), "inserting enrollments")
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
