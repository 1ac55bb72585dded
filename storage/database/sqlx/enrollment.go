package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

// columns and joins shared by the enrollment and grade detail queries
const (
	studentCourseColumns = `s.name AS student_name, s.email AS student_email, s.code AS student_code,
		c.name AS course_name, c.code AS course_code, c.description AS course_description,
		c.teacher_id AS course_teacher_id, t.name AS teacher_name, t.email AS teacher_email`

	studentCourseJoins = ` JOIN users s ON s.id = %[1]s.student_id
		JOIN courses c ON c.id = %[1]s.course_id
		LEFT JOIN users t ON t.id = c.teacher_id`
)

func joinsFor(alias string) string {
	return fmt.Sprintf(studentCourseJoins, alias)
}

type studentCourseRow struct {
	StudentName       string      `db:"student_name"`
	StudentEmail      string      `db:"student_email"`
	StudentCode       null.String `db:"student_code"`
	CourseName        string      `db:"course_name"`
	CourseCode        string      `db:"course_code"`
	CourseDescription null.String `db:"course_description"`
	CourseTeacherID   null.Int    `db:"course_teacher_id"`
	TeacherName       null.String `db:"teacher_name"`
	TeacherEmail      null.String `db:"teacher_email"`
}

func (r studentCourseRow) student(id int) user.Brief {
	return user.Brief{ID: id, Name: r.StudentName, Email: r.StudentEmail, Code: r.StudentCode}
}

func (r studentCourseRow) course(id int) course.Brief {
	return course.Brief{
		ID:          id,
		Name:        r.CourseName,
		Code:        r.CourseCode,
		Description: r.CourseDescription,
		Teacher:     teacherBrief(r.CourseTeacherID, r.TeacherName, r.TeacherEmail),
	}
}

const enrollmentColumns = "e.id, e.student_id, e.course_id, e.created_at"

type enrollmentRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	CourseID  int       `db:"course_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:        r.ID,
		StudentID: r.StudentID,
		CourseID:  r.CourseID,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type enrollmentDetailRow struct {
	enrollmentRow
	studentCourseRow
}

func (r enrollmentDetailRow) toDetail() enrollment.Detail {
	return enrollment.Detail{
		Enrollment: r.toEnrollment(),
		Student:    r.student(r.StudentID),
		Course:     r.course(r.CourseID),
	}
}

type enrollmentRepository struct {
	baseRepository
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(exec core.DBExecutor) *enrollmentRepository {
	return &enrollmentRepository{baseRepository{exec: exec}}
}

func (repo enrollmentRepository) CreateEnrollment(ctx context.Context, e enrollment.Enrollment, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	id, err := repo.insert(ctx, repo.getExec(exec),
		"INSERT INTO enrollments (student_id, course_id, created_at) VALUES (?, ?, ?) RETURNING id",
		e.StudentID, e.CourseID, e.CreatedAt.UTC(),
	)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(mapErr(err, nil, enrollment.ErrAlreadyEnrolled), "inserting enrollment")
	}
	e.ID = id
	return e, nil
}

func (repo enrollmentRepository) GetEnrollmentByID(ctx context.Context, id int, exec ...core.DBExecutor) (enrollment.Enrollment, error) {
	var row enrollmentRow
	err := repo.get(ctx, repo.getExec(exec), &row, "SELECT "+enrollmentColumns+" FROM enrollments e WHERE e.id = ?", id)
	if err != nil {
		return enrollment.Enrollment{}, mapErr(err, enrollment.ErrNotFound, nil)
	}
	return row.toEnrollment(), nil
}

func (repo enrollmentRepository) IsEnrolled(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) (bool, error) {
	n, err := repo.count(ctx, repo.getExec(exec),
		"SELECT COUNT(*) FROM enrollments WHERE student_id = ? AND course_id = ?", studentID, courseID)
	if err != nil {
		return false, errors.Wrap(err, "counting enrollments")
	}
	return n > 0, nil
}

func (repo enrollmentRepository) ListEnrollments(ctx context.Context, filter query.Filter) ([]enrollment.Detail, error) {
	where, args, err := whereClause(query.Enrollments, filter)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + enrollmentColumns + ", " + studentCourseColumns + " FROM enrollments e" +
		joinsFor("e") + where + " ORDER BY s.name ASC, e.id ASC"

	var rows []enrollmentDetailRow
	if err = repo.selectAll(ctx, repo.exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	enrollments := make([]enrollment.Detail, 0, len(rows))
	for _, r := range rows {
		enrollments = append(enrollments, r.toDetail())
	}
	return enrollments, nil
}

func (repo enrollmentRepository) ListStudentCourseIDs(ctx context.Context, studentID int) ([]int, error) {
	ids := make([]int, 0)
	err := repo.selectAll(ctx, repo.exec, &ids,
		"SELECT course_id FROM enrollments WHERE student_id = ? ORDER BY course_id", studentID)
	return ids, errors.Wrap(err, "selecting course ids")
}

func (repo enrollmentRepository) InsertEnrollments(ctx context.Context, studentID int, courseIDs []int, exec ...core.DBExecutor) error {
	ex := repo.getExec(exec)
	now := time.Now().UTC()
	for _, courseID := range courseIDs {
		_, err := repo.execute(ctx, ex,
			"INSERT INTO enrollments (student_id, course_id, created_at) VALUES (?, ?, ?)", studentID, courseID, now)
		if err != nil {
			return mapErr(err, nil, enrollment.ErrAlreadyEnrolled)
		}
	}
	return nil
}

func (repo enrollmentRepository) DeleteEnrollment(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "enrollments", id, enrollment.ErrNotFound)
}

func (repo enrollmentRepository) DeleteStudentEnrollments(ctx context.Context, studentID int, exec ...core.DBExecutor) error {
	_, err := repo.execute(ctx, repo.getExec(exec), "DELETE FROM enrollments WHERE student_id = ?", studentID)
	return errors.Wrap(err, "deleting enrollments")
}
