package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/query"
)

const gradeColumns = "g.id, g.student_id, g.course_id, g.value, g.created_at, g.updated_at"

type gradeRow struct {
	ID        int       `db:"id"`
	StudentID int       `db:"student_id"`
	CourseID  int       `db:"course_id"`
	Value     float64   `db:"value"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r gradeRow) toGrade() grade.Grade {
	return grade.Grade{
		ID:        r.ID,
		StudentID: r.StudentID,
		CourseID:  r.CourseID,
		Value:     r.Value,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type gradeDetailRow struct {
	gradeRow
	studentCourseRow
}

func (r gradeDetailRow) toDetail() grade.Detail {
	return grade.Detail{
		Grade:   r.toGrade(),
		Student: r.student(r.StudentID),
		Course:  r.course(r.CourseID),
	}
}

func toGradeDetails(rows []gradeDetailRow) []grade.Detail {
	grades := make([]grade.Detail, 0, len(rows))
	for _, r := range rows {
		grades = append(grades, r.toDetail())
	}
	return grades
}

type gradeRepository struct {
	baseRepository
}

var (
	_ grade.Repository        = (*gradeRepository)(nil) // interface compliance check
	_ enrollment.GradeRemover = (*gradeRepository)(nil)
)

func NewGradeRepository(exec core.DBExecutor) *gradeRepository {
	return &gradeRepository{baseRepository{exec: exec}}
}

func (repo gradeRepository) UpsertGrade(ctx context.Context, g grade.Grade, exec ...core.DBExecutor) (grade.Grade, error) {
	ex := repo.getExec(exec)
	id, err := repo.insert(ctx, ex,
		`INSERT INTO grades (student_id, course_id, value, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (student_id, course_id) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		RETURNING id`,
		g.StudentID, g.CourseID, g.Value, g.CreatedAt.UTC(), g.UpdatedAt.UTC(),
	)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "upserting grade")
	}
	return repo.GetGradeByID(ctx, id, ex)
}

func (repo gradeRepository) GetGradeByID(ctx context.Context, id int, exec ...core.DBExecutor) (grade.Grade, error) {
	var row gradeRow
	err := repo.get(ctx, repo.getExec(exec), &row, "SELECT "+gradeColumns+" FROM grades g WHERE g.id = ?", id)
	if err != nil {
		return grade.Grade{}, mapErr(err, grade.ErrNotFound, nil)
	}
	return row.toGrade(), nil
}

func (repo gradeRepository) QueryGrades(ctx context.Context, filter query.Filter, ords []core.DBOrdering, page query.Page) ([]grade.Detail, int, error) {
	where, args, err := whereClause(query.Grades, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := repo.count(ctx, repo.exec, "SELECT COUNT(*) FROM grades g"+where, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting grades")
	}

	q := "SELECT " + gradeColumns + ", " + studentCourseColumns + " FROM grades g" + joinsFor("g") +
		where + orderByClause(query.Grades, ords) + " LIMIT ? OFFSET ?"
	var rows []gradeDetailRow
	if err = repo.selectAll(ctx, repo.exec, &rows, q, append(args, page.Limit, page.Offset())...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting grades")
	}
	return toGradeDetails(rows), total, nil
}

func (repo gradeRepository) ListGrades(ctx context.Context, filter query.Filter) ([]grade.Detail, error) {
	where, args, err := whereClause(query.Grades, filter)
	if err != nil {
		return nil, err
	}
	q := "SELECT " + gradeColumns + ", " + studentCourseColumns + " FROM grades g" + joinsFor("g") +
		where + " ORDER BY s.name ASC, c.name ASC, g.id ASC"

	var rows []gradeDetailRow
	if err = repo.selectAll(ctx, repo.exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting grades")
	}
	return toGradeDetails(rows), nil
}

func (repo gradeRepository) DeleteGrade(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "grades", id, grade.ErrNotFound)
}

func (repo gradeRepository) DeleteGradeFor(ctx context.Context, studentID, courseID int, exec ...core.DBExecutor) error {
	_, err := repo.execute(ctx, repo.getExec(exec),
		"DELETE FROM grades WHERE student_id = ? AND course_id = ?", studentID, courseID)
	return errors.Wrap(err, "deleting grade")
}

func (repo gradeRepository) DeleteStudentGradesExcept(ctx context.Context, studentID int, keepCourseIDs []int, exec ...core.DBExecutor) error {
	q, args := "DELETE FROM grades WHERE student_id = ?", []interface{}{studentID}
	if len(keepCourseIDs) > 0 {
		var err error
		q, args, err = sqlx.In(q+" AND course_id NOT IN (?)", studentID, keepCourseIDs)
		if err != nil {
			return errors.Wrap(err, "building query")
		}
	}
	_, err := repo.execute(ctx, repo.getExec(exec), q, args...)
	return errors.Wrap(err, "deleting grades")
}
