package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
)

const courseColumns = "c.id, c.name, c.code, c.description, c.teacher_id, c.created_at"

type courseRow struct {
	ID          int         `db:"id"`
	Name        string      `db:"name"`
	Code        string      `db:"code"`
	Description null.String `db:"description"`
	TeacherID   null.Int    `db:"teacher_id"`
	CreatedAt   time.Time   `db:"created_at"`
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:          r.ID,
		Name:        r.Name,
		Code:        r.Code,
		Description: r.Description,
		TeacherID:   r.TeacherID,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

// teacherBrief returns the course teacher, nil when unassigned.
func teacherBrief(id null.Int, name, email null.String) *user.Brief {
	if !id.Valid {
		return nil
	}
	return &user.Brief{ID: id.Int, Name: name.String, Email: email.String}
}

type courseSummaryRow struct {
	courseRow
	TeacherName     null.String `db:"teacher_name"`
	TeacherEmail    null.String `db:"teacher_email"`
	EnrollmentCount int         `db:"enrollment_count"`
	GradeCount      int         `db:"grade_count"`
}

func (r courseSummaryRow) toSummary() course.Summary {
	return course.Summary{
		Course:          r.toCourse(),
		Teacher:         teacherBrief(r.TeacherID, r.TeacherName, r.TeacherEmail),
		EnrollmentCount: r.EnrollmentCount,
		GradeCount:      r.GradeCount,
	}
}

type courseRepository struct {
	baseRepository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{baseRepository{exec: exec}}
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	id, err := repo.insert(ctx, repo.getExec(exec),
		"INSERT INTO courses (name, code, description, teacher_id, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
		c.Name, c.Code, c.Description, c.TeacherID, c.CreatedAt.UTC(),
	)
	if err != nil {
		return course.Course{}, errors.Wrap(mapErr(err, nil, course.ErrCodeExists), "inserting course")
	}
	c.ID = id
	return c, nil
}

func (repo courseRepository) getBy(ctx context.Context, exec core.DBExecutor, cond string, arg interface{}) (course.Course, error) {
	var row courseRow
	if err := repo.get(ctx, exec, &row, "SELECT "+courseColumns+" FROM courses c WHERE "+cond, arg); err != nil {
		return course.Course{}, mapErr(err, course.ErrNotFound, nil)
	}
	return row.toCourse(), nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id int, exec ...core.DBExecutor) (course.Course, error) {
	return repo.getBy(ctx, repo.getExec(exec), "c.id = ?", id)
}

func (repo courseRepository) GetCourseByCode(ctx context.Context, code string, exec ...core.DBExecutor) (course.Course, error) {
	return repo.getBy(ctx, repo.getExec(exec), "c.code = ?", code)
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter query.Filter, ords []core.DBOrdering, page query.Page) ([]course.Summary, int, error) {
	where, args, err := whereClause(query.Courses, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := repo.count(ctx, repo.exec, "SELECT COUNT(*) FROM courses c"+where, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	q := "SELECT " + courseColumns + `, t.name AS teacher_name, t.email AS teacher_email,
		(SELECT COUNT(*) FROM enrollments ce WHERE ce.course_id = c.id) AS enrollment_count,
		(SELECT COUNT(*) FROM grades cg WHERE cg.course_id = c.id) AS grade_count
		FROM courses c LEFT JOIN users t ON t.id = c.teacher_id` +
		where + orderByClause(query.Courses, ords) + " LIMIT ? OFFSET ?"

	var rows []courseSummaryRow
	if err = repo.selectAll(ctx, repo.exec, &rows, q, append(args, page.Limit, page.Offset())...); err != nil {
		return nil, 0, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Summary, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toSummary())
	}
	return courses, total, nil
}

func (repo courseRepository) ListCourses(ctx context.Context, filter query.Filter) ([]course.Course, error) {
	where, args, err := whereClause(query.Courses, filter)
	if err != nil {
		return nil, err
	}
	var rows []courseRow
	q := "SELECT " + courseColumns + " FROM courses c" + where + " ORDER BY c.name ASC, c.id ASC"
	if err = repo.selectAll(ctx, repo.exec, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo courseRepository) MissingCourseIDs(ctx context.Context, ids []int, exec ...core.DBExecutor) ([]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q, args, err := sqlx.In("SELECT id FROM courses WHERE id IN (?)", ids)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var found []int
	if err = repo.selectAll(ctx, repo.getExec(exec), &found, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting course ids")
	}

	exists := make(map[int]bool, len(found))
	for _, id := range found {
		exists[id] = true
	}
	var missing []int
	for _, id := range ids {
		if !exists[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (repo courseRepository) CountCourses(ctx context.Context) (int, error) {
	n, err := repo.count(ctx, repo.exec, "SELECT COUNT(*) FROM courses")
	return n, errors.Wrap(err, "counting courses")
}

func (repo courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	res, err := repo.execute(ctx, repo.getExec(exec),
		"UPDATE courses SET name = ?, code = ?, description = ?, teacher_id = ? WHERE id = ?",
		c.Name, c.Code, c.Description, c.TeacherID, c.ID,
	)
	if err != nil {
		return course.Course{}, errors.Wrap(mapErr(err, nil, course.ErrCodeExists), "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return c, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return repo.deleteByID(ctx, repo.getExec(exec), "courses", id, course.ErrNotFound)
}
