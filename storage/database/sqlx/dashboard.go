package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/dashboard"
	"github.com/sistemanotas/notas/core/user"
)

type dashboardRepository struct {
	baseRepository
}

var _ dashboard.Repository = (*dashboardRepository)(nil) // interface compliance check

func NewDashboardRepository(exec core.DBExecutor) *dashboardRepository {
	return &dashboardRepository{baseRepository{exec: exec}}
}

func (repo dashboardRepository) countRole(ctx context.Context, role user.Role) (int, error) {
	n, err := repo.count(ctx, repo.exec, "SELECT COUNT(*) FROM users WHERE role = ?", string(role))
	return n, errors.Wrapf(err, "counting %s users", role)
}

func (repo dashboardRepository) CountTeachers(ctx context.Context) (int, error) {
	return repo.countRole(ctx, user.RoleTeacher)
}

func (repo dashboardRepository) CountStudents(ctx context.Context) (int, error) {
	return repo.countRole(ctx, user.RoleStudent)
}

func (repo dashboardRepository) CountCourses(ctx context.Context) (int, error) {
	n, err := repo.count(ctx, repo.exec, "SELECT COUNT(*) FROM courses")
	return n, errors.Wrap(err, "counting courses")
}

func (repo dashboardRepository) recent(ctx context.Context, q string, limit int) ([]dashboard.Event, error) {
	events := make([]dashboard.Event, 0, limit)
	if err := repo.selectAll(ctx, repo.exec, &events, q, limit); err != nil {
		return nil, err
	}
	for i := range events {
		events[i].CreatedAt = events[i].CreatedAt.UTC()
	}
	return events, nil
}

func (repo dashboardRepository) RecentEnrollments(ctx context.Context, limit int) ([]dashboard.Event, error) {
	events, err := repo.recent(ctx, `SELECT e.id, s.name AS student_name, c.name AS course_name, e.created_at
		FROM enrollments e JOIN users s ON s.id = e.student_id JOIN courses c ON c.id = e.course_id
		ORDER BY e.created_at DESC, e.id DESC LIMIT ?`, limit)
	return events, errors.Wrap(err, "selecting recent enrollments")
}

func (repo dashboardRepository) RecentGrades(ctx context.Context, limit int) ([]dashboard.Event, error) {
	events, err := repo.recent(ctx, `SELECT g.id, s.name AS student_name, c.name AS course_name, g.updated_at AS created_at
		FROM grades g JOIN users s ON s.id = g.student_id JOIN courses c ON c.id = g.course_id
		ORDER BY g.updated_at DESC, g.id DESC LIMIT ?`, limit)
	return events, errors.Wrap(err, "selecting recent grades")
}

func (repo dashboardRepository) RecentCourses(ctx context.Context, limit int) ([]dashboard.Event, error) {
	events, err := repo.recent(ctx, `SELECT c.id, '' AS student_name, c.name AS course_name, c.created_at
		FROM courses c ORDER BY c.created_at DESC, c.id DESC LIMIT ?`, limit)
	return events, errors.Wrap(err, "selecting recent courses")
}
