package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoMock struct {
	teachers, students, courses int
	enrollments, grades, recent []Event
	err                         error
}

func (m *repoMock) CountTeachers(context.Context) (int, error) { return m.teachers, nil }
func (m *repoMock) CountStudents(context.Context) (int, error) { return m.students, nil }
func (m *repoMock) CountCourses(context.Context) (int, error)  { return m.courses, m.err }
func (m *repoMock) RecentEnrollments(_ context.Context, limit int) ([]Event, error) {
	return head(m.enrollments, limit), nil
}
func (m *repoMock) RecentGrades(_ context.Context, limit int) ([]Event, error) {
	return head(m.grades, limit), nil
}
func (m *repoMock) RecentCourses(_ context.Context, limit int) ([]Event, error) {
	return head(m.recent, limit), nil
}

func head(evs []Event, n int) []Event {
	if len(evs) > n {
		return evs[:n]
	}
	return evs
}

func events(n int, start time.Time, step time.Duration) []Event {
	evs := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		evs = append(evs, Event{
			ID:          n - i,
			StudentName: "Ana",
			CourseName:  "Matemática",
			CreatedAt:   start.Add(-time.Duration(i) * step),
		})
	}
	return evs
}

func TestService_Summary(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &repoMock{
		teachers:    2,
		students:    30,
		courses:     4,
		enrollments: events(6, now, time.Hour),
		grades:      events(6, now.Add(-30*time.Minute), time.Hour),
		recent:      events(2, now.Add(-10*time.Hour), time.Hour),
	}
	sum, err := NewService(repo).Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.TeacherCount)
	assert.Equal(t, 30, sum.StudentCount)
	assert.Equal(t, 4, sum.CourseCount)
	require.Len(t, sum.RecentActivity, 10)

	for i := 1; i < len(sum.RecentActivity); i++ {
		assert.False(t, sum.RecentActivity[i].CreatedAt.After(sum.RecentActivity[i-1].CreatedAt))
	}
	first := sum.RecentActivity[0]
	assert.Equal(t, "enroll-6", first.ID)
	assert.Equal(t, ActivityEnrollment, first.Type)
	assert.Equal(t, "Alumno Ana matriculado en Matemática", first.Title)

	second := sum.RecentActivity[1]
	assert.Equal(t, ActivityGrade, second.Type)
	assert.Equal(t, "Nota registrada para Ana en Matemática", second.Title)

	// courses are older than the 10 newest events
	for _, a := range sum.RecentActivity {
		assert.NotEqual(t, ActivityCourse, a.Type)
	}
}

func TestService_SummaryEmpty(t *testing.T) {
	sum, err := NewService(&repoMock{}).Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.RecentActivity)
	assert.NotNil(t, sum.RecentActivity)
}

func TestService_SummaryError(t *testing.T) {
	_, err := NewService(&repoMock{err: errors.New("boom")}).Summary(context.Background())
	assert.Error(t, err)
}
