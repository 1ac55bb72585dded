// Package dashboard builds the administrator overview: user and course counts plus a feed of recent activity.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/sistemanotas/notas/core"
)

const (
	perKindLimit = 5
	feedLimit    = 10
)

type ActivityType string

const (
	ActivityEnrollment ActivityType = "ENROLLMENT"
	ActivityGrade      ActivityType = "GRADE"
	ActivityCourse     ActivityType = "COURSE"
)

type (
	// Event is a raw row of the activity feed. StudentName is empty for courses.
	Event struct {
		ID          int       `db:"id"`
		StudentName string    `db:"student_name"`
		CourseName  string    `db:"course_name"`
		CreatedAt   time.Time `db:"created_at"`
	}

	Activity struct {
		ID        string       `json:"id"`
		Type      ActivityType `json:"type"`
		Title     string       `json:"title"`
		CreatedAt time.Time    `json:"createdAt"`
	}

	Summary struct {
		TeacherCount   int        `json:"teacherCount"`
		StudentCount   int        `json:"studentCount"`
		CourseCount    int        `json:"courseCount"`
		RecentActivity []Activity `json:"recentActivity"`
	}

	Repository interface {
		CountTeachers(ctx context.Context) (int, error)
		CountStudents(ctx context.Context) (int, error)
		CountCourses(ctx context.Context) (int, error)
		RecentEnrollments(ctx context.Context, limit int) ([]Event, error)
		RecentGrades(ctx context.Context, limit int) ([]Event, error)
		RecentCourses(ctx context.Context, limit int) ([]Event, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	core.MustNotBeNil(map[string]interface{}{"repo": repo})
	return &Service{repo: repo}
}

func (svc *Service) Summary(ctx context.Context) (Summary, error) {
	var (
		sum Summary
		err error
	)
	if sum.TeacherCount, err = svc.repo.CountTeachers(ctx); err != nil {
		return Summary{}, errors.Wrap(err, "counting teachers")
	}
	if sum.StudentCount, err = svc.repo.CountStudents(ctx); err != nil {
		return Summary{}, errors.Wrap(err, "counting students")
	}
	if sum.CourseCount, err = svc.repo.CountCourses(ctx); err != nil {
		return Summary{}, errors.Wrap(err, "counting courses")
	}
	if sum.RecentActivity, err = svc.recentActivity(ctx); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// recentActivity merges the latest enrollments, grades and courses, newest first.
func (svc *Service) recentActivity(ctx context.Context) ([]Activity, error) {
	enrollments, err := svc.repo.RecentEnrollments(ctx, perKindLimit)
	if err != nil {
		return nil, errors.Wrap(err, "listing recent enrollments")
	}
	grades, err := svc.repo.RecentGrades(ctx, perKindLimit)
	if err != nil {
		return nil, errors.Wrap(err, "listing recent grades")
	}
	courses, err := svc.repo.RecentCourses(ctx, perKindLimit)
	if err != nil {
		return nil, errors.Wrap(err, "listing recent courses")
	}

	feed := make([]Activity, 0, len(enrollments)+len(grades)+len(courses))
	for _, e := range enrollments {
		feed = append(feed, Activity{
			ID:        fmt.Sprintf("enroll-%d", e.ID),
			Type:      ActivityEnrollment,
			Title:     fmt.Sprintf("Alumno %s matriculado en %s", e.StudentName, e.CourseName),
			CreatedAt: e.CreatedAt,
		})
	}
	for _, e := range grades {
		feed = append(feed, Activity{
			ID:        fmt.Sprintf("grade-%d", e.ID),
			Type:      ActivityGrade,
			Title:     fmt.Sprintf("Nota registrada para %s en %s", e.StudentName, e.CourseName),
			CreatedAt: e.CreatedAt,
		})
	}
	for _, e := range courses {
		feed = append(feed, Activity{
			ID:        fmt.Sprintf("course-%d", e.ID),
			Type:      ActivityCourse,
			Title:     fmt.Sprintf("Nuevo curso creado: %s", e.CourseName),
			CreatedAt: e.CreatedAt,
		})
	}

	sort.SliceStable(feed, func(i, j int) bool { return feed[i].CreatedAt.After(feed[j].CreatedAt) })
	if len(feed) > feedLimit {
		feed = feed[:feedLimit]
	}
	return feed, nil
}
