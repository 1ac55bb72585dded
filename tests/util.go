package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/user"
	"github.com/sistemanotas/notas/storage/database"
)

// PrepareDB opens a fresh migrated SQLite database in a temporary directory. It is closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Database.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	role user.Role,
	code string,
	createdAt ...time.Time,
) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
	}
	if code != "" {
		usr.Code = null.StringFrom(code)
	}
	if pwd == "" {
		pwd = "notas-test-pwd"
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateCourse creates a course. teacherID 0 leaves it without teacher.
func CreateCourse(t *testing.T, repo course.Repository, name, code string, teacherID int, createdAt ...time.Time) course.Course {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c := course.Course{Name: name, Code: code, CreatedAt: tstamp}
	if teacherID > 0 {
		c.TeacherID = null.IntFrom(teacherID)
	}
	c, err := repo.CreateCourse(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

func Enroll(t *testing.T, repo enrollment.Repository, studentID, courseID int, createdAt ...time.Time) enrollment.Enrollment {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	e, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		StudentID: studentID,
		CourseID:  courseID,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return e
}

// SetGrade writes a grade straight through the repository, without the enrollment check.
func SetGrade(t *testing.T, repo grade.Repository, studentID, courseID int, value float64) grade.Grade {
	t.Helper()
	now := time.Now().UTC()
	g, err := repo.UpsertGrade(context.Background(), grade.Grade{
		StudentID: studentID,
		CourseID:  courseID,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("SetGrade() failed: %v", err)
	}
	return g
}
