package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
	sqlxrepos "github.com/sistemanotas/notas/storage/database/sqlx"
	testutil "github.com/sistemanotas/notas/tests"
)

func TestEnrollmentRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewEnrollmentRepository(db)

	carla := testutil.CreateUser(t, usrRepo, "Carla", "carla@test.pe", "", user.RoleTeacher, "")
	ana := testutil.CreateUser(t, usrRepo, "Ana", "ana@test.pe", "", user.RoleStudent, "A001")
	beto := testutil.CreateUser(t, usrRepo, "Beto", "beto@test.pe", "", user.RoleStudent, "B001")
	mat := testutil.CreateCourse(t, courseRepo, "Matemática", "MAT-101", carla.ID)
	fis := testutil.CreateCourse(t, courseRepo, "Física", "FIS-101", 0)

	e1 := testutil.Enroll(t, repo, beto.ID, mat.ID)
	e2 := testutil.Enroll(t, repo, ana.ID, mat.ID)
	e3 := testutil.Enroll(t, repo, ana.ID, fis.ID)

	t.Run("duplicate", func(t *testing.T) {
		_, err := repo.CreateEnrollment(ctx, enrollment.Enrollment{StudentID: ana.ID, CourseID: mat.ID})
		assert.True(t, errors.Is(err, core.ErrConflict), "err = %v", err)
	})

	t.Run("is enrolled", func(t *testing.T) {
		ok, err := repo.IsEnrolled(ctx, ana.ID, fis.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.IsEnrolled(ctx, beto.ID, fis.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("list", func(t *testing.T) {
		tests := []struct {
			name    string
			filter  query.Filter
			wantIDs []int
		}{
			{name: "course, by student name", filter: query.Eq(query.FieldCourseID, mat.ID), wantIDs: []int{e2.ID, e1.ID}},
			{name: "teacher", filter: query.RoleFilter{Scope: query.ScopeTeacher, ActorID: carla.ID}, wantIDs: []int{e2.ID, e1.ID}},
			{name: "student", filter: query.RoleFilter{Scope: query.ScopeStudent, ActorID: beto.ID}, wantIDs: []int{e1.ID}},
			{name: "all", filter: nil, wantIDs: []int{e2.ID, e3.ID, e1.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				list, err := repo.ListEnrollments(ctx, tt.filter)
				require.NoError(t, err)
				ids := make([]int, 0, len(list))
				for _, e := range list {
					ids = append(ids, e.ID)
				}
				assert.Equal(t, tt.wantIDs, ids)
			})
		}

		list, err := repo.ListEnrollments(ctx, query.Eq(query.FieldStudentID, beto.ID))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Beto", list[0].Student.Name)
		assert.Equal(t, "Matemática", list[0].Course.Name)
		require.NotNil(t, list[0].Course.Teacher)
		assert.Equal(t, "Carla", list[0].Course.Teacher.Name)
	})

	t.Run("replace", func(t *testing.T) {
		require.NoError(t, repo.DeleteStudentEnrollments(ctx, ana.ID))
		ids, err := repo.ListStudentCourseIDs(ctx, ana.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)

		require.NoError(t, repo.InsertEnrollments(ctx, ana.ID, []int{fis.ID, mat.ID}))
		ids, err = repo.ListStudentCourseIDs(ctx, ana.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{mat.ID, fis.ID}, ids)

		ids, err = repo.ListStudentCourseIDs(ctx, beto.ID)
		require.NoError(t, err)
		assert.Equal(t, []int{mat.ID}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteEnrollment(ctx, e1.ID))
		_, err := repo.GetEnrollmentByID(ctx, e1.ID)
		assert.True(t, errors.Is(err, enrollment.ErrNotFound), "err = %v", err)
		err = repo.DeleteEnrollment(ctx, e1.ID)
		assert.True(t, errors.Is(err, core.ErrNotFound), "err = %v", err)
	})
}
