package grade_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/query"
	"github.com/sistemanotas/notas/core/user"
	sqlxrepos "github.com/sistemanotas/notas/storage/database/sqlx"
	testutil "github.com/sistemanotas/notas/tests"
)

func TestService_Upsert(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	enrollRepo := sqlxrepos.NewEnrollmentRepository(db)
	gradeRepo := sqlxrepos.NewGradeRepository(db)
	svc := grade.NewService(core.NewTestConfig(), db, gradeRepo, enrollRepo)

	ana := testutil.CreateUser(t, usrRepo, "Ana", "ana@test.pe", "", user.RoleStudent, "A001")
	beto := testutil.CreateUser(t, usrRepo, "Beto", "beto@test.pe", "", user.RoleStudent, "B001")
	mat := testutil.CreateCourse(t, courseRepo, "Matemática", "MAT-101", 0)
	testutil.Enroll(t, enrollRepo, ana.ID, mat.ID)

	count := func(t *testing.T) int {
		grades, err := svc.List(ctx, query.Eq(query.FieldCourseID, mat.ID))
		require.NoError(t, err)
		return len(grades)
	}

	t.Run("not enrolled", func(t *testing.T) {
		_, err := svc.Upsert(ctx, beto.ID, mat.ID, 12)
		assert.True(t, errors.Is(err, core.ErrNotEnrolled), "err = %v", err)
		assert.Zero(t, count(t))
	})

	t.Run("out of bounds", func(t *testing.T) {
		for _, v := range []float64{-0.5, 20.01} {
			_, err := svc.Upsert(ctx, ana.ID, mat.ID, v)
			var vErr *core.ValidationError
			require.True(t, errors.As(err, &vErr), "value %v: err = %v", v, err)
			assert.Equal(t, "value", vErr.Fields[0].Field)
		}
		assert.Zero(t, count(t))
	})

	t.Run("idempotent", func(t *testing.T) {
		g1, err := svc.Upsert(ctx, ana.ID, mat.ID, 0)
		require.NoError(t, err)
		g2, err := svc.Upsert(ctx, ana.ID, mat.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, g1.ID, g2.ID)
		assert.Equal(t, 1, count(t))

		g3, err := svc.Upsert(ctx, ana.ID, mat.ID, 20)
		require.NoError(t, err)
		assert.Equal(t, g1.ID, g3.ID)
		assert.Equal(t, 20.0, g3.Value)
		assert.Equal(t, 1, count(t))
	})

	t.Run("query", func(t *testing.T) {
		grades, pag, err := svc.Query(ctx, query.RoleFilter{Scope: query.ScopeStudent, ActorID: ana.ID}, nil, query.NewPage("", ""))
		require.NoError(t, err)
		require.Len(t, grades, 1)
		assert.Equal(t, query.Pagination{Total: 1, Page: 1, Limit: 10, TotalPages: 1}, pag)

		grades, pag, err = svc.Query(ctx, query.RoleFilter{Scope: query.ScopeStudent, ActorID: beto.ID}, nil, query.NewPage("", ""))
		require.NoError(t, err)
		assert.Empty(t, grades)
		assert.Equal(t, 0, pag.TotalPages)
	})
}
