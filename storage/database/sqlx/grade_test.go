package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

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

func gradeIDs(grades []grade.Detail) []int {
	ids := make([]int, 0, len(grades))
	for _, g := range grades {
		ids = append(ids, g.ID)
	}
	return ids
}

func TestGradeRepository_UpsertGrade(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewGradeRepository(db)

	ana := testutil.CreateUser(t, usrRepo, "Ana", "ana@test.pe", "", user.RoleStudent, "A001")
	mat := testutil.CreateCourse(t, courseRepo, "Matemática", "MAT-101", 0)

	first := testutil.SetGrade(t, repo, ana.ID, mat.ID, 11)
	assert.Equal(t, 11.0, first.Value)

	later := time.Now().UTC().Add(time.Minute)
	second, err := repo.UpsertGrade(ctx, grade.Grade{
		StudentID: ana.ID,
		CourseID:  mat.ID,
		Value:     17.5,
		CreatedAt: later,
		UpdatedAt: later,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID, "a second write for the same pair updates the grade")
	assert.Equal(t, 17.5, second.Value)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt), "createdAt is kept")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updatedAt moves forward")

	grades, err := repo.ListGrades(ctx, query.Eq(query.FieldStudentID, ana.ID))
	require.NoError(t, err)
	assert.Len(t, grades, 1)
}

func TestGradeRepository_Scopes(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewGradeRepository(db)

	carla := testutil.CreateUser(t, usrRepo, "Carla", "carla@test.pe", "", user.RoleTeacher, "")
	diego := testutil.CreateUser(t, usrRepo, "Diego", "diego@test.pe", "", user.RoleTeacher, "")
	ana := testutil.CreateUser(t, usrRepo, "Ana", "ana@test.pe", "", user.RoleStudent, "A001")
	beto := testutil.CreateUser(t, usrRepo, "Beto", "beto@test.pe", "", user.RoleStudent, "B001")
	mat := testutil.CreateCourse(t, courseRepo, "Matemática", "MAT-101", carla.ID)
	his := testutil.CreateCourse(t, courseRepo, "Historia", "HIS-101", diego.ID)

	g1 := testutil.SetGrade(t, repo, ana.ID, mat.ID, 14)
	g2 := testutil.SetGrade(t, repo, beto.ID, mat.ID, 9)
	g3 := testutil.SetGrade(t, repo, ana.ID, his.ID, 18)

	page := query.NewPage("", "")
	tests := []struct {
		name      string
		filter    query.Filter
		wantIDs   []int
		wantTotal int
	}{
		{name: "all", filter: query.RoleFilter{Scope: query.ScopeAll}, wantIDs: []int{g3.ID, g2.ID, g1.ID}, wantTotal: 3},
		{name: "teacher", filter: query.RoleFilter{Scope: query.ScopeTeacher, ActorID: carla.ID}, wantIDs: []int{g2.ID, g1.ID}, wantTotal: 2},
		{name: "student", filter: query.RoleFilter{Scope: query.ScopeStudent, ActorID: ana.ID}, wantIDs: []int{g3.ID, g1.ID}, wantTotal: 2},
		{
			name:    "teacher with course",
			filter:  query.And(query.RoleFilter{Scope: query.ScopeTeacher, ActorID: diego.ID}, query.Eq(query.FieldCourseID, mat.ID)),
			wantIDs: []int{}, wantTotal: 0,
		},
		{name: "none", filter: query.RoleFilter{Scope: query.ScopeNone}, wantIDs: []int{}, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grades, total, err := repo.QueryGrades(ctx, tt.filter, nil, page)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, tt.wantIDs, gradeIDs(grades))
		})
	}

	t.Run("details", func(t *testing.T) {
		grades, err := repo.ListGrades(ctx, query.Eq(query.FieldCourseID, mat.ID))
		require.NoError(t, err)
		require.Len(t, grades, 2)
		// ordered by student name
		assert.Equal(t, "Ana", grades[0].Student.Name)
		assert.Equal(t, "A001", grades[0].Student.Code.String)
		assert.Equal(t, "Beto", grades[1].Student.Name)
		assert.Equal(t, "MAT-101", grades[0].Course.Code)
		require.NotNil(t, grades[0].Course.Teacher)
		assert.Equal(t, carla.ID, grades[0].Course.Teacher.ID)
	})

	t.Run("not searchable", func(t *testing.T) {
		_, _, err := repo.QueryGrades(ctx, query.Search("ana"), nil, page)
		assert.Error(t, err)
	})
}

func TestGradeRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	repo := sqlxrepos.NewGradeRepository(db)

	ana := testutil.CreateUser(t, usrRepo, "Ana", "ana@test.pe", "", user.RoleStudent, "A001")
	beto := testutil.CreateUser(t, usrRepo, "Beto", "beto@test.pe", "", user.RoleStudent, "B001")
	mat := testutil.CreateCourse(t, courseRepo, "Matemática", "MAT-101", 0)
	fis := testutil.CreateCourse(t, courseRepo, "Física", "FIS-101", 0)
	his := testutil.CreateCourse(t, courseRepo, "Historia", "HIS-101", 0)

	testutil.SetGrade(t, repo, ana.ID, mat.ID, 10)
	testutil.SetGrade(t, repo, ana.ID, fis.ID, 11)
	testutil.SetGrade(t, repo, ana.ID, his.ID, 12)
	betoGrade := testutil.SetGrade(t, repo, beto.ID, mat.ID, 13)

	courseIDsOf := func(studentID int) []int {
		grades, err := repo.ListGrades(ctx, query.Eq(query.FieldStudentID, studentID))
		require.NoError(t, err)
		var ids []int
		for _, g := range grades {
			ids = append(ids, g.CourseID)
		}
		return ids
	}

	require.NoError(t, repo.DeleteStudentGradesExcept(ctx, ana.ID, []int{fis.ID, his.ID}))
	assert.ElementsMatch(t, []int{fis.ID, his.ID}, courseIDsOf(ana.ID))

	require.NoError(t, repo.DeleteGradeFor(ctx, ana.ID, his.ID))
	assert.ElementsMatch(t, []int{fis.ID}, courseIDsOf(ana.ID))

	require.NoError(t, repo.DeleteStudentGradesExcept(ctx, ana.ID, nil))
	assert.Empty(t, courseIDsOf(ana.ID))
	assert.ElementsMatch(t, []int{mat.ID}, courseIDsOf(beto.ID), "other students are untouched")

	require.NoError(t, repo.DeleteGrade(ctx, betoGrade.ID))
	err := repo.DeleteGrade(ctx, betoGrade.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound), "err = %v", err)
}
