package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/sistemanotas/notas/apps/api/echo"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/query"
	testutil "github.com/sistemanotas/notas/tests"
)

func gradeBody(t *testing.T, studentID, courseID int, value float64) []byte {
	return marshallObj(t, map[string]interface{}{"studentId": studentID, "courseId": courseID, "value": value})
}

func Test_gradeApi_upsert(t *testing.T) {
	app := setup(t)
	f := newFixture(t, app)
	carlaToken := app.getToken(t, f.carla)

	var first grade.Grade
	tests := []httpTest{
		{
			name:     "teacher grades in own course",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    carlaToken,
			body:     gradeBody(t, f.ana.ID, f.mat.ID, 14.5),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				decode(t, rec, &first)
				assert.NotZero(t, first.ID)
				assert.Equal(t, f.ana.ID, first.StudentID)
				assert.Equal(t, f.mat.ID, first.CourseID)
				assert.Equal(t, 14.5, first.Value)
			},
		},
		{
			name:     "writing again updates the same grade",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    carlaToken,
			body:     gradeBody(t, f.ana.ID, f.mat.ID, 17),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var g grade.Grade
				decode(t, rec, &g)
				assert.Equal(t, first.ID, g.ID)
				assert.Equal(t, 17.0, g.Value)
				assert.True(t, first.CreatedAt.Equal(g.CreatedAt))
			},
		},
		{
			// a teacher writing to a course taught by someone else
			name:     "teacher grades in other course",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    carlaToken,
			body:     gradeBody(t, f.ana.ID, f.his.ID, 12),
			wantCode: http.StatusForbidden,
			wantData: errData(t, "No tienes permiso para realizar esta acción"),
		},
		{
			name:     "student not enrolled",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    carlaToken,
			body:     gradeBody(t, f.ana.ID, f.fis.ID, 12),
			wantCode: http.StatusBadRequest,
			wantData: errData(t, "El alumno no está matriculado en el curso"),
		},
		{
			name:     "admin grades a student not enrolled",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    app.getToken(t, f.admin),
			body:     gradeBody(t, f.beto.ID, f.his.ID, 12),
			wantCode: http.StatusBadRequest,
			wantData: errData(t, "El alumno no está matriculado en el curso"),
		},
		{
			name:     "value above the maximum",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    carlaToken,
			body:     gradeBody(t, f.beto.ID, f.mat.ID, 20.5),
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, []string{"value"}, fieldsOf(t, rec))
			},
		},
		{
			name:     "value below the minimum",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    carlaToken,
			body:     gradeBody(t, f.beto.ID, f.mat.ID, -1),
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, []string{"value"}, fieldsOf(t, rec))
			},
		},
		{
			name:     "bounds are inclusive",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    carlaToken,
			body:     gradeBody(t, f.beto.ID, f.mat.ID, 20),
			wantCode: http.StatusOK,
		},
		{
			name:     "missing value",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    carlaToken,
			body:     marshallObj(t, map[string]interface{}{"studentId": f.beto.ID, "courseId": f.mat.ID}),
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, []string{"value"}, fieldsOf(t, rec))
			},
		},
		{
			name:     "missing course",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    carlaToken,
			body:     gradeBody(t, f.ana.ID, 9999, 10),
			wantCode: http.StatusNotFound,
			wantData: errData(t, "Curso no encontrado"),
		},
		{
			name:     "student cannot write",
			method:   http.MethodPost,
			path:     "/api/grades",
			token:    app.getToken(t, f.ana),
			body:     gradeBody(t, f.ana.ID, f.mat.ID, 20),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "course taken from the path",
			method:   http.MethodPost,
			path:     fmt.Sprintf("/api/grades/course/%d", f.mat.ID),
			token:    carlaToken,
			body:     gradeBody(t, f.beto.ID, f.his.ID, 9),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var g grade.Grade
				decode(t, rec, &g)
				assert.Equal(t, f.mat.ID, g.CourseID)
				assert.Equal(t, 9.0, g.Value)
			},
		},
	}
	app.run(t, tests)

	// the rejected writes left no rows behind
	grades, err := app.gradeRepo.ListGrades(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, grades, 2)
	for _, g := range grades {
		assert.Equal(t, f.mat.ID, g.CourseID)
	}
}

func Test_gradeApi_query(t *testing.T) {
	app := setup(t)
	f := newFixture(t, app)
	gAnaMat := testutil.SetGrade(t, app.gradeRepo, f.ana.ID, f.mat.ID, 15)
	gBetoMat := testutil.SetGrade(t, app.gradeRepo, f.beto.ID, f.mat.ID, 11)
	gAnaHis := testutil.SetGrade(t, app.gradeRepo, f.ana.ID, f.his.ID, 18)

	gradeIDs := func(t *testing.T, rec *httptest.ResponseRecorder) []int {
		var resp echoapi.GradeListResponse
		decode(t, rec, &resp)
		ids := make([]int, 0, len(resp.Grades))
		for _, g := range resp.Grades {
			ids = append(ids, g.ID)
		}
		return ids
	}

	tests := []httpTest{
		{
			name:     "admin sees every grade",
			method:   http.MethodGet,
			path:     "/api/grades",
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.ElementsMatch(t, []int{gAnaMat.ID, gBetoMat.ID, gAnaHis.ID}, gradeIDs(t, rec))
			},
		},
		{
			name:     "teacher sees grades of own courses",
			method:   http.MethodGet,
			path:     "/api/grades",
			token:    app.getToken(t, f.carla),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.ElementsMatch(t, []int{gAnaMat.ID, gBetoMat.ID}, gradeIDs(t, rec))
			},
		},
		{
			name:     "teacher filtering on a foreign course gets nothing",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/api/grades?courseId=%d", f.his.ID),
			token:    app.getToken(t, f.carla),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Empty(t, gradeIDs(t, rec))
			},
		},
		{
			name:     "student sees own grades",
			method:   http.MethodGet,
			path:     "/api/grades",
			token:    app.getToken(t, f.ana),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.ElementsMatch(t, []int{gAnaMat.ID, gAnaHis.ID}, gradeIDs(t, rec))
			},
		},
		{
			name:     "by student, paginated",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/api/grades?studentId=%d&limit=1&ordering=value", f.ana.ID),
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp echoapi.GradeListResponse
				decode(t, rec, &resp)
				assert.Equal(t, query.Pagination{Total: 2, Page: 1, Limit: 1, TotalPages: 2}, resp.Pagination)
				require.Len(t, resp.Grades, 1)
				assert.Equal(t, gAnaMat.ID, resp.Grades[0].ID)
				assert.Equal(t, f.ana.Name, resp.Grades[0].Student.Name)
				assert.Equal(t, f.mat.Code, resp.Grades[0].Course.Code)
			},
		},
		{
			name:     "invalid course id",
			method:   http.MethodGet,
			path:     "/api/grades?courseId=abc",
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, []string{"courseId"}, fieldsOf(t, rec))
			},
		},
		{
			name:     "course grades for the teacher",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/api/grades/course/%d", f.mat.ID),
			token:    app.getToken(t, f.carla),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var grades []grade.Detail
				decode(t, rec, &grades)
				require.Len(t, grades, 2)
				// ordered by student name
				assert.Equal(t, f.ana.ID, grades[0].StudentID)
				assert.Equal(t, f.beto.ID, grades[1].StudentID)
			},
		},
		{
			name:     "course grades for another teacher",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/api/grades/course/%d", f.mat.ID),
			token:    app.getToken(t, f.diego),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "course grades for an enrolled student",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/api/grades/course/%d", f.mat.ID),
			token:    app.getToken(t, f.beto),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var grades []grade.Detail
				decode(t, rec, &grades)
				require.Len(t, grades, 1)
				assert.Equal(t, gBetoMat.ID, grades[0].ID)
			},
		},
	}
	app.run(t, tests)
}

func Test_gradeApi_destroy(t *testing.T) {
	app := setup(t)
	f := newFixture(t, app)
	g := testutil.SetGrade(t, app.gradeRepo, f.ana.ID, f.mat.ID, 15)
	path := fmt.Sprintf("/api/grades/%d", g.ID)

	tests := []httpTest{
		{
			name:     "teacher cannot delete",
			method:   http.MethodDelete,
			path:     path,
			token:    app.getToken(t, f.carla),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "admin deletes",
			method:   http.MethodDelete,
			path:     path,
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusOK,
			wantData: msgData(t, "Nota eliminada correctamente"),
		},
		{
			name:     "already deleted",
			method:   http.MethodDelete,
			path:     path,
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusNotFound,
			wantData: errData(t, "Nota no encontrada"),
		},
	}
	app.run(t, tests)
}
