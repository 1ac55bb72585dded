package echoapi_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/query"
	testutil "github.com/sistemanotas/notas/tests"
)

func enrollBody(t *testing.T, studentID, courseID int) []byte {
	return marshallObj(t, map[string]int{"studentId": studentID, "courseId": courseID})
}

func Test_enrollmentApi_create(t *testing.T) {
	app := setup(t)
	f := newFixture(t, app)
	adminToken := app.getToken(t, f.admin)

	tests := []httpTest{
		{
			name:     "enrolled",
			method:   http.MethodPost,
			path:     "/api/enrollments",
			token:    adminToken,
			body:     enrollBody(t, f.beto.ID, f.his.ID),
			wantCode: http.StatusCreated,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var e enrollment.Enrollment
				decode(t, rec, &e)
				assert.NotZero(t, e.ID)
				assert.Equal(t, f.beto.ID, e.StudentID)
				assert.Equal(t, f.his.ID, e.CourseID)
			},
		},
		{
			name:     "already enrolled",
			method:   http.MethodPost,
			path:     "/api/enrollments",
			token:    adminToken,
			body:     enrollBody(t, f.beto.ID, f.his.ID),
			wantCode: http.StatusBadRequest,
			wantData: errData(t, "Alumno ya está matriculado"),
		},
		{
			name:     "not a student",
			method:   http.MethodPost,
			path:     "/api/enrollments",
			token:    adminToken,
			body:     enrollBody(t, f.carla.ID, f.his.ID),
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, []string{"studentId"}, fieldsOf(t, rec))
			},
		},
		{
			name:     "unknown course",
			method:   http.MethodPost,
			path:     "/api/enrollments",
			token:    adminToken,
			body:     enrollBody(t, f.beto.ID, 9999),
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, []string{"courseId"}, fieldsOf(t, rec))
			},
		},
		{
			name:     "missing ids",
			method:   http.MethodPost,
			path:     "/api/enrollments",
			token:    adminToken,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.ElementsMatch(t, []string{"studentId", "courseId"}, fieldsOf(t, rec))
			},
		},
		{
			name:     "teacher cannot enroll",
			method:   http.MethodPost,
			path:     "/api/enrollments",
			token:    app.getToken(t, f.carla),
			body:     enrollBody(t, f.beto.ID, f.fis.ID),
			wantCode: http.StatusForbidden,
		},
	}
	app.run(t, tests)
}

func Test_enrollmentApi_destroy(t *testing.T) {
	app := setup(t)
	f := newFixture(t, app)
	e := testutil.Enroll(t, app.enrollRepo, f.beto.ID, f.fis.ID)
	testutil.SetGrade(t, app.gradeRepo, f.beto.ID, f.fis.ID, 13)
	testutil.SetGrade(t, app.gradeRepo, f.beto.ID, f.mat.ID, 16)
	path := fmt.Sprintf("/api/enrollments/%d", e.ID)

	tests := []httpTest{
		{
			name:     "teacher cannot unenroll",
			method:   http.MethodDelete,
			path:     path,
			token:    app.getToken(t, f.carla),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unenrolled",
			method:   http.MethodDelete,
			path:     path,
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusOK,
			wantData: msgData(t, "Matrícula eliminada correctamente"),
		},
		{
			name:     "already gone",
			method:   http.MethodDelete,
			path:     path,
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusNotFound,
			wantData: errData(t, "Matrícula no encontrada"),
		},
	}
	app.run(t, tests)

	// the grade of the dropped course went with the enrollment, the other one stays
	grades, err := app.gradeRepo.ListGrades(context.Background(), query.Eq(query.FieldStudentID, f.beto.ID))
	require.NoError(t, err)
	require.Len(t, grades, 1)
	assert.Equal(t, f.mat.ID, grades[0].CourseID)
}

func Test_enrollmentApi_courseStudents(t *testing.T) {
	app := setup(t)
	f := newFixture(t, app)
	path := fmt.Sprintf("/api/enrollments/course/%d/students", f.mat.ID)

	studentIDs := func(t *testing.T, rec *httptest.ResponseRecorder) []int {
		var enrollments []enrollment.Detail
		decode(t, rec, &enrollments)
		ids := make([]int, 0, len(enrollments))
		for _, e := range enrollments {
			ids = append(ids, e.Student.ID)
		}
		return ids
	}

	tests := []httpTest{
		{
			name:     "admin",
			method:   http.MethodGet,
			path:     path,
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, []int{f.ana.ID, f.beto.ID}, studentIDs(t, rec))
			},
		},
		{
			name:     "own teacher",
			method:   http.MethodGet,
			path:     path,
			token:    app.getToken(t, f.carla),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, []int{f.ana.ID, f.beto.ID}, studentIDs(t, rec))
			},
		},
		{
			name:     "empty course",
			method:   http.MethodGet,
			path:     fmt.Sprintf("/api/enrollments/course/%d/students", f.fis.ID),
			token:    app.getToken(t, f.carla),
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
		{
			name:     "other teacher",
			method:   http.MethodGet,
			path:     path,
			token:    app.getToken(t, f.diego),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "student",
			method:   http.MethodGet,
			path:     path,
			token:    app.getToken(t, f.ana),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "missing course",
			method:   http.MethodGet,
			path:     "/api/enrollments/course/9999/students",
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusNotFound,
		},
	}
	app.run(t, tests)
}
