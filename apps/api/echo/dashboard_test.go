package echoapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sistemanotas/notas/core/dashboard"
	testutil "github.com/sistemanotas/notas/tests"
)

func Test_dashboardApi_summary(t *testing.T) {
	app := setup(t)
	f := newFixture(t, app)
	testutil.SetGrade(t, app.gradeRepo, f.ana.ID, f.mat.ID, 15)

	tests := []httpTest{
		{
			name:     "admin",
			method:   http.MethodGet,
			path:     "/api/dashboard/summary",
			token:    app.getToken(t, f.admin),
			wantCode: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var sum dashboard.Summary
				decode(t, rec, &sum)
				assert.Equal(t, 2, sum.TeacherCount)
				assert.Equal(t, 2, sum.StudentCount)
				assert.Equal(t, 3, sum.CourseCount)

				// three courses, three enrollments and one grade
				require.Len(t, sum.RecentActivity, 7)
				counts := make(map[dashboard.ActivityType]int)
				for i, a := range sum.RecentActivity {
					counts[a.Type]++
					if i > 0 {
						assert.False(t, a.CreatedAt.After(sum.RecentActivity[i-1].CreatedAt), "feed not sorted")
					}
				}
				assert.Equal(t, map[dashboard.ActivityType]int{
					dashboard.ActivityCourse:     3,
					dashboard.ActivityEnrollment: 3,
					dashboard.ActivityGrade:      1,
				}, counts)
			},
		},
		{
			name:     "teacher",
			method:   http.MethodGet,
			path:     "/api/dashboard/summary",
			token:    app.getToken(t, f.carla),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "unauthenticated",
			method:   http.MethodGet,
			path:     "/api/dashboard/summary",
			wantCode: http.StatusUnauthorized,
		},
	}
	app.run(t, tests)
}
