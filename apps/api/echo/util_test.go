package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/sistemanotas/notas/apps/api/echo"
	"github.com/sistemanotas/notas/core"
	"github.com/sistemanotas/notas/core/auth"
	"github.com/sistemanotas/notas/core/course"
	"github.com/sistemanotas/notas/core/dashboard"
	"github.com/sistemanotas/notas/core/enrollment"
	"github.com/sistemanotas/notas/core/grade"
	"github.com/sistemanotas/notas/core/user"
	emailsvc "github.com/sistemanotas/notas/services/email"
	logsvc "github.com/sistemanotas/notas/services/logger"
	sqlxrepos "github.com/sistemanotas/notas/storage/database/sqlx"
	testutil "github.com/sistemanotas/notas/tests"
)

type testApp struct {
	server  *echoapi.Server
	conf    *core.Config
	tokens  *auth.TokenService
	mailSvc *emailsvc.ConsoleServiceMock

	usrRepo    user.Repository
	courseRepo course.Repository
	enrollRepo enrollment.Repository
	gradeRepo  grade.Repository
}

func setup(t *testing.T) *testApp {
	t.Helper()

	// set up DB & repos
	conf := core.NewTestConfig()
	db := testutil.PrepareDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	enrollRepo := sqlxrepos.NewEnrollmentRepository(db)
	gradeRepo := sqlxrepos.NewGradeRepository(db)

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	tokens := auth.NewTokenService(conf)

	// set up server
	server := echoapi.NewServer(&echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Tokens:        tokens,
		UserSvc:       user.NewService(conf, db, usrRepo, mailSvc, validate),
		CourseSvc:     course.NewService(courseRepo, usrRepo),
		EnrollmentSvc: enrollment.NewService(db, enrollRepo, usrRepo, courseRepo, gradeRepo),
		GradeSvc:      grade.NewService(conf, db, gradeRepo, enrollRepo),
		DashboardSvc:  dashboard.NewService(sqlxrepos.NewDashboardRepository(db)),
	})

	return &testApp{
		server:     server,
		conf:       conf,
		tokens:     tokens,
		mailSvc:    mailSvc,
		usrRepo:    usrRepo,
		courseRepo: courseRepo,
		enrollRepo: enrollRepo,
		gradeRepo:  gradeRepo,
	}
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := app.tokens.Issue(usr.ID, usr.Role, usr.Email)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func (app *testApp) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

type (
	httpErr struct {
		Error string `json:"error"`
	}

	fieldIssue struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}

	httpFieldErr struct {
		Error []fieldIssue `json:"error"`
	}

	httpMessage struct {
		Message string `json:"message"`
	}

	httpTest struct {
		name     string
		method   string
		path     string
		body     []byte
		token    string
		wantCode int
		wantData []byte                                          // compared as JSON when set
		check    func(t *testing.T, rec *httptest.ResponseRecorder) // extra assertions
	}
)

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func errData(t *testing.T, msg string) []byte {
	return marshallObj(t, httpErr{Error: msg})
}

func msgData(t *testing.T, msg string) []byte {
	return marshallObj(t, httpMessage{Message: msg})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "body: %s", rec.Body.String())
}

// fieldsOf returns the fields named in a field-level error response.
func fieldsOf(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	var body httpFieldErr
	decode(t, rec, &body)
	fields := make([]string, 0, len(body.Error))
	for _, issue := range body.Error {
		fields = append(fields, issue.Field)
	}
	return fields
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData != nil {
		ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
		if err != nil {
			t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
		}
		if !ok {
			t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
		}
	}
	if tt.check != nil {
		tt.check(t, rec)
	}
}

// fixture is the small school most tests start from.
type fixture struct {
	admin, carla, diego, ana, beto user.User
	mat, fis, his                  course.Course
}

// newFixture creates an admin, two teachers (Carla teaches MAT and FIS, Diego teaches HIS) and two students.
// Ana is enrolled in MAT and HIS, Beto in MAT.
func newFixture(t *testing.T, app *testApp) fixture {
	t.Helper()
	var f fixture
	f.admin = testutil.CreateUser(t, app.usrRepo, "Admin", "admin@test.pe", "", user.RoleAdmin, "")
	f.carla = testutil.CreateUser(t, app.usrRepo, "Carla", "carla@test.pe", "", user.RoleTeacher, "")
	f.diego = testutil.CreateUser(t, app.usrRepo, "Diego", "diego@test.pe", "", user.RoleTeacher, "")
	f.ana = testutil.CreateUser(t, app.usrRepo, "Ana", "ana@test.pe", "", user.RoleStudent, "A001")
	f.beto = testutil.CreateUser(t, app.usrRepo, "Beto", "beto@test.pe", "", user.RoleStudent, "B001")

	f.mat = testutil.CreateCourse(t, app.courseRepo, "Matemática", "MAT-101", f.carla.ID)
	f.fis = testutil.CreateCourse(t, app.courseRepo, "Física", "FIS-101", f.carla.ID)
	f.his = testutil.CreateCourse(t, app.courseRepo, "Historia", "HIS-101", f.diego.ID)

	testutil.Enroll(t, app.enrollRepo, f.ana.ID, f.mat.ID)
	testutil.Enroll(t, app.enrollRepo, f.ana.ID, f.his.ID)
	testutil.Enroll(t, app.enrollRepo, f.beto.ID, f.mat.ID)
	return f
}
