package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/mahudhurio/apps/api/echo"
	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/assignment"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/services/email"
	"github.com/trezcool/mahudhurio/storage/database/dummy"
)

func init() {
	core.Conf.Debug = false
	core.Conf.TestMode = true
}

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	server Server

	usrRepo    user.Repository
	rosterRepo roster.Repository
	assignRepo assignment.Repository
	attSvc     *attendance.Service

	// seeded roster
	student  roster.Student
	student2 roster.Student
	class    roster.Class
	subject  roster.Subject
	teacher  roster.Teacher
	teacher2 roster.Teacher
}

// nopLogger discards everything; API error paths log through it.
type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func setup(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	env := &testEnv{
		usrRepo:    dummydb.NewUserRepository(db),
		rosterRepo: dummydb.NewRosterRepository(db),
		assignRepo: dummydb.NewAssignmentRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(env.usrRepo, mailSvc)
	rosterSvc := roster.NewService(env.rosterRepo)
	assignSvc := assignment.NewService(env.assignRepo)
	env.attSvc = attendance.NewService(dummydb.NewAttendanceRepository(db), assignSvc, nopLogger{})

	env.server = NewServer(
		&Options{
			DisableReqLogs: true,
			UserSvc:        usrSvc,
			RosterSvc:      rosterSvc,
			AssignmentSvc:  assignSvc,
			AttendanceSvc:  env.attSvc,
			Logger:         nopLogger{},
		},
	)
	return env
}

// seedRoster populates two students, a class, a subject and two teachers, and
// assigns teacher (only) to the (class, subject) pair.
func (env *testEnv) seedRoster(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	var err error

	if env.student, err = env.rosterRepo.CreateStudent(ctx, roster.Student{FullName: "Ali Amani", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seedRoster() failed: %v", err)
	}
	if env.student2, err = env.rosterRepo.CreateStudent(ctx, roster.Student{FullName: "Bora Bahati", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seedRoster() failed: %v", err)
	}
	if env.class, err = env.rosterRepo.CreateClass(ctx, roster.Class{Name: "6A", Grade: "6", Year: 2026, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seedRoster() failed: %v", err)
	}
	if env.subject, err = env.rosterRepo.CreateSubject(ctx, roster.Subject{Name: "Mathematics", Code: "math", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seedRoster() failed: %v", err)
	}
	if env.teacher, err = env.rosterRepo.CreateTeacher(ctx, roster.Teacher{FullName: "Mr. Okoye", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seedRoster() failed: %v", err)
	}
	if env.teacher2, err = env.rosterRepo.CreateTeacher(ctx, roster.Teacher{FullName: "Mrs. Keza", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("seedRoster() failed: %v", err)
	}

	if _, err = env.assignRepo.CreateAssignment(ctx, assignment.Assignment{
		TeacherID: env.teacher.ID,
		ClassID:   env.class.ID,
		SubjectID: env.subject.ID,
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("seedRoster() failed: %v", err)
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func createUser(t *testing.T, repo user.Repository, name, uname, email, pwd, role, teacherID string, isActive bool) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		TeacherID: teacherID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
