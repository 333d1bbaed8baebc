package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/trezcool/mahudhurio/core/roster"
	"github.com/trezcool/mahudhurio/core/user"
)

func decodeClass(t *testing.T, data []byte) roster.Class {
	t.Helper()
	var c roster.Class
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("decodeClass() failed: %v; body %s", err, data)
	}
	return c
}

func Test_rosterApi_classLifecycle(t *testing.T) {
	env := setup(t)
	admin := createUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, "", true)
	token := getToken(t, admin)

	// create
	body := marchallObj(t, map[string]interface{}{"name": "6A", "grade": "6", "shift": "morning", "year": 2026})
	req, rec := newAuthRequest(http.MethodPost, "/v1/classes", token, body)
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	class := decodeClass(t, rec.Body.Bytes())
	if class.ID == "" || class.Name != "6A" || class.Year != 2026 {
		t.Errorf("unexpected class; got %+v", class)
	}

	// same name and year conflicts
	req, rec = newAuthRequest(http.MethodPost, "/v1/classes", token, body)
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"name": roster.ErrClassExists.Error()}),
	}, rec)

	// same name, other year is fine
	req, rec = newAuthRequest(http.MethodPost, "/v1/classes", token,
		marchallObj(t, map[string]interface{}{"name": "6A", "grade": "6", "year": 2027}))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	// retrieve
	req, rec = newAuthRequest(http.MethodGet, "/v1/classes/"+class.ID, token)
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := decodeClass(t, rec.Body.Bytes()); got.ID != class.ID {
		t.Errorf("retrieved ID = %v; want %v", got.ID, class.ID)
	}

	// update
	req, rec = newAuthRequest(http.MethodPut, "/v1/classes/"+class.ID, token,
		marchallObj(t, map[string]interface{}{"name": "6A", "grade": "6", "shift": "afternoon", "year": 2026}))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if got := decodeClass(t, rec.Body.Bytes()); got.Shift != "afternoon" {
		t.Errorf("Shift = %v; want afternoon", got.Shift)
	}

	// destroy
	req, rec = newAuthRequest(http.MethodDelete, "/v1/classes/"+class.ID, token)
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/classes/"+class.ID, token)
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: roster.ErrClassNotFound.Error()}),
	}, rec)
}

func Test_rosterApi_subjectUniqueness(t *testing.T) {
	env := setup(t)
	admin := createUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, "", true)
	token := getToken(t, admin)

	body := marchallObj(t, map[string]interface{}{"name": "Mathematics", "code": "MATH", "workload": 120})
	req, rec := newAuthRequest(http.MethodPost, "/v1/subjects", token, body)
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var subj roster.Subject
	if err := json.Unmarshal(rec.Body.Bytes(), &subj); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if subj.Code != "math" { // codes are lowercased
		t.Errorf("Code = %v; want math", subj.Code)
	}

	// same code (any casing) conflicts
	req, rec = newAuthRequest(http.MethodPost, "/v1/subjects", token,
		marchallObj(t, map[string]interface{}{"name": "Maths", "code": "Math"}))
	env.server.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusBadRequest,
		wantData: marchallObj(t, map[string]string{"code": roster.ErrSubjectExists.Error()}),
	}, rec)
}

func Test_rosterApi_studentValidation(t *testing.T) {
	env := setup(t)
	admin := createUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, "", true)

	tests := []httpTest{
		{
			name: "Full name required", body: marchallObj(t, map[string]string{"email": "ali@test.cd"}),
			token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"full_name": "this field is required"}),
		},
		{
			name: "Invalid email rejected", body: marchallObj(t, map[string]string{"full_name": "Ali Amani", "email": "nope"}),
			token: getToken(t, admin), wantCode: http.StatusBadRequest,
		},
		{
			name: "Valid student created", body: marchallObj(t, map[string]string{"full_name": "Ali Amani", "birth_date": "2014-02-11"}),
			token: getToken(t, admin), wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/students", tt.token, tt.body)
			env.server.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func Test_rosterApi_permissions(t *testing.T) {
	env := setup(t)
	env.seedRoster(t)
	teacher := createUser(t, env.usrRepo, "Mr. Okoye", "okoye", "okoye@test.cd", "", user.RoleTeacher, env.teacher.ID, true)
	studentUsr := createUser(t, env.usrRepo, "Ali Amani", "aliamani", "ali@test.cd", "", user.RoleStudent, "", true)

	forbidden := marchallObj(t, httpErr{Error: "permission denied"})
	teacherBody := marchallObj(t, map[string]string{"full_name": "Mrs. Keza"})

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/v1/teachers",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Anyone signed in can list", method: http.MethodGet, path: "/v1/teachers",
			token: getToken(t, studentUsr), wantCode: http.StatusOK,
			wantData: marchallList(t, env.teacher, env.teacher2),
		},
		{
			name: "Teachers cannot create", method: http.MethodPost, path: "/v1/teachers", body: teacherBody,
			token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "Students cannot create", method: http.MethodPost, path: "/v1/teachers", body: teacherBody,
			token: getToken(t, studentUsr), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "Destroy is admin only", method: http.MethodDelete, path: "/v1/teachers/" + env.teacher2.ID,
			token: getToken(t, teacher), wantCode: http.StatusForbidden, wantData: forbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
