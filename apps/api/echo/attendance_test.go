package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/user"
)

func (env *testEnv) writeBody(t *testing.T, studentID string, date string, lesson int, status string) []byte {
	t.Helper()
	return marchallObj(t, map[string]interface{}{
		"student_id": studentID,
		"class_id":   env.class.ID,
		"subject_id": env.subject.ID,
		"date":       date,
		"lesson":     lesson,
		"status":     status,
	})
}

func decodeRecord(t *testing.T, body []byte) attendance.Record {
	t.Helper()
	var rec attendance.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		t.Fatalf("decodeRecord() failed: %v", err)
	}
	return rec
}

func Test_attendanceApi_upsert(t *testing.T) {
	env := setup(t)
	env.seedRoster(t)

	teacher := createUser(t, env.usrRepo, "Mr. Okoye", "okoye", "okoye@test.cd", "", user.RoleTeacher, env.teacher.ID, true)
	teacher2 := createUser(t, env.usrRepo, "Mrs. Keza", "keza", "keza@test.cd", "", user.RoleTeacher, env.teacher2.ID, true)
	student := createUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, "", true)
	admin := createUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, "", true)

	body := env.writeBody(t, env.student.ID, "2026-03-02", 1, attendance.StatusPresent)

	tests := []httpTest{
		{name: "Auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Unassigned teacher denied", body: body, token: getToken(t, teacher2), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: attendance.ErrNotPermitted.Error()}),
		},
		{
			name: "Student denied", body: body, token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: attendance.ErrNotPermitted.Error()}),
		},
		{
			name: "Unknown status rejected", body: env.writeBody(t, env.student.ID, "2026-03-02", 1, "partying"),
			token: getToken(t, teacher), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "status must be one of: present, absent, late, justified"}),
		},
		{name: "Assigned teacher passes", body: body, token: getToken(t, teacher), wantCode: http.StatusOK},
		{name: "Admin passes", body: env.writeBody(t, env.student2.ID, "2026-03-02", 1, attendance.StatusAbsent), token: getToken(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/attendances", tt.token, tt.body)
			env.server.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			stored := decodeRecord(t, rec.Body.Bytes())
			if stored.ID == "" {
				t.Error("no ID assigned")
			}
			if stored.Student == nil || stored.Class == nil || stored.Subject == nil {
				t.Errorf("display infos not fetched: %+v", stored)
			}
		})
	}
}

func Test_attendanceApi_upsert_stalePrincipals(t *testing.T) {
	env := setup(t)
	env.seedRoster(t)

	inactive := createUser(t, env.usrRepo, "Mr. Okoye", "okoye", "okoye@test.cd", "", user.RoleTeacher, env.teacher.ID, false)
	deleted := createUser(t, env.usrRepo, "Gone", "gone1", "gone@test.cd", "", user.RoleTeacher, env.teacher.ID, true)
	deletedToken := getToken(t, deleted)
	if err := env.usrRepo.DeleteUsersByID(context.Background(), deleted.ID); err != nil {
		t.Fatalf("deleting user failed: %v", err)
	}

	body := env.writeBody(t, env.student.ID, "2026-03-02", 1, attendance.StatusPresent)

	tests := []httpTest{
		{
			name: "Deactivated user rejected", body: body, token: getToken(t, inactive),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Deleted user rejected", body: body, token: deletedToken,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/attendances", tt.token, tt.body)
			env.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_attendanceApi_upsert_idempotent(t *testing.T) {
	env := setup(t)
	env.seedRoster(t)
	teacher := createUser(t, env.usrRepo, "Mr. Okoye", "okoye", "okoye@test.cd", "", user.RoleTeacher, env.teacher.ID, true)
	token := getToken(t, teacher)

	req, rec := newAuthRequest(http.MethodPost, "/v1/attendances", token, env.writeBody(t, env.student.ID, "2026-03-02", 1, attendance.StatusAbsent))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first write code = %v; body %s", rec.Code, rec.Body.String())
	}
	first := decodeRecord(t, rec.Body.Bytes())

	req, rec = newAuthRequest(http.MethodPost, "/v1/attendances", token, env.writeBody(t, env.student.ID, "2026-03-02", 1, attendance.StatusJustified))
	env.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second write code = %v; body %s", rec.Code, rec.Body.String())
	}
	second := decodeRecord(t, rec.Body.Bytes())

	if second.ID != first.ID {
		t.Errorf("repeat write created a new record: %s != %s", second.ID, first.ID)
	}
	if second.Status != attendance.StatusJustified {
		t.Errorf("repeat write status = %s; want %s", second.Status, attendance.StatusJustified)
	}
}

func Test_attendanceApi_bulk(t *testing.T) {
	env := setup(t)
	env.seedRoster(t)
	teacher := createUser(t, env.usrRepo, "Mr. Okoye", "okoye", "okoye@test.cd", "", user.RoleTeacher, env.teacher.ID, true)
	student := createUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", user.RoleStudent, "", true)

	entry := func(studentID, status string) map[string]interface{} {
		return map[string]interface{}{
			"student_id": studentID,
			"class_id":   env.class.ID,
			"subject_id": env.subject.ID,
			"date":       "2026-03-02",
			"lesson":     1,
			"status":     status,
		}
	}
	body := marchallObj(t, map[string]interface{}{
		"attendances": []map[string]interface{}{
			entry(env.student.ID, attendance.StatusPresent),
			entry(env.student2.ID, "partying"), // skipped
			entry(env.student2.ID, attendance.StatusAbsent),
		},
	})

	t.Run("student denied", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendances/bulk", getToken(t, student), body)
		env.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: attendance.ErrNotPermitted.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendances/bulk", getToken(t, teacher), marchallObj(t, map[string]interface{}{"attendances": []struct{}{}}))
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("skips are tolerated", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/attendances/bulk", getToken(t, teacher), body)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var res attendance.BatchResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling BatchResult failed: %v", err)
		}
		if res.Applied != 2 {
			t.Errorf("applied = %d; want 2", res.Applied)
		}
	})
}

func Test_attendanceApi_update_destroy(t *testing.T) {
	env := setup(t)
	env.seedRoster(t)
	teacher := createUser(t, env.usrRepo, "Mr. Okoye", "okoye", "okoye@test.cd", "", user.RoleTeacher, env.teacher.ID, true)
	teacher2 := createUser(t, env.usrRepo, "Mrs. Keza", "keza", "keza@test.cd", "", user.RoleTeacher, env.teacher2.ID, true)
	admin := createUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, "", true)

	rec0, err := env.attSvc.Upsert(context.Background(), attendance.WriteRecord{
		StudentID: env.student.ID,
		ClassID:   env.class.ID,
		SubjectID: env.subject.ID,
		Date:      core.NewDate(2026, time.March, 2),
		Lesson:    1,
		Status:    attendance.StatusAbsent,
	}, user.User{ID: teacher.ID, Role: user.RoleTeacher, TeacherID: env.teacher.ID})
	if err != nil {
		t.Fatalf("Upsert() failed: %v", err)
	}

	amend := marchallObj(t, map[string]string{"status": attendance.StatusJustified, "justification": "sick note"})

	t.Run("other teacher cannot amend", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/attendances/"+rec0.ID, getToken(t, teacher2), amend)
		env.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: attendance.ErrNotPermitted.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("owner amends", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/attendances/"+rec0.ID, getToken(t, teacher), amend)
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		if got := decodeRecord(t, rec.Body.Bytes()); got.Status != attendance.StatusJustified {
			t.Errorf("status = %s; want %s", got.Status, attendance.StatusJustified)
		}
	})

	t.Run("teacher cannot delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/attendances/"+rec0.ID, getToken(t, teacher))
		env.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("admin deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/attendances/"+rec0.ID, getToken(t, admin))
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/attendances/"+rec0.ID, getToken(t, admin), amend)
		env.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: attendance.ErrNotFound.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_attendanceApi_query(t *testing.T) {
	env := setup(t)
	env.seedRoster(t)
	admin := createUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, "", true)
	token := getToken(t, admin)

	ctx := context.Background()
	actor := user.User{ID: admin.ID, Role: user.RoleAdmin}
	write := func(studentID string, day int, status string) {
		t.Helper()
		if _, err := env.attSvc.Upsert(ctx, attendance.WriteRecord{
			StudentID: studentID,
			ClassID:   env.class.ID,
			SubjectID: env.subject.ID,
			Date:      core.NewDate(2026, time.March, day),
			Lesson:    1,
			Status:    status,
		}, actor); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
	}
	write(env.student.ID, 2, attendance.StatusPresent)
	write(env.student.ID, 3, attendance.StatusAbsent)
	write(env.student2.ID, 2, attendance.StatusPresent)

	path := func(params map[string]string) string {
		v := make(url.Values)
		for k, val := range params {
			v.Add(k, val)
		}
		return "/v1/attendances?" + v.Encode()
	}

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "all", path: "/v1/attendances", want: 3},
		{name: "by class", path: path(map[string]string{"class_id": env.class.ID}), want: 3},
		{name: "by student", path: path(map[string]string{"student_id": env.student.ID}), want: 2},
		{name: "by date", path: path(map[string]string{"date": "2026-03-02"}), want: 2},
		{name: "by range", path: path(map[string]string{"date_from": "2026-03-03", "date_to": "2026-03-04"}), want: 1},
		{name: "unknown class", path: path(map[string]string{"class_id": "1c9b8a7e-9522-4a9e-96e4-ecb7b5ed1e11"}), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, token)
			env.server.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
			}
			var records []attendance.Record
			if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
				t.Fatalf("unmarshalling records failed: %v", err)
			}
			if len(records) != tt.want {
				t.Errorf("records = %d; want %d", len(records), tt.want)
			}
		})
	}
}

func Test_attendanceApi_stats(t *testing.T) {
	env := setup(t)
	env.seedRoster(t)
	admin := createUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", user.RoleAdmin, "", true)
	teacher := createUser(t, env.usrRepo, "Mr. Okoye", "okoye", "okoye@test.cd", "", user.RoleTeacher, env.teacher.ID, true)

	ctx := context.Background()
	actor := user.User{ID: admin.ID, Role: user.RoleAdmin}
	for day, status := range map[int]string{
		2: attendance.StatusPresent,
		3: attendance.StatusLate,
		4: attendance.StatusAbsent,
		5: attendance.StatusPresent,
	} {
		if _, err := env.attSvc.Upsert(ctx, attendance.WriteRecord{
			StudentID: env.student.ID,
			ClassID:   env.class.ID,
			SubjectID: env.subject.ID,
			Date:      core.NewDate(2026, time.March, day),
			Lesson:    1,
			Status:    status,
		}, actor); err != nil {
			t.Fatalf("Upsert() failed: %v", err)
		}
	}

	t.Run("student stats", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendances/stats/students/"+env.student.ID, getToken(t, admin))
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var stats attendance.StudentStats
		if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
			t.Fatalf("unmarshalling stats failed: %v", err)
		}
		if stats.General.Total != 4 || stats.General.Present != 3 {
			t.Errorf("general = %+v; want total 4, present 3", stats.General)
		}
		if stats.General.Percentage != 75 {
			t.Errorf("percentage = %v; want 75", stats.General.Percentage)
		}
	})

	t.Run("class report is staff only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendances/report?class_id="+env.class.ID, getToken(t, teacher))
		env.server.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("class report", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/attendances/report?class_id="+env.class.ID, getToken(t, admin))
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
		}
		var report attendance.ClassReport
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatalf("unmarshalling report failed: %v", err)
		}
		if report.Summary.TotalStudents != 1 || report.Summary.TotalRecords != 4 {
			t.Errorf("summary = %+v; want 1 student, 4 records", report.Summary)
		}
	})
}
