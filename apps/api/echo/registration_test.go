package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/miradi/core/registration"
	"github.com/trezcool/miradi/core/user"
)

func Test_registrationApi_planner(t *testing.T) {
	app := setup(t)

	student := createTestUser(t, app.usrRepo, "neo", "U1900001F", "", []string{user.RoleStudent}, true)
	faculty := createTestUser(t, app.usrRepo, "morpheus", "", "", []string{user.RoleFaculty}, true)
	for _, title := range []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7"} {
		createOpenProject(t, app.prjSvc, title)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student required", token: getToken(t, faculty), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Planner seeded", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/student/planner"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}

			var entries []registration.PlannerEntry
			if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
				t.Fatalf("unmarshalling planner entries: %v", err)
			}
			assert.Len(t, entries, 7)
			for i, entry := range entries {
				assert.Equal(t, i+1, entry.Priority)
				if i < 5 {
					assert.True(t, entry.Active)
					assert.Equal(t, 1.0, entry.Opacity)
				} else {
					assert.False(t, entry.Active)
					assert.Equal(t, 0.4, entry.Opacity)
				}
			}
		})
	}
}

func Test_registrationApi_moveItem(t *testing.T) {
	app := setup(t)

	student := createTestUser(t, app.usrRepo, "neo", "U1900001F", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)
	for _, title := range []string{"P1", "P2", "P3"} {
		createOpenProject(t, app.prjSvc, title)
	}

	// seed the planner
	req, rec := newAuthRequest(http.MethodGet, "/v1/student/planner", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var entries []registration.PlannerEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshalling planner entries: %v", err)
	}

	// drag the last entry to the top
	body := marchallObj(t, MoveItemRequest{ActiveID: entries[2].ID, OverID: entries[0].ID})
	req, rec = newAuthRequest(http.MethodPut, "/v1/student/planner/move", token, body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshalling planner entries: %v", err)
	}
	assert.Equal(t, []string{"P3", "P1", "P2"}, []string{entries[0].Title, entries[1].Title, entries[2].Title})

	// missing fields
	req, rec = newAuthRequest(http.MethodPut, "/v1/student/planner/move", token, marchallObj(t, MoveItemRequest{}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_registrationApi_submit(t *testing.T) {
	app := setup(t)

	student := createTestUser(t, app.usrRepo, "neo", "U1900001F", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)
	for _, title := range []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7"} {
		createOpenProject(t, app.prjSvc, title)
	}

	// submitting without a planner session is a validation error
	req, rec := newAuthRequest(http.MethodPost, "/v1/student/registrations", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// seed, then submit
	req, rec = newAuthRequest(http.MethodGet, "/v1/student/planner", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/v1/student/registrations", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var report registration.SubmitReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("unmarshalling submit report: %v", err)
	}
	assert.Len(t, report.Succeeded, 5)
	assert.Empty(t, report.Failed)
	for i, result := range report.Succeeded {
		assert.Equal(t, i+1, result.Priority)
	}

	// persisted records are visible to the student
	req, rec = newAuthRequest(http.MethodGet, "/v1/student/registrations", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var regs []registration.Registration
	if err := json.Unmarshal(rec.Body.Bytes(), &regs); err != nil {
		t.Fatalf("unmarshalling registrations: %v", err)
	}
	assert.Len(t, regs, 5)

	req, rec = newAuthRequest(http.MethodGet, "/v1/student/registrations/ids", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var ids []string
	if err := json.Unmarshal(rec.Body.Bytes(), &ids); err != nil {
		t.Fatalf("unmarshalling registration IDs: %v", err)
	}
	assert.Len(t, ids, 5)
}

func Test_registrationApi_projectSummary(t *testing.T) {
	app := setup(t)

	student := createTestUser(t, app.usrRepo, "neo", "U1900001F", "", []string{user.RoleStudent}, true)
	faculty := createTestUser(t, app.usrRepo, "morpheus", "", "", []string{user.RoleFaculty}, true)
	prj := createOpenProject(t, app.prjSvc, "P1")

	emptySummary := registration.ProjectSummary{
		ProjectID:     prj.ID,
		Title:         "P1",
		Registrations: []registration.StudentRegistration{},
	}

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/staff/projects/" + prj.ID + "/registrations",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Staff required", path: "/v1/staff/projects/" + prj.ID + "/registrations", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Unknown project", path: "/v1/staff/projects/nope/registrations", token: getToken(t, faculty),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "Empty state", path: "/v1/staff/projects/" + prj.ID + "/registrations", token: getToken(t, faculty),
			wantCode: http.StatusOK, wantData: marchallObj(t, emptySummary),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_registrationApi_decide(t *testing.T) {
	app := setup(t)

	student := createTestUser(t, app.usrRepo, "neo", "U1900001F", "", []string{user.RoleStudent}, true)
	faculty := createTestUser(t, app.usrRepo, "morpheus", "", "", []string{user.RoleFaculty}, true)
	token := getToken(t, student)
	for _, title := range []string{"P1", "P2", "P3"} {
		createOpenProject(t, app.prjSvc, title)
	}

	// seed and submit as the student
	req, rec := newAuthRequest(http.MethodGet, "/v1/student/planner", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	req, rec = newAuthRequest(http.MethodPost, "/v1/student/registrations", token)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/student/registrations", token)
	app.ServeHTTP(rec, req)
	var regs []registration.Registration
	if err := json.Unmarshal(rec.Body.Bytes(), &regs); err != nil {
		t.Fatalf("unmarshalling registrations: %v", err)
	}

	facultyToken := getToken(t, faculty)
	path := "/v1/staff/registrations/" + regs[0].ID + "/decision"

	// students cannot decide
	body := marchallObj(t, DecisionRequest{Decision: "approved"})
	req, rec = newAuthRequest(http.MethodPut, path, token, body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// invalid decision
	req, rec = newAuthRequest(http.MethodPut, path, facultyToken, marchallObj(t, DecisionRequest{Decision: "maybe"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// approve
	req, rec = newAuthRequest(http.MethodPut, path, facultyToken, body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	var reg registration.Registration
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("unmarshalling registration: %v", err)
	}
	assert.Equal(t, registration.StatusApproved, reg.Status)

	// deciding twice is rejected
	req, rec = newAuthRequest(http.MethodPut, path, facultyToken, marchallObj(t, DecisionRequest{Decision: "rejected"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// unknown registration
	req, rec = newAuthRequest(http.MethodPut, "/v1/staff/registrations/nope/decision", facultyToken, body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
