package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/miradi/core/project"
	"github.com/trezcool/miradi/core/user"
)

func Test_projectApi_propose(t *testing.T) {
	app := setup(t)

	student := createTestUser(t, app.usrRepo, "neo", "U1900001F", "", []string{user.RoleStudent}, true)
	faculty := createTestUser(t, app.usrRepo, "morpheus", "", "", []string{user.RoleFaculty}, true)

	body := marchallObj(t, project.NewProject{
		Title:         "Distributed Key-Value Store",
		Description:   "Build a replicated KV store.",
		FacultyName:   "Dr. Kim",
		ProgrammeName: "CSC",
	})

	tests := []httpTest{
		{name: "Auth required", body: body, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", body: body, token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Missing fields", body: marchallObj(t, project.NewProject{}), token: getToken(t, faculty), wantCode: http.StatusBadRequest},
		{name: "Proposed", body: body, token: getToken(t, faculty), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/staff/projects"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusCreated {
				return
			}

			var prj project.Project
			if err := json.Unmarshal(rec.Body.Bytes(), &prj); err != nil {
				t.Fatalf("unmarshalling project: %v", err)
			}
			assert.NotEmpty(t, prj.ID)
			assert.Equal(t, project.StatusProposed, prj.Status)
		})
	}
}

func Test_projectApi_setStatus(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	faculty := createTestUser(t, app.usrRepo, "morpheus", "", "", []string{user.RoleFaculty}, true)
	token := getToken(t, faculty)

	prj, err := app.prjSvc.Propose(ctx, project.NewProject{Title: "P1", FacultyName: "Dr. Kim", ProgrammeName: "CSC"})
	assert.NoError(t, err)
	path := "/v1/staff/projects/" + prj.ID + "/status"

	// open for registration
	req, rec := newAuthRequest(http.MethodPut, path, token, marchallObj(t, StatusRequest{Status: "open"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// students now see it in the open list
	prjs, err := app.prjSvc.OpenForRegistration(ctx)
	assert.NoError(t, err)
	assert.Len(t, prjs, 1)

	// close it
	req, rec = newAuthRequest(http.MethodPut, path, token, marchallObj(t, StatusRequest{Status: "closed"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// a closed project cannot be reopened
	req, rec = newAuthRequest(http.MethodPut, path, token, marchallObj(t, StatusRequest{Status: "open"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// bogus status
	req, rec = newAuthRequest(http.MethodPut, path, token, marchallObj(t, StatusRequest{Status: "lol"}))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_projectApi_queryOpen(t *testing.T) {
	app := setup(t)

	student := createTestUser(t, app.usrRepo, "neo", "U1900001F", "", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	prj := createOpenProject(t, app.prjSvc, "P1")
	if _, err := app.prjSvc.Propose(context.Background(), project.NewProject{Title: "P2", FacultyName: "Dr. Kim", ProgrammeName: "CSC"}); err != nil {
		t.Fatalf("proposing project: %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Only open projects listed", token: token, wantCode: http.StatusOK, wantData: marchallList(t, prj)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/projects/open"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
