package echoapi

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

	"github.com/trezcool/miradi/core"
	"github.com/trezcool/miradi/core/project"
	"github.com/trezcool/miradi/core/registration"
	"github.com/trezcool/miradi/core/user"
	emailsvc "github.com/trezcool/miradi/services/email"
	dummydb "github.com/trezcool/miradi/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testServer struct {
	Server
	usrRepo user.Repository
	prjSvc  project.Service
	regSvc  registration.Service
}

func setup(t *testing.T) *testServer {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo := dummydb.NewUserRepository(db)
	prjRepo := dummydb.NewProjectRepository(db)
	regRepo := dummydb.NewRegistrationRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(usrRepo, mailSvc)
	prjSvc := project.NewService(prjRepo)
	regSvc := registration.NewService(regRepo, prjSvc, usrSvc, mailSvc, core.NewCache())

	app := NewServer(
		&Options{
			DisableReqLogs:  true,
			UserSvc:         usrSvc,
			ProjectSvc:      prjSvc,
			RegistrationSvc: regSvc,
		},
	)
	return &testServer{Server: app, usrRepo: usrRepo, prjSvc: prjSvc, regSvc: regSvc}
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

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createTestUser(t *testing.T, repo user.Repository, name, matric, pwd string, roles []string, isActive bool) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Name:                name,
		Username:            name,
		Email:               name + "@test.test",
		MatriculationNumber: matric,
		Roles:               roles,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createTestUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createTestUser() failed: %v", err)
	}
	return usr
}

func createOpenProject(t *testing.T, svc project.Service, title string) project.Project {
	ctx := context.Background()
	prj, err := svc.Propose(ctx, project.NewProject{
		Title:         title,
		FacultyName:   "Dr. Kim",
		ProgrammeName: "CSC",
	})
	if err != nil {
		t.Fatalf("createOpenProject() failed: %v", err)
	}
	if prj, err = svc.SetStatus(ctx, prj.ID, project.StatusOpen); err != nil {
		t.Fatalf("createOpenProject() failed: %v", err)
	}
	return prj
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
