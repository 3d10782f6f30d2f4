package tests

import (
	"net/http"
	"testing"

	"github.com/elimuhub/elimu/apps/api/echo"
	"github.com/elimuhub/elimu/core/user"
	testutil "github.com/elimuhub/elimu/tests"
)

func Test_userApi_login(t *testing.T) {
	testutil.CreateUser(t, usrRepo, "Login User", "loginusr", "loginusr@test.cd", "LePassword", user.StudentRoles, true)
	testutil.CreateUser(t, usrRepo, "Sleeping User", "sleepyusr", "sleepyusr@test.cd", "LePassword", user.StudentRoles, false)

	tests := []httpTest{
		{
			name: "username required", method: http.MethodPost, path: "/v1/users/login",
			body: marshalObj(t, echoapi.LoginRequest{Password: "LePassword"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Unknown user", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, echoapi.LoginRequest{Username: "ghost", Password: "LePassword"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, echoapi.LoginRequest{Username: "loginusr", Password: "NotLePassword"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", method: http.MethodPost, path: "/v1/users/login",
			body:     marshalObj(t, echoapi.LoginRequest{Username: "sleepyusr", Password: "LePassword"}),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Login by username", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marshalObj(t, echoapi.LoginRequest{Username: "loginusr", Password: "LePassword"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var resp echoapi.LoginResponse
		decodeBody(t, rec, &resp)
		if resp.Token == "" {
			t.Error("token is empty")
		}
	})

	t.Run("Login by email", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marshalObj(t, echoapi.LoginRequest{Username: "loginusr@test.cd", Password: "LePassword"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Fresh User", "freshusr", "freshusr@test.cd", "", user.StudentRoles, true)

	req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var resp echoapi.LoginResponse
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Error("token is empty")
	}
}

func Test_userApi_query(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Query Student", "qstudent", "qstudent@test.cd", "", user.StudentRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Query Admin", "qadmin", "qadmin@test.cd", "", user.AdminRoles, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Get all", path: "/v1/users", token: getToken(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
