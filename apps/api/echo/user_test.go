package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/educator/apps/api/echo"
	"github.com/trezcool/educator/core/access"
	"github.com/trezcool/educator/core/user"
)

func Test_userApi_login(t *testing.T) {
	env, srv := setup(t)
	learner := env.CreateUser(t, "learner", access.RoleLearner)
	suspended := env.CreateUser(t, "suspended", access.RoleLearner)
	_, err := env.Users.SetStatus(context.Background(), suspended, user.StatusSuspended)
	require.NoError(t, err)

	type login struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	authFailed := marchallObj(t, httpErr{Error: "authentication failed"})

	tests := []httpTest{
		{
			name: "missing fields", body: marchallObj(t, login{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{name: "unknown user", body: marchallObj(t, login{"ghost", "p@ssw0rd!"}), wantCode: http.StatusBadRequest, wantData: authFailed},
		{name: "wrong password", body: marchallObj(t, login{"learner", "nope"}), wantCode: http.StatusBadRequest, wantData: authFailed},
		{
			name: "inactive account", body: marchallObj(t, login{"suspended", "p@ssw0rd!"}), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "by username", body: marchallObj(t, login{" LEARNER ", "p@ssw0rd!"}), wantCode: http.StatusOK},
		{name: "by email", body: marchallObj(t, login{learner.Email, "p@ssw0rd!"}), wantCode: http.StatusOK},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/login"
	}
	runHTTPTests(t, srv, tests)

	rec := do(srv, http.MethodPost, "/v1/users/login", "", marchallObj(t, login{"learner", "p@ssw0rd!"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp echoapi.LoginResponse
	unmarshal(t, rec, &resp)

	rec = do(srv, http.MethodGet, "/v1/users/me", resp.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	var me user.User
	unmarshal(t, rec, &me)
	assert.Equal(t, learner.ID, me.ID)
	assert.Equal(t, access.RoleLearner, me.Role)
	assert.False(t, me.LastLogin.IsZero(), "login is recorded")
}

func Test_userApi_tokenRefresh(t *testing.T) {
	env, srv := setup(t)
	learner := env.CreateUser(t, "learner", access.RoleLearner)
	suspended := env.CreateUser(t, "suspended", access.RoleLearner)
	suspendedToken := getToken(t, env, suspended)
	_, err := env.Users.SetStatus(context.Background(), suspended, user.StatusSuspended)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "inactive account", token: suspendedToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "ok", token: getToken(t, env, learner), wantCode: http.StatusOK},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/token-refresh"
	}
	runHTTPTests(t, srv, tests)
}

func Test_userApi_register(t *testing.T) {
	env, srv := setup(t)
	admin := env.CreateUser(t, "admin", access.RoleAdmin)
	tutor := env.CreateUser(t, "tutor", access.RoleTutor)

	newUser := func(uname, role, pwd string) []byte {
		return marchallObj(t, user.NewUser{
			Username:        uname,
			Email:           uname + "@example.com",
			Role:            role,
			Password:        pwd,
			PasswordConfirm: pwd,
		})
	}

	tests := []httpTest{
		{name: "auth required", body: newUser("newbie", access.RoleLearner, "Qu1z!Master"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", body: newUser("newbie", access.RoleLearner, "Qu1z!Master"), token: getToken(t, env, tutor),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown role", body: newUser("newbie", "king", "Qu1z!Master"), token: getToken(t, env, admin),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "role must be one of tutor, learner, staff, admin"}),
		},
		{
			name: "weak password", body: newUser("newbie", access.RoleLearner, "password"), token: getToken(t, env, admin),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "username taken", body: newUser("tutor", access.RoleLearner, "Qu1z!Master"), token: getToken(t, env, admin),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"username": user.ErrUsernameExists.Error()}),
		},
		{name: "ok", body: newUser("newbie", access.RoleLearner, "Qu1z!Master"), token: getToken(t, env, admin), wantCode: http.StatusCreated},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/v1/users/register"
	}
	runHTTPTests(t, srv, tests)

	usr, err := env.Users.Authenticate(context.Background(), "newbie", "Qu1z!Master")
	require.NoError(t, err)
	assert.Equal(t, access.RoleLearner, usr.Role)
}

func Test_home(t *testing.T) {
	_, srv := setup(t)
	rec := do(srv, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Educator API!", rec.Body.String())
}
