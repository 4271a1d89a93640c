package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginWrongPasswordRejected(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/login", body: `{"email":"laura@example.com","password":"wrong-pass"}`})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "fail", env.Status)
	assert.Equal(t, "Incorrect email or password", env.Message)
	assert.Empty(t, env.Token)
	assert.Empty(t, w.Header().Values("Set-Cookie"))
}

func TestLoginUnknownEmailLooksTheSame(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/login", body: `{"email":"nobody@example.com","password":"pass1234"}`})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Incorrect email or password", env.Message)
}

func TestLoginMissingFields(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/login", body: `{"email":"laura@example.com"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please provide email and password!", env.Message)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/login", body: `{"email":"laura@example.com","password":"pass1234"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "success", env.Status)
	require.NotEmpty(t, env.Token)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt", cookies[0].Name)
	assert.Equal(t, env.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.NotContains(t, w.Body.String(), "password")

	w, _ = do(t, a.api, call{method: http.MethodGet, path: "/api/v1/users/me", token: env.Token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignupAlwaysCreatesUserRole(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/signup",
		body: `{"name":"Jonas","email":"jonas@example.com","password":"pass1234","passwordConfirm":"pass1234","role":"admin"}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotEmpty(t, env.Token)

	var data struct {
		User struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "user", data.User.Role)
	assert.NotEmpty(t, data.User.ID)
}

func TestSignupPasswordMismatch(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/signup",
		body: `{"name":"Jonas","email":"jonas@example.com","password":"pass1234","passwordConfirm":"pass4321"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Passwords are not the same!", env.Message)
}

func TestMalformedJSONIsValidationError(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/login", body: `{"email":`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "fail", env.Status)
}

func TestLogoutOverwritesCookie(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/users/logout"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "loggedout", cookies[0].Value)
	assert.Equal(t, 10, cookies[0].MaxAge)
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	a := newApp(t)
	known, kenv := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/forgotPassword", body: `{"email":"laura@example.com"}`})
	unknown, uenv := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/forgotPassword", body: `{"email":"nobody@example.com"}`})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, "Token sent to email!", kenv.Message)
	assert.Equal(t, kenv, uenv)
	assert.Len(t, a.mail.messages(), 1)
}

var resetLink = regexp.MustCompile(`resetPassword/([0-9a-f]{64})`)

func TestResetPasswordRoundTrip(t *testing.T) {
	a := newApp(t)
	w, _ := do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/forgotPassword", body: `{"email":"laura@example.com"}`})
	require.Equal(t, http.StatusOK, w.Code)

	sent := a.mail.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "laura@example.com", sent[0].To)
	m := resetLink.FindStringSubmatch(sent[0].Text)
	require.Len(t, m, 2)

	path := "/api/v1/users/resetPassword/" + m[1]
	w, env := do(t, a.api, call{method: http.MethodPatch, path: path, body: `{"password":"newpass123","passwordConfirm":"newpass123"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, env.Token)
	assert.Len(t, w.Result().Cookies(), 1)

	w, env = do(t, a.api, call{method: http.MethodPatch, path: path, body: `{"password":"another123","passwordConfirm":"another123"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Token is invalid or has expired", env.Message)

	w, _ = do(t, a.api, call{method: http.MethodPost, path: "/api/v1/users/login", body: `{"email":"laura@example.com","password":"newpass123"}`})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateMeRefusesPasswords(t *testing.T) {
	a := newApp(t)
	tok := a.token(t, "u-1")

	w, env := do(t, a.api, call{method: http.MethodPatch, path: "/api/v1/users/updateMe", token: tok, body: `{"password":"x","passwordConfirm":"x"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Message, "/updateMyPassword")

	w, env = do(t, a.api, call{method: http.MethodPatch, path: "/api/v1/users/updateMe", token: tok, body: `{"name":"Laura Wilson"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(env.Data), "Laura Wilson")
}

func TestDeleteMeDeactivates(t *testing.T) {
	a := newApp(t)
	tok := a.token(t, "u-1")

	w, _ := do(t, a.api, call{method: http.MethodDelete, path: "/api/v1/users/deleteMe", token: tok})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/users/me", token: tok})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "The user belonging to this token no longer exists.", env.Message)

	p, ok := a.store.Snapshot("u-1")
	require.True(t, ok)
	assert.False(t, p.Active)
}

func TestMeRequiresLogin(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/users/me"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "You are not logged in! Please log in to get access.", env.Message)
}

func TestUnknownRoute(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodGet, path: "/api/v1/nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Can't find /api/v1/nope on this server!", env.Message)
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	w, env := do(t, a.api, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)
}
