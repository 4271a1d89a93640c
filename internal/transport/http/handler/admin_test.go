package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminRequiresAdminRole(t *testing.T) {
	a := newApp(t)

	w, _ := do(t, a.admin, call{method: http.MethodGet, path: "/admin/v1/users"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, a.admin, call{method: http.MethodGet, path: "/admin/v1/users", token: a.token(t, "u-1")})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := do(t, a.admin, call{method: http.MethodGet, path: "/admin/v1/users?role=user", token: a.token(t, "a-1")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, *env.Results)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestAdminRoleAndDeactivate(t *testing.T) {
	a := newApp(t)
	admin := a.token(t, "a-1")

	w, env := do(t, a.admin, call{method: http.MethodPatch, path: "/admin/v1/users/u-1/role", token: admin, body: `{"role":"guide"}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		User struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "guide", data.User.Role)

	w, _ = do(t, a.admin, call{method: http.MethodPatch, path: "/admin/v1/users/u-1/role", token: admin, body: `{"role":"root"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, a.admin, call{method: http.MethodPost, path: "/admin/v1/users/u-1/deactivate", token: admin})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = do(t, a.admin, call{method: http.MethodGet, path: "/admin/v1/users/u-1", token: admin})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
