package handler

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// The handler is constructed directly with no repositories: these tests
// cover the guard clauses, which reject before any database access.

func TestChangePasswordRejectsBadInput(t *testing.T) {
	h := &AuthHandler{}
	e := echo.New()

	authAs := func(uid uint64) func(echo.Context) {
		return func(c echo.Context) { c.Set("user_id", float64(uid)) }
	}

	cases := []struct {
		name  string
		body  string
		setup func(echo.Context)
		want  int
	}{
		{"no session", `{"current_password":"Asha@123","new_password":"Asha@456"}`, nil, http.StatusUnauthorized},
		{"missing current", `{"new_password":"Asha@456"}`, authAs(42), http.StatusBadRequest},
		{"missing new", `{"current_password":"Asha@123"}`, authAs(42), http.StatusBadRequest},
		{"weak new password", `{"current_password":"Asha@123","new_password":"short"}`, authAs(42), http.StatusBadRequest},
		{"no special char", `{"current_password":"Asha@123","new_password":"Asha1234"}`, authAs(42), http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, c := doJSON(e, http.MethodPost, "/v1/auth/change-password", tc.body, tc.setup)
			assert.NoError(t, h.ChangePassword(c))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestUpdateProfileRejectsBadInput(t *testing.T) {
	h := &AuthHandler{}
	e := echo.New()

	rec, c := doJSON(e, http.MethodPut, "/v1/me", `{"full_name":"Asha"}`, nil)
	assert.NoError(t, h.UpdateProfile(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, c = doJSON(e, http.MethodPut, "/v1/me", `{"full_name":"   "}`, func(c echo.Context) {
		c.Set("user_id", float64(42))
	})
	assert.NoError(t, h.UpdateProfile(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
