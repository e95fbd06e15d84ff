package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserRequiresAdmin(t *testing.T) {
	env := newDefaultEnv(t)
	admin := env.adminCookie(t)
	env.approvedUser(t, "plain@x.com", "secret1")
	plain := env.sessionFor(t, "plain@x.com", "secret1")

	in := map[string]string{"email": "new@x.com", "password": "secret1", "name": "New"}

	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/users", in)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/users", in, plain)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])

	resp, body = doJSON(t, env.app, http.MethodPost, "/api/users", in, admin)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	assert.NotEmpty(t, body["id"])

	// Admin-created accounts skip the approval queue.
	resp, _ = doJSON(t, env.app, http.MethodPost, "/api/login", creds("new@x.com", "secret1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, env.app, http.MethodPost, "/api/users", in, admin)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email already registered", body["error"])
}

func TestApproveGuardsAndNotFound(t *testing.T) {
	env := newDefaultEnv(t)
	admin := env.adminCookie(t)
	env.approvedUser(t, "plain@x.com", "secret1")
	plain := env.sessionFor(t, "plain@x.com", "secret1")

	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/register", map[string]string{"email": "a@x.com", "password": "secret1", "name": "A"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending, err := env.users.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	path := "/api/users/" + pending[0].ID + "/approve"

	resp, _ = doJSON(t, env.app, http.MethodPatch, path, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, env.app, http.MethodPatch, path, nil, plain)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, env.app, http.MethodPatch, "/api/users/"+uuid.NewString()+"/approve", nil, admin)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "user not found", body["error"])

	resp, _ = doJSON(t, env.app, http.MethodPatch, "/api/users/u-alice/approve", nil, admin)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, env.app, http.MethodPatch, path, nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPendingListings(t *testing.T) {
	env := newDefaultEnv(t)
	admin := env.adminCookie(t)

	for _, email := range []string{"a@x.com", "b@x.com"} {
		resp, _ := doJSON(t, env.app, http.MethodPost, "/api/register", map[string]string{"email": email, "password": "secret1", "name": "N"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := doJSON(t, env.app, http.MethodGet, "/api/users/pending", nil, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	users, ok := body["users"].([]any)
	require.True(t, ok)
	assert.Len(t, users, 2)

	req := httptest.NewRequest(http.MethodGet, "/admin/pending", nil)
	req.AddCookie(admin)
	resp, err := env.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	page, _ := io.ReadAll(resp.Body)
	html := string(page)
	assert.True(t, strings.Contains(html, "a@x.com") && strings.Contains(html, "b@x.com"), html)
	assert.Contains(t, html, "root@example.com")

	resp, err = env.app.Test(httptest.NewRequest(http.MethodGet, "/admin/pending", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
