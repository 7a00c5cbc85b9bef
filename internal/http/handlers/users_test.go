package handlers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pressflow/newsroom/internal/domain/user"
	"github.com/pressflow/newsroom/internal/http/handlers"
	"github.com/pressflow/newsroom/internal/repo/memory"
	"github.com/pressflow/newsroom/internal/security"
)

func newUsersFixture(t *testing.T) (*handlers.UsersHandler, *memory.UsersRepo) {
	t.Helper()

	users := memory.NewUsersRepo()
	return handlers.NewUsersHandler(users), users
}

func TestCreateUserRoles(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		wantStatusCode int
		wantRole       user.Role
	}{
		{
			name:           "reader",
			body:           `{"name": "Al", "email": "a@example.com", "password": "secret12", "role": "reader"}`,
			wantStatusCode: http.StatusCreated,
			wantRole:       user.RoleReader,
		},
		{
			name:           "editor",
			body:           `{"name": "Bo", "email": "b@example.com", "password": "secret12", "role": "editor"}`,
			wantStatusCode: http.StatusCreated,
			wantRole:       user.RoleEditor,
		},
		{
			name:           "admin",
			body:           `{"name": "Cy", "email": "c@example.com", "password": "secret12", "role": "admin"}`,
			wantStatusCode: http.StatusCreated,
			wantRole:       user.RoleAdmin,
		},
		{
			name:           "unknown_role",
			body:           `{"name": "Dee", "email": "d@example.com", "password": "secret12", "role": "superuser"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "case_sensitive_role",
			body:           `{"name": "Eve", "email": "e@example.com", "password": "secret12", "role": "Admin"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h, users := newUsersFixture(t)
			r := setupRouter(http.MethodPost, "/users", nil, h.CreateUser)

			req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatusCode, w.Code, w.Body.String())

			if tt.wantStatusCode == http.StatusCreated {
				all, err := users.List(context.Background())
				require.NoError(t, err)
				require.Len(t, all, 1)
				require.Equal(t, tt.wantRole, all[0].Role)
			}
		})
	}
}

func TestCreateAdminForcesAdminRole(t *testing.T) {
	h, users := newUsersFixture(t)
	r := setupRouter(http.MethodPost, "/users/admin", nil, h.CreateAdmin)

	body := `{"name": "Root", "email": "root@example.com", "password": "secret12"}`
	req := httptest.NewRequest(http.MethodPost, "/users/admin", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	u, err := users.GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	require.Equal(t, user.RoleAdmin, u.Role)
}

func TestUpdateRole(t *testing.T) {
	h, users := newUsersFixture(t)
	u, err := users.Create(context.Background(), "Sam", "sam@example.com", "x", user.RoleReader)
	require.NoError(t, err)

	r := setupRouter(http.MethodPut, "/users/:userId/role", nil, h.UpdateRole)

	send := func(target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send("/users/"+u.ID+"/role", `{"role": "editor"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, user.RoleEditor, got.Role)

	w = send("/users/"+u.ID+"/role", `{"role": "owner"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = send("/users/does-not-exist/role", `{"role": "editor"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUser(t *testing.T) {
	h, users := newUsersFixture(t)
	u, err := users.Create(context.Background(), "Sam", "sam@example.com", "x", user.RoleReader)
	require.NoError(t, err)

	r := setupRouter(http.MethodDelete, "/users/:id", nil, h.DeleteUser)

	req := httptest.NewRequest(http.MethodDelete, "/users/"+u.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, err = users.GetByID(context.Background(), u.ID)
	require.ErrorIs(t, err, user.ErrNotFound)

	req = httptest.NewRequest(http.MethodDelete, "/users/"+u.ID, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateMePasswordChange(t *testing.T) {
	hash, err := security.HashPassword("old-password")
	require.NoError(t, err)

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
		wantNewWorks   bool
	}{
		{
			name:           "correct_old_password",
			body:           `{"oldPassword": "old-password", "newPassword": "new-password"}`,
			wantStatusCode: http.StatusOK,
			wantNewWorks:   true,
		},
		{
			name:           "wrong_old_password",
			body:           `{"oldPassword": "guess", "newPassword": "new-password"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "profile_only",
			body:           `{"name": "New Name"}`,
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h, users := newUsersFixture(t)
			u, err := users.Create(context.Background(), "Sam", "sam@example.com", hash, user.RoleReader)
			require.NoError(t, err)

			r := setupRouter(http.MethodPut, "/me", []gin.HandlerFunc{withIdentity(u.ID, u.Role)}, h.UpdateMe)

			req := httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatusCode, w.Code, w.Body.String())

			got, err := users.GetByID(context.Background(), u.ID)
			require.NoError(t, err)

			if tt.wantNewWorks {
				require.NoError(t, security.CheckPassword(got.PasswordHash, "new-password"))
			} else {
				require.NoError(t, security.CheckPassword(got.PasswordHash, "old-password"), "password must be untouched")
			}
		})
	}
}

// A rejected profile update must not rotate the password on the side.
func TestUpdateMeEmailConflictKeepsPassword(t *testing.T) {
	hash, err := security.HashPassword("old-password")
	require.NoError(t, err)

	h, users := newUsersFixture(t)
	u, err := users.Create(context.Background(), "Sam", "sam@example.com", hash, user.RoleReader)
	require.NoError(t, err)
	_, err = users.Create(context.Background(), "Kim", "kim@example.com", "x", user.RoleReader)
	require.NoError(t, err)

	r := setupRouter(http.MethodPut, "/me", []gin.HandlerFunc{withIdentity(u.ID, u.Role)}, h.UpdateMe)

	body := `{"email": "kim@example.com", "oldPassword": "old-password", "newPassword": "new-password"}`
	req := httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	got, err := users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, "sam@example.com", got.Email)
	require.NoError(t, security.CheckPassword(got.PasswordHash, "old-password"), "password must be untouched")
}

// Role changes go through the dedicated admin endpoint only.
func TestUpdateMeCannotChangeRole(t *testing.T) {
	h, users := newUsersFixture(t)
	u, err := users.Create(context.Background(), "Sam", "sam@example.com", "x", user.RoleReader)
	require.NoError(t, err)

	r := setupRouter(http.MethodPut, "/me", []gin.HandlerFunc{withIdentity(u.ID, u.Role)}, h.UpdateMe)

	req := httptest.NewRequest(http.MethodPut, "/me", bytes.NewBufferString(`{"role": "admin", "name": "Sam"}`))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	require.Equal(t, user.RoleReader, got.Role)
}
