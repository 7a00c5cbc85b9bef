package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/pressflow/newsroom/internal/auth"
	"github.com/pressflow/newsroom/internal/domain/user"
	"github.com/pressflow/newsroom/internal/http/middlewares"
	"github.com/pressflow/newsroom/internal/repo/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const cookieName = "access_token"

func protectedRouter(mw *middlewares.AuthMiddleware) *gin.Engine {
	r := gin.New()
	r.GET("/protected", mw.Authenticate(), func(c *gin.Context) {
		id, ok := middlewares.IdentityFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no identity"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "role": id.Role})
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	users := memory.NewUsersRepo()
	u, err := users.Create(context.Background(), "Sam", "sam@example.com", "hash", user.RoleEditor)
	require.NoError(t, err)

	sessions := auth.NewManager("test-secret", time.Hour)

	valid, err := sessions.Issue(u.ID, u.Role)
	require.NoError(t, err)

	expired, err := auth.NewManager("test-secret", -time.Minute).Issue(u.ID, u.Role)
	require.NoError(t, err)

	wrongKey, err := auth.NewManager("other-secret", time.Hour).Issue(u.ID, u.Role)
	require.NoError(t, err)

	orphan, err := sessions.Issue("deleted-user-id", user.RoleReader)
	require.NoError(t, err)

	tests := []struct {
		name           string
		token          string
		noCookie       bool
		wantStatusCode int
		wantErrCode    string
	}{
		{
			name:           "valid_token",
			token:          valid,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "missing_cookie",
			noCookie:       true,
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "missing_credentials",
		},
		{
			name:           "empty_cookie",
			token:          "",
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "missing_credentials",
		},
		{
			name:           "expired_token",
			token:          expired,
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "expired_token",
		},
		{
			name:           "wrong_signing_key",
			token:          wrongKey,
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "invalid_token",
		},
		{
			name:           "garbage_token",
			token:          "not.a.jwt",
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "invalid_token",
		},
		{
			name:           "token_for_deleted_account",
			token:          orphan,
			wantStatusCode: http.StatusUnauthorized,
			wantErrCode:    "invalid_token",
		},
	}

	mw := middlewares.NewAuthMiddleware(sessions, users, cookieName)
	r := protectedRouter(mw)

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if !tt.noCookie {
				req.AddCookie(&http.Cookie{Name: cookieName, Value: tt.token})
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatusCode, w.Code, w.Body.String())
			if tt.wantErrCode != "" {
				require.Contains(t, w.Body.String(), tt.wantErrCode)
			}
		})
	}
}

// The effective role is read from the store on every request, so demoting a
// user invalidates the old role even while the token still carries it.
func TestAuthenticateRefreshesRole(t *testing.T) {
	users := memory.NewUsersRepo()
	u, err := users.Create(context.Background(), "Sam", "sam@example.com", "hash", user.RoleAdmin)
	require.NoError(t, err)

	sessions := auth.NewManager("test-secret", time.Hour)
	token, err := sessions.Issue(u.ID, u.Role)
	require.NoError(t, err)

	_, err = users.UpdateRole(context.Background(), u.ID, user.RoleReader)
	require.NoError(t, err)

	mw := middlewares.NewAuthMiddleware(sessions, users, cookieName)
	r := protectedRouter(mw)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"role":"reader"`)
}
