package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"arrest-log/internal/rbac"

	"github.com/gin-gonic/gin"
)

func TestRequireAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.svc.EnsureBootstrapAdmin(ctx, "alpha", "pw")
	res, err := f.svc.Login(ctx, "alpha", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	r := gin.New()
	r.GET("/me", RequireAccessToken(f.svc), rbac.Require(rbac.IsAdmin), func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.User.Username+"|"+c.GetString(ContextRoleKey))
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"refresh token", "Bearer " + res.Tokens.RefreshToken, http.StatusUnauthorized},
		{"valid", "Bearer " + res.Tokens.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d body=%s", w.Code, tc.want, w.Body.String())
			}
			if tc.want == http.StatusOK && w.Body.String() != "alpha|admin" {
				t.Fatalf("unexpected body %q", w.Body.String())
			}
		})
	}

	_ = f.svc.Logout(ctx, res.SessionID)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+res.Tokens.AccessToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}
