package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"arrest-log/internal/audit"
	"arrest-log/internal/auth"
	"arrest-log/internal/config"
	"arrest-log/internal/records"
	"arrest-log/internal/reporting"
	"arrest-log/internal/session"
	"arrest-log/internal/settings"
	"arrest-log/internal/users"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	userRepo := users.NewMemoryRepo()
	sessions := session.NewMemoryStore()
	auditRepo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(auditRepo)
	recordRepo := records.NewMemoryRepo()
	authSvc := auth.NewService(userRepo, sessions, tokens, auth.Hasher{Cost: bcrypt.MinCost})
	if _, err := authSvc.EnsureBootstrapAdmin(context.Background(), "alpha", "admin-pw"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	h := Handlers{
		Auth:     authSvc,
		Users:    users.NewService(userRepo, auditSvc, sessions),
		Records:  records.NewService(recordRepo, auditSvc, nil),
		Audit:    auditSvc,
		Settings: settings.NewService(settings.NewMemoryRepo(), settings.Defaults("https://discord.example/api/webhooks/1/secret")),
		Reports:  reporting.NewService(reporting.Sources{Records: recordRepo, Logs: auditRepo}, nil),
	}
	r := gin.New()
	h.Routes(r)
	return &testAPI{t: t, router: r}
}

func (a *testAPI) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func (a *testAPI) login(username, password string) (string, string) {
	a.t.Helper()
	w, out := a.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": username, "password": password})
	if w.Code != http.StatusOK {
		a.t.Fatalf("login %s: status=%d body=%s", username, w.Code, w.Body.String())
	}
	user := out["user"].(map[string]any)
	tokens := out["tokens"].(map[string]any)
	return tokens["accessToken"].(string), user["id"].(string)
}

func TestRegistrationApprovalFlow(t *testing.T) {
	api := newTestAPI(t)

	w, out := api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "bravo", "password": "pw"})
	if w.Code != http.StatusCreated || out["success"] != true {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	bravoID := out["user"].(map[string]any)["id"].(string)
	if _, leaked := out["user"].(map[string]any)["credential"]; leaked {
		t.Fatalf("credential must not be serialized")
	}

	w, _ = api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "bravo", "password": "x"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", w.Code)
	}

	w, out = api.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"username": "bravo", "password": "pw"})
	if w.Code != http.StatusForbidden || out["success"] != false {
		t.Fatalf("pending login: expected 403, got %d %s", w.Code, w.Body.String())
	}

	adminTok, _ := api.login("alpha", "admin-pw")
	w, _ = api.do(http.MethodPatch, "/v1/users/"+bravoID+"/role", adminTok, map[string]string{"role": "oficial"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", w.Code, w.Body.String())
	}

	bravoTok, _ := api.login("bravo", "pw")
	w, out = api.do(http.MethodGet, "/v1/me/permissions", bravoTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("permissions: %d", w.Code)
	}
	perms := out["permissions"].(map[string]any)
	if perms["canCreateRecords"] != true || perms["canDeleteRecords"] != false {
		t.Fatalf("unexpected permissions: %v", perms)
	}

	w, _ = api.do(http.MethodGet, "/v1/users", bravoTok, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("oficial listing users: expected 403, got %d", w.Code)
	}
}

func TestRecordLifecycle(t *testing.T) {
	api := newTestAPI(t)
	adminTok, _ := api.login("alpha", "admin-pw")

	rec := map[string]any{
		"individualName": "João",
		"dateTime":       "2024-05-01T21:30",
		"location":       "Praça",
		"reason":         "Roubo",
	}
	w, out := api.do(http.MethodPost, "/v1/records", adminTok, rec)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	id := out["record"].(map[string]any)["id"].(string)

	w, out = api.do(http.MethodPost, "/v1/records", adminTok, map[string]any{"individualName": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid create: expected 400, got %d", w.Code)
	}

	w, out = api.do(http.MethodPatch, "/v1/records/"+id, adminTok, map[string]any{"reason": "Tráfico", "ifVersion": 1})
	if w.Code != http.StatusOK || out["updated"] != true {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}
	w, _ = api.do(http.MethodPatch, "/v1/records/"+id, adminTok, map[string]any{"reason": "x", "ifVersion": 1})
	if w.Code != http.StatusConflict {
		t.Fatalf("stale update: expected 409, got %d", w.Code)
	}
	w, out = api.do(http.MethodPatch, "/v1/records/missing", adminTok, map[string]any{"reason": "x"})
	if w.Code != http.StatusOK || out["updated"] != false {
		t.Fatalf("absent update: %d %s", w.Code, w.Body.String())
	}

	w, out = api.do(http.MethodGet, "/v1/records/by-individual?name="+url.QueryEscape("JOÃO"), adminTok, nil)
	if w.Code != http.StatusOK || len(out["records"].([]any)) != 1 {
		t.Fatalf("by-individual: %d %s", w.Code, w.Body.String())
	}
	w, out = api.do(http.MethodGet, "/v1/records/aggregate", adminTok, nil)
	if w.Code != http.StatusOK || len(out["individuals"].([]any)) != 1 {
		t.Fatalf("aggregate: %d %s", w.Code, w.Body.String())
	}

	w, out = api.do(http.MethodDelete, "/v1/records/"+id, adminTok, nil)
	if w.Code != http.StatusOK || out["deleted"] != true {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	w, out = api.do(http.MethodDelete, "/v1/records/"+id, adminTok, nil)
	if w.Code != http.StatusOK || out["deleted"] != false {
		t.Fatalf("absent delete: %d %s", w.Code, w.Body.String())
	}

	w, out = api.do(http.MethodGet, "/v1/logs", adminTok, nil)
	if w.Code != http.StatusOK || len(out["logs"].([]any)) < 3 {
		t.Fatalf("logs: %d %s", w.Code, w.Body.String())
	}
}

func TestReports(t *testing.T) {
	api := newTestAPI(t)
	adminTok, _ := api.login("alpha", "admin-pw")

	for _, name := range []string{"Ana", "Bruno", "ana"} {
		rec := map[string]any{"individualName": name, "dateTime": "2024-05-01T21:30", "location": "Praça", "reason": "Roubo"}
		if w, _ := api.do(http.MethodPost, "/v1/records", adminTok, rec); w.Code != http.StatusCreated {
			t.Fatalf("create: %d %s", w.Code, w.Body.String())
		}
	}

	w, out := api.do(http.MethodGet, "/v1/reports/records", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("records report: %d %s", w.Code, w.Body.String())
	}
	if out["totalRecords"] != float64(3) || out["distinctIndividuals"] != float64(2) {
		t.Fatalf("unexpected records report: %v", out)
	}

	w, out = api.do(http.MethodGet, "/v1/reports/activity?performedBy=alpha", adminTok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("activity report: %d %s", w.Code, w.Body.String())
	}
	if out["byAction"].(map[string]any)["create"] != float64(3) {
		t.Fatalf("unexpected activity report: %v", out)
	}

	w, _ = api.do(http.MethodGet, "/v1/reports/records?from=yesterday", adminTok, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad from: expected 400, got %d", w.Code)
	}
	w, _ = api.do(http.MethodGet, "/v1/reports/records?from=2024-05-02&to=2024-05-01", adminTok, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: expected 400, got %d", w.Code)
	}
}

func TestSettingsRedactionAndPermission(t *testing.T) {
	api := newTestAPI(t)
	adminTok, _ := api.login("alpha", "admin-pw")

	w, out := api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "echo", "password": "pw"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d", w.Code)
	}
	echoID := out["user"].(map[string]any)["id"].(string)
	api.do(http.MethodPatch, "/v1/users/"+echoID+"/role", adminTok, map[string]string{"role": "comando"})
	echoTok, _ := api.login("echo", "pw")

	_, out = api.do(http.MethodGet, "/v1/settings", echoTok, nil)
	if got := out["settings"].(map[string]any)["webhookUrl"]; got != "" {
		t.Fatalf("expected redacted webhook url, got %v", got)
	}
	_, out = api.do(http.MethodGet, "/v1/settings", adminTok, nil)
	if got := out["settings"].(map[string]any)["webhookUrl"]; got == "" {
		t.Fatalf("admin should see the webhook url")
	}

	w, _ = api.do(http.MethodPatch, "/v1/users/"+echoID+"/role", echoTok, map[string]string{"role": "admin"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("comando self-promotion: expected 403, got %d", w.Code)
	}

	w, _ = api.do(http.MethodPut, "/v1/settings", echoTok, map[string]any{"appName": "x"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("comando put settings: expected 403, got %d", w.Code)
	}
	w, _ = api.do(http.MethodPut, "/v1/settings", adminTok, map[string]any{"webhookUrl": "not a url"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid webhook: expected 400, got %d", w.Code)
	}
}

func TestRoleChangeRevokesAccessToken(t *testing.T) {
	api := newTestAPI(t)
	adminTok, adminID := api.login("alpha", "admin-pw")

	w, out := api.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"username": "foxtrot", "password": "pw"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d", w.Code)
	}
	id := out["user"].(map[string]any)["id"].(string)
	api.do(http.MethodPatch, "/v1/users/"+id+"/role", adminTok, map[string]string{"role": "comando"})
	tok, _ := api.login("foxtrot", "pw")

	api.do(http.MethodPatch, "/v1/users/"+id+"/role", adminTok, map[string]string{"role": "user"})
	w, _ = api.do(http.MethodGet, "/v1/me", tok, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected token revoked after role change, got %d", w.Code)
	}

	w, _ = api.do(http.MethodDelete, "/v1/users/"+adminID, adminTok, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("self removal: expected 400, got %d", w.Code)
	}
}

func TestHealthzAndUnauthenticated(t *testing.T) {
	api := newTestAPI(t)
	w, _ := api.do(http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz: %d", w.Code)
	}
	w, out := api.do(http.MethodGet, "/v1/records", "", nil)
	if w.Code != http.StatusUnauthorized || out["success"] != false {
		t.Fatalf("expected 401 envelope, got %d %s", w.Code, w.Body.String())
	}
	w, _ = api.do(http.MethodPost, "/v1/images", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("images without session: expected 401, got %d", w.Code)
	}
}
