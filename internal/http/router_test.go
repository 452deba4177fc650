package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geocoder89/perfeval/internal/app"
	"github.com/geocoder89/perfeval/internal/config"
	"github.com/geocoder89/perfeval/internal/domain/criterion"
	"github.com/geocoder89/perfeval/internal/domain/user"
	httpx "github.com/geocoder89/perfeval/internal/http"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t   *testing.T
	r   *gin.Engine
	app *app.App

	adminID, evaluatorID, employeeID string
	criterionIDs                     []string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	root := t.TempDir()
	cfg := config.Default().WithDataDir(filepath.Join(root, "data"))
	cfg.ExportsDir = filepath.Join(root, "exports")
	cfg.BackupsDir = filepath.Join(root, "backups")
	cfg.JWTSecret = "test-secret"
	cfg.LoginRateLimit = 1000

	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx := context.Background()
	s := &testServer{t: t, r: httpx.NewRouter(a), app: a}

	s.adminID, _, err = a.Auth.EnsureAdmin(ctx, user.CreateRequest{
		Username: "admin", Password: "Admin@123", FullName: "System Administrator", Email: "admin@example.com",
	})
	require.NoError(t, err)
	s.evaluatorID = s.mustCreateUser("eva", user.RoleEvaluator, "Eva Luator")
	s.employeeID = s.mustCreateUser("emma", user.RoleEmployee, "Emma Ployee")

	for _, req := range []criterion.CreateRequest{
		{Name: "Quality", Weight: ptr(2.0)},
		{Name: "Teamwork"},
	} {
		c, err := criterion.New(req)
		require.NoError(t, err)
		require.NoError(t, a.Criteria.Create(ctx, c))
		s.criterionIDs = append(s.criterionIDs, c.ID)
	}

	return s
}

func ptr[T any](v T) *T { return &v }

func (s *testServer) mustCreateUser(username, role, fullName string) string {
	s.t.Helper()
	id, err := s.app.Auth.CreateUser(context.Background(), user.CreateRequest{
		Username: username,
		Password: "password1",
		Role:     role,
		FullName: fullName,
		Email:    username + "@example.com",
	})
	require.NoError(s.t, err)
	return id
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rdr = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(username, password string) string {
	s.t.Helper()

	w := s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(s.t, resp.AccessToken)
	return resp.AccessToken
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Details struct {
			Fields []struct {
				Field string `json:"field"`
				Rule  string `json:"rule"`
			} `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestLoginLogout(t *testing.T) {
	s := newTestServer(t)

	token := s.login("admin", "Admin@123")

	w := s.do(http.MethodGet, "/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]any](t, w)
	assert.Equal(t, "admin", me["username"])
	assert.NotContains(t, me, "password_hash")

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/me", token, nil).Code)
}

func TestLogin_Failures(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decode[errorBody](t, w).Error.Code)

	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	admin := s.login("admin", "Admin@123")
	w = s.do(http.MethodPut, "/users/"+s.employeeID, admin, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "emma", "password": "password1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account_inactive", decode[errorBody](t, w).Error.Code)
}

func TestChangeOwnPassword(t *testing.T) {
	s := newTestServer(t)
	token := s.login("emma", "password1")

	w := s.do(http.MethodPost, "/me/password", token, map[string]string{"old_password": "wrong", "new_password": "password2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/me/password", token, map[string]string{"old_password": "password1", "new_password": "password2"})
	require.Equal(t, http.StatusNoContent, w.Code)

	s.login("emma", "password2")
}

func TestRBAC(t *testing.T) {
	s := newTestServer(t)
	employee := s.login("emma", "password1")
	evaluator := s.login("eva", "password1")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"anonymous", http.MethodGet, "/evaluations", "", nil, http.StatusUnauthorized},
		{"employee lists users", http.MethodGet, "/users", employee, nil, http.StatusForbidden},
		{"evaluator creates criterion", http.MethodPost, "/criteria", evaluator, map[string]any{"name": "Speed"}, http.StatusForbidden},
		{"employee creates evaluation", http.MethodPost, "/evaluations", employee, map[string]any{}, http.StatusForbidden},
		{"evaluator exports detail", http.MethodGet, "/exports/detail", evaluator, nil, http.StatusForbidden},
		{"employee reads summaries", http.MethodGet, "/reports/summaries", employee, nil, http.StatusForbidden},
		{"employee reads criteria", http.MethodGet, "/criteria", employee, nil, http.StatusOK},
		{"evaluator reads summaries", http.MethodGet, "/reports/summaries", evaluator, nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestRoleChangesApplyToExistingTokens(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "Admin@123")
	evaluator := s.login("eva", "password1")

	evalBody := map[string]any{
		"employee_id": s.employeeID,
		"scores":      map[string]int{s.criterionIDs[0]: 4},
	}
	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/evaluations", evaluator, evalBody).Code)

	w := s.do(http.MethodPut, "/users/"+s.evaluatorID, admin, map[string]any{"role": "employee"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/evaluations", evaluator, evalBody).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/reports/summaries", evaluator, nil).Code)

	w = s.do(http.MethodPut, "/users/"+s.evaluatorID, admin, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/me", evaluator, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account_inactive", decode[errorBody](t, w).Error.Code)

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/users/"+s.evaluatorID, admin, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/reports/summaries", evaluator, nil).Code)

	assert.Len(t, s.app.Evaluations.List(context.Background()), 1)
}

func TestUsers_AdminManagement(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "Admin@123")

	w := s.do(http.MethodPost, "/users", admin, map[string]string{
		"username": "eva", "password": "password1", "role": "evaluator", "email": "x@example.com",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/users", admin, map[string]string{
		"username": "zz", "password": "short", "role": "boss", "email": "nope",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := map[string]string{}
	for _, f := range decode[errorBody](t, w).Error.Details.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{"username": "min", "password": "min", "role": "oneof", "email": "email"}, fields)

	w = s.do(http.MethodPost, "/users", admin, map[string]string{
		"username": "newbie", "password": "password1", "role": "employee", "email": "newbie@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[map[string]any](t, w)
	id := created["id"].(string)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodPost, "/users/"+id+"/password", admin, map[string]string{"password": "resetpass"}).Code)
	s.login("newbie", "resetpass")

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodDelete, "/users/"+s.adminID, admin, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/users/"+id, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/users/"+id, admin, nil).Code)
}

func TestCriteria_CRUD(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "Admin@123")

	w := s.do(http.MethodPost, "/criteria", admin, map[string]any{"name": "X", "weight": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/criteria", admin, map[string]any{"name": "Speed", "weight": 1.5})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]any](t, w)["id"].(string)

	w = s.do(http.MethodPut, "/criteria/"+id, admin, map[string]any{"weight": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decode[map[string]any](t, w)["weight"])

	w = s.do(http.MethodGet, "/criteria", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/criteria", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	s.r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/criteria/"+id, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/criteria/"+id, admin, nil).Code)
}

func TestEvaluations_CreateValidation(t *testing.T) {
	s := newTestServer(t)
	evaluator := s.login("eva", "password1")
	quality, teamwork := s.criterionIDs[0], s.criterionIDs[1]

	w := s.do(http.MethodPost, "/evaluations", evaluator, map[string]any{
		"employee_id": s.evaluatorID,
		"scores":      map[string]int{quality: 9, "c-missing": 3},
		"status":      "done",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	got := map[string]string{}
	for _, f := range decode[errorBody](t, w).Error.Details.Fields {
		got[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{
		"status":            "oneof",
		"scores." + quality: "range",
		"employee_id":       "exists",
		"scores.c-missing":  "exists",
	}, got)

	assert.Empty(t, s.app.Evaluations.List(context.Background()))

	w = s.do(http.MethodPost, "/evaluations", evaluator, map[string]any{
		"employee_id": s.employeeID,
		"scores":      map[string]int{quality: 5, teamwork: 2},
		"comments":    "  solid quarter ",
		"status":      "final",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	ev := decode[map[string]any](t, w)
	assert.Equal(t, s.evaluatorID, ev["evaluator_id"])
	assert.Equal(t, "Emma Ployee", ev["employee_name"])
	assert.Equal(t, "Eva Luator", ev["evaluator_name"])
	assert.Equal(t, "solid quarter", ev["comments"])
	assert.InDelta(t, 4.0, ev["weighted_score"], 1e-9)
}

func TestEvaluations_Visibility(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "Admin@123")
	evaluator := s.login("eva", "password1")
	employee := s.login("emma", "password1")

	s.mustCreateUser("otto", user.RoleEmployee, "Otto")
	other := s.login("otto", "password1")
	s.mustCreateUser("evan", user.RoleEvaluator, "Evan")
	otherEvaluator := s.login("evan", "password1")

	w := s.do(http.MethodPost, "/evaluations", evaluator, map[string]any{
		"employee_id": s.employeeID,
		"scores":      map[string]int{s.criterionIDs[0]: 3},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[map[string]any](t, w)["id"].(string)

	type list struct {
		Count int `json:"count"`
	}
	assert.Equal(t, 1, decode[list](t, s.do(http.MethodGet, "/evaluations", employee, nil)).Count)
	assert.Equal(t, 0, decode[list](t, s.do(http.MethodGet, "/evaluations", other, nil)).Count)
	assert.Equal(t, 0, decode[list](t, s.do(http.MethodGet, "/evaluations", otherEvaluator, nil)).Count)
	assert.Equal(t, 1, decode[list](t, s.do(http.MethodGet, "/evaluations", admin, nil)).Count)

	w = s.do(http.MethodGet, "/evaluations/"+id, employee, nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[map[string]any](t, w)
	assert.Len(t, detail["breakdown"], 1)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/evaluations/"+id, other, nil).Code)

	update := map[string]any{"status": "final", "comments": "done"}
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPut, "/evaluations/"+id, otherEvaluator, update).Code)

	w = s.do(http.MethodPut, "/evaluations/"+id, evaluator, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[map[string]any](t, w)
	assert.Equal(t, "final", updated["status"])
	assert.Equal(t, "done", updated["comments"])

	w = s.do(http.MethodPut, "/evaluations/"+id, admin, map[string]any{"scores": map[string]int{s.criterionIDs[0]: 0}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/evaluations/"+id, evaluator, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/evaluations/"+id, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/evaluations/"+id, admin, nil).Code)
}

func TestEvaluations_DanglingUserRendersUnknown(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "Admin@123")
	evaluator := s.login("eva", "password1")

	w := s.do(http.MethodPost, "/evaluations", evaluator, map[string]any{
		"employee_id": s.employeeID,
		"scores":      map[string]int{s.criterionIDs[1]: 4},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	require.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/users/"+s.employeeID, admin, nil).Code)

	type list struct {
		Items []map[string]any `json:"items"`
	}
	resp := decode[list](t, s.do(http.MethodGet, "/evaluations", admin, nil))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Unknown", resp.Items[0]["employee_name"])
	assert.Equal(t, "Eva Luator", resp.Items[0]["evaluator_name"])
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/dashboard", s.login("admin", "Admin@123"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	counts := body["counts"].(map[string]any)
	assert.EqualValues(t, 3, counts["users"])
	assert.EqualValues(t, 2, counts["criteria"])

	w = s.do(http.MethodGet, "/dashboard", s.login("emma", "password1"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode[map[string]any](t, w)
	assert.Equal(t, "employee", body["role"])
	assert.Contains(t, body, "summary")
}

func TestExports(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin", "Admin@123")
	evaluator := s.login("eva", "password1")

	w := s.do(http.MethodPost, "/evaluations", evaluator, map[string]any{
		"employee_id": s.employeeID,
		"scores":      map[string]int{s.criterionIDs[0]: 4, s.criterionIDs[1]: 5},
		"status":      "final",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/exports/detail?filename=../../escape.xlsx", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "escape.xlsx")
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"), "xlsx is a zip archive")
	assert.FileExists(t, filepath.Join(s.app.Exporter.Dir(), "escape.xlsx"))

	w = s.do(http.MethodGet, "/exports/summary", evaluator, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))

	w = s.do(http.MethodGet, "/reports/summaries/"+s.employeeID, s.login("emma", "password1"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, summary["final_evaluations"])
	assert.Equal(t, "Emma Ployee", summary["employee_name"])
}
