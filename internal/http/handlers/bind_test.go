package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/perfeval/internal/http/handlers"
	"github.com/geocoder89/perfeval/internal/http/middlewares"
	"github.com/geocoder89/perfeval/internal/validation"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type bindErrorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
		Details   struct {
			JSON   string                  `json:"json"`
			Field  string                  `json:"field"`
			Fields []validation.FieldError `json:"fields"`
		} `json:"details"`
	} `json:"error"`
}

func bindRouter(maxBody int64) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.MaxBodyBytes(maxBody))
	r.POST("/password", func(ctx *gin.Context) {
		var req handlers.ChangePasswordRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusNoContent)
	})
	return r
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/password", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", "req-1")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBindError(t *testing.T, w *httptest.ResponseRecorder) bindErrorResponse {
	t.Helper()
	var resp bindErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w := post(bindRouter(0), `{"new_password":"short"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeBindError(t, w)
	assert.Equal(t, "invalid_request", resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)

	rules := map[string]string{}
	for _, f := range resp.Error.Details.Fields {
		rules[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{"old_password": "required", "new_password": "min"}, rules)
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w := post(bindRouter(0), `{"old_password":}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_json_syntax", decodeBindError(t, w).Error.Details.JSON)
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	w := post(bindRouter(0), `{"old_password":1,"new_password":"longenough"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeBindError(t, w)
	assert.Equal(t, "invalid_json_type", resp.Error.Details.JSON)
	assert.Equal(t, "old_password", resp.Error.Details.Field)
}

func TestBindJSON_BodyTooLarge(t *testing.T) {
	body := `{"old_password":"` + strings.Repeat("x", 256) + `","new_password":"longenough"}`

	w := post(bindRouter(64), body)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "body_too_large", decodeBindError(t, w).Error.Code)
}

func TestBindJSON_OK(t *testing.T) {
	w := post(bindRouter(0), `{"old_password":"a","new_password":"longenough"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRespondJSONWithETag(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(ctx *gin.Context) {
		handlers.RespondJSONWithETag(ctx, http.StatusOK, gin.H{"items": []int{1, 2}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.JSONEq(t, `{"items":[1,2]}`, w.Body.String())

	for _, header := range []string{etag, "W/" + etag, `"other", ` + etag, "*"} {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("If-None-Match", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotModified, w.Code, header)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("If-None-Match", `"stale"`)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
