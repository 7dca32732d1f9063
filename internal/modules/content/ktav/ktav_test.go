package ktav

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/efraim-memorial/backend/internal/middleware"
	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/moderation"
	"github.com/efraim-memorial/backend/internal/pkg/session"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/efraim-memorial/backend/internal/store/filestore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminHeader = "X-Test-Admin"

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	wf := moderation.New(Kind(), store.Store[*models.Ktav](filestore.New[*models.Ktav](t.TempDir(), Files, filestore.Options{})))
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader(adminHeader) != "" {
			c.Set(middleware.ContextKeySession, &session.Session{ID: "test", Admin: true})
		}
		c.Next()
	})
	NewHandler(wf).RegisterRoutes(r.Group("/api"), middleware.Admin())
	return r
}

func call(r http.Handler, method, path, body string, admin bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set(adminHeader, "1")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []models.Ktav {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out []models.Ktav
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestVisitorKtavIsQueued(t *testing.T) {
	r := newRouter(t)

	w := call(r, http.MethodPost, "/api/ktavim", `{"title":"Letter","content":"dear friend"}`, false)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Ktav submitted and pending approval","approved":false}`, w.Body.String())

	assert.Empty(t, decodeList(t, call(r, http.MethodGet, "/api/ktavim", "", false)))
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/ktavim/pending", "", false).Code)
	assert.Len(t, decodeList(t, call(r, http.MethodGet, "/api/ktavim/pending", "", true)), 1)

	require.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/ktavim/approve/0", "", true).Code)
	assert.Len(t, decodeList(t, call(r, http.MethodGet, "/api/ktavim", "", false)), 1)
}

func TestAdminKtavIsPublished(t *testing.T) {
	r := newRouter(t)

	w := call(r, http.MethodPost, "/api/ktavim", `{"title":"Poem","content":"line one\nline two"}`, true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"approved":true`)

	w = call(r, http.MethodGet, "/api/ktavim/0", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var k models.Ktav
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &k))
	assert.Equal(t, "Poem", k.Title)
	assert.True(t, k.Approved)

	w = call(r, http.MethodGet, "/api/ktavim/0/html", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var rendered htmlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rendered))
	assert.Equal(t, "Poem", rendered.Title)
	assert.Contains(t, rendered.HTML, "line one<br />")

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "/api/ktavim/0", "", false).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/api/ktavim/0", "", true).Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodGet, "/api/ktavim/0/html", "", false).Code)
}

func TestKtavRequiresTitleAndContent(t *testing.T) {
	r := newRouter(t)
	w := call(r, http.MethodPost, "/api/ktavim", `{"title":"only a title"}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing field: content")
}

func TestKtavRejectsMalformedBody(t *testing.T) {
	r := newRouter(t)
	w := call(r, http.MethodPost, "/api/ktavim", `{"title":`, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid JSON body")
	assert.Empty(t, decodeList(t, call(r, http.MethodGet, "/api/ktavim/pending", "", true)))
}
