package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/moderation"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/efraim-memorial/backend/internal/store/filestore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, guards ...gin.HandlerFunc) (*gin.Engine, *moderation.Workflow[*models.Memory]) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	wf := moderation.New(Kind(), store.Store[*models.Memory](filestore.New[*models.Memory](t.TempDir(), Files, filestore.Options{})))
	r := gin.New()
	NewHandler(wf, guards...).RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })
	return r, wf
}

func call(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitValidatesFields(t *testing.T) {
	r, wf := newRouter(t)

	w := call(r, http.MethodPost, "/api/memories", `{"name":"  ","message":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing fields: name, message")

	w = call(r, http.MethodPost, "/api/memories", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"ok":0,"code":400,"error":"Invalid JSON body"}`, w.Body.String())

	w = call(r, http.MethodPost, "/api/memories", `{"name":"Dana",`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid JSON body")

	w = call(r, http.MethodPost, "/api/memories", ``)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing fields: name, message")

	w = call(r, http.MethodPost, "/api/memories", `{"name":" Dana ","message":"Shabbat dinners"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"Memory submitted and pending approval"}`, w.Body.String())

	pending, err := wf.List(context.Background(), store.Pending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Dana", pending[0].Name)
}

func TestEditApproveAndLegacyRoutes(t *testing.T) {
	r, _ := newRouter(t)
	require.Equal(t, http.StatusCreated, call(r, http.MethodPost, "/api/memories", `{"name":"Dana","message":"typo"}`).Code)
	require.Equal(t, http.StatusCreated, call(r, http.MethodPost, "/api/memories", `{"name":"Noa","message":"second"}`).Code)

	w := call(r, http.MethodPost, "/api/memories/edit/0", `{"name":"Dana","message":"fixed"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodPost, "/api/memories/edit/0", `{"name":"Dana","message":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(r, http.MethodPost, "/api/approve/0", "")
	require.Equal(t, http.StatusOK, w.Code)
	var approved struct {
		Message string        `json:"message"`
		Item    models.Memory `json:"item"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &approved))
	assert.Equal(t, "memory approved", approved.Message)
	assert.Equal(t, "fixed", approved.Item.Message)

	var list []models.Memory
	w = call(r, http.MethodGet, "/api/pending", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Noa", list[0].Name)

	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/api/memories/approve/abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, call(r, http.MethodPost, "/api/memories/approve/7", "").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodPost, "/api/delete/0", "").Code)
	assert.Equal(t, "[]", call(r, http.MethodGet, "/api/memories/pending", "").Body.String())
}

func TestGuardsRunBeforeSubmit(t *testing.T) {
	blocked := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusTooManyRequests)
	}
	r, wf := newRouter(t, nil, blocked)

	w := call(r, http.MethodPost, "/api/memories", `{"name":"Dana","message":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	pending, err := wf.List(context.Background(), store.Pending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
