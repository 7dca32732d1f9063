package video

import (
	"bytes"
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

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	wf := moderation.New(Kind(), store.Store[*models.Video](filestore.New[*models.Video](t.TempDir(), Files, filestore.Options{})))
	r := gin.New()
	NewHandler(wf).RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/videos", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func list(t *testing.T, r http.Handler, query string) []models.Video {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/videos"+query, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out []models.Video
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreatePublishesImmediately(t *testing.T) {
	r := newRouter(t)

	w := post(r, `{"title":"Eulogy","youtubeId":" abc123 ","section":"memorial"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var v models.Video
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "abc123", v.YoutubeID)
	assert.True(t, v.Approved)

	require.Equal(t, http.StatusCreated, post(r, `{"title":"Song","youtubeId":"xyz","section":"music"}`).Code)

	assert.Len(t, list(t, r, ""), 2)
	music := list(t, r, "?section=music")
	require.Len(t, music, 1)
	assert.Equal(t, "Song", music[0].Title)
	assert.Empty(t, list(t, r, "?section=none"))
}

func TestCreateReportsMissingFields(t *testing.T) {
	r := newRouter(t)
	w := post(r, `{"title":"Eulogy"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing fields: youtubeId, section")
	assert.Empty(t, list(t, r, ""))
}

func TestCreateRejectsMalformedBody(t *testing.T) {
	r := newRouter(t)
	w := post(r, `{"title":"Eulogy","youtubeId":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid JSON body")
	assert.NotContains(t, w.Body.String(), "Missing")
	assert.Empty(t, list(t, r, ""))
}
