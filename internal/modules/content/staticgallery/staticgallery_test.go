package staticgallery

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/efraim-memorial/backend/internal/media"
	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/efraim-memorial/backend/internal/store/filestore"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

type recordingHost struct {
	n       int
	deleted []string
}

func (h *recordingHost) Name() string { return "recording" }

func (h *recordingHost) Upload(_ context.Context, obj media.Object) (media.Asset, error) {
	h.n++
	return media.Asset{URL: "https://cdn.example/" + obj.Key, PublicID: obj.Key}, nil
}

func (h *recordingHost) Delete(_ context.Context, publicID string) error {
	h.deleted = append(h.deleted, publicID)
	return nil
}

type brokenSlots struct{}

func (brokenSlots) List(context.Context) ([]models.StaticSlot, error) { return nil, nil }

func (brokenSlots) Put(context.Context, models.StaticSlot) (*models.StaticSlot, error) {
	return nil, errors.New("disk full")
}

func newRouter(t *testing.T, host media.Host, limit int64) *gin.Engine {
	t.Helper()
	return newRouterWith(t, filestore.NewSlotStore(t.TempDir(), File), host, limit)
}

func newRouterWith(t *testing.T, slots store.SlotStore, host media.Host, limit int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewService(slots, host, "efraim-static", limit)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api"), func(c *gin.Context) { c.Next() })
	return r
}

func replace(t *testing.T, r http.Handler, slot string, data []byte, caption string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "slot.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("caption", caption))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/static-gallery/"+slot, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func listSlots(t *testing.T, r http.Handler) []models.StaticSlot {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/static-gallery", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out []models.StaticSlot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestParseSlot(t *testing.T) {
	for raw, want := range map[string]int{"1": 1, "6": 6, " 3 ": 3} {
		got, err := ParseSlot(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, raw := range []string{"0", "7", "-1", "one", ""} {
		_, err := ParseSlot(raw)
		assert.ErrorIs(t, err, apperr.ErrInvalidIndex, raw)
	}
}

func TestReplaceReleasesPreviousMedia(t *testing.T) {
	host := &recordingHost{}
	r := newRouter(t, host, 15<<20)

	assert.Empty(t, listSlots(t, r))

	require.Equal(t, http.StatusOK, replace(t, r, "2", pngPixel, "first").Code)
	first := listSlots(t, r)
	require.Len(t, first, 1)
	assert.Equal(t, 2, first[0].Slot)
	assert.Empty(t, host.deleted)

	require.Equal(t, http.StatusOK, replace(t, r, "2", pngPixel, "second").Code)
	second := listSlots(t, r)
	require.Len(t, second, 1)
	assert.Equal(t, "second", second[0].Caption)
	assert.Equal(t, []string{first[0].PublicID}, host.deleted)

	require.Equal(t, http.StatusOK, replace(t, r, "1", pngPixel, "").Code)
	slots := listSlots(t, r)
	require.Len(t, slots, 2)
	assert.Equal(t, 1, slots[0].Slot)
	assert.Equal(t, 2, slots[1].Slot)
}

func TestReplaceRejectsBadInput(t *testing.T) {
	host := &recordingHost{}
	r := newRouter(t, host, 1<<10)

	assert.Equal(t, http.StatusBadRequest, replace(t, r, "7", pngPixel, "").Code)
	assert.Equal(t, http.StatusBadRequest, replace(t, r, "1", append(append([]byte{}, pngPixel...), make([]byte, 1<<10)...), "").Code)
	assert.Equal(t, http.StatusBadRequest, replace(t, r, "1", []byte("%PDF-1.4 not an image"), "").Code)

	assert.Zero(t, host.n)
	assert.Empty(t, listSlots(t, r))
}

func TestReplaceReleasesUploadWhenSlotWriteFails(t *testing.T) {
	host := &recordingHost{}
	r := newRouterWith(t, brokenSlots{}, host, 15<<20)

	w := replace(t, r, "3", pngPixel, "lost")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, host.n)
	require.Len(t, host.deleted, 1)
	assert.Contains(t, host.deleted[0], "efraim-static/")
}
