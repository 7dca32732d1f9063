package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/efraim-memorial/backend/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngPixel, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

var now = time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC)

func TestReadAcceptsImages(t *testing.T) {
	obj, err := Read(bytes.NewReader(pngPixel), "pic.bin", 5<<20, "efraim-gallery", now)
	require.NoError(t, err)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.True(t, strings.HasPrefix(obj.Key, "efraim-gallery/2024/06/"), obj.Key)
	assert.True(t, strings.HasSuffix(obj.Key, ".png"), obj.Key)
	assert.Equal(t, int64(len(pngPixel)), obj.Size())
}

func TestReadRejectsOversizeAndNonImages(t *testing.T) {
	_, err := Read(bytes.NewReader(pngPixel), "pic.png", int64(len(pngPixel)-1), "f", now)
	assert.ErrorIs(t, err, apperr.ErrPayloadTooLarge)

	_, err = Read(strings.NewReader("hello, plain text"), "notes.png", 1<<20, "f", now)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedMediaType)

	_, err = Read(strings.NewReader(""), "empty.png", 1<<20, "f", now)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPrepareRequiresFile(t *testing.T) {
	_, err := Prepare(nil, 1<<20, "f", now)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type cloudinaryCall struct {
	path   string
	fields map[string]string
	user   string
	pass   string
}

func fakeCloudinary(t *testing.T) (*httptest.Server, *[]cloudinaryCall) {
	t.Helper()
	var mu sync.Mutex
	calls := []cloudinaryCall{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := cloudinaryCall{path: r.URL.Path, fields: map[string]string{}}
		call.user, call.pass, _ = r.BasicAuth()
		if r.Method == http.MethodPost {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
				_ = r.ParseMultipartForm(1 << 20)
			} else {
				_ = r.ParseForm()
			}
			for k := range r.PostForm {
				call.fields[k] = r.PostForm.Get(k)
			}
		}
		mu.Lock()
		calls = append(calls, call)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/upload"):
			_ = json.NewEncoder(w).Encode(map[string]string{
				"public_id":  call.fields["public_id"],
				"secure_url": "https://res.cloudinary.com/demo/image/upload/" + call.fields["public_id"] + ".png",
			})
		case strings.HasSuffix(r.URL.Path, "/destroy"):
			_, _ = io.WriteString(w, `{"result":"ok"}`)
		case strings.HasSuffix(r.URL.Path, "/usage"):
			_, _ = io.WriteString(w, `{"plan":"Free","last_updated":"2024-06-09"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestCloudinaryUploadDeleteUsage(t *testing.T) {
	srv, calls := fakeCloudinary(t)
	c, err := NewCloudinary(CloudinaryOptions{CloudName: "demo", APIKey: "key", APISecret: "secret", BaseURL: srv.URL + "/v1_1"})
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := Read(bytes.NewReader(pngPixel), "pic.png", 5<<20, "efraim-gallery", now)
	require.NoError(t, err)

	asset, err := c.Upload(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSuffix(obj.Key, ".png"), asset.PublicID)
	assert.True(t, strings.HasPrefix(asset.URL, "https://res.cloudinary.com/"))

	require.NoError(t, c.Delete(ctx, asset.PublicID))

	usage, err := c.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Free", usage["plan"])
	assert.NotContains(t, usage, "error")

	require.Len(t, *calls, 3)
	upload := (*calls)[0]
	assert.True(t, strings.HasPrefix(upload.path, "/v1_1/demo/"), upload.path)
	assert.Equal(t, "key", upload.fields["api_key"])
	assert.Len(t, upload.fields["signature"], 40)
	assert.NotEmpty(t, upload.fields["timestamp"])

	destroy := (*calls)[1]
	assert.True(t, strings.HasSuffix(destroy.path, "/destroy"), destroy.path)
	assert.Equal(t, asset.PublicID, destroy.fields["public_id"])

	usageCall := (*calls)[2]
	assert.True(t, strings.HasPrefix(usageCall.path, "/v1_1/demo/usage"), usageCall.path)
	assert.Equal(t, "key", usageCall.user)
	assert.Equal(t, "secret", usageCall.pass)
}

func TestCloudinaryFailuresAreExternal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid Signature"}}`)
	}))
	t.Cleanup(srv.Close)
	c, err := NewCloudinary(CloudinaryOptions{CloudName: "demo", APIKey: "k", APISecret: "s", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Upload(context.Background(), Object{Key: "f/x.png", Data: pngPixel})
	assert.ErrorIs(t, err, apperr.ErrExternalService)
	assert.Equal(t, "cloudinary upload request failed", apperr.MessageOf(err))

	err = c.Delete(context.Background(), "f/x")
	assert.ErrorIs(t, err, apperr.ErrExternalService)

	_, err = c.Usage(context.Background())
	assert.ErrorIs(t, err, apperr.ErrExternalService)
}

func TestNewCloudinaryRequiresCredentials(t *testing.T) {
	_, err := NewCloudinary(CloudinaryOptions{CloudName: "demo", APIKey: "k"})
	assert.Error(t, err)
}

func TestLocalHost(t *testing.T) {
	dir := t.TempDir()
	h, err := NewLocal(dir, "uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := Read(bytes.NewReader(pngPixel), "pic.png", 5<<20, "gallery", now)
	require.NoError(t, err)
	asset, err := h.Upload(ctx, obj)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/"+obj.Key, asset.URL)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(obj.Key)))
	require.NoError(t, err)
	assert.Equal(t, pngPixel, data)

	usage, err := h.Usage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usage["objects"])

	require.NoError(t, h.Delete(ctx, asset.PublicID))
	require.NoError(t, h.Delete(ctx, asset.PublicID), "deleting twice is fine")
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(obj.Key)))
	assert.True(t, os.IsNotExist(err))

	assert.Error(t, h.Delete(ctx, "../outside.png"))
}

func TestS3Host(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		seen[r.Method+" "+r.URL.Path]++
		mu.Unlock()
		switch r.Method {
		case http.MethodPut:
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	h, err := NewS3(context.Background(), S3Options{
		Bucket:          "memorial",
		Region:          "us-east-1",
		Endpoint:        srv.URL,
		AccessKeyID:     "AKID",
		SecretAccessKey: "SECRET",
		PathStyle:       true,
	})
	require.NoError(t, err)

	obj, err := Read(bytes.NewReader(pngPixel), "pic.png", 5<<20, "efraim/gallery", now)
	require.NoError(t, err)
	asset, err := h.Upload(context.Background(), obj)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/memorial/"+obj.Key, asset.URL)
	assert.Equal(t, obj.Key, asset.PublicID)

	require.NoError(t, h.Delete(context.Background(), asset.PublicID))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, seen["PUT /memorial/"+obj.Key])
	assert.Equal(t, 1, seen["DELETE /memorial/"+obj.Key])
}

func TestFoldersAndObjectKey(t *testing.T) {
	key := ObjectKey("/gallery/", ".jpg", now)
	parts := strings.Split(key, "/")
	require.Len(t, parts, 4)
	assert.Equal(t, []string{"gallery", "2024", "06"}, parts[:3])
	assert.Len(t, strings.TrimSuffix(parts[3], ".jpg"), 36)
}
