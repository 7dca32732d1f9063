package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/efraim-memorial/backend/internal/database"
	"github.com/efraim-memorial/backend/internal/models"
	"github.com/efraim-memorial/backend/internal/moderation"
	"github.com/efraim-memorial/backend/internal/modules/content/ktav"
	"github.com/efraim-memorial/backend/internal/modules/content/memory"
	"github.com/efraim-memorial/backend/internal/modules/content/video"
	"github.com/efraim-memorial/backend/internal/store"
	"github.com/efraim-memorial/backend/internal/store/filestore"
	"github.com/efraim-memorial/backend/internal/store/sqlstore"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeSearcher[T any] struct {
	calls atomic.Int32
	items map[store.State][]T
	err   error
}

func (f *fakeSearcher[T]) Search(_ context.Context, state store.State, _ string, _ ...store.Match[T]) ([]T, error) {
	f.calls.Add(1)
	return f.items[state], f.err
}

func TestBlankQueryDoesNotSearch(t *testing.T) {
	k, m, v := &fakeSearcher[*models.Ktav]{}, &fakeSearcher[*models.Memory]{}, &fakeSearcher[*models.Video]{}
	svc := NewService(k, m, v)

	for _, q := range []string{"", "   ", "\t"} {
		res, err := svc.Search(context.Background(), q)
		require.NoError(t, err)
		assert.NotNil(t, res.Ktavim)
		assert.NotNil(t, res.Memories)
		assert.NotNil(t, res.Videos)
		assert.Empty(t, res.Ktavim)
	}
	assert.Zero(t, k.calls.Load())
	assert.Zero(t, m.calls.Load())
	assert.Zero(t, v.calls.Load())
}

func TestSearchAggregatesLists(t *testing.T) {
	k := &fakeSearcher[*models.Ktav]{items: map[store.State][]*models.Ktav{
		store.Approved: {{Title: "Camp letter"}},
		store.Pending:  {{Title: "Camp draft"}},
	}}
	m := &fakeSearcher[*models.Memory]{}
	v := &fakeSearcher[*models.Video]{items: map[store.State][]*models.Video{
		store.Approved: {{Title: "Camp song", Section: "music"}},
		store.Pending:  {{Title: "Camp fire", Section: "music"}},
	}}
	svc := NewService(k, m, v)

	res, err := svc.Search(context.Background(), "camp")
	require.NoError(t, err)
	require.Len(t, res.Ktavim, 1)
	assert.Equal(t, "Camp letter", res.Ktavim[0].Title)
	assert.NotNil(t, res.Memories)
	assert.Empty(t, res.Memories)
	require.Len(t, res.Videos, 2)
	assert.Equal(t, "Camp song", res.Videos[0].Title)
	assert.Equal(t, "Camp fire", res.Videos[1].Title)
	assert.EqualValues(t, 1, k.calls.Load())
	assert.EqualValues(t, 1, m.calls.Load())
	assert.EqualValues(t, 2, v.calls.Load())
}

func TestSearchFailure(t *testing.T) {
	svc := NewService(
		&fakeSearcher[*models.Ktav]{},
		&fakeSearcher[*models.Memory]{err: errors.New("disk gone")},
		&fakeSearcher[*models.Video]{},
	)
	_, err := svc.Search(context.Background(), "x")
	assert.Error(t, err)
}

type backend struct {
	name string
	open func(t *testing.T) (store.Store[*models.Ktav], store.Store[*models.Memory], store.Store[*models.Video])
}

func backends() []backend {
	return []backend{
		{
			name: "file",
			open: func(t *testing.T) (store.Store[*models.Ktav], store.Store[*models.Memory], store.Store[*models.Video]) {
				dir := t.TempDir()
				opts := filestore.Options{Lock: true}
				return filestore.New[*models.Ktav](dir, ktav.Files, opts),
					filestore.New[*models.Memory](dir, memory.Files, opts),
					filestore.New[*models.Video](dir, video.Files, opts)
			},
		},
		{
			name: "sql",
			open: func(t *testing.T) (store.Store[*models.Ktav], store.Store[*models.Memory], store.Store[*models.Video]) {
				db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
				require.NoError(t, err)
				sqlDB, err := db.DB()
				require.NoError(t, err)
				sqlDB.SetMaxOpenConns(1)
				t.Cleanup(func() { _ = sqlDB.Close() })
				require.NoError(t, database.Migrate(db))
				return sqlstore.New(db, "ktav", ktav.New),
					sqlstore.New(db, "memory", memory.New),
					sqlstore.New(db, "video", video.New)
			},
		},
	}
}

func TestSearchOverStores(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			ks, ms, vs := b.open(t)
			ktavim := moderation.New(ktav.Kind(), ks)
			memories := moderation.New(memory.Kind(), ms)
			videos := moderation.New(video.Kind(), vs)

			_, err := ktavim.SubmitAs(ctx, store.Approved, &models.Ktav{Title: "Summer camp", Content: "published"})
			require.NoError(t, err)
			_, err = ktavim.SubmitAs(ctx, store.Pending, &models.Ktav{Title: "Camp notes", Content: "waiting"})
			require.NoError(t, err)
			_, err = memories.SubmitAs(ctx, store.Approved, &models.Memory{Name: "Noa", Message: "the CAMP fire"})
			require.NoError(t, err)
			_, err = memories.SubmitAs(ctx, store.Pending, &models.Memory{Name: "Dana", Message: "camp songs"})
			require.NoError(t, err)
			_, err = videos.SubmitAs(ctx, store.Approved, &models.Video{Title: "camp A", YoutubeID: "a1", Section: "trips"})
			require.NoError(t, err)
			_, err = videos.SubmitAs(ctx, store.Pending, &models.Video{Title: "camp B", YoutubeID: "b2", Section: "trips"})
			require.NoError(t, err)
			_, err = videos.SubmitAs(ctx, store.Approved, &models.Video{Title: "Wedding", YoutubeID: "c3", Section: "family"})
			require.NoError(t, err)

			res, err := NewService(ktavim, memories, videos).Search(ctx, "Camp")
			require.NoError(t, err)

			require.Len(t, res.Ktavim, 1)
			assert.Equal(t, "published", res.Ktavim[0].Content)
			require.Len(t, res.Memories, 1)
			assert.Equal(t, "Noa", res.Memories[0].Name)

			titles := make([]string, 0, len(res.Videos))
			for _, v := range res.Videos {
				titles = append(titles, v.Title)
			}
			assert.ElementsMatch(t, []string{"camp A", "camp B"}, titles)
		})
	}
}

func TestSearchHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	m := &fakeSearcher[*models.Memory]{items: map[store.State][]*models.Memory{
		store.Approved: {{Name: "Dana", Message: "camp"}},
	}}
	NewHandler(NewService(&fakeSearcher[*models.Ktav]{}, m, &fakeSearcher[*models.Video]{})).RegisterRoutes(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=camp", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "[]", string(out["ktavim"]))
	assert.Equal(t, "[]", string(out["videos"]))
	assert.True(t, strings.Contains(string(out["memories"]), `"Dana"`))
}
