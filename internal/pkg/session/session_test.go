package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/efraim-memorial/backend/internal/pkg/jwt"
	pkgredis "github.com/efraim-memorial/backend/internal/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T) *jwt.Signer {
	t.Helper()
	s, err := jwt.NewSigner("test-secret")
	require.NoError(t, err)
	return s
}

func TestManagerIssueResolveRevoke(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(), newSigner(t), 0)
	assert.Equal(t, DefaultTTL, m.TTL())

	token, sess, err := m.Issue(ctx, "10.0.0.1", "curl")
	require.NoError(t, err)
	assert.True(t, sess.Admin)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)

	require.NoError(t, m.Revoke(ctx, sess.ID))
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInactive)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, Session{ID: "a", Admin: true, ExpiresAt: now.Add(time.Minute)}))
	got, err := store.Load(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, got)

	now = now.Add(2 * time.Minute)
	got, err = store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreUsesKeyTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := pkgredis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	ctx := context.Background()
	m := NewManager(NewRedisStore(rc), newSigner(t), 30*time.Minute)

	token, sess, err := m.Issue(ctx, "", "")
	require.NoError(t, err)
	assert.True(t, mr.Exists(redisKeyPrefix+sess.ID))
	assert.InDelta(t, (30 * time.Minute).Seconds(), mr.TTL(redisKeyPrefix+sess.ID).Seconds(), 5)

	_, err = m.Resolve(ctx, token)
	require.NoError(t, err)

	mr.FastForward(31 * time.Minute)
	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrInactive)
}
