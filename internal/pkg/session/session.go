package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/efraim-memorial/backend/internal/pkg/jwt"
	pkgredis "github.com/efraim-memorial/backend/internal/pkg/redis"
	"github.com/google/uuid"
)

const DefaultTTL = time.Hour

var ErrInactive = errors.New("session expired or revoked")

// Session is a server-side admin session.
type Session struct {
	ID        string    `json:"id"`
	Admin     bool      `json:"admin"`
	IP        string    `json:"ip"`
	UA        string    `json:"ua"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store keeps session records until they expire or are deleted.
type Store interface {
	Save(ctx context.Context, s Session) error
	// Load returns nil without error when the session does not exist or has expired.
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Manager issues and resolves session tokens.
type Manager struct {
	store  Store
	signer *jwt.Signer
	ttl    time.Duration
}

func NewManager(store Store, signer *jwt.Signer, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: store, signer: signer, ttl: ttl}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue opens an admin session and signs a token bound to it.
func (m *Manager) Issue(ctx context.Context, ip, ua string) (string, *Session, error) {
	now := time.Now()
	s := Session{
		ID:        uuid.NewString(),
		Admin:     true,
		IP:        strings.TrimSpace(ip),
		UA:        strings.TrimSpace(ua),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return "", nil, err
	}
	token, _, err := m.signer.Sign(s.ID, m.ttl)
	if err != nil {
		_ = m.store.Delete(ctx, s.ID)
		return "", nil, err
	}
	return token, &s, nil
}

// Resolve validates token and returns its live session.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	claims, err := m.signer.Parse(token)
	if err != nil {
		return nil, err
	}
	s, err := m.store.Load(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if s == nil || !s.Admin {
		return nil, ErrInactive
	}
	return s, nil
}

func (m *Manager) Revoke(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, id)
		return nil, nil
	}
	return &sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

const redisKeyPrefix = "memorial:session:"

// RedisStore keeps sessions as JSON values whose key TTL is the session lifetime.
type RedisStore struct {
	rc *pkgredis.Client
}

func NewRedisStore(rc *pkgredis.Client) *RedisStore { return &RedisStore{rc: rc} }

func (s *RedisStore) Save(ctx context.Context, sess Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rc.Set(ctx, redisKeyPrefix+sess.ID, data, ttl)
}

func (s *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	raw, err := s.rc.Get(ctx, redisKeyPrefix+id)
	if err != nil || raw == "" {
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.rc.Del(ctx, redisKeyPrefix+id)
}
