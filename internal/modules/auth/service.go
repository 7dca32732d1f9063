package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/efraim-memorial/backend/internal/config"
	"github.com/efraim-memorial/backend/internal/pkg/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = errors.New("invalid admin credentials")

// Service checks credentials against the single configured admin identity.
type Service struct {
	username     string
	password     string
	passwordHash []byte
	sessions     *session.Manager
	failureDelay time.Duration
	logger       *zap.Logger
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("Auth")
		}
	}
}

// WithFailureDelay slows down failed logins.
func WithFailureDelay(d time.Duration) Option {
	return func(s *Service) { s.failureDelay = d }
}

func NewService(admin config.AdminConfig, sessions *session.Manager, opts ...Option) *Service {
	s := &Service{
		username:     admin.Username,
		password:     admin.Password,
		sessions:     sessions,
		failureDelay: time.Second,
		logger:       zap.NewNop(),
	}
	if admin.PasswordHash != "" {
		s.passwordHash = []byte(admin.PasswordHash)
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Login opens an admin session when username and password match.
func (s *Service) Login(ctx context.Context, username, password, ip, ua string) (string, *session.Session, error) {
	if !s.matches(username, password) {
		s.logger.Warn("admin login rejected", zap.String("username", username), zap.String("ip", ip))
		if s.failureDelay > 0 {
			select {
			case <-time.After(s.failureDelay):
			case <-ctx.Done():
			}
		}
		return "", nil, errInvalidCredentials
	}
	token, sess, err := s.sessions.Issue(ctx, ip, ua)
	if err != nil {
		return "", nil, err
	}
	s.logger.Info("admin logged in", zap.String("ip", ip))
	return token, sess, nil
}

func (s *Service) matches(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	var passOK bool
	if len(s.passwordHash) > 0 {
		passOK = bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	} else {
		passOK = s.password != "" && subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	}
	return userOK && passOK
}

// Logout revokes sess. A nil session is a no-op.
func (s *Service) Logout(ctx context.Context, sess *session.Session) error {
	if sess == nil {
		return nil
	}
	return s.sessions.Revoke(ctx, sess.ID)
}

func (s *Service) SessionTTL() time.Duration { return s.sessions.TTL() }
