package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrEmptyToken = errors.New("empty access token")

// Session holds the backend access token for the single storefront user.
// The token is issued by the backend login flow; only its expiry is read here.
type Session interface {
	Token() string
	IsLoggedIn() bool
	Login(token string) error
	Logout(ctx context.Context)
	// Expire is called when the backend answers 401.
	Expire()
	OnLogout(fn func(ctx context.Context))
}

type sessionImpl struct {
	log      *zap.Logger
	notifier Notifier
	now      func() time.Time

	mu       sync.RWMutex
	token    string
	onLogout []func(ctx context.Context)
}

func NewSession(log *zap.Logger, notifier Notifier, token string) Session {
	return &sessionImpl{
		log:      log,
		notifier: notifier,
		now:      time.Now,
		token:    token,
	}
}

func (s *sessionImpl) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *sessionImpl) IsLoggedIn() bool {
	token := s.Token()
	if token == "" {
		return false
	}

	exp, ok := tokenExpiry(token)
	if !ok {
		// opaque token, trust it until the backend says otherwise
		return true
	}
	return s.now().Before(exp)
}

func (s *sessionImpl) Login(token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	s.log.Info("session started")
	return nil
}

func (s *sessionImpl) Logout(ctx context.Context) {
	s.mu.Lock()
	s.token = ""
	hooks := append([]func(ctx context.Context){}, s.onLogout...)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
	s.log.Info("session closed")
}

func (s *sessionImpl) Expire() {
	if s.Token() == "" {
		return
	}
	s.log.Warn("backend rejected the session token, logging out")
	s.notifier.Notify(NoticeWarning, "Tu sesión expiró, iniciá sesión nuevamente")
	s.Logout(context.Background())
}

func (s *sessionImpl) OnLogout(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLogout = append(s.onLogout, fn)
}

// tokenExpiry reads the exp claim without verifying the signature,
// the backend is the one that validates it.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
