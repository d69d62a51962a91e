package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"

	pkgerrors "codetrack/pkg/errors"
	"codetrack/pkg/utils/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Config holds auth boundary settings.
type Config struct {
	JWTSecret string `yaml:"jwtSecret"`
	JWTIssuer string `yaml:"jwtIssuer"`
}

// Listener is notified on every identity change. identity is the new
// identity ("" after sign-out) and signedIn tells which transition happened.
type Listener func(ctx context.Context, identity string, signedIn bool)

// Service is the authentication boundary. The popup/credential flow lives
// outside this system; we only validate the bearer token it produced and
// publish identity changes. The reconciliation engine subscribes to the
// change notification rather than to the sign-in call, so it reacts the
// same way whether identity changes via explicit action or external cause.
type Service struct {
	secret []byte
	issuer string

	mu        sync.Mutex
	identity  string
	listeners []Listener
}

// NewService creates an auth Service.
func NewService(cfg Config) *Service {
	issuer := cfg.JWTIssuer
	if issuer == "" {
		issuer = "codetrack"
	}
	return &Service{
		secret: []byte(cfg.JWTSecret),
		issuer: issuer,
	}
}

// Subscribe registers a listener for identity changes.
// Listeners are invoked synchronously, in registration order.
func (s *Service) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// CurrentIdentity returns the active identity, or "" when signed out.
func (s *Service) CurrentIdentity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SignIn validates the bearer token and publishes the identity change.
// Signing in again with the same identity still notifies: sign-in is
// idempotent at the reconciliation layer, not suppressed here.
func (s *Service) SignIn(ctx context.Context, token string) (string, error) {
	identity, err := s.validate(token)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.identity = identity
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	logger.Info(ctx, "identity signed in", zap.String("identity", identity))
	for _, l := range listeners {
		l(ctx, identity, true)
	}
	return identity, nil
}

// SignOut clears the active identity and publishes the change.
// Signing out while already signed out is a no-op.
func (s *Service) SignOut(ctx context.Context) {
	s.mu.Lock()
	if s.identity == "" {
		s.mu.Unlock()
		return
	}
	previous := s.identity
	s.identity = ""
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	logger.Info(ctx, "identity signed out", zap.String("identity", previous))
	for _, l := range listeners {
		l(ctx, "", false)
	}
}

// validate parses the HS256 token and extracts the subject claim.
func (s *Service) validate(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", pkgerrors.New(pkgerrors.TokenInvalid)
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, pkgerrors.New(pkgerrors.TokenInvalid)
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer))
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", pkgerrors.Wrap(err, pkgerrors.TokenExpired)
		}
		return "", pkgerrors.Wrap(err, pkgerrors.TokenInvalid)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", pkgerrors.New(pkgerrors.TokenInvalid)
	}
	return claims.Subject, nil
}
