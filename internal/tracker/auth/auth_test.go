package auth

import (
	"context"
	"testing"
	"time"

	pkgerrors "codetrack/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newTestService() *Service {
	return NewService(Config{JWTSecret: testSecret, JWTIssuer: "codetrack"})
}

func signToken(t *testing.T, subject string, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    "codetrack",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}
	return token
}

func TestSignInPublishesIdentityChange(t *testing.T) {
	svc := newTestService()

	var gotIdentity string
	var gotSignedIn bool
	var notifications int
	svc.Subscribe(func(_ context.Context, identity string, signedIn bool) {
		gotIdentity = identity
		gotSignedIn = signedIn
		notifications++
	})

	identity, err := svc.SignIn(context.Background(), signToken(t, "user-123", time.Hour))
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if identity != "user-123" {
		t.Fatalf("unexpected identity: %s", identity)
	}
	if notifications != 1 || gotIdentity != "user-123" || !gotSignedIn {
		t.Fatalf("listener not notified correctly: n=%d identity=%s signedIn=%v", notifications, gotIdentity, gotSignedIn)
	}
	if svc.CurrentIdentity() != "user-123" {
		t.Fatalf("current identity not set")
	}

	svc.SignOut(context.Background())
	if notifications != 2 || gotIdentity != "" || gotSignedIn {
		t.Fatalf("sign-out not published: n=%d identity=%q signedIn=%v", notifications, gotIdentity, gotSignedIn)
	}
	if svc.CurrentIdentity() != "" {
		t.Fatalf("identity not cleared")
	}
}

func TestSignOutWhileSignedOutIsNoop(t *testing.T) {
	svc := newTestService()
	var notifications int
	svc.Subscribe(func(context.Context, string, bool) { notifications++ })

	svc.SignOut(context.Background())
	if notifications != 0 {
		t.Fatalf("expected no notification, got %d", notifications)
	}
}

func TestSignInRejectsBadTokens(t *testing.T) {
	svc := newTestService()

	cases := []struct {
		name     string
		token    string
		wantCode pkgerrors.ErrorCode
	}{
		{name: "empty", token: "", wantCode: pkgerrors.TokenInvalid},
		{name: "garbage", token: "not.a.token", wantCode: pkgerrors.TokenInvalid},
		{name: "expired", token: signToken(t, "user-123", -time.Hour), wantCode: pkgerrors.TokenExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SignIn(context.Background(), tc.token)
			if err == nil {
				t.Fatalf("expected error")
			}
			if pkgerrors.GetCode(err) != tc.wantCode {
				t.Fatalf("unexpected code: %d", pkgerrors.GetCode(err))
			}
			if svc.CurrentIdentity() != "" {
				t.Fatalf("identity must stay empty after failed sign-in")
			}
		})
	}
}

func TestSignInRejectsMissingSubject(t *testing.T) {
	svc := newTestService()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "codetrack",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token failed: %v", err)
	}

	if _, err := svc.SignIn(context.Background(), token); !pkgerrors.Is(err, pkgerrors.TokenInvalid) {
		t.Fatalf("expected TokenInvalid, got %v", err)
	}
}
