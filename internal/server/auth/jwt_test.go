package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/aiexplorer/internal/common"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	m := NewTokenManager([]byte("super-secret"))

	tok, issued, err := m.Generate("user-123", "admin", KindAccess, time.Hour)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if issued.ID == "" {
		t.Fatalf("expected token id to be set")
	}

	claims, err := m.Parse(tok, KindAccess)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if claims.UserID() != "user-123" {
		t.Fatalf("userID mismatch: got %q want %q", claims.UserID(), "user-123")
	}
	if claims.Role != "admin" {
		t.Fatalf("role mismatch: got %q", claims.Role)
	}
	if claims.ID != issued.ID {
		t.Fatalf("jti mismatch: got %q want %q", claims.ID, issued.ID)
	}
}

func TestParse_ValidUntilExpiryInstant(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewTokenManager([]byte("k")).WithClock(fixedClock(start))

	tok, _, err := m.Generate("u1", "user", KindAccess, 15*time.Minute)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	before := m.WithClock(fixedClock(start.Add(15*time.Minute - time.Second)))
	if _, err := before.Parse(tok, KindAccess); err != nil {
		t.Fatalf("expected token valid before expiry, got %v", err)
	}

	at := m.WithClock(fixedClock(start.Add(15 * time.Minute)))
	if _, err := at.Parse(tok, KindAccess); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired at expiry, got %v", err)
	}

	after := m.WithClock(fixedClock(start.Add(time.Hour)))
	if _, err := after.Parse(tok, KindAccess); !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after expiry, got %v", err)
	}
}

func TestParse_WrongKind(t *testing.T) {
	t.Parallel()

	m := NewTokenManager([]byte("k"))
	tok, _, err := m.Generate("u1", "user", KindRefresh, time.Hour)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	if _, err := m.Parse(tok, KindAccess); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for refresh token used as access, got %v", err)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := NewTokenManager([]byte("right-secret")).Generate("u2", "user", KindAccess, time.Hour)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	_, err = NewTokenManager([]byte("wrong-secret")).Parse(tok, KindAccess)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for invalid signature, got %v", err)
	}
}

func TestParse_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := NewTokenManager([]byte("k")).Parse("not.a.jwt", KindAccess)
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
}
