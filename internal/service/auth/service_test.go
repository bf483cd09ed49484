package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voltmesh/voltmesh/internal/domain"
	"github.com/voltmesh/voltmesh/internal/mocks"
)

func newAuthService(t *testing.T) (*Service, *mocks.MockClock) {
	t.Helper()
	clock := mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewService(mocks.NewMockUserRepository(), nil, clock, "test-secret", zap.NewNop()), clock
}

func TestRegister(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Alice@Example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email should be normalized, got %s", user.Email)
	}
	if user.Role != domain.UserRoleParticipant {
		t.Errorf("expected participant role, got %s", user.Role)
	}
	if !strings.HasPrefix(user.Identity, "vx:") {
		t.Errorf("expected generated identity, got %q", user.Identity)
	}
	if user.PasswordHash == "correct horse battery" {
		t.Error("password must be hashed")
	}

	if _, err := svc.Register(ctx, "alice@example.com", "another password"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("duplicate email must be rejected, got %v", err)
	}
	if _, err := svc.Register(ctx, "not-an-email", "long enough pw"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("invalid email must be rejected, got %v", err)
	}
	if _, err := svc.Register(ctx, "bob@example.com", "short"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("short password must be rejected, got %v", err)
	}
}

func TestLoginAndValidate(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	token, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	user, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if user.ID != registered.ID || user.Identity != registered.Identity {
		t.Errorf("token resolved wrong account: %+v", user)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong password"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("wrong password must fail, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "correct horse battery"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("unknown email must fail, got %v", err)
	}
}

func TestValidateTokenRejectsGarbageAndExpiry(t *testing.T) {
	svc, clock := newAuthService(t)
	ctx := context.Background()

	if _, err := svc.ValidateToken(ctx, "not-a-token"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("garbage token must fail, got %v", err)
	}

	if _, err := svc.Register(ctx, "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	token, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	clock.Advance(25 * time.Hour)
	if _, err := svc.ValidateToken(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expired token must fail, got %v", err)
	}
}

func TestValidateTokenUsesCache(t *testing.T) {
	clock := mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	users := mocks.NewMockUserRepository()
	cache := mocks.NewMockCache()
	svc := NewService(users, cache, clock, "test-secret", zap.NewNop())
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	token, err := svc.Login(ctx, "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// first validation populates the cache
	if _, err := svc.ValidateToken(ctx, token); err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if _, err := cache.Get(ctx, "auth:user:"+registered.ID); err != nil {
		t.Fatalf("expected cached account, got %v", err)
	}

	// second validation resolves from the cache even if the repo loses the row
	users.Delete(registered.ID)
	user, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken from cache failed: %v", err)
	}
	if user.Identity != registered.Identity {
		t.Errorf("cached account mismatch: %+v", user)
	}
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	clock := mocks.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	users := mocks.NewMockUserRepository()
	svcA := NewService(users, nil, clock, "secret-a", zap.NewNop())
	svcB := NewService(users, nil, clock, "secret-b", zap.NewNop())
	ctx := context.Background()

	if _, err := svcA.Register(ctx, "alice@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	token, err := svcA.Login(ctx, "alice@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if _, err := svcB.ValidateToken(ctx, token); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("token signed with another secret must fail, got %v", err)
	}
}
