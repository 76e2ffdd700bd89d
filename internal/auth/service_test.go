package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgauth "github.com/velora-co/velora-backend/pkg/auth"
	"github.com/velora-co/velora-backend/pkg/config"
	"github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/security"
)

type stubUserRepo struct {
	user        *models.User
	lastLoginAt *time.Time
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	s.lastLoginAt = &at
	return nil
}

type stubSessionManager struct {
	generated string
	rotated   bool
	revoked   []string
	rotateErr error
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = accessID
	return "refresh-" + accessID, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, oldAccessID, provided string) (string, string, error) {
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	s.rotated = true
	newID := "rotated-" + oldAccessID
	return newID, "refresh-" + newID, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "velora",
		ExpirationMinutes: 15,
	}
}

func newTestUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Ada",
		LastName:     "Shopper",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
}

func newTestService(t *testing.T, repo *stubUserRepo, sessions *stubSessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestLoginSuccess(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "correct horse battery")
	repo := &stubUserRepo{user: user}
	sessions := &stubSessionManager{}
	svc := newTestService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "Ada@Example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
	if repo.lastLoginAt == nil {
		t.Fatal("expected last login timestamp recorded")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("claims user = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Role != enums.UserRoleCustomer {
		t.Fatalf("claims role = %s", claims.Role)
	}
	if claims.ID != sessions.generated {
		t.Fatal("refresh session not keyed by token jti")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "correct horse battery")
	svc := newTestService(t, &stubUserRepo{user: user}, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "correct horse battery")
	user.IsActive = false
	svc := newTestService(t, &stubUserRepo{user: user}, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ada@example.com",
		Password: "correct horse battery",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc := newTestService(t, &stubUserRepo{}, &stubSessionManager{})

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "correct horse battery")
	repo := &stubUserRepo{user: user}
	sessions := &stubSessionManager{}
	svc := newTestService(t, repo, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ada@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	pair, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !sessions.rotated {
		t.Fatal("expected session rotation")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected new token pair")
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), pair.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("rotated claims user = %s", claims.UserID)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	svc := newTestService(t, &stubUserRepo{}, &stubSessionManager{})

	_, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "not-a-jwt",
		RefreshToken: "refresh",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	user := newTestUser(t, "ada@example.com", "correct horse battery")
	sessions := &stubSessionManager{}
	svc := newTestService(t, &stubUserRepo{user: user}, sessions)

	login, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ada@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := svc.Logout(context.Background(), login.AccessToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(sessions.revoked) != 1 {
		t.Fatalf("expected one revoked session, got %d", len(sessions.revoked))
	}
}
