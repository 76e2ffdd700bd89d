package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velora-co/velora-backend/internal/users"
	"github.com/velora-co/velora-backend/pkg/config"
	pkgmodels "github.com/velora-co/velora-backend/pkg/db/models"
	"github.com/velora-co/velora-backend/pkg/enums"
	pkgerrors "github.com/velora-co/velora-backend/pkg/errors"
	"github.com/velora-co/velora-backend/pkg/outbox"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepository struct {
	data      map[string]*pkgmodels.User
	created   *pkgmodels.User
	createErr error
}

func newStubUserRepository() *stubUserRepository {
	return &stubUserRepository{data: map[string]*pkgmodels.User{}}
}

func (s *stubUserRepository) FindByEmail(_ context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepository) Create(_ context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type registerTestSetup struct {
	service  RegisterService
	userRepo *stubUserRepository
	outbox   *stubOutbox
}

func newRegisterTestSetup(t *testing.T) *registerTestSetup {
	t.Helper()
	userRepo := newStubUserRepository()
	emitter := &stubOutbox{}

	loginRepo := &stubUserRepo{}
	authSvc, err := NewService(ServiceParams{
		UserRepo:       loginRepo,
		SessionManager: &stubSessionManager{},
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}

	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return userRepo
		},
		Outbox:         emitter,
		Auth:           loginFromStub{authSvc, userRepo, loginRepo},
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 8192, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return &registerTestSetup{service: svc, userRepo: userRepo, outbox: emitter}
}

// loginFromStub bridges the register flow's post-create login to the stub
// user store so the freshly created user is visible to authentication.
type loginFromStub struct {
	inner     Service
	userStore *stubUserRepository
	loginRepo *stubUserRepo
}

func (l loginFromStub) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if user, ok := l.userStore.data[req.Email]; ok {
		l.loginRepo.user = user
	}
	return l.inner.Login(ctx, req)
}

func (l loginFromStub) Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	return l.inner.Refresh(ctx, req)
}

func (l loginFromStub) Logout(ctx context.Context, accessToken string) error {
	return l.inner.Logout(ctx, accessToken)
}

func sampleRegisterRequest(email string) RegisterRequest {
	return RegisterRequest{
		FirstName: "Jamie",
		LastName:  "Rivera",
		Email:     email,
		Password:  "Secret123!",
	}
}

func TestRegisterCreatesCustomer(t *testing.T) {
	setup := newRegisterTestSetup(t)
	req := sampleRegisterRequest("new@example.com")

	resp, err := setup.service.Register(context.Background(), req)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if setup.userRepo.created == nil {
		t.Fatalf("expected user to be created")
	}
	if setup.userRepo.created.Role != enums.UserRoleCustomer {
		t.Fatalf("expected customer role, got %s", setup.userRepo.created.Role)
	}
	if setup.userRepo.created.PasswordHash == req.Password {
		t.Fatal("password stored in plaintext")
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected tokens after registration")
	}

	if len(setup.outbox.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(setup.outbox.events))
	}
	event := setup.outbox.events[0]
	if event.EventType != enums.EventUserRegistered {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateID != setup.userRepo.created.ID {
		t.Fatal("event not keyed by created user")
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	setup := newRegisterTestSetup(t)
	req := sampleRegisterRequest("dupe@example.com")

	if _, err := setup.service.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := setup.service.Register(context.Background(), req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(setup.outbox.events) != 1 {
		t.Fatalf("duplicate register should not emit, got %d events", len(setup.outbox.events))
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	setup := newRegisterTestSetup(t)
	req := sampleRegisterRequest("short@example.com")
	req.Password = "short"

	_, err := setup.service.Register(context.Background(), req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
