package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-credential-api/internal/application/credential"
	"github.com/go-credential-api/internal/domain"
	"github.com/go-credential-api/internal/pkg/id"
)

// Counted event names.
const (
	StatUserRegistered   = "user_registered"
	StatLoginSucceeded   = "login_succeeded"
	StatLoginFailed      = "login_failed"
	StatPasswordAdded    = "password_added"
	StatPasswordChanged  = "password_changed"
	StatPasswordReset    = "password_reset"
	StatPasswordsRevoked = "passwords_revoked"
)

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Bearer    string
	ExpiresAt time.Time
	User      *domain.User
}

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest, application string) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest, application string) (*LoginResult, error)
	ListCredentials(ctx context.Context, userID string) (domain.Credentials, error)
	AddPassword(ctx context.Context, userID, newPassword, application string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword, application string) error
	ResetPassword(ctx context.Context, userID, newPassword, application string) error
	RevokePasswords(ctx context.Context, userID, reason, application string) (int, error)
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Save(ctx context.Context, u *domain.User) error
}

type lifecycle interface {
	StageAddPassword(ctx context.Context, u *domain.User, newSecret, application string) (credential.Result, *credential.Pending, error)
	StageChangePassword(ctx context.Context, u *domain.User, oldSecret, newSecret, application string) (credential.Result, *credential.Pending, error)
	StageResetPassword(ctx context.Context, u *domain.User, newSecret, application string) (credential.Result, *credential.Pending, error)
	StageRevokePasswords(ctx context.Context, u *domain.User, reason, application string) (int, *credential.Pending, error)
	Commit(ctx context.Context, u *domain.User, p *credential.Pending)
	Abort(ctx context.Context, u *domain.User, p *credential.Pending)
	CheckPassword(ctx context.Context, u *domain.User, application, candidate string) credential.Result
}

type stagedOp func(u *domain.User) (credential.Result, *credential.Pending, error)

type syncRelay interface {
	RequestUserSync(ctx context.Context, u *domain.User) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type counter interface {
	Count(ctx context.Context, name string, value int64)
}

type jwtSigner interface {
	Sign(userID, role string) (string, time.Time, error)
}

type service struct {
	repo        userStore
	credentials lifecycle
	relay       syncRelay
	mailer      mailer
	stats       counter
	jwtProvider jwtSigner
	logger      *slog.Logger
	now         func() time.Time
}

type ServiceDeps struct {
	UserRepo    userStore
	Credentials lifecycle
	Relay       syncRelay
	Mailer      mailer // optional
	Stats       counter
	JWTProvider jwtSigner
	Logger      *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		repo:        deps.UserRepo,
		credentials: deps.Credentials,
		relay:       deps.Relay,
		mailer:      deps.Mailer,
		stats:       deps.Stats,
		jwtProvider: deps.JWTProvider,
		logger:      deps.Logger,
		now:         time.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest, application string) (*domain.User, error) {
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:    id.New(),
		Email:     req.Email,
		Role:      domain.RoleUser,
		Passwords: domain.Credentials{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, pending, err := s.credentials.StageAddPassword(ctx, u, req.Password, application)
	if err != nil {
		return nil, err
	}
	if err := resultErr(res); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.credentials.Abort(ctx, u, pending)
		return nil, err
	}
	s.credentials.Commit(ctx, u, pending)
	s.count(ctx, StatUserRegistered)
	return u, s.sync(ctx, u)
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest, application string) (*LoginResult, error) {
	u, err := s.repo.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		s.count(ctx, StatLoginFailed)
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if res := s.credentials.CheckPassword(ctx, u, application, req.Password); !res.OK() {
		s.count(ctx, StatLoginFailed)
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	bearer, exp, err := s.jwtProvider.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	s.count(ctx, StatLoginSucceeded)
	return &LoginResult{Bearer: bearer, ExpiresAt: exp, User: u}, nil
}

func (s *service) ListCredentials(ctx context.Context, userID string) (domain.Credentials, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Passwords, nil
}

func (s *service) AddPassword(ctx context.Context, userID, newPassword, application string) error {
	return s.mutate(ctx, userID, StatPasswordAdded, "", func(u *domain.User) (credential.Result, *credential.Pending, error) {
		return s.credentials.StageAddPassword(ctx, u, newPassword, application)
	})
}

func (s *service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, application string) error {
	return s.mutate(ctx, userID, StatPasswordChanged, "Your password was changed", func(u *domain.User) (credential.Result, *credential.Pending, error) {
		return s.credentials.StageChangePassword(ctx, u, oldPassword, newPassword, application)
	})
}

func (s *service) ResetPassword(ctx context.Context, userID, newPassword, application string) error {
	return s.mutate(ctx, userID, StatPasswordReset, "Your password was reset", func(u *domain.User) (credential.Result, *credential.Pending, error) {
		return s.credentials.StageResetPassword(ctx, u, newPassword, application)
	})
}

func (s *service) RevokePasswords(ctx context.Context, userID, reason, application string) (int, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	n, pending, err := s.credentials.StageRevokePasswords(ctx, u, reason, application)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	if err := s.repo.Save(ctx, u); err != nil {
		s.credentials.Abort(ctx, u, pending)
		return 0, err
	}
	s.credentials.Commit(ctx, u, pending)
	s.stats.Count(ctx, StatPasswordsRevoked, int64(n))
	return n, s.sync(ctx, u)
}

// mutate loads the user, stages one lifecycle operation and persists the
// result. Remote revokes are only sent once the save has succeeded, so a
// failed save leaves the stored credentials usable. A failed sync is
// reported after the save.
func (s *service) mutate(ctx context.Context, userID, stat, notice string, op stagedOp) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	res, pending, err := op(u)
	if err != nil {
		return err
	}
	if err := resultErr(res); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, u); err != nil {
		s.credentials.Abort(ctx, u, pending)
		return err
	}
	s.credentials.Commit(ctx, u, pending)
	s.count(ctx, stat)
	if notice != "" {
		s.notify(u, notice)
	}
	return s.sync(ctx, u)
}

func (s *service) sync(ctx context.Context, u *domain.User) error {
	if err := s.relay.RequestUserSync(ctx, u); err != nil {
		s.logger.Warn("user sync failed", "user_id", u.UserID, "version", u.Version, "err", err)
		if errors.Is(err, domain.ErrSyncFailed) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrSyncFailed, err)
	}
	return nil
}

func (s *service) notify(u *domain.User, subject string) {
	if s.mailer == nil || u.Email == "" {
		return
	}
	body := subject + ".\r\n\r\nIf this was not you, contact support immediately."
	if err := s.mailer.SendEmail(u.Email, subject, body); err != nil {
		s.logger.Warn("could not send password notice", "user_id", u.UserID, "err", err)
	}
}

func (s *service) count(ctx context.Context, name string) {
	s.stats.Count(ctx, name, 1)
}

// resultErr converts a non-OK lifecycle result into a domain error.
func resultErr(res credential.Result) error {
	switch res.Status {
	case credential.StatusOK:
		return nil
	case credential.StatusDenied:
		return fmt.Errorf("password did not match: %w", domain.ErrUnauthorized)
	case credential.StatusRejected:
		return withReason(res.Reason, domain.ErrServiceRejected)
	default:
		return withReason(res.Reason, domain.ErrServiceUnreachable)
	}
}

func withReason(reason string, sentinel error) error {
	if reason == "" {
		return sentinel
	}
	return fmt.Errorf("%s: %w", reason, sentinel)
}
